package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/hospital-api/internal/middleware"
)

// RegisterRoutes mounts the API under /api/v1.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	admin := middleware.RequireAdmin(h.Accounts)
	patient := middleware.RequirePatient(h.Accounts)

	v1 := r.Group("/api/v1")

	appointments := v1.Group("/appointment")
	{
		appointments.GET("/booked-times", h.BookedTimes)
		appointments.POST("/post", patient, h.PostAppointment)
		appointments.GET("/status", patient, h.AppointmentStatus)
		appointments.PUT("/update/:id", admin, h.UpdateAppointment)
		appointments.PUT("/accept/:id", admin, h.AcceptAppointment)
		appointments.PUT("/status/:id", admin, h.UpdateAppointmentStatus)
		appointments.DELETE("/delete/:id", admin, h.DeleteAppointment)
		appointments.GET("/stats", admin, h.Stats)
	}

	users := v1.Group("/user")
	{
		users.POST("/patient/register", h.RegisterPatient)
		users.POST("/login", h.Login)
		users.GET("/doctors", h.ListDoctors)
		users.GET("/doctor/avatar/:id", h.DoctorAvatar)
		users.POST("/admin/addnew", admin, h.AddAdmin)
		users.POST("/doctor/addnew", admin, h.AddDoctor)
		users.PUT("/doctor/update/:id", admin, h.UpdateDoctor)
		users.DELETE("/doctor/delete/:id", admin, h.DeleteDoctor)
		users.GET("/admin/me", admin, h.AdminMe())
		users.GET("/patient/me", patient, h.PatientMe())
		users.GET("/admin/logout", admin, h.LogoutAdmin)
		users.GET("/patient/logout", patient, h.LogoutPatient)
	}

	v1.POST("/message/send", h.SendMessage)
}
