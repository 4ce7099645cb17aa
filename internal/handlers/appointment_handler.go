package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/hospital-api/internal/middleware"
	"github.com/harentsoaR/hospital-api/internal/response"
	"github.com/harentsoaR/hospital-api/internal/services"
)

const msgBadBody = "Invalid request body"

// BookedTimes reports which slots of a doctor's day are taken and which are
// still free.
func (h *Handler) BookedTimes(c *gin.Context) {
	day, err := h.Slots.DoctorDayByName(c.Request.Context(),
		c.Query("department"),
		c.Query("doctor_firstName"),
		c.Query("doctor_lastName"),
		c.Query("appointment_date"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"bookedTimes": day.Booked, "availableTimes": day.Available})
}

// PostAppointment books a slot for the signed-in patient.
func (h *Handler) PostAppointment(c *gin.Context) {
	var form services.BookingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	apt, err := h.Booking.SubmitBooking(c.Request.Context(), middleware.SessionFrom(c), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Appointment Sent Successfully!", "appointment": apt})
}

// UpdateAppointment merges the body into the appointment.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	var upd services.AppointmentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	apt, err := h.Status.UpdateAppointment(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Appointment Updated", "appointment": apt})
}

// AcceptAppointment merges the body and forces the status to Accepted. An
// empty body is allowed.
func (h *Handler) AcceptAppointment(c *gin.Context) {
	var upd services.AppointmentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil && !errors.Is(err, io.EOF) {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	apt, err := h.Status.ForceAccept(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Appointment Status Updated", "appointment": apt})
}

// UpdateAppointmentStatus applies {status} through the transition table.
func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	apt, err := h.Status.UpdateStatus(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Appointment Status Updated", "appointment": apt})
}

// DeleteAppointment removes an appointment and frees its slot.
func (h *Handler) DeleteAppointment(c *gin.Context) {
	if err := h.Status.DeleteAppointment(c.Request.Context(), middleware.SessionFrom(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Appointment Deleted!"})
}

// AppointmentStatus lists the signed-in patient's appointments.
func (h *Handler) AppointmentStatus(c *gin.Context) {
	views, err := h.Status.MyAppointmentStatus(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"appointmentStatus": views})
}

// Stats returns appointment and doctor counts for the dashboard.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.Status.Stats(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"appointmentCount": stats.AppointmentCount, "doctorCount": stats.DoctorCount})
}
