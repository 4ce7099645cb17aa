package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/hospital-api/internal/middleware"
	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/response"
	"github.com/harentsoaR/hospital-api/internal/services"
)

// setSession writes the session cookie matching the account's role.
func (h *Handler) setSession(c *gin.Context, auth *services.Authenticated) {
	// Browsers drop SameSite=None cookies that are not Secure.
	if h.Cookies.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.CookieFor(auth.User.Role), auth.Token, int(h.Cookies.MaxAge.Seconds()), "/", "", h.Cookies.Secure, true)
}

func (h *Handler) clearSession(c *gin.Context, cookie string) {
	if h.Cookies.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(cookie, "", -1, "/", "", h.Cookies.Secure, true)
}

// RegisterPatient creates a patient account and signs it in.
func (h *Handler) RegisterPatient(c *gin.Context) {
	var form services.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	auth, err := h.Accounts.RegisterPatient(c.Request.Context(), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, auth)
	response.OK(c, gin.H{"message": "User Registered!", "user": auth.User, "token": auth.Token})
}

// Login checks credentials for the requested role and sets the session cookie.
func (h *Handler) Login(c *gin.Context) {
	var form services.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	auth, err := h.Accounts.Login(c.Request.Context(), form)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setSession(c, auth)
	response.OK(c, gin.H{"message": "User Logged In Successfully!", "user": auth.User, "token": auth.Token})
}

// AddAdmin lets a signed-in admin create another admin.
func (h *Handler) AddAdmin(c *gin.Context) {
	var form services.RegisterForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	if _, err := h.Accounts.AddAdmin(c.Request.Context(), middleware.SessionFrom(c), form); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "New Admin Registered!"})
}

// AddDoctor takes a multipart form with the doctor fields and a docAvatar file.
func (h *Handler) AddDoctor(c *gin.Context) {
	var form services.DoctorForm
	if err := c.ShouldBind(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	var avatar *services.Avatar
	fh, err := c.FormFile("docAvatar")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			response.Error(c, err)
			return
		}
		defer f.Close()
		avatar = &services.Avatar{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	doctor, err := h.Accounts.AddDoctor(c.Request.Context(), middleware.SessionFrom(c), form, avatar)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "New Doctor Registered!", "doctor": doctor})
}

// ListDoctors returns every doctor. It needs no session.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.Accounts.ListDoctors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"doctors": doctors})
}

// UpdateDoctor merges the body into the doctor record.
func (h *Handler) UpdateDoctor(c *gin.Context) {
	var upd services.DoctorUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	doctor, err := h.Accounts.UpdateDoctor(c.Request.Context(), middleware.SessionFrom(c), c.Param("id"), upd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Doctor updated successfully!", "doctor": doctor})
}

// DeleteDoctor removes the doctor and the avatar.
func (h *Handler) DeleteDoctor(c *gin.Context) {
	if err := h.Accounts.DeleteDoctor(c.Request.Context(), middleware.SessionFrom(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Doctor deleted successfully!"})
}

// DoctorAvatar streams a stored avatar image.
func (h *Handler) DoctorAvatar(c *gin.Context) {
	rc, obj, err := h.Accounts.OpenAvatar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, rc, map[string]string{
		"Content-Disposition": "inline; filename=" + strconv.Quote(obj.FileName),
	})
}

func (h *Handler) me(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.Accounts.GetUser(c.Request.Context(), middleware.SessionFrom(c), role)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"user": user})
	}
}

// AdminMe and PatientMe return the signed-in user.
func (h *Handler) AdminMe() gin.HandlerFunc   { return h.me(models.RoleAdmin) }
func (h *Handler) PatientMe() gin.HandlerFunc { return h.me(models.RolePatient) }

// LogoutAdmin clears the admin cookie.
func (h *Handler) LogoutAdmin(c *gin.Context) {
	h.clearSession(c, middleware.AdminCookie)
	response.OK(c, gin.H{"message": "Admin Logged Out Successfully!"})
}

// LogoutPatient clears the patient cookie.
func (h *Handler) LogoutPatient(c *gin.Context) {
	h.clearSession(c, middleware.PatientCookie)
	response.OK(c, gin.H{"message": "Patient Logged Out Successfully!"})
}
