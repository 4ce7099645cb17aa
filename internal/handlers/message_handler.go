package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/hospital-api/internal/response"
	"github.com/harentsoaR/hospital-api/internal/services"
)

// SendMessage stores a contact-form message.
func (h *Handler) SendMessage(c *gin.Context) {
	var form services.MessageForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	if _, err := h.Messages.Send(c.Request.Context(), form); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Message Sent!"})
}

// Health reports whether the store answers.
func (h *Handler) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			response.Fail(c, http.StatusServiceUnavailable, "Database Unavailable")
			return
		}
	}
	response.OK(c, gin.H{"status": "ok"})
}
