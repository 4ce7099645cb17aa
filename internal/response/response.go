// Package response writes the API's JSON envelopes.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/services"
)

const internalMessage = "Internal Server Error"

// Failure is the body of every error response.
type Failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK writes a 200 response with success set and the given fields merged in.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail aborts the request with status and message.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Failure{Success: false, Message: message})
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with the response matching err. Errors that did
// not come from the service layer are logged and replaced by a generic
// message.
func Error(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		Fail(c, http.StatusInternalServerError, internalMessage)
		return
	}
	Fail(c, StatusFor(se.Kind), se.Message)
}
