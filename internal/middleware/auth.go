package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/response"
	"github.com/harentsoaR/hospital-api/internal/services"
)

// Session cookie names. Admins get their own cookie so the dashboard and the
// patient site can be signed in side by side.
const (
	AdminCookie   = "adminToken"
	PatientCookie = "patientToken"
)

const sessionKey = "session"

// SessionResolver turns a session token into the caller's Session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*services.Session, error)
}

// CookieFor returns the session cookie used by accounts holding role.
func CookieFor(role string) string {
	if role == models.RoleAdmin {
		return AdminCookie
	}
	return PatientCookie
}

// tokenFrom reads the session cookie, falling back to a Bearer header.
func tokenFrom(c *gin.Context, cookie string) string {
	if token, err := c.Cookie(cookie); err == nil && token != "" {
		return token
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireRole resolves the session once and lets the request through only
// when the account holds role. The session is stored on the gin context.
func RequireRole(resolver SessionResolver, role string) gin.HandlerFunc {
	cookie := CookieFor(role)
	unauthenticated := "User is not authenticated!"
	if role == models.RoleAdmin {
		unauthenticated = "Dashboard User is not authenticated!"
	}

	return func(c *gin.Context) {
		token := tokenFrom(c, cookie)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, unauthenticated)
			return
		}
		sess, err := resolver.ResolveSession(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		if sess.Role != role {
			response.Fail(c, http.StatusForbidden, fmt.Sprintf("%s not authorized for this resource!", sess.Role))
			return
		}

		l := zerolog.Ctx(c.Request.Context()).With().
			Str("user_id", sess.SubjectID.Hex()).
			Str("role", sess.Role).
			Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func RequireAdmin(resolver SessionResolver) gin.HandlerFunc {
	return RequireRole(resolver, models.RoleAdmin)
}

func RequirePatient(resolver SessionResolver) gin.HandlerFunc {
	return RequireRole(resolver, models.RolePatient)
}

// SessionFrom returns the session resolved by RequireRole, or nil.
func SessionFrom(c *gin.Context) *services.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*services.Session)
	return sess
}
