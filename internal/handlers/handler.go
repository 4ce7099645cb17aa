package handlers

import (
	"context"
	"time"

	"github.com/harentsoaR/hospital-api/internal/services"
)

// CookieSettings controls the session cookies handed out on login.
type CookieSettings struct {
	MaxAge time.Duration
	Secure bool
}

// Handler holds the services the HTTP routes call into. Handlers decode the
// request, pass the resolved session to a service and encode the result.
type Handler struct {
	Accounts *services.AccountService
	Booking  *services.BookingService
	Status   *services.StatusService
	Slots    *services.SlotService
	Messages *services.MessageService
	Cookies  CookieSettings
	// Ping reports store health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}
