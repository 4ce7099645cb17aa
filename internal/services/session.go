package services

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is the authenticated caller, resolved once at the request boundary
// and passed explicitly into every service call.
type Session struct {
	Role      string
	SubjectID primitive.ObjectID
	Email     string
	ExpiresAt time.Time
}

func (s *Session) require(role string) error {
	if s == nil {
		return &Error{Kind: KindUnauthenticated, Message: "User is not authenticated!"}
	}
	if s.Role != role {
		return &Error{Kind: KindForbidden, Message: fmt.Sprintf("%s not authorized for this resource!", s.Role)}
	}
	return nil
}
