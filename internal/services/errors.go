package services

import "errors"

// Kind classifies failures surfaced to API clients.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
)

// Error is a client-facing failure. Message is safe to return verbatim.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func validationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func conflictError(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }

// KindOf returns the kind of err, or KindInternal for errors that did not
// originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Messages shared by handlers and tests.
const (
	MsgIncompleteForm    = "Please Fill Full Form!"
	MsgNonWorkingDay     = "It is a non-working day"
	MsgDateNotInFuture   = "Select appropriate appointment date"
	MsgEmailMismatch     = "Email must match the logged in patient!"
	MsgDoctorNotFound    = "Doctor Not Found"
	MsgSlotTaken         = "Time slot already taken"
	MsgAppointmentAbsent = "Appointment Not Found!"
	MsgConcurrentUpdate  = "Appointment was modified by another request, try again"
)
