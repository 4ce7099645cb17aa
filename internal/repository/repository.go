// Package repository holds the persistence layer: the users, appointments and
// messages collections, backed either by MongoDB or by an in-memory store used
// in tests and in STORE_DRIVER=memory mode.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/hospital-api/internal/models"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrSlotTaken is returned when a write would leave two held appointments
	// in the same (department, doctor, date, time) slot.
	ErrSlotTaken = errors.New("time slot already held")
	// ErrStaleWrite is returned by conditional updates whose precondition no
	// longer matches the stored document.
	ErrStaleWrite = errors.New("document changed since it was read")
)

// DuplicateError reports a unique-index violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

// SlotKey identifies a bookable slot.
type SlotKey struct {
	Department string
	DoctorID   primitive.ObjectID
	Date       string
	Time       string
}

// AppointmentPatch lists the fields a conditional update may set. Nil fields
// are left untouched.
type AppointmentPatch struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	NIC        *string
	DOB        *time.Time
	Gender     *string
	Address    *string
	HasVisited *bool
	Status     *string
}

func (p AppointmentPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.NIC == nil && p.DOB == nil && p.Gender == nil && p.Address == nil &&
		p.HasVisited == nil && p.Status == nil
}

func (p AppointmentPatch) apply(a *models.Appointment) {
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.NIC != nil {
		a.NIC = *p.NIC
	}
	if p.DOB != nil {
		a.DOB = *p.DOB
	}
	if p.Gender != nil {
		a.Gender = *p.Gender
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.HasVisited != nil {
		a.HasVisited = *p.HasVisited
	}
	if p.Status != nil {
		a.Status = *p.Status
		a.SlotHeld = models.HoldsSlot(*p.Status)
	}
}

type AppointmentRepository interface {
	// Create inserts a held appointment. Returns ErrSlotTaken if the slot is
	// already held by another appointment.
	Create(ctx context.Context, a *models.Appointment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	// FindHeld returns the appointment currently holding the slot, or ErrNotFound.
	FindHeld(ctx context.Context, key SlotKey) (*models.Appointment, error)
	// HeldTimes returns the held select_time values for a doctor's day, ascending.
	HeldTimes(ctx context.Context, department string, doctorID primitive.ObjectID, date string) ([]string, error)
	ListByEmail(ctx context.Context, email string) ([]models.Appointment, error)
	// UpdateIfStatus applies patch only if the stored status still equals
	// expectedStatus, returning the updated document.
	UpdateIfStatus(ctx context.Context, id primitive.ObjectID, expectedStatus string, patch AppointmentPatch) (*models.Appointment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// UserPatch lists the doctor profile fields an admin may edit.
type UserPatch struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	NIC              *string
	DOB              *time.Time
	Gender           *string
	DoctorDepartment *string
}

func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.NIC == nil && p.DOB == nil && p.Gender == nil && p.DoctorDepartment == nil
}

func (p UserPatch) apply(u *models.User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.NIC != nil {
		u.NIC = *p.NIC
	}
	if p.DOB != nil {
		u.DOB = *p.DOB
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.DoctorDepartment != nil {
		u.DoctorDepartment = *p.DoctorDepartment
	}
}

type UserRepository interface {
	// Create inserts a user. Returns *DuplicateError{Field: "email"} when the
	// email is already registered.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindDoctor(ctx context.Context, firstName, lastName, department string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByRole(ctx context.Context, role string) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
}
