package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

// transitions lists the status changes an admin may make. Rejected is
// terminal: the slot has been released and may already be rebooked.
var transitions = map[string][]string{
	models.StatusPending:  {models.StatusAccepted, models.StatusRejected},
	models.StatusAccepted: {models.StatusRejected},
}

// CanTransition reports whether an appointment may move from one status to
// another. Writing the current status again is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Notifier is told about every committed status change.
type Notifier interface {
	AppointmentStatusChanged(ctx context.Context, apt *models.Appointment) error
}

// AppointmentUpdate is the admin edit payload. Absent fields are left as is.
type AppointmentUpdate struct {
	FirstName  *string `json:"firstName" validate:"omitempty,min=3"`
	LastName   *string `json:"lastName" validate:"omitempty,min=3"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,len=11,digits"`
	NIC        *string `json:"nic" validate:"omitempty,len=13,digits"`
	DOB        *string `json:"dob" validate:"omitempty,calendardate"`
	Gender     *string `json:"gender" validate:"omitempty,oneof=Male Female"`
	Address    *string `json:"address" validate:"omitempty,min=1"`
	HasVisited *bool   `json:"hasVisited"`
	Status     *string `json:"status" validate:"omitempty,oneof=Pending Accepted Rejected"`
}

func (u AppointmentUpdate) empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil &&
		u.NIC == nil && u.DOB == nil && u.Gender == nil && u.Address == nil &&
		u.HasVisited == nil && u.Status == nil
}

func (u AppointmentUpdate) patch() repository.AppointmentPatch {
	p := repository.AppointmentPatch{
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Phone:      u.Phone,
		NIC:        u.NIC,
		Gender:     u.Gender,
		Address:    u.Address,
		HasVisited: u.HasVisited,
		Status:     u.Status,
	}
	if u.DOB != nil {
		if dob, err := parseDate(*u.DOB); err == nil {
			p.DOB = &dob
		}
	}
	return p
}

// Stats is the admin dashboard summary.
type Stats struct {
	AppointmentCount int64 `json:"appointmentCount"`
	DoctorCount      int64 `json:"doctorCount"`
}

type StatusService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	notifier     Notifier
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewStatusService wires the status manager. notifier may be nil.
func NewStatusService(appointments repository.AppointmentRepository, users repository.UserRepository, notifier Notifier, log zerolog.Logger) *StatusService {
	return &StatusService{
		appointments: appointments,
		users:        users,
		notifier:     notifier,
		validate:     NewValidator(),
		log:          log,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, validationError("Invalid _id")
	}
	return oid, nil
}

// UpdateStatus moves an appointment to status, subject to the transition table.
func (s *StatusService) UpdateStatus(ctx context.Context, sess *Session, id, status string) (*models.Appointment, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, validationError("Status Is Required!")
	}
	if !models.IsStatus(status) {
		return nil, validationError("Invalid Status!")
	}
	return s.write(ctx, id, AppointmentUpdate{Status: &status})
}

// UpdateAppointment merges the given fields into the appointment. A status
// in the payload goes through the transition table.
func (s *StatusService) UpdateAppointment(ctx context.Context, sess *Session, id string, upd AppointmentUpdate) (*models.Appointment, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	if upd.empty() {
		return nil, validationError("No fields to update")
	}
	return s.write(ctx, id, upd)
}

// ForceAccept merges the given fields and sets the status to Accepted no
// matter what status the payload carries.
func (s *StatusService) ForceAccept(ctx context.Context, sess *Session, id string, upd AppointmentUpdate) (*models.Appointment, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	accepted := models.StatusAccepted
	upd.Status = &accepted
	return s.write(ctx, id, upd)
}

func (s *StatusService) write(ctx context.Context, id string, upd AppointmentUpdate) (*models.Appointment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&upd); err != nil {
		return nil, describe(err)
	}

	current, err := s.appointments.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(MsgAppointmentAbsent)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	patch := upd.patch()
	changed := false
	if patch.Status != nil {
		if !CanTransition(current.Status, *patch.Status) {
			return nil, conflictError(fmt.Sprintf("Cannot change status from %s to %s", current.Status, *patch.Status))
		}
		if *patch.Status == current.Status {
			patch.Status = nil
		} else {
			changed = true
		}
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated, err := s.appointments.UpdateIfStatus(ctx, oid, current.Status, patch)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFoundError(MsgAppointmentAbsent)
	case errors.Is(err, repository.ErrStaleWrite):
		return nil, conflictError(MsgConcurrentUpdate)
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, conflictError(MsgSlotTaken)
	default:
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	if changed {
		s.notify(ctx, updated)
	}
	return updated, nil
}

func (s *StatusService) notify(ctx context.Context, apt *models.Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AppointmentStatusChanged(ctx, apt); err != nil {
		s.log.Warn().Err(err).
			Str("appointment_id", apt.ID.Hex()).
			Str("status", apt.Status).
			Msg("status notification failed")
	}
}

// DeleteAppointment removes the appointment for good.
func (s *StatusService) DeleteAppointment(ctx context.Context, sess *Session, id string) error {
	if err := sess.require(models.RoleAdmin); err != nil {
		return err
	}
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(MsgAppointmentAbsent)
		}
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

// MyAppointmentStatus lists the calling patient's appointments, matched on
// the email of the session user.
func (s *StatusService) MyAppointmentStatus(ctx context.Context, sess *Session) ([]models.StatusView, error) {
	if err := sess.require(models.RolePatient); err != nil {
		return nil, err
	}
	list, err := s.appointments.ListByEmail(ctx, sess.Email)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	views := make([]models.StatusView, 0, len(list))
	for i := range list {
		if list[i].Email != sess.Email {
			continue
		}
		views = append(views, list[i].StatusView())
	}
	return views, nil
}

func (s *StatusService) Stats(ctx context.Context, sess *Session) (*Stats, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	appointments, err := s.appointments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	doctors, err := s.users.CountByRole(ctx, models.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	return &Stats{AppointmentCount: appointments, DoctorCount: doctors}, nil
}
