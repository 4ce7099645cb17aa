package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

// BookingForm is the body of POST /appointment/post.
type BookingForm struct {
	FirstName       string `json:"firstName" validate:"min=3"`
	LastName        string `json:"lastName" validate:"min=3"`
	Email           string `json:"email" validate:"email"`
	Phone           string `json:"phone" validate:"len=11,digits"`
	NIC             string `json:"nic" validate:"len=13,digits"`
	DOB             string `json:"dob" validate:"calendardate"`
	Gender          string `json:"gender" validate:"oneof=Male Female"`
	AppointmentDate string `json:"appointment_date" validate:"calendardate"`
	Department      string `json:"department" validate:"department"`
	DoctorFirstName string `json:"doctor_firstName"`
	DoctorLastName  string `json:"doctor_lastName"`
	HasVisited      bool   `json:"hasVisited"`
	Address         string `json:"address"`
	SelectTime      string `json:"select_time" validate:"timeslot"`
}

func (f *BookingForm) complete() bool {
	return allSet(f.FirstName, f.LastName, f.Email, f.Phone, f.NIC, f.DOB, f.Gender,
		f.AppointmentDate, f.Department, f.DoctorFirstName, f.DoctorLastName, f.Address, f.SelectTime)
}

type BookingService struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	validate     *validator.Validate
	now          func() time.Time
}

// NewBookingService wires the booking workflow. A nil now uses time.Now.
func NewBookingService(appointments repository.AppointmentRepository, users repository.UserRepository, now func() time.Time) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		appointments: appointments,
		users:        users,
		validate:     NewValidator(),
		now:          now,
	}
}

// SubmitBooking validates the form, resolves the doctor and stores a Pending
// appointment for the calling patient. Checks run in a fixed order and the
// first failure wins. Nothing is written unless every check passes.
func (s *BookingService) SubmitBooking(ctx context.Context, sess *Session, form BookingForm) (*models.Appointment, error) {
	if err := sess.require(models.RolePatient); err != nil {
		return nil, err
	}
	trimBooking(&form)
	if !form.complete() {
		return nil, validationError(MsgIncompleteForm)
	}
	if err := s.validate.Struct(&form); err != nil {
		return nil, describe(err)
	}

	if !strings.EqualFold(form.Email, sess.Email) {
		return nil, validationError(MsgEmailMismatch)
	}

	day, err := parseDate(form.AppointmentDate)
	if err != nil {
		return nil, validationError("Invalid Appointment Date")
	}
	if day.Weekday() == time.Sunday {
		return nil, validationError(MsgNonWorkingDay)
	}
	// Compared as calendar days so a later time today is still rejected.
	date := day.Format(dateLayout)
	if date <= s.now().UTC().Format(dateLayout) {
		return nil, validationError(MsgDateNotInFuture)
	}
	dob, _ := parseDate(form.DOB)

	doctor, err := s.users.FindDoctor(ctx, form.DoctorFirstName, form.DoctorLastName, form.Department)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(MsgDoctorNotFound)
		}
		return nil, fmt.Errorf("find doctor: %w", err)
	}

	key := repository.SlotKey{
		Department: form.Department,
		DoctorID:   doctor.ID,
		Date:       date,
		Time:       form.SelectTime,
	}
	if _, err := s.appointments.FindHeld(ctx, key); err == nil {
		return nil, conflictError(MsgSlotTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check slot: %w", err)
	}

	apt := &models.Appointment{
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		Email:           form.Email,
		Phone:           form.Phone,
		NIC:             form.NIC,
		DOB:             dob,
		Gender:          form.Gender,
		AppointmentDate: key.Date,
		SelectTime:      key.Time,
		Department:      key.Department,
		Doctor:          models.DoctorName{FirstName: doctor.FirstName, LastName: doctor.LastName},
		HasVisited:      form.HasVisited,
		Address:         form.Address,
		DoctorID:        doctor.ID,
		PatientID:       sess.SubjectID,
		Status:          models.StatusPending,
		SlotHeld:        true,
	}
	// The slot index catches writers that raced past FindHeld.
	if err := s.appointments.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, conflictError(MsgSlotTaken)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return apt, nil
}

func trimBooking(f *BookingForm) {
	for _, p := range []*string{
		&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.NIC, &f.DOB, &f.Gender,
		&f.AppointmentDate, &f.Department, &f.DoctorFirstName, &f.DoctorLastName, &f.Address, &f.SelectTime,
	} {
		*p = strings.TrimSpace(*p)
	}
}
