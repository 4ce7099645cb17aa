package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

// 2026-10-15 is a Thursday. 2027-03-10 is a Wednesday, 2027-03-14 a Sunday.
var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type fixture struct {
	store   *repository.MemoryStore
	doctor  *models.User
	patient *Session
	admin   *Session
	notes   *recordingNotifier
	booking *BookingService
	status  *StatusService
	slots   *SlotService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	doctor := &models.User{FirstName: "Jane", LastName: "Doe", Email: "jane@hospital.test", Role: models.RoleDoctor, DoctorDepartment: "Cardiology"}
	patient := &models.User{FirstName: "Alice", LastName: "Walker", Email: "alice@example.com", Role: models.RolePatient}
	admin := &models.User{FirstName: "Root", LastName: "Admin", Email: "admin@hospital.test", Role: models.RoleAdmin}
	for _, u := range []*models.User{doctor, patient, admin} {
		if err := store.Users.Create(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.Email, err)
		}
	}

	notes := &recordingNotifier{}
	return &fixture{
		store:   store,
		doctor:  doctor,
		patient: &Session{Role: models.RolePatient, SubjectID: patient.ID, Email: patient.Email},
		admin:   &Session{Role: models.RoleAdmin, SubjectID: admin.ID, Email: admin.Email},
		notes:   notes,
		booking: NewBookingService(store.Appointments, store.Users, fixedNow),
		status:  NewStatusService(store.Appointments, store.Users, notes, zerolog.Nop()),
		slots:   NewSlotService(store.Appointments, store.Users),
	}
}

func validForm() BookingForm {
	return BookingForm{
		FirstName:       "Alice",
		LastName:        "Walker",
		Email:           "alice@example.com",
		Phone:           "03001234567",
		NIC:             "3520212345671",
		DOB:             "1990-05-17",
		Gender:          models.GenderFemale,
		AppointmentDate: "2027-03-10",
		Department:      "Cardiology",
		DoctorFirstName: "Jane",
		DoctorLastName:  "Doe",
		Address:         "12 Park Road",
		SelectTime:      "10:00",
	}
}

func (f *fixture) book(t *testing.T, form BookingForm) *models.Appointment {
	t.Helper()
	apt, err := f.booking.SubmitBooking(context.Background(), f.patient, form)
	if err != nil {
		t.Fatalf("book %s %s: %v", form.AppointmentDate, form.SelectTime, err)
	}
	return apt
}

type recordingNotifier struct {
	calls []string
	err   error
}

func (n *recordingNotifier) AppointmentStatusChanged(_ context.Context, apt *models.Appointment) error {
	n.calls = append(n.calls, apt.Status)
	return n.err
}

func assertKind(t *testing.T, err error, want Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Errorf("expected kind %d, got %d (%q)", want, e.Kind, e.Message)
	}
	if msg != "" && e.Message != msg {
		t.Errorf("expected message %q, got %q", msg, e.Message)
	}
}
