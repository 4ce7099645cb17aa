package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.StatusPending, models.StatusPending, true},
		{models.StatusPending, models.StatusAccepted, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusAccepted, models.StatusAccepted, true},
		{models.StatusAccepted, models.StatusRejected, true},
		{models.StatusAccepted, models.StatusPending, false},
		{models.StatusRejected, models.StatusRejected, true},
		{models.StatusRejected, models.StatusAccepted, false},
		{models.StatusRejected, models.StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestForceAccept_OverridesStatusAndMergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())

	got, err := f.status.ForceAccept(ctx, f.admin, apt.ID.Hex(), AppointmentUpdate{
		Status:     strPtr(models.StatusRejected),
		HasVisited: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("force accept: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Errorf("expected Accepted, got %s", got.Status)
	}
	if !got.HasVisited {
		t.Error("expected hasVisited to be merged")
	}
	if !got.SlotHeld {
		t.Error("accepted appointment must keep its slot")
	}
	if !reflect.DeepEqual(f.notes.calls, []string{models.StatusAccepted}) {
		t.Errorf("expected one Accepted notification, got %v", f.notes.calls)
	}
}

func TestForceAccept_EmptyBody(t *testing.T) {
	f := newFixture(t)
	apt := f.book(t, validForm())

	got, err := f.status.ForceAccept(context.Background(), f.admin, apt.ID.Hex(), AppointmentUpdate{})
	if err != nil {
		t.Fatalf("force accept: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Errorf("expected Accepted, got %s", got.Status)
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())
	id := apt.ID.Hex()

	got, err := f.status.UpdateStatus(ctx, f.admin, id, models.StatusAccepted)
	if err != nil || got.Status != models.StatusAccepted {
		t.Fatalf("accept: %v %+v", err, got)
	}

	_, err = f.status.UpdateStatus(ctx, f.admin, id, models.StatusPending)
	assertKind(t, err, KindConflict, "Cannot change status from Accepted to Pending")

	// Writing the same status again is a no-op and does not notify.
	if _, err := f.status.UpdateStatus(ctx, f.admin, id, models.StatusAccepted); err != nil {
		t.Fatalf("same-state write: %v", err)
	}

	got, err = f.status.UpdateStatus(ctx, f.admin, id, models.StatusRejected)
	if err != nil || got.Status != models.StatusRejected || got.SlotHeld {
		t.Fatalf("reject: %v %+v", err, got)
	}

	_, err = f.status.UpdateStatus(ctx, f.admin, id, models.StatusAccepted)
	assertKind(t, err, KindConflict, "Cannot change status from Rejected to Accepted")

	_, err = f.status.ForceAccept(ctx, f.admin, id, AppointmentUpdate{})
	assertKind(t, err, KindConflict, "")

	want := []string{models.StatusAccepted, models.StatusRejected}
	if !reflect.DeepEqual(f.notes.calls, want) {
		t.Errorf("expected notifications %v, got %v", want, f.notes.calls)
	}
}

func TestUpdateStatus_InputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())

	_, err := f.status.UpdateStatus(ctx, f.admin, apt.ID.Hex(), "Cancelled")
	assertKind(t, err, KindValidation, "Invalid Status!")

	_, err = f.status.UpdateStatus(ctx, f.admin, apt.ID.Hex(), "")
	assertKind(t, err, KindValidation, "Status Is Required!")

	_, err = f.status.UpdateStatus(ctx, f.admin, "not-an-id", models.StatusAccepted)
	assertKind(t, err, KindValidation, "Invalid _id")

	_, err = f.status.UpdateStatus(ctx, f.admin, primitive.NewObjectID().Hex(), models.StatusAccepted)
	assertKind(t, err, KindNotFound, MsgAppointmentAbsent)

	_, err = f.status.UpdateStatus(ctx, f.patient, apt.ID.Hex(), models.StatusAccepted)
	assertKind(t, err, KindForbidden, "")

	_, err = f.status.UpdateStatus(ctx, nil, apt.ID.Hex(), models.StatusAccepted)
	assertKind(t, err, KindUnauthenticated, "")
}

func TestUpdateAppointment_MergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())

	got, err := f.status.UpdateAppointment(ctx, f.admin, apt.ID.Hex(), AppointmentUpdate{
		Address: strPtr("99 Lake View"),
		DOB:     strPtr("1991-01-02"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Address != "99 Lake View" || got.DOB.Format("2006-01-02") != "1991-01-02" {
		t.Errorf("fields not merged: %+v", got)
	}
	if got.Status != models.StatusPending {
		t.Errorf("status should be untouched, got %s", got.Status)
	}
	if len(f.notes.calls) != 0 {
		t.Errorf("no status change, expected no notification, got %v", f.notes.calls)
	}

	_, err = f.status.UpdateAppointment(ctx, f.admin, apt.ID.Hex(), AppointmentUpdate{})
	assertKind(t, err, KindValidation, "No fields to update")

	_, err = f.status.UpdateAppointment(ctx, f.admin, apt.ID.Hex(), AppointmentUpdate{Phone: strPtr("123")})
	assertKind(t, err, KindValidation, "Phone Number Must Contain Exactly 11 Digits!")
}

// racingAppointments lets a competing write land between the read and the
// conditional update.
type racingAppointments struct {
	*repository.MemoryAppointments
	race func()
}

func (r *racingAppointments) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	a, err := r.MemoryAppointments.FindByID(ctx, id)
	if r.race != nil {
		race := r.race
		r.race = nil
		race()
	}
	return a, err
}

func TestUpdateStatus_LostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())

	racing := &racingAppointments{MemoryAppointments: f.store.Appointments}
	racing.race = func() {
		rejected := models.StatusRejected
		if _, err := f.store.Appointments.UpdateIfStatus(ctx, apt.ID, models.StatusPending, repository.AppointmentPatch{Status: &rejected}); err != nil {
			t.Fatalf("competing write: %v", err)
		}
	}
	svc := NewStatusService(racing, f.store.Users, f.notes, zerolog.Nop())

	_, err := svc.UpdateStatus(ctx, f.admin, apt.ID.Hex(), models.StatusAccepted)
	assertKind(t, err, KindConflict, MsgConcurrentUpdate)

	stored, _ := f.store.Appointments.FindByID(ctx, apt.ID)
	if stored.Status != models.StatusRejected {
		t.Errorf("competing write must win, got %s", stored.Status)
	}
	if len(f.notes.calls) != 0 {
		t.Errorf("expected no notification, got %v", f.notes.calls)
	}
}

func TestUpdateStatus_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notes.err = errors.New("sms gateway down")
	apt := f.book(t, validForm())

	got, err := f.status.UpdateStatus(context.Background(), f.admin, apt.ID.Hex(), models.StatusAccepted)
	if err != nil {
		t.Fatalf("update should succeed despite notifier: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Errorf("expected Accepted, got %s", got.Status)
	}
}

func TestDeleteAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.book(t, validForm())

	if err := f.status.DeleteAppointment(ctx, f.admin, apt.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := f.status.DeleteAppointment(ctx, f.admin, apt.ID.Hex())
	assertKind(t, err, KindNotFound, MsgAppointmentAbsent)

	// Deleting frees the slot.
	f.book(t, validForm())
}

func TestMyAppointmentStatus_ScopedToSessionEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.book(t, validForm())

	bob := &models.User{FirstName: "Bob", LastName: "Marsh", Email: "bob@example.com", Role: models.RolePatient}
	if err := f.store.Users.Create(ctx, bob); err != nil {
		t.Fatalf("seed bob: %v", err)
	}
	other := validForm()
	other.Email = bob.Email
	other.SelectTime = "11:00"
	if _, err := f.booking.SubmitBooking(ctx, &Session{Role: models.RolePatient, SubjectID: bob.ID, Email: bob.Email}, other); err != nil {
		t.Fatalf("book for bob: %v", err)
	}

	views, err := f.status.MyAppointmentStatus(ctx, f.patient)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(views) != 1 || views[0].ID != mine.ID {
		t.Fatalf("expected only own appointment, got %+v", views)
	}
	v := views[0]
	if v.Status != models.StatusPending || v.SelectTime != "10:00" || v.Doctor.LastName != "Doe" {
		t.Errorf("unexpected view %+v", v)
	}

	stranger := &Session{Role: models.RolePatient, SubjectID: primitive.NewObjectID(), Email: "nobody@example.com"}
	views, err = f.status.MyAppointmentStatus(ctx, stranger)
	if err != nil || views == nil || len(views) != 0 {
		t.Errorf("expected empty non-nil list, got %v %v", views, err)
	}

	_, err = f.status.MyAppointmentStatus(ctx, f.admin)
	assertKind(t, err, KindForbidden, "")
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, validForm())
	second := validForm()
	second.SelectTime = "09:30"
	f.book(t, second)

	stats, err := f.status.Stats(ctx, f.admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.AppointmentCount != 2 || stats.DoctorCount != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	_, err = f.status.Stats(ctx, f.patient)
	assertKind(t, err, KindForbidden, "")
}
