package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/blobstore"
	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
	"github.com/harentsoaR/hospital-api/internal/utils"
)

func newAccounts(users repository.UserRepository, blobs blobstore.Store) *AccountService {
	return NewAccountService(users, blobs, utils.NewTokenManager("test-secret", time.Hour), zerolog.Nop())
}

func registerForm(email string) RegisterForm {
	return RegisterForm{
		FirstName: "Alice",
		LastName:  "Walker",
		Email:     email,
		Phone:     "03001234567",
		NIC:       "3520212345671",
		DOB:       "1990-05-17",
		Gender:    models.GenderFemale,
		Password:  "s3cret-pass",
	}
}

func doctorForm(email string) DoctorForm {
	f := registerForm(email)
	f.FirstName, f.LastName = "Jane", "Doe"
	return DoctorForm{RegisterForm: f, DoctorDepartment: "Cardiology"}
}

func pngAvatar() *Avatar {
	return &Avatar{FileName: "jane.png", ContentType: "image/png", Content: strings.NewReader("png-bytes")}
}

func TestRegisterLoginResolve(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAccounts(store.Users, blobstore.NewMemoryStore("/avatars"))
	ctx := context.Background()

	reg, err := svc.RegisterPatient(ctx, registerForm("alice@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Role != models.RolePatient || reg.Token == "" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if reg.User.Password == "s3cret-pass" {
		t.Fatal("password stored in clear text")
	}

	login, err := svc.Login(ctx, LoginForm{Email: "alice@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass", Role: models.RolePatient})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	sess, err := svc.ResolveSession(ctx, login.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.Role != models.RolePatient || sess.SubjectID != reg.User.ID || sess.Email != "alice@example.com" {
		t.Errorf("unexpected session %+v", sess)
	}
	if sess.ExpiresAt.IsZero() {
		t.Error("expected session expiry")
	}

	me, err := svc.GetUser(ctx, sess, models.RolePatient)
	if err != nil || me.ID != reg.User.ID {
		t.Fatalf("me: %v %+v", err, me)
	}
	_, err = svc.GetUser(ctx, sess, models.RoleAdmin)
	assertKind(t, err, KindForbidden, "Patient not authorized for this resource!")
}

func TestRegisterPatient_Rejections(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAccounts(store.Users, blobstore.NewMemoryStore("/avatars"))
	ctx := context.Background()
	if _, err := svc.RegisterPatient(ctx, registerForm("alice@example.com")); err != nil {
		t.Fatal(err)
	}

	_, err := svc.RegisterPatient(ctx, registerForm("alice@example.com"))
	assertKind(t, err, KindConflict, "Patient With This Email Already Exist!")

	incomplete := registerForm("bob@example.com")
	incomplete.NIC = ""
	_, err = svc.RegisterPatient(ctx, incomplete)
	assertKind(t, err, KindValidation, MsgIncompleteForm)

	short := registerForm("bob@example.com")
	short.Password = "short"
	_, err = svc.RegisterPatient(ctx, short)
	assertKind(t, err, KindValidation, "Password Must Contain At Least 8 Characters!")

	badNIC := registerForm("bob@example.com")
	badNIC.NIC = "12345"
	_, err = svc.RegisterPatient(ctx, badNIC)
	assertKind(t, err, KindValidation, "NIC Must Contain Exactly 13 Digits!")
}

func TestLogin_Rejections(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAccounts(store.Users, blobstore.NewMemoryStore("/avatars"))
	ctx := context.Background()
	if _, err := svc.RegisterPatient(ctx, registerForm("alice@example.com")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		form LoginForm
		msg  string
	}{
		{"missing role", LoginForm{Email: "alice@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass"}, "Please Provide All Details!"},
		{"mismatch", LoginForm{Email: "alice@example.com", Password: "s3cret-pass", ConfirmPassword: "other-pass", Role: models.RolePatient}, msgPasswordsDiffer},
		{"unknown email", LoginForm{Email: "nobody@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass", Role: models.RolePatient}, msgBadCredentials},
		{"wrong password", LoginForm{Email: "alice@example.com", Password: "wrong-pass", ConfirmPassword: "wrong-pass", Role: models.RolePatient}, msgBadCredentials},
		{"wrong role", LoginForm{Email: "alice@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass", Role: models.RoleAdmin}, "User With This Role Is Not Found!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.form)
			assertKind(t, err, KindValidation, tt.msg)
		})
	}
}

func TestResolveSession_BadTokens(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	svc := newAccounts(store.Users, blobstore.NewMemoryStore("/avatars"))

	_, err := svc.ResolveSession(ctx, "")
	assertKind(t, err, KindUnauthenticated, msgNotAuthed)

	_, err = svc.ResolveSession(ctx, "not-a-jwt")
	assertKind(t, err, KindUnauthenticated, msgTokenInvalid)

	expired := NewAccountService(store.Users, nil, utils.NewTokenManager("test-secret", -time.Minute), zerolog.Nop())
	reg, err := expired.RegisterPatient(ctx, registerForm("alice@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.ResolveSession(ctx, reg.Token)
	assertKind(t, err, KindUnauthenticated, msgTokenExpired)

	// A valid token for an account that no longer exists.
	fresh, err := svc.Login(ctx, LoginForm{Email: "alice@example.com", Password: "s3cret-pass", ConfirmPassword: "s3cret-pass", Role: models.RolePatient})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Users.Delete(ctx, reg.User.ID); err != nil {
		t.Fatal(err)
	}
	_, err = svc.ResolveSession(ctx, fresh.Token)
	assertKind(t, err, KindUnauthenticated, msgNotAuthed)
}

func adminSession(t *testing.T, svc *AccountService) *Session {
	t.Helper()
	admin, err := svc.CreateAdmin(context.Background(), registerForm("root@hospital.test"))
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return &Session{Role: models.RoleAdmin, SubjectID: admin.ID, Email: admin.Email}
}

func TestAddDoctor(t *testing.T) {
	store := repository.NewMemoryStore()
	blobs := blobstore.NewMemoryStore("/avatars")
	svc := newAccounts(store.Users, blobs)
	ctx := context.Background()
	admin := adminSession(t, svc)

	doc, err := svc.AddDoctor(ctx, admin, doctorForm("jane@hospital.test"), pngAvatar())
	if err != nil {
		t.Fatalf("add doctor: %v", err)
	}
	if doc.Role != models.RoleDoctor || doc.DoctorDepartment != "Cardiology" {
		t.Errorf("unexpected doctor %+v", doc)
	}
	if doc.DocAvatar == nil || doc.DocAvatar.URL != "/avatars/"+doc.DocAvatar.PublicID {
		t.Fatalf("unexpected avatar %+v", doc.DocAvatar)
	}
	rc, obj, err := svc.OpenAvatar(ctx, doc.DocAvatar.PublicID)
	if err != nil {
		t.Fatalf("open avatar: %v", err)
	}
	rc.Close()
	if obj.ContentType != "image/png" {
		t.Errorf("unexpected content type %s", obj.ContentType)
	}

	doctors, err := svc.ListDoctors(ctx)
	if err != nil || len(doctors) != 1 {
		t.Fatalf("list doctors: %v %v", err, doctors)
	}

	_, err = svc.AddDoctor(ctx, admin, doctorForm("other@hospital.test"), nil)
	assertKind(t, err, KindValidation, msgAvatarRequired)

	gif := &Avatar{FileName: "jane.gif", ContentType: "image/gif", Content: strings.NewReader("gif")}
	_, err = svc.AddDoctor(ctx, admin, doctorForm("other@hospital.test"), gif)
	assertKind(t, err, KindValidation, msgAvatarFormat)

	noDept := doctorForm("other@hospital.test")
	noDept.DoctorDepartment = ""
	_, err = svc.AddDoctor(ctx, admin, noDept, pngAvatar())
	assertKind(t, err, KindValidation, "Please Provide Full Details")

	badDept := doctorForm("other@hospital.test")
	badDept.DoctorDepartment = "Surgery"
	_, err = svc.AddDoctor(ctx, admin, badDept, pngAvatar())
	assertKind(t, err, KindValidation, "Invalid Doctor Department!")

	_, err = svc.AddDoctor(ctx, admin, doctorForm("jane@hospital.test"), pngAvatar())
	assertKind(t, err, KindConflict, "Doctor With This Email Already Exist!")

	_, err = svc.AddDoctor(ctx, &Session{Role: models.RolePatient}, doctorForm("x@hospital.test"), pngAvatar())
	assertKind(t, err, KindForbidden, "")

	if blobs.Len() != 1 {
		t.Errorf("rejected requests must not leave avatars behind, have %d", blobs.Len())
	}
}

// racyUsers reports a duplicate email on insert, as the unique index does
// when two registrations race.
type racyUsers struct {
	*repository.MemoryUsers
}

func (racyUsers) Create(context.Context, *models.User) error {
	return &repository.DuplicateError{Field: "email"}
}

func TestAddDoctor_RemovesAvatarWhenInsertFails(t *testing.T) {
	store := repository.NewMemoryStore()
	blobs := blobstore.NewMemoryStore("/avatars")
	svc := newAccounts(racyUsers{store.Users}, blobs)
	admin := &Session{Role: models.RoleAdmin}

	_, err := svc.AddDoctor(context.Background(), admin, doctorForm("jane@hospital.test"), pngAvatar())
	assertKind(t, err, KindConflict, msgDuplicateEmail)
	if blobs.Len() != 0 {
		t.Errorf("expected avatar to be removed, %d left", blobs.Len())
	}
}

func TestUpdateAndDeleteDoctor(t *testing.T) {
	store := repository.NewMemoryStore()
	blobs := blobstore.NewMemoryStore("/avatars")
	svc := newAccounts(store.Users, blobs)
	ctx := context.Background()
	admin := adminSession(t, svc)

	doc, err := svc.AddDoctor(ctx, admin, doctorForm("jane@hospital.test"), pngAvatar())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateDoctor(ctx, admin, doc.ID.Hex(), DoctorUpdate{
		LastName:         strPtr("Smith"),
		DoctorDepartment: strPtr("Neurology"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LastName != "Smith" || updated.DoctorDepartment != "Neurology" || updated.FirstName != "Jane" {
		t.Errorf("unexpected update result %+v", updated)
	}

	_, err = svc.UpdateDoctor(ctx, admin, doc.ID.Hex(), DoctorUpdate{DoctorDepartment: strPtr("Surgery")})
	assertKind(t, err, KindValidation, "Invalid Doctor Department!")

	_, err = svc.UpdateDoctor(ctx, admin, admin.SubjectID.Hex(), DoctorUpdate{LastName: strPtr("Smith")})
	assertKind(t, err, KindValidation, msgNotADoctor)

	err = svc.DeleteDoctor(ctx, admin, admin.SubjectID.Hex())
	assertKind(t, err, KindValidation, msgNotADoctor)

	if err := svc.DeleteDoctor(ctx, admin, doc.ID.Hex()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if blobs.Len() != 0 {
		t.Error("expected avatar to be deleted with the doctor")
	}
	err = svc.DeleteDoctor(ctx, admin, doc.ID.Hex())
	assertKind(t, err, KindNotFound, msgDoctorMissing)

	_, _, err = svc.OpenAvatar(ctx, doc.DocAvatar.PublicID)
	assertKind(t, err, KindNotFound, msgAvatarNotFound)
}

func TestAddAdmin_RequiresAdmin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAccounts(store.Users, blobstore.NewMemoryStore("/avatars"))
	ctx := context.Background()

	_, err := svc.AddAdmin(ctx, &Session{Role: models.RolePatient}, registerForm("root@hospital.test"))
	assertKind(t, err, KindForbidden, "")

	admin := adminSession(t, svc)
	added, err := svc.AddAdmin(ctx, admin, registerForm("second@hospital.test"))
	if err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if added.Role != models.RoleAdmin {
		t.Errorf("expected Admin, got %s", added.Role)
	}
	if n, _ := store.Users.CountByRole(ctx, models.RoleAdmin); n != 2 {
		t.Errorf("expected 2 admins, got %d", n)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("foreign errors are internal")
	}
	wrapped := errors.Join(errors.New("context"), conflictError(MsgSlotTaken))
	if KindOf(wrapped) != KindConflict {
		t.Error("expected wrapped conflict to be detected")
	}
}
