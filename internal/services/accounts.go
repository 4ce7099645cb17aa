package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/hospital-api/internal/blobstore"
	"github.com/harentsoaR/hospital-api/internal/models"
	"github.com/harentsoaR/hospital-api/internal/repository"
	"github.com/harentsoaR/hospital-api/internal/utils"
)

const (
	msgTokenExpired    = "Json Web Token is Expired, Try Again!"
	msgTokenInvalid    = "Json Web Token is invalid, Try Again!"
	msgNotAuthed       = "User is not authenticated!"
	msgBadCredentials  = "Invalid Password Or Email!"
	msgDoctorMissing   = "Doctor not found!"
	msgNotADoctor      = "The user is not a doctor!"
	msgDuplicateEmail  = "Duplicate email Entered"
	msgAvatarRequired  = "Doctor Avatar Required!"
	msgAvatarFormat    = "File Format Not Supported!"
	msgAvatarTooLarge  = "Doctor Avatar Is Too Large!"
	msgAvatarNotFound  = "Avatar Not Found!"
	msgPasswordsDiffer = "Password Do Not Match!"
)

// RegisterForm carries the fields shared by every account type.
type RegisterForm struct {
	FirstName string `json:"firstName" form:"firstName" validate:"min=3"`
	LastName  string `json:"lastName" form:"lastName" validate:"min=3"`
	Email     string `json:"email" form:"email" validate:"email"`
	Phone     string `json:"phone" form:"phone" validate:"len=11,digits"`
	NIC       string `json:"nic" form:"nic" validate:"len=13,digits"`
	DOB       string `json:"dob" form:"dob" validate:"calendardate"`
	Gender    string `json:"gender" form:"gender" validate:"oneof=Male Female"`
	Password  string `json:"password" form:"password" validate:"min=8"`
}

func (f *RegisterForm) trim() {
	for _, p := range []*string{&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.NIC, &f.DOB, &f.Gender} {
		*p = strings.TrimSpace(*p)
	}
}

func (f *RegisterForm) complete() bool {
	return allSet(f.FirstName, f.LastName, f.Email, f.Phone, f.NIC, f.DOB, f.Gender, f.Password)
}

// DoctorForm is the multipart body of POST /user/doctor/addnew.
type DoctorForm struct {
	RegisterForm
	DoctorDepartment string `json:"doctorDepartment" form:"doctorDepartment" validate:"department"`
}

// Avatar is an uploaded picture waiting to be stored.
type Avatar struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

type LoginForm struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

// DoctorUpdate is the admin edit payload for a doctor profile.
type DoctorUpdate struct {
	FirstName        *string `json:"firstName" validate:"omitempty,min=3"`
	LastName         *string `json:"lastName" validate:"omitempty,min=3"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone" validate:"omitempty,len=11,digits"`
	NIC              *string `json:"nic" validate:"omitempty,len=13,digits"`
	DOB              *string `json:"dob" validate:"omitempty,calendardate"`
	Gender           *string `json:"gender" validate:"omitempty,oneof=Male Female"`
	DoctorDepartment *string `json:"doctorDepartment" validate:"omitempty,department"`
}

func (u DoctorUpdate) patch() repository.UserPatch {
	p := repository.UserPatch{
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		Phone:            u.Phone,
		NIC:              u.NIC,
		Gender:           u.Gender,
		DoctorDepartment: u.DoctorDepartment,
	}
	if u.DOB != nil {
		if dob, err := parseDate(*u.DOB); err == nil {
			p.DOB = &dob
		}
	}
	return p
}

// Authenticated is the outcome of a login or registration.
type Authenticated struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AccountService owns users: registration, login, admin and doctor
// management, and turning session tokens back into a Session.
type AccountService struct {
	users    repository.UserRepository
	avatars  blobstore.Store
	tokens   *utils.TokenManager
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAccountService(users repository.UserRepository, avatars blobstore.Store, tokens *utils.TokenManager, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		avatars:  avatars,
		tokens:   tokens,
		validate: NewValidator(),
		log:      log,
	}
}

func (s *AccountService) newUser(ctx context.Context, form RegisterForm, role string) (*models.User, error) {
	if err := s.validate.Struct(&form); err != nil {
		return nil, describe(err)
	}
	dob, _ := parseDate(form.DOB)

	existing, err := s.users.FindByEmail(ctx, form.Email)
	switch {
	case err == nil:
		return nil, conflictError(fmt.Sprintf("%s With This Email Already Exist!", existing.Role))
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		NIC:       form.NIC,
		DOB:       dob,
		Gender:    form.Gender,
		Password:  hash,
		Role:      role,
	}, nil
}

func (s *AccountService) insert(ctx context.Context, u *models.User) error {
	if err := s.users.Create(ctx, u); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return conflictError(msgDuplicateEmail)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *AccountService) issue(u *models.User) (*Authenticated, error) {
	token, exp, err := s.tokens.GenerateJWT(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Authenticated{User: u, Token: token, ExpiresAt: exp}, nil
}

// RegisterPatient creates a Patient account and signs it in.
func (s *AccountService) RegisterPatient(ctx context.Context, form RegisterForm) (*Authenticated, error) {
	form.trim()
	if !form.complete() {
		return nil, validationError(MsgIncompleteForm)
	}
	u, err := s.newUser(ctx, form, models.RolePatient)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login checks credentials and that the account holds the requested role.
func (s *AccountService) Login(ctx context.Context, form LoginForm) (*Authenticated, error) {
	form.Email = strings.TrimSpace(form.Email)
	if !allSet(form.Email, form.Password, form.ConfirmPassword, form.Role) {
		return nil, validationError("Please Provide All Details!")
	}
	if form.Password != form.ConfirmPassword {
		return nil, validationError(msgPasswordsDiffer)
	}
	u, err := s.users.FindByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError(msgBadCredentials)
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !utils.CheckPasswordHash(form.Password, u.Password) {
		return nil, validationError(msgBadCredentials)
	}
	if form.Role != u.Role {
		return nil, validationError("User With This Role Is Not Found!")
	}
	return s.issue(u)
}

// AddAdmin registers another administrator on behalf of an admin.
func (s *AccountService) AddAdmin(ctx context.Context, sess *Session, form RegisterForm) (*models.User, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.CreateAdmin(ctx, form)
}

// CreateAdmin registers an administrator without a session. It backs the
// create-admin command used to bootstrap a fresh database.
func (s *AccountService) CreateAdmin(ctx context.Context, form RegisterForm) (*models.User, error) {
	form.trim()
	if !form.complete() {
		return nil, validationError(MsgIncompleteForm)
	}
	u, err := s.newUser(ctx, form, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AddDoctor registers a doctor and stores the avatar. The avatar is removed
// again if the account cannot be created.
func (s *AccountService) AddDoctor(ctx context.Context, sess *Session, form DoctorForm, avatar *Avatar) (*models.User, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	if avatar == nil || avatar.Content == nil {
		return nil, validationError(msgAvatarRequired)
	}
	if !blobstore.AllowedContentTypes[avatar.ContentType] {
		return nil, validationError(msgAvatarFormat)
	}
	form.trim()
	form.DoctorDepartment = strings.TrimSpace(form.DoctorDepartment)
	if !form.complete() || form.DoctorDepartment == "" {
		return nil, validationError("Please Provide Full Details")
	}
	if err := s.validate.Struct(&form); err != nil {
		return nil, describe(err)
	}
	u, err := s.newUser(ctx, form.RegisterForm, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	u.DoctorDepartment = form.DoctorDepartment

	obj, err := s.avatars.Upload(ctx, avatar.FileName, avatar.ContentType, avatar.Content)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrInvalidContentType):
			return nil, validationError(msgAvatarFormat)
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return nil, validationError(msgAvatarTooLarge)
		case errors.Is(err, blobstore.ErrMissingFileName):
			return nil, validationError(msgAvatarRequired)
		}
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	u.DocAvatar = &models.Avatar{PublicID: obj.ID, URL: obj.URL}

	if err := s.insert(ctx, u); err != nil {
		if derr := s.avatars.Delete(ctx, obj.ID); derr != nil {
			s.log.Warn().Err(derr).Str("blob_id", obj.ID).Msg("orphaned doctor avatar")
		}
		return nil, err
	}
	return u, nil
}

// ListDoctors returns every doctor account.
func (s *AccountService) ListDoctors(ctx context.Context) ([]models.User, error) {
	doctors, err := s.users.ListByRole(ctx, models.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if doctors == nil {
		doctors = []models.User{}
	}
	return doctors, nil
}

func (s *AccountService) loadDoctor(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError(msgDoctorMissing)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if u.Role != models.RoleDoctor {
		return nil, validationError(msgNotADoctor)
	}
	return u, nil
}

// UpdateDoctor edits a doctor profile. Existing appointments keep the doctor
// name they were booked with.
func (s *AccountService) UpdateDoctor(ctx context.Context, sess *Session, id string, upd DoctorUpdate) (*models.User, error) {
	if err := sess.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&upd); err != nil {
		return nil, describe(err)
	}
	doctor, err := s.loadDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := upd.patch()
	if patch.IsEmpty() {
		return doctor, nil
	}
	updated, err := s.users.Update(ctx, doctor.ID, patch)
	if err != nil {
		var dup *repository.DuplicateError
		switch {
		case errors.As(err, &dup):
			return nil, conflictError(msgDuplicateEmail)
		case errors.Is(err, repository.ErrNotFound):
			return nil, notFoundError(msgDoctorMissing)
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	return updated, nil
}

// DeleteDoctor removes a doctor account and its avatar.
func (s *AccountService) DeleteDoctor(ctx context.Context, sess *Session, id string) error {
	if err := sess.require(models.RoleAdmin); err != nil {
		return err
	}
	doctor, err := s.loadDoctor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, doctor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(msgDoctorMissing)
		}
		return fmt.Errorf("delete doctor: %w", err)
	}
	if doctor.DocAvatar != nil {
		if err := s.avatars.Delete(ctx, doctor.DocAvatar.PublicID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.log.Warn().Err(err).Str("blob_id", doctor.DocAvatar.PublicID).Msg("doctor avatar not removed")
		}
	}
	return nil
}

// OpenAvatar streams a stored doctor avatar.
func (s *AccountService) OpenAvatar(ctx context.Context, publicID string) (io.ReadCloser, *blobstore.Object, error) {
	rc, obj, err := s.avatars.Open(ctx, publicID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, nil, notFoundError(msgAvatarNotFound)
		}
		return nil, nil, fmt.Errorf("open avatar: %w", err)
	}
	return rc, obj, nil
}

// GetUser returns the account behind the session, which must hold role.
func (s *AccountService) GetUser(ctx context.Context, sess *Session, role string) (*models.User, error) {
	if err := sess.require(role); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, sess.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindUnauthenticated, Message: msgNotAuthed}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// ResolveSession verifies a session token and loads its user. The role is
// taken from the stored account, not from the token.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, &Error{Kind: KindUnauthenticated, Message: msgNotAuthed}
	}
	claims, err := s.tokens.ValidateJWT(token)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrTokenExpired):
			return nil, &Error{Kind: KindUnauthenticated, Message: msgTokenExpired}
		case errors.Is(err, utils.ErrNoSecret):
			return nil, err
		}
		return nil, &Error{Kind: KindUnauthenticated, Message: msgTokenInvalid}
	}
	oid, err := parseID(claims.UserID)
	if err != nil {
		return nil, &Error{Kind: KindUnauthenticated, Message: msgTokenInvalid}
	}
	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindUnauthenticated, Message: msgNotAuthed}
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	sess := &Session{Role: u.Role, SubjectID: u.ID, Email: u.Email}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
