package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/model"
)

// ErrAdminOnly is returned by LoginAdmin for a non-admin account.
var ErrAdminOnly = errors.New("Access denied. This login is for administrators only.")

// Authenticator is the part of the identity provider the services use.
type Authenticator interface {
	SignUp(ctx context.Context, req identity.SignUpRequest) (*identity.Identity, error)
	SignIn(ctx context.Context, email, password string) (*identity.SignedIn, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*identity.Identity, error)
}

// ProfileStore persists users/{id} profiles.
type ProfileStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type StudentSignUp struct {
	IDNumber        string `json:"idNumber" validate:"notblank"`
	FirstName       string `json:"firstName" validate:"notblank"`
	LastName        string `json:"lastName" validate:"notblank"`
	Email           string `json:"email" validate:"notblank"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type AdminSignUp struct {
	FirstName       string `json:"firstName" validate:"notblank"`
	LastName        string `json:"lastName" validate:"notblank"`
	Email           string `json:"email" validate:"notblank"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type StudentLogin struct {
	IDNumber string `json:"idNumber" validate:"notblank"`
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type AdminLogin struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// AccountService registers and signs in students and administrators. Every
// account has an identity record and a profile document with the same id.
type AccountService struct {
	auth     Authenticator
	profiles ProfileStore
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAccountService(auth Authenticator, profiles ProfileStore, logger *zap.Logger) *AccountService {
	return &AccountService{
		auth:     auth,
		profiles: profiles,
		validate: newValidator(),
		logger:   logger,
	}
}

// RegisterStudent creates a student account and profile.
func (s *AccountService) RegisterStudent(ctx context.Context, form StudentSignUp) (*model.User, error) {
	if err := checkRequired(s.validate, form); err != nil {
		return nil, err
	}
	if err := checkPasswords(form.Password, form.ConfirmPassword); err != nil {
		return nil, err
	}

	return s.register(ctx, form.Email, form.Password, &model.User{
		IDNumber:  strings.TrimSpace(form.IDNumber),
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
	})
}

// RegisterAdmin creates an administrator account and profile.
func (s *AccountService) RegisterAdmin(ctx context.Context, form AdminSignUp) (*model.User, error) {
	if err := checkRequired(s.validate, form); err != nil {
		return nil, err
	}
	if err := checkPasswords(form.Password, form.ConfirmPassword); err != nil {
		return nil, err
	}

	return s.register(ctx, form.Email, form.Password, &model.User{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		IsAdmin:   true,
	})
}

func (s *AccountService) register(ctx context.Context, email, password string, profile *model.User) (*model.User, error) {
	id, err := s.auth.SignUp(ctx, identity.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: profile.FullName(),
		Admin:       profile.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	profile.ID = id.UID
	profile.Email = id.Email
	if err := s.profiles.Create(ctx, profile); err != nil {
		// the account exists without a profile; bookings fall back to the
		// display name until it is repaired
		s.logger.Error("Failed to create profile",
			zap.String("uid", id.UID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info("New user registered",
		zap.String("uid", profile.ID),
		zap.Bool("admin", profile.IsAdmin),
	)
	return profile, nil
}

// LoginStudent signs a student in. The ID number is required by the form
// but not checked against the profile.
func (s *AccountService) LoginStudent(ctx context.Context, form StudentLogin) (*identity.SignedIn, error) {
	if err := checkRequired(s.validate, form); err != nil {
		return nil, err
	}
	return s.auth.SignIn(ctx, form.Email, form.Password)
}

// LoginAdmin signs in and keeps the session only when the profile carries
// the admin flag. Otherwise the fresh session is revoked and ErrAdminOnly
// returned.
func (s *AccountService) LoginAdmin(ctx context.Context, form AdminLogin) (*identity.SignedIn, error) {
	if err := checkRequired(s.validate, form); err != nil {
		return nil, err
	}

	signed, err := s.auth.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, signed.Identity.UID)
	if err != nil {
		s.signOutQuietly(ctx, signed.Token)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil || !profile.IsAdmin {
		s.logger.Warn("Non-admin tried the admin login", zap.String("uid", signed.Identity.UID))
		s.signOutQuietly(ctx, signed.Token)
		return nil, ErrAdminOnly
	}

	return signed, nil
}

func (s *AccountService) signOutQuietly(ctx context.Context, token string) {
	if err := s.auth.SignOut(ctx, token); err != nil {
		s.logger.Error("Failed to sign out", zap.Error(err))
	}
}

// Logout revokes the session behind token.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.auth.SignOut(ctx, token)
}

// Resolve authenticates token and loads the caller's profile, which may be
// nil. The admin flag is taken from the profile.
func (s *AccountService) Resolve(ctx context.Context, token string) (*identity.Identity, *model.User, error) {
	id, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.profiles.GetByID(ctx, id.UID)
	if err != nil {
		return nil, nil, fmt.Errorf("get profile: %w", err)
	}
	id.IsAdmin = profile != nil && profile.IsAdmin
	return id, profile, nil
}
