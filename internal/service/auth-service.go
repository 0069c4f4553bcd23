// Package service holds the portal flows that combine backend calls with
// the local state stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alphaboutique/config"
	"alphaboutique/internal/domain"
	"alphaboutique/internal/state"

	"go.uber.org/zap"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingFields      = errors.New("please fill in all required fields")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrAccessDenied       = errors.New("access denied: admin role required")
	ErrNotLoggedIn        = errors.New("please log in first")
)

// AuthBackend is the part of the backend client the auth flows use
type AuthBackend interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.AuthResponse, error)
}

// SignupForm is what the registration screen collects
type SignupForm struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
	AdminCode       string `json:"admin_code,omitempty"`
	Phone           string `json:"phone,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty"`
	AltContact      string `json:"alt_contact,omitempty"`
}

// SignupResult reports whether signup also signed the user in. The admin
// portal only signs in when the backend issued a token.
type SignupResult struct {
	Profile  domain.UserProfile `json:"profile"`
	LoggedIn bool               `json:"logged_in"`
}

type AuthService struct {
	backend AuthBackend
	session *state.SessionStore
	admin   bool
	logger  *zap.Logger
}

func NewAuthService(backend AuthBackend, session *state.SessionStore, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		backend: backend,
		session: session,
		admin:   cfg.IsAdminPortal(),
		logger:  logger,
	}
}

// Login authenticates against the backend and records the session. The
// admin portal refuses non-admin accounts and leaves the session untouched.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.UserProfile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.UserProfile{}, ErrMissingCredentials
	}

	resp, err := s.backend.Login(ctx, domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Info("Login rejected", zap.String("email", email), zap.Error(err))
		return domain.UserProfile{}, fmt.Errorf("login: %w", err)
	}

	profile := resp.Profile()
	if profile.Email == "" {
		profile.Email = email
	}
	if s.admin && !profile.IsAdmin() {
		s.logger.Warn("Non-admin login attempt on admin portal", zap.String("email", email))
		return domain.UserProfile{}, ErrAccessDenied
	}

	s.session.Login(profile)
	return profile, nil
}

func (s *AuthService) Signup(ctx context.Context, form SignupForm) (SignupResult, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	if form.FirstName == "" || form.LastName == "" || form.Email == "" || form.Password == "" {
		return SignupResult{}, ErrMissingFields
	}
	if s.admin && strings.TrimSpace(form.AdminCode) == "" {
		return SignupResult{}, fmt.Errorf("%w: admin code", ErrMissingFields)
	}
	if !s.admin && form.Password != form.ConfirmPassword {
		return SignupResult{}, ErrPasswordMismatch
	}

	resp, err := s.backend.Signup(ctx, domain.SignupRequest{
		Email:       form.Email,
		Password:    form.Password,
		FirstName:   form.FirstName,
		LastName:    form.LastName,
		AdminCode:   form.AdminCode,
		Phone:       form.Phone,
		DateOfBirth: form.DateOfBirth,
		AltContact:  form.AltContact,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: %w", err)
	}

	if s.admin {
		return s.finishAdminSignup(resp)
	}

	profile := domain.UserProfile{
		Email:       form.Email,
		Name:        form.FirstName,
		Role:        domain.ParseRole(resp.Role),
		Phone:       form.Phone,
		DateOfBirth: form.DateOfBirth,
		AltContact:  form.AltContact,
	}
	s.session.Login(profile)
	s.logger.Info("User registered", zap.String("email", profile.Email), zap.String("role", string(profile.Role)))
	return SignupResult{Profile: profile, LoggedIn: true}, nil
}

func (s *AuthService) finishAdminSignup(resp *domain.AuthResponse) (SignupResult, error) {
	profile := resp.Profile()
	if !profile.IsAdmin() {
		return SignupResult{}, fmt.Errorf("%w: invalid admin code", ErrAccessDenied)
	}
	if resp.AccessToken == "" {
		s.logger.Info("Admin registered, sign in required", zap.String("email", profile.Email))
		return SignupResult{Profile: profile}, nil
	}
	s.session.Login(profile)
	return SignupResult{Profile: profile, LoggedIn: true}, nil
}

func (s *AuthService) Logout() {
	s.session.Logout()
}

// UpdateProfile edits the signed in user's profile fields
func (s *AuthService) UpdateProfile(update domain.ProfileUpdate) (domain.UserProfile, error) {
	if !s.session.IsLoggedIn() {
		return domain.UserProfile{}, ErrNotLoggedIn
	}
	s.session.UpdateProfile(update)
	return s.session.Get().Profile, nil
}

// Session returns the current session
func (s *AuthService) Session() domain.SessionState {
	return s.session.Get()
}
