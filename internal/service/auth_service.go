package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"facilitymonitor/internal/config"
	"facilitymonitor/internal/models"
	"facilitymonitor/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers the password-reset link.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// ForgotPasswordMessage is returned whether or not the email belongs to an account.
const ForgotPasswordMessage = "If the email is registered, a password reset link has been sent"

// AuthService handles login and the password-reset flow.
type AuthService struct {
	users       repository.UserRepository
	resets      repository.ResetTokenStore
	tokens      *TokenIssuer
	mailer      Mailer
	frontendURL string
	resetTTL    time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

type AuthOption func(*AuthService)

// WithClock replaces time.Now, for expiry tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	users repository.UserRepository,
	resets repository.ResetTokenStore,
	tokens *TokenIssuer,
	mailer Mailer,
	frontendURL string,
	resetTTL time.Duration,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:       users,
		resets:      resets,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		resetTTL:    resetTTL,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	if username == "" || password == "" {
		return models.LoginResponse{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return models.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		return models.LoginResponse{}, err
	}
	return models.LoginResponse{Token: token, User: models.PublicUser{Username: u.Username}}, nil
}

// RequestPasswordReset stores a new reset token for the account owning email
// and mails the link. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.resets.SaveResetToken(ctx, u.ID, digest(token), now, now.Add(s.resetTTL)); err != nil {
		return err
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, email, link); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	s.logger.Info("password reset email sent", "user_id", u.ID)
	return nil
}

// ResetPassword sets a new password for the owner of token and invalidates it.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and new password are required", ErrInvalidInput)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.resets.ConsumeResetToken(ctx, digest(token), s.now(), hash)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResetTokenInvalid
	}
	return err
}

// EnsureSeedUser creates the configured account unless the username is taken.
func (s *AuthService) EnsureSeedUser(ctx context.Context, seed config.SeedUser) error {
	if !seed.Enabled() {
		return nil
	}
	_, err := s.users.FindByUsername(ctx, seed.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := HashPassword(seed.Password)
	if err != nil {
		return err
	}
	id, err := s.users.Create(ctx, models.User{Username: seed.Username, Email: seed.Email, PasswordHash: hash})
	if err != nil {
		return err
	}
	s.logger.Info("seed user created", "user_id", id, "username", seed.Username)
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// digest is what gets stored; the raw token only travels in the email.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
