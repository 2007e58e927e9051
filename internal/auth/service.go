// Package auth is the identity service: credentials, sessions' user lookups,
// password reset links, the admin page guard and role permissions.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/validate"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

const (
	MinPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// ResetMailer delivers password reset links.
type ResetMailer interface {
	PasswordReset(ctx context.Context, to, name, link string) error
}

type Service struct {
	repos    *repository.Repos
	resetKey []byte
	baseURL  string
	mailer   ResetMailer
	now      func() time.Time
}

func NewService(repos *repository.Repos, resetKey []byte, baseURL string, mailer ResetMailer) *Service {
	return &Service{
		repos:    repos,
		resetKey: resetKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		mailer:   mailer,
		now:      time.Now,
	}
}

// SignIn checks the password and returns the user's profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.User, error) {
	cred, err := s.repos.Credentials.FindByEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("sign in: %w", err)
	}
	if cred == nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return s.User(ctx, cred.ID)
}

// User loads the profile for uid. Accounts without a profile document come
// back as a bare customer.
func (s *Service) User(ctx context.Context, uid string) (models.User, error) {
	u, err := s.repos.Users.Get(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		cred, cerr := s.repos.Credentials.Get(ctx, uid)
		if cerr != nil {
			return models.User{}, cerr
		}
		return models.User{ID: uid, Email: cred.Email, Role: models.RoleCustomer}, nil
	}
	if err != nil {
		return models.User{}, err
	}
	u.Role = models.NormalizeRole(u.Role)
	return u, nil
}

type RegisterInput struct {
	FirstName       string `json:"firstName" validate:"required,personname"`
	LastName        string `json:"lastName" validate:"required,personname"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,ngphone"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Terms           bool   `json:"terms" validate:"accepted"`
}

// Register creates the credential and the customer profile together.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	if err := validate.Struct(in); err != nil {
		return models.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, err := s.repos.Credentials.FindByEmail(ctx, email)
	if err != nil {
		return models.User{}, fmt.Errorf("register: %w", err)
	}
	if existing != nil {
		return models.User{}, ErrEmailInUse
	}
	return s.CreateAccount(ctx, models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		Role:      models.RoleCustomer,
	}, in.Password)
}

// CreateAccount writes a credential and profile for u in one batch.
// The caller has already validated the input.
func (s *Service) CreateAccount(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Role = models.NormalizeRole(u.Role)

	b := docstore.NewBatch().
		Set(models.CollectionUsers, u.ID, u, false).
		Set(models.CollectionCredentials, u.ID, models.Credential{Email: u.Email, PasswordHash: string(hash)}, false)
	if err := s.repos.Users.Store.Commit(ctx, b); err != nil {
		return models.User{}, fmt.Errorf("create account: %w", err)
	}
	slog.Info("Account created", "user_id", u.ID, "role", string(u.Role))
	return s.User(ctx, u.ID)
}

// ChangePassword re-authenticates with the current password before writing the new one.
func (s *Service) ChangePassword(ctx context.Context, uid, current, next, confirm string) error {
	if len(next) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	cred, err := s.repos.Credentials.Get(ctx, uid)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, uid, next)
}

func (s *Service) setPassword(ctx context.Context, uid, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repos.Credentials.Update(ctx, uid, docstore.Fields{"passwordHash": string(hash)})
}

type resetClaims struct {
	// Fingerprint of the hash the token was issued against, so a used or
	// superseded link stops working once the password changes.
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// RequestPasswordReset mails a reset link. Unknown addresses get no mail
// and no error, so the response does not reveal which emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	cred, err := s.repos.Credentials.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	if cred == nil {
		slog.Info("Password reset requested for unknown email")
		return nil
	}
	token, err := s.resetToken(*cred)
	if err != nil {
		return err
	}
	name := cred.Email
	if u, err := s.repos.Users.Get(ctx, cred.ID); err == nil && u.FirstName != "" {
		name = u.FirstName
	}
	link := s.baseURL + "/reset-password?token=" + token
	return s.mailer.PasswordReset(ctx, cred.Email, name, link)
}

func (s *Service) resetToken(cred models.Credential) (string, error) {
	now := s.now()
	claims := resetClaims{
		Fingerprint: fingerprint(cred.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(resetTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetKey)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return token, nil
}

// ResetPassword sets a new password for the account named in token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	claims := &resetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.resetKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return ErrInvalidToken
	}
	cred, err := s.repos.Credentials.Get(ctx, claims.Subject)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if fingerprint(cred.PasswordHash) != claims.Fingerprint {
		return ErrInvalidToken
	}
	if err := s.setPassword(ctx, cred.ID, password); err != nil {
		return err
	}
	slog.Info("Password reset", "user_id", cred.ID)
	return nil
}

func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
