// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/pdiddy/florafind/internal/logger"
	"github.com/pdiddy/florafind/pkg/types"
)

// MinPasswordLength is the shortest password Register and ResetPassword accept.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

const (
	defaultSessionTTL = 24 * time.Hour
	defaultResetTTL   = time.Hour
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrResetTokenInvalid  = errors.New("password reset link is invalid or has expired")
	ErrInvalidToken       = errors.New("session token is invalid or has expired")
	ErrUnknownPlan        = errors.New("unknown subscription plan")
)

// Service implements account operations on top of a Store.
type Service struct {
	store      *Store
	mailer     Mailer
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	baseURL    string
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService returns a Service. An empty cfg.SessionSecret is replaced by a
// random one, so sessions do not survive a restart.
func NewService(store *Store, cfg types.AuthConfig, mailer Mailer, log logrus.FieldLogger) *Service {
	log = logger.OrDiscard(log)

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("generating session secret: %v", err))
		}
		log.Warn("no session secret configured; using an ephemeral one")
	}
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}

	s := &Service{
		store:      store,
		mailer:     mailer,
		secret:     secret,
		sessionTTL: cfg.SessionTTL,
		resetTTL:   cfg.ResetTTL,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        log,
		now:        time.Now,
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = defaultSessionTTL
	}
	if s.resetTTL <= 0 {
		s.resetTTL = defaultResetTTL
	}
	return s
}

// Register creates an account and returns it.
func (s *Service) Register(ctx context.Context, email, password string) (*types.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &types.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
		Plan:         types.PlanNone,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", u.ID).Info("account registered")
	return u, nil
}

// Login checks credentials and returns a signed session token. Every
// credential failure is reported as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(u *types.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a session token and loads its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*types.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	u, err := s.store.UserByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

// RequestPasswordReset mails a single-use reset link to email. An unknown
// address succeeds without sending anything.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.log.Debug("password reset for unknown email ignored")
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.store.CreateReset(ctx, token, u.ID, s.now().Add(s.resetTTL)); err != nil {
		return err
	}

	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, u.Email, link); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	userID, err := s.store.ConsumeReset(ctx, token, s.now())
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("password reset")
	return nil
}

// StartTrial subscribes the user to plan with a free trial. No payment is
// taken.
func (s *Service) StartTrial(ctx context.Context, userID string, plan types.PlanID) (*types.User, error) {
	if _, ok := types.LookupPlan(plan); !ok {
		return nil, ErrUnknownPlan
	}
	ends := s.now().UTC().AddDate(0, 0, types.TrialDays)
	if err := s.store.UpdatePlan(ctx, userID, plan, ends); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).Info("trial started")
	return s.store.UserByID(ctx, userID)
}

// SessionTTL is the lifetime of issued tokens.
func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

func checkPassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrWeakPassword
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
