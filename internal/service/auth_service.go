package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrSessionExpired     = errors.New("session is invalid or expired")
	ErrInvalidToken       = errors.New("reset token is invalid or expired")
	ErrInvalidRequest     = errors.New("invalid request")
)

// Sizing of the registered-email filter.
const (
	emailFilterCapacity = 100_000
	emailFilterFPRate   = 0.01
)

// Notifier delivers password reset tokens to users.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user *models.User, token string) error
}

// AuthOptions tunes AuthService.
type AuthOptions struct {
	SessionTTL     time.Duration
	ResetTTL       time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost     int
	// ExclusiveUsers is set when this service is the only writer of the
	// user store. Only then can the email filter rule out unknown
	// addresses; accounts created by another replica never reach it.
	ExclusiveUsers bool
}

// AuthService handles accounts, sessions and password resets.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	notifier Notifier
	opts     AuthOptions
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time

	// emails holds every address registered through this service. With
	// ExclusiveUsers a miss means the address is unknown and the store
	// lookup can be skipped.
	mu     sync.RWMutex
	emails *bloom.BloomFilter
}

// NewAuthService creates the service and loads the registered-email filter.
func NewAuthService(ctx context.Context, users repository.UserRepository, sessions repository.SessionRepository,
	notifier Notifier, opts AuthOptions, logger *slog.Logger) (*AuthService, error) {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	s := &AuthService{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		opts:     opts,
		validate: validation.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		emails:   bloom.NewWithEstimates(emailFilterCapacity, emailFilterFPRate),
	}

	emails, err := users.ListEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registered emails: %w", err)
	}
	for _, e := range emails {
		s.emails.AddString(e)
	}
	logger.Debug("email filter loaded", "count", len(emails))

	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mayBeRegistered returns false only when email is certainly not in the
// user store.
func (s *AuthService) mayBeRegistered(email string) bool {
	if !s.opts.ExclusiveUsers {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emails.TestString(email)
}

func (s *AuthService) rememberEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails.AddString(email)
}

func (s *AuthService) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}
	return nil
}

func (s *AuthService) newSession(ctx context.Context, userID string) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.rememberEmail(email)
	return user, nil
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return nil, nil, err
	}

	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, models.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, session, nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return nil, nil, err
	}

	if !s.mayBeRegistered(req.Email) {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login failed", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.newSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return user, session, nil
}

// Logout ends a session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Validate resolves a session to its user. Expired sessions are removed.
func (s *AuthService) Validate(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, ErrSessionExpired
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrSessionExpired
	}
	return user, err
}

// ForgotPassword issues a reset token for email. Unknown addresses succeed
// without doing anything so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return err
	}

	if !s.mayBeRegistered(req.Email) {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := &models.ResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.opts.ResetTTL),
	}
	if err := s.sessions.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	return s.notifier.SendPasswordReset(ctx, user, token.Token)
}

// ResetPassword sets a new password using a reset token. Tokens are single
// use.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.check(req); err != nil {
		return err
	}

	token, err := s.sessions.ConsumeResetToken(ctx, req.Token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !s.now().Before(token.ExpiresAt) {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	// Sessions opened with the old password must not outlive it.
	revoked, err := s.sessions.DeleteByUser(ctx, token.UserID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.Info("password reset", "user_id", token.UserID, "sessions_revoked", revoked)
	return nil
}

// PurgeExpiredSessions removes expired sessions and reset tokens.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// EnsureAdmin creates the bootstrap admin account if no account uses email.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", "user_id", existing.ID)
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.createUser(ctx, "admin", email, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin account created", "user_id", user.ID)
	return user, nil
}
