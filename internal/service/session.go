package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// ErrStepUpRequired is returned when a privileged call carries no
// valid elevated session.
var ErrStepUpRequired = errors.New("passkey verification required")

// SessionService issues, validates, and revokes step-up sessions. A
// session proves a recent passkey authentication and is required on
// top of the base identity for every privileged operation.
type SessionService struct {
	store  storage.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(store storage.Store, cfg *config.Config, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("session-service"),
	}
}

// TTL returns the configured session lifetime
func (s *SessionService) TTL() time.Duration {
	return time.Duration(s.cfg.Admin.SessionTTLSeconds) * time.Second
}

// Issue mints a new elevated session for the email
func (s *SessionService) Issue(ctx context.Context, email string) (*domain.Session, error) {
	session := &domain.Session{
		ID:        uuid.NewString(),
		Email:     email,
		ExpiresAt: time.Now().Add(s.TTL()),
	}

	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("Issued step-up session",
		zap.String("email", email),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return session, nil
}

// Validate checks a claimed session id for the email. The "dev"
// sentinel short-circuits the lookup outside production and never
// validates in production. Sessions are not renewed on use; an expired
// or missing session reports ErrStepUpRequired. Datastore failures
// also fail closed as ErrStepUpRequired.
func (s *SessionService) Validate(ctx context.Context, email, sessionID string) error {
	if sessionID == "" {
		return ErrStepUpRequired
	}

	if sessionID == domain.DevSessionID {
		if s.cfg.IsProduction() {
			return ErrStepUpRequired
		}
		return nil
	}

	session, err := s.store.Sessions().Get(ctx, email, sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("Session lookup failed", zap.Error(err))
		}
		return ErrStepUpRequired
	}

	if !session.ValidAt(time.Now()) {
		return ErrStepUpRequired
	}

	return nil
}

// Revoke is the account-wide reset: it removes every credential,
// pending challenge, and session for the email. Other emails are
// untouched.
func (s *SessionService) Revoke(ctx context.Context, email string) error {
	if err := s.store.Credentials().DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	if err := s.store.Challenges().DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to delete challenges: %w", err)
	}
	if err := s.store.Sessions().DeleteByEmail(ctx, email); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	s.logger.Info("Revoked passkeys and sessions", zap.String("email", email))
	return nil
}
