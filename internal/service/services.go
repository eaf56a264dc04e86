package service

import (
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// Services aggregates all application services
type Services struct {
	WebAuthn         *WebAuthnService
	Session          *SessionService
	Blog             *BlogService
	ChallengeCleanup *ChallengeCleanupWorker
}

// NewServices creates a new Services instance
func NewServices(store storage.Store, cfg *config.Config, logger *zap.Logger) *Services {
	return &Services{
		WebAuthn:         NewWebAuthnService(store, cfg, logger),
		Session:          NewSessionService(store, cfg, logger),
		Blog:             NewBlogService(store, cfg, logger),
		ChallengeCleanup: NewChallengeCleanupWorker(cfg.Cleanup, store, logger),
	}
}

// Start starts background workers
func (s *Services) Start() {
	if s.ChallengeCleanup != nil {
		s.ChallengeCleanup.Start()
	}
}

// Stop gracefully stops background workers
func (s *Services) Stop() {
	if s.ChallengeCleanup != nil {
		s.ChallengeCleanup.Stop()
	}
}
