package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// ChallengeCleanupWorker periodically deletes expired ceremony
// challenges so abandoned ceremonies do not linger in the datastore.
type ChallengeCleanupWorker struct {
	config config.CleanupConfig
	store  storage.Store
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewChallengeCleanupWorker creates a new challenge cleanup worker
func NewChallengeCleanupWorker(cfg config.CleanupConfig, store storage.Store, logger *zap.Logger) *ChallengeCleanupWorker {
	cfg.SetDefaults()
	return &ChallengeCleanupWorker{
		config: cfg,
		store:  store,
		logger: logger.Named("challenge-cleanup"),
	}
}

// Start begins the cleanup worker in the background
func (w *ChallengeCleanupWorker) Start() {
	if !w.config.Enabled {
		w.logger.Info("Challenge cleanup worker disabled")
		return
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(1)

	go w.run()

	w.logger.Info("Challenge cleanup worker started",
		zap.Int("interval_seconds", w.config.IntervalSeconds),
	)
}

// Stop gracefully stops the cleanup worker
func (w *ChallengeCleanupWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("Challenge cleanup worker stopped")
}

func (w *ChallengeCleanupWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Duration(w.config.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	// Run once immediately on startup
	w.cleanup()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *ChallengeCleanupWorker) cleanup() {
	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	if err := w.store.Challenges().DeleteExpired(ctx); err != nil {
		w.logger.Error("Failed to cleanup expired challenges", zap.Error(err))
		return
	}

	w.logger.Debug("Completed challenge cleanup pass")
}

// RunOnce runs a single cleanup pass (useful for testing)
func (w *ChallengeCleanupWorker) RunOnce(ctx context.Context) error {
	return w.store.Challenges().DeleteExpired(ctx)
}
