package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage/memory"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

func TestChallengeCleanupRunOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	worker := NewChallengeCleanupWorker(config.CleanupConfig{Enabled: true}, store, zap.NewNop())

	require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
		Email:     "admin@example.com",
		Purpose:   domain.PurposeRegister,
		Challenge: "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
		Email:     "admin@example.com",
		Purpose:   domain.PurposeAuth,
		Challenge: "live",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}))

	require.NoError(t, worker.RunOnce(ctx))

	_, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeRegister)
	assert.Error(t, err)

	challenge, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
	require.NoError(t, err)
	assert.Equal(t, "live", challenge.Challenge)
}

func TestChallengeCleanupStartStop(t *testing.T) {
	store := memory.NewStore()

	t.Run("disabled worker is a no-op", func(t *testing.T) {
		worker := NewChallengeCleanupWorker(config.CleanupConfig{Enabled: false}, store, zap.NewNop())
		worker.Start()
		worker.Stop()
	})

	t.Run("enabled worker stops cleanly", func(t *testing.T) {
		worker := NewChallengeCleanupWorker(config.CleanupConfig{Enabled: true, IntervalSeconds: 3600}, store, zap.NewNop())
		worker.Start()
		worker.Stop()
	})
}
