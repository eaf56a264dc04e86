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

func testConfig(mode string) *config.Config {
	return &config.Config{
		Mode: mode,
		Admin: config.AdminConfig{
			Email:               "admin@example.com",
			SessionTTLSeconds:   3600,
			ChallengeTTLSeconds: 300,
		},
		Server: config.ServerConfig{
			SiteURL: "http://localhost:5173",
			RPName:  "Portfolio Admin",
		},
	}
}

func TestSessionIssue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewSessionService(store, testConfig(config.ModeDevelopment), zap.NewNop())

	before := time.Now()
	session, err := svc.Issue(ctx, "admin@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.NotEqual(t, domain.DevSessionID, session.ID)
	assert.Equal(t, "admin@example.com", session.Email)

	// Expiry is one TTL from issuance
	assert.WithinDuration(t, before.Add(time.Hour), session.ExpiresAt, 5*time.Second)

	// Issued session validates
	assert.NoError(t, svc.Validate(ctx, "admin@example.com", session.ID))
}

func TestSessionValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty id fails", func(t *testing.T) {
		svc := NewSessionService(memory.NewStore(), testConfig(config.ModeDevelopment), zap.NewNop())
		assert.ErrorIs(t, svc.Validate(ctx, "admin@example.com", ""), ErrStepUpRequired)
	})

	t.Run("unknown id fails closed", func(t *testing.T) {
		svc := NewSessionService(memory.NewStore(), testConfig(config.ModeDevelopment), zap.NewNop())
		assert.ErrorIs(t, svc.Validate(ctx, "admin@example.com", "nope"), ErrStepUpRequired)
	})

	t.Run("expired session fails", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSessionService(store, testConfig(config.ModeDevelopment), zap.NewNop())

		expired := &domain.Session{
			ID:        "expired-session",
			Email:     "admin@example.com",
			ExpiresAt: time.Now().Add(-time.Second),
		}
		require.NoError(t, store.Sessions().Create(ctx, expired))

		assert.ErrorIs(t, svc.Validate(ctx, "admin@example.com", "expired-session"), ErrStepUpRequired)
	})

	t.Run("session scoped to email", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSessionService(store, testConfig(config.ModeDevelopment), zap.NewNop())

		session, err := svc.Issue(ctx, "admin@example.com")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Validate(ctx, "other@example.com", session.ID), ErrStepUpRequired)
	})

	t.Run("dev sentinel outside production", func(t *testing.T) {
		svc := NewSessionService(memory.NewStore(), testConfig(config.ModeDevelopment), zap.NewNop())
		assert.NoError(t, svc.Validate(ctx, "admin@example.com", domain.DevSessionID))
	})

	t.Run("dev sentinel rejected in production", func(t *testing.T) {
		svc := NewSessionService(memory.NewStore(), testConfig(config.ModeProduction), zap.NewNop())
		assert.ErrorIs(t, svc.Validate(ctx, "admin@example.com", domain.DevSessionID), ErrStepUpRequired)
	})
}

func TestSessionRevoke(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewSessionService(store, testConfig(config.ModeDevelopment), zap.NewNop())

	// Admin state
	require.NoError(t, store.Credentials().Create(ctx, &domain.Credential{
		Email: "admin@example.com", CredentialID: "cred-1", PublicKey: []byte{1},
	}))
	require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
		Email: "admin@example.com", Purpose: domain.PurposeAuth,
		Challenge: "c", ExpiresAt: time.Now().Add(time.Minute),
	}))
	session, err := svc.Issue(ctx, "admin@example.com")
	require.NoError(t, err)

	// Unrelated state survives the reset
	require.NoError(t, store.Credentials().Create(ctx, &domain.Credential{
		Email: "other@example.com", CredentialID: "cred-2", PublicKey: []byte{2},
	}))

	require.NoError(t, svc.Revoke(ctx, "admin@example.com"))

	creds, err := store.Credentials().GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Empty(t, creds)

	_, err = store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
	assert.Error(t, err)

	assert.ErrorIs(t, svc.Validate(ctx, "admin@example.com", session.ID), ErrStepUpRequired)

	creds, err = store.Credentials().GetByEmail(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}
