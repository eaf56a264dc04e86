package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage/memory"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

const adminEmail = "admin@example.com"

func newWebAuthnTest(t *testing.T) (*WebAuthnService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewWebAuthnService(store, testConfig(config.ModeDevelopment), zap.NewNop())
	return svc, store
}

func seedCredential(t *testing.T, store *memory.Store, email string) *domain.Credential {
	t.Helper()
	cred := &domain.Credential{
		Email:        email,
		CredentialID: base64.RawURLEncoding.EncodeToString([]byte("credential-id-1")),
		PublicKey:    []byte{0xa5, 0x01, 0x02},
		Counter:      3,
		Transports:   []string{"internal"},
	}
	require.NoError(t, store.Credentials().Create(context.Background(), cred))
	return cred
}

func TestRPFromRequest(t *testing.T) {
	svc, _ := newWebAuthnTest(t)

	t.Run("forwarded host and proto", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://ignored/", nil)
		r.Header.Set("X-Forwarded-Host", "example.com")
		r.Header.Set("X-Forwarded-Proto", "https")

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "example.com", rp.ID)
		assert.Equal(t, "https://example.com", rp.Origin)
	})

	t.Run("forwarded host defaults to https", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://ignored/", nil)
		r.Header.Set("X-Forwarded-Host", "example.com")

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "https://example.com", rp.Origin)
	})

	t.Run("first host wins in a forwarded list", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://ignored/", nil)
		r.Header.Set("X-Forwarded-Host", "example.com, proxy.internal")
		r.Header.Set("X-Forwarded-Proto", "https")

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "example.com", rp.ID)
	})

	t.Run("port stripped from rp id", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://ignored/", nil)
		r.Header.Set("X-Forwarded-Host", "localhost:5173")
		r.Header.Set("X-Forwarded-Proto", "http")

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "localhost", rp.ID)
		assert.Equal(t, "http://localhost:5173", rp.Origin)
	})

	t.Run("request host when no forwarded header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://backend.example.com/", nil)
		r.Header.Set("X-Forwarded-Proto", "https")

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "backend.example.com", rp.ID)
	})

	t.Run("site url fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "http://x/", nil)
		r.Host = ""

		rp := svc.RPFromRequest(r)
		assert.Equal(t, "localhost", rp.ID)
		assert.Equal(t, "http://localhost:5173", rp.Origin)
	})
}

func TestHasCredentials(t *testing.T) {
	svc, store := newWebAuthnTest(t)
	ctx := context.Background()

	assert.False(t, svc.HasCredentials(ctx, adminEmail))

	seedCredential(t, store, adminEmail)
	assert.True(t, svc.HasCredentials(ctx, adminEmail))
	assert.False(t, svc.HasCredentials(ctx, "other@example.com"))
}

func TestBeginRegistration(t *testing.T) {
	svc, store := newWebAuthnTest(t)
	ctx := context.Background()
	rp := RPContext{ID: "localhost", Origin: "http://localhost:5173"}

	options, err := svc.BeginRegistration(ctx, adminEmail, rp)
	require.NoError(t, err)
	require.NotNil(t, options)
	assert.NotEmpty(t, options.Challenge)
	assert.Equal(t, "localhost", options.RelyingParty.ID)
	assert.Equal(t, adminEmail, options.User.Name)

	t.Run("challenge stored in register slot", func(t *testing.T) {
		challenge, err := store.Challenges().Get(ctx, adminEmail, domain.PurposeRegister)
		require.NoError(t, err)
		assert.Equal(t, options.Challenge.String(), challenge.Challenge)
		assert.True(t, challenge.ExpiresAt.After(time.Now()))
	})

	t.Run("second begin overwrites the slot", func(t *testing.T) {
		second, err := svc.BeginRegistration(ctx, adminEmail, rp)
		require.NoError(t, err)

		challenge, err := store.Challenges().Get(ctx, adminEmail, domain.PurposeRegister)
		require.NoError(t, err)
		assert.Equal(t, second.Challenge.String(), challenge.Challenge)
		assert.NotEqual(t, options.Challenge.String(), challenge.Challenge)
	})

	t.Run("registered credentials are excluded", func(t *testing.T) {
		cred := seedCredential(t, store, adminEmail)

		options, err := svc.BeginRegistration(ctx, adminEmail, rp)
		require.NoError(t, err)
		require.Len(t, options.CredentialExcludeList, 1)

		wantID, err := base64.RawURLEncoding.DecodeString(cred.CredentialID)
		require.NoError(t, err)
		assert.Equal(t, wantID, []byte(options.CredentialExcludeList[0].CredentialID))
	})
}

func TestFinishRegistration(t *testing.T) {
	ctx := context.Background()
	rp := RPContext{ID: "localhost", Origin: "http://localhost:5173"}

	t.Run("no pending challenge", func(t *testing.T) {
		svc, _ := newWebAuthnTest(t)
		err := svc.FinishRegistration(ctx, adminEmail, rp, json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("expired challenge is consumed", func(t *testing.T) {
		svc, store := newWebAuthnTest(t)
		require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
			Email:     adminEmail,
			Purpose:   domain.PurposeRegister,
			Challenge: "stale",
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		err := svc.FinishRegistration(ctx, adminEmail, rp, json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrChallengeExpired)

		// The expired slot was cleared
		_, err = store.Challenges().Get(ctx, adminEmail, domain.PurposeRegister)
		assert.Error(t, err)
	})

	t.Run("malformed attestation", func(t *testing.T) {
		svc, store := newWebAuthnTest(t)
		require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
			Email:     adminEmail,
			Purpose:   domain.PurposeRegister,
			Challenge: "pending",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}))

		err := svc.FinishRegistration(ctx, adminEmail, rp, json.RawMessage(`{"not":"a credential"}`))
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})
}

func TestBeginAuthentication(t *testing.T) {
	ctx := context.Background()
	rp := RPContext{ID: "localhost", Origin: "http://localhost:5173"}

	t.Run("no credentials", func(t *testing.T) {
		svc, _ := newWebAuthnTest(t)
		_, err := svc.BeginAuthentication(ctx, adminEmail, rp)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("allows stored credentials", func(t *testing.T) {
		svc, store := newWebAuthnTest(t)
		cred := seedCredential(t, store, adminEmail)

		options, err := svc.BeginAuthentication(ctx, adminEmail, rp)
		require.NoError(t, err)
		require.Len(t, options.AllowedCredentials, 1)

		wantID, err := base64.RawURLEncoding.DecodeString(cred.CredentialID)
		require.NoError(t, err)
		assert.Equal(t, wantID, []byte(options.AllowedCredentials[0].CredentialID))

		challenge, err := store.Challenges().Get(ctx, adminEmail, domain.PurposeAuth)
		require.NoError(t, err)
		assert.Equal(t, options.Challenge.String(), challenge.Challenge)
	})
}

func TestFinishAuthentication(t *testing.T) {
	ctx := context.Background()
	rp := RPContext{ID: "localhost", Origin: "http://localhost:5173"}

	t.Run("no pending challenge", func(t *testing.T) {
		svc, store := newWebAuthnTest(t)
		seedCredential(t, store, adminEmail)

		err := svc.FinishAuthentication(ctx, adminEmail, rp, json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrChallengeNotFound)
	})

	t.Run("malformed assertion", func(t *testing.T) {
		svc, store := newWebAuthnTest(t)
		seedCredential(t, store, adminEmail)
		require.NoError(t, store.Challenges().Upsert(ctx, &domain.Challenge{
			Email:     adminEmail,
			Purpose:   domain.PurposeAuth,
			Challenge: "pending",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}))

		err := svc.FinishAuthentication(ctx, adminEmail, rp, json.RawMessage(`{"not":"an assertion"}`))
		assert.ErrorIs(t, err, ErrVerificationFailed)
	})
}
