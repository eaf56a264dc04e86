package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	cred := &domain.Credential{
		Email:        "admin@example.com",
		CredentialID: "cred-1",
		PublicKey:    []byte{1, 2, 3},
		Counter:      0,
	}
	require.NoError(t, store.Credentials().Create(ctx, cred))

	t.Run("duplicate id rejected", func(t *testing.T) {
		dup := &domain.Credential{Email: "admin@example.com", CredentialID: "cred-1"}
		assert.ErrorIs(t, store.Credentials().Create(ctx, dup), storage.ErrAlreadyExists)
	})

	t.Run("get by email", func(t *testing.T) {
		creds, err := store.Credentials().GetByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		require.Len(t, creds, 1)
		assert.Equal(t, "cred-1", creds[0].CredentialID)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := store.Credentials().GetByID(ctx, "admin@example.com", "cred-1")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, got.PublicKey)

		_, err = store.Credentials().GetByID(ctx, "admin@example.com", "unknown")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.Credentials().GetByID(ctx, "other@example.com", "cred-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update counter", func(t *testing.T) {
		require.NoError(t, store.Credentials().UpdateCounter(ctx, "admin@example.com", "cred-1", 7))
		got, err := store.Credentials().GetByID(ctx, "admin@example.com", "cred-1")
		require.NoError(t, err)
		assert.Equal(t, uint32(7), got.Counter)

		err = store.Credentials().UpdateCounter(ctx, "admin@example.com", "unknown", 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete scoped to email", func(t *testing.T) {
		other := &domain.Credential{Email: "other@example.com", CredentialID: "cred-2", PublicKey: []byte{9}}
		require.NoError(t, store.Credentials().Create(ctx, other))

		require.NoError(t, store.Credentials().DeleteByEmail(ctx, "admin@example.com"))

		creds, err := store.Credentials().GetByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		assert.Empty(t, creds)

		creds, err = store.Credentials().GetByEmail(ctx, "other@example.com")
		require.NoError(t, err)
		assert.Len(t, creds, 1)
	})
}

func TestChallengeStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	t.Run("upsert overwrites the slot", func(t *testing.T) {
		first := &domain.Challenge{
			Email:     "admin@example.com",
			Purpose:   domain.PurposeRegister,
			Challenge: "first",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		require.NoError(t, store.Challenges().Upsert(ctx, first))

		second := &domain.Challenge{
			Email:     "admin@example.com",
			Purpose:   domain.PurposeRegister,
			Challenge: "second",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		require.NoError(t, store.Challenges().Upsert(ctx, second))

		got, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeRegister)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Challenge)
	})

	t.Run("purposes are independent slots", func(t *testing.T) {
		auth := &domain.Challenge{
			Email:     "admin@example.com",
			Purpose:   domain.PurposeAuth,
			Challenge: "auth-challenge",
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}
		require.NoError(t, store.Challenges().Upsert(ctx, auth))

		got, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeRegister)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Challenge)

		got, err = store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
		require.NoError(t, err)
		assert.Equal(t, "auth-challenge", got.Challenge)
	})

	t.Run("delete consumes one slot", func(t *testing.T) {
		require.NoError(t, store.Challenges().Delete(ctx, "admin@example.com", domain.PurposeRegister))
		_, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeRegister)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
		assert.NoError(t, err)
	})

	t.Run("delete expired", func(t *testing.T) {
		expired := &domain.Challenge{
			Email:     "stale@example.com",
			Purpose:   domain.PurposeAuth,
			Challenge: "stale",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, store.Challenges().Upsert(ctx, expired))

		require.NoError(t, store.Challenges().DeleteExpired(ctx))

		_, err := store.Challenges().Get(ctx, "stale@example.com", domain.PurposeAuth)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Live challenge survives
		_, err = store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
		assert.NoError(t, err)
	})

	t.Run("delete by email", func(t *testing.T) {
		require.NoError(t, store.Challenges().DeleteByEmail(ctx, "admin@example.com"))
		_, err := store.Challenges().Get(ctx, "admin@example.com", domain.PurposeAuth)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	session := &domain.Session{
		ID:        "session-1",
		Email:     "admin@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Sessions().Create(ctx, session))

	t.Run("get requires matching email", func(t *testing.T) {
		got, err := store.Sessions().Get(ctx, "admin@example.com", "session-1")
		require.NoError(t, err)
		assert.Equal(t, "session-1", got.ID)

		_, err = store.Sessions().Get(ctx, "other@example.com", "session-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete by email", func(t *testing.T) {
		require.NoError(t, store.Sessions().DeleteByEmail(ctx, "admin@example.com"))
		_, err := store.Sessions().Get(ctx, "admin@example.com", "session-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestPostStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	posts := store.Posts().(*PostStore)

	require.NoError(t, posts.Create(ctx, &domain.Post{ID: "a", Title: "Old", PublishedAt: "2024-01-01"}))
	require.NoError(t, posts.Create(ctx, &domain.Post{ID: "b", Title: "New", PublishedAt: "2025-06-01"}))
	require.NoError(t, posts.Create(ctx, &domain.Post{ID: "c", Title: "Pinned", PublishedAt: "2023-01-01", Pinned: true}))

	t.Run("list pinned first then newest", func(t *testing.T) {
		list, err := posts.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "c", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
		assert.Equal(t, "a", list[2].ID)
	})

	t.Run("update existing", func(t *testing.T) {
		require.NoError(t, posts.Update(ctx, &domain.Post{ID: "a", Title: "Renamed", PublishedAt: "2024-01-01"}))
		list, err := posts.List(ctx)
		require.NoError(t, err)
		for _, p := range list {
			if p.ID == "a" {
				assert.Equal(t, "Renamed", p.Title)
			}
		}
	})

	t.Run("update missing post fails", func(t *testing.T) {
		err := posts.Update(ctx, &domain.Post{ID: "nope", Title: "x"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, posts.Delete(ctx, "a"))
		list, err := posts.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		assert.ErrorIs(t, posts.Delete(ctx, "a"), storage.ErrNotFound)
	})
}
