package storage

import (
	"context"
	"errors"

	"github.com/oboreham/portfolio-backend/internal/domain"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUpstream      = errors.New("upstream datastore error")
)

// CredentialStore defines the interface for passkey credential storage
type CredentialStore interface {
	// Create stores a new credential. At most one row exists per
	// (email, credential id) pair.
	Create(ctx context.Context, credential *domain.Credential) error

	// GetByEmail retrieves all credentials registered for an email
	GetByEmail(ctx context.Context, email string) ([]*domain.Credential, error)

	// GetByID retrieves one credential by (email, credential id)
	GetByID(ctx context.Context, email, credentialID string) (*domain.Credential, error)

	// UpdateCounter sets the signature counter of a credential
	UpdateCounter(ctx context.Context, email, credentialID string, counter uint32) error

	// DeleteByEmail removes every credential for an email
	DeleteByEmail(ctx context.Context, email string) error
}

// ChallengeStore defines the interface for ceremony challenge storage.
// There is one slot per (email, purpose): Upsert overwrites any pending
// challenge of the same purpose.
type ChallengeStore interface {
	// Upsert stores a challenge, replacing a pending one for the same
	// (email, purpose)
	Upsert(ctx context.Context, challenge *domain.Challenge) error

	// Get retrieves the pending challenge for (email, purpose)
	Get(ctx context.Context, email, purpose string) (*domain.Challenge, error)

	// Delete consumes the pending challenge for (email, purpose)
	Delete(ctx context.Context, email, purpose string) error

	// DeleteByEmail removes every challenge for an email
	DeleteByEmail(ctx context.Context, email string) error

	// DeleteExpired deletes all expired challenges
	DeleteExpired(ctx context.Context) error
}

// SessionStore defines the interface for step-up session storage
type SessionStore interface {
	// Create stores a new session
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by (email, id)
	Get(ctx context.Context, email, id string) (*domain.Session, error)

	// DeleteByEmail removes every session for an email
	DeleteByEmail(ctx context.Context, email string) error
}

// PostStore defines the interface for blog post storage
type PostStore interface {
	// List retrieves all posts, pinned first, newest first
	List(ctx context.Context) ([]*domain.Post, error)

	// Update overwrites the stored fields of an existing post
	Update(ctx context.Context, post *domain.Post) error

	// Delete removes a post by id
	Delete(ctx context.Context, id string) error
}

// Store aggregates all storage interfaces
type Store interface {
	Credentials() CredentialStore
	Challenges() ChallengeStore
	Sessions() SessionStore
	Posts() PostStore

	// Close closes the storage connection
	Close() error

	// Ping checks if the storage is alive
	Ping(ctx context.Context) error
}
