// Package memory implements in-memory storage for tests and local
// development. All state is process-local and lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

// Store implements an in-memory storage
type Store struct {
	credentials *CredentialStore
	challenges  *ChallengeStore
	sessions    *SessionStore
	posts       *PostStore
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		credentials: &CredentialStore{data: make(map[string][]*domain.Credential)},
		challenges:  &ChallengeStore{data: make(map[string]*domain.Challenge)},
		sessions:    &SessionStore{data: make(map[string]*domain.Session)},
		posts:       &PostStore{data: make(map[string]*domain.Post)},
	}
}

func (s *Store) Credentials() storage.CredentialStore { return s.credentials }
func (s *Store) Challenges() storage.ChallengeStore   { return s.challenges }
func (s *Store) Sessions() storage.SessionStore       { return s.sessions }
func (s *Store) Posts() storage.PostStore             { return s.posts }
func (s *Store) Close() error                         { return nil }
func (s *Store) Ping(ctx context.Context) error       { return nil }

// CredentialStore implements in-memory credential storage keyed by email
type CredentialStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Credential
}

func (s *CredentialStore) Create(ctx context.Context, credential *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.data[credential.Email] {
		if c.CredentialID == credential.CredentialID {
			return storage.ErrAlreadyExists
		}
	}

	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now()
	}
	s.data[credential.Email] = append(s.data[credential.Email], credential)
	return nil
}

func (s *CredentialStore) GetByEmail(ctx context.Context, email string) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*domain.Credential, 0, len(s.data[email]))
	for _, c := range s.data[email] {
		copied := *c
		creds = append(creds, &copied)
	}
	return creds, nil
}

func (s *CredentialStore) GetByID(ctx context.Context, email, credentialID string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data[email] {
		if c.CredentialID == credentialID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *CredentialStore) UpdateCounter(ctx context.Context, email, credentialID string, counter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.data[email] {
		if c.CredentialID == credentialID {
			c.Counter = counter
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *CredentialStore) DeleteByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, email)
	return nil
}

// ChallengeStore implements in-memory challenge storage with one slot
// per (email, purpose)
type ChallengeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Challenge // key: "email\x00purpose"
}

func challengeKey(email, purpose string) string {
	return email + "\x00" + purpose
}

func (s *ChallengeStore) Upsert(ctx context.Context, challenge *domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	s.data[challengeKey(challenge.Email, challenge.Purpose)] = challenge
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, email, purpose string) (*domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, exists := s.data[challengeKey(email, purpose)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, challengeKey(email, purpose))
	return nil
}

func (s *ChallengeStore) DeleteByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, challenge := range s.data {
		if challenge.Email == email {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *ChallengeStore) DeleteExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, challenge := range s.data {
		if now.After(challenge.ExpiresAt) {
			delete(s.data, key)
		}
	}
	return nil
}

// SessionStore implements in-memory step-up session storage
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session // key: session id
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[session.ID]; exists {
		return storage.ErrAlreadyExists
	}
	s.data[session.ID] = session
	return nil
}

func (s *SessionStore) Get(ctx context.Context, email, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.data[id]
	if !exists || session.Email != email {
		return nil, storage.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *SessionStore) DeleteByEmail(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.data {
		if session.Email == email {
			delete(s.data, id)
		}
	}
	return nil
}

// PostStore implements in-memory blog post storage
type PostStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Post
}

// Create inserts a post. Only used by tests and development seeding;
// the HTTP surface exposes update and delete.
func (s *PostStore) Create(ctx context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[post.ID]; exists {
		return storage.ErrAlreadyExists
	}
	s.data[post.ID] = post
	return nil
}

func (s *PostStore) List(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*domain.Post, 0, len(s.data))
	for _, post := range s.data {
		copied := *post
		posts = append(posts, &copied)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Pinned != posts[j].Pinned {
			return posts[i].Pinned
		}
		return posts[i].PublishedAt > posts[j].PublishedAt
	})
	return posts, nil
}

func (s *PostStore) Update(ctx context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[post.ID]; !exists {
		return storage.ErrNotFound
	}
	post.UpdatedAt = time.Now()
	s.data[post.ID] = post
	return nil
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
