package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

const challengesPath = "/rest/v1/webauthn_challenges"

// ChallengeStore implements challenge storage over the REST datastore.
// The table carries a unique constraint on (email, purpose); Upsert
// relies on it to keep one slot per purpose.
type ChallengeStore struct {
	client *Client
}

func (s *ChallengeStore) Upsert(ctx context.Context, challenge *domain.Challenge) error {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}

	query := url.Values{}
	query.Set("on_conflict", "email,purpose")
	return s.client.doPrefer(ctx, http.MethodPost, challengesPath, query, challenge, nil,
		"resolution=merge-duplicates")
}

func (s *ChallengeStore) Get(ctx context.Context, email, purpose string) (*domain.Challenge, error) {
	query := url.Values{}
	query.Set("select", "email,purpose,challenge,expires_at,created_at")
	query.Set("email", eq(email))
	query.Set("purpose", eq(purpose))
	query.Set("order", "created_at.desc")
	query.Set("limit", "1")

	var rows []domain.Challenge
	if err := s.client.do(ctx, http.MethodGet, challengesPath, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return &rows[0], nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email, purpose string) error {
	query := url.Values{}
	query.Set("email", eq(email))
	query.Set("purpose", eq(purpose))
	return s.client.do(ctx, http.MethodDelete, challengesPath, query, nil, nil)
}

func (s *ChallengeStore) DeleteByEmail(ctx context.Context, email string) error {
	query := url.Values{}
	query.Set("email", eq(email))
	return s.client.do(ctx, http.MethodDelete, challengesPath, query, nil, nil)
}

func (s *ChallengeStore) DeleteExpired(ctx context.Context) error {
	query := url.Values{}
	query.Set("expires_at", "lt."+time.Now().UTC().Format(time.RFC3339))
	return s.client.do(ctx, http.MethodDelete, challengesPath, query, nil, nil)
}
