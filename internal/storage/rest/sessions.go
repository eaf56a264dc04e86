package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

const sessionsPath = "/rest/v1/admin_sessions"

// sessionRow is the wire shape of a step-up session
type sessionRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// SessionStore implements step-up session storage over the REST datastore
type SessionStore struct {
	client *Client
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	row := sessionRow{
		ID:        session.ID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	return s.client.do(ctx, http.MethodPost, sessionsPath, nil, row, nil)
}

func (s *SessionStore) Get(ctx context.Context, email, id string) (*domain.Session, error) {
	query := url.Values{}
	query.Set("select", "id,email,expires_at")
	query.Set("email", eq(email))
	query.Set("id", eq(id))
	query.Set("limit", "1")

	var rows []domain.Session
	if err := s.client.do(ctx, http.MethodGet, sessionsPath, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return &rows[0], nil
}

func (s *SessionStore) DeleteByEmail(ctx context.Context, email string) error {
	query := url.Values{}
	query.Set("email", eq(email))
	return s.client.do(ctx, http.MethodDelete, sessionsPath, query, nil, nil)
}
