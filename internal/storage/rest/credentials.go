package rest

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

const credentialsPath = "/rest/v1/webauthn_credentials"

// credentialRow is the wire shape of a credential. Public key material
// is stored base64url encoded, as the clients wrote it historically.
type credentialRow struct {
	Email        string    `json:"email"`
	CredentialID string    `json:"credential_id"`
	PublicKey    string    `json:"public_key"`
	Counter      uint32    `json:"counter"`
	Transports   []string  `json:"transports"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func toCredentialRow(c *domain.Credential) *credentialRow {
	return &credentialRow{
		Email:        c.Email,
		CredentialID: c.CredentialID,
		PublicKey:    base64.RawURLEncoding.EncodeToString(c.PublicKey),
		Counter:      c.Counter,
		Transports:   c.Transports,
	}
}

func (r *credentialRow) toDomain() (*domain.Credential, error) {
	publicKey, err := base64.RawURLEncoding.DecodeString(r.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid public key encoding: %v", storage.ErrUpstream, err)
	}
	return &domain.Credential{
		Email:        r.Email,
		CredentialID: r.CredentialID,
		PublicKey:    publicKey,
		Counter:      r.Counter,
		Transports:   r.Transports,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// CredentialStore implements credential storage over the REST datastore
type CredentialStore struct {
	client *Client
}

func (s *CredentialStore) Create(ctx context.Context, credential *domain.Credential) error {
	return s.client.do(ctx, http.MethodPost, credentialsPath, nil, toCredentialRow(credential), nil)
}

func (s *CredentialStore) GetByEmail(ctx context.Context, email string) ([]*domain.Credential, error) {
	query := url.Values{}
	query.Set("select", "email,credential_id,public_key,counter,transports,created_at")
	query.Set("email", eq(email))

	var rows []credentialRow
	if err := s.client.do(ctx, http.MethodGet, credentialsPath, query, nil, &rows); err != nil {
		return nil, err
	}

	creds := make([]*domain.Credential, 0, len(rows))
	for i := range rows {
		cred, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func (s *CredentialStore) GetByID(ctx context.Context, email, credentialID string) (*domain.Credential, error) {
	query := url.Values{}
	query.Set("select", "email,credential_id,public_key,counter,transports,created_at")
	query.Set("email", eq(email))
	query.Set("credential_id", eq(credentialID))
	query.Set("limit", "1")

	var rows []credentialRow
	if err := s.client.do(ctx, http.MethodGet, credentialsPath, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}
	return rows[0].toDomain()
}

func (s *CredentialStore) UpdateCounter(ctx context.Context, email, credentialID string, counter uint32) error {
	query := url.Values{}
	query.Set("email", eq(email))
	query.Set("credential_id", eq(credentialID))

	patch := map[string]uint32{"counter": counter}
	return s.client.do(ctx, http.MethodPatch, credentialsPath, query, patch, nil)
}

func (s *CredentialStore) DeleteByEmail(ctx context.Context, email string) error {
	query := url.Values{}
	query.Set("email", eq(email))
	return s.client.do(ctx, http.MethodDelete, credentialsPath, query, nil, nil)
}
