// Package rest implements storage against a hosted PostgREST-style
// datastore. Every operation is a stateless HTTP call authenticated
// with the service-role key; the datastore owns all durable state.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// Store implements storage over the REST datastore
type Store struct {
	client *Client

	credentials *CredentialStore
	challenges  *ChallengeStore
	sessions    *SessionStore
	posts       *PostStore
}

// NewStore creates a new REST store
func NewStore(cfg *config.RESTConfig, logger *zap.Logger) *Store {
	client := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.ServiceRoleKey,
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.Named("rest-store"),
	}

	return &Store{
		client:      client,
		credentials: &CredentialStore{client: client},
		challenges:  &ChallengeStore{client: client},
		sessions:    &SessionStore{client: client},
		posts:       &PostStore{client: client},
	}
}

func (s *Store) Credentials() storage.CredentialStore { return s.credentials }
func (s *Store) Challenges() storage.ChallengeStore   { return s.challenges }
func (s *Store) Sessions() storage.SessionStore       { return s.sessions }
func (s *Store) Posts() storage.PostStore             { return s.posts }
func (s *Store) Close() error                         { return nil }

// Ping verifies the datastore is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.do(ctx, http.MethodGet, "/rest/v1/", nil, nil, nil)
}

// Client is a thin HTTP client for the REST datastore
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *zap.Logger
}

// filter builds a PostgREST equality filter value
func eq(value string) string {
	return "eq." + value
}

// do executes one datastore request. A non-2xx response surfaces as
// ErrUpstream with the response body attached; no retries.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	return c.doPrefer(ctx, method, path, query, body, out, "")
}

func (c *Client) doPrefer(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}, prefer string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Datastore request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d: %s", storage.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", storage.ErrUpstream, err)
		}
	}

	return nil
}
