// Package identity resolves bearer tokens to user identities and holds
// the admin allowlist policy. The identity provider itself is external;
// this package only asks it who a token belongs to.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/pkg/config"
)

// ErrUnauthenticated is returned when a token is missing, malformed, or
// rejected by the identity provider.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is the identity resolved from a bearer token
type User struct {
	Email string `json:"email"`
}

// Provider resolves a bearer token to a user. Implementations must not
// cache: every privileged request re-resolves identity.
type Provider interface {
	CurrentUser(ctx context.Context, token string) (*User, error)
}

// BearerToken extracts the token from an Authorization header value.
// Returns "" if the header is absent or not a bearer scheme.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// HTTPProvider resolves tokens against the identity provider's user-info
// endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProvider creates an HTTPProvider from the identity config
func NewHTTPProvider(cfg *config.IdentityConfig, logger *zap.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.Named("identity"),
	}
}

// CurrentUser calls the user-info endpoint with the bearer token. Any
// failure, including a non-OK response, resolves to ErrUnauthenticated
// rather than an upstream error: a token the provider will not vouch
// for is simply not authenticated.
func (p *HTTPProvider) CurrentUser(ctx context.Context, token string) (*User, error) {
	if token == "" || p.baseURL == "" {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user-info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Identity provider unreachable", zap.Error(err))
		return nil, ErrUnauthenticated
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnauthenticated
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		p.logger.Warn("Failed to decode user-info response", zap.Error(err))
		return nil, ErrUnauthenticated
	}
	if user.Email == "" {
		return nil, ErrUnauthenticated
	}

	return &user, nil
}

// JWTProvider verifies identity tokens locally with the provider's
// shared HS256 secret and reads the email claim. It avoids a network
// round-trip per request when the secret is available.
type JWTProvider struct {
	secret []byte
}

// NewJWTProvider creates a JWTProvider
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// CurrentUser parses and verifies the token, requiring a non-empty
// email claim.
func (p *JWTProvider) CurrentUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthenticated
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrUnauthenticated
	}

	return &User{Email: email}, nil
}

// NewProvider picks the provider implementation from config: local JWT
// verification when a secret is configured, the user-info endpoint
// otherwise.
func NewProvider(cfg *config.IdentityConfig, logger *zap.Logger) Provider {
	if cfg.JWTSecret != "" {
		return NewJWTProvider(cfg.JWTSecret)
	}
	return NewHTTPProvider(cfg, logger)
}
