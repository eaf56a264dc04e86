package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

var (
	ErrChallengeNotFound       = errors.New("challenge missing")
	ErrChallengeExpired        = errors.New("challenge expired")
	ErrNoCredentials           = errors.New("no registered passkeys")
	ErrCredentialNotRegistered = errors.New("passkey not registered")
	ErrCredentialIncomplete    = errors.New("passkey record incomplete")
	ErrVerificationFailed      = errors.New("passkey verification failed")
)

// RPContext is the relying-party id and origin a ceremony is scoped to.
type RPContext struct {
	ID     string
	Origin string
}

// WebAuthnService runs passkey registration and authentication
// ceremonies for the admin. Cryptographic verification is delegated to
// the go-webauthn library; persistence to the storage layer.
type WebAuthnService struct {
	store  storage.Store
	cfg    *config.Config
	logger *zap.Logger
}

// NewWebAuthnService creates a new WebAuthnService
func NewWebAuthnService(store storage.Store, cfg *config.Config, logger *zap.Logger) *WebAuthnService {
	return &WebAuthnService{
		store:  store,
		cfg:    cfg,
		logger: logger.Named("webauthn-service"),
	}
}

// RPFromRequest derives the relying-party context for a request:
// forwarded host/proto headers first, then the configured site URL,
// then a localhost default. Proxies in front of the service set the
// forwarded headers; the config fallback covers direct invocation.
func (s *WebAuthnService) RPFromRequest(r *http.Request) RPContext {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host != "" {
		host = strings.TrimSpace(strings.Split(host, ",")[0])
		proto := r.Header.Get("X-Forwarded-Proto")
		if proto == "" {
			proto = "https"
		}
		return RPContext{
			ID:     strings.Split(host, ":")[0],
			Origin: proto + "://" + host,
		}
	}

	if parsed, err := url.Parse(s.cfg.Server.SiteURL); err == nil && parsed.Hostname() != "" {
		return RPContext{
			ID:     parsed.Hostname(),
			Origin: parsed.Scheme + "://" + parsed.Host,
		}
	}

	return RPContext{ID: "localhost", Origin: "http://localhost:5173"}
}

// newWebAuthn builds a library instance scoped to one relying-party
// context. The context varies per request, so this is not cached.
func (s *WebAuthnService) newWebAuthn(rp RPContext) (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPDisplayName:         s.cfg.Server.RPName,
		RPID:                  rp.ID,
		RPOrigins:             []string{rp.Origin},
		AttestationPreference: protocol.PreferNoAttestation,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationPreferred,
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
		},
	})
}

// adminUser adapts the admin email and its stored credentials to the
// webauthn.User interface. The email doubles as the user handle.
type adminUser struct {
	email string
	creds []*domain.Credential
}

func (u *adminUser) WebAuthnID() []byte          { return []byte(u.email) }
func (u *adminUser) WebAuthnName() string        { return u.email }
func (u *adminUser) WebAuthnDisplayName() string { return u.email }

func (u *adminUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(u.creds))
	for _, c := range u.creds {
		id, err := base64.RawURLEncoding.DecodeString(c.CredentialID)
		if err != nil {
			continue
		}
		creds = append(creds, webauthn.Credential{
			ID:        id,
			PublicKey: c.PublicKey,
			Transport: parseTransports(c.Transports),
			Authenticator: webauthn.Authenticator{
				SignCount: c.Counter,
			},
		})
	}
	return creds
}

func parseTransports(transports []string) []protocol.AuthenticatorTransport {
	result := make([]protocol.AuthenticatorTransport, 0, len(transports))
	for _, t := range transports {
		result = append(result, protocol.AuthenticatorTransport(t))
	}
	return result
}

func encodeCredentialID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

// HasCredentials reports whether the email has at least one registered
// passkey. A failed read degrades to false rather than an error: the
// status endpoint stays available when the datastore is not.
func (s *WebAuthnService) HasCredentials(ctx context.Context, email string) bool {
	creds, err := s.store.Credentials().GetByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("Failed to list credentials", zap.Error(err))
		return false
	}
	return len(creds) > 0
}

// BeginRegistration generates registration options for the email,
// excluding already-registered credentials, and stores the challenge
// in the register slot.
func (s *WebAuthnService) BeginRegistration(ctx context.Context, email string, rp RPContext) (*protocol.PublicKeyCredentialCreationOptions, error) {
	creds, err := s.store.Credentials().GetByEmail(ctx, email)
	if err != nil {
		// Degrade to no exclusions, matching the status endpoint
		s.logger.Warn("Failed to list credentials for exclusion", zap.Error(err))
		creds = nil
	}

	web, err := s.newWebAuthn(rp)
	if err != nil {
		return nil, fmt.Errorf("failed to configure relying party: %w", err)
	}

	user := &adminUser{email: email, creds: creds}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(creds))
	for _, c := range user.WebAuthnCredentials() {
		exclusions = append(exclusions, c.Descriptor())
	}

	options, session, err := web.BeginRegistration(user, webauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration: %w", err)
	}

	challenge := &domain.Challenge{
		Email:     email,
		Purpose:   domain.PurposeRegister,
		Challenge: session.Challenge,
		ExpiresAt: time.Now().Add(s.challengeTTL()),
	}
	if err := s.store.Challenges().Upsert(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.logger.Info("Started passkey registration",
		zap.String("email", email),
		zap.String("rp_id", rp.ID),
	)

	return &options.Response, nil
}

// FinishRegistration verifies the attestation response against the
// pending register challenge and persists the new credential. The
// consumed challenge is deleted on success.
func (s *WebAuthnService) FinishRegistration(ctx context.Context, email string, rp RPContext, credential json.RawMessage) error {
	challenge, err := s.consumeChallenge(ctx, email, domain.PurposeRegister)
	if err != nil {
		return err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(credential))
	if err != nil {
		return verificationError(err)
	}

	web, err := s.newWebAuthn(rp)
	if err != nil {
		return fmt.Errorf("failed to configure relying party: %w", err)
	}

	user := &adminUser{email: email}
	session := webauthn.SessionData{
		Challenge:        challenge.Challenge,
		UserID:           user.WebAuthnID(),
		UserVerification: protocol.VerificationPreferred,
	}

	verified, err := web.CreateCredential(user, session, parsed)
	if err != nil {
		s.logger.Warn("Passkey registration verification failed", zap.Error(err))
		return verificationError(err)
	}

	transports := make([]string, 0, len(verified.Transport))
	for _, t := range verified.Transport {
		transports = append(transports, string(t))
	}

	record := &domain.Credential{
		Email:        email,
		CredentialID: encodeCredentialID(verified.ID),
		PublicKey:    verified.PublicKey,
		Counter:      verified.Authenticator.SignCount,
		Transports:   transports,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Credentials().Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	if err := s.store.Challenges().Delete(ctx, email, domain.PurposeRegister); err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}

	s.logger.Info("Registered passkey",
		zap.String("email", email),
		zap.String("credential_id", record.CredentialID),
	)

	return nil
}

// BeginAuthentication generates assertion options allowing exactly the
// email's registered credentials and stores the challenge in the auth
// slot.
func (s *WebAuthnService) BeginAuthentication(ctx context.Context, email string, rp RPContext) (*protocol.PublicKeyCredentialRequestOptions, error) {
	creds, err := s.store.Credentials().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	web, err := s.newWebAuthn(rp)
	if err != nil {
		return nil, fmt.Errorf("failed to configure relying party: %w", err)
	}

	user := &adminUser{email: email, creds: creds}

	options, session, err := web.BeginLogin(user)
	if err != nil {
		return nil, fmt.Errorf("failed to begin authentication: %w", err)
	}

	challenge := &domain.Challenge{
		Email:     email,
		Purpose:   domain.PurposeAuth,
		Challenge: session.Challenge,
		ExpiresAt: time.Now().Add(s.challengeTTL()),
	}
	if err := s.store.Challenges().Upsert(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.logger.Info("Started passkey authentication", zap.String("email", email))

	return &options.Response, nil
}

// FinishAuthentication verifies the assertion against the pending auth
// challenge and the stored credential, then records the new signature
// counter and consumes the challenge. The two writes are independent
// datastore calls: a crash between them leaves the counter updated and
// the challenge pending, which is harmless because a replayed assertion
// fails signature-counter verification.
func (s *WebAuthnService) FinishAuthentication(ctx context.Context, email string, rp RPContext, credential json.RawMessage) error {
	challenge, err := s.consumeChallenge(ctx, email, domain.PurposeAuth)
	if err != nil {
		return err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(credential))
	if err != nil {
		return verificationError(err)
	}

	credentialID := encodeCredentialID(parsed.RawID)
	stored, err := s.store.Credentials().GetByID(ctx, email, credentialID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCredentialNotRegistered
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if stored.Incomplete() {
		return ErrCredentialIncomplete
	}

	web, err := s.newWebAuthn(rp)
	if err != nil {
		return fmt.Errorf("failed to configure relying party: %w", err)
	}

	user := &adminUser{email: email, creds: []*domain.Credential{stored}}
	session := webauthn.SessionData{
		Challenge:        challenge.Challenge,
		UserID:           user.WebAuthnID(),
		UserVerification: protocol.VerificationPreferred,
	}

	verified, err := web.ValidateLogin(user, session, parsed)
	if err != nil {
		s.logger.Warn("Passkey authentication verification failed",
			zap.String("email", email),
			zap.Error(err),
		)
		return verificationError(err)
	}

	if err := s.store.Credentials().UpdateCounter(ctx, email, credentialID, verified.Authenticator.SignCount); err != nil {
		return fmt.Errorf("failed to update signature counter: %w", err)
	}

	if err := s.store.Challenges().Delete(ctx, email, domain.PurposeAuth); err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}

	s.logger.Info("Authenticated passkey",
		zap.String("email", email),
		zap.String("credential_id", credentialID),
	)

	return nil
}

// consumeChallenge loads the pending challenge for the purpose. An
// expired challenge is deleted and reported as expired.
func (s *WebAuthnService) consumeChallenge(ctx context.Context, email, purpose string) (*domain.Challenge, error) {
	challenge, err := s.store.Challenges().Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if challenge.IsExpired() {
		_ = s.store.Challenges().Delete(ctx, email, purpose)
		return nil, ErrChallengeExpired
	}
	return challenge, nil
}

func (s *WebAuthnService) challengeTTL() time.Duration {
	return time.Duration(s.cfg.Admin.ChallengeTTLSeconds) * time.Second
}

// verificationError wraps a library rejection so handlers can map it to
// a 400 while keeping the library's message for the caller.
func verificationError(err error) error {
	return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
}
