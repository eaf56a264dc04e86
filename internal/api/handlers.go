package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/identity"
	"github.com/oboreham/portfolio-backend/internal/service"
	"github.com/oboreham/portfolio-backend/pkg/config"
	"github.com/oboreham/portfolio-backend/pkg/middleware"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	services  *service.Services
	cfg       *config.Config
	provider  identity.Provider
	allowlist identity.Allowlist
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services *service.Services, cfg *config.Config, provider identity.Provider, logger *zap.Logger) *Handlers {
	return &Handlers{
		services:  services,
		cfg:       cfg,
		provider:  provider,
		allowlist: identity.NewAllowlist(cfg.Admin.Email),
		logger:    logger.Named("handlers"),
	}
}

// Status handles the /status endpoint
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "portfolio-backend",
	})
}

// AdminStatus reports whether the caller is the allowlisted admin and
// whether a passkey is registered. It resolves identity inline instead
// of via AdminAuth because strangers get the same response shape with
// allowed=false rather than a bare error.
func (h *Handlers) AdminStatus(c *gin.Context) {
	token := identity.BearerToken(c.GetHeader("Authorization"))
	user, err := h.provider.CurrentUser(c.Request.Context(), token)
	if err != nil || !h.allowlist.Allows(user.Email) {
		c.JSON(403, gin.H{"allowed": false, "hasPasskey": false})
		return
	}

	c.JSON(200, gin.H{
		"allowed":    true,
		"hasPasskey": h.services.WebAuthn.HasCredentials(c.Request.Context(), user.Email),
	})
}

// credentialRequest is the body of both ceremony verify endpoints
type credentialRequest struct {
	Credential json.RawMessage `json:"credential"`
}

// RegisterOptions begins a passkey registration ceremony
func (h *Handlers) RegisterOptions(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)
	rp := h.services.WebAuthn.RPFromRequest(c.Request)

	options, err := h.services.WebAuthn.BeginRegistration(c.Request.Context(), email, rp)
	if err != nil {
		h.logger.Error("Failed to begin registration", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to start registration."})
		return
	}

	c.JSON(200, gin.H{"options": options})
}

// RegisterVerify completes a passkey registration ceremony
func (h *Handlers) RegisterVerify(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)
	rp := h.services.WebAuthn.RPFromRequest(c.Request)

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Credential) == 0 {
		c.JSON(400, gin.H{"error": "Missing credential."})
		return
	}

	if err := h.services.WebAuthn.FinishRegistration(c.Request.Context(), email, rp, req.Credential); err != nil {
		h.ceremonyError(c, err, "Unable to store passkey.")
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// AuthOptions begins a passkey authentication ceremony
func (h *Handlers) AuthOptions(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)
	rp := h.services.WebAuthn.RPFromRequest(c.Request)

	options, err := h.services.WebAuthn.BeginAuthentication(c.Request.Context(), email, rp)
	if err != nil {
		if errors.Is(err, service.ErrNoCredentials) {
			c.JSON(400, gin.H{"error": "No registered passkeys."})
			return
		}
		h.logger.Error("Failed to begin authentication", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to start authentication."})
		return
	}

	c.JSON(200, gin.H{"options": options})
}

// AuthVerify completes a passkey authentication ceremony and issues a
// step-up session.
func (h *Handlers) AuthVerify(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)
	rp := h.services.WebAuthn.RPFromRequest(c.Request)

	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Credential) == 0 {
		c.JSON(400, gin.H{"error": "Missing credential."})
		return
	}

	if err := h.services.WebAuthn.FinishAuthentication(c.Request.Context(), email, rp, req.Credential); err != nil {
		h.ceremonyError(c, err, "Unable to verify passkey.")
		return
	}

	session, err := h.services.Session.Issue(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("Failed to issue session", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to create session."})
		return
	}

	c.JSON(200, gin.H{
		"success":   true,
		"sessionId": session.ID,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Reset deletes every credential, challenge, and session for the admin
func (h *Handlers) Reset(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)

	if err := h.services.Session.Revoke(c.Request.Context(), email); err != nil {
		h.logger.Error("Failed to reset passkeys", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to reset passkeys."})
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// BlogPosts lists all posts (public)
func (h *Handlers) BlogPosts(c *gin.Context) {
	posts, err := h.services.Blog.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load posts", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to load posts."})
		return
	}

	c.Header("Cache-Control", "public, max-age=60, s-maxage=300")
	c.JSON(200, gin.H{"posts": posts})
}

// BlogUpdate mutates a post
func (h *Handlers) BlogUpdate(c *gin.Context) {
	email := c.GetString(middleware.KeyAdminEmail)

	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Post id, title, and content are required."})
		return
	}

	result, err := h.services.Blog.Update(c.Request.Context(), &req, email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPost) {
			c.JSON(400, gin.H{"error": "Post id, title, and content are required."})
			return
		}
		h.logger.Error("Failed to update post", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to update post."})
		return
	}

	resp := gin.H{"success": true, "slug": result.Slug}
	if result.Fallback {
		resp["fallback"] = true
	}
	c.JSON(200, resp)
}

// BlogDelete removes a post
func (h *Handlers) BlogDelete(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(400, gin.H{"error": "Post id is required."})
		return
	}

	fallback, err := h.services.Blog.Delete(c.Request.Context(), req.ID)
	if err != nil {
		h.logger.Error("Failed to delete post", zap.Error(err))
		c.JSON(500, gin.H{"error": "Unable to delete post."})
		return
	}

	resp := gin.H{"success": true}
	if fallback {
		resp["fallback"] = true
	}
	c.JSON(200, resp)
}

// ceremonyError maps ceremony failures onto the error taxonomy:
// missing-state and verification failures are 400s (library messages
// passed through), everything else is an upstream 500.
func (h *Handlers) ceremonyError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrChallengeNotFound):
		c.JSON(400, gin.H{"error": "Challenge missing."})
	case errors.Is(err, service.ErrChallengeExpired):
		c.JSON(400, gin.H{"error": "Challenge expired."})
	case errors.Is(err, service.ErrCredentialNotRegistered):
		c.JSON(400, gin.H{"error": "Passkey not registered."})
	case errors.Is(err, service.ErrCredentialIncomplete):
		c.JSON(400, gin.H{"error": "Passkey record incomplete."})
	case errors.Is(err, service.ErrVerificationFailed):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Ceremony failed", zap.Error(err))
		c.JSON(500, gin.H{"error": fallbackMsg})
	}
}
