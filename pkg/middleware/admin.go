package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/identity"
	"github.com/oboreham/portfolio-backend/internal/service"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// Context keys set by AdminAuth
const (
	KeyAdminEmail   = "admin_email"
	KeyAdminSession = "admin_session"
)

// SessionHeader carries the step-up session id on privileged requests
const SessionHeader = "X-Admin-Session"

// AdminAuth resolves the caller's identity and enforces the allowlist.
// Both failures map to 403 with no side effect; the resolved email is
// stored on the context for downstream handlers.
//
// Outside production, the "dev" session sentinel skips identity
// resolution entirely and acts as the configured admin. RequireStepUp
// re-checks the sentinel against the mode, so production requests can
// never ride it through either layer.
func AdminAuth(cfg *config.Config, provider identity.Provider, logger *zap.Logger) gin.HandlerFunc {
	allowlist := identity.NewAllowlist(cfg.Admin.Email)
	log := logger.Named("admin-auth")

	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)
		c.Set(KeyAdminSession, sessionID)

		if sessionID == domain.DevSessionID && !cfg.IsProduction() {
			c.Set(KeyAdminEmail, cfg.Admin.Email)
			c.Next()
			return
		}

		token := identity.BearerToken(c.GetHeader("Authorization"))
		user, err := provider.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.JSON(403, gin.H{"error": "Not authorized."})
			c.Abort()
			return
		}

		if !allowlist.Allows(user.Email) {
			log.Warn("Non-admin identity on admin endpoint", zap.String("email", user.Email))
			c.JSON(403, gin.H{"error": "Not authorized."})
			c.Abort()
			return
		}

		c.Set(KeyAdminEmail, user.Email)
		c.Next()
	}
}

// RequireStepUp enforces a valid elevated session on top of AdminAuth.
// Missing, expired, or unknown sessions map to 401.
func RequireStepUp(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(KeyAdminEmail)
		sessionID := c.GetString(KeyAdminSession)

		if err := sessions.Validate(c.Request.Context(), email, sessionID); err != nil {
			c.JSON(401, gin.H{"error": "Passkey verification required."})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Logger returns a gin middleware for request logging
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		c.Next()

		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
