package middleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oboreham/portfolio-backend/pkg/config"
)

// CeremonyRateLimiter limits WebAuthn ceremony attempts per caller.
// Uses a sliding window with lockout after exceeding limits.
type CeremonyRateLimiter struct {
	config config.RateLimitConfig
	logger *zap.Logger

	mu       sync.RWMutex
	limiters map[string]*ceremonyLimiter

	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// ceremonyLimiter tracks limiting state for a single caller
type ceremonyLimiter struct {
	limiter    *rate.Limiter
	lastSeen   time.Time
	lockedOut  bool
	lockoutEnd time.Time
}

// NewCeremonyRateLimiter creates a new rate limiter for ceremony endpoints
func NewCeremonyRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *CeremonyRateLimiter {
	cfg.SetDefaults()
	return &CeremonyRateLimiter{
		config:          cfg,
		logger:          logger.Named("ceremony-ratelimit"),
		limiters:        make(map[string]*ceremonyLimiter),
		cleanupInterval: 10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

// getLimiter returns the rate limiter for an identifier, creating if needed
func (r *CeremonyRateLimiter) getLimiter(identifier string) *ceremonyLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Cleanup old limiters periodically
	if time.Since(r.lastCleanup) > r.cleanupInterval {
		r.cleanup()
	}

	limiter, exists := r.limiters[identifier]
	if exists {
		limiter.lastSeen = time.Now()
		return limiter
	}

	// Rate: MaxAttempts per WindowSeconds
	rateLimit := rate.Limit(float64(r.config.MaxAttempts) / float64(r.config.WindowSeconds))
	burst := int(math.Ceil(float64(r.config.MaxAttempts) / 2.0))
	if burst < 1 {
		burst = 1
	}

	limiter = &ceremonyLimiter{
		limiter:  rate.NewLimiter(rateLimit, burst),
		lastSeen: time.Now(),
	}
	r.limiters[identifier] = limiter

	return limiter
}

// cleanup removes limiters that haven't been used recently
func (r *CeremonyRateLimiter) cleanup() {
	cutoff := time.Now().Add(-30 * time.Minute)
	for key, limiter := range r.limiters {
		if limiter.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
	r.lastCleanup = time.Now()
}

// Allow checks if a request is allowed for the given identifier
func (r *CeremonyRateLimiter) Allow(identifier string) bool {
	if !r.config.Enabled {
		return true
	}

	limiter := r.getLimiter(identifier)

	r.mu.RLock()
	if limiter.lockedOut {
		if time.Now().Before(limiter.lockoutEnd) {
			r.mu.RUnlock()
			return false
		}
		// Lockout expired, reset
		r.mu.RUnlock()
		r.mu.Lock()
		limiter.lockedOut = false
		r.mu.Unlock()
	} else {
		r.mu.RUnlock()
	}

	if !limiter.limiter.Allow() {
		r.mu.Lock()
		limiter.lockedOut = true
		limiter.lockoutEnd = time.Now().Add(time.Duration(r.config.LockoutSeconds) * time.Second)
		r.mu.Unlock()

		r.logger.Warn("Ceremony rate limit exceeded, applying lockout",
			zap.String("identifier", identifier),
			zap.Duration("lockout_duration", time.Duration(r.config.LockoutSeconds)*time.Second),
		)

		return false
	}

	return true
}

// RateLimitCeremonies returns a gin middleware that limits ceremony
// endpoints per client address.
func RateLimitCeremonies(rl *CeremonyRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled {
			c.Next()
			return
		}

		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later."})
			c.Abort()
			return
		}

		c.Next()
	}
}
