package domain

import (
	"time"
)

// DevSessionID is the sentinel step-up session id that skips the
// datastore lookup. It is honored only outside production.
const DevSessionID = "dev"

// Session is a short-lived elevated session minted after a successful
// passkey authentication. It proves step-up beyond the base identity
// token and is required for every privileged operation.
type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// ValidAt reports whether the session is still valid at the given
// instant. A session at exactly its expiry is no longer valid.
func (s *Session) ValidAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
