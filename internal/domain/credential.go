package domain

import (
	"time"
)

// Challenge purposes. Each email holds at most one pending challenge per
// purpose; a new "begin" call overwrites it.
const (
	PurposeRegister = "register"
	PurposeAuth     = "auth"
)

// Credential is a registered WebAuthn public-key credential owned by an
// admin email. The credential id is the client-generated identifier,
// base64url encoded without padding.
type Credential struct {
	Email        string    `json:"email" bson:"email"`
	CredentialID string    `json:"credential_id" bson:"credential_id"`
	PublicKey    []byte    `json:"public_key" bson:"public_key"`
	Counter      uint32    `json:"counter" bson:"counter"`
	Transports   []string  `json:"transports" bson:"transports"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Incomplete reports whether the stored record is missing the material
// required to verify an assertion against it.
func (c *Credential) Incomplete() bool {
	return c.CredentialID == "" || len(c.PublicKey) == 0
}

// Challenge is a pending ceremony challenge for an email, single-use and
// scoped to one purpose.
type Challenge struct {
	Email     string    `json:"email" bson:"email"`
	Purpose   string    `json:"purpose" bson:"purpose"`
	Challenge string    `json:"challenge" bson:"challenge"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// IsExpired checks if the challenge has expired
func (c *Challenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
