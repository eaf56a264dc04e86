package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation stripped", "Go: the good parts!", "go-the-good-parts"},
		{"collapses whitespace", "a   b\tc", "a-b-c"},
		{"collapses hyphens", "already - hyphenated -- title", "already-hyphenated-title"},
		{"trims outer space", "  padded  ", "padded"},
		{"unicode stripped", "café ☕ review", "caf-review"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}

	t.Run("caps at 80 characters", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "word "
		}
		slug := Slugify(long)
		assert.LessOrEqual(t, len(slug), 80)
	})
}

func TestSessionValidAt(t *testing.T) {
	now := time.Now()
	session := &Session{ID: "abc", Email: "a@b.c", ExpiresAt: now.Add(time.Hour)}

	t.Run("valid before expiry", func(t *testing.T) {
		assert.True(t, session.ValidAt(now))
	})

	t.Run("invalid exactly at expiry", func(t *testing.T) {
		assert.False(t, session.ValidAt(session.ExpiresAt))
	})

	t.Run("invalid after expiry", func(t *testing.T) {
		assert.False(t, session.ValidAt(session.ExpiresAt.Add(time.Second)))
	})
}

func TestChallengeIsExpired(t *testing.T) {
	t.Run("not expired", func(t *testing.T) {
		c := &Challenge{ExpiresAt: time.Now().Add(5 * time.Minute)}
		assert.False(t, c.IsExpired())
	})

	t.Run("expired", func(t *testing.T) {
		c := &Challenge{ExpiresAt: time.Now().Add(-time.Second)}
		assert.True(t, c.IsExpired())
	})
}

func TestCredentialIncomplete(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		c := &Credential{CredentialID: "id", PublicKey: []byte{1, 2, 3}}
		assert.False(t, c.Incomplete())
	})

	t.Run("missing id", func(t *testing.T) {
		c := &Credential{PublicKey: []byte{1}}
		assert.True(t, c.Incomplete())
	})

	t.Run("missing public key", func(t *testing.T) {
		c := &Credential{CredentialID: "id"}
		assert.True(t, c.Incomplete())
	})
}
