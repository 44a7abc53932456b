package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-credential-broker/providers"
)

// DefaultTTL is the fixed session lifetime. It is independent of the
// wrapped credential's own expiry: a session may outlive or be outlived
// by the token it references.
const DefaultTTL = 5 * time.Minute

// Session is a short-lived opaque handle standing in for direct
// credential exposure. Resolution re-derives a fresh token through the
// lifecycle manager; the snapshot below records what was acquirable at
// connect time, never material to be served verbatim.
type Session struct {
	ID       string `json:"id"`
	Tenant   string `json:"tenant"`
	Provider string `json:"provider"`

	// TokenTypes lists the token types successfully acquired when the
	// session was created. Partial acquisition is allowed.
	TokenTypes []providers.TokenType `json:"token_types"`

	AccountKey string    `json:"account_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsExpired reports whether the handle's own TTL has elapsed. The session
// clock and the token expiry clock are deliberately separate.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasTokenType reports whether the snapshot includes the given type.
func (s *Session) HasTokenType(tokenType providers.TokenType) bool {
	for _, t := range s.TokenTypes {
		if t == tokenType {
			return true
		}
	}
	return false
}

// NewID generates an unguessable session identifier of byteLength random
// bytes, hex encoded. Ids are never reused.
func NewID(byteLength int) (string, error) {
	idBytes := make([]byte, byteLength)
	if _, err := rand.Read(idBytes); err != nil {
		return "", errors.Wrap(err, "[sessions.NewID] rand.Read")
	}
	return hex.EncodeToString(idBytes), nil
}
