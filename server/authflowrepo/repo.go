package authflowrepo

import (
	"context"
	"time"
)

// State is what the broker remembers between redirecting a browser to the
// upstream authorize endpoint and receiving the callback: which composite
// key the resulting tokens belong to.
type State struct {
	Tenant    string    `json:"tenant"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo stores pending authorization states keyed by the opaque state
// parameter. States are one-shot: Take returns a state at most once, so a
// replayed callback fails state validation.
type Repo interface {
	// Create stores a pending state with a time-to-live.
	Create(ctx context.Context, state string, authState *State, ttl time.Duration) error

	// Take returns the state and removes it atomically, or
	// internal/errors.ErrStateNotFound when it is absent or expired.
	Take(ctx context.Context, state string) (*State, error)
}
