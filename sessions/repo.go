package sessions

import (
	"context"
	"time"
)

// Repo stores session handles with a per-key TTL. The backing store's
// expiry mechanism must be atomic; expired handles and deleted handles
// are indistinguishable to callers.
type Repo interface {
	// Create stores a new handle with the given time-to-live.
	Create(ctx context.Context, session *Session, ttl time.Duration) error

	// Get returns the handle, or internal/errors.ErrSessionNotFound when
	// it is absent or its TTL has elapsed.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes the handle idempotently, reporting whether anything
	// was actually deleted.
	Delete(ctx context.Context, sessionID string) (bool, error)
}
