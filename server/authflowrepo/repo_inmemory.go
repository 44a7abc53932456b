package authflowrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory Repo for tests and single-node
// development. Production deployments use the Redis-backed implementation
// so callbacks can land on any instance.
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]entry
	nowFunc func() time.Time
}

type entry struct {
	state     State
	expiresAt time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]entry),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock, so TTL tests never sleep.
func (r *InMemoryRepo) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = now
}

func (r *InMemoryRepo) Create(_ context.Context, state string, authState *State, ttl time.Duration) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInvalidState, "empty state")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state] = entry{state: *authState, expiresAt: r.nowFunc().Add(ttl)}
	return nil
}

func (r *InMemoryRepo) Take(_ context.Context, state string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.states[state]
	if !ok {
		return nil, errors.ErrStateNotFound
	}
	delete(r.states, state)

	if !r.nowFunc().Before(stored.expiresAt) {
		return nil, errors.ErrStateNotFound
	}
	copied := stored.state
	return &copied, nil
}
