package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests. The clock is
// injectable so TTL elapse can be simulated without sleeping.
type FakeSessionRepo struct {
	sessions map[string]fakeEntry
	lock     sync.RWMutex

	// NowFunc defaults to time.Now.
	NowFunc func() time.Time
}

type fakeEntry struct {
	session   sessions.Session
	expiresAt time.Time
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]fakeEntry),
		NowFunc:  time.Now,
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, session *sessions.Session, ttl time.Duration) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.sessions[session.ID] = fakeEntry{
		session:   *session,
		expiresAt: sr.NowFunc().Add(ttl),
	}
	return nil
}

func (sr *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	stored, ok := sr.sessions[sessionID]
	if !ok || !sr.NowFunc().Before(stored.expiresAt) {
		return nil, errors.ErrSessionNotFound
	}
	copied := stored.session
	return &copied, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, sessionID string) (bool, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	_, ok := sr.sessions[sessionID]
	delete(sr.sessions, sessionID)
	return ok, nil
}
