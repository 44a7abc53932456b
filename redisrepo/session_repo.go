package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

// SessionRepo stores session handles with a per-key TTL.
type SessionRepo struct {
	core
}

// Create stores a session handle under its id with an atomic
// set-with-expiry, so TTL elapse needs no sweeper of its own.
func (sr *SessionRepo) Create(ctx context.Context, session *sessions.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "[SessionRepo.Create] marshal session %s", session.ID)
	}
	if err := sr.client.Set(ctx, sr.sessionKey(session.ID), data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "[SessionRepo.Create] session %s", session.ID)
	}
	return nil
}

// Get returns the handle. An expired handle and a disconnected handle are
// indistinguishable: both are simply gone.
func (sr *SessionRepo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	data, err := sr.client.Get(ctx, sr.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, errors.Wrapf(err, "[SessionRepo.Get] session %s", sessionID)
	}

	var session sessions.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(err, "[SessionRepo.Get] unmarshal session %s", sessionID)
	}
	return &session, nil
}

// Delete removes the handle idempotently.
func (sr *SessionRepo) Delete(ctx context.Context, sessionID string) (bool, error) {
	deleted, err := sr.client.Del(ctx, sr.sessionKey(sessionID)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "[SessionRepo.Delete] session %s", sessionID)
	}
	return deleted > 0, nil
}
