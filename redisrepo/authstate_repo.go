package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/server/authflowrepo"
)

var _ authflowrepo.Repo = (*AuthStateRepo)(nil)

// AuthStateRepo stores pending authorization states with a TTL. States
// are one-shot: Take removes the key atomically with the read, so a
// replayed callback cannot reuse one.
type AuthStateRepo struct {
	core
}

func (ar *AuthStateRepo) Create(ctx context.Context, state string, authState *authflowrepo.State, ttl time.Duration) error {
	if state == "" {
		return errors.Wrapf(errors.ErrInvalidState, "[AuthStateRepo.Create] empty state")
	}
	data, err := json.Marshal(authState)
	if err != nil {
		return errors.Wrapf(err, "[AuthStateRepo.Create] marshal state")
	}

	// SetNX: a state value is written exactly once, never overwritten.
	set, err := ar.client.SetNX(ctx, ar.authStateKey(state), data, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "[AuthStateRepo.Create] state")
	}
	if !set {
		return errors.Wrapf(errors.ErrInvalidState, "[AuthStateRepo.Create] state already exists")
	}
	return nil
}

func (ar *AuthStateRepo) Take(ctx context.Context, state string) (*authflowrepo.State, error) {
	data, err := ar.client.GetDel(ctx, ar.authStateKey(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrStateNotFound
		}
		return nil, errors.Wrapf(err, "[AuthStateRepo.Take] state")
	}

	var authState authflowrepo.State
	if err := json.Unmarshal(data, &authState); err != nil {
		return nil, errors.Wrapf(err, "[AuthStateRepo.Take] unmarshal state")
	}
	return &authState, nil
}
