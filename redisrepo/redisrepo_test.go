package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/errors"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/redisrepo"
	"github.com/jrsteele09/go-credential-broker/server/authflowrepo"
	"github.com/jrsteele09/go-credential-broker/sessions"
	"github.com/jrsteele09/go-credential-broker/tenants"
)

func newTestStore(t *testing.T) (*redisrepo.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisrepo.NewWithClient(client, "brokertest"), mr
}

func testRecord(tokenType providers.TokenType) *credentials.TokenRecord {
	issuedAt := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	return &credentials.TokenRecord{
		AccessToken:    "access-" + string(tokenType),
		RefreshToken:   "refresh-" + string(tokenType),
		TokenType:      tokenType,
		Scopes:         []string{"voice-admin.v1.read"},
		IssuedAt:       issuedAt,
		ExpiresIn:      3600,
		AbsoluteExpiry: issuedAt.Add(55 * time.Minute),
		AccountKey:     "acct-1",
	}
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()

	t.Run("token roundtrip", func(t *testing.T) {
		store, _ := newTestStore(t)

		want := testRecord(providers.TokenTypeVoice)
		require.NoError(t, store.PutToken(ctx, "t1", "goto", want))

		got, err := store.GetToken(ctx, "t1", "goto", providers.TokenTypeVoice)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("missing token is ErrNotFound", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.GetToken(ctx, "t1", "goto", providers.TokenTypeAdmin)
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("put replaces rather than appends", func(t *testing.T) {
		store, _ := newTestStore(t)

		require.NoError(t, store.PutToken(ctx, "t1", "goto", testRecord(providers.TokenTypeAdmin)))
		replacement := testRecord(providers.TokenTypeAdmin)
		replacement.AccessToken = "second-write"
		require.NoError(t, store.PutToken(ctx, "t1", "goto", replacement))

		got, err := store.GetToken(ctx, "t1", "goto", providers.TokenTypeAdmin)
		require.NoError(t, err)
		require.Equal(t, "second-write", got.AccessToken)

		types, err := store.ListTokenTypes(ctx, "t1", "goto")
		require.NoError(t, err)
		require.Equal(t, []providers.TokenType{providers.TokenTypeAdmin}, types)
	})

	t.Run("cross tenant isolation", func(t *testing.T) {
		store, _ := newTestStore(t)

		require.NoError(t, store.PutToken(ctx, "t1", "goto", testRecord(providers.TokenTypeAdmin)))
		require.NoError(t, store.PutClientConfig(ctx, "t1", "goto", &credentials.ClientConfig{ClientID: "c1"}))

		_, err := store.GetToken(ctx, "t2", "goto", providers.TokenTypeAdmin)
		require.ErrorIs(t, err, errors.ErrNotFound)

		_, err = store.GetClientConfig(ctx, "t2", "goto")
		require.ErrorIs(t, err, errors.ErrNotFound)

		names, err := store.ListProviders(ctx, "t2")
		require.NoError(t, err)
		require.Empty(t, names)
	})

	t.Run("client config and settings roundtrip", func(t *testing.T) {
		store, _ := newTestStore(t)

		config := &credentials.ClientConfig{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			RedirectURI:  "https://broker.example.com/auth/callback",
			Scopes:       []string{"voice-admin.v1.read"},
		}
		require.NoError(t, store.PutClientConfig(ctx, "t1", "goto", config))

		gotConfig, err := store.GetClientConfig(ctx, "t1", "goto")
		require.NoError(t, err)
		require.Equal(t, config, gotConfig)

		settings := &credentials.ProviderSettings{
			Status:      credentials.StatusActive,
			SyncEnabled: true,
			AccountKey:  "acct-override",
		}
		require.NoError(t, store.PutSettings(ctx, "t1", "goto", settings))

		gotSettings, err := store.GetSettings(ctx, "t1", "goto")
		require.NoError(t, err)
		require.Equal(t, settings, gotSettings)
	})

	t.Run("list providers and token types", func(t *testing.T) {
		store, _ := newTestStore(t)

		require.NoError(t, store.PutClientConfig(ctx, "t1", "goto", &credentials.ClientConfig{ClientID: "c1"}))
		require.NoError(t, store.PutToken(ctx, "t1", "goto", testRecord(providers.TokenTypeVoice)))
		require.NoError(t, store.PutToken(ctx, "t1", "goto", testRecord(providers.TokenTypeAdmin)))
		require.NoError(t, store.PutClientConfig(ctx, "t1", "zoom", &credentials.ClientConfig{ClientID: "c2"}))

		names, err := store.ListProviders(ctx, "t1")
		require.NoError(t, err)
		require.Equal(t, []string{"goto", "zoom"}, names)

		types, err := store.ListTokenTypes(ctx, "t1", "goto")
		require.NoError(t, err)
		require.Equal(t, []providers.TokenType{providers.TokenTypeAdmin, providers.TokenTypeVoice}, types)
	})

	t.Run("delete provider removes everything for the pair", func(t *testing.T) {
		store, _ := newTestStore(t)

		require.NoError(t, store.PutClientConfig(ctx, "t1", "goto", &credentials.ClientConfig{ClientID: "c1"}))
		require.NoError(t, store.PutToken(ctx, "t1", "goto", testRecord(providers.TokenTypeAdmin)))
		require.NoError(t, store.DeleteProvider(ctx, "t1", "goto"))

		_, err := store.GetClientConfig(ctx, "t1", "goto")
		require.ErrorIs(t, err, errors.ErrNotFound)
		_, err = store.GetToken(ctx, "t1", "goto", providers.TokenTypeAdmin)
		require.ErrorIs(t, err, errors.ErrNotFound)

		names, err := store.ListProviders(ctx, "t1")
		require.NoError(t, err)
		require.Empty(t, names)
	})
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()

	newSession := func(id string) *sessions.Session {
		createdAt := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
		return &sessions.Session{
			ID:         id,
			Tenant:     "t1",
			Provider:   "goto",
			TokenTypes: []providers.TokenType{providers.TokenTypeAdmin},
			CreatedAt:  createdAt,
			ExpiresAt:  createdAt.Add(5 * time.Minute),
		}
	}

	t.Run("create and get within ttl", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.Sessions()

		want := newSession("sess-1")
		require.NoError(t, repo.Create(ctx, want, 5*time.Minute))

		got, err := repo.Get(ctx, "sess-1")
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("ttl elapse removes the handle", func(t *testing.T) {
		store, mr := newTestStore(t)
		repo := store.Sessions()

		require.NoError(t, repo.Create(ctx, newSession("sess-1"), 5*time.Minute))
		mr.FastForward(5*time.Minute + time.Second)

		_, err := repo.Get(ctx, "sess-1")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.Sessions()

		require.NoError(t, repo.Create(ctx, newSession("sess-1"), 5*time.Minute))

		deleted, err := repo.Delete(ctx, "sess-1")
		require.NoError(t, err)
		require.True(t, deleted)

		deleted, err = repo.Delete(ctx, "sess-1")
		require.NoError(t, err)
		require.False(t, deleted)

		_, err = repo.Get(ctx, "sess-1")
		require.ErrorIs(t, err, errors.ErrSessionNotFound)
	})
}

func TestTenantRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip and list", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.Tenants()

		require.NoError(t, repo.Upsert(ctx, &tenants.Tenant{ID: "t2", Name: "Tenant Two"}))
		require.NoError(t, repo.Upsert(ctx, &tenants.Tenant{ID: "t1", Name: "Tenant One", PrimaryProvider: "goto"}))

		got, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		require.Equal(t, "Tenant One", got.Name)
		require.Equal(t, "goto", got.PrimaryProvider)

		listed, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		require.Equal(t, "t1", listed[0].ID)
		require.Equal(t, "t2", listed[1].ID)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Tenants().Get(ctx, "missing")
		require.ErrorIs(t, err, errors.ErrTenantNotFound)
	})

	t.Run("delete removes from index", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.Tenants()

		require.NoError(t, repo.Upsert(ctx, &tenants.Tenant{ID: "t1"}))
		require.NoError(t, repo.Delete(ctx, "t1"))

		listed, err := repo.List(ctx)
		require.NoError(t, err)
		require.Empty(t, listed)
	})
}

func TestAuthStateRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("take is one shot", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.AuthStates()

		state := &authflowrepo.State{Tenant: "t1", Provider: "goto"}
		require.NoError(t, repo.Create(ctx, "state-1", state, 10*time.Minute))

		got, err := repo.Take(ctx, "state-1")
		require.NoError(t, err)
		require.Equal(t, "t1", got.Tenant)
		require.Equal(t, "goto", got.Provider)

		_, err = repo.Take(ctx, "state-1")
		require.ErrorIs(t, err, errors.ErrStateNotFound)
	})

	t.Run("states are never overwritten", func(t *testing.T) {
		store, _ := newTestStore(t)
		repo := store.AuthStates()

		require.NoError(t, repo.Create(ctx, "state-1", &authflowrepo.State{Tenant: "t1"}, 10*time.Minute))
		err := repo.Create(ctx, "state-1", &authflowrepo.State{Tenant: "t2"}, 10*time.Minute)
		require.ErrorIs(t, err, errors.ErrInvalidState)
	})

	t.Run("expired state is gone", func(t *testing.T) {
		store, mr := newTestStore(t)
		repo := store.AuthStates()

		require.NoError(t, repo.Create(ctx, "state-1", &authflowrepo.State{Tenant: "t1"}, 10*time.Minute))
		mr.FastForward(11 * time.Minute)

		_, err := repo.Take(ctx, "state-1")
		require.ErrorIs(t, err, errors.ErrStateNotFound)
	})
}
