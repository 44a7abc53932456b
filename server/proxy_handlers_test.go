package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/server"
)

// capturedRequest is the last request the fake provider API received.
type capturedRequest struct {
	mu            sync.Mutex
	method        string
	path          string
	query         map[string][]string
	authorization string
	contentType   string
	body          string
}

func (c *capturedRequest) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = r.Method
	c.path = r.URL.Path
	c.query = r.URL.Query()
	c.authorization = r.Header.Get("Authorization")
	c.contentType = r.Header.Get("Content-Type")
	c.body = string(body)
}

// newProviderAPI stands up a fake provider API and points the pair's
// settings at it.
func (f *fixture) newProviderAPI(t *testing.T, tenant string) *capturedRequest {
	t.Helper()
	captured := &capturedRequest{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"v1"`)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(api.Close)

	err := f.store.PutSettings(context.Background(), tenant, "goto", &credentials.ProviderSettings{
		Status:     credentials.StatusActive,
		APIBaseURL: api.URL,
	})
	require.NoError(t, err)
	return captured
}

func TestProxy(t *testing.T) {
	t.Run("forwards with an injected bearer token", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeVoice, 3600, "refresh-voice")
		captured := f.newProviderAPI(t, "t1")
		sessionID := f.connect(t, "t1")

		resp, err := http.Post(
			f.server.URL+"/voice-proxy/extensions/123?session_id="+sessionID+"&limit=5",
			"application/json",
			strings.NewReader(`{"name":"x"}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Equal(t, `"v1"`, resp.Header.Get("ETag"))
		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"ok":true}`, string(payload))

		captured.mu.Lock()
		defer captured.mu.Unlock()
		require.Equal(t, http.MethodPost, captured.method)
		require.Equal(t, "/extensions/123", captured.path)
		require.Equal(t, "Bearer seeded-voice", captured.authorization)
		require.Equal(t, "application/json", captured.contentType)
		require.Equal(t, `{"name":"x"}`, captured.body)
		require.Equal(t, []string{"5"}, captured.query["limit"])
		require.NotContains(t, captured.query, "session_id")
	})

	t.Run("injects the account key on voice calls", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeVoice, 3600, "refresh-voice")
		captured := f.newProviderAPI(t, "t1")
		sessionID := f.connect(t, "t1")

		resp := f.get(t, "/voice-proxy/extensions?session_id="+sessionID)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		captured.mu.Lock()
		defer captured.mu.Unlock()
		require.Equal(t, []string{"acct-1"}, captured.query["accountKey"])
	})

	t.Run("caller supplied account key wins", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeVoice, 3600, "refresh-voice")
		captured := f.newProviderAPI(t, "t1")
		sessionID := f.connect(t, "t1")

		resp := f.get(t, "/voice-proxy/extensions?session_id="+sessionID+"&accountKey=custom")
		resp.Body.Close()

		captured.mu.Lock()
		defer captured.mu.Unlock()
		require.Equal(t, []string{"custom"}, captured.query["accountKey"])
	})

	t.Run("admin surface carries no account key", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeAdmin, 3600, "refresh-admin")
		captured := f.newProviderAPI(t, "t1")

		// Direct mode: no session, the pair named in the query.
		resp := f.get(t, "/admin-proxy/users?tenant=t1&app=goto")
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		captured.mu.Lock()
		defer captured.mu.Unlock()
		require.Equal(t, "/users", captured.path)
		require.Equal(t, "Bearer seeded-admin", captured.authorization)
		require.NotContains(t, captured.query, "accountKey")
		require.NotContains(t, captured.query, "tenant")
		require.NotContains(t, captured.query, "app")
	})

	t.Run("session handle in the header", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeVoice, 3600, "refresh-voice")
		captured := f.newProviderAPI(t, "t1")
		sessionID := f.connect(t, "t1")

		req, err := http.NewRequest(http.MethodGet, f.server.URL+"/voice-proxy/extensions", nil)
		require.NoError(t, err)
		req.Header.Set(server.HeaderSessionID, sessionID)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		captured.mu.Lock()
		defer captured.mu.Unlock()
		require.Equal(t, "Bearer seeded-voice", captured.authorization)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)

		resp := f.get(t, "/voice-proxy/extensions?session_id=deadbeef")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "session_invalid", decodeBody(t, resp)["error"])
	})

	t.Run("unreachable provider API maps to 502", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.seedToken(t, "t1", providers.TokenTypeVoice, 3600, "refresh-voice")

		api := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		err := f.store.PutSettings(context.Background(), "t1", "goto", &credentials.ProviderSettings{
			Status:     credentials.StatusActive,
			APIBaseURL: api.URL,
		})
		require.NoError(t, err)
		sessionID := f.connect(t, "t1")
		api.Close()

		resp := f.get(t, "/voice-proxy/extensions?session_id="+sessionID)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		require.Equal(t, "upstream_unavailable", decodeBody(t, resp)["error"])
	})
}
