package server_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/server"
)

// noRedirectClient stops at the first redirect so the Location header
// pointing at the upstream authorize endpoint can be inspected.
var noRedirectClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func (f *fixture) startAuthorize(t *testing.T, query string) *http.Response {
	t.Helper()
	resp, err := noRedirectClient.Get(f.server.URL + server.RouteAuthAuthorizeStart + query)
	require.NoError(t, err)
	return resp
}

func TestAuthorizeStart(t *testing.T) {
	t.Run("redirects to the provider authorize endpoint", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")

		resp := f.startAuthorize(t, "?tenant=t1&app=goto")
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "authentication.logmeininc.com", location.Host)

		query := location.Query()
		require.NotEmpty(t, query.Get("state"))
		require.Equal(t, "client-1", query.Get("client_id"))
		require.Equal(t, "code", query.Get("response_type"))
		require.Equal(t, "offline", query.Get("access_type"))
		require.True(t, strings.HasSuffix(query.Get("redirect_uri"), server.RouteAuthCallback))
	})

	t.Run("tenant is required", func(t *testing.T) {
		f := newFixture(t)

		resp := f.startAuthorize(t, "")
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := newFixture(t)

		resp := f.startAuthorize(t, "?tenant=nobody")
		defer resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unprovisioned pair", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")

		resp := f.startAuthorize(t, "?tenant=t1&app=goto")
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestAuthCallback(t *testing.T) {
	t.Run("completes the code exchange and stores the record", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")

		start := f.startAuthorize(t, "?tenant=t1&app=goto")
		start.Body.Close()
		location, err := url.Parse(start.Header.Get("Location"))
		require.NoError(t, err)
		state := location.Query().Get("state")
		require.NotEmpty(t, state)

		resp := f.get(t, server.RouteAuthCallback+"?code=test-code&state="+state)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		require.Equal(t, "authorized", body["status"])
		require.Equal(t, "t1", body["tenant"])
		require.Equal(t, "voice", body["token_type"])

		// The granted scope classified the token onto the voice surface.
		record, err := f.store.GetToken(context.Background(), "t1", "goto", providers.TokenTypeVoice)
		require.NoError(t, err)
		require.Equal(t, "refreshed-access", record.AccessToken)
		require.Equal(t, "rotated-refresh", record.RefreshToken)
		require.WithinDuration(t, time.Now().Add(55*time.Minute), record.AbsoluteExpiry, 5*time.Second)
	})

	t.Run("state is one-shot", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")

		start := f.startAuthorize(t, "?tenant=t1&app=goto")
		start.Body.Close()
		location, err := url.Parse(start.Header.Get("Location"))
		require.NoError(t, err)
		state := location.Query().Get("state")

		first := f.get(t, server.RouteAuthCallback+"?code=test-code&state="+state)
		first.Body.Close()
		require.Equal(t, http.StatusOK, first.StatusCode)

		replay := f.get(t, server.RouteAuthCallback+"?code=test-code&state="+state)
		require.Equal(t, http.StatusBadRequest, replay.StatusCode)
		require.Equal(t, "invalid_state", decodeBody(t, replay)["error"])
	})

	t.Run("unknown state", func(t *testing.T) {
		f := newFixture(t)

		resp := f.get(t, server.RouteAuthCallback+"?code=test-code&state=never-issued")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_state", decodeBody(t, resp)["error"])
	})

	t.Run("denied upstream", func(t *testing.T) {
		f := newFixture(t)

		resp := f.get(t, server.RouteAuthCallback+"?error=access_denied")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "authorization_denied", decodeBody(t, resp)["error"])
	})

	t.Run("code and state are required", func(t *testing.T) {
		f := newFixture(t)

		resp := f.get(t, server.RouteAuthCallback+"?code=test-code")
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("failed exchange maps to 502", func(t *testing.T) {
		f := newFixture(t)
		f.seedTenant(t, "t1")
		f.seedClientConfig(t, "t1")
		f.upstreamStatus.Store(http.StatusBadRequest)

		start := f.startAuthorize(t, "?tenant=t1&app=goto")
		start.Body.Close()
		location, err := url.Parse(start.Header.Get("Location"))
		require.NoError(t, err)
		state := location.Query().Get("state")

		resp := f.get(t, server.RouteAuthCallback+"?code=test-code&state="+state)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		require.Equal(t, "exchange_failed", decodeBody(t, resp)["error"])
	})
}
