package oauthclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-credential-broker/oauthclient"
)

func TestClient_Refresh(t *testing.T) {
	t.Run("successful refresh", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)

			clientID, clientSecret, ok := r.BasicAuth()
			require.True(t, ok)
			require.Equal(t, "client-1", clientID)
			require.Equal(t, "secret-1", clientSecret)

			require.NoError(t, r.ParseForm())
			require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			require.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600,"scope":"voice-admin.v1.read"}`))
		}))
		defer upstream.Close()

		client := oauthclient.New()
		resp, err := client.Refresh(context.Background(), upstream.URL, "client-1", "secret-1", "old-refresh")
		require.NoError(t, err)
		require.Equal(t, "new-access", resp.AccessToken)
		require.Equal(t, "new-refresh", resp.RefreshToken)
		require.Equal(t, int64(3600), resp.ExpiresIn)
		require.Equal(t, []string{"voice-admin.v1.read"}, resp.ScopeList())
	})

	t.Run("rotated refresh token omitted", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"new-access","expires_in":3600}`))
		}))
		defer upstream.Close()

		client := oauthclient.New()
		resp, err := client.Refresh(context.Background(), upstream.URL, "c", "s", "old-refresh")
		require.NoError(t, err)
		require.Empty(t, resp.RefreshToken)
	})

	t.Run("4xx is rejected", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"token revoked"}`))
		}))
		defer upstream.Close()

		client := oauthclient.New()
		_, err := client.Refresh(context.Background(), upstream.URL, "c", "s", "revoked")
		require.Error(t, err)

		var refreshErr *oauthclient.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		require.False(t, refreshErr.Transient)
		require.Equal(t, http.StatusBadRequest, refreshErr.StatusCode)
		require.Equal(t, "invalid_grant", refreshErr.Code)
		require.NotContains(t, refreshErr.Error(), "token revoked")
	})

	t.Run("5xx is transient", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer upstream.Close()

		client := oauthclient.New()
		_, err := client.Refresh(context.Background(), upstream.URL, "c", "s", "rt")
		var refreshErr *oauthclient.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		require.True(t, refreshErr.Transient)
	})

	t.Run("unreachable endpoint is transient", func(t *testing.T) {
		client := oauthclient.New()
		_, err := client.Refresh(context.Background(), "http://127.0.0.1:1", "c", "s", "rt")
		var refreshErr *oauthclient.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		require.True(t, refreshErr.Transient)
		require.Zero(t, refreshErr.StatusCode)
	})

	t.Run("malformed body is transient", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer upstream.Close()

		client := oauthclient.New()
		_, err := client.Refresh(context.Background(), upstream.URL, "c", "s", "rt")
		var refreshErr *oauthclient.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		require.True(t, refreshErr.Transient)
	})

	t.Run("missing access token is transient", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"expires_in":3600}`))
		}))
		defer upstream.Close()

		client := oauthclient.New()
		_, err := client.Refresh(context.Background(), upstream.URL, "c", "s", "rt")
		var refreshErr *oauthclient.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		require.True(t, refreshErr.Transient)
	})
}
