package oauthclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-credential-broker/oauth2"
)

// DefaultTimeout bounds every token endpoint call so a stalled upstream
// authorization server can never block a resolution indefinitely.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a token endpoint response is read.
const maxResponseBytes = 1 << 20

// Client performs token endpoint requests against an upstream
// authorization server using Basic client authentication.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout applied when the caller's
// context carries no deadline of its own.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a token endpoint client.
func New(options ...ClientOption) *Client {
	c := &Client{timeout: DefaultTimeout}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Refresh obtains a new access token using a stored refresh token.
func (c *Client) Refresh(ctx context.Context, tokenURL, clientID, clientSecret, refreshToken string) (*oauth2.TokenResponse, error) {
	data := url.Values{
		"grant_type":    {string(oauth2.RefreshTokenGrant)},
		"refresh_token": {refreshToken},
	}
	return c.doTokenRequest(ctx, tokenURL, clientID, clientSecret, data)
}

// doTokenRequest performs a form-encoded POST against the token endpoint
// and classifies failures into transient and rejected refresh errors.
func (c *Client) doTokenRequest(ctx context.Context, tokenURL, clientID, clientSecret string, data url.Values) (*oauth2.TokenResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.doTokenRequest] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RefreshError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RefreshError{StatusCode: resp.StatusCode, Transient: true, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(resp.StatusCode, body)
	}

	var tokenResponse oauth2.TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, &RefreshError{StatusCode: resp.StatusCode, Transient: true, Err: errors.Wrap(err, "malformed token response")}
	}
	if tokenResponse.AccessToken == "" {
		return nil, &RefreshError{StatusCode: resp.StatusCode, Transient: true, Err: errors.New("token response missing access_token")}
	}
	return &tokenResponse, nil
}

// statusError builds a RefreshError from a non-2xx response. Only the
// standard OAuth error code is lifted from the body; descriptions are
// dropped because upstream error bodies can carry secrets.
func statusError(status int, body []byte) *RefreshError {
	refreshErr := &RefreshError{
		StatusCode: status,
		Transient:  status >= http.StatusInternalServerError,
	}
	var oauthError oauth2.ErrorResponse
	if err := json.Unmarshal(body, &oauthError); err == nil {
		refreshErr.Code = oauthError.Error
	}
	return refreshErr
}
