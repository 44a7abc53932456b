package oauthclient

import "fmt"

// RefreshError describes a failed token endpoint call. Transient failures
// (network errors, 5xx responses, malformed bodies) are safe for the
// caller to retry with backoff; non-transient failures mean the grant
// itself was rejected and retrying without reauthorization cannot succeed.
type RefreshError struct {
	// StatusCode is zero when the request never produced a response.
	StatusCode int

	// Code is the OAuth error code from the response body, when present.
	Code string

	Transient bool
	Err       error
}

func (e *RefreshError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("token request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("token endpoint returned %d: %v", e.StatusCode, e.Err)
	case e.Code != "":
		return fmt.Sprintf("token endpoint returned %d (%s)", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
	}
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
