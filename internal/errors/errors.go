package errors

import (
	"errors"
	"fmt"
)

// Common error types for the credential broker
var (
	// Credential errors
	ErrNotFound                = errors.New("not found")
	ErrMissingCredentials      = errors.New("credentials not provisioned")
	ErrReauthorizationRequired = errors.New("reauthorization required")

	// Tenant and provider errors
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrProviderInactive = errors.New("provider inactive")
	ErrUnknownTokenType = errors.New("unknown token type")

	// Session errors
	ErrSessionNotFound = errors.New("session not found or expired")

	// Authorization flow errors
	ErrStateNotFound = errors.New("authorization state not found or expired")
	ErrInvalidState  = errors.New("invalid authorization state")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
