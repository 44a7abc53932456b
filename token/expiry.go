package token

import (
	"time"

	"github.com/jrsteele09/go-credential-broker/credentials"
)

// DefaultRefreshBuffer is the safety margin subtracted from a token's
// nominal lifetime, so a record goes stale before the upstream server
// would actually start rejecting the token.
const DefaultRefreshBuffer = 5 * time.Minute

// expiryClaimTolerance is how far the reported expires_in may drift from
// the exp claim embedded in the token itself before the claim wins.
const expiryClaimTolerance = time.Minute

// ComputeExpiry converts an issuance instant and a raw lifetime into the
// buffered absolute expiry. The result is clamped to issuedAt: a lifetime
// at or below the buffer yields an expiry that has already elapsed,
// forcing refresh on first use instead of a negative-duration anomaly.
func ComputeExpiry(issuedAt time.Time, expiresInSeconds int64, buffer time.Duration) time.Time {
	expiry := issuedAt.Add(time.Duration(expiresInSeconds) * time.Second).Add(-buffer)
	if expiry.Before(issuedAt) {
		return issuedAt
	}
	return expiry
}

// IsExpired reports whether the record's buffered expiry has passed.
func IsExpired(record *credentials.TokenRecord, now time.Time) bool {
	return !now.Before(record.AbsoluteExpiry)
}

// EffectiveExpiresIn reconciles the expires_in reported in a token
// response with the exp claim carried by the access token itself. The
// embedded claim is authoritative when the two disagree by more than a
// small tolerance. Tokens that are not decodable JWTs fall back to the
// reported value silently.
func EffectiveExpiresIn(rawToken string, issuedAt time.Time, reportedSeconds int64) int64 {
	claims, ok := DecodeClaims(rawToken)
	if !ok || claims.ExpiresAt.IsZero() {
		return reportedSeconds
	}
	claimedSeconds := int64(claims.ExpiresAt.Sub(issuedAt) / time.Second)
	diff := claimedSeconds - reportedSeconds
	if diff < 0 {
		diff = -diff
	}
	if time.Duration(diff)*time.Second > expiryClaimTolerance {
		return claimedSeconds
	}
	return reportedSeconds
}
