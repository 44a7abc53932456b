package config

import "time"

type OAuthConfig interface {
	GetRefreshBuffer() time.Duration
	GetSessionTTL() time.Duration
	GetUpstreamTimeout() time.Duration
	GetAuthStateTimeout() time.Duration
	GetSessionIDLength() int
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetRefreshBuffer is the safety margin subtracted from a token's nominal
// lifetime so refresh happens before the upstream server would reject it.
func (OAuth) GetRefreshBuffer() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetSessionTTL() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetUpstreamTimeout() time.Duration {
	return 10 * time.Second
}

func (OAuth) GetAuthStateTimeout() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetSessionIDLength() int {
	return 32 // 32 bytes = 256 bits
}
