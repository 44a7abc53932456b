package config

const adminKeyHashEnvVar = "ADMIN_API_KEY_HASH"

type SecurityConfig interface {
	GetAdminAPIKeyHash() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAdminAPIKeyHash returns the bcrypt hash of the key required on the
// administrative routes. Empty means the admin surface is unprotected,
// which is only acceptable for local development.
func (Security) GetAdminAPIKeyHash() string {
	return GetEnv(adminKeyHashEnvVar, "")
}
