package tenants

// Tenant represents an organization the broker holds credentials for.
// Every credential and session is scoped to exactly one tenant.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// PrimaryProvider is the provider a connect request defaults to when
	// the caller names none.
	PrimaryProvider string `json:"primary_provider,omitempty"`

	SyncStrategy      string `json:"sync_strategy,omitempty"`
	DataRetentionDays int    `json:"data_retention_days,omitempty"`
	Timezone          string `json:"timezone,omitempty"`
}
