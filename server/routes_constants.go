package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth = "/health"

	// Administrative session lifecycle
	RouteAuthConnect    = "/auth/connect"
	RouteAuthStatus     = "/auth/status"
	RouteAuthDisconnect = "/auth/disconnect"
	RouteAuthRefresh    = "/auth/refresh"

	// Bootstrap authorization-code flow
	RouteAuthAuthorizeStart = "/auth/authorize/start"
	RouteAuthCallback       = "/auth/callback"

	// Proxy surfaces (pattern wildcards capture the downstream path)
	RouteAdminProxy = "/admin-proxy/{path...}"
	RouteVoiceProxy = "/voice-proxy/{path...}"
	RouteScimProxy  = "/scim-proxy/{path...}"
)

// HeaderSessionID carries a session handle on proxied requests.
const HeaderSessionID = "X-Session-Id"

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-Id"
