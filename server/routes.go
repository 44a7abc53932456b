package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Administrative session lifecycle
	s.RegisterRouteHandler("POST "+RouteAuthConnect, ChainMiddleware(s.ConnectHandler(), s.APIMiddleware(s.AdminAuthMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAuthStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware(s.AdminAuthMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthDisconnect, ChainMiddleware(s.DisconnectHandler(), s.APIMiddleware(s.AdminAuthMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.AdminAuthMiddleware)...))

	// Bootstrap authorization-code flow. The callback carries no admin
	// key: the upstream authorization server redirects a browser here.
	s.RegisterRouteHandler("GET "+RouteAuthAuthorizeStart, ChainMiddleware(s.AuthorizeStartHandler(), s.APIMiddleware(s.AdminAuthMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.APIMiddleware()...))

	// Proxy surfaces: registered without a method so every verb forwards.
	s.RegisterRouteHandler(RouteAdminProxy, ChainMiddleware(s.ProxyHandler(adminSurface), s.APIMiddleware()...))
	s.RegisterRouteHandler(RouteVoiceProxy, ChainMiddleware(s.ProxyHandler(voiceSurface), s.APIMiddleware()...))
	s.RegisterRouteHandler(RouteScimProxy, ChainMiddleware(s.ProxyHandler(scimSurface), s.APIMiddleware()...))
}
