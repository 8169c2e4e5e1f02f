package gateway

import "net/http"

func (s *Server) initRoutes() error {
	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())

	// AUTH FLOW
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.AuthFlowMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.AuthFlowMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.AuthFlowMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.AuthFlowMiddleware()...)) // For form_post response mode

	// SESSION API
	s.RegisterRouteHandler("GET "+RouteContext, ChainMiddleware(s.ContextHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSwitchContext, ChainMiddleware(s.SwitchContextHandler(), append(s.APIMiddleware(), s.RequireSession)...))

	// PROXY ROUTES: every backend service sits behind a valid, unexpired session
	routes, err := s.proxyRoutes()
	if err != nil {
		return err
	}
	for _, route := range routes {
		s.RegisterRouteHandler(route.PathPrefix+"/", ChainMiddleware(s.ProxyHandler(route), s.ProxyMiddleware()...))
	}

	return nil
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
