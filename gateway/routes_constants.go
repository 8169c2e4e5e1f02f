package gateway

// Public routes served by the gateway itself. Everything else is a proxy
// route configured through ProxyConfig.
const (
	RouteLogin         = "/login"
	RouteLogout        = "/logout"
	RouteCallback      = "/callback"
	RouteContext       = "/context"
	RouteSwitchContext = "/switch-context"
	RouteHealthz       = "/healthz"
)
