package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// ProxyRoute is a static mapping from a public path prefix to an upstream
// backend service.
type ProxyRoute struct {
	PathPrefix string
	Upstream   *url.URL
}

// ProxyHandler reverse-proxies authenticated requests to a backend service.
// The route prefix is stripped, the gateway's cookies never leave the
// gateway, and the session's access token rides along as a bearer token.
// Upstream CORS headers are scrubbed from the response: the gateway, not the
// upstream, is the CORS authority for the browser.
func (s *Server) ProxyHandler(route ProxyRoute) http.HandlerFunc {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = route.Upstream.Scheme
			pr.Out.URL.Host = route.Upstream.Host
			pr.Out.URL.Path = joinURLPath(route.Upstream.Path, strings.TrimPrefix(pr.In.URL.Path, route.PathPrefix))
			pr.Out.Host = route.Upstream.Host

			// The upstream must never see the gateway's session cookies.
			pr.Out.Header.Del("Cookie")

			if state, ok := pr.In.Context().Value(ContextKeySession).(*sessionState); ok && state != nil {
				pr.Out.Header.Set("Authorization", "Bearer "+state.Session.TokenSet.AccessToken)
			}

			pr.SetXForwarded()
		},
		ModifyResponse: scrubCorsHeaders,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.log.Error().Err(err).Str("path", r.URL.Path).Str("upstream", route.Upstream.String()).Msg("upstream request failed")
			writeJSONError(w, http.StatusBadGateway, "bad_gateway")
		},
	}
	return proxy.ServeHTTP
}

func scrubCorsHeaders(resp *http.Response) error {
	for name := range resp.Header {
		if strings.HasPrefix(strings.ToLower(name), "access-control-") {
			resp.Header.Del(name)
		}
	}
	return nil
}

func joinURLPath(base, path string) string {
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(base, "/") + path
}
