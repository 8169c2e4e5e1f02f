// Package gateway implements the authenticated reverse-proxy gateway: OIDC
// authorization-code login, sealed-cookie sessions, silent token refresh,
// institution switching, and per-service reverse proxying.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tolkbron/translation-gateway/gateway/flowstate"
	"github.com/tolkbron/translation-gateway/gateway/sessioncookie"
	"github.com/tolkbron/translation-gateway/internal/config"
)

// OidcConfig bundles everything the gateway needs from the identity provider.
// Production code obtains one via Discover; tests build one against a fake
// provider directly.
type OidcConfig struct {
	OAuth2Config  *oauth2.Config
	Verifier      *oidc.IDTokenVerifier
	EndSessionURL string
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	oidc       OidcConfig
	cookies    *sessioncookie.Store
	flows      flowstate.Repo
	refresher  *TokenRefresher
	limiter    *RateLimiter
	httpClient *http.Client
	log        zerolog.Logger
	nowTime    func() time.Time
}

// Option modifies a Server during construction.
type Option func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithHTTPClient overrides the client used for direct token-endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) {
		s.httpClient = client
	}
}

func New(cfg config.Config, oidcCfg OidcConfig, opts ...Option) (*Server, error) {
	if oidcCfg.OAuth2Config == nil {
		return nil, fmt.Errorf("[Server New] oauth2 config is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     cfg,
		oidc:       oidcCfg,
		cookies:    sessioncookie.NewStore(cfg.GetCookieSecret(), cfg.GetSessionCookieName(), cfg.GetSessionExpiresCookieName()),
		flows:      flowstate.NewInMemoryRepo(),
		limiter:    NewRateLimiter(rate.Limit(5), 10),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        zerolog.Nop(),
		nowTime:    time.Now,
	}
	s.env = cfg.GetEnv()

	for _, opt := range opts {
		opt(s)
	}

	s.refresher = NewTokenRefresher(oidcCfg.OAuth2Config, s.log)

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise routes: %w", err)
	}
	s.logRoutes()

	return s, nil
}

// Discover resolves the identity provider's endpoints through OIDC discovery
// and builds the gateway's OidcConfig from it.
func Discover(ctx context.Context, cfg config.Config) (OidcConfig, error) {
	provider, err := oidc.NewProvider(ctx, cfg.GetIssuerURL())
	if err != nil {
		return OidcConfig{}, fmt.Errorf("[Discover] failed to create OIDC provider: %w", err)
	}

	// end_session_endpoint is outside the fields go-oidc exposes directly
	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return OidcConfig{}, fmt.Errorf("[Discover] failed to read discovery document: %w", err)
	}

	return OidcConfig{
		OAuth2Config: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.GetBaseURL() + RouteCallback,
			Scopes:       cfg.GetOidcScopes(),
		},
		Verifier: provider.Verifier(&oidc.Config{
			ClientID: cfg.GetClientID(),
		}),
		EndSessionURL: extra.EndSessionEndpoint,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases the server's background resources (the rate limiter's
// cleanup goroutine). Call after the HTTP server has shut down.
func (s *Server) Close() {
	s.limiter.Close()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		s.log.Debug().Str("route", route).Msg("registered route")
	}
}

func (s *Server) proxyRoutes() ([]ProxyRoute, error) {
	upstreams := s.config.GetProxyUpstreams()
	routes := make([]ProxyRoute, 0, len(upstreams))
	for _, upstream := range upstreams {
		target, err := url.Parse(upstream.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("[Server proxyRoutes] invalid upstream %q: %w", upstream.UpstreamURL, err)
		}
		routes = append(routes, ProxyRoute{
			PathPrefix: upstream.PathPrefix,
			Upstream:   target,
		})
	}
	return routes, nil
}

// validatedRedirectURI returns the requested redirect target when it is on
// the allow-list, otherwise the configured default.
func (s *Server) validatedRedirectURI(requested string) string {
	if requested != "" && s.config.GetAllowedRedirectURIs().IsAllowed(requested) {
		return requested
	}
	return s.config.GetDefaultRedirectURI()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
