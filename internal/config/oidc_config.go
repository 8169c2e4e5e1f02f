package config

import "time"

type OidcConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetCookieSecret() string
	GetSessionCookieName() string
	GetSessionExpiresCookieName() string
	GetOidcScopes() []string
	GetFlowStateTimeout() time.Duration
}

type Oidc struct{}

var _ OidcConfig = Oidc{}

func (Oidc) GetIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "http://localhost:8081/realms/translation")
}

func (Oidc) GetClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "translation-gateway")
}

func (Oidc) GetClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

// GetCookieSecret returns the secret the session cookie is sealed with.
// Any string works; it is stretched to a 32-byte key before use.
func (Oidc) GetCookieSecret() string {
	return GetEnv("APP_SECRET", "dev-insecure-cookie-secret")
}

func (Oidc) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "session")
}

// GetSessionExpiresCookieName names the readable companion cookie carrying
// the refresh token expiry as epoch seconds.
func (Oidc) GetSessionExpiresCookieName() string {
	return GetEnv("SESSION_EXPIRES_COOKIE_NAME", "session-expires")
}

func (Oidc) GetOidcScopes() []string {
	return []string{"openid", "profile", "email", "offline_access"}
}

// GetFlowStateTimeout bounds how long a login flow (state/nonce/verifier)
// may sit between /login and the callback.
func (Oidc) GetFlowStateTimeout() time.Duration {
	return 15 * time.Minute
}
