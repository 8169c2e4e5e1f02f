package config

type Config interface {
	EnvConfig
	CorsConfig
	OidcConfig
	RedirectConfig
	ProxyConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Oidc
	Redirects
	Proxy
}

func New() Config {
	return mainConfig{}
}
