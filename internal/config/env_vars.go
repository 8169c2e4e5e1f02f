package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	envVar        = "ENV"
	defaultEnv    = "DEV"
	defaultPort   = "8080"
	defaultDomain = "http://localhost:8080"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, defaultPort)
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Translation Gateway")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, defaultEnv)
}

// GetBaseURL returns the public base URL of the gateway, used for the OIDC
// redirect URI and the default post-logout target.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, defaultDomain)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
