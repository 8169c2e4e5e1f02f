package config

import (
	"net/url"
	"strings"
)

// RedirectConfig covers the redirect_uri allow-list applied to /login and
// /logout. Anything not on the list falls back to the default target.
type RedirectConfig interface {
	GetAllowedRedirectURIs() AllowedRedirects
	GetDefaultRedirectURI() string
}

type AllowedRedirects map[string]struct{}

// IsAllowed matches the URI's scheme, host and path against the allow-list,
// ignoring query string and fragment. The client appends markers to its
// targets (an error flag on the post-logout redirect, for one) and those must
// not knock an otherwise allow-listed URI off the list.
func (a AllowedRedirects) IsAllowed(uri string) bool {
	_, ok := a[stripQuery(uri)]
	return ok
}

func stripQuery(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

type Redirects struct{}

var _ RedirectConfig = Redirects{}

func (Redirects) GetAllowedRedirectURIs() AllowedRedirects {
	allowed := AllowedRedirects{}
	for _, uri := range strings.Split(GetEnv("ALLOWED_REDIRECT_URIS", "http://localhost:3000/"), ",") {
		uri = strings.TrimSpace(uri)
		if uri != "" {
			allowed[stripQuery(uri)] = struct{}{}
		}
	}
	return allowed
}

func (Redirects) GetDefaultRedirectURI() string {
	return GetEnv("DEFAULT_REDIRECT_URI", "http://localhost:3000/")
}
