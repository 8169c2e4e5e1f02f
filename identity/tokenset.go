// Package identity holds the passive session data shared by the gateway and
// the client SDK: the token set issued by the identity provider and the
// identity projected from its access-token claims.
package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenSet is the canonical token material for one session. The gateway keeps
// it inside the sealed session cookie; the client never sees it.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token,omitempty"`
	// ExpiresAt is the access token expiry in epoch seconds, always taken
	// from the most recently issued token set.
	ExpiresAt int64 `json:"expires_at"`
}

// FromOAuth2Token converts an oauth2 token response into a TokenSet,
// capturing the id_token extra when the provider returned one.
func FromOAuth2Token(tok *oauth2.Token) TokenSet {
	ts := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	return ts
}

// IsZero reports whether the token set holds no tokens at all.
func (ts TokenSet) IsZero() bool {
	return ts.AccessToken == "" && ts.RefreshToken == ""
}

// AccessExpired reports whether the access token is missing or past expiry.
func (ts TokenSet) AccessExpired(now time.Time) bool {
	if ts.AccessToken == "" {
		return true
	}
	return ts.ExpiresAt <= now.Unix()
}

// RefreshExpiry decodes the refresh token's exp claim without verifying the
// signature. The gateway is not the token's audience; it only needs the
// timestamp. Returns false when the token is missing, opaque, or carries no
// exp claim.
func (ts TokenSet) RefreshExpiry() (time.Time, bool) {
	return tokenExpiry(ts.RefreshToken)
}

// RefreshExpired reports whether the refresh token can no longer be used.
// An opaque refresh token without a readable exp claim is assumed usable.
func (ts TokenSet) RefreshExpired(now time.Time) bool {
	if ts.RefreshToken == "" {
		return true
	}
	expiry, ok := ts.RefreshExpiry()
	if !ok {
		return false
	}
	return !expiry.After(now)
}

func tokenExpiry(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
