package apperrors

import (
	"errors"
	"fmt"
)

// Common error types for the gateway and client SDK
var (
	// Session errors
	ErrNoSession       = errors.New("no session")
	ErrMalformedCookie = errors.New("malformed session cookie")

	// Token errors
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshFailed       = errors.New("token refresh failed")

	// Institution errors
	ErrNoInstitution  = errors.New("user belongs to no institution")
	ErrSwitchRejected = errors.New("institution switch rejected")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
