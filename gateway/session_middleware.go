package gateway

import (
	"context"
	"net/http"

	"github.com/tolkbron/translation-gateway/gateway/sessioncookie"
	"github.com/tolkbron/translation-gateway/identity"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the decoded session state
const ContextKeySession ContextKey = "session"

// sessionState is what downstream handlers see: the session plus the identity
// projected from its current access token.
type sessionState struct {
	Session  sessioncookie.Session
	Identity identity.Identity
}

func (s *Server) sessionFromContext(r *http.Request) *sessionState {
	state, _ := r.Context().Value(ContextKeySession).(*sessionState)
	return state
}

// WithSession decodes the session cookie and attaches the session to the
// request context. When the access token has expired but the refresh token
// has not, it performs one silent refresh first; a failed refresh never
// blocks the pipeline, it just leaves the request anonymous and lets the
// downstream 401 signal the client. After any refresh attempt the readable
// session-expires cookie is re-issued from the current refresh expiry.
// Malformed or missing cookies are anonymous, never an error.
func (s *Server) WithSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.cookies.ReadSession(r)
		if err != nil {
			next(w, r)
			return
		}

		now := s.nowTime()
		resealed := false
		if sess.TokenSet.AccessExpired(now) && !sess.TokenSet.RefreshExpired(now) {
			refreshed, refreshErr := s.refresher.Refresh(r.Context(), sess.TokenSet)
			if refreshErr != nil {
				s.log.Warn().Err(refreshErr).Msg("silent token refresh failed, proceeding unauthenticated")
			} else {
				sess.TokenSet = refreshed
				if writeErr := s.cookies.WriteSession(w, r, sess); writeErr != nil {
					s.log.Error().Err(writeErr).Msg("failed to reseal session cookie after refresh")
				} else {
					resealed = true
				}
			}
		}

		// Surface the refresh expiry so the client can track time-to-expiry
		// without parsing tokens. Resealing already re-issued it.
		if !resealed {
			s.cookies.WriteExpires(w, r, sess)
		}

		if sess.TokenSet.AccessExpired(s.nowTime()) {
			// Refresh was impossible or failed; an expired session is anonymous.
			next(w, r)
			return
		}

		state := &sessionState{Session: sess, Identity: sess.Identity()}
		ctx := context.WithValue(r.Context(), ContextKeySession, state)
		next(w, r.WithContext(ctx))
	}
}

// RequireSession rejects anonymous requests with 401. This is a headless API
// gateway: it never answers with a login redirect.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.sessionFromContext(r)
		if state == nil || !state.Identity.Authenticated {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		next(w, r)
	}
}

// RequireFreshToken short-circuits with 401 when the session's access token
// is expired at forwarding time. It converts an upstream-detected auth
// failure into a gateway-detected one so the client can recover through its
// refresh path; the proxy never forwards a stale token.
func (s *Server) RequireFreshToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.sessionFromContext(r)
		if state != nil && state.Session.TokenSet.AccessExpired(s.nowTime()) {
			writeJSONError(w, http.StatusUnauthorized, "token_expired")
			return
		}
		next(w, r)
	}
}
