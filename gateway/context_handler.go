package gateway

import (
	"net/http"

	"github.com/tolkbron/translation-gateway/identity"
)

// ContextHandler is the session introspection endpoint. Anonymous requests
// get an empty object, authenticated ones the session expiry and the user
// projection. The client SDK also uses this route as its silent-refresh
// trigger: WithSession renews the token set as a side effect of serving it.
func (s *Server) ContextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.sessionFromContext(r)
		if state == nil || !state.Identity.Authenticated {
			writeJSON(w, http.StatusOK, identity.SessionContext{})
			return
		}

		sessionCtx := identity.SessionContext{
			Authenticated: true,
			User:          identity.ContextUser(state.Identity),
		}
		if expiry, ok := state.Session.TokenSet.RefreshExpiry(); ok {
			sessionCtx.SessionExpiry = expiry.Unix()
		}
		writeJSON(w, http.StatusOK, sessionCtx)
	}
}
