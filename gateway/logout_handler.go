package gateway

import (
	"net/http"
	"net/url"
)

// LogoutHandler clears the local session and propagates the logout to the
// identity provider (single sign-out) when it advertises an end-session
// endpoint. The redirect_uri parameter follows the same allow-list rules as
// /login.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := s.validatedRedirectURI(r.URL.Query().Get("redirect_uri"))

		// Read before clearing: the provider wants the ID token as a hint.
		sess, readErr := s.cookies.ReadSession(r)

		s.cookies.ClearSession(w, r)

		if s.oidc.EndSessionURL == "" {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		endSession, err := url.Parse(s.oidc.EndSessionURL)
		if err != nil {
			s.log.Error().Err(err).Msg("invalid end-session endpoint")
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		query := endSession.Query()
		query.Set("post_logout_redirect_uri", target)
		query.Set("client_id", s.oidc.OAuth2Config.ClientID)
		if readErr == nil && sess.TokenSet.IDToken != "" {
			query.Set("id_token_hint", sess.TokenSet.IDToken)
		}
		endSession.RawQuery = query.Encode()

		http.Redirect(w, r, endSession.String(), http.StatusSeeOther)
	}
}
