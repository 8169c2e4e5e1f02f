package gateway

import (
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/tolkbron/translation-gateway/gateway/flowstate"
)

// LoginHandler begins the OIDC authorization-code flow. The redirect_uri
// query parameter is validated against the allow-list and falls back to the
// default target; state, nonce and PKCE verifier are held server-side until
// the callback.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnURL := s.validatedRedirectURI(r.URL.Query().Get("redirect_uri"))

		state := uuid.NewString()
		nonce := generateRandomString(16)
		verifier := generateRandomString(32)

		s.flows.Prune(s.config.GetFlowStateTimeout())
		if err := s.flows.Upsert(state, &flowstate.FlowState{
			Nonce:        nonce,
			CodeVerifier: verifier,
			ReturnURL:    returnURL,
			CreatedAt:    s.nowTime(),
		}); err != nil {
			s.log.Error().Err(err).Msg("failed to store login flow state")
			writeJSONError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		authURL := s.oidc.OAuth2Config.AuthCodeURL(
			state,
			oidc.Nonce(nonce),
			oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}
