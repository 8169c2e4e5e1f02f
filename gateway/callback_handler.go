package gateway

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/tolkbron/translation-gateway/gateway/sessioncookie"
	"github.com/tolkbron/translation-gateway/identity"
)

// CallbackHandler completes the authorization-code flow: it exchanges the
// code, verifies the ID token against the stored nonce, applies the
// institution policy and seals the session cookie.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Parse form to support both GET (query params) and POST (form_post
		// response mode); r.FormValue works for both.
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			s.log.Warn().Str("error", errorParam).Str("description", errorDesc).Msg("authorization rejected by provider")
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		flow, err := s.flows.Get(state)
		if err != nil || flow == nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		// State is single-use
		if err := s.flows.Delete(state); err != nil {
			http.Error(w, "Invalid state parameter", http.StatusInternalServerError)
			return
		}

		if s.nowTime().Sub(flow.CreatedAt) > s.config.GetFlowStateTimeout() {
			http.Error(w, "Login flow expired", http.StatusBadRequest)
			return
		}

		oauth2Token, err := s.oidc.OAuth2Config.Exchange(
			r.Context(),
			code,
			oauth2.SetAuthURLParam("code_verifier", flow.CodeVerifier),
		)
		if err != nil {
			s.log.Error().Err(err).Msg("token exchange failed")
			http.Error(w, "Token exchange failed", http.StatusInternalServerError)
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			http.Error(w, "No ID token in response", http.StatusInternalServerError)
			return
		}

		// Verify the ID token signature and claims (including nonce)
		idToken, err := s.oidc.Verifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			s.log.Error().Err(err).Msg("ID token verification failed")
			http.Error(w, "ID token verification failed", http.StatusInternalServerError)
			return
		}

		var idClaims struct {
			Nonce string `json:"nonce"`
		}
		if err := idToken.Claims(&idClaims); err != nil {
			http.Error(w, "Failed to extract claims", http.StatusInternalServerError)
			return
		}

		// Validate nonce to prevent replay attacks
		if idClaims.Nonce != flow.Nonce {
			http.Error(w, "Invalid nonce", http.StatusUnauthorized)
			return
		}

		sess := sessioncookie.Session{TokenSet: identity.FromOAuth2Token(oauth2Token)}
		id := sess.Identity()

		// Institution policy: a user with no institution cannot be
		// authenticated into the application; a user with exactly one gets it
		// selected silently; with several the client prompts for a choice.
		switch {
		case len(id.Institutions) == 0:
			s.cookies.ClearSession(w, r)
			redirectWithError(w, r, flow.ReturnURL, "no_institution")
			return
		case len(id.Institutions) == 1 && id.SelectedInstitution == nil:
			switched, switchErr := s.switchTokenExchange(r.Context(), sess.TokenSet, id.Institutions[0].ID)
			if switchErr != nil {
				// Not fatal: the session stands, the client will surface the
				// missing selection.
				s.log.Warn().Err(switchErr).Str("institution_id", id.Institutions[0].ID).Msg("automatic institution switch failed")
			} else {
				sess.TokenSet = switched
				sess.SelectedInstitutionID = id.Institutions[0].ID
			}
		case id.SelectedInstitution != nil:
			sess.SelectedInstitutionID = id.SelectedInstitution.ID
		}

		if err := s.cookies.WriteSession(w, r, sess); err != nil {
			s.log.Error().Err(err).Msg("failed to seal session cookie")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, flow.ReturnURL, http.StatusSeeOther)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, target, errorCode string) {
	http.Redirect(w, r, target+"?error="+url.QueryEscape(errorCode), http.StatusSeeOther)
}
