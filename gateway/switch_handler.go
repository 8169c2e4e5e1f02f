package gateway

import (
	"net/http"

	"github.com/tolkbron/translation-gateway/identity"
)

// SwitchContextHandler changes the session's active institution. The refresh
// token is exchanged for a token set scoped to the target institution; any
// non-200 from the provider rejects the switch with 422 and leaves the
// session untouched, there is no partial state.
func (s *Server) SwitchContextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institutionID := r.URL.Query().Get("institution_id")
		if institutionID == "" {
			writeJSONError(w, http.StatusUnprocessableEntity, "institution_id_required")
			return
		}

		state := s.sessionFromContext(r)
		if !state.Identity.MemberOf(institutionID) {
			writeJSONError(w, http.StatusUnprocessableEntity, "not_a_member")
			return
		}

		switched, err := s.switchTokenExchange(r.Context(), state.Session.TokenSet, institutionID)
		if err != nil {
			s.log.Warn().Err(err).Str("institution_id", institutionID).Msg("institution switch rejected")
			writeJSONError(w, http.StatusUnprocessableEntity, "institution_switch_rejected")
			return
		}

		sess := state.Session
		sess.TokenSet = switched
		sess.SelectedInstitutionID = institutionID
		if err := s.cookies.WriteSession(w, r, sess); err != nil {
			s.log.Error().Err(err).Msg("failed to reseal session cookie after switch")
			writeJSONError(w, http.StatusInternalServerError, "internal_error")
			return
		}

		selected := sess.Identity().SelectedInstitution
		if selected == nil {
			selected = &identity.Institution{ID: institutionID}
		}
		writeJSON(w, http.StatusOK, map[string]any{"selectedInstitution": selected})
	}
}
