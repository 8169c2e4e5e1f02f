package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tolkbron/translation-gateway/identity"
	"github.com/tolkbron/translation-gateway/internal/apperrors"
)

// InstitutionChooser resolves which institution to select when the user
// belongs to several; typically backed by a selection prompt.
type InstitutionChooser func(ctx context.Context, institutions []identity.Institution) (string, error)

// SwitchInstitution asks the gateway to rescope the session to the given
// institution and re-derives the session context from the result. A rejected
// switch (non-200) leaves all local state untouched.
func (c *Client) SwitchInstitution(ctx context.Context, institutionID string) (*identity.SessionContext, error) {
	query := url.Values{}
	query.Set("institution_id", institutionID)
	if _, err := c.Do(ctx, RequestConfig{Method: http.MethodGet, Path: "/switch-context", Query: query}); err != nil {
		return nil, apperrors.Wrapf(err, "[client SwitchInstitution] switch rejected")
	}
	return c.GetContext(ctx)
}

// EnsureInstitutionSelected applies the institution policy after login:
// no institution terminates the session, exactly one is selected silently,
// several defer to the chooser. Returns the settled session context.
func (c *Client) EnsureInstitutionSelected(ctx context.Context, choose InstitutionChooser) (*identity.SessionContext, error) {
	sessionCtx, err := c.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	if !sessionCtx.Authenticated || sessionCtx.User == nil {
		return nil, apperrors.ErrNoSession
	}
	if sessionCtx.User.SelectedInstitution != nil {
		return sessionCtx, nil
	}

	switch len(sessionCtx.User.Institutions) {
	case 0:
		// The gateway tears these sessions down at login; if one slips
		// through, end it here too.
		if err := c.Logout(ctx, true); err != nil {
			c.log.Error().Err(err).Msg("logout of institution-less session failed")
		}
		return nil, apperrors.ErrNoInstitution
	case 1:
		return c.SwitchInstitution(ctx, sessionCtx.User.Institutions[0].ID)
	default:
		institutionID, err := choose(ctx, sessionCtx.User.Institutions)
		if err != nil {
			return nil, apperrors.Wrapf(err, "[client EnsureInstitutionSelected] chooser")
		}
		return c.SwitchInstitution(ctx, institutionID)
	}
}
