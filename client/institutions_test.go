package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolkbron/translation-gateway/client"
	"github.com/tolkbron/translation-gateway/identity"
	"github.com/tolkbron/translation-gateway/internal/apperrors"
)

// institutionGateway serves /context and /switch-context with mutable
// session state, mimicking the gateway's switch semantics.
type institutionGateway struct {
	server *httptest.Server

	mu           sync.Mutex
	sessionCtx   identity.SessionContext
	switchStatus int // non-zero rejects the switch with this status
	switchCalls  []string
	logoutCalls  int
}

func newInstitutionGateway(t *testing.T, sessionCtx identity.SessionContext) *institutionGateway {
	t.Helper()
	g := &institutionGateway{sessionCtx: sessionCtx}

	mux := http.NewServeMux()
	mux.HandleFunc("/context", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		body := g.sessionCtx
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/switch-context", func(w http.ResponseWriter, r *http.Request) {
		institutionID := r.URL.Query().Get("institution_id")

		g.mu.Lock()
		g.switchCalls = append(g.switchCalls, institutionID)
		if g.switchStatus != 0 {
			status := g.switchStatus
			g.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"institution_switch_rejected"}`))
			return
		}
		for i := range g.sessionCtx.User.Institutions {
			if g.sessionCtx.User.Institutions[i].ID == institutionID {
				g.sessionCtx.User.SelectedInstitution = &g.sessionCtx.User.Institutions[i]
			}
		}
		selected := g.sessionCtx.User.SelectedInstitution
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"selectedInstitution": selected})
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.logoutCalls++
		g.mu.Unlock()
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

func institutionSession(institutions []identity.Institution, selected *identity.Institution) identity.SessionContext {
	return identity.SessionContext{
		Authenticated: true,
		SessionExpiry: 9999999999,
		User: &identity.User{
			InstitutionUserID:   "user-1",
			Forename:            "Anna",
			Surname:             "Svensson",
			SelectedInstitution: selected,
			Institutions:        institutions,
		},
	}
}

func newInstitutionClient(t *testing.T, g *institutionGateway) *client.Client {
	t.Helper()
	c, err := client.New(g.server.URL, client.WithPostLogoutRedirect("http://localhost:3000/login"))
	require.NoError(t, err)
	return c
}

func noChooser(ctx context.Context, institutions []identity.Institution) (string, error) {
	return "", errors.New("chooser must not be called")
}

func TestEnsureInstitutionAlreadySelected(t *testing.T) {
	institutions := []identity.Institution{{ID: "inst-1", Name: "Region North"}}
	g := newInstitutionGateway(t, institutionSession(institutions, &institutions[0]))
	c := newInstitutionClient(t, g)

	sessionCtx, err := c.EnsureInstitutionSelected(context.Background(), noChooser)
	require.NoError(t, err)
	require.Equal(t, "inst-1", sessionCtx.User.SelectedInstitution.ID)
	require.Empty(t, g.switchCalls)
}

func TestEnsureInstitutionSingleSelectsSilently(t *testing.T) {
	institutions := []identity.Institution{{ID: "inst-1", Name: "Region North"}}
	g := newInstitutionGateway(t, institutionSession(institutions, nil))
	c := newInstitutionClient(t, g)

	sessionCtx, err := c.EnsureInstitutionSelected(context.Background(), noChooser)
	require.NoError(t, err)
	require.Equal(t, []string{"inst-1"}, g.switchCalls)
	require.Equal(t, "inst-1", sessionCtx.User.SelectedInstitution.ID)
}

func TestEnsureInstitutionManyDefersToChooser(t *testing.T) {
	institutions := []identity.Institution{{ID: "inst-1", Name: "Region North"}, {ID: "inst-2", Name: "Region South"}}
	g := newInstitutionGateway(t, institutionSession(institutions, nil))
	c := newInstitutionClient(t, g)

	chooser := func(ctx context.Context, offered []identity.Institution) (string, error) {
		require.Len(t, offered, 2)
		return "inst-2", nil
	}

	sessionCtx, err := c.EnsureInstitutionSelected(context.Background(), chooser)
	require.NoError(t, err)
	require.Equal(t, []string{"inst-2"}, g.switchCalls)
	require.Equal(t, "inst-2", sessionCtx.User.SelectedInstitution.ID)
}

func TestEnsureInstitutionChooserError(t *testing.T) {
	institutions := []identity.Institution{{ID: "inst-1", Name: "Region North"}, {ID: "inst-2", Name: "Region South"}}
	g := newInstitutionGateway(t, institutionSession(institutions, nil))
	c := newInstitutionClient(t, g)

	chooser := func(ctx context.Context, offered []identity.Institution) (string, error) {
		return "", errors.New("user closed the prompt")
	}

	_, err := c.EnsureInstitutionSelected(context.Background(), chooser)
	require.Error(t, err)
	require.Empty(t, g.switchCalls)
}

func TestEnsureInstitutionNoneEndsSession(t *testing.T) {
	g := newInstitutionGateway(t, institutionSession(nil, nil))
	c := newInstitutionClient(t, g)

	_, err := c.EnsureInstitutionSelected(context.Background(), noChooser)
	require.ErrorIs(t, err, apperrors.ErrNoInstitution)
	require.Equal(t, 1, g.logoutCalls)
}

func TestEnsureInstitutionAnonymous(t *testing.T) {
	g := newInstitutionGateway(t, identity.SessionContext{})
	c := newInstitutionClient(t, g)

	_, err := c.EnsureInstitutionSelected(context.Background(), noChooser)
	require.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestSwitchInstitutionRejected(t *testing.T) {
	institutions := []identity.Institution{{ID: "inst-1", Name: "Region North"}, {ID: "inst-2", Name: "Region South"}}
	g := newInstitutionGateway(t, institutionSession(institutions, &institutions[0]))
	g.switchStatus = http.StatusUnprocessableEntity
	c := newInstitutionClient(t, g)

	_, err := c.SwitchInstitution(context.Background(), "inst-2")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, client.KindValidationFailed, apiErr.Kind)

	// The selection is unchanged on the gateway.
	sessionCtx, err := c.GetContext(context.Background())
	require.NoError(t, err)
	require.Equal(t, "inst-1", sessionCtx.User.SelectedInstitution.ID)
}
