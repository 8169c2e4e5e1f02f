package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tolkbron/translation-gateway/client"
)

// scriptedGateway plays a fixed sequence of responses for one path and
// records everything the client sent.
type scriptedGateway struct {
	server *httptest.Server

	mu           sync.Mutex
	orderStatus  []int // consumed one per /translation-order request, last repeats
	orderCalls   int
	contextBody  string
	contextCalls int
	logoutCalls  int
	logoutQuery  url.Values
}

func newScriptedGateway(t *testing.T) *scriptedGateway {
	t.Helper()
	g := &scriptedGateway{contextBody: `{"authenticated":true,"sessionExpiry":9999999999,"user":{"institutionUserId":"user-1","forename":"Anna","surname":"Svensson","privileges":[],"institutions":[]}}`}

	mux := http.NewServeMux()
	mux.HandleFunc("/translation-order/orders", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		status := http.StatusOK
		if len(g.orderStatus) > 0 {
			status = g.orderStatus[0]
			if len(g.orderStatus) > 1 {
				g.orderStatus = g.orderStatus[1:]
			}
		}
		g.orderCalls++
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"orders":[]}`))
		} else if status == http.StatusUnprocessableEntity {
			_, _ = w.Write([]byte(`{"errors":{"deadline":["must be in the future"]}}`))
		}
	})
	mux.HandleFunc("/context", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.contextCalls++
		body := g.contextBody
		g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.logoutCalls++
		g.logoutQuery = r.URL.Query()
		g.mu.Unlock()
		w.WriteHeader(http.StatusSeeOther)
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(g.server.Close)
	return g
}

// newTestClient builds a client with zero jitter and recorded, non-blocking
// sleeps so retry timing is fully observable.
func newTestClient(t *testing.T, g *scriptedGateway, delays *[]time.Duration, opts ...client.Option) *client.Client {
	t.Helper()
	base := []client.Option{
		client.WithJitter(func() time.Duration { return 0 }),
		client.WithSleep(func(ctx context.Context, d time.Duration) error {
			if delays != nil {
				*delays = append(*delays, d)
			}
			return nil
		}),
		client.WithPostLogoutRedirect("http://localhost:3000/login"),
	}
	c, err := client.New(g.server.URL, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func orderRequest() client.RequestConfig {
	return client.RequestConfig{Method: http.MethodGet, Path: "/translation-order/orders"}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	g := newScriptedGateway(t)
	c := newTestClient(t, g, nil)

	resp, err := c.Do(context.Background(), orderRequest())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"orders":[]}`, string(resp.Body))
	require.Equal(t, 1, g.orderCalls)
}

func TestDoRetriesTransientServerErrors(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{503, 503, 200}

	var delays []time.Duration
	c := newTestClient(t, g, &delays)

	resp, err := c.Do(context.Background(), orderRequest())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, g.orderCalls)

	// Linear backoff, zero jitter: 1s then 2s.
	require.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{503}

	var delays []time.Duration
	c := newTestClient(t, g, &delays)

	resp, err := c.Do(context.Background(), orderRequest())
	require.Error(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	// Initial attempt plus two retries.
	require.Equal(t, 3, g.orderCalls)
	require.Len(t, delays, 2)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, client.KindServerError, apiErr.Kind)
}

func TestDoDoesNotRetryPlainServerError(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{500}

	c := newTestClient(t, g, nil)

	resp, err := c.Do(context.Background(), orderRequest())
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, 1, g.orderCalls, "a plain 500 is terminal")
}

func TestDoDoesNotRetryUnauthenticated(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{401}

	c := newTestClient(t, g, nil)

	_, err := c.Do(context.Background(), orderRequest())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, client.KindUnauthenticated, apiErr.Kind)
	require.Equal(t, 1, g.orderCalls)
}

func TestDoSurfacesValidationErrors(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{422}

	c := newTestClient(t, g, nil)

	_, err := c.Do(context.Background(), orderRequest())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, client.KindValidationFailed, apiErr.Kind)
	require.Equal(t, []string{"must be in the future"}, apiErr.Fields["deadline"])
	require.Equal(t, 1, g.orderCalls)
}

func TestDoForbiddenRefreshesOnceThenRetries(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{403, 200}

	c := newTestClient(t, g, nil)

	resp, err := c.Do(context.Background(), orderRequest())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, g.orderCalls)
	require.Equal(t, 1, g.contextCalls, "a 403 triggers exactly one silent refresh")
	require.Zero(t, g.logoutCalls)
}

func TestDoForbiddenRefreshFailureForcesLogout(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{403}
	g.contextBody = `{}` // the refresh finds no session behind the cookie

	c := newTestClient(t, g, nil)

	resp, err := c.Do(context.Background(), orderRequest())
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, client.KindForbidden, apiErr.Kind)

	require.Equal(t, 1, g.orderCalls, "a dead session is not retried")
	require.Equal(t, 1, g.logoutCalls)
	require.Contains(t, g.logoutQuery.Get("redirect_uri"), "error=session_expired")
}

func TestDoSyntheticResponseWhenNeverConnected(t *testing.T) {
	// Point at a closed port so no attempt produces an HTTP status.
	c, err := client.New("http://127.0.0.1:1",
		client.WithJitter(func() time.Duration { return 0 }),
		client.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
		client.WithMaxAttempts(1),
	)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), orderRequest())
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Zero(t, resp.StatusCode)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Zero(t, apiErr.Status)
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	g := newScriptedGateway(t)
	g.orderStatus = []int{503}

	cancelled := errors.New("cancelled during backoff")
	c := newTestClient(t, g, nil,
		client.WithSleep(func(ctx context.Context, d time.Duration) error { return cancelled }))

	_, err := c.Do(context.Background(), orderRequest())
	require.Error(t, err)
	require.Equal(t, 1, g.orderCalls, "no further attempts after the wait is cancelled")
}
