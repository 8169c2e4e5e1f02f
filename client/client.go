// Package client is the Go runtime for applications sitting behind the
// translation gateway: it tracks the session lifecycle (proactive refresh,
// expiry countdown) and wraps every outbound call in a classifying,
// retrying interceptor. Authentication state travels in same-origin cookies;
// the client never holds a raw token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tolkbron/translation-gateway/identity"
	"github.com/tolkbron/translation-gateway/internal/apperrors"
)

const (
	// DefaultRequestTimeout bounds every outbound call; exceeding it is
	// classified as a timeout and is retry-eligible.
	DefaultRequestTimeout = 40 * time.Second
	// DefaultMaxAttempts is the number of retries after the initial attempt.
	DefaultMaxAttempts = 2

	sessionExpiresCookie = "session-expires"
)

type Client struct {
	baseURL            *url.URL
	http               *http.Client
	log                zerolog.Logger
	maxAttempts        int
	postLogoutRedirect string
	nowTime            func() time.Time
	jitter             func() time.Duration
	sleep              func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithPostLogoutRedirect sets the redirect target passed to /logout.
func WithPostLogoutRedirect(target string) Option {
	return func(c *Client) {
		c.postLogoutRedirect = target
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithJitter sets the random backoff component (primarily for testing)
func WithJitter(jitter func() time.Duration) Option {
	return func(c *Client) {
		c.jitter = jitter
	}
}

// WithSleep sets the backoff wait function (primarily for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[client New] invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[client New] cookie jar: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		http: &http.Client{
			Jar:     jar,
			Timeout: DefaultRequestTimeout,
		},
		log:         zerolog.Nop(),
		maxAttempts: DefaultMaxAttempts,
		nowTime:     time.Now,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(1000)) * time.Millisecond
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequestConfig is the re-issuable description of one logical request. The
// interceptor replays it verbatim on retry.
type RequestConfig struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully-read response; the body is buffered so the request can
// be judged and retried without a live connection.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// send issues one network attempt.
func (c *Client) send(ctx context.Context, rc RequestConfig) (*Response, error) {
	target := c.baseURL.JoinPath(rc.Path)
	if len(rc.Query) > 0 {
		target.RawQuery = rc.Query.Encode()
	}

	var body io.Reader
	if len(rc.Body) > 0 {
		body = bytes.NewReader(rc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, rc.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("[client send] build request: %w", err)
	}
	for name, values := range rc.Header {
		req.Header[name] = values
	}
	if len(rc.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

// GetContext fetches the gateway's session introspection endpoint.
func (c *Client) GetContext(ctx context.Context) (*identity.SessionContext, error) {
	resp, err := c.Do(ctx, RequestConfig{Method: http.MethodGet, Path: "/context"})
	if err != nil {
		return nil, err
	}
	var sessionCtx identity.SessionContext
	if err := json.Unmarshal(resp.Body, &sessionCtx); err != nil {
		return nil, fmt.Errorf("[client GetContext] decode: %w", err)
	}
	return &sessionCtx, nil
}

// SilentRefresh triggers a token refresh without the retry interceptor. The
// gateway renews the token set reactively while serving /context, so one
// plain round trip is both the trigger and the confirmation.
func (c *Client) SilentRefresh(ctx context.Context) (*identity.SessionContext, error) {
	resp, err := c.send(ctx, RequestConfig{Method: http.MethodGet, Path: "/context"})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[client SilentRefresh] context call")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("[client SilentRefresh] context returned %d: %w", resp.StatusCode, apperrors.ErrRefreshFailed)
	}
	var sessionCtx identity.SessionContext
	if err := json.Unmarshal(resp.Body, &sessionCtx); err != nil {
		return nil, apperrors.Wrapf(err, "[client SilentRefresh] decode")
	}
	if !sessionCtx.Authenticated {
		return nil, apperrors.ErrRefreshFailed
	}
	return &sessionCtx, nil
}

// RefreshSession is the SessionManager's refresh hook: one silent refresh,
// returning the renewed session expiry.
func (c *Client) RefreshSession(ctx context.Context) (time.Time, error) {
	sessionCtx, err := c.SilentRefresh(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sessionCtx.SessionExpiry, 0), nil
}

// Logout ends the session. withErrorFlag appends an error marker to the
// post-logout redirect target so the login screen can explain what happened.
// Redirects are not followed: the SDK only needs the gateway to clear its
// cookies, the IdP round trip belongs to a browser.
func (c *Client) Logout(ctx context.Context, withErrorFlag bool) error {
	target := c.postLogoutRedirect
	if withErrorFlag && target != "" {
		separator := "?"
		if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
			separator = "&"
		}
		target += separator + "error=session_expired"
	}

	query := url.Values{}
	if target != "" {
		query.Set("redirect_uri", target)
	}

	logoutURL := c.baseURL.JoinPath("/logout")
	if len(query) > 0 {
		logoutURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoutURL.String(), nil)
	if err != nil {
		return fmt.Errorf("[client Logout] build request: %w", err)
	}

	noFollow := *c.http
	noFollow.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return fmt.Errorf("[client Logout] logout call: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// SessionExpiry reads the session-expires cookie the gateway maintains.
// Reports false when the cookie is absent or unreadable.
func (c *Client) SessionExpiry() (time.Time, bool) {
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == sessionExpiresCookie {
			epoch, err := strconv.ParseInt(cookie.Value, 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			return time.Unix(epoch, 0), true
		}
	}
	return time.Time{}, false
}
