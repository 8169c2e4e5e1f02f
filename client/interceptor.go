package client

import (
	"context"
	"time"
)

// Do issues a request through the retry interceptor. Callers observe a
// single resolution: transient failures are retried behind their back, and
// only the final outcome surfaces.
//
// Per call: non-retryable failures reject immediately; a 403 triggers exactly
// one silent session refresh before the retry (a failed refresh forces logout
// with an error flag); retry-eligible failures are re-issued after
// 1000ms*attempt plus up to a second of jitter, at most maxAttempts retries.
// When the budget is exhausted the last known response is returned alongside
// the classified error (a synthetic status-0 response when no attempt ever
// produced one).
func (c *Client) Do(ctx context.Context, rc RequestConfig) (*Response, error) {
	attempt := 0
	var lastResp *Response
	refreshed := false

	for {
		resp, err := c.send(ctx, rc)
		if err == nil {
			lastResp = resp
			if resp.StatusCode < 400 {
				return resp, nil
			}
		}

		apiErr := classify(resp, err)
		if !apiErr.Retryable() {
			c.log.Debug().Str("kind", apiErr.Kind.String()).Int("status", apiErr.Status).Msg("request failed, not retryable")
			return resp, apiErr
		}

		// A 403 may mean the session went stale underneath us: refresh once
		// before burning a retry. If the refresh itself fails the session is
		// gone and the only honest answer is a logout.
		if apiErr.Status == 403 && !refreshed {
			refreshed = true
			if _, refreshErr := c.SilentRefresh(ctx); refreshErr != nil {
				c.log.Warn().Err(refreshErr).Msg("silent refresh after 403 failed, logging out")
				if logoutErr := c.Logout(ctx, true); logoutErr != nil {
					c.log.Error().Err(logoutErr).Msg("logout after failed refresh also failed")
				}
				return resp, apiErr
			}
		}

		if attempt >= c.maxAttempts {
			if lastResp == nil {
				lastResp = &Response{StatusCode: 0}
			}
			c.log.Debug().Int("attempts", attempt+1).Msg("retry budget exhausted")
			return lastResp, apiErr
		}

		attempt++
		delay := time.Duration(attempt)*1000*time.Millisecond + c.jitter()
		c.log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("retrying request")
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return lastResp, apiErr
		}
	}
}
