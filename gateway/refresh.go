package gateway

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/tolkbron/translation-gateway/identity"
	"github.com/tolkbron/translation-gateway/internal/apperrors"
)

// TokenRefresher exchanges a refresh token for a fresh token set. Concurrent
// requests for the same session can observe the expired access token at the
// same time; refreshes are collapsed through a singleflight group keyed by
// the refresh token so at most one token-endpoint call is in flight per
// session.
type TokenRefresher struct {
	oauth *oauth2.Config
	group singleflight.Group
	log   zerolog.Logger
}

func NewTokenRefresher(oauthConfig *oauth2.Config, log zerolog.Logger) *TokenRefresher {
	return &TokenRefresher{
		oauth: oauthConfig,
		log:   log,
	}
}

// Refresh performs one refresh-token grant and returns the replacement token
// set. The previous token set is returned unchanged on failure so callers
// cannot end up holding partial state.
func (tr *TokenRefresher) Refresh(ctx context.Context, ts identity.TokenSet) (identity.TokenSet, error) {
	if ts.RefreshToken == "" {
		return ts, apperrors.ErrRefreshTokenExpired
	}

	v, err, shared := tr.group.Do(ts.RefreshToken, func() (interface{}, error) {
		source := tr.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: ts.RefreshToken})
		tok, err := source.Token()
		if err != nil {
			return nil, apperrors.Wrapf(err, "[TokenRefresher Refresh] token endpoint")
		}
		next := identity.FromOAuth2Token(tok)
		// Providers that do not rotate omit these from the refresh response.
		if next.RefreshToken == "" {
			next.RefreshToken = ts.RefreshToken
		}
		if next.IDToken == "" {
			next.IDToken = ts.IDToken
		}
		return next, nil
	})
	if err != nil {
		return ts, err
	}
	if shared {
		tr.log.Debug().Msg("collapsed concurrent refresh into one token call")
	}
	return v.(identity.TokenSet), nil
}
