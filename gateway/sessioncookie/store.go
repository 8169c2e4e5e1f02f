// Package sessioncookie seals the gateway session into an encrypted,
// HTTP-only cookie. The cookie is the canonical copy of the token set; there
// is no server-side session table to fall out of sync with.
package sessioncookie

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/tolkbron/translation-gateway/identity"
	"github.com/tolkbron/translation-gateway/internal/apperrors"
)

const nonceLength = 24

// Session is the sealed cookie payload: the token set plus the institution
// the user is currently operating as.
type Session struct {
	TokenSet              identity.TokenSet `json:"token_set"`
	SelectedInstitutionID string            `json:"selected_institution_id,omitempty"`
}

// Identity projects the session's identity from its access token.
func (s Session) Identity() identity.Identity {
	return identity.FromAccessToken(s.TokenSet.AccessToken)
}

// Store seals and opens session cookies and maintains the readable
// session-expires companion cookie.
type Store struct {
	key         [32]byte
	sessionName string
	expiresName string
}

// NewStore derives the sealing key from the configured secret. Any secret
// string works; it is stretched to 32 bytes with SHA-256.
func NewStore(secret, sessionCookieName, expiresCookieName string) *Store {
	return &Store{
		key:         sha256.Sum256([]byte(secret)),
		sessionName: sessionCookieName,
		expiresName: expiresCookieName,
	}
}

// Seal encrypts the session into a cookie-safe string.
func (st *Store) Seal(sess Session) (string, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", apperrors.Wrapf(err, "[sessioncookie Seal] marshal session")
	}
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", apperrors.Wrapf(err, "[sessioncookie Seal] generate nonce")
	}
	sealed := secretbox.Seal(nonce[:], payload, &nonce, &st.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed cookie value. Tampered, truncated, or foreign-key
// values return ErrMalformedCookie and are treated as anonymous upstream.
func (st *Store) Open(value string) (Session, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(sealed) <= nonceLength {
		return Session{}, apperrors.ErrMalformedCookie
	}
	var nonce [nonceLength]byte
	copy(nonce[:], sealed[:nonceLength])
	payload, ok := secretbox.Open(nil, sealed[nonceLength:], &nonce, &st.key)
	if !ok {
		return Session{}, apperrors.ErrMalformedCookie
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, apperrors.ErrMalformedCookie
	}
	return sess, nil
}

// ReadSession extracts and opens the session cookie from a request.
func (st *Store) ReadSession(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(st.sessionName)
	if err != nil {
		return Session{}, apperrors.ErrNoSession
	}
	return st.Open(cookie.Value)
}

// WriteSession seals the session and sets both cookies. The session cookie's
// lifetime follows the refresh token, not the access token.
func (st *Store) WriteSession(w http.ResponseWriter, r *http.Request, sess Session) error {
	sealed, err := st.Seal(sess)
	if err != nil {
		return err
	}
	maxAge := 0
	if expiry, ok := sess.TokenSet.RefreshExpiry(); ok {
		maxAge = int(time.Until(expiry).Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     st.sessionName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	st.WriteExpires(w, r, sess)
	return nil
}

// WriteExpires re-issues the readable session-expires cookie from the current
// refresh token expiry, clearing it when there is no access token left.
func (st *Store) WriteExpires(w http.ResponseWriter, r *http.Request, sess Session) {
	if sess.TokenSet.AccessToken == "" {
		st.clearCookie(w, r, st.expiresName, false)
		return
	}
	expiry, ok := sess.TokenSet.RefreshExpiry()
	if !ok {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     st.expiresName,
		Value:    formatEpoch(expiry),
		Path:     "/",
		HttpOnly: false,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiry).Seconds()),
	})
}

// ClearSession removes both cookies.
func (st *Store) ClearSession(w http.ResponseWriter, r *http.Request) {
	st.clearCookie(w, r, st.sessionName, true)
	st.clearCookie(w, r, st.expiresName, false)
}

func (st *Store) clearCookie(w http.ResponseWriter, r *http.Request, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func formatEpoch(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
