package inkyprovd

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	googleAuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	googleOAuthScope   = "https://www.googleapis.com/auth/calendar.readonly"

	// Callbacks older than this are rejected as stale regardless of the
	// state token matching.
	oauthSessionTTL = 10 * time.Minute
)

// OAuthSession is the anti-replay context for one Google authorization
// attempt. The state token must round-trip unchanged through the mobile
// app; the PKCE verifier never leaves the device.
type OAuthSession struct {
	StateToken    string
	CodeChallenge string
	IssuedAt      time.Time

	verifier string
}

// OAuthRequest is the read-side payload for the Google OAuth URL
// characteristic / endpoint. It carries everything the mobile app needs to
// open the consent screen.
type OAuthRequest struct {
	URL           string `json:"url"`
	State         string `json:"state"`
	CodeChallenge string `json:"code_challenge"`
}

// newOAuthSession mints a state token and PKCE S256 challenge pair.
func newOAuthSession(now time.Time) (*OAuthSession, error) {
	stateRaw := securecookie.GenerateRandomKey(24)
	verifierRaw := securecookie.GenerateRandomKey(32)
	if stateRaw == nil || verifierRaw == nil {
		return nil, fmt.Errorf("entropy source unavailable")
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierRaw)
	sum := sha256.Sum256([]byte(verifier))

	return &OAuthSession{
		StateToken:    base64.RawURLEncoding.EncodeToString(stateRaw),
		CodeChallenge: base64.RawURLEncoding.EncodeToString(sum[:]),
		IssuedAt:      now,
		verifier:      verifier,
	}, nil
}

// AuthURL renders the Google consent URL for this session.
func (o *OAuthSession) AuthURL(clientID, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", googleOAuthScope)
	q.Set("access_type", "offline")
	q.Set("state", o.StateToken)
	q.Set("code_challenge", o.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	return googleAuthEndpoint + "?" + q.Encode()
}

// validate rejects mismatched or expired callbacks. Always fatal to the
// attempt, never retried silently.
func (o *OAuthSession) validate(state string, now time.Time) error {
	if o == nil {
		return Errf(ErrStaleOAuthState, "no OAuth attempt in progress")
	}
	if now.Sub(o.IssuedAt) > oauthSessionTTL {
		return Errf(ErrStaleOAuthState, "OAuth state expired, request a new authorization URL")
	}
	if state == "" || state != o.StateToken {
		return Errf(ErrStaleOAuthState, "OAuth state token mismatch")
	}
	return nil
}
