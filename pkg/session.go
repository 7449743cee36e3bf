package inkyprovd

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionState tracks a PairingSession through its lifecycle.
type SessionState string

const (
	SessionUnauthorized SessionState = "unauthorized"
	SessionCodeIssued   SessionState = "code_issued"
	SessionAuthorized   SessionState = "authorized"
	SessionExpired      SessionState = "expired"
)

const (
	authCodeLength = 6

	// The code must be read off the physical display and typed back, so the
	// window is short but human-sized.
	authCodeTTL = 5 * time.Minute

	// An authorized session that goes idle longer than this is abandoned.
	pairingSessionTTL = 30 * time.Minute
)

// PairingSession is the window of trust between an unauthenticated probe
// and a fully authorized configuration channel. Exactly one non-expired
// session exists at a time.
type PairingSession struct {
	ID                 string       `json:"id"`
	CreatedAt          time.Time    `json:"created_at"`
	ExpiresAt          time.Time    `json:"expires_at"`
	State              SessionState `json:"state"`
	ContinueWhenActive bool         `json:"continue_when_active"`

	code *authCode
}

// authCode is single-use and bound to exactly one session. The value is
// shown on the device display and nowhere else; it must never reach logs.
type authCode struct {
	value     string
	issuedAt  time.Time
	expiresAt time.Time
	consumed  bool
}

// StartConnectionResult is the reachability probe response.
type StartConnectionResult struct {
	CanConnect     bool   `json:"can_connect"`
	ServicesActive bool   `json:"services_active"`
	PromptContinue bool   `json:"prompt_continue"`
	PromptMessage  string `json:"prompt_message"`
}

// AuthorizeResult carries the code for on-device display plus its length
// so the caller can render an input field.
type AuthorizeResult struct {
	DisplayAuthorizationCode string `json:"display_authorization_code"`
	CodeLength               int    `json:"code_length"`
}

// CompleteResult reports whether the session was upgraded to Authorized.
type CompleteResult struct {
	Connected bool `json:"connected"`
}

// Handshake gates the upgrade from unauthenticated probe to authorized
// session. An unauthenticated caller can only ever make the device display
// a code; authority is granted only after the code is relayed back.
type Handshake struct {
	mu      sync.Mutex
	active  *PairingSession
	display CodeDisplay
	log     *logrus.Entry
	now     func() time.Time
}

func NewHandshake(display CodeDisplay, log *logrus.Entry) *Handshake {
	return &Handshake{
		display: display,
		log:     log,
		now:     time.Now,
	}
}

// StartConnection is the side-effect-free reachability probe. Reaching this
// code at all means the device is reachable, so can_connect is always true.
func (t *Handshake) StartConnection() StartConnectionResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireStale()

	res := StartConnectionResult{CanConnect: true}
	if t.active != nil {
		res.ServicesActive = true
		res.PromptContinue = true
		res.PromptMessage = "A setup session is already in progress. Continue to take over the existing session."
	}
	return res
}

// Authorize creates a new PairingSession and pushes a fresh authorization
// code to the device display. A live session blocks this unless the caller
// explicitly asked to continue, in which case the old session is expired
// atomically with the new one being created.
func (t *Handshake) Authorize(continueWhenActive bool) (AuthorizeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireStale()

	if t.active != nil && !continueWhenActive {
		return AuthorizeResult{}, Errf(ErrSessionConflict,
			"a setup session is already active, re-request with continue_when_active to supersede it")
	}
	if t.active != nil {
		t.active.State = SessionExpired
		t.log.WithField("session", t.active.ID).Info("superseding active pairing session")
	}

	code, err := generateAuthCode()
	if err != nil {
		return AuthorizeResult{}, fmt.Errorf("generating authorization code: %w", err)
	}

	now := t.now()
	t.active = &PairingSession{
		ID:                 uuid.NewString(),
		CreatedAt:          now,
		ExpiresAt:          now.Add(authCodeTTL),
		State:              SessionCodeIssued,
		ContinueWhenActive: continueWhenActive,
		code: &authCode{
			value:     code,
			issuedAt:  now,
			expiresAt: now.Add(authCodeTTL),
		},
	}

	if err := t.display.ShowCode(code); err != nil {
		// The human can't read a code that never rendered, so the session is
		// useless. Tear it down rather than leaving a live code nobody saw.
		t.active = nil
		return AuthorizeResult{}, fmt.Errorf("showing authorization code on display: %w", err)
	}

	t.log.WithField("session", t.active.ID).Info("pairing session created, code on display")
	return AuthorizeResult{
		DisplayAuthorizationCode: code,
		CodeLength:               authCodeLength,
	}, nil
}

// CompleteConnection consumes the displayed code and grants authority.
func (t *Handshake) CompleteConnection(code string) (CompleteResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.active
	if s == nil || s.code == nil {
		return CompleteResult{}, Errf(ErrInvalidCode, "no pairing in progress")
	}

	now := t.now()
	if now.After(s.code.expiresAt) || now.After(s.ExpiresAt) {
		s.State = SessionExpired
		t.active = nil
		_ = t.display.Clear()
		return CompleteResult{}, Errf(ErrSessionExpired, "the authorization code has expired, start pairing again")
	}
	if s.code.consumed || code != s.code.value {
		return CompleteResult{}, Errf(ErrInvalidCode, "authorization code not accepted")
	}

	s.code.consumed = true
	s.State = SessionAuthorized
	s.ExpiresAt = now.Add(pairingSessionTTL)
	_ = t.display.Clear()

	t.log.WithField("session", s.ID).Info("pairing session authorized")
	return CompleteResult{Connected: true}, nil
}

// RequireAuthorized returns the active authorized session, expiring it
// lazily first. Step submissions against a lapsed session fail with
// session_expired, never silently succeed.
func (t *Handshake) RequireAuthorized() (*PairingSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireStale()

	if t.active == nil {
		return nil, Errf(ErrSessionExpired, "no authorized setup session")
	}
	if t.active.State != SessionAuthorized {
		return nil, Errf(ErrSessionExpired, "setup session is not authorized")
	}

	// Each authorized interaction extends the idle window.
	t.active.ExpiresAt = t.now().Add(pairingSessionTTL)
	return t.active, nil
}

// Active returns the live session, if any, after lazy expiry.
func (t *Handshake) Active() *PairingSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireStale()
	return t.active
}

// Finish destroys the session after the wizard reaches Done.
func (t *Handshake) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		t.log.WithField("session", t.active.ID).Info("pairing session completed")
		t.active = nil
	}
}

// expireStale lazily expires the active session. Callers hold the lock.
func (t *Handshake) expireStale() {
	if t.active == nil {
		return
	}
	if t.now().After(t.active.ExpiresAt) {
		t.active.State = SessionExpired
		t.log.WithField("session", t.active.ID).Info("pairing session expired")
		t.active = nil
		_ = t.display.Clear()
	}
}

// generateAuthCode draws a uniform 6-digit numeric code from crypto/rand.
func generateAuthCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < authCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", authCodeLength, n), nil
}
