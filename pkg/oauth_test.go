package inkyprovd

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthRequestOnlyAtGoogleAuthStep(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepWifi)

	_, err := f.wizard.OAuthRequest()
	require.Error(t, err)
	assert.Equal(t, ErrStepMismatch, KindOf(err))
}

func TestOAuthRequestURLShape(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	req, err := f.wizard.OAuthRequest()
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "com.example.app:/oauth", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, req.State, q.Get("state"))
	assert.Equal(t, req.CodeChallenge, q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Contains(t, q.Get("scope"), "calendar.readonly")
}

func TestOAuthChallengeIsS256OfVerifier(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	req, err := f.wizard.OAuthRequest()
	require.NoError(t, err)

	_, err = f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: req.State})
	require.NoError(t, err)

	// The verifier handed to the exchange hashes to the published
	// challenge.
	require.Len(t, f.google.verifiers, 1)
	sum := sha256.Sum256([]byte(f.google.verifiers[0]))
	assert.Equal(t, req.CodeChallenge, base64.RawURLEncoding.EncodeToString(sum[:]))
}

func TestOAuthStateMismatchRejected(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	_, err := f.wizard.OAuthRequest()
	require.NoError(t, err)

	snap, err := f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: "forged"})
	require.Error(t, err)
	assert.Equal(t, ErrStaleOAuthState, KindOf(err))
	// The wizard stays at GoogleAuth; a mismatch is fatal to the attempt,
	// not the step.
	assert.Equal(t, StepGoogleAuth, snap.Step)
	assert.Empty(t, f.google.codes)
}

func TestOAuthAttemptNotReusableAfterMismatch(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	req, err := f.wizard.OAuthRequest()
	require.NoError(t, err)
	_, err = f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: "forged"})
	require.Error(t, err)

	// Even the originally issued state is dead now.
	_, err = f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: req.State})
	require.Error(t, err)
	assert.Equal(t, ErrStaleOAuthState, KindOf(err))
}

func TestOAuthFreshRequestSupersedesOutstanding(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	first, err := f.wizard.OAuthRequest()
	require.NoError(t, err)
	second, err := f.wizard.OAuthRequest()
	require.NoError(t, err)
	assert.NotEqual(t, first.State, second.State)

	_, err = f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: first.State})
	require.Error(t, err)
	assert.Equal(t, ErrStaleOAuthState, KindOf(err))
}

func TestOAuthStateExpires(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	req, err := f.wizard.OAuthRequest()
	require.NoError(t, err)

	f.clock.Advance(oauthSessionTTL + time.Minute)

	_, err = f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: req.State})
	require.Error(t, err)
	assert.Equal(t, ErrStaleOAuthState, KindOf(err))
}

func TestOAuthSubmitWithoutRequest(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepGoogleAuth)

	_, err := f.wizard.Submit(context.Background(), GoogleAuthCode{Code: "auth-code", State: "anything"})
	require.Error(t, err)
	assert.Equal(t, ErrStaleOAuthState, KindOf(err))
}
