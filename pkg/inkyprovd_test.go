package inkyprovd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeviceInfo struct{}

func (t fakeDeviceInfo) DeviceInfo() (DeviceInfo, error) {
	return DeviceInfo{Model: "Inky Frame", Serial: "abc123", Firmware: "1.2.3"}, nil
}

func newTestDaemon() (*Provisiond, *wizardFixture, *fakeDisplay) {
	f := newWizardFixture()
	display := &fakeDisplay{}
	handshake := NewHandshake(display, testLog())
	handshake.now = f.clock.Now
	return NewProvisiond(handshake, f.wizard, fakeDeviceInfo{}, testLog()), f, display
}

// pair drives the daemon through the full handshake.
func pair(t *testing.T, d *Provisiond) {
	t.Helper()
	res, err := d.Authorize(false)
	require.NoError(t, err)
	done, err := d.CompleteConnection(res.DisplayAuthorizationCode)
	require.NoError(t, err)
	require.True(t, done.Connected)
}

func TestDaemonSubmitGatedOnAuthorization(t *testing.T) {
	d, _, _ := newTestDaemon()

	_, err := d.Submit(context.Background(), PairAck{ClientName: "app"})
	require.Error(t, err)
	assert.Equal(t, ErrSessionExpired, KindOf(err))
	// The wizard never saw the submission.
	assert.Equal(t, StepScan, d.ReadState().Step)
}

func TestDaemonPairingMovesWizardToPairStep(t *testing.T) {
	d, _, _ := newTestDaemon()
	pair(t, d)

	assert.Equal(t, StepPair, d.ReadState().Step)

	snap, err := d.Submit(context.Background(), PairAck{ClientName: "app"})
	require.NoError(t, err)
	assert.Equal(t, StepWifi, snap.Step)
}

func TestDaemonAuthorizeResetsWizard(t *testing.T) {
	d, _, _ := newTestDaemon()
	pair(t, d)
	_, err := d.Submit(context.Background(), PairAck{ClientName: "app"})
	require.NoError(t, err)

	// A superseding session throws away the old session's progress.
	_, err = d.Authorize(true)
	require.NoError(t, err)
	snap := d.ReadState()
	assert.Equal(t, StepScan, snap.Step)
	assert.NotEqual(t, "", snap.SessionID)
}

func TestDaemonOAuthRequestGatedOnAuthorization(t *testing.T) {
	d, _, _ := newTestDaemon()

	_, err := d.OAuthRequest()
	require.Error(t, err)
	assert.Equal(t, ErrSessionExpired, KindOf(err))
}

func TestDaemonChangesCarryWizardTransitions(t *testing.T) {
	d, _, _ := newTestDaemon()
	pair(t, d)

	// Drain anything published during pairing, then submit one step and
	// expect its transition on the channel.
	for len(d.Changes) > 0 {
		<-d.Changes
	}
	snap, err := d.Submit(context.Background(), PairAck{ClientName: "app"})
	require.NoError(t, err)

	select {
	case change := <-d.Changes:
		assert.Equal(t, snap.Step, change.Step)
	default:
		t.Fatal("no change published for step transition")
	}
}

func TestDaemonApplyFinishesSession(t *testing.T) {
	d, f, display := newTestDaemon()
	pair(t, d)
	ctx := context.Background()

	steps := []StepInput{
		PairAck{ClientName: "app"},
		WifiCredentials{Ssid: "HomeNet", Password: "hunter22", Country: "US"},
	}
	for _, in := range steps {
		_, err := d.Submit(ctx, in)
		require.NoError(t, err)
	}
	req, err := d.OAuthRequest()
	require.NoError(t, err)
	remaining := []StepInput{
		GoogleAuthCode{Code: "auth-code", State: req.State},
		IcloudCredentials{Username: "user@example.com", AppPassword: "abcd-efgh"},
		SettingsPayload{Settings: validTestSettings()},
		ApplyRequest{Action: "apply"},
	}
	for _, in := range remaining {
		_, err := d.Submit(ctx, in)
		require.NoError(t, err)
	}

	assert.Equal(t, StepDone, d.ReadState().Step)
	assert.Len(t, f.config.committed, 1)

	// Done tears the session down; further submissions need a fresh
	// pairing.
	_, err = d.Submit(ctx, ApplyRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrSessionExpired, KindOf(err))
	assert.Equal(t, 1, display.cleared)
}

func TestDaemonDeviceInfoReadablePreAuthorization(t *testing.T) {
	d, _, _ := newTestDaemon()

	info, err := d.DeviceInfo()
	require.NoError(t, err)
	assert.Equal(t, "Inky Frame", info.Model)
	assert.Equal(t, "abc123", info.Serial)
}
