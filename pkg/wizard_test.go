package inkyprovd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardHappyPath(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()

	f.runToStep(StepApply)

	snap, err := f.wizard.Submit(ctx, ApplyRequest{Action: "apply"})
	require.NoError(t, err)
	assert.Equal(t, StepDone, snap.Step)
	assert.Equal(t, WireDone, snap.State)
	assert.Empty(t, snap.Warning)

	// Every applier ran exactly once with the submitted inputs.
	require.Len(t, f.wifi.calls, 1)
	assert.Equal(t, "HomeNet", f.wifi.calls[0].Ssid)
	require.Len(t, f.google.codes, 1)
	assert.Equal(t, "auth-code", f.google.codes[0].Code)
	require.Len(t, f.icloud.calls, 1)
	assert.Equal(t, 1, f.restart.calls)

	// The committed record carries metadata only, plus the settings.
	require.Len(t, f.config.committed, 1)
	committed := f.config.committed[0]
	assert.Equal(t, "HomeNet", committed.WifiSsid)
	assert.Equal(t, "US", committed.WifiCountry)
	assert.True(t, committed.GoogleLinked)
	assert.True(t, committed.IcloudLinked)
	assert.Equal(t, "user@example.com", committed.IcloudAccount)
	assert.Equal(t, validTestSettings(), committed.Settings)
}

func TestWizardSecretsGoToSinkNotConfig(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepSettings)

	assert.Equal(t, "hunter22", f.secrets.values["WIFI_PASSWORD"])
	assert.Equal(t, "user@example.com", f.secrets.values["ICLOUD_USERNAME"])
	assert.Equal(t, "abcd-efgh", f.secrets.values["ICLOUD_APP_PASSWORD"])
}

func TestWizardOpenNetworkSkipsSecretSink(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.wizard.BeginAuthorized("session-1")
	_, err := f.wizard.Submit(ctx, PairAck{ClientName: "app"})
	require.NoError(t, err)

	_, err = f.wizard.Submit(ctx, WifiCredentials{Ssid: "CafeOpen"})
	require.NoError(t, err)
	assert.NotContains(t, f.secrets.values, "WIFI_PASSWORD")
}

func TestWizardStepMismatchDoesNotMutate(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepWifi)

	snap, err := f.wizard.Submit(ctx, IcloudCredentials{Username: "u", AppPassword: "p"})
	require.Error(t, err)
	assert.Equal(t, ErrStepMismatch, KindOf(err))
	assert.Equal(t, StepWifi, snap.Step)
	assert.Empty(t, f.icloud.calls)

	// The right payload still advances afterward.
	snap, err = f.wizard.Submit(ctx, WifiCredentials{Ssid: "HomeNet", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, StepGoogleAuth, snap.Step)
}

func TestWizardWifiValidation(t *testing.T) {
	tests := []struct {
		name  string
		creds WifiCredentials
	}{
		{"missing ssid", WifiCredentials{Password: "hunter22"}},
		{"short password", WifiCredentials{Ssid: "HomeNet", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWizardFixture()
			f.runToStep(StepWifi)

			snap, err := f.wizard.Submit(context.Background(), tt.creds)
			require.Error(t, err)
			assert.Equal(t, ErrApplierFailure, KindOf(err))
			assert.Equal(t, StepError, snap.Step)
			// Rejected before the applier ever runs.
			assert.Empty(t, f.wifi.calls)
			assert.NotContains(t, err.Error(), "hunter22")
		})
	}
}

func TestWizardApplierFailureParksInErrorAndRetries(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepWifi)

	f.wifi.err = errTestFailure
	snap, err := f.wizard.Submit(ctx, WifiCredentials{Ssid: "HomeNet", Password: "hunter22"})
	require.Error(t, err)
	assert.Equal(t, ErrApplierFailure, KindOf(err))
	assert.Equal(t, StepError, snap.Step)
	assert.Equal(t, WireError, snap.State)
	assert.Equal(t, StepError, f.wizard.Snapshot().Step)

	// Another step is still a mismatch while parked in error.
	_, err = f.wizard.Submit(ctx, IcloudCredentials{Username: "u", AppPassword: "p"})
	require.Error(t, err)
	assert.Equal(t, ErrStepMismatch, KindOf(err))

	// Resubmitting the failed step retries it.
	f.wifi.err = nil
	snap, err = f.wizard.Submit(ctx, WifiCredentials{Ssid: "HomeNet", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, StepGoogleAuth, snap.Step)
	assert.Len(t, f.wifi.calls, 2)
}

func TestWizardBusyDuringBlockingApplier(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepWifi)

	f.wifi.started = make(chan struct{})
	f.wifi.release = make(chan struct{})

	done := make(chan WizardSnapshot, 1)
	go func() {
		snap, _ := f.wizard.Submit(ctx, WifiCredentials{Ssid: "HomeNet", Password: "hunter22"})
		done <- snap
	}()

	<-f.wifi.started

	// Reads are served while the applier blocks.
	busy := f.wizard.Snapshot()
	assert.True(t, busy.Busy)
	assert.Equal(t, WireWifiConnecting, busy.State)

	// A concurrent submit is refused rather than queued.
	_, err := f.wizard.Submit(ctx, WifiCredentials{Ssid: "Other", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, ErrStepMismatch, KindOf(err))

	close(f.wifi.release)
	select {
	case snap := <-done:
		assert.Equal(t, StepGoogleAuth, snap.Step)
		assert.False(t, snap.Busy)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submit never completed")
	}
}

func TestWizardSupersededMidApplierDoesNotLandInNewSession(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepWifi)

	f.wifi.started = make(chan struct{})
	f.wifi.release = make(chan struct{})

	type result struct {
		snap WizardSnapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := f.wizard.Submit(ctx, WifiCredentials{Ssid: "OldNet", Password: "hunter22"})
		done <- result{snap, err}
	}()

	<-f.wifi.started
	f.wizard.Reset("session-2")

	// The stale step still owns the busy flag; the fresh session cannot
	// start a step until it returns.
	assert.True(t, f.wizard.Snapshot().Busy)
	_, err := f.wizard.Submit(ctx, ScanAck{})
	require.Error(t, err)
	assert.Equal(t, ErrStepMismatch, KindOf(err))

	close(f.wifi.release)
	select {
	case res := <-done:
		require.Error(t, res.err)
		assert.Equal(t, ErrSessionExpired, KindOf(res.err))
	case <-time.After(2 * time.Second):
		t.Fatal("superseded submit never returned")
	}

	// The fresh session starts from scratch: nothing the dead session
	// submitted leaks into its step or staged config.
	snap := f.wizard.Snapshot()
	assert.Equal(t, "session-2", snap.SessionID)
	assert.Equal(t, StepScan, snap.Step)
	assert.False(t, snap.Busy)

	f.wifi.started = nil
	f.wifi.release = nil
	f.runToStep(StepApply)
	if _, err := f.wizard.Submit(ctx, ApplyRequest{Action: "apply"}); err != nil {
		t.Fatal(err)
	}
	require.Len(t, f.config.committed, 1)
	assert.Equal(t, "HomeNet", f.config.committed[0].WifiSsid)
}

func TestWizardIcloudSecretPersistFailure(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepIcloud)

	f.secrets.err = errTestFailure
	snap, err := f.wizard.Submit(context.Background(), IcloudCredentials{
		Username: "user@example.com", AppPassword: "abcd-efgh",
	})
	require.Error(t, err)
	assert.Equal(t, ErrPersistenceFailure, KindOf(err))
	assert.Equal(t, StepError, snap.Step)
}

func TestWizardSettingsRejectedThenAccepted(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepSettings)

	bad := validTestSettings()
	bad.RefreshMinutes = 0
	snap, err := f.wizard.Submit(ctx, SettingsPayload{Settings: bad})
	require.Error(t, err)
	assert.Equal(t, ErrApplierFailure, KindOf(err))
	assert.Equal(t, StepError, snap.Step)

	snap, err = f.wizard.Submit(ctx, SettingsPayload{Settings: validTestSettings()})
	require.NoError(t, err)
	assert.Equal(t, StepApply, snap.Step)
}

func TestWizardApplyPersistenceFailureKeepsStep(t *testing.T) {
	f := newWizardFixture()
	ctx := context.Background()
	f.runToStep(StepApply)

	f.config.err = errTestFailure
	snap, err := f.wizard.Submit(ctx, ApplyRequest{Action: "apply"})
	require.Error(t, err)
	assert.Equal(t, ErrPersistenceFailure, KindOf(err))
	assert.Equal(t, StepError, snap.Step)
	assert.Equal(t, 0, f.restart.calls)

	// A retry after the store recovers completes the flow.
	f.config.err = nil
	snap, err = f.wizard.Submit(ctx, ApplyRequest{Action: "apply"})
	require.NoError(t, err)
	assert.Equal(t, StepDone, snap.Step)
	assert.Equal(t, 1, f.restart.calls)
}

func TestWizardApplyRestartFailureIsWarning(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepApply)

	f.restart.err = errTestFailure
	snap, err := f.wizard.Submit(context.Background(), ApplyRequest{Action: "apply"})
	require.NoError(t, err)
	assert.Equal(t, StepDone, snap.Step)
	assert.Contains(t, snap.Warning, string(ErrRestartSignalFailure))
	assert.Len(t, f.config.committed, 1)
}

func TestWizardApplyRejectsUnknownAction(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepApply)

	_, err := f.wizard.Submit(context.Background(), ApplyRequest{Action: "reboot"})
	require.Error(t, err)
	assert.Equal(t, ErrApplierFailure, KindOf(err))
	assert.Empty(t, f.config.committed)
}

func TestWizardApplyFiresOnDone(t *testing.T) {
	f := newWizardFixture()
	fired := 0
	f.wizard.SetOnDone(func() { fired++ })
	f.runToStep(StepApply)

	_, err := f.wizard.Submit(context.Background(), ApplyRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestWizardJournalsProgress(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepWifi)

	require.NotEmpty(t, f.journal.snaps)
	last := f.journal.snaps[len(f.journal.snaps)-1]
	assert.Equal(t, StepWifi, last.Step)
	assert.Equal(t, "session-1", last.SessionID)
}

func TestWizardJournalFailureDoesNotBlockSteps(t *testing.T) {
	f := newWizardFixture()
	f.journal.err = errTestFailure
	f.wizard.BeginAuthorized("session-1")

	snap, err := f.wizard.Submit(context.Background(), PairAck{ClientName: "app"})
	require.NoError(t, err)
	assert.Equal(t, StepWifi, snap.Step)
}

func TestWizardResetClearsEverything(t *testing.T) {
	f := newWizardFixture()
	f.runToStep(StepSettings)

	f.wizard.Reset("session-2")
	snap := f.wizard.Snapshot()
	assert.Equal(t, StepScan, snap.Step)
	assert.Equal(t, WireIdle, snap.State)
	assert.Equal(t, "session-2", snap.SessionID)
	assert.False(t, snap.Busy)

	// Staged config from the old session is gone: a fresh run commits only
	// what the new session submitted.
	f.runToStep(StepApply)
	_, err := f.wizard.Submit(context.Background(), ApplyRequest{})
	require.NoError(t, err)
	require.Len(t, f.config.committed, 1)
	assert.Equal(t, "HomeNet", f.config.committed[0].WifiSsid)
}

func TestWizardOnChangeSeesEveryTransition(t *testing.T) {
	f := newWizardFixture()
	var steps []WizardStep
	f.wizard.SetOnChange(func(snap WizardSnapshot) { steps = append(steps, snap.Step) })

	f.runToStep(StepWifi)
	assert.Contains(t, steps, StepPair)
	assert.Contains(t, steps, StepWifi)
}

func TestWireStateMapping(t *testing.T) {
	assert.Equal(t, WireIdle, wireState(StepScan, false))
	assert.Equal(t, WireAwaitingWifi, wireState(StepPair, false))
	assert.Equal(t, WireAwaitingWifi, wireState(StepWifi, false))
	assert.Equal(t, WireWifiConnecting, wireState(StepWifi, true))
	assert.Equal(t, WireOAuthPending, wireState(StepGoogleAuth, false))
	assert.Equal(t, WireIcloudPending, wireState(StepIcloud, false))
	assert.Equal(t, WireSettingsPending, wireState(StepSettings, false))
	assert.Equal(t, WireApplyingChanges, wireState(StepApply, false))
	assert.Equal(t, WireDone, wireState(StepDone, false))
	assert.Equal(t, WireError, wireState(StepError, false))
}
