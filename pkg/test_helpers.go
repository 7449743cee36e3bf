package inkyprovd

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Test fakes for the applier contracts. Shared by the handshake, wizard
// and daemon tests.

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type fakeDisplay struct {
	codes    []string
	cleared  int
	failShow bool
}

func (t *fakeDisplay) ShowCode(code string) error {
	if t.failShow {
		return errTestFailure
	}
	t.codes = append(t.codes, code)
	return nil
}

func (t *fakeDisplay) Clear() error {
	t.cleared++
	return nil
}

type fakeWifiApplier struct {
	err     error
	calls   []WifiCredentials
	started chan struct{}
	release chan struct{}
}

func (t *fakeWifiApplier) Connect(ctx context.Context, creds WifiCredentials) error {
	t.calls = append(t.calls, creds)
	if t.started != nil {
		close(t.started)
		<-t.release
	}
	return t.err
}

type fakeOAuthApplier struct {
	err       error
	verifiers []string
	codes     []GoogleAuthCode
}

func (t *fakeOAuthApplier) Exchange(ctx context.Context, code GoogleAuthCode, verifier string) error {
	t.codes = append(t.codes, code)
	t.verifiers = append(t.verifiers, verifier)
	return t.err
}

type fakeIcloudApplier struct {
	err   error
	calls []IcloudCredentials
}

func (t *fakeIcloudApplier) Validate(ctx context.Context, creds IcloudCredentials) error {
	t.calls = append(t.calls, creds)
	return t.err
}

type fakeConfigApplier struct {
	err       error
	committed []PendingConfig
}

func (t *fakeConfigApplier) Commit(pending PendingConfig) error {
	if t.err != nil {
		return t.err
	}
	t.committed = append(t.committed, pending)
	return nil
}

type fakeRestartSignaler struct {
	err   error
	calls int
}

func (t *fakeRestartSignaler) Restart(ctx context.Context) error {
	t.calls++
	return t.err
}

type fakeSecretSink struct {
	err    error
	values map[string]string
}

func (t *fakeSecretSink) SetSecrets(values map[string]string) error {
	if t.err != nil {
		return t.err
	}
	if t.values == nil {
		t.values = map[string]string{}
	}
	for k, v := range values {
		t.values[k] = v
	}
	return nil
}

type fakeJournal struct {
	snaps []WizardSnapshot
	err   error
}

func (t *fakeJournal) SaveProgress(snapshot WizardSnapshot) error {
	if t.err != nil {
		return t.err
	}
	t.snaps = append(t.snaps, snapshot)
	return nil
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTestFailure = testErr("induced failure")

// fakeClock is an adjustable time source for expiry tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type wizardFixture struct {
	wizard  *Wizard
	wifi    *fakeWifiApplier
	google  *fakeOAuthApplier
	icloud  *fakeIcloudApplier
	config  *fakeConfigApplier
	restart *fakeRestartSignaler
	secrets *fakeSecretSink
	journal *fakeJournal
	clock   *fakeClock
}

func newWizardFixture() *wizardFixture {
	f := &wizardFixture{
		wifi:    &fakeWifiApplier{},
		google:  &fakeOAuthApplier{},
		icloud:  &fakeIcloudApplier{},
		config:  &fakeConfigApplier{},
		restart: &fakeRestartSignaler{},
		secrets: &fakeSecretSink{},
		journal: &fakeJournal{},
		clock:   newFakeClock(),
	}
	f.wizard = NewWizard(Appliers{
		Wifi:    f.wifi,
		Google:  f.google,
		Icloud:  f.icloud,
		Config:  f.config,
		Restart: f.restart,
		Secrets: f.secrets,
	}, WizardConfig{
		GoogleClientID:    "client-id",
		GoogleRedirectURI: "com.example.app:/oauth",
	}, f.journal, testLog())
	f.wizard.now = f.clock.Now
	return f
}

// runToStep drives the wizard from Pair up to the given step with
// successful submissions.
func (f *wizardFixture) runToStep(step WizardStep) {
	ctx := context.Background()
	f.wizard.BeginAuthorized("session-1")
	for f.wizard.Snapshot().Step != step {
		current := f.wizard.Snapshot().Step
		var input StepInput
		switch current {
		case StepPair:
			input = PairAck{ClientName: "test-client"}
		case StepWifi:
			input = WifiCredentials{Ssid: "HomeNet", Password: "hunter22", Country: "US"}
		case StepGoogleAuth:
			req, err := f.wizard.OAuthRequest()
			if err != nil {
				panic(err)
			}
			input = GoogleAuthCode{Code: "auth-code", State: req.State}
		case StepIcloud:
			input = IcloudCredentials{Username: "user@example.com", AppPassword: "abcd-efgh"}
		case StepSettings:
			input = SettingsPayload{Settings: validTestSettings()}
		default:
			panic("runToStep overshot " + string(current))
		}
		if _, err := f.wizard.Submit(ctx, input); err != nil {
			panic(err)
		}
	}
}

func validTestSettings() DeviceSettings {
	return DeviceSettings{
		Timezone:         "Europe/Berlin",
		SleepStart:       "23:00",
		SleepEnd:         "06:00",
		PortraitRotation: 90,
		RefreshMinutes:   30,
		DeepCleanDay:     "Sunday",
		DeepCleanTime:    "03:30",
	}
}
