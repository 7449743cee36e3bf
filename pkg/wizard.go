package inkyprovd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// WizardSnapshot is the externally visible wizard state, shared verbatim by
// the HTTP status endpoint and the Setup State characteristic.
type WizardSnapshot struct {
	SessionID string     `json:"session_id,omitempty"`
	Step      WizardStep `json:"step"`
	State     WireState  `json:"state"`
	Message   string     `json:"message,omitempty"`
	Busy      bool       `json:"busy"`
	Warning   string     `json:"warning,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProgressJournal persists wizard progress so a restarted daemon can still
// report where setup got to.
type ProgressJournal interface {
	SaveProgress(snapshot WizardSnapshot) error
}

// WizardConfig carries the static knobs the wizard needs beyond its
// appliers.
type WizardConfig struct {
	GoogleClientID    string
	GoogleRedirectURI string
}

/* Wizard drives the ordered configuration steps for one authorized
 * session. Submissions must match the current step exactly; each step
 * delegates its side effect to an Applier and only advances on success.
 *
 * An applier failure parks the wizard in the error state. The failed step
 * is remembered so the caller can restart it by resubmitting the same
 * step; any other submission still fails with step_mismatch. Starting a
 * new pairing session resets everything.
 */
type Wizard struct {
	mu        sync.Mutex
	sessionID string
	step      WizardStep
	message   string
	warning   string
	busy      bool
	failed    bool

	// gen is bumped on every Reset. A step that released the lock for an
	// applier call compares it on reacquire so a superseded session's
	// in-flight step cannot land in the successor session.
	gen uint64

	pending PendingConfig
	oauth   *OAuthSession

	appliers Appliers
	config   WizardConfig
	journal  ProgressJournal
	onChange func(WizardSnapshot)
	onDone   func()
	log      *logrus.Entry
	now      func() time.Time
}

func NewWizard(appliers Appliers, config WizardConfig, journal ProgressJournal, log *logrus.Entry) *Wizard {
	return &Wizard{
		step:     StepScan,
		appliers: appliers,
		config:   config,
		journal:  journal,
		log:      log,
		now:      time.Now,
	}
}

// SetOnChange registers the state-change sink used for websocket pushes and
// GATT notifies.
func (t *Wizard) SetOnChange(fn func(WizardSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// SetOnDone registers the hook fired when the wizard reaches Done.
func (t *Wizard) SetOnDone(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDone = fn
}

// Reset reverts the wizard to its initial state for a new session. The
// busy flag is left alone: it belongs to an applier call still holding
// it, and that call lowers it itself when it notices the supersession.
func (t *Wizard) Reset(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.sessionID = sessionID
	t.step = StepScan
	t.message = ""
	t.warning = ""
	t.failed = false
	t.pending = PendingConfig{}
	t.oauth = nil
	t.publishLocked()
}

// BeginAuthorized moves a freshly authorized session to the Pair step.
func (t *Wizard) BeginAuthorized(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = sessionID
	t.step = StepPair
	t.message = "Paired. Waiting for Wi-Fi credentials."
	t.failed = false
	t.publishLocked()
}

// Snapshot returns the current externally visible state.
func (t *Wizard) Snapshot() WizardSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Wizard) snapshotLocked() WizardSnapshot {
	step := t.step
	if t.failed {
		step = StepError
	}
	return WizardSnapshot{
		SessionID: t.sessionID,
		Step:      step,
		State:     wireState(step, t.busy),
		Message:   t.message,
		Busy:      t.busy,
		Warning:   t.warning,
		UpdatedAt: t.now(),
	}
}

// OAuthRequest mints a fresh OAuthSession and returns the consent URL
// payload. Only valid while the wizard is waiting on the GoogleAuth step;
// each read supersedes any earlier outstanding attempt.
func (t *Wizard) OAuthRequest() (OAuthRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.step != StepGoogleAuth || t.busy {
		return OAuthRequest{}, Errf(ErrStepMismatch, "wizard is not waiting for Google authorization")
	}

	session, err := newOAuthSession(t.now())
	if err != nil {
		return OAuthRequest{}, err
	}
	t.oauth = session

	return OAuthRequest{
		URL:           session.AuthURL(t.config.GoogleClientID, t.config.GoogleRedirectURI),
		State:         session.StateToken,
		CodeChallenge: session.CodeChallenge,
	}, nil
}

// Submit runs one wizard step. The busy flag is raised for the duration of
// the applier call so concurrent readState polls can tell "still working"
// from "stalled"; the wizard lock is released while the applier runs.
func (t *Wizard) Submit(ctx context.Context, input StepInput) (WizardSnapshot, error) {
	t.mu.Lock()

	if t.busy {
		t.mu.Unlock()
		return t.Snapshot(), Errf(ErrStepMismatch, "another step is already in progress")
	}
	if input.Step() != t.step {
		// No mutation on mismatch: the snapshot the caller gets back is
		// exactly what readState would have returned.
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, Errf(ErrStepMismatch, "expected step %s, got %s", t.step, input.Step())
	}

	switch in := input.(type) {
	case ScanAck:
		return t.advanceLocked("Device discovered.")
	case PairAck:
		return t.advanceLocked("Paired. Waiting for Wi-Fi credentials.")
	case WifiCredentials:
		return t.submitWifi(ctx, in)
	case GoogleAuthCode:
		return t.submitGoogleAuth(ctx, in)
	case IcloudCredentials:
		return t.submitIcloud(ctx, in)
	case SettingsPayload:
		return t.submitSettings(in)
	case ApplyRequest:
		return t.submitApply(ctx, in)
	default:
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, Errf(ErrStepMismatch, "unknown step payload %T", input)
	}
}

func (t *Wizard) submitWifi(ctx context.Context, creds WifiCredentials) (WizardSnapshot, error) {
	if creds.Ssid == "" {
		return t.failLocked(Errf(ErrApplierFailure, "Wi-Fi SSID is required"))
	}
	if creds.Password != "" && len(creds.Password) < 8 {
		return t.failLocked(Errf(ErrApplierFailure, "Wi-Fi password must be at least 8 characters"))
	}
	if creds.Country == "" {
		creds.Country = "US"
	}

	gen := t.beginBusyLocked(fmt.Sprintf("Connecting to %q...", creds.Ssid))
	err := t.appliers.Wifi.Connect(ctx, creds)
	if snap, rerr := t.resumeLocked(gen); rerr != nil {
		return snap, rerr
	}
	t.busy = false

	if err != nil {
		return t.failLocked(asApplierFailure(fmt.Errorf("Wi-Fi association failed: %w", err)))
	}

	if creds.Password != "" {
		if err := t.appliers.Secrets.SetSecrets(map[string]string{
			"WIFI_PASSWORD": creds.Password,
		}); err != nil {
			return t.failLocked(Errf(ErrPersistenceFailure, "storing Wi-Fi credentials: %v", err))
		}
	}

	t.pending.WifiSsid = creds.Ssid
	t.pending.WifiCountry = creds.Country
	return t.advanceLocked(fmt.Sprintf("Connected to %q. Waiting for Google authorization.", creds.Ssid))
}

func (t *Wizard) submitGoogleAuth(ctx context.Context, code GoogleAuthCode) (WizardSnapshot, error) {
	oauth := t.oauth
	if err := oauth.validate(code.State, t.now()); err != nil {
		// Fatal to this attempt: the caller must fetch a new authorization
		// URL. The wizard itself stays at the GoogleAuth step.
		t.oauth = nil
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, err
	}

	gen := t.beginBusyLocked("Exchanging Google authorization code...")
	err := t.appliers.Google.Exchange(ctx, code, oauth.verifier)
	if snap, rerr := t.resumeLocked(gen); rerr != nil {
		return snap, rerr
	}
	t.busy = false

	if err != nil {
		return t.failLocked(asApplierFailure(fmt.Errorf("Google authorization failed: %w", err)))
	}

	t.oauth = nil
	t.pending.GoogleLinked = true
	return t.advanceLocked("Google Calendar linked. Waiting for iCloud credentials.")
}

func (t *Wizard) submitIcloud(ctx context.Context, creds IcloudCredentials) (WizardSnapshot, error) {
	if creds.Username == "" || creds.AppPassword == "" {
		return t.failLocked(Errf(ErrApplierFailure, "iCloud username and app password are required"))
	}

	gen := t.beginBusyLocked("Validating iCloud credentials...")
	err := t.appliers.Icloud.Validate(ctx, creds)
	if snap, rerr := t.resumeLocked(gen); rerr != nil {
		return snap, rerr
	}
	t.busy = false

	if err != nil {
		return t.failLocked(asApplierFailure(fmt.Errorf("iCloud validation failed: %w", err)))
	}

	if err := t.appliers.Secrets.SetSecrets(map[string]string{
		"ICLOUD_USERNAME":     creds.Username,
		"ICLOUD_APP_PASSWORD": creds.AppPassword,
	}); err != nil {
		return t.failLocked(Errf(ErrPersistenceFailure, "storing iCloud credentials: %v", err))
	}

	t.pending.IcloudLinked = true
	t.pending.IcloudAccount = creds.Username
	return t.advanceLocked("iCloud account linked. Waiting for device settings.")
}

func (t *Wizard) submitSettings(payload SettingsPayload) (WizardSnapshot, error) {
	if err := payload.Settings.Validate(); err != nil {
		return t.failLocked(Errf(ErrApplierFailure, "settings rejected: %v", err))
	}

	t.pending.Settings = payload.Settings
	return t.advanceLocked("Settings staged. Ready to apply.")
}

func (t *Wizard) submitApply(ctx context.Context, req ApplyRequest) (WizardSnapshot, error) {
	if req.Action != "" && req.Action != "apply" {
		return t.failLocked(Errf(ErrApplierFailure, "unknown apply action %q", req.Action))
	}

	gen := t.beginBusyLocked("Applying configuration...")
	persistErr := t.appliers.Config.Commit(t.pending)
	if snap, rerr := t.resumeLocked(gen); rerr != nil {
		return snap, rerr
	}

	if persistErr != nil {
		// The config store guarantees the previous record is untouched.
		t.busy = false
		return t.failLocked(Errf(ErrPersistenceFailure, "persisting configuration: %v", persistErr))
	}

	// busy stays raised through the restart signal so concurrent submits
	// are refused for the whole apply.
	t.mu.Unlock()
	restartErr := t.appliers.Restart.Restart(ctx)
	if snap, rerr := t.resumeLocked(gen); rerr != nil {
		return snap, rerr
	}
	t.busy = false

	if restartErr != nil {
		// Config is durable; the restart miss is a warning, not a failure.
		t.warning = fmt.Sprintf("%s: configuration saved but restart signal failed: %v",
			ErrRestartSignalFailure, restartErr)
		t.log.WithError(restartErr).Warn("restart signal failed after successful apply")
	}

	snap, err := t.advanceLocked("Configuration applied.")
	if t.onDone != nil {
		t.onDone()
	}
	return snap, err
}

// beginBusyLocked raises the busy flag, publishes the transition, and
// releases the lock so readState can be served while the applier runs.
// The returned generation is handed back to resumeLocked.
func (t *Wizard) beginBusyLocked(message string) uint64 {
	t.busy = true
	t.message = message
	gen := t.gen
	t.publishLocked()
	t.mu.Unlock()
	return gen
}

// resumeLocked reacquires the lock after an applier call. If the session
// was superseded while the lock was released, the stale step lowers the
// busy flag it raised and reports session_expired; the successor
// session's state is not touched.
func (t *Wizard) resumeLocked(gen uint64) (WizardSnapshot, error) {
	t.mu.Lock()
	if t.gen == gen {
		return WizardSnapshot{}, nil
	}
	t.busy = false
	snap := t.publishLocked()
	t.mu.Unlock()
	return snap, Errf(ErrSessionExpired, "pairing session superseded while the step was in flight")
}

// advanceLocked moves to the next step, publishes, and releases the lock.
func (t *Wizard) advanceLocked(message string) (WizardSnapshot, error) {
	t.failed = false
	t.step = t.step.next()
	t.message = message
	snap := t.publishLocked()
	t.mu.Unlock()
	return snap, nil
}

// failLocked parks the wizard in the error state without advancing,
// publishes, and releases the lock.
func (t *Wizard) failLocked(err *Error) (WizardSnapshot, error) {
	t.failed = true
	t.message = err.Message
	snap := t.publishLocked()
	t.mu.Unlock()
	t.log.WithField("kind", err.Kind).Warn(err.Message)
	return snap, err
}

// publishLocked snapshots, journals, and notifies. Journal errors are
// logged and swallowed: losing a progress record must not fail a step.
func (t *Wizard) publishLocked() WizardSnapshot {
	snap := t.snapshotLocked()
	if t.journal != nil {
		if err := t.journal.SaveProgress(snap); err != nil {
			t.log.WithError(err).Warn("failed to journal wizard progress")
		}
	}
	if t.onChange != nil {
		t.onChange(snap)
	}
	return snap
}
