package inkyprovd

/* The setup wizard is a strictly ordered sequence of steps. Each step has
 * exactly one payload type, submitted via Provisiond.Submit, and each
 * payload carries only the fields valid for its step. Out-of-order
 * submissions fail with step_mismatch rather than reordering.
 *
 * All step payloads must implement Step() to identify which wizard step
 * they belong to.
 */

// WizardStep enumerates the ordered wizard states.
type WizardStep string

const (
	StepScan       WizardStep = "scan"
	StepPair       WizardStep = "pair"
	StepWifi       WizardStep = "wifi"
	StepGoogleAuth WizardStep = "google_auth"
	StepIcloud     WizardStep = "icloud"
	StepSettings   WizardStep = "settings"
	StepApply      WizardStep = "apply"
	StepDone       WizardStep = "done"
	StepError      WizardStep = "error"
)

// stepOrder drives forward-only advancement. Error and Done are terminal
// and never submitted to.
var stepOrder = []WizardStep{
	StepScan, StepPair, StepWifi, StepGoogleAuth,
	StepIcloud, StepSettings, StepApply, StepDone,
}

// next returns the step following s in the ordered flow.
func (s WizardStep) next() WizardStep {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1]
		}
	}
	return StepDone
}

// WireState is the transport-level name for a wizard state. These are the
// values published on the Setup State characteristic and the /status
// endpoint, shared verbatim by both transports.
type WireState string

const (
	WireIdle            WireState = "idle"
	WireAwaitingWifi    WireState = "awaiting_wifi"
	WireWifiConnecting  WireState = "wifi_connecting"
	WireWifiConnected   WireState = "wifi_connected"
	WireOAuthPending    WireState = "oauth_pending"
	WireIcloudPending   WireState = "icloud_pending"
	WireSettingsPending WireState = "settings_pending"
	WireApplyingChanges WireState = "applying_changes"
	WireDone            WireState = "done"
	WireError           WireState = "error"
)

// wireState maps an internal step (plus the busy flag) onto the published
// state name. A successful Wi-Fi step advances straight to GoogleAuth, so
// wifi_connected is reported by the Wi-Fi Status characteristic rather
// than here.
func wireState(step WizardStep, busy bool) WireState {
	switch step {
	case StepScan:
		return WireIdle
	case StepPair:
		return WireAwaitingWifi
	case StepWifi:
		if busy {
			return WireWifiConnecting
		}
		return WireAwaitingWifi
	case StepGoogleAuth:
		return WireOAuthPending
	case StepIcloud:
		return WireIcloudPending
	case StepSettings:
		return WireSettingsPending
	case StepApply:
		return WireApplyingChanges
	case StepDone:
		return WireDone
	case StepError:
		return WireError
	}
	return WireIdle
}

// StepInput is a wizard step payload. One implementation exists per
// submittable step.
type StepInput interface {
	Step() WizardStep
}

// ScanAck acknowledges device discovery. The handshake normally moves the
// wizard past Scan, so this exists for transports that surface the step
// explicitly.
type ScanAck struct{}

func (ScanAck) Step() WizardStep { return StepScan }

// PairAck confirms the paired client after CompleteConnection.
type PairAck struct {
	ClientName string `json:"client_name"`
}

func (PairAck) Step() WizardStep { return StepPair }

// WifiCredentials joins the device to a wireless network. The password is
// held transiently and never written to the config record.
type WifiCredentials struct {
	Ssid     string `json:"ssid"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

func (WifiCredentials) Step() WizardStep { return StepWifi }

// GoogleAuthCode is the OAuth authorization code relayed back from the
// mobile app, together with the anti-replay state token issued with the
// authorization URL.
type GoogleAuthCode struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirect_uri"`
}

func (GoogleAuthCode) Step() WizardStep { return StepGoogleAuth }

// IcloudCredentials carries an app-specific password for CalDAV access.
// Validated against the calendar service before acceptance, then stored in
// the restricted secret file only.
type IcloudCredentials struct {
	Username    string `json:"username"`
	AppPassword string `json:"app_password"`
}

func (IcloudCredentials) Step() WizardStep { return StepIcloud }

// SettingsPayload carries the device settings for the Settings step.
type SettingsPayload struct {
	Settings DeviceSettings `json:"settings"`
}

func (SettingsPayload) Step() WizardStep { return StepSettings }

// ApplyRequest triggers the terminal persist-and-restart step.
type ApplyRequest struct {
	Action string `json:"action"`
}

func (ApplyRequest) Step() WizardStep { return StepApply }
