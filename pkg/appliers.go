package inkyprovd

import "context"

/* Appliers are the external collaborators that perform real configuration
 * side effects. The wizard depends on them only through these contracts;
 * network association, token exchange and service restarts all live behind
 * them so the state machine stays transport- and platform-agnostic.
 */

// WifiApplier associates the device with a wireless network. Connect blocks
// until the association attempt resolves; the wizard's busy flag covers the
// wait.
type WifiApplier interface {
	Connect(ctx context.Context, creds WifiCredentials) error
}

// OAuthApplier exchanges a Google authorization code for tokens using the
// PKCE verifier from the issued OAuthSession, persisting the result through
// the secret store. State-token validation happens in the wizard before
// Exchange is called.
type OAuthApplier interface {
	Exchange(ctx context.Context, code GoogleAuthCode, verifier string) error
}

// IcloudApplier validates app-specific credentials against the CalDAV
// service. The wizard stores accepted credentials through the secret store;
// the applier never retains a copy.
type IcloudApplier interface {
	Validate(ctx context.Context, creds IcloudCredentials) error
}

// ConfigApplier commits staged configuration. Commit must be atomic: either
// the full record becomes durable or the previous record stays untouched.
type ConfigApplier interface {
	Commit(pending PendingConfig) error
}

// RestartSignaler kicks the calendar services after a successful Apply.
// Failure here is reported as a warning, never as a config failure.
type RestartSignaler interface {
	Restart(ctx context.Context) error
}

// CodeDisplay shows the authorization code on the physical device. This is
// the only place the code is ever rendered.
type CodeDisplay interface {
	ShowCode(code string) error
	Clear() error
}

// SecretSink is the restricted-permission store appliers write credentials
// through. Secrets are owned by the store; appliers and the wizard hold
// them only transiently.
type SecretSink interface {
	SetSecrets(values map[string]string) error
}

// Appliers bundles every collaborator the wizard needs.
type Appliers struct {
	Wifi    WifiApplier
	Google  OAuthApplier
	Icloud  IcloudApplier
	Config  ConfigApplier
	Restart RestartSignaler
	Secrets SecretSink
}

// PendingConfig is the staged, validated configuration the Apply step
// merges into the durable config record. Wi-Fi and account entries hold
// non-secret metadata only.
type PendingConfig struct {
	Settings      DeviceSettings `json:"settings"`
	WifiSsid      string         `json:"wifi_ssid"`
	WifiCountry   string         `json:"wifi_country"`
	GoogleLinked  bool           `json:"google_linked"`
	IcloudLinked  bool           `json:"icloud_linked"`
	IcloudAccount string         `json:"icloud_account"`
}
