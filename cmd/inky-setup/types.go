package inkysetup

import (
	"github.com/charmbracelet/bubbles/viewport"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// setupStep represents the current step in the setup process
type setupStep int

const (
	stepCheckingStatus setupStep = iota
	stepConflict
	stepReady
	stepAuthorizing
	stepEnterCode
	stepWifiSsid
	stepWifiPassword
	stepGoogleConsent
	stepGoogleCode
	stepIcloudUser
	stepIcloudPassword
	stepTimezone
	stepRefresh
	stepRotation
	stepConfirm
	stepApplying
	stepComplete
)

// setupModel holds the collected configuration and UI state.
type setupModel struct {
	// Collected values
	authCode       string
	wifiSsid       string
	wifiPassword   string
	googleCode     string
	googleState    string
	googleURL      string
	icloudUser     string
	icloudPassword string
	settings       inkyprovd.DeviceSettings

	// Options
	timezones   []string
	timezoneIdx int
	rotations   []int
	rotationIdx int

	// UI state
	currentStep   setupStep
	width, height int
	err           error
	isProcessing  bool
	codeLength    int
	warning       string
	timezoneVP    viewport.Model

	// Connection
	socketPath string
}

// Message types
type statusMsg struct {
	servicesActive bool
	promptMessage  string
	err            error
}

type authorizeMsg struct {
	codeLength int
	err        error
}

type pairedMsg struct {
	err error
}

type oauthURLMsg struct {
	url   string
	state string
	err   error
}

type stepResultMsg struct {
	snapshot inkyprovd.WizardSnapshot
	err      error
}

type timezonesMsg struct {
	timezones []string
	err       error
}
