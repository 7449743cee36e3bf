package inkysetup

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Init initializes the model and returns initial commands
func (m setupModel) Init() tea.Cmd {
	return checkStatusCmd()
}

// Update handles messages and updates the model
func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		listHeight := msg.Height - 10
		if listHeight < 3 {
			listHeight = 3
		}
		listWidth := msg.Width - 4
		if listWidth < 20 {
			listWidth = 20
		}
		m.timezoneVP.Width = listWidth
		m.timezoneVP.Height = listHeight
		m.refreshTimezoneViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.isProcessing {
			return m, nil
		}

		switch m.currentStep {
		case stepCheckingStatus:
			return m, nil
		case stepConflict:
			return m.handleConflictInput(msg)
		case stepReady:
			if msg.String() == "enter" {
				m.isProcessing = true
				m.err = nil
				m.currentStep = stepAuthorizing
				return m, authorizeCmd(false)
			}
			return m, nil
		case stepEnterCode:
			return m.handleCodeInput(msg)
		case stepWifiSsid:
			return m.handleWifiSsidInput(msg)
		case stepWifiPassword:
			return m.handleWifiPasswordInput(msg)
		case stepGoogleConsent:
			if msg.String() == "enter" {
				m.currentStep = stepGoogleCode
				m.err = nil
			}
			return m, nil
		case stepGoogleCode:
			return m.handleGoogleCodeInput(msg)
		case stepIcloudUser:
			return m.handleIcloudUserInput(msg)
		case stepIcloudPassword:
			return m.handleIcloudPasswordInput(msg)
		case stepTimezone:
			return m.handleTimezoneInput(msg)
		case stepRefresh:
			return m.handleRefreshInput(msg)
		case stepRotation:
			return m.handleRotationInput(msg)
		case stepConfirm:
			if msg.String() == "enter" {
				m.isProcessing = true
				m.err = nil
				m.currentStep = stepApplying
				return m, submitApplyCmd()
			}
			return m, nil
		case stepApplying:
			// Only reachable with an error showing; enter retries.
			if msg.String() == "enter" {
				m.isProcessing = true
				m.err = nil
				return m, submitApplyCmd()
			}
			return m, nil
		case stepComplete:
			if msg.String() == "enter" || msg.String() == "q" {
				return m, tea.Quit
			}
		}

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.servicesActive {
			m.currentStep = stepConflict
		} else {
			m.currentStep = stepReady
		}
		return m, nil

	case authorizeMsg:
		m.isProcessing = false
		if msg.err != nil {
			m.err = msg.err
			m.currentStep = stepReady
			return m, nil
		}
		m.codeLength = msg.codeLength
		m.currentStep = stepEnterCode
		return m, nil

	case pairedMsg:
		m.isProcessing = false
		if msg.err != nil {
			m.err = msg.err
			m.authCode = ""
			return m, nil
		}
		m.err = nil
		m.currentStep = stepWifiSsid
		return m, nil

	case oauthURLMsg:
		m.isProcessing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.googleURL = msg.url
		m.googleState = msg.state
		return m, nil

	case timezonesMsg:
		// Fetch failures fall back to the built-in list silently.
		if msg.err == nil && len(msg.timezones) > 0 {
			m.timezones = msg.timezones
			m.timezoneIdx = 0
			m.refreshTimezoneViewport()
		}
		return m, nil

	case stepResultMsg:
		return m.handleStepResult(msg)
	}

	return m, nil
}

// handleStepResult routes a wizard submission outcome to the next UI step.
func (m setupModel) handleStepResult(msg stepResultMsg) (tea.Model, tea.Cmd) {
	m.isProcessing = false
	if msg.err != nil {
		m.err = msg.err
		// The daemon keeps the failed step resubmittable, so the UI stays
		// on its current screen for a retry.
		return m, nil
	}
	m.err = nil
	m.warning = msg.snapshot.Warning

	switch m.currentStep {
	case stepWifiPassword:
		m.isProcessing = true
		m.currentStep = stepGoogleConsent
		return m, fetchOAuthURLCmd()
	case stepGoogleCode:
		m.currentStep = stepIcloudUser
	case stepIcloudPassword:
		m.currentStep = stepTimezone
		m.refreshTimezoneViewport()
		return m, fetchTimezonesCmd()
	case stepConfirm:
		// Settings accepted, move on to the apply confirmation screen
		// content; nothing to submit yet.
	case stepApplying:
		m.currentStep = stepComplete
	}
	return m, nil
}

func (m setupModel) handleConflictInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		m.isProcessing = true
		m.err = nil
		m.currentStep = stepAuthorizing
		return m, authorizeCmd(true)
	case "q", "n":
		return m, tea.Quit
	}
	return m, nil
}

func (m setupModel) handleCodeInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if len(m.authCode) != m.codeLength {
			m.err = fmt.Errorf("the code is %d digits", m.codeLength)
			return m, nil
		}
		m.isProcessing = true
		m.err = nil
		return m, completeCmd(m.authCode)
	case "backspace":
		if len(m.authCode) > 0 {
			m.authCode = m.authCode[:len(m.authCode)-1]
		}
	default:
		s := msg.String()
		if len(s) == 1 && s >= "0" && s <= "9" && len(m.authCode) < m.codeLength {
			m.authCode += s
		}
	}
	return m, nil
}

func (m setupModel) handleWifiSsidInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.wifiSsid == "" {
			m.err = fmt.Errorf("network name cannot be empty")
			return m, nil
		}
		m.err = nil
		m.currentStep = stepWifiPassword
	case "backspace":
		if len(m.wifiSsid) > 0 {
			m.wifiSsid = m.wifiSsid[:len(m.wifiSsid)-1]
		}
	default:
		if len(msg.String()) == 1 && len(m.wifiSsid) < 32 {
			m.wifiSsid += msg.String()
		}
	}
	return m, nil
}

func (m setupModel) handleWifiPasswordInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.isProcessing = true
		m.err = nil
		return m, submitWifiCmd(m.wifiSsid, m.wifiPassword)
	case "backspace":
		if len(m.wifiPassword) > 0 {
			m.wifiPassword = m.wifiPassword[:len(m.wifiPassword)-1]
		}
	default:
		if len(msg.String()) == 1 && len(m.wifiPassword) < 63 {
			m.wifiPassword += msg.String()
		}
	}
	return m, nil
}

func (m setupModel) handleGoogleCodeInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.googleCode == "" {
			m.err = fmt.Errorf("authorization code cannot be empty")
			return m, nil
		}
		m.isProcessing = true
		m.err = nil
		return m, submitGoogleCodeCmd(strings.TrimSpace(m.googleCode), m.googleState)
	case "backspace":
		if len(m.googleCode) > 0 {
			m.googleCode = m.googleCode[:len(m.googleCode)-1]
		}
	default:
		if len(msg.String()) == 1 {
			m.googleCode += msg.String()
		}
	}
	return m, nil
}

func (m setupModel) handleIcloudUserInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.icloudUser == "" {
			m.err = fmt.Errorf("Apple ID cannot be empty")
			return m, nil
		}
		m.err = nil
		m.currentStep = stepIcloudPassword
	case "backspace":
		if len(m.icloudUser) > 0 {
			m.icloudUser = m.icloudUser[:len(m.icloudUser)-1]
		}
	default:
		if len(msg.String()) == 1 && len(m.icloudUser) < 64 {
			m.icloudUser += msg.String()
		}
	}
	return m, nil
}

func (m setupModel) handleIcloudPasswordInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.icloudPassword == "" {
			m.err = fmt.Errorf("app-specific password cannot be empty")
			return m, nil
		}
		m.isProcessing = true
		m.err = nil
		return m, submitIcloudCmd(m.icloudUser, m.icloudPassword)
	case "backspace":
		if len(m.icloudPassword) > 0 {
			m.icloudPassword = m.icloudPassword[:len(m.icloudPassword)-1]
		}
	default:
		if len(msg.String()) == 1 && len(m.icloudPassword) < 64 {
			m.icloudPassword += msg.String()
		}
	}
	return m, nil
}

func (m setupModel) handleTimezoneInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	updated := false

	switch msg.String() {
	case "enter":
		m.settings.Timezone = m.timezones[m.timezoneIdx]
		m.err = nil
		m.currentStep = stepRefresh
		return m, nil
	case "up", "k":
		if m.timezoneIdx > 0 {
			m.timezoneIdx--
			updated = true
		}
	case "down", "j":
		if m.timezoneIdx < len(m.timezones)-1 {
			m.timezoneIdx++
			updated = true
		}
	}

	if updated {
		m.refreshTimezoneViewport()
	}
	return m, nil
}

func (m setupModel) handleRefreshInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	current := strconv.Itoa(m.settings.RefreshMinutes)
	switch msg.String() {
	case "enter":
		if m.settings.RefreshMinutes < 1 || m.settings.RefreshMinutes > 1440 {
			m.err = fmt.Errorf("refresh interval must be between 1 and 1440 minutes")
			return m, nil
		}
		m.err = nil
		m.currentStep = stepRotation
	case "backspace":
		if len(current) > 0 {
			current = current[:len(current)-1]
			m.settings.RefreshMinutes, _ = strconv.Atoi(current)
		}
	default:
		s := msg.String()
		if len(s) == 1 && s >= "0" && s <= "9" && len(current) < 4 {
			m.settings.RefreshMinutes, _ = strconv.Atoi(current + s)
		}
	}
	return m, nil
}

func (m setupModel) handleRotationInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.settings.PortraitRotation = m.rotations[m.rotationIdx]
		m.isProcessing = true
		m.err = nil
		m.currentStep = stepConfirm
		return m, submitSettingsCmd(m.settings)
	case "left", "h":
		if m.rotationIdx > 0 {
			m.rotationIdx--
		}
	case "right", "l":
		if m.rotationIdx < len(m.rotations)-1 {
			m.rotationIdx++
		}
	}
	return m, nil
}
