package inkysetup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Bold(true)

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// View renders the UI
func (m setupModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var content string

	switch m.currentStep {
	case stepCheckingStatus:
		content = m.renderCheckingStatusStep()
	case stepConflict:
		content = m.renderConflictStep()
	case stepReady:
		content = m.renderReadyStep()
	case stepAuthorizing:
		content = m.renderProcessingStep("Waking the display", "The device is rendering your pairing code...")
	case stepEnterCode:
		content = m.renderEnterCodeStep()
	case stepWifiSsid:
		content = m.renderWifiSsidStep()
	case stepWifiPassword:
		content = m.renderWifiPasswordStep()
	case stepGoogleConsent:
		content = m.renderGoogleConsentStep()
	case stepGoogleCode:
		content = m.renderGoogleCodeStep()
	case stepIcloudUser:
		content = m.renderIcloudUserStep()
	case stepIcloudPassword:
		content = m.renderIcloudPasswordStep()
	case stepTimezone:
		content = m.renderTimezoneStep()
	case stepRefresh:
		content = m.renderRefreshStep()
	case stepRotation:
		content = m.renderRotationStep()
	case stepConfirm:
		content = m.renderConfirmStep()
	case stepApplying:
		content = m.renderProcessingStep("Applying Configuration", "Saving settings and restarting calendar services...")
	case stepComplete:
		content = m.renderCompleteStep()
	}

	if m.err != nil {
		content += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return content
}

func indent(content string) string {
	return " " + strings.ReplaceAll(content, "\n", "\n ")
}

func (m setupModel) renderCheckingStatusStep() string {
	title := titleStyle.Render("Looking for your Inky")
	subtitle := progressStyle.Render("Checking whether the device is ready to pair...")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))
}

func (m setupModel) renderConflictStep() string {
	title := titleStyle.Render("Setup Already In Progress")
	message := normalStyle.Render(
		"Another setup session is already active on this device.\n" +
			"Taking over will cancel that session and its progress.")
	help := helpStyle.Render("Enter: Take Over • Q: Quit")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, "", message, "", help))
}

func (m setupModel) renderReadyStep() string {
	title := titleStyle.Render("Welcome to Inky Setup")
	subtitle := subtitleStyle.Render("Your calendar device needs initial configuration")

	description := normalStyle.Render(
		"This wizard will guide you through setting up your device.\n" +
			"You'll need to:\n\n" +
			"  • Read a pairing code off the device display\n" +
			"  • Connect the device to your Wi-Fi\n" +
			"  • Link your Google and iCloud calendars\n" +
			"  • Pick timezone and display settings")

	prompt := successStyle.Render("Ready to begin?")
	help := helpStyle.Render("Enter: Start Setup • Ctrl+C: Cancel")

	return indent(lipgloss.JoinVertical(lipgloss.Left,
		title, subtitle, "", description, "", prompt, "", help))
}

func (m setupModel) renderProcessingStep(heading, detail string) string {
	title := titleStyle.Render(heading)
	subtitle := progressStyle.Render(detail)
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))
}

func (m setupModel) renderEnterCodeStep() string {
	title := titleStyle.Render("Enter Pairing Code")
	subtitle := subtitleStyle.Render(
		fmt.Sprintf("Type the %d-digit code shown on the device's e-ink display", m.codeLength))

	display := m.authCode + strings.Repeat("_", m.codeLength-len(m.authCode))
	field := inputStyle.Render(strings.Join(strings.Split(display, ""), " "))

	help := helpStyle.Render("Enter: Confirm • Backspace: Delete")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderWifiSsidStep() string {
	title := titleStyle.Render("Wi-Fi Network")
	subtitle := subtitleStyle.Render("The network the device will use to fetch your calendars")
	field := inputStyle.Render(m.wifiSsid + "▌")
	help := helpStyle.Render("Enter: Next")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderWifiPasswordStep() string {
	if m.isProcessing {
		return m.renderProcessingStep("Connecting",
			fmt.Sprintf("Joining %q, this can take up to a minute...", m.wifiSsid))
	}
	title := titleStyle.Render("Wi-Fi Password")
	subtitle := subtitleStyle.Render("Leave empty for an open network")
	field := inputStyle.Render(strings.Repeat("*", len(m.wifiPassword)) + "▌")
	help := helpStyle.Render("Enter: Connect")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderGoogleConsentStep() string {
	if m.isProcessing || m.googleURL == "" {
		return m.renderProcessingStep("Google Calendar", "Preparing the authorization URL...")
	}
	title := titleStyle.Render("Link Google Calendar")
	instructions := normalStyle.Render(
		"Open this URL in a browser on any device and approve access:")
	url := inputStyle.Render(m.googleURL)
	help := helpStyle.Render("Enter: I have the authorization code")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, "", instructions, "", url, "", help))
}

func (m setupModel) renderGoogleCodeStep() string {
	title := titleStyle.Render("Google Authorization Code")
	subtitle := subtitleStyle.Render("Paste the code from the consent page")
	field := inputStyle.Render(m.googleCode + "▌")
	help := helpStyle.Render("Enter: Submit")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderIcloudUserStep() string {
	title := titleStyle.Render("Link iCloud Calendar")
	subtitle := subtitleStyle.Render("Your Apple ID email address")
	field := inputStyle.Render(m.icloudUser + "▌")
	help := helpStyle.Render("Enter: Next")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderIcloudPasswordStep() string {
	if m.isProcessing {
		return m.renderProcessingStep("Validating", "Checking the app-specific password with iCloud...")
	}
	title := titleStyle.Render("App-Specific Password")
	subtitle := subtitleStyle.Render("Generate one at appleid.apple.com under Sign-In and Security")
	field := inputStyle.Render(strings.Repeat("*", len(m.icloudPassword)) + "▌")
	help := helpStyle.Render("Enter: Validate")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderTimezoneStep() string {
	title := titleStyle.Render("Timezone")
	subtitle := subtitleStyle.Render("Where this calendar lives")
	help := helpStyle.Render("↑/↓: Select • Enter: Confirm")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", m.timezoneVP.View(), "", help))
}

// refreshTimezoneViewport rebuilds the timezone list content and keeps the
// selection in view.
func (m *setupModel) refreshTimezoneViewport() {
	var b strings.Builder
	for i, tz := range m.timezones {
		if i == m.timezoneIdx {
			b.WriteString(selectedStyle.Render("> " + tz))
		} else {
			b.WriteString(normalStyle.Render("  " + tz))
		}
		b.WriteString("\n")
	}
	m.timezoneVP.SetContent(b.String())

	if m.timezoneVP.Height > 0 {
		top := m.timezoneVP.YOffset
		if m.timezoneIdx < top {
			m.timezoneVP.SetYOffset(m.timezoneIdx)
		} else if m.timezoneIdx >= top+m.timezoneVP.Height {
			m.timezoneVP.SetYOffset(m.timezoneIdx - m.timezoneVP.Height + 1)
		}
	}
}

func (m setupModel) renderRefreshStep() string {
	title := titleStyle.Render("Refresh Interval")
	subtitle := subtitleStyle.Render("Minutes between display refreshes (1-1440)")
	field := inputStyle.Render(fmt.Sprintf("%d", m.settings.RefreshMinutes))
	help := helpStyle.Render("Enter: Confirm")
	return indent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", field, "", help))
}

func (m setupModel) renderRotationStep() string {
	title := titleStyle.Render("Panel Rotation")
	subtitle := subtitleStyle.Render("How the frame is mounted")

	var options []string
	for i, r := range m.rotations {
		label := fmt.Sprintf(" %d° ", r)
		if i == m.rotationIdx {
			options = append(options, selectedStyle.Render("["+label+"]"))
		} else {
			options = append(options, normalStyle.Render(" "+label+" "))
		}
	}

	help := helpStyle.Render("←/→: Select • Enter: Confirm")
	return indent(lipgloss.JoinVertical(lipgloss.Left,
		title, subtitle, "", strings.Join(options, " "), "", help))
}

func (m setupModel) renderConfirmStep() string {
	if m.isProcessing {
		return m.renderProcessingStep("Saving Settings", "Staging your device settings...")
	}
	title := titleStyle.Render("Ready to Apply")

	summary := normalStyle.Render(fmt.Sprintf(
		"  Wi-Fi network:    %s\n"+
			"  Google Calendar:  linked\n"+
			"  iCloud account:   %s\n"+
			"  Timezone:         %s\n"+
			"  Refresh interval: every %d minutes\n"+
			"  Panel rotation:   %d°",
		m.wifiSsid, m.icloudUser, m.settings.Timezone,
		m.settings.RefreshMinutes, m.settings.PortraitRotation))

	prompt := successStyle.Render("Apply configuration and restart calendar services?")
	help := helpStyle.Render("Enter: Apply • Ctrl+C: Cancel")

	return indent(lipgloss.JoinVertical(lipgloss.Left, title, "", summary, "", prompt, "", help))
}

func (m setupModel) renderCompleteStep() string {
	title := successStyle.Render("Setup Complete")
	message := normalStyle.Render(
		"Your Inky is configured. The display will refresh with your\n" +
			"calendars shortly.")

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", message)
	if m.warning != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "",
			warningStyle.Render("Warning: "+m.warning))
	}

	help := helpStyle.Render("Enter: Exit")
	return indent(lipgloss.JoinVertical(lipgloss.Left, content, "", help))
}
