package inkysetup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// postJSON is the shared request helper for the unauthenticated unix
// socket surface.
func postJSON(method, path string, body any, out any) error {
	client := getSocketClient()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, "http://inkyprovd"+path, &buf)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsonErr := json.NewDecoder(resp.Body).Decode(&apiErr); jsonErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// checkStatusCmd probes the daemon and reports any live session.
func checkStatusCmd() tea.Cmd {
	return func() tea.Msg {
		var res inkyprovd.StartConnectionResult
		if err := postJSON(http.MethodPost, "/connection/start", struct{}{}, &res); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{servicesActive: res.ServicesActive, promptMessage: res.PromptMessage}
	}
}

// authorizeCmd asks the device to display an authorization code.
func authorizeCmd(continueWhenActive bool) tea.Cmd {
	return func() tea.Msg {
		var res inkyprovd.AuthorizeResult
		body := map[string]bool{"continue_when_active": continueWhenActive}
		if err := postJSON(http.MethodPost, "/connection/authorize", body, &res); err != nil {
			return authorizeMsg{err: err}
		}
		return authorizeMsg{codeLength: res.CodeLength}
	}
}

// completeCmd relays the on-device code back and acknowledges the Pair
// step.
func completeCmd(code string) tea.Cmd {
	return func() tea.Msg {
		body := map[string]string{"authorization_code": code}
		if err := postJSON(http.MethodPost, "/connection/complete", body, nil); err != nil {
			return pairedMsg{err: err}
		}
		ack := map[string]string{"client_name": "inky-setup"}
		if err := postJSON(http.MethodPost, "/pair", ack, nil); err != nil {
			return pairedMsg{err: err}
		}
		return pairedMsg{}
	}
}

// submitWifiCmd submits Wi-Fi credentials and waits for the association.
func submitWifiCmd(ssid, password string) tea.Cmd {
	return func() tea.Msg {
		var snap inkyprovd.WizardSnapshot
		creds := inkyprovd.WifiCredentials{Ssid: ssid, Password: password}
		if err := postJSON(http.MethodPost, "/wifi", creds, &snap); err != nil {
			return stepResultMsg{err: err}
		}
		return stepResultMsg{snapshot: snap}
	}
}

// fetchOAuthURLCmd fetches the Google consent URL and state token.
func fetchOAuthURLCmd() tea.Cmd {
	return func() tea.Msg {
		var res inkyprovd.OAuthRequest
		if err := postJSON(http.MethodGet, "/google/oauth-url", nil, &res); err != nil {
			return oauthURLMsg{err: err}
		}
		return oauthURLMsg{url: res.URL, state: res.State}
	}
}

// submitGoogleCodeCmd relays the pasted consent code with its state token.
func submitGoogleCodeCmd(code, state string) tea.Cmd {
	return func() tea.Msg {
		var snap inkyprovd.WizardSnapshot
		payload := inkyprovd.GoogleAuthCode{Code: code, State: state}
		if err := postJSON(http.MethodPost, "/google/oauth-code", payload, &snap); err != nil {
			return stepResultMsg{err: err}
		}
		return stepResultMsg{snapshot: snap}
	}
}

// submitIcloudCmd validates and stores the iCloud app password.
func submitIcloudCmd(username, password string) tea.Cmd {
	return func() tea.Msg {
		var snap inkyprovd.WizardSnapshot
		creds := inkyprovd.IcloudCredentials{Username: username, AppPassword: password}
		if err := postJSON(http.MethodPost, "/icloud", creds, &snap); err != nil {
			return stepResultMsg{err: err}
		}
		return stepResultMsg{snapshot: snap}
	}
}

// fetchTimezonesCmd pulls the daemon's curated timezone list. On error the
// model keeps its built-in fallback list.
func fetchTimezonesCmd() tea.Cmd {
	return func() tea.Msg {
		var entries []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := postJSON(http.MethodGet, "/system/timezones", nil, &entries); err != nil {
			return timezonesMsg{err: err}
		}
		timezones := make([]string, 0, len(entries))
		for _, e := range entries {
			timezones = append(timezones, e.Value)
		}
		return timezonesMsg{timezones: timezones}
	}
}

// submitSettingsCmd stages the device settings.
func submitSettingsCmd(settings inkyprovd.DeviceSettings) tea.Cmd {
	return func() tea.Msg {
		var snap inkyprovd.WizardSnapshot
		payload := inkyprovd.SettingsPayload{Settings: settings}
		if err := postJSON(http.MethodPost, "/settings", payload, &snap); err != nil {
			return stepResultMsg{err: err}
		}
		return stepResultMsg{snapshot: snap}
	}
}

// submitApplyCmd persists everything and restarts the calendar services.
func submitApplyCmd() tea.Cmd {
	return func() tea.Msg {
		var snap inkyprovd.WizardSnapshot
		payload := inkyprovd.ApplyRequest{Action: "apply"}
		if err := postJSON(http.MethodPost, "/apply", payload, &snap); err != nil {
			return stepResultMsg{err: err}
		}
		return stepResultMsg{snapshot: snap}
	}
}
