package web

import (
	"net/http"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/store"
	"github.com/inkylabs/inkyprovd/pkg/system"
)

func (t api) startConnection(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, t.prov.StartConnection())
}

func (t api) authorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContinueWhenActive bool `json:"continue_when_active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := t.prov.Authorize(req.ContinueWhenActive)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, res)
}

func (t api) completeConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"authorization_code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := t.prov.CompleteConnection(req.Code)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, res)
}

// statusResponse is the composite status surface: wizard state plus the
// live system facts the original daemon reported.
type statusResponse struct {
	Wizard   inkyprovd.WizardSnapshot `json:"wizard"`
	Wifi     system.WifiStatus        `json:"wifi"`
	Services map[string]bool          `json:"services"`
	Accounts struct {
		IcloudConfigured bool `json:"icloud_configured"`
	} `json:"accounts"`
}

func (t api) getStatus(w http.ResponseWriter, r *http.Request) {
	res := statusResponse{
		Wizard:   t.prov.ReadState(),
		Wifi:     t.wifi.Status(),
		Services: t.services.Active(r.Context()),
	}
	res.Accounts.IcloudConfigured = t.secrets.Has(store.SecretIcloudUsername, store.SecretIcloudPassword)
	sendResponse(w, res)
}

func (t api) getDevice(w http.ResponseWriter, r *http.Request) {
	info, err := t.prov.DeviceInfo()
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "Error reading device info")
		return
	}
	sendResponse(w, info)
}

func (t api) submitPair(w http.ResponseWriter, r *http.Request) {
	var ack inkyprovd.PairAck
	if !decodeBody(w, r, &ack) {
		return
	}
	t.submitStep(w, r, ack)
}

func (t api) submitWifi(w http.ResponseWriter, r *http.Request) {
	var creds inkyprovd.WifiCredentials
	if !decodeBody(w, r, &creds) {
		return
	}
	t.submitStep(w, r, creds)
}

func (t api) getOAuthURL(w http.ResponseWriter, r *http.Request) {
	res, err := t.prov.OAuthRequest()
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, res)
}

func (t api) submitOAuthCode(w http.ResponseWriter, r *http.Request) {
	var code inkyprovd.GoogleAuthCode
	if !decodeBody(w, r, &code) {
		return
	}
	t.submitStep(w, r, code)
}

func (t api) submitIcloud(w http.ResponseWriter, r *http.Request) {
	var creds inkyprovd.IcloudCredentials
	if !decodeBody(w, r, &creds) {
		return
	}
	t.submitStep(w, r, creds)
}

func (t api) submitSettings(w http.ResponseWriter, r *http.Request) {
	var payload inkyprovd.SettingsPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	t.submitStep(w, r, payload)
}

func (t api) submitApply(w http.ResponseWriter, r *http.Request) {
	var req inkyprovd.ApplyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t.submitStep(w, r, req)
}

// submitStep routes one wizard submission and renders the resulting
// snapshot, or the kinded error with the snapshot the caller would see on
// a status poll.
func (t api) submitStep(w http.ResponseWriter, r *http.Request, input inkyprovd.StepInput) {
	snap, err := t.prov.Submit(r.Context(), input)
	if err != nil {
		sendError(w, err)
		return
	}
	sendResponse(w, snap)
}
