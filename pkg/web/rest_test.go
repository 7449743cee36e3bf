package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/system"
)

const testToken = "test-setup-token"

type fakeProvisioner struct {
	started     bool
	authorized  bool
	completed   string
	submitted   []inkyprovd.StepInput
	submitErr   error
	authorizeErr error
	snapshot    inkyprovd.WizardSnapshot
}

func (t *fakeProvisioner) StartConnection() inkyprovd.StartConnectionResult {
	t.started = true
	return inkyprovd.StartConnectionResult{CanConnect: true}
}

func (t *fakeProvisioner) Authorize(continueWhenActive bool) (inkyprovd.AuthorizeResult, error) {
	if t.authorizeErr != nil {
		return inkyprovd.AuthorizeResult{}, t.authorizeErr
	}
	t.authorized = true
	return inkyprovd.AuthorizeResult{DisplayAuthorizationCode: "123456", CodeLength: 6}, nil
}

func (t *fakeProvisioner) CompleteConnection(code string) (inkyprovd.CompleteResult, error) {
	t.completed = code
	if code != "123456" {
		return inkyprovd.CompleteResult{}, inkyprovd.Errf(inkyprovd.ErrInvalidCode, "authorization code not accepted")
	}
	return inkyprovd.CompleteResult{Connected: true}, nil
}

func (t *fakeProvisioner) Submit(ctx context.Context, input inkyprovd.StepInput) (inkyprovd.WizardSnapshot, error) {
	t.submitted = append(t.submitted, input)
	if t.submitErr != nil {
		return t.snapshot, t.submitErr
	}
	return t.snapshot, nil
}

func (t *fakeProvisioner) ReadState() inkyprovd.WizardSnapshot { return t.snapshot }

func (t *fakeProvisioner) OAuthRequest() (inkyprovd.OAuthRequest, error) {
	return inkyprovd.OAuthRequest{URL: "https://accounts.google.com/o/oauth2/v2/auth?x=1", State: "state-token"}, nil
}

func (t *fakeProvisioner) DeviceInfo() (inkyprovd.DeviceInfo, error) {
	return inkyprovd.DeviceInfo{Model: "Inky Frame 7", Serial: "abc123", Firmware: "1.2.3"}, nil
}

type fakeWifiReader struct{}

func (fakeWifiReader) Status() system.WifiStatus {
	return system.WifiStatus{Connected: true, Ssid: "HomeNet", IP: "192.168.1.20"}
}

type fakeSecrets struct{ has bool }

func (t fakeSecrets) Has(keys ...string) bool { return t.has }

type fakeServices struct{ active bool }

func (t fakeServices) Active(ctx context.Context) map[string]bool {
	return map[string]bool{"inkycal.service": t.active}
}

func newTestAPI(t *testing.T, prov inkyprovd.Provisioner) api {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log := logrus.NewEntry(logger)

	config := inkyprovd.ServerConfig{SetupToken: testToken}
	relay := NewRelay(make(chan inkyprovd.WizardSnapshot), prov, log)
	svc := RESTAPI(config, prov, fakeWifiReader{}, fakeSecrets{has: true}, fakeServices{active: true}, relay, log)
	a, ok := svc.(api)
	require.True(t, ok)
	return a
}

func doRequest(t *testing.T, a api, method, path string, body any, withToken bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if withToken {
		req.Header.Set(setupTokenHeader, testToken)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func TestRoutesRejectMissingToken(t *testing.T) {
	a := newTestAPI(t, &fakeProvisioner{})

	for _, route := range []struct {
		method string
		path   string
	}{
		{"POST", "/connection/start"},
		{"GET", "/status"},
		{"POST", "/pair"},
		{"POST", "/wifi"},
		{"POST", "/apply"},
	} {
		rec := doRequest(t, a, route.method, route.path, map[string]any{}, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestStartConnection(t *testing.T) {
	prov := &fakeProvisioner{}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/connection/start", map[string]any{}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res inkyprovd.StartConnectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.CanConnect)
	assert.True(t, prov.started)
}

func TestAuthorizeConflictMapsTo409(t *testing.T) {
	prov := &fakeProvisioner{
		authorizeErr: inkyprovd.Errf(inkyprovd.ErrSessionConflict, "a setup session is already active"),
	}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/connection/authorize", map[string]any{"continue_when_active": false}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "session_conflict", res.Error)
}

func TestCompleteConnectionInvalidCodeMapsTo403(t *testing.T) {
	a := newTestAPI(t, &fakeProvisioner{})

	rec := doRequest(t, a, "POST", "/connection/complete", map[string]string{"authorization_code": "000000"}, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "invalid_code", res.Error)
	// The real code never echoes back in an error payload.
	assert.NotContains(t, rec.Body.String(), "123456")
}

func TestCompleteConnectionSuccess(t *testing.T) {
	prov := &fakeProvisioner{}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/connection/complete", map[string]string{"authorization_code": "123456"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res inkyprovd.CompleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Connected)
}

func TestSubmitWifiRoutesPayload(t *testing.T) {
	prov := &fakeProvisioner{snapshot: inkyprovd.WizardSnapshot{Step: inkyprovd.StepGoogleAuth}}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/wifi", map[string]string{
		"ssid": "HomeNet", "password": "hunter22", "country": "DE",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, prov.submitted, 1)
	creds, ok := prov.submitted[0].(inkyprovd.WifiCredentials)
	require.True(t, ok)
	assert.Equal(t, "HomeNet", creds.Ssid)
	assert.Equal(t, "DE", creds.Country)
}

func TestSubmitStepMismatchMapsTo409(t *testing.T) {
	prov := &fakeProvisioner{
		submitErr: inkyprovd.Errf(inkyprovd.ErrStepMismatch, "expected step wifi, got settings"),
	}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/settings", map[string]any{"settings": map[string]any{}}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitRejectsUnknownFields(t *testing.T) {
	prov := &fakeProvisioner{}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "POST", "/wifi", map[string]string{"ssid": "x", "passwrd": "typo1234"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, prov.submitted)
}

func TestGetStatusComposite(t *testing.T) {
	prov := &fakeProvisioner{snapshot: inkyprovd.WizardSnapshot{
		Step:  inkyprovd.StepSettings,
		State: inkyprovd.WireSettingsPending,
	}}
	a := newTestAPI(t, prov)

	rec := doRequest(t, a, "GET", "/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, inkyprovd.StepSettings, res.Wizard.Step)
	assert.True(t, res.Wifi.Connected)
	assert.True(t, res.Services["inkycal.service"])
	assert.True(t, res.Accounts.IcloudConfigured)
}

func TestGetDevice(t *testing.T) {
	a := newTestAPI(t, &fakeProvisioner{})

	rec := doRequest(t, a, "GET", "/device", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var info inkyprovd.DeviceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "Inky Frame 7", info.Model)
}

func TestGetOAuthURL(t *testing.T) {
	a := newTestAPI(t, &fakeProvisioner{})

	rec := doRequest(t, a, "GET", "/google/oauth-url", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res inkyprovd.OAuthRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.URL)
	assert.NotEmpty(t, res.State)
}
