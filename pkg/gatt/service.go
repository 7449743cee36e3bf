package gatt

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/system"
)

// WifiStatusReader feeds the Wi-Fi Status characteristic.
type WifiStatusReader interface {
	Status() system.WifiStatus
}

// SettingsReader feeds the read side of the Settings characteristic with
// the durable record's current values.
type SettingsReader interface {
	Settings() (inkyprovd.DeviceSettings, bool, error)
}

// SetupStatePayload is the Setup State characteristic value.
type SetupStatePayload struct {
	State   inkyprovd.WireState `json:"state"`
	Message string              `json:"message,omitempty"`
	Busy    bool                `json:"busy"`
}

// PairingCommand drives the connection handshake over BLE. The same three
// operations the HTTP binding exposes as routes arrive here as ops on one
// write characteristic.
type PairingCommand struct {
	Op                 string `json:"op"` // start, authorize, complete
	ContinueWhenActive bool   `json:"continue_when_active,omitempty"`
	AuthorizationCode  string `json:"authorization_code,omitempty"`
	ClientName         string `json:"client_name,omitempty"`
}

// PairingState is the readable/notified handshake outcome. The
// authorization code itself never appears here; over BLE it is only ever
// rendered on the device display.
type PairingState struct {
	CanConnect     bool   `json:"can_connect"`
	ServicesActive bool   `json:"services_active"`
	PromptContinue bool   `json:"prompt_continue"`
	PromptMessage  string `json:"prompt_message,omitempty"`
	CodeLength     int    `json:"code_length,omitempty"`
	Connected      bool   `json:"connected"`
	LastError      string `json:"last_error,omitempty"`
}

type applyPayload struct {
	Action string `json:"action"`
}

// Service is the GATT attribute table bound onto the core provisioning
// operations. A peripheral stack calls Read/Write/Subscribe; the service
// enforces property masks and the bonded-write requirement.
type Service struct {
	mu      sync.Mutex
	chars   map[string]*Characteristic
	subs    map[string]map[int]func([]byte)
	nextSub int
	pairing PairingState

	prov     inkyprovd.Provisioner
	wifi     WifiStatusReader
	settings SettingsReader
	changes  <-chan inkyprovd.WizardSnapshot
	log      *logrus.Entry
}

func NewService(
	prov inkyprovd.Provisioner,
	wifi WifiStatusReader,
	settings SettingsReader,
	changes <-chan inkyprovd.WizardSnapshot,
	log *logrus.Entry,
) *Service {
	t := &Service{
		chars:    map[string]*Characteristic{},
		subs:     map[string]map[int]func([]byte){},
		prov:     prov,
		wifi:     wifi,
		settings: settings,
		changes:  changes,
		log:      log,
	}

	for _, c := range []*Characteristic{
		{UUID: CharDeviceInfo, Name: "Device Info", Props: PropRead, read: t.readDeviceInfo},
		{UUID: CharSetupState, Name: "Setup State", Props: PropRead | PropNotify, read: t.readSetupState},
		{UUID: CharPairingControl, Name: "Pairing Control", Props: PropWrite | PropEncryptedWrite, write: t.writePairingControl},
		{UUID: CharPairingState, Name: "Pairing State", Props: PropRead | PropNotify, read: t.readPairingState},
		{UUID: CharWifiConfig, Name: "Wi-Fi Config", Props: PropWrite | PropEncryptedWrite, write: t.writeWifiConfig},
		{UUID: CharWifiStatus, Name: "Wi-Fi Status", Props: PropRead | PropNotify, read: t.readWifiStatus},
		{UUID: CharGoogleOAuthURL, Name: "Google OAuth URL", Props: PropRead, read: t.readOAuthURL},
		{UUID: CharGoogleOAuthCode, Name: "Google OAuth Code", Props: PropWrite | PropEncryptedWrite, write: t.writeOAuthCode},
		{UUID: CharIcloudConfig, Name: "iCloud Config", Props: PropWrite | PropEncryptedWrite, write: t.writeIcloudConfig},
		{UUID: CharSettings, Name: "Settings", Props: PropRead | PropWrite | PropEncryptedWrite, read: t.readSettings, write: t.writeSettings},
		{UUID: CharApplyRestart, Name: "Apply+Restart", Props: PropWrite | PropEncryptedWrite, write: t.writeApply},
	} {
		t.chars[c.UUID] = c
	}
	return t
}

// Characteristics returns the attribute table for peripheral registration.
func (t *Service) Characteristics() []*Characteristic {
	out := make([]*Characteristic, 0, len(t.chars))
	for _, uuid := range []string{
		CharDeviceInfo, CharSetupState, CharPairingControl, CharPairingState,
		CharWifiConfig, CharWifiStatus, CharGoogleOAuthURL, CharGoogleOAuthCode,
		CharIcloudConfig, CharSettings, CharApplyRestart,
	} {
		out = append(out, t.chars[uuid])
	}
	return out
}

// Read serves a characteristic read, CBOR-encoded.
func (t *Service) Read(ctx context.Context, uuid string) ([]byte, error) {
	c, ok := t.chars[uuid]
	if !ok {
		return nil, ErrUnknownCharacteristic
	}
	if !c.Props.Has(PropRead) || c.read == nil {
		return nil, ErrNotReadable
	}
	value, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	return encode(value)
}

// Write serves a characteristic write. bonded reflects the link's BLE
// bonding state; unbonded writes are refused before any payload decoding.
func (t *Service) Write(ctx context.Context, uuid string, payload []byte, bonded bool) error {
	c, ok := t.chars[uuid]
	if !ok {
		return ErrUnknownCharacteristic
	}
	if !c.Props.Has(PropWrite) || c.write == nil {
		return ErrNotWritable
	}
	if c.Props.Has(PropEncryptedWrite) && !bonded {
		return ErrNotBonded
	}
	result, err := c.write(ctx, payload)
	if err != nil {
		return err
	}
	if result != nil {
		if raw, encErr := encode(result); encErr == nil {
			t.notify(uuid, raw)
		}
	}
	return nil
}

// Subscribe registers a notify sink for a characteristic. The returned
// function unsubscribes.
func (t *Service) Subscribe(uuid string, fn func([]byte)) (func(), error) {
	c, ok := t.chars[uuid]
	if !ok {
		return nil, ErrUnknownCharacteristic
	}
	if !c.Props.Has(PropNotify) {
		return nil, ErrNotReadable
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subs[uuid] == nil {
		t.subs[uuid] = map[int]func([]byte){}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[uuid][id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs[uuid], id)
	}, nil
}

// Run consumes wizard state changes and pushes Setup State notifications,
// refreshing Wi-Fi Status alongside the Wi-Fi related transitions.
func (t *Service) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case snap := <-t.changes:
				t.notifySnapshot(snap)
			case <-stop:
				stopped <- true
				return
			}
		}
	}()
	return nil
}

func (t *Service) notifySnapshot(snap inkyprovd.WizardSnapshot) {
	payload := SetupStatePayload{State: snap.State, Message: snap.Message, Busy: snap.Busy}
	if raw, err := encode(payload); err == nil {
		t.notify(CharSetupState, raw)
	}

	switch snap.State {
	case inkyprovd.WireWifiConnecting, inkyprovd.WireOAuthPending:
		if raw, err := encode(t.wifi.Status()); err == nil {
			t.notify(CharWifiStatus, raw)
		}
	}
}

func (t *Service) notify(uuid string, payload []byte) {
	t.mu.Lock()
	sinks := make([]func([]byte), 0, len(t.subs[uuid]))
	for _, fn := range t.subs[uuid] {
		sinks = append(sinks, fn)
	}
	t.mu.Unlock()
	for _, fn := range sinks {
		fn(payload)
	}
}

func (t *Service) readDeviceInfo(ctx context.Context) (any, error) {
	return t.prov.DeviceInfo()
}

func (t *Service) readSetupState(ctx context.Context) (any, error) {
	snap := t.prov.ReadState()
	return SetupStatePayload{State: snap.State, Message: snap.Message, Busy: snap.Busy}, nil
}

func (t *Service) readPairingState(ctx context.Context) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pairing, nil
}

func (t *Service) readWifiStatus(ctx context.Context) (any, error) {
	return t.wifi.Status(), nil
}

func (t *Service) readOAuthURL(ctx context.Context) (any, error) {
	return t.prov.OAuthRequest()
}

func (t *Service) readSettings(ctx context.Context) (any, error) {
	settings, _, err := t.settings.Settings()
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (t *Service) writePairingControl(ctx context.Context, payload []byte) (any, error) {
	var cmd PairingCommand
	if err := decode(payload, &cmd); err != nil {
		return nil, err
	}

	state := PairingState{}
	switch cmd.Op {
	case "start":
		res := t.prov.StartConnection()
		state.CanConnect = res.CanConnect
		state.ServicesActive = res.ServicesActive
		state.PromptContinue = res.PromptContinue
		state.PromptMessage = res.PromptMessage
	case "authorize":
		res, err := t.prov.Authorize(cmd.ContinueWhenActive)
		if err != nil {
			state.LastError = err.Error()
		} else {
			state.CanConnect = true
			state.CodeLength = res.CodeLength
		}
	case "complete":
		res, err := t.prov.CompleteConnection(cmd.AuthorizationCode)
		if err != nil {
			state.LastError = err.Error()
		} else {
			state.CanConnect = true
			state.Connected = res.Connected
			// A completed handshake acknowledges the Pair step so the next
			// write can be Wi-Fi credentials.
			if _, err := t.prov.Submit(ctx, inkyprovd.PairAck{ClientName: cmd.ClientName}); err != nil {
				state.LastError = err.Error()
			}
		}
	default:
		return nil, fmt.Errorf("unknown pairing op %q", cmd.Op)
	}

	t.mu.Lock()
	t.pairing = state
	t.mu.Unlock()

	// Notified on the state characteristic, not the control one.
	if raw, err := encode(state); err == nil {
		t.notify(CharPairingState, raw)
	}
	return nil, nil
}

func (t *Service) writeWifiConfig(ctx context.Context, payload []byte) (any, error) {
	var creds inkyprovd.WifiCredentials
	if err := decode(payload, &creds); err != nil {
		return nil, err
	}
	_, err := t.prov.Submit(ctx, creds)
	return nil, err
}

func (t *Service) writeOAuthCode(ctx context.Context, payload []byte) (any, error) {
	var code inkyprovd.GoogleAuthCode
	if err := decode(payload, &code); err != nil {
		return nil, err
	}
	_, err := t.prov.Submit(ctx, code)
	return nil, err
}

func (t *Service) writeIcloudConfig(ctx context.Context, payload []byte) (any, error) {
	var creds inkyprovd.IcloudCredentials
	if err := decode(payload, &creds); err != nil {
		return nil, err
	}
	_, err := t.prov.Submit(ctx, creds)
	return nil, err
}

func (t *Service) writeSettings(ctx context.Context, payload []byte) (any, error) {
	var settings inkyprovd.DeviceSettings
	if err := decode(payload, &settings); err != nil {
		return nil, err
	}
	_, err := t.prov.Submit(ctx, inkyprovd.SettingsPayload{Settings: settings})
	return nil, err
}

func (t *Service) writeApply(ctx context.Context, payload []byte) (any, error) {
	var req applyPayload
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	_, err := t.prov.Submit(ctx, inkyprovd.ApplyRequest{Action: req.Action})
	return nil, err
}
