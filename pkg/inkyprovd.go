/*
inkyprovd internal architecture:

 Both transports bind the same logical operation set and hand everything
 to the Provisiond core. The handshake service gates the upgrade from
 unauthenticated probe to authorized session; only then are wizard step
 submissions routed through to their Appliers.

                ┌───────────────┐
 HTTP JSON ─────┤               │   Authorize /     ┌───────────┐
                │  Provisiond{} ├──────────────────►│ Handshake │
 BLE GATT  ─────┤               │   Complete        └─────┬─────┘
                │   ┌────────►  │                         │ authorized
                │   │ Changes│  │   Submit(step)    ┌─────▼─────┐
 /ws/state ◄────┤   │ Channel│  ├──────────────────►│  Wizard   │
 GATT notify ◄──┤   ◄────────┘  │                   └─────┬─────┘
                └───────────────┘                         │
                                                    ┌─────▼─────┐
                                                    │ Appliers  │
                                                    │ nmcli     │
                                                    │ OAuth     │
                                                    │ CalDAV    │
                                                    │ systemd   │
                                                    └───────────┘
*/

package inkyprovd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DeviceInfoProvider describes the hardware identity surface read by the
// Device Info characteristic and /device endpoint.
type DeviceInfoProvider interface {
	DeviceInfo() (DeviceInfo, error)
}

// DeviceInfo identifies the device to the pairing client.
type DeviceInfo struct {
	Model    string `json:"model"`
	Serial   string `json:"serial"`
	Firmware string `json:"firmware"`
}

// Provisioner is the single transport-agnostic operation set. The HTTP and
// GATT bindings both implement their surface purely in terms of this
// interface, which keeps the wizard the one source of truth when
// transports are swapped.
type Provisioner interface {
	StartConnection() StartConnectionResult
	Authorize(continueWhenActive bool) (AuthorizeResult, error)
	CompleteConnection(code string) (CompleteResult, error)
	Submit(ctx context.Context, input StepInput) (WizardSnapshot, error)
	ReadState() WizardSnapshot
	OAuthRequest() (OAuthRequest, error)
	DeviceInfo() (DeviceInfo, error)
}

// Provisiond is the core provisioning daemon: it owns the handshake and
// wizard, and fans wizard state changes out to whichever transports are
// listening.
type Provisiond struct {
	handshake *Handshake
	wizard    *Wizard
	device    DeviceInfoProvider
	log       *logrus.Entry

	// Changes carries wizard snapshots to the websocket relay and the GATT
	// notify path.
	Changes chan WizardSnapshot
}

var _ Provisioner = (*Provisiond)(nil)

func NewProvisiond(handshake *Handshake, wizard *Wizard, device DeviceInfoProvider, log *logrus.Entry) *Provisiond {
	t := &Provisiond{
		handshake: handshake,
		wizard:    wizard,
		device:    device,
		log:       log,
		Changes:   make(chan WizardSnapshot, 64),
	}
	wizard.SetOnChange(t.sendChange)
	wizard.SetOnDone(handshake.Finish)
	return t
}

// StartConnection is the reachability probe; no side effects.
func (t *Provisiond) StartConnection() StartConnectionResult {
	return t.handshake.StartConnection()
}

// Authorize creates a pairing session and resets the wizard for it. Any
// superseded session loses its wizard progress with it.
func (t *Provisiond) Authorize(continueWhenActive bool) (AuthorizeResult, error) {
	res, err := t.handshake.Authorize(continueWhenActive)
	if err != nil {
		return res, err
	}
	if s := t.handshake.Active(); s != nil {
		t.wizard.Reset(s.ID)
	}
	return res, nil
}

// CompleteConnection consumes the authorization code; success moves the
// wizard to the Pair step.
func (t *Provisiond) CompleteConnection(code string) (CompleteResult, error) {
	res, err := t.handshake.CompleteConnection(code)
	if err != nil {
		return res, err
	}
	if s := t.handshake.Active(); s != nil {
		t.wizard.BeginAuthorized(s.ID)
	}
	return res, nil
}

// Submit routes a step payload to the wizard, gated on session authority.
func (t *Provisiond) Submit(ctx context.Context, input StepInput) (WizardSnapshot, error) {
	if _, err := t.handshake.RequireAuthorized(); err != nil {
		return t.wizard.Snapshot(), err
	}
	return t.wizard.Submit(ctx, input)
}

// ReadState serves status polls. Never blocks on an in-flight applier.
func (t *Provisiond) ReadState() WizardSnapshot {
	return t.wizard.Snapshot()
}

// OAuthRequest mints the Google consent URL payload, gated on session
// authority like any other wizard interaction.
func (t *Provisiond) OAuthRequest() (OAuthRequest, error) {
	if _, err := t.handshake.RequireAuthorized(); err != nil {
		return OAuthRequest{}, err
	}
	return t.wizard.OAuthRequest()
}

// DeviceInfo reports the device identity. Readable pre-authorization: it
// carries nothing secret and the pairing client needs it to render the
// device it found.
func (t *Provisiond) DeviceInfo() (DeviceInfo, error) {
	return t.device.DeviceInfo()
}

// sendChange fans a snapshot out without blocking a wizard transition on a
// slow or absent consumer.
func (t *Provisiond) sendChange(snap WizardSnapshot) {
	select {
	case t.Changes <- snap:
	case <-time.After(200 * time.Millisecond):
		t.log.Warn("dropping wizard state change, no receiver")
	}
}
