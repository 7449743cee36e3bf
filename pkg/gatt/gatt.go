package gatt

import (
	"context"
	"errors"
	"fmt"
)

/* The BLE binding exposes the provisioning operations as a GATT service.
 * The radio stack itself lives outside this repository; a peripheral
 * implementation binds each characteristic here onto its stack and calls
 * Read/Write/Subscribe with the link's bonding state. Writes are accepted
 * only over an encrypted, bonded link. That is the transport-level
 * authorization layer; the pairing-code handshake still applies on top of
 * it.
 */

// 128-bit UUIDs under the inkylabs provisioning base.
const (
	ServiceUUID = "7f1a0001-94c6-4a6b-8e10-3f2b7c9d44e0"

	CharDeviceInfo      = "7f1a0002-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharSetupState      = "7f1a0003-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharPairingControl  = "7f1a0004-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharPairingState    = "7f1a0005-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharWifiConfig      = "7f1a0006-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharWifiStatus      = "7f1a0007-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharGoogleOAuthURL  = "7f1a0008-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharGoogleOAuthCode = "7f1a0009-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharIcloudConfig    = "7f1a000a-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharSettings        = "7f1a000b-94c6-4a6b-8e10-3f2b7c9d44e0"
	CharApplyRestart    = "7f1a000c-94c6-4a6b-8e10-3f2b7c9d44e0"
)

// Property is the characteristic capability mask.
type Property uint8

const (
	PropRead Property = 1 << iota
	PropWrite
	PropNotify

	// PropEncryptedWrite marks writes that require a bonded, encrypted
	// link. Every write characteristic in this service carries it.
	PropEncryptedWrite
)

func (p Property) Has(q Property) bool { return p&q == q }

var (
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrNotReadable           = errors.New("characteristic is not readable")
	ErrNotWritable           = errors.New("characteristic is not writable")
	ErrNotBonded             = errors.New("writes require a bonded encrypted link")
)

// Characteristic is one entry in the service's attribute table. read and
// write produce/consume decoded payload values; the CBOR framing is applied
// by the Service.
type Characteristic struct {
	UUID  string
	Name  string
	Props Property

	read  func(ctx context.Context) (any, error)
	write func(ctx context.Context, payload []byte) (any, error)
}

func (c *Characteristic) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.UUID)
}
