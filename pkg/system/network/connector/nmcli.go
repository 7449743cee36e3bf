package network_connector

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.WifiApplier = &NetworkConnectorNmcli{}

// Runner executes one external command and returns its combined output.
// Swapped in tests for a recorder.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NetworkConnectorNmcli joins Wi-Fi networks through NetworkManager's CLI.
// The password travels only on the nmcli argument list, never into logs or
// returned errors.
type NetworkConnectorNmcli struct {
	Interface string
	run       Runner
}

func NewNmcliConnector(iface string) *NetworkConnectorNmcli {
	return &NetworkConnectorNmcli{Interface: iface, run: execRunner}
}

func (t *NetworkConnectorNmcli) Connect(ctx context.Context, creds inkyprovd.WifiCredentials) error {
	if creds.Country != "" {
		// Regulatory domain first so 5GHz channels legal in the user's
		// country are scannable.
		if out, err := t.run(ctx, "iw", "reg", "set", creds.Country); err != nil {
			return fmt.Errorf("setting regulatory domain %s: %s", creds.Country, firstLine(out))
		}
	}

	if out, err := t.run(ctx, "nmcli", "radio", "wifi", "on"); err != nil {
		return fmt.Errorf("enabling wifi radio: %s", firstLine(out))
	}

	args := []string{"device", "wifi", "connect", creds.Ssid}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	if t.Interface != "" {
		args = append(args, "ifname", t.Interface)
	}
	if out, err := t.run(ctx, "nmcli", args...); err != nil {
		return fmt.Errorf("joining network %q: %s", creds.Ssid, firstLine(out))
	}
	return nil
}

// firstLine keeps errors single-line; nmcli failures start with the reason.
func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "command failed"
	}
	return s
}
