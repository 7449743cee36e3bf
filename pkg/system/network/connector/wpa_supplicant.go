package network_connector

import (
	"context"
	"fmt"
	"strings"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.WifiApplier = &NetworkConnectorWPASupplicant{}

// NetworkConnectorWPASupplicant joins Wi-Fi networks by driving a running
// wpa_supplicant through wpa_cli. Fallback for images without
// NetworkManager. Like the nmcli connector, the password goes only onto
// the command argument list.
type NetworkConnectorWPASupplicant struct {
	Interface string
	run       Runner
}

func NewWPASupplicantConnector(iface string) *NetworkConnectorWPASupplicant {
	return &NetworkConnectorWPASupplicant{Interface: iface, run: execRunner}
}

func (t *NetworkConnectorWPASupplicant) Connect(ctx context.Context, creds inkyprovd.WifiCredentials) error {
	if creds.Country != "" {
		if out, err := t.run(ctx, "iw", "reg", "set", creds.Country); err != nil {
			return fmt.Errorf("setting regulatory domain %s: %s", creds.Country, firstLine(out))
		}
	}

	out, err := t.wpaCli(ctx, "add_network")
	if err != nil {
		return fmt.Errorf("adding network: %s", firstLine(out))
	}
	id := strings.TrimSpace(string(out))

	steps := [][]string{
		{"set_network", id, "ssid", fmt.Sprintf("%q", creds.Ssid)},
	}
	if creds.Password != "" {
		steps = append(steps, []string{"set_network", id, "psk", fmt.Sprintf("%q", creds.Password)})
	} else {
		steps = append(steps, []string{"set_network", id, "key_mgmt", "NONE"})
	}
	steps = append(steps,
		[]string{"enable_network", id},
		[]string{"select_network", id},
		[]string{"save_config"},
	)

	for _, step := range steps {
		out, err := t.wpaCli(ctx, step...)
		if err != nil || strings.Contains(string(out), "FAIL") {
			// wpa_cli exits zero even on FAIL, so the output is checked too.
			return fmt.Errorf("joining network %q: %s failed", creds.Ssid, step[0])
		}
	}
	return nil
}

func (t *NetworkConnectorWPASupplicant) wpaCli(ctx context.Context, args ...string) ([]byte, error) {
	full := args
	if t.Interface != "" {
		full = append([]string{"-i", t.Interface}, args...)
	}
	return t.run(ctx, "wpa_cli", full...)
}
