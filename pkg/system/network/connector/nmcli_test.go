package network_connector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

type recordedCall struct {
	name string
	args []string
}

func recordingRunner(calls *[]recordedCall, failOn string) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		full := name + " " + strings.Join(args, " ")
		if failOn != "" && strings.Contains(full, failOn) {
			return []byte("Error: Connection activation failed.\nsecondary detail"), errors.New("exit status 10")
		}
		return []byte("Device 'wlan0' successfully activated."), nil
	}
}

func TestNmcliConnectCommandSequence(t *testing.T) {
	calls := []recordedCall{}
	connector := &NetworkConnectorNmcli{Interface: "wlan0", run: recordingRunner(&calls, "")}

	err := connector.Connect(context.Background(), inkyprovd.WifiCredentials{
		Ssid:     "HomeNet",
		Password: "hunter22",
		Country:  "DE",
	})
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, "iw", calls[0].name)
	assert.Equal(t, []string{"reg", "set", "DE"}, calls[0].args)
	assert.Equal(t, []string{"radio", "wifi", "on"}, calls[1].args)
	assert.Equal(t, []string{"device", "wifi", "connect", "HomeNet", "password", "hunter22", "ifname", "wlan0"}, calls[2].args)
}

func TestNmcliConnectOpenNetworkOmitsPassword(t *testing.T) {
	calls := []recordedCall{}
	connector := &NetworkConnectorNmcli{run: recordingRunner(&calls, "")}

	err := connector.Connect(context.Background(), inkyprovd.WifiCredentials{Ssid: "CafeGuest"})
	require.NoError(t, err)

	last := calls[len(calls)-1]
	assert.Equal(t, []string{"device", "wifi", "connect", "CafeGuest"}, last.args)
}

func TestNmcliConnectFailureKeepsPasswordOutOfError(t *testing.T) {
	calls := []recordedCall{}
	connector := &NetworkConnectorNmcli{Interface: "wlan0", run: recordingRunner(&calls, "wifi connect")}

	err := connector.Connect(context.Background(), inkyprovd.WifiCredentials{
		Ssid:     "HomeNet",
		Password: "hunter22",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HomeNet")
	assert.NotContains(t, err.Error(), "hunter22")
	// Only the first output line lands in the error.
	assert.NotContains(t, err.Error(), "secondary detail")
}
