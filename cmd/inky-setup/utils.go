package inkysetup

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/viewport"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// commonTimezones is the offline selection list. The daemon validates the
// final choice against the system tzdata either way.
var commonTimezones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Paris",
	"Europe/Madrid",
	"Australia/Sydney",
	"Australia/Melbourne",
	"Australia/Perth",
	"Asia/Tokyo",
	"Asia/Singapore",
	"Asia/Kolkata",
}

func defaultSettings() inkyprovd.DeviceSettings {
	return inkyprovd.DeviceSettings{
		Timezone:         "UTC",
		SleepStart:       "22:00",
		SleepEnd:         "06:00",
		PortraitRotation: 0,
		RefreshMinutes:   30,
		DeepCleanDay:     "Sunday",
		DeepCleanTime:    "03:00",
	}
}

func newTimezoneViewport() viewport.Model {
	return viewport.New(0, 0)
}

// getSocketPath resolves the daemon's unix socket location.
func getSocketPath() string {
	socketPath := os.Getenv("INKY_SOCKET")
	if socketPath == "" {
		socketPath = "/tmp/inkyprovd.sock"
	}
	return socketPath
}

// getSocketClient returns an HTTP client configured for the unix socket.
func getSocketClient() *http.Client {
	socketPath := getSocketPath()

	tr := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return net.Dial("unix", socketPath)
		},
	}

	// Wi-Fi association and the apply step can take a while.
	return &http.Client{Transport: tr, Timeout: 90 * time.Second}
}
