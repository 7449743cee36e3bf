package system

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/version"
)

var _ inkyprovd.DeviceInfoProvider = &DeviceInfoReader{}

// DeviceInfoReader assembles the identity block clients read during the
// Scan step.
type DeviceInfoReader struct{}

func (t DeviceInfoReader) DeviceInfo() (inkyprovd.DeviceInfo, error) {
	info := inkyprovd.DeviceInfo{
		Model:    readBoardModel(),
		Firmware: version.GetRelease().Release,
	}

	hostInfo, err := host.Info()
	if err != nil {
		return info, err
	}
	// HostID is the machine-id, stable across boots and unique per unit.
	info.Serial = hostInfo.HostID
	if info.Model == "" {
		info.Model = hostInfo.Platform
	}
	return info, nil
}

// readBoardModel reads the device-tree model string present on the Pi
// boards the panel ships on.
func readBoardModel() string {
	raw, err := os.ReadFile("/proc/device-tree/model")
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(raw), "\x00\n")
}
