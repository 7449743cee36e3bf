package web

import (
	"net/http"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/inkylabs/inkyprovd/pkg/system"
)

// SystemStats is the resource usage block behind /system/stats, polled by
// the setup clients to show the device is alive while long steps run.
type SystemStats struct {
	CPU    SystemStatMetric `json:"cpu"`
	RAM    SystemStatMetric `json:"ram"`
	Disk   SystemStatMetric `json:"disk"`
	Uptime uint64           `json:"uptime_seconds"`
}

type SystemStatMetric struct {
	Label   string  `json:"label"`
	Current float64 `json:"current"`
	Total   uint64  `json:"total,omitempty"` // MB for RAM/Disk
	Used    uint64  `json:"used,omitempty"`  // MB for RAM/Disk
}

func (t api) getSystemStats(w http.ResponseWriter, r *http.Request) {
	stats := SystemStats{}

	cpuPercent, err := cpu.Percent(0, false)
	if err == nil && len(cpuPercent) > 0 {
		stats.CPU = SystemStatMetric{
			Label:   "CPU Usage",
			Current: cpuPercent[0],
		}
	}

	memInfo, err := mem.VirtualMemory()
	if err == nil {
		stats.RAM = SystemStatMetric{
			Label:   "Memory Usage",
			Current: memInfo.UsedPercent,
			Total:   memInfo.Total / 1024 / 1024,
			Used:    memInfo.Used / 1024 / 1024,
		}
	}

	diskInfo, err := disk.Usage("/")
	if err == nil {
		stats.Disk = SystemStatMetric{
			Label:   "Disk Usage",
			Current: diskInfo.UsedPercent,
			Total:   diskInfo.Total / 1024 / 1024,
			Used:    diskInfo.Used / 1024 / 1024,
		}
	}

	if uptime, err := host.Uptime(); err == nil {
		stats.Uptime = uptime
	}

	sendResponse(w, stats)
}

func (t api) getTimezones(w http.ResponseWriter, r *http.Request) {
	timezones, err := system.GetTimezones()
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "Error loading timezone list")
		return
	}
	sendResponse(w, timezones)
}
