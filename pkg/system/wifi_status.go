package system

import (
	"net"

	"github.com/mdlayher/wifi"
)

// WifiStatus is the live association state surfaced on /status and the
// Wi-Fi Status characteristic. Error carries a short reason when the probe
// itself failed; an unassociated radio is not an error.
type WifiStatus struct {
	Connected bool   `json:"connected"`
	Ssid      string `json:"ssid,omitempty"`
	IP        string `json:"ip,omitempty"`
	Interface string `json:"interface,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WifiStatusReader probes the wireless interface over nl80211.
type WifiStatusReader struct {
	Interface string
}

func (t WifiStatusReader) Status() WifiStatus {
	status := WifiStatus{Interface: t.Interface}

	client, err := wifi.New()
	if err != nil {
		status.Error = "wireless subsystem unavailable"
		return status
	}
	defer client.Close()

	interfaces, err := client.Interfaces()
	if err != nil {
		status.Error = "listing wireless interfaces failed"
		return status
	}

	var target *wifi.Interface
	for _, ifi := range interfaces {
		if t.Interface == "" || ifi.Name == t.Interface {
			target = ifi
			break
		}
	}
	if target == nil {
		status.Error = "wireless interface not found"
		return status
	}
	status.Interface = target.Name

	bss, err := client.BSS(target)
	if err != nil || bss == nil {
		// Not associated.
		return status
	}
	status.Connected = true
	status.Ssid = bss.SSID
	status.IP = interfaceIP(target.Name)
	return status
}

// interfaceIP returns the first global unicast IPv4 address, or the first
// usable address of any family.
func interfaceIP(name string) string {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	fallback := ""
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || !ipNet.IP.IsGlobalUnicast() {
			continue
		}
		if ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
		if fallback == "" {
			fallback = ipNet.IP.String()
		}
	}
	return fallback
}
