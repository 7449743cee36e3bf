package version

import (
	"os"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

type GitInfo struct {
	Commit string `json:"commit"`
	Dirty  bool   `json:"dirty"`
}

// ReleaseInfo describes the firmware image the device is running. Release
// comes from the image build; git fields come from the daemon binary.
type ReleaseInfo struct {
	Release string  `json:"release"`
	Git     GitInfo `json:"git"`
}

// releasePath is stamped into the image by the build pipeline.
const releasePath = "/opt/versioning/inkyos"

func GetRelease() *ReleaseInfo {
	release := "unknown"
	if data, err := os.ReadFile(releasePath); err == nil {
		release = strings.TrimSpace(string(data))
	}

	return &ReleaseInfo{
		Release: release,
		Git: GitInfo{
			Commit: versioninfo.Revision,
			Dirty:  versioninfo.DirtyBuild,
		},
	}
}
