package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.CodeDisplay = &PanelCodeDisplay{}

// PanelCodeDisplay hands the authorization code to the e-ink renderer via
// a drop file it watches. The renderer draws the code full screen until the
// file disappears. This file is the only place outside the panel the code
// is ever written, so it carries restricted permissions and is removed the
// moment pairing completes.
type PanelCodeDisplay struct {
	path string
	log  *logrus.Entry
}

func NewPanelCodeDisplay(dataDir string, log *logrus.Entry) *PanelCodeDisplay {
	return &PanelCodeDisplay{
		path: filepath.Join(dataDir, "pairing_code"),
		log:  log,
	}
}

func (t *PanelCodeDisplay) ShowCode(code string) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating display dir: %w", err)
	}
	if err := os.WriteFile(t.path, []byte(code+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing pairing code for display: %w", err)
	}
	t.log.Info("pairing code handed to display")
	return nil
}

func (t *PanelCodeDisplay) Clear() error {
	err := os.Remove(t.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing pairing code: %w", err)
	}
	return nil
}
