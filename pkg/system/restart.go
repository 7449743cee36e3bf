package system

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/sirupsen/logrus"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var _ inkyprovd.RestartSignaler = &SystemdRestarter{}

// SystemdRestarter asks systemd to restart the calendar units after a
// successful Apply. The daemon itself is not among the units so the setup
// transports stay up through the restart.
type SystemdRestarter struct {
	Units []string
	log   *logrus.Entry

	// newConn is swapped in tests.
	newConn func(ctx context.Context) (systemdConn, error)
}

type systemdConn interface {
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

func NewSystemdRestarter(units []string, log *logrus.Entry) *SystemdRestarter {
	return &SystemdRestarter{
		Units: units,
		log:   log,
		newConn: func(ctx context.Context) (systemdConn, error) {
			return dbus.NewSystemConnectionContext(ctx)
		},
	}
}

// Restart issues a replace-mode restart for every configured unit and
// waits for each job to leave the queue. The first failure aborts the
// remainder.
func (t *SystemdRestarter) Restart(ctx context.Context) error {
	if len(t.Units) == 0 {
		return nil
	}
	conn, err := t.newConn(ctx)
	if err != nil {
		return fmt.Errorf("connecting to systemd: %w", err)
	}
	defer conn.Close()

	for _, unit := range t.Units {
		done := make(chan string, 1)
		if _, err := conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
			return fmt.Errorf("restarting %s: %w", unit, err)
		}
		select {
		case result := <-done:
			if result != "done" {
				return fmt.Errorf("restarting %s: job finished %s", unit, result)
			}
			t.log.WithField("unit", unit).Info("unit restarted")
		case <-ctx.Done():
			return fmt.Errorf("restarting %s: %w", unit, ctx.Err())
		}
	}
	return nil
}
