package system

import (
	"context"
	"os/exec"
)

// ServiceProbe reports whether the calendar units are currently active.
// This feeds the /status surface only; the pairing handshake tracks its
// own session state.
type ServiceProbe struct {
	Units []string

	// run is swapped in tests.
	run func(ctx context.Context, name string, args ...string) error
}

func NewServiceProbe(units []string) *ServiceProbe {
	return &ServiceProbe{
		Units: units,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Active reports per-unit active state keyed by unit name.
func (t *ServiceProbe) Active(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(t.Units))
	for _, unit := range t.Units {
		err := t.run(ctx, "systemctl", "is-active", "--quiet", unit)
		out[unit] = err == nil
	}
	return out
}
