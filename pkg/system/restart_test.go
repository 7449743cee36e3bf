package system

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystemdConn struct {
	restarted []string
	failOn    string
	result    string
	closed    bool
}

func (t *fakeSystemdConn) RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error) {
	t.restarted = append(t.restarted, name)
	if name == t.failOn {
		return 0, errors.New("unit not loaded")
	}
	result := t.result
	if result == "" {
		result = "done"
	}
	ch <- result
	return 1, nil
}

func (t *fakeSystemdConn) Close() { t.closed = true }

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestRestarter(units []string, conn *fakeSystemdConn) *SystemdRestarter {
	t := NewSystemdRestarter(units, testLog())
	t.newConn = func(ctx context.Context) (systemdConn, error) { return conn, nil }
	return t
}

func TestRestartAllUnits(t *testing.T) {
	conn := &fakeSystemdConn{}
	restarter := newTestRestarter([]string{"inkycal.service", "inkycal-refresh.timer"}, conn)

	require.NoError(t, restarter.Restart(context.Background()))
	assert.Equal(t, []string{"inkycal.service", "inkycal-refresh.timer"}, conn.restarted)
	assert.True(t, conn.closed)
}

func TestRestartStopsAtFirstFailure(t *testing.T) {
	conn := &fakeSystemdConn{failOn: "inkycal.service"}
	restarter := newTestRestarter([]string{"inkycal.service", "inkycal-refresh.timer"}, conn)

	err := restarter.Restart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inkycal.service")
	assert.Equal(t, []string{"inkycal.service"}, conn.restarted)
}

func TestRestartFailedJobResult(t *testing.T) {
	conn := &fakeSystemdConn{result: "failed"}
	restarter := newTestRestarter([]string{"inkycal.service"}, conn)

	err := restarter.Restart(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestRestartNoUnitsIsNoop(t *testing.T) {
	restarter := NewSystemdRestarter(nil, testLog())
	restarter.newConn = func(ctx context.Context) (systemdConn, error) {
		t.Fatal("no connection expected when no units are configured")
		return nil, nil
	}
	require.NoError(t, restarter.Restart(context.Background()))
}
