package conductor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Service is anything the conductor can supervise. Run must return
// promptly, flag `started` once the service is up, and flag `stopped`
// after honoring a context received on `stop`.
type Service interface {
	Run(started, stopped chan bool, stop chan context.Context) error
}

type entry struct {
	name    string
	service Service
	stopped chan bool
	stop    chan context.Context
}

// Conductor starts a set of services in registration order and shuts them
// down in reverse.
type Conductor struct {
	entries []*entry
	log     *logrus.Entry
}

func New(log *logrus.Entry) *Conductor {
	return &Conductor{log: log}
}

// Service registers a named service. Must be called before Start.
func (t *Conductor) Service(name string, s Service) {
	t.entries = append(t.entries, &entry{
		name:    name,
		service: s,
		stopped: make(chan bool),
		stop:    make(chan context.Context),
	})
}

// Start brings every service up, blocking until each flags started.
func (t *Conductor) Start() error {
	for _, e := range t.entries {
		started := make(chan bool)
		if err := e.service.Run(started, e.stopped, e.stop); err != nil {
			return fmt.Errorf("starting %s: %w", e.name, err)
		}
		select {
		case <-started:
			t.log.WithField("service", e.name).Info("service started")
		case <-time.After(30 * time.Second):
			return fmt.Errorf("service %s did not start in time", e.name)
		}
	}
	return nil
}

// Stop shuts services down in reverse registration order, waiting for each
// to flag stopped or the context to lapse.
func (t *Conductor) Stop(ctx context.Context) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		select {
		case e.stop <- ctx:
		case <-ctx.Done():
			t.log.WithField("service", e.name).Warn("gave up signaling service to stop")
			continue
		}
		select {
		case <-e.stopped:
			t.log.WithField("service", e.name).Info("service stopped")
		case <-ctx.Done():
			t.log.WithField("service", e.name).Warn("service did not stop before deadline")
		}
	}
}
