package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// WSCONN is one websocket client connection.
type WSCONN struct {
	WS   *websocket.Conn
	Stop chan bool

	once sync.Once
}

func (t *WSCONN) Close() {
	t.once.Do(func() { close(t.Stop) })
}

// Relay fans wizard state changes out to every connected /ws/state client.
// It consumes the Provisiond change channel as a conductor service so a
// slow socket can never stall a wizard transition.
type Relay struct {
	mu      sync.Mutex
	clients map[*WSCONN]bool

	changes <-chan inkyprovd.WizardSnapshot
	prov    inkyprovd.Provisioner
	log     *logrus.Entry
}

func NewRelay(changes <-chan inkyprovd.WizardSnapshot, prov inkyprovd.Provisioner, log *logrus.Entry) *Relay {
	return &Relay{
		clients: map[*WSCONN]bool{},
		changes: changes,
		prov:    prov,
		log:     log,
	}
}

func (t *Relay) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case snap := <-t.changes:
				t.broadcast(snap)
			case <-stop:
				t.closeAll()
				stopped <- true
				return
			}
		}
	}()
	return nil
}

func (t *Relay) broadcast(snap inkyprovd.WizardSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		t.log.WithError(err).Error("failed to encode state change")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.clients {
		if err := websocket.Message.Send(conn.WS, string(raw)); err != nil {
			delete(t.clients, conn)
			conn.Close()
		}
	}
}

func (t *Relay) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.clients {
		conn.Close()
	}
	t.clients = map[*WSCONN]bool{}
}

func (t *Relay) attach(conn *WSCONN) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[conn] = true
}

func (t *Relay) detach(conn *WSCONN) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, conn)
}

// Handler upgrades the connection, sends the current snapshot immediately,
// then streams changes until the client goes away.
func (t *Relay) Handler() http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		conn := &WSCONN{WS: ws, Stop: make(chan bool)}

		initial, err := json.Marshal(t.prov.ReadState())
		if err == nil {
			if err := websocket.Message.Send(ws, string(initial)); err != nil {
				return
			}
		}

		t.attach(conn)
		defer t.detach(conn)

		// Drain client frames so pings keep the connection readable; any
		// read error means the client is gone.
		go func() {
			var discard string
			for {
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					conn.Close()
					return
				}
			}
		}()

		<-conn.Stop
	})
}

func (t api) getStateSocket(w http.ResponseWriter, r *http.Request) {
	t.relay.Handler().ServeHTTP(w, r)
}
