package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/conductor"
	"github.com/inkylabs/inkyprovd/pkg/system"
)

// WifiStatusReader feeds the Wi-Fi block of /status.
type WifiStatusReader interface {
	Status() system.WifiStatus
}

// SecretPresence reports whether named secrets exist without exposing
// their values.
type SecretPresence interface {
	Has(keys ...string) bool
}

// ServiceProbe reports calendar unit active state for /status.
type ServiceProbe interface {
	Active(ctx context.Context) map[string]bool
}

func RESTAPI(
	config inkyprovd.ServerConfig,
	prov inkyprovd.Provisioner,
	wifi WifiStatusReader,
	secrets SecretPresence,
	services ServiceProbe,
	relay *Relay,
	log *logrus.Entry,
) conductor.Service {
	a := api{
		mux:      http.NewServeMux(),
		config:   config,
		prov:     prov,
		wifi:     wifi,
		secrets:  secrets,
		services: services,
		relay:    relay,
		log:      log,
	}

	routes := map[string]http.HandlerFunc{
		"POST /connection/start":     a.startConnection,
		"POST /connection/authorize": a.authorize,
		"POST /connection/complete":  a.completeConnection,

		"GET /status": a.getStatus,
		"GET /device": a.getDevice,

		"POST /pair":              a.submitPair,
		"POST /wifi":              a.submitWifi,
		"GET /google/oauth-url":   a.getOAuthURL,
		"POST /google/oauth-code": a.submitOAuthCode,
		"POST /icloud":            a.submitIcloud,
		"POST /settings":          a.submitSettings,
		"POST /apply":             a.submitApply,

		"GET /system/stats":     a.getSystemStats,
		"GET /system/timezones": a.getTimezones,

		"/ws/state": a.getStateSocket,
	}

	// The unix socket mux skips token auth: anything local enough to reach
	// the socket already owns the box.
	var unixMux *http.ServeMux
	if config.UnixSocketPath != "" {
		unixMux = http.NewServeMux()
	}

	for p, h := range routes {
		a.mux.HandleFunc(p, authReq(config.SetupToken, h))
		if unixMux != nil {
			unixMux.HandleFunc(p, h)
		}
	}

	a.unixMux = unixMux

	log.WithField("routes", len(routes)).Info("REST API routes loaded")
	return a
}

type api struct {
	mux      *http.ServeMux
	unixMux  *http.ServeMux
	config   inkyprovd.ServerConfig
	prov     inkyprovd.Provisioner
	wifi     WifiStatusReader
	secrets  SecretPresence
	services ServiceProbe
	relay    *Relay
	log      *logrus.Entry
}

func (t api) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		handler := cors.AllowAll().Handler(t.mux)
		srv := &http.Server{Addr: fmt.Sprintf("%s:%d", t.config.Bind, t.config.Port), Handler: handler}
		go func() {
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				t.log.WithError(err).Fatal("HTTP server ListenAndServe")
			}
		}()

		if t.unixMux != nil {
			go func() {
				_ = os.Remove(t.config.UnixSocketPath)
				ln, err := net.Listen("unix", t.config.UnixSocketPath)
				if err != nil {
					t.log.WithError(err).Fatal("HTTP unix listen")
				}
				os.Chmod(t.config.UnixSocketPath, 0o660)
				srvUnix := &http.Server{Handler: t.unixMux}
				if err := srvUnix.Serve(ln); err != http.ErrServerClosed {
					t.log.WithError(err).Fatal("HTTP server unix Serve")
				}
			}()
		}

		started <- true
		ctx := <-stop
		srv.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}
