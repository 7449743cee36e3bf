package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
	"github.com/inkylabs/inkyprovd/pkg/conductor"
	"github.com/inkylabs/inkyprovd/pkg/gatt"
	"github.com/inkylabs/inkyprovd/pkg/store"
	"github.com/inkylabs/inkyprovd/pkg/system"
	network_connector "github.com/inkylabs/inkyprovd/pkg/system/network/connector"
	"github.com/inkylabs/inkyprovd/pkg/version"
	"github.com/inkylabs/inkyprovd/pkg/web"
)

var (
	config          inkyprovd.ServerConfig
	flagWifiBackend string
)

var rootCmd = &cobra.Command{
	Use:   "inkyprovd",
	Short: "Provisioning and pairing daemon for Inky calendar devices",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		rel := version.GetRelease()
		cmd.Printf("InkyOS Release: %s\n", rel.Release)
		cmd.Printf("Git: %s\n", rel.Git.Commit)
		cmd.Printf("Dirty: %t\n", rel.Git.Dirty)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&config.Bind, "bind", "0.0.0.0", "address to bind the HTTP API to")
	f.IntVar(&config.Port, "port", 8473, "port for the HTTP API")
	f.StringVar(&config.DataDir, "data-dir", "/opt/inkyos/data", "directory for config, secrets and session state")
	f.StringVar(&config.LogDir, "log-dir", "", "directory for rotated log files, empty logs to stderr")
	f.StringVar(&config.UnixSocketPath, "socket", "/tmp/inkyprovd.sock", "unix socket for local, token-free API access")
	f.BoolVar(&config.DevMode, "dev", false, "development mode, verbose logging")
	f.StringVar(&config.SetupToken, "setup-token", os.Getenv("INKY_SETUP_TOKEN"), "pre-shared setup token required on every HTTP call")
	f.StringVar(&config.GoogleClientID, "google-client-id", os.Getenv("INKY_GOOGLE_CLIENT_ID"), "Google OAuth client id")
	f.StringVar(&config.GoogleRedirectURI, "google-redirect-uri", "com.inkylabs.inky:/oauth2redirect", "Google OAuth redirect URI")
	f.StringVar(&config.WifiInterface, "wifi-interface", "wlan0", "wireless interface to provision")
	f.StringVar(&flagWifiBackend, "wifi-backend", "nmcli", "network backend: nmcli or wpa_supplicant")
	f.StringSliceVar(&config.RestartUnits, "restart-units", []string{"inky-calendar.service", "inky-render.service"}, "systemd units restarted after apply")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() {
	log := setupLogging(config)

	if config.SetupToken == "" {
		log.Warn("no setup token configured, all HTTP requests will be refused")
	}

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("creating data directory")
	}

	sm, err := store.NewStoreManager(config.SessionDBPath())
	if err != nil {
		log.WithError(err).Fatal("opening session store")
	}
	defer sm.CloseDB()

	journal := store.NewSessionJournal(sm)
	configStore := store.NewConfigStore(config.ConfigPath())
	secretStore := store.NewSecretStore(config.SecretsPath())

	display := system.NewPanelCodeDisplay(config.DataDir, log)
	deviceInfo := system.DeviceInfoReader{}
	wifiStatus := &system.WifiStatusReader{Interface: config.WifiInterface}

	var wifiApplier inkyprovd.WifiApplier = network_connector.NewNmcliConnector(config.WifiInterface)
	if flagWifiBackend == "wpa_supplicant" {
		wifiApplier = network_connector.NewWPASupplicantConnector(config.WifiInterface)
	}

	appliers := inkyprovd.Appliers{
		Wifi:    wifiApplier,
		Google:  system.NewGoogleExchanger(config.GoogleClientID, config.GoogleTokenPath(), log),
		Icloud:  system.NewIcloudValidator(),
		Config:  configStore,
		Restart: system.NewSystemdRestarter(config.RestartUnits, log),
		Secrets: secretStore,
	}

	handshake := inkyprovd.NewHandshake(display, log)
	wizard := inkyprovd.NewWizard(appliers, inkyprovd.WizardConfig{
		GoogleClientID:    config.GoogleClientID,
		GoogleRedirectURI: config.GoogleRedirectURI,
	}, journal, log)
	prov := inkyprovd.NewProvisiond(handshake, wizard, deviceInfo, log)

	// The websocket relay and the GATT notifier both need every snapshot,
	// so the single Changes stream is teed here. Sends are non-blocking so
	// one stalled consumer cannot back up the other; state is a snapshot,
	// so a dropped intermediate is superseded by the next one.
	wsChanges := make(chan inkyprovd.WizardSnapshot, 64)
	gattChanges := make(chan inkyprovd.WizardSnapshot, 64)
	go func() {
		for snap := range prov.Changes {
			select {
			case wsChanges <- snap:
			default:
				log.Warn("dropping wizard state change, websocket relay backlogged")
			}
			select {
			case gattChanges <- snap:
			default:
				log.Warn("dropping wizard state change, GATT notifier backlogged")
			}
		}
	}()

	relay := web.NewRelay(wsChanges, prov, log)
	services := system.NewServiceProbe(config.RestartUnits)

	c := conductor.New(log)
	c.Service("WS Relay", relay)
	c.Service("REST API", web.RESTAPI(config, prov, wifiStatus, secretStore, services, relay, log))
	c.Service("GATT", gatt.NewService(prov, wifiStatus, configStore, gattChanges, log))

	if err := c.Start(); err != nil {
		log.WithError(err).Fatal("starting services")
	}
	log.WithFields(logrus.Fields{
		"bind": config.Bind,
		"port": config.Port,
	}).Info("inkyprovd up")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.Stop(ctx)
}

// setupLogging routes logs to rotated files under LogDir when set,
// otherwise to stderr.
func setupLogging(config inkyprovd.ServerConfig) *logrus.Entry {
	logger := logrus.New()
	if config.DevMode {
		logger.SetLevel(logrus.DebugLevel)
	}
	if config.LogDir != "" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(config.LogDir, "inkyprovd.log"),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}))
	}
	return logrus.NewEntry(logger)
}
