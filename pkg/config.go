package inkyprovd

import "path/filepath"

// ServerConfig is the static daemon configuration, assembled from flags in
// cmd/inkyprovd.
type ServerConfig struct {
	Bind           string
	Port           int
	DataDir        string
	LogDir         string
	DevMode        bool
	UnixSocketPath string

	// SetupToken is the pre-shared header credential every HTTP call must
	// present. Distributed out of band (printed on the device label / first
	// boot sheet).
	SetupToken string

	GoogleClientID    string
	GoogleRedirectURI string

	WifiInterface string
	RestartUnits  []string
}

// ConfigPath is the durable config record location.
func (c ServerConfig) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// SecretsPath is the restricted-permission secret file location.
func (c ServerConfig) SecretsPath() string {
	return filepath.Join(c.DataDir, "secrets.env")
}

// SessionDBPath is the sqlite session journal location.
func (c ServerConfig) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// GoogleTokenPath is where the exchanged OAuth token JSON lands.
func (c ServerConfig) GoogleTokenPath() string {
	return filepath.Join(c.DataDir, "google_token.json")
}
