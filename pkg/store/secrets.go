package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Secret keys the provisioning flow writes. The renderer reads the same
// file at boot.
const (
	SecretWifiPassword     = "WIFI_PASSWORD"
	SecretIcloudUsername   = "ICLOUD_USERNAME"
	SecretIcloudPassword   = "ICLOUD_APP_PASSWORD"
	SecretGoogleTokenBound = "GOOGLE_TOKEN_SAVED"
)

// SecretStore keeps credentials in an env-style file with 0600
// permissions, separate from the world-readable config record. Values are
// never logged and never returned over a transport.
type SecretStore struct {
	mu   sync.Mutex
	path string
}

func NewSecretStore(path string) *SecretStore {
	return &SecretStore{path: path}
}

// SetSecrets merges the given keys into the file, replacing existing
// entries. The file is rewritten whole and renamed into place.
func (t *SecretStore) SetSecrets(values map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.readLocked()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return t.writeLocked(current)
}

// Has reports whether every named key is present with a non-empty value.
// Used by the status surface to report linkage without exposing values.
func (t *SecretStore) Has(keys ...string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.readLocked()
	if err != nil {
		return false
	}
	for _, k := range keys {
		if current[k] == "" {
			return false
		}
	}
	return true
}

// Get returns one secret value for in-process use only.
func (t *SecretStore) Get(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.readLocked()
	if err != nil {
		return "", false
	}
	v, ok := current[key]
	return v, ok && v != ""
}

func (t *SecretStore) readLocked() (map[string]string, error) {
	out := map[string]string{}
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret store: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (t *SecretStore) writeLocked(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating secret dir: %w", err)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing secret store: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing secret store: %w", err)
	}
	return nil
}
