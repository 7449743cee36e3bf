package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// ConfigRecord is the durable device configuration the calendar renderer
// reads at boot. Secrets never live here; account entries carry linkage
// metadata only.
type ConfigRecord struct {
	Timezone         string `yaml:"timezone"`
	SleepStart       string `yaml:"sleep_start"`
	SleepEnd         string `yaml:"sleep_end"`
	PortraitRotation int    `yaml:"portrait_rotation"`
	RefreshMinutes   int    `yaml:"refresh_minutes"`
	DeepCleanDay     string `yaml:"deep_clean_day"`
	DeepCleanTime    string `yaml:"deep_clean_time"`

	Wifi struct {
		Ssid    string `yaml:"ssid"`
		Country string `yaml:"country"`
	} `yaml:"wifi"`

	Accounts struct {
		GoogleLinked  bool   `yaml:"google_linked"`
		IcloudLinked  bool   `yaml:"icloud_linked"`
		IcloudAccount string `yaml:"icloud_account,omitempty"`
	} `yaml:"accounts"`

	UpdatedAt time.Time `yaml:"updated_at"`
}

// ConfigStore reads and commits the YAML config record. Commit is atomic:
// the new record is written beside the old one and renamed into place.
type ConfigStore struct {
	mu   sync.Mutex
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Load reads the current record. A missing file returns an empty record
// and ok=false, which is the normal first-boot case.
func (t *ConfigStore) Load() (ConfigRecord, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked()
}

func (t *ConfigStore) loadLocked() (ConfigRecord, bool, error) {
	var record ConfigRecord
	raw, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return record, false, nil
	}
	if err != nil {
		return record, false, fmt.Errorf("reading config record: %w", err)
	}
	if err := yaml.Unmarshal(raw, &record); err != nil {
		return record, false, fmt.Errorf("parsing config record: %w", err)
	}
	return record, true, nil
}

// Settings projects the durable record back into the settings shape the
// wizard and the Settings characteristic use. ok is false before first
// apply.
func (t *ConfigStore) Settings() (inkyprovd.DeviceSettings, bool, error) {
	record, ok, err := t.Load()
	if err != nil || !ok {
		return inkyprovd.DeviceSettings{}, ok, err
	}
	return inkyprovd.DeviceSettings{
		Timezone:         record.Timezone,
		SleepStart:       record.SleepStart,
		SleepEnd:         record.SleepEnd,
		PortraitRotation: record.PortraitRotation,
		RefreshMinutes:   record.RefreshMinutes,
		DeepCleanDay:     record.DeepCleanDay,
		DeepCleanTime:    record.DeepCleanTime,
	}, true, nil
}

// Commit merges the staged configuration into the durable record. Either
// the whole merge lands or the previous file survives untouched.
func (t *ConfigStore) Commit(pending inkyprovd.PendingConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, _, err := t.loadLocked()
	if err != nil {
		return err
	}

	record.Timezone = pending.Settings.Timezone
	record.SleepStart = pending.Settings.SleepStart
	record.SleepEnd = pending.Settings.SleepEnd
	record.PortraitRotation = pending.Settings.PortraitRotation
	record.RefreshMinutes = pending.Settings.RefreshMinutes
	record.DeepCleanDay = pending.Settings.DeepCleanDay
	record.DeepCleanTime = pending.Settings.DeepCleanTime
	if pending.WifiSsid != "" {
		record.Wifi.Ssid = pending.WifiSsid
		record.Wifi.Country = pending.WifiCountry
	}
	if pending.GoogleLinked {
		record.Accounts.GoogleLinked = true
	}
	if pending.IcloudLinked {
		record.Accounts.IcloudLinked = true
		record.Accounts.IcloudAccount = pending.IcloudAccount
	}
	record.UpdatedAt = time.Now()

	return t.writeLocked(record)
}

func (t *ConfigStore) writeLocked(record ConfigRecord) error {
	raw, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding config record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing config record: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config record: %w", err)
	}
	return nil
}
