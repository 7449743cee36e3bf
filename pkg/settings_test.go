package inkyprovd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceSettingsValidate(t *testing.T) {
	mutate := func(fn func(*DeviceSettings)) DeviceSettings {
		s := validTestSettings()
		fn(&s)
		return s
	}

	tests := []struct {
		name     string
		settings DeviceSettings
		wantErr  string
	}{
		{"valid", validTestSettings(), ""},
		{"midnight boundaries", mutate(func(s *DeviceSettings) {
			s.SleepStart = "00:00"
			s.SleepEnd = "23:59"
		}), ""},
		{"rotation 0", mutate(func(s *DeviceSettings) { s.PortraitRotation = 0 }), ""},
		{"rotation 270", mutate(func(s *DeviceSettings) { s.PortraitRotation = 270 }), ""},
		{"refresh lower bound", mutate(func(s *DeviceSettings) { s.RefreshMinutes = 1 }), ""},
		{"refresh upper bound", mutate(func(s *DeviceSettings) { s.RefreshMinutes = 1440 }), ""},

		{"missing timezone", mutate(func(s *DeviceSettings) { s.Timezone = "" }), "timezone is required"},
		{"unknown timezone", mutate(func(s *DeviceSettings) { s.Timezone = "Mars/Olympus" }), "unknown timezone"},
		{"bad sleep start", mutate(func(s *DeviceSettings) { s.SleepStart = "25:00" }), "sleep_start"},
		{"bad sleep end", mutate(func(s *DeviceSettings) { s.SleepEnd = "9pm" }), "sleep_end"},
		{"diagonal rotation", mutate(func(s *DeviceSettings) { s.PortraitRotation = 45 }), "portrait_rotation"},
		{"refresh too low", mutate(func(s *DeviceSettings) { s.RefreshMinutes = 0 }), "refresh_minutes"},
		{"refresh too high", mutate(func(s *DeviceSettings) { s.RefreshMinutes = 1441 }), "refresh_minutes"},
		{"bad weekday", mutate(func(s *DeviceSettings) { s.DeepCleanDay = "Caturday" }), "deep_clean_day"},
		{"lowercase weekday", mutate(func(s *DeviceSettings) { s.DeepCleanDay = "sunday" }), "deep_clean_day"},
		{"bad deep clean time", mutate(func(s *DeviceSettings) { s.DeepCleanTime = "03:60" }), "deep_clean_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
