package inkyprovd

import (
	"fmt"
	"time"
)

// DeviceSettings is the user-tunable configuration collected by the
// Settings step. All fields are bounds-checked before being staged for the
// Apply step; nothing here is secret.
type DeviceSettings struct {
	Timezone         string `json:"timezone"`
	SleepStart       string `json:"sleep_start"`
	SleepEnd         string `json:"sleep_end"`
	PortraitRotation int    `json:"portrait_rotation"`
	RefreshMinutes   int    `json:"refresh_minutes"`
	DeepCleanDay     string `json:"deep_clean_day"`
	DeepCleanTime    string `json:"deep_clean_time"`
}

var validRotations = map[int]struct{}{0: {}, 90: {}, 180: {}, 270: {}}

var validWeekdays = map[string]struct{}{
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {},
	"Friday": {}, "Saturday": {}, "Sunday": {},
}

// Validate bounds-checks every field. Inbound settings are untrusted
// transport input and must pass here before touching the config record.
func (s DeviceSettings) Validate() error {
	if s.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	if err := validateClock("sleep_start", s.SleepStart); err != nil {
		return err
	}
	if err := validateClock("sleep_end", s.SleepEnd); err != nil {
		return err
	}
	if _, ok := validRotations[s.PortraitRotation]; !ok {
		return fmt.Errorf("portrait_rotation must be one of 0, 90, 180, 270, got %d", s.PortraitRotation)
	}
	if s.RefreshMinutes < 1 || s.RefreshMinutes > 1440 {
		return fmt.Errorf("refresh_minutes must be between 1 and 1440, got %d", s.RefreshMinutes)
	}
	if _, ok := validWeekdays[s.DeepCleanDay]; !ok {
		return fmt.Errorf("deep_clean_day must be a weekday name, got %q", s.DeepCleanDay)
	}
	if err := validateClock("deep_clean_time", s.DeepCleanTime); err != nil {
		return err
	}
	return nil
}

// validateClock checks a wall-clock string in 24h HH:MM form.
func validateClock(field, value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("%s must be HH:MM, got %q", field, value)
	}
	return nil
}
