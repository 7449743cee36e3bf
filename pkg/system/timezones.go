package system

import (
	_ "embed"
	"encoding/json"
)

// Timezone is one selectable entry for the setup wizard's timezone list.
type Timezone struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	// File timezones.json contains a curated timezone list.
	//go:embed timezones.json
	tz_data        []byte
	tz_precompiled = func() (s []Timezone) {
		if err := json.Unmarshal(tz_data, &s); err != nil {
			panic(err)
		}
		return
	}()
)

func GetTimezones() ([]Timezone, error) {
	return tz_precompiled, nil
}
