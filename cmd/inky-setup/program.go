package inkysetup

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Global program instance for async messaging
var program *tea.Program

// SetProgram stores the program instance for async messaging
func SetProgram(p *tea.Program) {
	program = p
}

// ProgramOptions returns default program options.
func ProgramOptions() []tea.ProgramOption {
	return []tea.ProgramOption{tea.WithAltScreen()}
}

// NewModel creates a new setup model instance.
func NewModel() tea.Model {
	return setupModel{
		socketPath:  getSocketPath(),
		currentStep: stepCheckingStatus,
		settings:    defaultSettings(),
		timezones:   commonTimezones,
		rotations:   []int{0, 90, 180, 270},
		timezoneVP:  newTimezoneViewport(),
	}
}
