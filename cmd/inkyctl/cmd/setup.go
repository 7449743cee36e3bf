package cmd

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	inkysetup "github.com/inkylabs/inkyprovd/cmd/inky-setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive device setup wizard",
	Long:  `Walks through pairing, Wi-Fi, calendar accounts and display settings in an interactive terminal wizard.`,
	Run: func(cmd *cobra.Command, args []string) {
		p := tea.NewProgram(inkysetup.NewModel(), inkysetup.ProgramOptions()...)
		inkysetup.SetProgram(p)
		if _, err := p.Run(); err != nil {
			log.Fatalf("failed to run setup TUI: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
