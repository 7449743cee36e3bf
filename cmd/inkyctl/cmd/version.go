package cmd

import (
	"github.com/inkylabs/inkyprovd/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Get inkyctl version information",
	Run: func(cmd *cobra.Command, args []string) {
		rel := version.GetRelease()
		cmd.Printf("InkyOS Release: %s\n", rel.Release)
		cmd.Printf("Git: %s\n", rel.Git.Commit)
		cmd.Printf("Dirty: %t\n", rel.Git.Dirty)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
