package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wizard, Wi-Fi and service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().R().Get("/status")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Show device identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().R().Get("/device")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deviceCmd)
}
