package cmd

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var icloudCmd = &cobra.Command{
	Use:   "icloud <apple-id>",
	Short: "Link an iCloud calendar with an app-specific password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Print("App-specific password: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		password, err := reader.ReadString('\n')
		if err != nil {
			return err
		}

		resp, err := newClient().R().SetBody(inkyprovd.IcloudCredentials{
			Username:    args[0],
			AppPassword: strings.TrimSpace(password),
		}).Post("/icloud")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(icloudCmd)
}
