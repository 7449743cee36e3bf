package cmd

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var googleCmd = &cobra.Command{
	Use:   "google",
	Short: "Link a Google Calendar account",
	Long: `Fetches the Google consent URL from the device, waits for you to
complete the consent flow in a browser, then relays the resulting
authorization code back to the device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		resp, err := client.R().Get("/google/oauth-url")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		var req inkyprovd.OAuthRequest
		if err := json.Unmarshal(resp.Body(), &req); err != nil {
			return err
		}

		cmd.Println("Open this URL in a browser and approve access:")
		cmd.Println()
		cmd.Println("  " + req.URL)
		cmd.Println()
		cmd.Print("Paste the authorization code here: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		code, err := reader.ReadString('\n')
		if err != nil {
			return err
		}

		resp, err = client.R().SetBody(inkyprovd.GoogleAuthCode{
			Code:  strings.TrimSpace(code),
			State: req.State,
		}).Post("/google/oauth-code")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(googleCmd)
}
