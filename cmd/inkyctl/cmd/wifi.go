package cmd

import (
	"github.com/spf13/cobra"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var (
	flagWifiPassword string
	flagWifiCountry  string
)

var wifiCmd = &cobra.Command{
	Use:   "wifi <ssid>",
	Short: "Join the device to a wireless network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := inkyprovd.WifiCredentials{
			Ssid:     args[0],
			Password: flagWifiPassword,
			Country:  flagWifiCountry,
		}
		resp, err := newClient().R().SetBody(creds).Post("/wifi")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

func init() {
	wifiCmd.Flags().StringVar(&flagWifiPassword, "password", "", "network password, omit for an open network")
	wifiCmd.Flags().StringVar(&flagWifiCountry, "country", "US", "regulatory country code")
	rootCmd.AddCommand(wifiCmd)
}
