package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	flagAddress string
	flagToken   string
	flagSocket  string
)

var rootCmd = &cobra.Command{
	Use:   "inkyctl",
	Short: "Control a paired Inky calendar device",
	Long: `inkyctl talks to the inkyprovd provisioning daemon, either over the
network with a setup token or locally over its unix socket.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAddress, "address", "http://inky.local:8473", "base URL of the inkyprovd HTTP API")
	pf.StringVar(&flagToken, "token", os.Getenv("INKY_SETUP_TOKEN"), "setup token for the HTTP API")
	pf.StringVar(&flagSocket, "socket", "", "talk over the local unix socket instead of the network")
}

// newClient builds a resty client for either transport. The unix socket
// path skips token auth entirely.
func newClient() *resty.Client {
	if flagSocket != "" {
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", flagSocket)
			},
		}
		return resty.New().SetTransport(transport).SetBaseURL("http://inkyprovd")
	}
	return resty.New().
		SetBaseURL(flagAddress).
		SetHeader("X-Setup-Token", flagToken)
}

// apiError is the daemon's error payload shape.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// checkResponse turns transport and API failures into one error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		var apiErr apiError
		if jsonErr := json.Unmarshal(resp.Body(), &apiErr); jsonErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("request failed with status %s", resp.Status())
	}
	return nil
}

// printJSON pretty-prints a response body.
func printJSON(cmd *cobra.Command, body []byte) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		cmd.Println(string(body))
		return
	}
	pretty, _ := json.MarshalIndent(out, "", "  ")
	cmd.Println(string(pretty))
}
