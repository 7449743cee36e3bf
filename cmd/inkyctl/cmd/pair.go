package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagContinue bool

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with the device using its on-screen code",
	Long: `Probes the device, asks it to display an authorization code, then
reads the code from stdin and completes the connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		resp, err := client.R().Post("/connection/start")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		var start struct {
			CanConnect     bool   `json:"can_connect"`
			ServicesActive bool   `json:"services_active"`
			PromptMessage  string `json:"prompt_message"`
		}
		if err := json.Unmarshal(resp.Body(), &start); err != nil {
			return err
		}
		if start.ServicesActive && !flagContinue {
			cmd.Println(start.PromptMessage)
			return fmt.Errorf("re-run with --continue to take over the existing session")
		}

		resp, err = client.R().
			SetBody(map[string]bool{"continue_when_active": flagContinue}).
			Post("/connection/authorize")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		var auth struct {
			CodeLength int `json:"code_length"`
		}
		if err := json.Unmarshal(resp.Body(), &auth); err != nil {
			return err
		}

		cmd.Printf("Enter the %d-digit code shown on the device: ", auth.CodeLength)
		reader := bufio.NewReader(cmd.InOrStdin())
		code, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		code = strings.TrimSpace(code)

		resp, err = client.R().
			SetBody(map[string]string{"authorization_code": code}).
			Post("/connection/complete")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		resp, err = client.R().
			SetBody(map[string]string{"client_name": "inkyctl"}).
			Post("/pair")
		if err := checkResponse(resp, err); err != nil {
			return err
		}

		cmd.Println("Paired.")
		return nil
	},
}

func init() {
	pairCmd.Flags().BoolVar(&flagContinue, "continue", false, "take over an existing setup session")
	rootCmd.AddCommand(pairCmd)
}
