package cmd

import (
	"github.com/spf13/cobra"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

var settingsFlags inkyprovd.DeviceSettings

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Submit device settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().R().
			SetBody(inkyprovd.SettingsPayload{Settings: settingsFlags}).
			Post("/settings")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Persist the staged configuration and restart calendar services",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().R().
			SetBody(inkyprovd.ApplyRequest{Action: "apply"}).
			Post("/apply")
		if err := checkResponse(resp, err); err != nil {
			return err
		}
		printJSON(cmd, resp.Body())
		return nil
	},
}

func init() {
	f := settingsCmd.Flags()
	f.StringVar(&settingsFlags.Timezone, "timezone", "UTC", "IANA timezone name")
	f.StringVar(&settingsFlags.SleepStart, "sleep-start", "22:00", "display sleep start, HH:MM")
	f.StringVar(&settingsFlags.SleepEnd, "sleep-end", "06:00", "display sleep end, HH:MM")
	f.IntVar(&settingsFlags.PortraitRotation, "rotation", 0, "panel rotation: 0, 90, 180 or 270")
	f.IntVar(&settingsFlags.RefreshMinutes, "refresh-minutes", 30, "minutes between display refreshes")
	f.StringVar(&settingsFlags.DeepCleanDay, "deep-clean-day", "Sunday", "weekday for the full panel clean")
	f.StringVar(&settingsFlags.DeepCleanTime, "deep-clean-time", "03:00", "time of the full panel clean, HH:MM")

	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(applyCmd)
}
