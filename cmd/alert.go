package cmd

import (
	"context"
	"time"

	"github.com/Daskott/lifealert/client"
	"github.com/Daskott/lifealert/colors"
	"github.com/spf13/cobra"
)

func createAlertCmd() *cobra.Command {
	var (
		lat, lng  float64
		userID    string
		locateURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Send an emergency alert with your location to all your contacts",
		Long: `Send an emergency alert with your location to all your contacts.

Your location is looked up from your IP address unless --lat & --lng are given`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("lat") != cmd.Flags().Changed("lng") {
				return formattedError("--lat and --lng must be set together")
			}

			sessionUser, err := sessionUserID()
			if err != nil {
				return err
			}
			if userID == "" {
				userID = sessionUser
			}

			var locator client.Locator = client.NewIPLocator(locateURL)
			if cmd.Flags().Changed("lat") {
				locator = client.StaticLocator{Latitude: lat, Longitude: lng}
			}

			trigger := client.NewTrigger(locator, apiClient(), userID)
			trigger.SetLocateTimeout(timeout)
			trigger.OnChange = func(status client.Status) {
				if status.State == client.Locating || status.State == client.Submitting {
					cmd.Println(colors.Yellow(status.Message))
				}
			}

			status := trigger.Fire(context.Background())
			if status.State == client.Failed {
				return formattedError("%s", status.Message)
			}

			cmd.Println(colors.Green(status.Message))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of your location")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude of your location")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user to alert for (admins only, default is the signed in user)")
	cmd.Flags().StringVar(&locateURL, "locate-url", client.DEFAULT_IP_LOCATOR_URL, "IP geolocation service used when --lat/--lng aren't set")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DEFAULT_LOCATE_TIMEOUT, "how long to wait for a location fix")

	return cmd
}
