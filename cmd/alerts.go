package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Daskott/lifealert/client"
	"github.com/Daskott/lifealert/colors"
	"github.com/Daskott/lifealert/server/models"
	"github.com/spf13/cobra"
)

func createAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "View sent alerts",
	}

	cmd.AddCommand(createAlertsListCmd(), createAlertsWatchCmd())

	return cmd
}

func createAlertsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alerts, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sessionUserID(); err != nil {
				return err
			}

			alerts, err := apiClient().Alerts(context.Background())
			if err != nil {
				return err
			}

			if len(alerts) == 0 {
				cmd.Println("No alerts yet")
				return nil
			}

			printAlerts(cmd.OutOrStdout(), alerts)
			return nil
		},
	}
}

func createAlertsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "List alerts, then print every new alert as it is sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sessionUserID(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := apiClient()
			board := client.NewBoard()
			if err := board.Load(ctx, c); err != nil {
				return err
			}
			printAlerts(cmd.OutOrStdout(), board.Alerts())

			board.OnChange = func(alerts []models.Alert) {
				printAlerts(cmd.OutOrStdout(), alerts[:1])
			}

			cmd.Println(colors.Yellow("Watching for new alerts, press Ctrl+C to stop"))
			return board.Watch(ctx, c)
		},
	}
}

func printAlerts(out io.Writer, alerts []models.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, alert := range alerts {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v, %v\t%v\n",
			alert.CreatedAt.Local().Format(time.RFC1123),
			alert.UserID,
			alertStatusLabel(alert.Status),
			alert.Latitude,
			alert.Longitude,
			alert.ID)
	}
	w.Flush()
}

func alertStatusLabel(status string) string {
	switch status {
	case models.SENT_ALERT:
		return colors.Green(status)
	case models.PARTIAL_ALERT:
		return colors.Yellow(status)
	default:
		return colors.Red(status)
	}
}
