package cmd

import (
	"context"

	"github.com/Daskott/lifealert/server/mailer"
	"github.com/Daskott/lifealert/server/twilio"
	"github.com/Daskott/lifealert/colors"
	"github.com/spf13/cobra"
)

const (
	VERIFY_SMS_BODY      = "LifeAlert test message: SMS alerts are configured correctly."
	VERIFY_EMAIL_SUBJECT = "LifeAlert test email"
	VERIFY_EMAIL_BODY    = "<p>LifeAlert test email: email alerts are configured correctly.</p>"
)

func createVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the server's SMS & email credentials by sending a test message",
	}

	cmd.PersistentFlags().StringVar(&serverCfgFile, "sconfig", "", "config for server (required when not in dev mode)")
	cmd.AddCommand(createVerifySMSCmd(), createVerifyEmailCmd())

	return cmd
}

func createVerifySMSCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "sms",
		Short: "Look up the twilio account & send a test SMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConfig, err := loadServerConfig()
			if err != nil {
				return err
			}

			twilioClient := twilio.NewClient(serverConfig.Twilio)

			account, err := twilioClient.FetchAccount()
			if err != nil {
				return formattedError("twilio credentials rejected: %v", err)
			}
			cmd.Printf("Twilio account: %v (%v)\n", account.FriendlyName, account.Sid)

			if err := twilioClient.SendSMS(context.Background(), to, VERIFY_SMS_BODY); err != nil {
				return formattedError("failed to send test SMS: %v", err)
			}

			cmd.Println(colors.Green("Test SMS sent to " + to))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "phone number to send the test SMS to")
	cmd.MarkFlagRequired("to")

	return cmd
}

func createVerifyEmailCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send a test email through the configured SMTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConfig, err := loadServerConfig()
			if err != nil {
				return err
			}

			err = mailer.NewMailer(serverConfig.Smtp).SendEmail(context.Background(), to, VERIFY_EMAIL_SUBJECT, VERIFY_EMAIL_BODY)
			if err != nil {
				return formattedError("failed to send test email: %v", err)
			}

			cmd.Println(colors.Green("Test email sent to " + to))
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "email address to send the test email to")
	cmd.MarkFlagRequired("to")

	return cmd
}
