package cmd

import (
	"context"

	"github.com/Daskott/lifealert/colors"
	"github.com/spf13/cobra"
)

func createContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "View or update your emergency contacts",
	}

	cmd.AddCommand(createContactsGetCmd(), createContactsSetCmd())

	return cmd
}

func createContactsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show your emergency contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := sessionUserID()
			if err != nil {
				return err
			}

			contacts, err := apiClient().Contacts(context.Background(), userID)
			if err != nil {
				return err
			}

			cmd.Printf("Phones: %v\nEmails: %v\n", contacts.Phones, contacts.Emails)
			return nil
		},
	}
}

func createContactsSetCmd() *cobra.Command {
	var phones, emails string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace your emergency contacts",
		Long: `Replace your emergency contacts. Both lists are comma separated
e.g. lifealert contacts set --phones "+15551111111,+15552222222" --emails "mum@example.com"

A list that isn't passed keeps its current value`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("phones") && !cmd.Flags().Changed("emails") {
				return formattedError("at least one of --phones or --emails must be set")
			}

			userID, err := sessionUserID()
			if err != nil {
				return err
			}

			ctx := context.Background()
			c := apiClient()

			contacts, err := c.Contacts(ctx, userID)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("phones") {
				contacts.Phones = phones
			}
			if cmd.Flags().Changed("emails") {
				contacts.Emails = emails
			}

			if err := c.SaveContacts(ctx, userID, *contacts); err != nil {
				return err
			}

			cmd.Println(colors.Green("Settings saved"))
			return nil
		},
	}

	cmd.Flags().StringVar(&phones, "phones", "", "comma separated phone numbers")
	cmd.Flags().StringVar(&emails, "emails", "", "comma separated email addresses")

	return cmd
}
