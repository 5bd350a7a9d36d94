package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func createSignUpCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a lifealert account",
		Long: `Create a lifealert account. The first account created on a server
becomes its admin and can see every user's alerts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := apiClient().SignUp(context.Background(), email, password)
			if err != nil {
				return err
			}

			cmd.Printf("Account created for %v. Run 'lifealert login' to sign in\n", email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func createLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in & store the session in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := apiClient().Login(context.Background(), email, password)
			if err != nil {
				return err
			}

			if err := saveSession(session); err != nil {
				return err
			}

			cmd.Printf("Signed in as %v\n", email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}

func createLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out & forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Tokens are stateless, so the session is dropped even when the server can't be reached
			if err := apiClient().Logout(context.Background()); err != nil {
				cmd.Printf("%s %v\n", warningLabel, err)
			}

			config.Set("session.token", "")
			config.Set("session.userId", "")
			if err := config.WriteConfig(); err != nil {
				return err
			}

			cmd.Println("Signed out")
			return nil
		},
	}
}
