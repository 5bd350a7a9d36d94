/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Daskott/lifealert/client"
	"github.com/Daskott/lifealert/colors"
	"github.com/Daskott/lifealert/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const DEFAULT_SERVER_URL = "http://localhost:3000"

var (
	cfgFile   string
	serverURL string
	config    *viper.Viper

	isDevEnv  bool
	isTestEnv bool

	warningLabel = colors.Yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd = createRootCmd()
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lifealert",
		Short: `lifealert sends an emergency alert with your location
to every one of your emergency contacts by SMS & email.

Run 'lifealert server' to host the alert service, then sign in and
use 'lifealert alert' to ask for help.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lifealert/config.yaml)")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "lifealert server url (default is server.url from config)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")
	cmd.PersistentFlags().BoolVarP(&isTestEnv, "test", "", false, "run in test mode")

	cmd.AddCommand(
		createServerCmd(),
		createSignUpCmd(),
		createLoginCmd(),
		createLogoutCmd(),
		createContactsCmd(),
		createAlertCmd(),
		createAlertsCmd(),
		createVerifyCmd(),
	)

	return cmd
}

// initConfig reads in the client config file and ENV variables if set.
func initConfig() {
	config = viper.New()

	if cfgFile == "" {
		configName, configDir, err := defaultCfgNameAndDir()
		cobra.CheckErr(err)
		cfgFile = filepath.Join(configDir, configName)
	}

	// If config file is not found, create one using defaultConfigValue
	cobra.CheckErr(utils.CreateDirIfNotExist(filepath.Dir(cfgFile)))
	if !utils.FileExist(cfgFile) {
		err := os.WriteFile(cfgFile, []byte(defaultConfigValue()), 0600)
		cobra.CheckErr(err)
	}

	config.SetConfigFile(cfgFile)
	config.SetConfigType("yaml")
	config.SetDefault("server.url", DEFAULT_SERVER_URL)

	config.BindEnv("server.url", "LIFEALERT_SERVER_URL")
	config.AutomaticEnv() // read in environment variables that match

	cobra.CheckErr(config.ReadInConfig())
}

func defaultCfgNameAndDir() (configName string, configDir string, err error) {
	configName = "config.yaml"

	// Use home directory for production
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}
	configDir = filepath.Join(homeDir, ".lifealert")

	if isDevEnv || isTestEnv {
		configName = ".lifealert.dev.yaml"
		configDir, err = os.Getwd()
		if err != nil {
			return "", "", err
		}

		if isTestEnv {
			configName = ".lifealert.yaml"
			configDir = filepath.Join(configDir, "test-fixtures")
		}
	}

	return configName, configDir, err
}

// defaultConfigValue returns the default content for the client config
func defaultConfigValue() string {
	return `server:
  url: ` + DEFAULT_SERVER_URL + `

# This section is managed by 'lifealert login' & 'lifealert logout'
session:
  token:
  userId:
`
}

// ---------------------------------------------------------------------------------//
// Client Helpers
// --------------------------------------------------------------------------------//

func apiClient() *client.Client {
	url := serverURL
	if url == "" {
		url = config.GetString("server.url")
	}

	return client.New(url, config.GetString("session.token"))
}

// sessionUserID returns the signed in user, or an error asking the user to login
func sessionUserID() (string, error) {
	userID := config.GetString("session.userId")
	if userID == "" || config.GetString("session.token") == "" {
		return "", formattedError("not signed in. Run 'lifealert login' first")
	}

	return userID, nil
}

func saveSession(session *client.Session) error {
	config.Set("session.token", session.Token)
	config.Set("session.userId", session.UserID)
	return config.WriteConfig()
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(colors.Red(format), a...)
}
