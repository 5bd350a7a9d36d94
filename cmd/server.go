package cmd

import (
	"strings"

	devConfig "github.com/Daskott/lifealert/dev/config"
	"github.com/Daskott/lifealert/server"
	"github.com/Daskott/lifealert/shared"
	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverCfgFile string

func createServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start a lifealert server",
		Long: `The lifealert server stores emergency contacts and fans out every
submitted alert to them by SMS & email`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConfig, err := loadServerConfig()
			if err != nil {
				return err
			}

			server.Start(serverConfig, isDevEnv)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&serverCfgFile, "sconfig", "", "config for server (required when not in dev mode)")

	return cmd
}

// loadServerConfig reads the server config file & ENV variables into a
// validated shared.ServerConfig. ENV variables use '_' for nesting
// e.g. TWILIO_AUTHTOKEN overrides twilio.authToken
func loadServerConfig() (*shared.ServerConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match

	v.SetDefault("database.driver", shared.SQLITE_DRIVER)
	v.SetDefault("feed.source", shared.LOCAL_FEED)
	v.SetDefault("lifealert.cron.timeZone", "UTC")

	var err error
	switch {
	case isDevEnv:
		err = v.ReadConfig(strings.NewReader(devConfig.SERVER_YML))
	case serverCfgFile != "":
		v.SetConfigFile(serverCfgFile)
		err = v.ReadInConfig()
	default:
		return nil, formattedError("--sconfig is required when not in dev mode")
	}
	if err != nil {
		return nil, formattedError("error reading server config: %v", err)
	}

	serverConfig := &shared.ServerConfig{}
	if err := v.Unmarshal(serverConfig); err != nil {
		return nil, formattedError("error decoding server config: %v", err)
	}

	if err := validator.New().Struct(serverConfig); err != nil {
		return nil, formattedError("invalid server config:\n%v", err)
	}

	return serverConfig, nil
}
