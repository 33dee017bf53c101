package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Create a new configuration file from the same example template used by "config edit".

If a configuration file is already in use, no new file is written.
The chat API key is never stored in the file; put it in the environment or a .env file
under the name configured in chat.api_key_env.`,
	Example: `
  # Create default config at $HOME/.listingpilot.yaml
  listingpilot config create

  # Create config at a custom path
  listingpilot --configFile ./listingpilot.yaml config create
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveDefaultConfig(cmd.OutOrStdout())
	},
}

func saveDefaultConfig(out io.Writer) error {
	configPath, err := configEditTarget(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	created, err := seedConfigFile(configPath)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(out, "New config file created at: %s\n", configPath)
		return nil
	}

	fmt.Fprintf(out, "Config file already exists at: %s\n", configPath)
	return nil
}

func init() {
	configCmd.AddCommand(configCreateCmd)
}
