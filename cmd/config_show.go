package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"listingpilot/config"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. The chat API key is
shown only as set or missing.`,
	Example: `
  # Show active configuration
  listingpilot config show
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return printConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), cfg)
	},
}

type shownConfig struct {
	Transformer struct {
		Mode           string `yaml:"mode"`
		URL            string `yaml:"url"`
		Category       string `yaml:"category"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"transformer"`
	Chat struct {
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		APIKeyEnv string `yaml:"api_key_env"`
		APIKey    string `yaml:"api_key"`
	} `yaml:"chat"`
	Sheet struct {
		Name          string   `yaml:"name"`
		HeaderRows    int      `yaml:"header_rows"`
		HeaderCols    int      `yaml:"header_cols"`
		HeaderMarkers []string `yaml:"header_markers,flow"`
	} `yaml:"sheet"`
	Review struct {
		TitleMarkers       []string `yaml:"title_markers,flow"`
		DescriptionMarkers []string `yaml:"description_markers,flow"`
		AppliedColor       string   `yaml:"applied_color"`
		ChangedColor       string   `yaml:"changed_color"`
	} `yaml:"review"`
	Journal struct {
		DSN string `yaml:"dsn"`
	} `yaml:"journal"`
}

func printConfig(out io.Writer, configPath string, cfg *config.Config) error {
	if configPath != "" {
		fmt.Fprintln(out, "Config file loaded from:", configPath)
	} else {
		fmt.Fprintln(out, "No config file loaded, showing defaults.")
	}

	var shown shownConfig
	shown.Transformer.Mode = cfg.Transformer.Mode
	shown.Transformer.URL = cfg.Transformer.URL
	shown.Transformer.Category = cfg.Transformer.Category
	shown.Transformer.TimeoutSeconds = cfg.Transformer.TimeoutSeconds
	shown.Chat.BaseURL = cfg.Chat.BaseURL
	shown.Chat.Model = cfg.Chat.Model
	shown.Chat.APIKeyEnv = cfg.Chat.APIKeyEnv
	shown.Chat.APIKey = "missing"
	if cfg.Chat.APIKey() != "" {
		shown.Chat.APIKey = "set"
	}
	shown.Sheet.Name = cfg.Sheet.Name
	shown.Sheet.HeaderRows = cfg.Sheet.HeaderRows
	shown.Sheet.HeaderCols = cfg.Sheet.HeaderCols
	shown.Sheet.HeaderMarkers = cfg.Sheet.HeaderMarkers
	shown.Review.TitleMarkers = cfg.Review.TitleMarkers
	shown.Review.DescriptionMarkers = cfg.Review.DescriptionMarkers
	shown.Review.AppliedColor = cfg.Review.AppliedColor
	shown.Review.ChangedColor = cfg.Review.ChangedColor
	shown.Journal.DSN = cfg.Journal.DSN

	fmt.Fprintln(out, "Configuration:")
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(shown); err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	return encoder.Close()
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
