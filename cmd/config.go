package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage listingpilot configuration file values.",
	Long: `Create, edit, display, and delete the listingpilot configuration file.

The configuration stores application-wide values:
- transformer.mode / url / category / timeout_seconds
- chat.base_url / model / api_key_env
- sheet.name / header_rows / header_cols / header_markers
- review.title_markers / description_markers / applied_color / changed_color
- journal.dsn`,
	Example: `
  # Create default config in $HOME/.listingpilot.yaml
  listingpilot config create

  # Show active config and source file
  listingpilot config show

  # Open active config in editor (creates example if missing)
  listingpilot config edit

  # Delete active config file
  listingpilot config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
