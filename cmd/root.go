/*
Copyright © 2025 riad@rsworld.eu

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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"listingpilot/config"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "listingpilot",
	Short: "Review and apply AI-proposed edits to product listing spreadsheets.",
	Long: `
**********************************************
*              LISTING PILOT                 *
**********************************************

This CLI reads product listings from an Excel workbook, asks a text transformer for
better titles and descriptions (or applies a free-form edit instruction), lets you
review every proposal and writes only the approved ones back to the sheet.

Columns are found by their header names, whatever their position. Written cells are
highlighted so changes stay visible in the workbook.

Supported input formats:
- Excel: .xlsx, .xlsm
- Delimited text: .csv, .tsv (UTF-8, UTF-16 or Windows-1252; no highlights)
`,
	Example: `
  # Create configuration file
  listingpilot config create

  # Show the detected header row
  listingpilot headers --file listings.xlsx

  # Optimize one row and write it immediately
  listingpilot optimize-row --file listings.xlsx --row 7

  # Preview bulk optimization of rows 5 to 40 without writing
  listingpilot batch optimize --file listings.xlsx --select A5:I40 --dry-run

  # Apply an instruction to a range, rejecting two proposals
  listingpilot batch smart-edit --file listings.xlsx --select 5:40 --instruction "set the brand to Ubiquiti" --reject 2,5

  # Open the review panel in the browser
  listingpilot serve --file listings.xlsx
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.listingpilot.yaml, then ./.listingpilot.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file with secrets such as the chat API key (ignored when missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level for engine diagnostics on stderr: debug|info|warn|error")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".listingpilot")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults. Create one with: listingpilot config create")
	}
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
