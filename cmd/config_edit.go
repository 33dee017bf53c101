package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"listingpilot/config"
)

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the active config in an editor.",
	Long: `Open the active listingpilot config file in your editor.

Editor selection order:
1) $LISTINGPILOT_EDITOR
2) $VISUAL
3) $EDITOR
4) vi

If no config file exists yet, one is created from the example template first.

After the editor exits the file is validated. A valid file is summarized: the
transformer that will be called, the header search window and the highlight colors.
An invalid edit of a previously valid file is rolled back; the rejected text is kept
next to it with a .rejected suffix so nothing typed is lost.`,
	Example: `
  # Edit active config
  listingpilot config edit

  # Edit a specific file with VS Code
  LISTINGPILOT_EDITOR="code --wait" listingpilot config edit --configFile ./team.yaml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := configEditTarget(cfgFile, viper.ConfigFileUsed())
		if err != nil {
			return err
		}

		_, err = editConfig(cmd.OutOrStdout(), configPath, editorFromEnv(os.Getenv), runEditorInTerminal)
		return err
	},
}

// editorRunner runs the prepared editor command until the user closes it.
type editorRunner func(*exec.Cmd) error

func runEditorInTerminal(c *exec.Cmd) error {
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

// editConfig opens path in editor and validates the result.
func editConfig(out io.Writer, path, editor string, run editorRunner) (*config.Config, error) {
	created, err := seedConfigFile(path)
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintf(out, "No config file found. Created example config at: %s\n", path)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config failed: %w", err)
	}
	_, beforeErr := config.ValidateYAMLContent(before)

	editorCmd, err := editorCommand(editor, path)
	if err != nil {
		return nil, err
	}
	if err := run(editorCmd); err != nil {
		return nil, fmt.Errorf("opening editor %q failed: %w", editor, err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading edited config failed: %w", err)
	}
	cfg, err := config.ValidateYAMLContent(after)
	if err != nil {
		if beforeErr != nil {
			return nil, fmt.Errorf("config validation failed in %s: %w", path, err)
		}
		rejected, restoreErr := rollBackEdit(path, before, after)
		if restoreErr != nil {
			return nil, fmt.Errorf("config validation failed in %s: %w (restore failed: %v)", path, err, restoreErr)
		}
		return nil, fmt.Errorf("config validation failed in %s: %w; previous config restored, your edit is in %s", path, err, rejected)
	}

	fmt.Fprintf(out, "Configuration saved and validated: %s\n", path)
	summarizeConfig(out, cfg)
	return cfg, nil
}

// rollBackEdit puts the last valid content back and keeps the edit aside.
func rollBackEdit(path string, valid, edited []byte) (string, error) {
	rejected := path + ".rejected"
	if err := os.WriteFile(rejected, edited, 0o600); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, valid, 0o600); err != nil {
		return "", err
	}
	return rejected, nil
}

func summarizeConfig(out io.Writer, cfg *config.Config) {
	switch cfg.Transformer.Mode {
	case config.ModeChat:
		key := "missing"
		if cfg.Chat.APIKey() != "" {
			key = "set"
		}
		fmt.Fprintf(out, "  Transformer: chat model %s at %s (API key in $%s: %s)\n", cfg.Chat.Model, cfg.Chat.BaseURL, cfg.Chat.APIKeyEnv, key)
	default:
		fmt.Fprintf(out, "  Transformer: backend %s\n", cfg.Transformer.URL)
	}
	fmt.Fprintf(out, "  Category:    %s, timeout %s\n", cfg.Transformer.Category, cfg.Transformer.Timeout())

	sheetName := cfg.Sheet.Name
	if sheetName == "" {
		sheetName = "active sheet"
	}
	fmt.Fprintf(out, "  Header row:  first match of %s in %d rows x %d columns of %s\n",
		strings.Join(cfg.Sheet.HeaderMarkers, "/"), cfg.Sheet.HeaderRows, cfg.Sheet.HeaderCols, sheetName)
	fmt.Fprintf(out, "  Highlights:  applied %s, changed %s\n", cfg.Review.AppliedColor, cfg.Review.ChangedColor)

	if isMemoryDSN(cfg.Journal.DSN) {
		fmt.Fprintln(out, "  Journal:     in memory (history is lost on exit)")
	} else {
		fmt.Fprintf(out, "  Journal:     %s\n", cfg.Journal.DSN)
	}
}

// configEditTarget prefers --configFile, then the file viper loaded, then
// $HOME/.listingpilot.yaml.
func configEditTarget(configFileFlag, configFileUsed string) (string, error) {
	for _, candidate := range []string{configFileFlag, configFileUsed} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".listingpilot.yaml"), nil
}

// seedConfigFile writes the example template when path does not exist yet.
func seedConfigFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking config file failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config directory failed: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.ExampleYAML()), 0o600); err != nil {
		return false, fmt.Errorf("creating example config failed: %w", err)
	}
	return true, nil
}

func editorFromEnv(getenv func(string) string) string {
	for _, key := range []string{"LISTINGPILOT_EDITOR", "VISUAL", "EDITOR"} {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
	}
	return "vi"
}

// editorCommand splits editor on spaces and appends the file to edit.
func editorCommand(editor, path string) (*exec.Cmd, error) {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}

	args := append(fields[1:len(fields):len(fields)], path)
	return exec.Command(fields[0], args...), nil
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
