package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/invscan/internal/config"
	"github.com/Iron-Ham/invscan/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify invscan configuration",
	Long: `View or modify invscan configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  invscan config set submit.endpoint https://inventory.example.com/submit-form
  invscan config set scanner.driver wedge
  invscan config set feedback.success_display_seconds 5

Valid keys:
  submit.endpoint                  - Absolute http(s) URL records are POSTed to
  submit.timeout_seconds           - Submission timeout in seconds
  scanner.driver                   - zbarcam or wedge
  scanner.device                   - Video device or scanner device path
  scanner.command                  - Camera decoding program
  scanner.preferred_camera         - environment or user
  scanner.preview                  - Show the decoder preview (true/false)
  scanner.startup_grace_ms         - Decoder startup window in milliseconds
  feedback.success_display_seconds - How long the success banner stays up
  logging.enabled                  - Write a log file (true/false)
  logging.level                    - debug, info, warn or error
  logging.dir                      - Log directory
  receiver.listen_addr             - Address for 'invscan serve'
  receiver.path                    - Submission route for 'invscan serve'
  receiver.store_file              - JSON lines journal for 'invscan serve'`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/invscan/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys lists the keys `config set` accepts and their value kinds.
var configKeys = map[string]string{
	"submit.endpoint":                  "string",
	"submit.timeout_seconds":           "int",
	"scanner.driver":                   "driver",
	"scanner.device":                   "string",
	"scanner.command":                  "string",
	"scanner.preferred_camera":         "facing",
	"scanner.preview":                  "bool",
	"scanner.highlight_region":         "bool",
	"scanner.highlight_outline":        "bool",
	"scanner.startup_grace_ms":         "int",
	"feedback.success_display_seconds": "int",
	"logging.enabled":                  "bool",
	"logging.level":                    "level",
	"logging.dir":                      "string",
	"logging.max_size_mb":              "int",
	"logging.max_backups":              "int",
	"logging.compress":                 "bool",
	"receiver.listen_addr":             "string",
	"receiver.path":                    "string",
	"receiver.store_file":              "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return writeConfigShow(cmd.OutOrStdout(), config.Get(), viper.ConfigFileUsed())
}

func writeConfigShow(w io.Writer, cfg *config.Config, used string) error {
	if used != "" {
		_, _ = fmt.Fprintf(w, "Config file: %s\n\n", used)
	} else {
		_, _ = fmt.Fprintf(w, "Config file: (none - using defaults)\n\n")
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// parseConfigValue checks value against the kind registered for key.
func parseConfigValue(key, value string) (any, error) {
	kind, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'invscan config set --help' to see valid keys", key)
	}

	switch kind {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return n, nil
	case "driver":
		if value != config.DriverZbarcam && value != config.DriverWedge {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s, %s",
				key, value, config.DriverZbarcam, config.DriverWedge)
		}
		return value, nil
	case "facing":
		if value != config.FacingEnvironment && value != config.FacingUser {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s, %s",
				key, value, config.FacingEnvironment, config.FacingUser)
		}
		return value, nil
	case "level":
		level := strings.ToLower(value)
		for _, valid := range logging.ValidLevels() {
			if level == strings.ToLower(valid) {
				return level, nil
			}
		}
		return nil, fmt.Errorf("invalid value for %s: %s\nValid options: debug, info, warn, error", key, value)
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	_, _ = fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const configHeader = `# invscan configuration
#
# submit.endpoint is where captured records are POSTed.
# scanner.driver is "zbarcam" for a camera or "wedge" for a handheld scanner.
# Every key can be overridden with an INVSCAN_* environment variable,
# e.g. INVSCAN_SUBMIT_ENDPOINT.

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	if err := writeDefaultConfig(configFile); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Created config file at %s\n", configFile)
	_, _ = fmt.Fprintln(out, "Edit this file to point invscan at your inventory backend.")
	return nil
}

// writeDefaultConfig writes the default configuration to path. It refuses to
// overwrite an existing file.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'invscan config set' to modify values", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	body, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to render default configuration: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", configFile)
	_, _ = fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	_, _ = fmt.Fprintln(out, "\nEnvironment variables: INVSCAN_* (e.g., INVSCAN_SUBMIT_ENDPOINT)")
	_, _ = fmt.Fprintf(out, "Log directory: %s\n", config.Get().Logging.ResolveDir())
	return nil
}
