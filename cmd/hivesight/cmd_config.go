package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/hivesight/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hivesight configuration",
		Long: `View and modify hivesight configuration settings.

Configuration is stored in ~/.hivesight/config.yaml (or the --config file).

Examples:
  hivesight config list                            # Show all settings
  hivesight config get oracle.provider             # Get a specific setting
  hivesight config set oracle.provider anthropic   # Set a setting
  hivesight config set oracle.api_key '${ANTHROPIC_API_KEY}'
  hivesight config set oracle.models.fast gpt-4o-mini
  hivesight config path                            # Show the config file location`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigPathCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				// Redact API key before JSON serialization to prevent leakage
				redacted := *cfg
				redacted.Oracle.APIKey = cfg.Oracle.RedactedAPIKey()
				return json.NewEncoder(out).Encode(redacted)
			}

			fmt.Fprintf(out, "Configuration (%s):\n", configPath(cmd))
			printConfigSection(out, cfg, "Oracle Settings", "oracle.")
			printConfigSection(out, cfg, "Dispatch Settings", "dispatch.")
			printConfigSection(out, cfg, "Data Settings", "personas.", "history.")
			printConfigSection(out, cfg, "Operations Settings", "logging.", "tracing.", "server.")
			if len(cfg.Oracle.Models) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Model Aliases:")
				for _, alias := range slices.Sorted(maps.Keys(cfg.Oracle.Models)) {
					fmt.Fprintf(out, "  oracle.models.%s: %s\n", alias, cfg.Oracle.Models[alias])
				}
			}
			return nil
		},
	}
}

func printConfigSection(w io.Writer, cfg *config.HivesightConfig, title string, prefixes ...string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", title)
	for _, key := range configKeys {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(w, "  %-29s %s\n", key+":", displayValue(value))
			}
		}
	}
}

func displayValue(v interface{}) string {
	if s, ok := v.(string); ok && s == "" {
		return "(not set)"
	}
	return fmt.Sprint(v)
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]
			path := configPath(cmd)
			if path == "" {
				return fmt.Errorf("cannot locate config file: home directory unknown")
			}

			// Edit the file as written so environment values are never persisted.
			cfg, err := loadRawConfig(path)
			if err != nil {
				return err
			}
			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := saveConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			shown := value
			if key == "oracle.api_key" {
				shown = cfg.Oracle.RedactedAPIKey()
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  shown,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), configPath(cmd))
			return nil
		},
	}
}

// configKeys lists the settable scalar keys in display order.
var configKeys = []string{
	"oracle.provider",
	"oracle.api_key",
	"oracle.base_url",
	"oracle.model",
	"oracle.temperature",
	"oracle.max_tokens",
	"oracle.timeout",
	"dispatch.concurrency",
	"dispatch.max_attempts",
	"dispatch.initial_delay",
	"dispatch.max_delay",
	"dispatch.transient_delay",
	"dispatch.requests_per_second",
	"dispatch.burst",
	"personas.path",
	"history.enabled",
	"history.path",
	"logging.level",
	"tracing.endpoint",
	"server.addr",
}

const modelAliasPrefix = "oracle.models."

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.HivesightConfig, key string) (interface{}, bool) {
	if alias, ok := strings.CutPrefix(key, modelAliasPrefix); ok && alias != "" {
		m, found := cfg.Oracle.Models[alias]
		return m, found
	}
	switch key {
	case "oracle.provider":
		return cfg.Oracle.Provider, true
	case "oracle.api_key":
		return cfg.Oracle.RedactedAPIKey(), true
	case "oracle.base_url":
		return cfg.Oracle.BaseURL, true
	case "oracle.model":
		return cfg.Oracle.Model, true
	case "oracle.temperature":
		return cfg.Oracle.Temperature, true
	case "oracle.max_tokens":
		return cfg.Oracle.MaxTokens, true
	case "oracle.timeout":
		return cfg.Oracle.Timeout.String(), true
	case "dispatch.concurrency":
		return cfg.Dispatch.Concurrency, true
	case "dispatch.max_attempts":
		return cfg.Dispatch.MaxAttempts, true
	case "dispatch.initial_delay":
		return cfg.Dispatch.InitialDelay.String(), true
	case "dispatch.max_delay":
		return cfg.Dispatch.MaxDelay.String(), true
	case "dispatch.transient_delay":
		return cfg.Dispatch.TransientDelay.String(), true
	case "dispatch.requests_per_second":
		return cfg.Dispatch.RequestsPerSecond, true
	case "dispatch.burst":
		return cfg.Dispatch.Burst, true
	case "personas.path":
		return cfg.Personas.Path, true
	case "history.enabled":
		return cfg.History.Enabled, true
	case "history.path":
		return cfg.HistoryPath(), true
	case "logging.level":
		return cfg.Logging.Level, true
	case "tracing.endpoint":
		return cfg.Tracing.Endpoint, true
	case "server.addr":
		return cfg.Server.Addr, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.HivesightConfig, key, value string) error {
	if alias, ok := strings.CutPrefix(key, modelAliasPrefix); ok && alias != "" {
		if cfg.Oracle.Models == nil {
			cfg.Oracle.Models = make(map[string]string)
		}
		if value == "" {
			delete(cfg.Oracle.Models, alias)
		} else {
			cfg.Oracle.Models[alias] = value
		}
		return nil
	}

	var err error
	switch key {
	case "oracle.provider":
		cfg.Oracle.Provider = value
	case "oracle.api_key":
		cfg.Oracle.APIKey = value
	case "oracle.base_url":
		cfg.Oracle.BaseURL = value
	case "oracle.model":
		cfg.Oracle.Model = value
	case "oracle.temperature":
		cfg.Oracle.Temperature, err = parseFloat(value)
	case "oracle.max_tokens":
		cfg.Oracle.MaxTokens, err = parseInt(value)
	case "oracle.timeout":
		cfg.Oracle.Timeout, err = parseDuration(value)
	case "dispatch.concurrency":
		cfg.Dispatch.Concurrency, err = parseInt(value)
	case "dispatch.max_attempts":
		cfg.Dispatch.MaxAttempts, err = parseInt(value)
	case "dispatch.initial_delay":
		cfg.Dispatch.InitialDelay, err = parseDuration(value)
	case "dispatch.max_delay":
		cfg.Dispatch.MaxDelay, err = parseDuration(value)
	case "dispatch.transient_delay":
		cfg.Dispatch.TransientDelay, err = parseDuration(value)
	case "dispatch.requests_per_second":
		cfg.Dispatch.RequestsPerSecond, err = parseFloat(value)
	case "dispatch.burst":
		cfg.Dispatch.Burst, err = parseInt(value)
	case "personas.path":
		cfg.Personas.Path = value
	case "history.enabled":
		cfg.History.Enabled, err = strconv.ParseBool(value)
		if err != nil {
			err = fmt.Errorf("invalid boolean: %s", value)
		}
	case "history.path":
		cfg.History.Path = value
	case "logging.level":
		cfg.Logging.Level = value
	case "tracing.endpoint":
		cfg.Tracing.Endpoint = value
	case "server.addr":
		cfg.Server.Addr = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", s)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return f, nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s (e.g. 500ms, 30s, 2m)", s)
	}
	return d, nil
}

// loadRawConfig reads path over the defaults without environment overrides
// or ${VAR} expansion. A missing file yields the defaults.
func loadRawConfig(path string) (*config.HivesightConfig, error) {
	cfg := config.Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// saveConfig writes the configuration to path, readable only by the owner.
func saveConfig(path string, cfg *config.HivesightConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
