package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/ui"
)

const defaultConfigPath = ".snooper.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage snooper configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (SNOOPER_*)
  - .env files (./.env and ~/.snooper.env)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.snooper.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The password and client
secret are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value ranges and enumerations
  - Timezone names
  - Log file path accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# snooper configuration file
#
# Every option can also be set through environment variables prefixed with
# SNOOPER_, for example SNOOPER_USERNAME or SNOOPER_CLIENT_SECRET.

# Reddit credentials of a "script" app (see 'snooper auth guide')
reddit:
  username: ""
  password: ""
  client_id: ""
  client_secret: ""

  # Reddit rejects generic user agents
  user_agent: "snooper json output v1.0"

  auth_url: "https://www.reddit.com"
  api_url: "https://oauth.reddit.com"
  timeout: 30s

# Report generation
report:
  # Maximum number of posts and of comments to fetch
  limit: 1000

  # Report path; empty prints the JSON to stdout
  output: ""

  # "Local" or an IANA name such as "Europe/Berlin"
  timezone: "Local"

  # Number of top comments used for language detection (1-100)
  language_sample: 5

  # Print a readable summary to stderr
  summary: false

# Rate limiting
rate_limit:
  # Range: 1-600
  requests_per_minute: 60

  # Honour Reddit's X-Ratelimit-* response headers
  respect_headers: true

# Retries for network failures, rate limiting and server errors
retry:
  enabled: true
  # Range: 0-10
  max_attempts: 3
  initial_backoff: 1s
  max_backoff: 30s
  multiplier: 2.0

# Logging (always stderr; stdout carries the report)
logging:
  # debug, info, warn, error, disabled
  level: "info"

  # console or json
  format: "console"

  # Optional log file receiving JSON lines
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		return errs.New(errs.ErrorTypeConfig, fmt.Sprintf("configuration file already exists: %s (remove it first to start over)", configPath), 0)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, err, "failed to create configuration directory")
		}
	}

	// credentials end up in this file
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to create configuration file")
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Add your Reddit script app credentials, or run 'snooper auth login'")
	fmt.Fprintln(out, "2. Run 'snooper config validate' to check the configuration")
	fmt.Fprintln(out, "3. Build a report with 'snooper <username>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to format configuration")
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\n# Configuration sources (in order of priority):")
	fmt.Fprintln(out, "# 1. Command line flags")
	fmt.Fprintln(out, "# 2. Environment variables (SNOOPER_*)")
	fmt.Fprintln(out, "# 3. .env files")
	if path := resolvedConfigPath(); path != "" {
		fmt.Fprintf(out, "# 4. Configuration file: %s\n", path)
	} else {
		fmt.Fprintln(out, "# 4. Configuration file: (none found)")
	}
	fmt.Fprintln(out, "# 5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	if path == "" {
		return errs.New(errs.ErrorTypeConfig, "no configuration file found; specify one with --config or run 'snooper config init'", 0)
	}
	ui.PrintInfo("Validating configuration", path)

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	var warnings []string
	if err := cfg.ValidateCredentials(); err != nil {
		warnings = append(warnings, err.Error()+" (stored accounts may provide them)")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, err, "cannot create log directory")
		}
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning", w)
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Limit: %d per content type\n", cfg.Report.Limit)
	fmt.Fprintf(out, "  Timezone: %s\n", cfg.Report.Timezone)
	fmt.Fprintf(out, "  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(out, "  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func resolvedConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}
