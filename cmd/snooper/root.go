package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	errs "snooper/pkg/errors"
	"snooper/pkg/report"
	"snooper/pkg/ui"
)

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitAuth     = 2
	exitNetwork  = 3
	exitOutput   = 4
	exitConfig   = 5
	exitCanceled = 130
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	showLogo   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snooper <username>",
	Short: "Summarize a Reddit account's activity as JSON",
	Long: `snooper fetches a Reddit account's newest posts and comments and writes a
JSON report: karma, the language the account writes in, and how its activity
is spread over the hours of the day and the days of the week.

It signs in through a Reddit "script" app. Run 'snooper auth guide' to see how
to create one and 'snooper auth login' to store the credentials.`,
	Example: `  # Report to stdout
  snooper spez

  # Write to a file and show a summary
  snooper spez --output spez.json --summary`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
		if showLogo {
			ui.PrintLogo()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// snooper <username> behaves like snooper report <username>
		if len(args) > 0 && !isKnownCommand(cmd, args[0]) {
			if len(args) != 1 {
				return errs.New(errs.ErrorTypeConfig, fmt.Sprintf("expected one username, got %d arguments", len(args)), 0)
			}
			return runReport(cmd, args)
		}
		return cmd.Help()
	},
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	if err != nil && !report.IsEmptyDataset(err) {
		ui.PrintError("Error", err)
	}
	return exitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.snooper.yaml or ~/.config/snooper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&showLogo, "logo", false, "print the logo to stderr")

	addReportFlags(rootCmd.Flags())

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	rootCmd.SetVersionTemplate(`snooper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// normalizeFlagName accepts snake_case spellings such as --client_id
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func isKnownCommand(cmd *cobra.Command, arg string) bool {
	for _, sub := range cmd.Root().Commands() {
		if sub.Name() == arg || sub.HasAlias(arg) {
			return true
		}
	}
	return arg == "help"
}

// exitCode maps an error to the process exit status. An empty account is
// not a failure.
func exitCode(err error) int {
	switch {
	case err == nil, report.IsEmptyDataset(err):
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitCanceled
	}

	switch errs.TypeOf(err) {
	case errs.ErrorTypeAuth:
		return exitAuth
	case errs.ErrorTypeNetwork, errs.ErrorTypeRateLimit, errs.ErrorTypeServerError:
		return exitNetwork
	case errs.ErrorTypeOutput:
		return exitOutput
	case errs.ErrorTypeConfig:
		return exitConfig
	default:
		return exitFailure
	}
}
