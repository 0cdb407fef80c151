package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"snooper/pkg/auth"
	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/language"
	"snooper/pkg/logger"
	"snooper/pkg/reddit"
	"snooper/pkg/report"
	"snooper/pkg/scraper"
	"snooper/pkg/storage"
	"snooper/pkg/ui"
)

var (
	// Report command flags
	username       string
	password       string
	clientID       string
	clientSecret   string
	limit          int
	outputPath     string
	timezone       string
	languageSample int
	showSummary    bool
	accountName    string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <username>",
	Short: "Build the activity report of a Reddit account",
	Long: `Fetch up to --limit posts and --limit comments of a Reddit account and write
its activity report as JSON.

Credentials are taken from, in order:
  - flags (--username, --password, --client-id, --secret)
  - environment variables (SNOOPER_USERNAME, SNOOPER_PASSWORD, ...)
  - the configuration file
  - stored accounts (use 'snooper auth login' to store one)

The report goes to stdout unless --output is given, in which case the absolute
path of the written file is printed instead.`,
	Example: `  # Report to stdout using stored credentials
  snooper report spez

  # Explicit credentials, smaller sample, written to a file
  snooper report spez --username me --password ... --client-id ... --secret ... \
      --limit 200 --output spez.json

  # Bucket by Tokyo time
  snooper report spez --timezone Asia/Tokyo`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addReportFlags(reportCmd.Flags())
}

// addReportFlags binds the report flags; the root command gets them too so
// that "snooper <username>" accepts the same options.
func addReportFlags(fs *pflag.FlagSet) {
	fs.StringVar(&username, "username", "", "Reddit username to sign in with")
	fs.StringVar(&password, "password", "", "Reddit password")
	fs.StringVar(&clientID, "client-id", "", "client id of the Reddit script app")
	fs.StringVar(&clientSecret, "secret", "", "client secret of the Reddit script app")
	fs.IntVar(&limit, "limit", 1000, "maximum number of posts and of comments to fetch")
	fs.StringVarP(&outputPath, "output", "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&timezone, "timezone", "", "timezone for hour and day buckets (default: local time)")
	fs.IntVar(&languageSample, "language-sample", 5, "number of top comments used for language detection")
	fs.BoolVar(&showSummary, "summary", false, "print a readable summary to stderr")
	fs.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
}

// reportFlags collects the flags the user actually set
func reportFlags(fs *pflag.FlagSet) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, v interface{}) {
		if fs.Changed(name) {
			flags[name] = v
		}
	}
	set("username", username)
	set("password", password)
	set("client-id", clientID)
	set("secret", clientSecret)
	set("limit", limit)
	set("output", outputPath)
	set("timezone", timezone)
	set("language-sample", languageSample)
	set("summary", showSummary)
	set("log-level", logLevel)
	return flags
}

func runReport(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	log := logger.GetLogger().WithField("target", target)
	log.WithField("version", version).Info("snooper starting")

	if err := resolveCredentials(cfg, accountName, nil); err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "invalid timezone")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Target", target)
	ui.PrintInfo("Signed in as", cfg.Reddit.Username)

	client := reddit.NewClient(cfg, logger.GetLogger())
	builder := report.NewBuilder(language.NewWhatlang(), loc)
	s := scraper.New(client, builder, cfg.Report, scraper.WithStatus(ui.PrintStage))

	r, err := s.Run(ctx, target)
	switch {
	case report.IsEmptyDataset(err):
		ui.PrintWarning("No posts or comments found", target)
	case err != nil:
		log.WithError(err).Error("report failed")
		return err
	}

	path, err := storage.NewWriterTo(cfg.Report.Output, cmd.OutOrStdout()).Write(r)
	if err != nil {
		log.WithError(err).Error("failed to write report")
		return err
	}
	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}

	if cfg.Report.Summary {
		fmt.Fprintln(ui.Output(), ui.RenderSummary(r))
	}

	log.InfoWithFields("report written", map[string]interface{}{
		"items":    r.TotalDataCount,
		"language": r.TopUseLanguage,
		"output":   path,
	})
	ui.PrintSuccess(fmt.Sprintf("Report for %s complete (%d items)", target, r.TotalDataCount))
	return nil
}

// loadConfig loads the configuration and initializes the global logger
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	flags := map[string]interface{}{}
	if fs != nil {
		flags = reportFlags(fs)
	}
	if quiet && (fs == nil || !fs.Changed("log-level")) {
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to load configuration")
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "failed to initialize logger")
	}
	return cfg, nil
}

// resolveCredentials completes cfg.Reddit from a stored account when the
// flags, environment and config file left any credential empty. A nil
// manager is opened on demand.
func resolveCredentials(cfg *config.Config, name string, manager *auth.Manager) error {
	if name == "" && cfg.ValidateCredentials() == nil {
		return nil
	}

	if manager == nil {
		m, err := auth.NewManager()
		if err != nil {
			logger.WithError(err).Warn("credential store unavailable")
		}
		manager = m
	}

	if manager != nil {
		var (
			account *auth.Account
			err     error
		)
		if name != "" {
			account, err = manager.Retrieve(name)
			if err != nil {
				return errs.Wrap(errs.ErrorTypeConfig, err, fmt.Sprintf("stored account %q not found; run 'snooper auth list'", name))
			}
		} else {
			account, err = manager.RetrieveDefault()
		}
		if err == nil && account != nil {
			account.ApplyTo(&cfg.Reddit)
			logger.WithField("account", account.Name).Info("using stored credentials")
		}
	}

	if err := cfg.ValidateCredentials(); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "run 'snooper auth login' or pass --username, --password, --client-id and --secret")
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
