package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"snooper/pkg/auth"
	"snooper/pkg/config"
	errs "snooper/pkg/errors"
	"snooper/pkg/logger"
	"snooper/pkg/reddit"
	"snooper/pkg/ui"
)

var (
	// Auth command flags
	verifyLogin bool
	logoutAll   bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit credentials",
	Long: `Manage stored Reddit credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Reddit credentials securely",
	Long: `Store Reddit credentials in the system keychain or an encrypted file.

You will be prompted for:
  - Reddit username (if not provided)
  - Password
  - Client id and client secret of your script app
  - User agent (optional, press Enter for the default)

Unless --verify=false is given the credentials are checked against Reddit
before they are stored.`,
	Example: `  # Interactive login
  snooper auth login

  # Login with username, skipping the online check
  snooper auth login myusername --verify=false`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Long: `Remove stored Reddit credentials.

Without a name the only stored account is removed after confirmation. Use
--all to remove every stored account.`,
	Example: `  # Logout a specific account
  snooper auth logout myusername

  # Remove everything
  snooper auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Reddit accounts with masked secrets, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to create a Reddit script app",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowAppSetupGuide(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(guideCmd)

	loginCmd.Flags().BoolVar(&verifyLogin, "verify", true, "check the credentials against Reddit before storing them")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove all stored accounts")
}

// prompter reads answers from the command's input
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// secret reads without echo when stdin is a terminal
func (p *prompter) secret(question string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(p.out, question)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
	}
	return p.ask(question)
}

func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " (y/N): ")
	return err == nil && strings.HasPrefix(strings.ToLower(answer), "y")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to initialize credential manager")
	}

	p := newPrompter(cmd)
	auth.ShowQuickSetupGuide(p.out)
	fmt.Fprintln(p.out)

	account := &auth.Account{}
	if len(args) > 0 {
		account.Username = strings.TrimSpace(args[0])
	}

	if account.Username == "" {
		if account.Username, err = p.ask("Reddit username: "); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, err, "failed to read username")
		}
	}
	account.Username = reddit.SanitizeUsername(account.Username)
	if !reddit.IsValidUsername(account.Username) {
		return errs.New(errs.ErrorTypeConfig, fmt.Sprintf("invalid Reddit username %q", account.Username), 0)
	}

	if existing, _ := manager.Retrieve(account.Username); existing != nil {
		if !p.confirm(fmt.Sprintf("Account '%s' already exists. Update credentials?", account.Username)) {
			return nil
		}
	}

	prompts := []struct {
		label  string
		target *string
		hidden bool
	}{
		{"Password: ", &account.Password, true},
		{"Client id: ", &account.ClientID, false},
		{"Client secret: ", &account.ClientSecret, true},
	}
	for _, pr := range prompts {
		read := p.ask
		if pr.hidden {
			read = p.secret
		}
		if *pr.target, err = read(pr.label); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, err, "failed to read "+strings.TrimSuffix(pr.label, ": "))
		}
	}
	if account.UserAgent, err = p.ask("User agent (press Enter for default): "); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to read user agent")
	}

	if err := account.Validate(); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "incomplete credentials")
	}

	if verifyLogin {
		ui.PrintInfo("Verifying", "signing in to Reddit as "+account.Username)
		if err := verifyAccount(commandContext(cmd), account); err != nil {
			return err
		}
	}

	account.LastModified = time.Now()
	if err := manager.Store(account); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to store credentials")
	}

	ui.PrintSuccess("Account saved: " + account.Username)
	fmt.Fprintf(p.out, "\nBuild a report with:\n  snooper <username>\n  snooper <username> --account %s\n", account.Name)
	return nil
}

// verifyAccount runs the password grant with the account's credentials
func verifyAccount(ctx context.Context, account *auth.Account) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	cfg.Reddit.Username = account.Username
	cfg.Reddit.Password = account.Password
	cfg.Reddit.ClientID = account.ClientID
	cfg.Reddit.ClientSecret = account.ClientSecret
	if account.UserAgent != "" {
		cfg.Reddit.UserAgent = account.UserAgent
	}

	return reddit.NewClient(cfg, logger.GetLogger()).Login(ctx)
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to initialize credential manager")
	}
	return logout(newPrompter(cmd), manager, args, logoutAll)
}

func logout(p *prompter, manager *auth.Manager, args []string, all bool) error {
	if all {
		if !p.confirm("Remove ALL stored accounts? This cannot be undone.") {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return errs.Wrap(errs.ErrorTypeConfig, err, "failed to remove all accounts")
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			return errs.New(errs.ErrorTypeConfig, "no stored accounts found", 0)
		}
		if len(accounts) > 1 {
			return errs.New(errs.ErrorTypeConfig, "several accounts are stored; name one or use --all", 0)
		}
		name = accounts[0].Name
		if !p.confirm(fmt.Sprintf("Remove account '%s'?", name)) {
			return nil
		}
	}

	if err := manager.Delete(name); err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to remove account")
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to initialize credential manager")
	}
	return listAccounts(cmd.OutOrStdout(), manager)
}

func listAccounts(out io.Writer, manager *auth.Manager) error {
	accounts, err := manager.List()
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "failed to list accounts")
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'snooper auth login' to add one")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(out, "   Username: %s\n", sanitized.Username)
		fmt.Fprintf(out, "   Client ID: %s\n", sanitized.ClientID)
		fmt.Fprintf(out, "   Client Secret: %s\n", sanitized.ClientSecret)
		fmt.Fprintf(out, "   User Agent: %s\n", userAgentOrDefault(sanitized.UserAgent))
		fmt.Fprintf(out, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(out)
	}
	return nil
}

func userAgentOrDefault(ua string) string {
	if ua == "" {
		return config.DefaultUserAgent + " (default)"
	}
	return ua
}
