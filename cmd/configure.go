package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jonandersen/tradier/internal/api"
	"github.com/jonandersen/tradier/internal/config"
	"github.com/jonandersen/tradier/internal/keyring"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// passwordReader abstracts terminal password input for testing.
type passwordReader interface {
	ReadPassword() (string, error)
	IsTerminal() bool
}

// terminalReader reads passwords from the terminal using golang.org/x/term.
type terminalReader struct {
	fd int
}

// newTerminalReader creates a reader for the given file descriptor.
func newTerminalReader(fd int) *terminalReader {
	return &terminalReader{fd: fd}
}

func (r *terminalReader) ReadPassword() (string, error) {
	password, err := term.ReadPassword(r.fd)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (r *terminalReader) IsTerminal() bool {
	return term.IsTerminal(r.fd)
}

// accountNumberRegex matches Tradier account numbers such as VA12345678 or
// 6YA05708.
var accountNumberRegex = regexp.MustCompile(`^[A-Za-z0-9]{4,20}$`)

// prompter abstracts interactive menu selection for testing.
type prompter interface {
	SelectOption(options []string) (int, error)
	ReadLine(prompt string) (string, error)
}

// terminalPrompter implements prompter using stdin.
type terminalPrompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

func newTerminalPrompter(r io.Reader, w io.Writer) *terminalPrompter {
	return &terminalPrompter{scanner: bufio.NewScanner(r), writer: w}
}

func (p *terminalPrompter) SelectOption(options []string) (int, error) {
	for {
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("no input")
		}
		input := strings.TrimSpace(p.scanner.Text())
		idx, err := strconv.Atoi(input)
		if err != nil || idx < 1 || idx > len(options) {
			_, _ = fmt.Fprintf(p.writer, "Please enter a number between 1 and %d: ", len(options))
			continue
		}
		return idx - 1, nil // Convert to 0-indexed
	}
}

func (p *terminalPrompter) ReadLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.writer, prompt)
	if !p.scanner.Scan() {
		return "", p.scanner.Err()
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// configureOptions holds dependencies for the configure command.
// This allows for dependency injection in tests.
type configureOptions struct {
	configPath     string
	baseURL        string // overrides the environment's URL when set
	store          keyring.Store
	passwordReader passwordReader
	prompt         prompter
}

// configureFlags holds the flag values of the configure command.
type configureFlags struct {
	account     string
	environment string
}

// newConfigureCmd creates the configure command with the given options.
func newConfigureCmd(opts configureOptions) *cobra.Command {
	var flags configureFlags

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure CLI credentials",
		Long: `Configure the CLI with your Tradier access token and account number.

You will be prompted to enter your access token securely. The token is
kept in the system keyring, never in the config file.
Get a token from: https://dash.tradier.com/settings/api

Sandbox tokens only work with --env sandbox, brokerage tokens with --env live.

Example:
  trd configure
  trd configure --account VA12345678 --env sandbox`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.account, "account", "", "Default account number")
	cmd.Flags().StringVar(&flags.environment, "env", "", "API environment: sandbox or live")

	// Don't show usage info on validation errors - just show the error
	cmd.SilenceUsage = true

	return cmd
}

// reconfigureMenuOptions defines the menu options when already configured.
var reconfigureMenuOptions = []string{
	"Change default account",
	"Configure new access token",
	"View current configuration",
	"Clear access token",
}

func runConfigure(cmd *cobra.Command, opts configureOptions, flags configureFlags) error {
	// Verify we're running in an interactive terminal
	if !opts.passwordReader.IsTerminal() {
		return fmt.Errorf("configure requires an interactive terminal\nRun this command directly in your terminal (not piped or in a script)")
	}

	if flags.account != "" && !accountNumberRegex.MatchString(flags.account) {
		return fmt.Errorf("invalid account number %q", flags.account)
	}
	if flags.environment != "" {
		if _, err := tradier.ParseEnvironment(flags.environment); err != nil {
			return err
		}
	}

	_, err := opts.store.Get(keyring.ServiceName, keyring.KeyAccessToken)
	if err == nil {
		return runReconfigureMenu(cmd, opts, flags)
	}

	return runInitialSetup(cmd, opts, flags)
}

// runReconfigureMenu shows the reconfigure menu when already configured.
func runReconfigureMenu(cmd *cobra.Command, opts configureOptions, flags configureFlags) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "CLI is already configured. What would you like to do?")
	_, _ = fmt.Fprintln(out)

	for i, opt := range reconfigureMenuOptions {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, opt)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, "Select option: ")

	choice, err := opts.prompt.SelectOption(reconfigureMenuOptions)
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}

	switch choice {
	case 0:
		return runSelectAccount(cmd, opts)
	case 1:
		return runInitialSetup(cmd, opts, flags)
	case 2:
		return runViewConfiguration(cmd, opts)
	case 3:
		return runClearToken(cmd, opts)
	default:
		return fmt.Errorf("invalid selection")
	}
}

// loadConfigOrDefault reads the config file, falling back to defaults.
func loadConfigOrDefault(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// fetchProfile validates token against the API by loading the user profile.
func fetchProfile(opts configureOptions, cfg *config.Config, token string) (*tradier.Profile, error) {
	probe := *cfg
	if opts.baseURL != "" {
		probe.BaseURL = opts.baseURL
	}

	client, err := api.NewClientWithToken(&probe, token, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := commandContext()
	defer cancel()

	return client.Accounts.Profile(ctx)
}

// runInitialSetup handles the access token configuration.
func runInitialSetup(cmd *cobra.Command, opts configureOptions, flags configureFlags) error {
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprint(out, "Enter your Tradier access token: ")
	token, err := opts.passwordReader.ReadPassword()
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	_, _ = fmt.Fprintln(out) // Print newline after hidden input

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	cfg := loadConfigOrDefault(opts.configPath)
	if flags.environment != "" {
		cfg.Environment = strings.ToLower(flags.environment)
	}

	account := flags.account
	if account == "" {
		prompt := "Account number: "
		if cfg.AccountID != "" {
			prompt = fmt.Sprintf("Account number [%s]: ", cfg.AccountID)
		}
		account, err = opts.prompt.ReadLine(prompt)
		if err != nil {
			return fmt.Errorf("failed to read account number: %w", err)
		}
		if account == "" {
			account = cfg.AccountID
		}
	}
	if account == "" {
		return fmt.Errorf("account number is required")
	}
	if !accountNumberRegex.MatchString(account) {
		return fmt.Errorf("invalid account number %q", account)
	}
	cfg.AccountID = strings.ToUpper(account)

	profile, err := fetchProfile(opts, cfg, token)
	if err != nil {
		return fmt.Errorf("failed to validate access token: %w", err)
	}

	if !profileHasAccount(profile, cfg.AccountID) && len(profile.Accounts) > 0 {
		_, _ = fmt.Fprintf(out, "Account %s is not on this profile.\n", cfg.AccountID)
		selected, err := promptAccountSelection(cmd, opts, profile, false)
		if err != nil {
			return fmt.Errorf("failed to select account: %w", err)
		}
		cfg.AccountID = selected
	}

	if err := opts.store.Set(keyring.ServiceName, keyring.KeyAccessToken, token); err != nil {
		return fmt.Errorf("failed to store access token in keyring: %w", err)
	}

	if err := config.Save(opts.configPath, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Default account: %s (%s)\n", cfg.AccountID, cfg.Environment)
	_, _ = fmt.Fprintln(out, "Configuration saved successfully!")
	return nil
}

func profileHasAccount(profile *tradier.Profile, account string) bool {
	for _, acc := range profile.Accounts {
		if strings.EqualFold(acc.AccountNumber, account) {
			return true
		}
	}
	return false
}

// promptAccountSelection lists the profile's accounts and returns the chosen
// account number, or "" when the user skips.
func promptAccountSelection(cmd *cobra.Command, opts configureOptions, profile *tradier.Profile, allowSkip bool) (string, error) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Select a default account:")

	options := make([]string, 0, len(profile.Accounts)+1)
	for i, acc := range profile.Accounts {
		optionText := fmt.Sprintf("%s (%s, %s)", acc.AccountNumber, acc.Type, acc.Classification)
		options = append(options, optionText)
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, optionText)
	}
	if allowSkip {
		options = append(options, "Skip")
		_, _ = fmt.Fprintf(out, "  %d. Skip\n", len(options))
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, "Select account: ")

	choice, err := opts.prompt.SelectOption(options)
	if err != nil {
		return "", err
	}

	// If "Skip" was selected
	if choice >= len(profile.Accounts) {
		return "", nil
	}

	return profile.Accounts[choice].AccountNumber, nil
}

// runSelectAccount handles selecting a different default account.
func runSelectAccount(cmd *cobra.Command, opts configureOptions) error {
	token, err := keyring.AccessToken(opts.store)
	if err != nil {
		return err
	}

	cfg := loadConfigOrDefault(opts.configPath)
	if cfg.AccountID == "" {
		// The profile endpoint ignores the account; any placeholder satisfies the client.
		cfg.AccountID = "PROFILE"
	}

	profile, err := fetchProfile(opts, cfg, token)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}
	if len(profile.Accounts) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No accounts found on this profile.")
		return nil
	}

	selected, err := promptAccountSelection(cmd, opts, profile, true)
	if err != nil {
		return fmt.Errorf("failed to select account: %w", err)
	}

	if selected == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No account selected.")
		return nil
	}

	cfg.AccountID = selected
	if err := config.Save(opts.configPath, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default account set to: %s\n", selected)
	return nil
}

// runViewConfiguration displays the current configuration.
func runViewConfiguration(cmd *cobra.Command, opts configureOptions) error {
	cfg := loadConfigOrDefault(opts.configPath)
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Current Configuration:")
	_, _ = fmt.Fprintln(out, "----------------------")

	if _, err := opts.store.Get(keyring.ServiceName, keyring.KeyAccessToken); err == nil {
		_, _ = fmt.Fprintln(out, "Access token: Configured")
	} else {
		_, _ = fmt.Fprintln(out, "Access token: Not configured")
	}

	if cfg.AccountID != "" {
		_, _ = fmt.Fprintf(out, "Default account: %s\n", cfg.AccountID)
	} else {
		_, _ = fmt.Fprintln(out, "Default account: Not set")
	}

	_, _ = fmt.Fprintf(out, "Environment: %s\n", cfg.Environment)
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if env, err := cfg.TradierEnvironment(); err == nil {
			baseURL = env.BaseURL()
		}
	}
	_, _ = fmt.Fprintf(out, "API base URL: %s\n", baseURL)
	_, _ = fmt.Fprintf(out, "Request timeout: %s\n", cfg.Timeout)
	_, _ = fmt.Fprintf(out, "Max attempts: %d\n", cfg.Retry.MaxAttempts)
	_, _ = fmt.Fprintf(out, "Log level: %s\n", cfg.Log.Level)
	_, _ = fmt.Fprintf(out, "Config file: %s\n", opts.configPath)

	return nil
}

// runClearToken removes the stored access token.
func runClearToken(cmd *cobra.Command, opts configureOptions) error {
	if err := opts.store.Delete(keyring.ServiceName, keyring.KeyAccessToken); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Access token cleared successfully.")
	return nil
}

func init() {
	// Create configure command with production dependencies
	configureCmd := newConfigureCmd(configureOptions{
		configPath:     config.ConfigPath(),
		store:          keyring.NewEnvStore(keyring.NewSystemStore()),
		passwordReader: newTerminalReader(int(os.Stdin.Fd())),
		prompt:         newTerminalPrompter(os.Stdin, os.Stdout),
	})
	rootCmd.AddCommand(configureCmd)
}
