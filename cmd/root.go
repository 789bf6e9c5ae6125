package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/api"
	"github.com/jonandersen/tradier/internal/config"
	"github.com/jonandersen/tradier/internal/keyring"
	"github.com/jonandersen/tradier/internal/logging"
	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

var Version = "dev"

// jsonOutput controls whether output is formatted as JSON
var jsonOutput bool

// commandTimeout bounds a whole command, retries included.
const commandTimeout = 60 * time.Second

// closeLog releases the log file opened by loadClient.
var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:     "trd",
	Short:   "Tradier Brokerage CLI",
	Long:    `A CLI for trading stocks and options and reading market data via the Tradier API.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
}

// GetJSONMode returns whether JSON output mode is enabled.
func GetJSONMode() bool {
	return jsonOutput
}

func Execute() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// clientOptions carries the API client into a command. Commands built with
// a nil client load one lazily from config and keyring.
type clientOptions struct {
	client   *tradier.Client
	jsonMode bool
}

func (o *clientOptions) formatter(cmd *cobra.Command) *output.Formatter {
	return output.New(cmd.OutOrStdout(), o.jsonMode)
}

// attachClient installs a PersistentPreRunE on cmd that fills opts from the
// user's configuration. A client already present in opts is kept.
func attachClient(cmd *cobra.Command, opts *clientOptions) {
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.client != nil {
			return nil
		}
		client, err := loadClient(cmd)
		if err != nil {
			return err
		}
		opts.client = client
		opts.jsonMode = GetJSONMode()
		return nil
	}
}

// loadClient reads .env files, the config file and environment overrides,
// sets up logging and returns a client authenticated with the stored token.
func loadClient(cmd *cobra.Command) (*tradier.Client, error) {
	if _, err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()

	logger, closeFn, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	closeLog = closeFn

	store := keyring.NewEnvStore(keyring.NewSystemStore())
	return api.NewClient(cfg, store, logger)
}

// commandContext returns a context cancelled on interrupt or after
// commandTimeout.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
