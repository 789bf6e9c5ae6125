package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// newQuoteCmd creates the quote command with the given options.
func newQuoteCmd(opts *clientOptions) *cobra.Command {
	var greeks bool

	cmd := &cobra.Command{
		Use:   "quote SYMBOL [SYMBOL...]",
		Short: "Get quotes",
		Long: `Get quotes for one or more stock, ETF, index or option symbols.

Examples:
  trd quote AAPL                       # Quote for Apple
  trd quote AAPL GOOGL MSFT            # Several symbols
  trd quote SPY240119C00470000 --greeks  # Option quote with greeks
  trd quote AAPL --json                # Output in JSON format`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, opts, args, greeks)
		},
	}

	cmd.Flags().BoolVar(&greeks, "greeks", false, "Include greeks for option symbols")
	cmd.SilenceUsage = true

	return cmd
}

func runQuote(cmd *cobra.Command, opts *clientOptions, symbols []string, greeks bool) error {
	ctx, cancel := commandContext()
	defer cancel()

	set, err := opts.client.Market.Quotes(ctx, symbols, greeks)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}

	formatter := opts.formatter(cmd)
	if opts.jsonMode {
		return formatter.Print(set)
	}

	if len(set.Quotes) == 0 && len(set.Unmatched) == 0 {
		return formatter.Empty("No quotes returned")
	}

	headers := []string{"Symbol", "Last", "Change", "Bid", "Ask", "Volume"}
	rows := make([][]string, 0, len(set.Quotes)+len(set.Unmatched))
	for _, q := range set.Quotes {
		rows = append(rows, []string{
			q.Symbol,
			tradier.FormatPrice(q.Last),
			fmt.Sprintf("%s (%s)", tradier.FormatGainLoss(q.Change), output.Percent(q.ChangePercentage)),
			tradier.FormatPrice(q.Bid),
			tradier.FormatPrice(q.Ask),
			tradier.FormatVolume(q.Volume),
		})
	}
	for _, sym := range set.Unmatched {
		rows = append(rows, []string{sym, "not found", "-", "-", "-", "-"})
	}

	return formatter.Table(headers, rows)
}

func init() {
	opts := &clientOptions{}
	quoteCmd := newQuoteCmd(opts)
	attachClient(quoteCmd, opts)
	rootCmd.AddCommand(quoteCmd)
}
