package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// newAccountCmd creates the account command with the given options.
func newAccountCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "View account information",
		Long: `View your Tradier profile, balances, positions, orders and activity.

Examples:
  trd account                 # List accounts on your profile
  trd account balances        # Balances of the configured account
  trd account positions       # Open positions
  trd account orders          # Orders placed today
  trd account history         # Recent activity
  trd account gainloss        # Realized gains and losses`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, opts)
		},
	}

	cmd.SilenceUsage = true

	cmd.AddCommand(newProfileCmd(opts))
	cmd.AddCommand(newBalancesCmd(opts))
	cmd.AddCommand(newPositionsCmd(opts))
	cmd.AddCommand(newAccountOrdersCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newGainLossCmd(opts))

	return cmd
}

func newProfileCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "profile",
		Short:        "List the accounts on your profile",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, opts)
		},
	}
}

func runProfile(cmd *cobra.Command, opts *clientOptions) error {
	ctx, cancel := commandContext()
	defer cancel()

	profile, err := opts.client.Accounts.Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(profile.Accounts) == 0 {
		return formatter.Empty("No accounts found")
	}

	headers := []string{"Account", "Type", "Classification", "Option Level", "Status", "Day Trader"}
	rows := make([][]string, 0, len(profile.Accounts))
	for _, acc := range profile.Accounts {
		rows = append(rows, []string{
			acc.AccountNumber,
			acc.Type,
			acc.Classification,
			strconv.Itoa(acc.OptionLevel),
			acc.Status,
			strconv.FormatBool(acc.DayTrader),
		})
	}

	return formatter.Table(headers, rows)
}

func newBalancesCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "balances",
		Short:        "View account balances and buying power",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalances(cmd, opts)
		},
	}
}

func runBalances(cmd *cobra.Command, opts *clientOptions) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := opts.client.Accounts.Balances(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}

	if opts.jsonMode {
		return opts.formatter(cmd).Print(b)
	}

	fields := []output.Field{
		{Label: "Account", Value: b.AccountNumber},
		{Label: "Type", Value: b.AccountType},
		{Label: "Total Equity", Value: output.Money(b.TotalEquity)},
		{Label: "Total Cash", Value: output.Money(b.TotalCash)},
		{Label: "Market Value", Value: output.Money(b.MarketValue)},
		{Label: "Open P/L", Value: tradier.FormatGainLoss(b.OpenPL)},
		{Label: "Closed P/L", Value: tradier.FormatGainLoss(b.ClosePL)},
		{Label: "Pending Orders", Value: strconv.Itoa(b.PendingOrdersCount)},
	}

	switch {
	case b.Margin != nil:
		fields = append(fields,
			output.Field{Label: "Stock Buying Power", Value: output.Money(b.Margin.StockBuyingPower)},
			output.Field{Label: "Option Buying Power", Value: output.Money(b.Margin.OptionBuyingPower)},
		)
	case b.PDT != nil:
		fields = append(fields,
			output.Field{Label: "Stock Buying Power", Value: output.Money(b.PDT.StockBuyingPower)},
			output.Field{Label: "Option Buying Power", Value: output.Money(b.PDT.OptionBuyingPower)},
		)
	case b.Cash != nil:
		fields = append(fields,
			output.Field{Label: "Cash Available", Value: output.Money(b.Cash.CashAvailable)},
			output.Field{Label: "Unsettled Funds", Value: output.Money(b.Cash.UnsettledFunds)},
		)
	}

	return opts.formatter(cmd).Detail(fields)
}

func newPositionsCmd(opts *clientOptions) *cobra.Command {
	var filter tradier.PositionFilter

	cmd := &cobra.Command{
		Use:   "positions [SYMBOL...]",
		Short: "View open positions",
		Long: `View open positions, optionally limited to the given symbols.

Examples:
  trd account positions
  trd account positions AAPL MSFT
  trd account positions --options`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Symbols = args
			return runPositions(cmd, opts, filter)
		},
	}

	cmd.Flags().BoolVar(&filter.EquitiesOnly, "equities", false, "Only show equity positions")
	cmd.Flags().BoolVar(&filter.OptionsOnly, "options", false, "Only show option positions")

	return cmd
}

func runPositions(cmd *cobra.Command, opts *clientOptions, filter tradier.PositionFilter) error {
	ctx, cancel := commandContext()
	defer cancel()

	positions, err := opts.client.Accounts.Positions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(positions) == 0 {
		return formatter.Empty("No positions")
	}

	headers := []string{"Symbol", "Qty", "Cost Basis", "Cost/Share", "Acquired"}
	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		perShare := "-"
		if !p.Quantity.IsZero() {
			perShare = output.Money(p.CostBasis.Div(p.Quantity))
		}
		rows = append(rows, []string{
			p.Symbol,
			p.Quantity.String(),
			output.Money(p.CostBasis),
			perShare,
			shortDate(p.DateAcquired),
		})
	}

	return formatter.Table(headers, rows)
}

func newAccountOrdersCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "orders",
		Short:        "List orders on the account",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderList(cmd, opts)
		},
	}
}

func newHistoryCmd(opts *clientOptions) *cobra.Command {
	var (
		params     tradier.HistoryParams
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "View account activity",
		Long: `View account activity such as trades, dividends and transfers.

Examples:
  trd account history
  trd account history --type trade --limit 50
  trd account history --start 2024-01-01 --end 2024-03-31 --symbol AAPL`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if params.Start, err = parseOptionalDate("start", start); err != nil {
				return err
			}
			if params.End, err = parseOptionalDate("end", end); err != nil {
				return err
			}
			return runHistory(cmd, opts, params)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "Maximum number of events")
	cmd.Flags().StringVar(&params.Type, "type", "", "Activity type: "+strings.Join(tradier.ActivityTypes, ", "))
	cmd.Flags().StringVar(&params.Symbol, "symbol", "", "Only events for this symbol")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *clientOptions, params tradier.HistoryParams) error {
	ctx, cancel := commandContext()
	defer cancel()

	events, err := opts.client.Accounts.History(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(events) == 0 {
		return formatter.Empty("No activity")
	}

	headers := []string{"Date", "Type", "Amount", "Description"}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			shortDate(e.Date),
			e.Type,
			tradier.FormatGainLoss(e.Amount),
			eventDescription(e),
		})
	}

	return formatter.Table(headers, rows)
}

func eventDescription(e tradier.HistoryEvent) string {
	switch {
	case e.Trade != nil:
		return e.Trade.Description
	case e.Option != nil:
		return e.Option.Description
	case e.Journal != nil:
		return e.Journal.Description
	default:
		return ""
	}
}

func newGainLossCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "gainloss",
		Short:        "View realized gains and losses",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGainLoss(cmd, opts)
		},
	}
}

func runGainLoss(cmd *cobra.Command, opts *clientOptions) error {
	ctx, cancel := commandContext()
	defer cancel()

	closed, err := opts.client.Accounts.GainLoss(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gain/loss: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(closed) == 0 {
		return formatter.Empty("No closed positions")
	}

	headers := []string{"Symbol", "Qty", "Cost", "Proceeds", "Gain/Loss", "%", "Opened", "Closed"}
	rows := make([][]string, 0, len(closed))
	for _, c := range closed {
		rows = append(rows, []string{
			c.Symbol,
			c.Quantity.String(),
			output.Money(c.Cost),
			output.Money(c.Proceeds),
			tradier.FormatGainLoss(c.GainLoss),
			output.Percent(c.GainLossPercent),
			shortDate(c.OpenDate),
			shortDate(c.CloseDate),
		})
	}

	return formatter.Table(headers, rows)
}

// shortDate trims an API timestamp to its date.
func shortDate(s string) string {
	if len(s) >= len(tradier.DateLayout) {
		return s[:len(tradier.DateLayout)]
	}
	return s
}

func parseOptionalDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := tradier.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q (use YYYY-MM-DD)", flag, value)
	}
	return t, nil
}

func init() {
	opts := &clientOptions{}
	accountCmd := newAccountCmd(opts)
	attachClient(accountCmd, opts)
	rootCmd.AddCommand(accountCmd)
}
