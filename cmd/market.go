package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// newMarketCmd creates the market command with the given options.
func newMarketCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market status, calendar, price history and symbol search",
		Long: `View the market clock and calendar, historical and intraday prices,
and search for symbols.

Examples:
  trd market clock                          # Is the market open?
  trd market calendar --month 12            # Trading days this December
  trd market history AAPL --start 2024-01-01
  trd market timesales SPY --interval 5
  trd market lookup goo                     # Symbols starting with GOO
  trd market search "alphabet"              # Company name search
  trd market prev-day                       # Previous trading day`,
	}

	cmd.AddCommand(newClockCmd(opts))
	cmd.AddCommand(newCalendarCmd(opts))
	cmd.AddCommand(newMarketHistoryCmd(opts))
	cmd.AddCommand(newTimeSalesCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newPrevDayCmd(opts))

	return cmd
}

func newClockCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "clock",
		Short:        "Show the current market state",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			clock, err := opts.client.Market.Clock(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch market clock: %w", err)
			}

			if opts.jsonMode {
				return opts.formatter(cmd).Print(clock)
			}
			return opts.formatter(cmd).Detail([]output.Field{
				{Label: "Date", Value: clock.Date},
				{Label: "State", Value: clock.State},
				{Label: "Description", Value: clock.Description},
				{Label: "Next State", Value: clock.NextState},
				{Label: "Next Change", Value: clock.NextChange},
			})
		},
	}
}

func newCalendarCmd(opts *clientOptions) *cobra.Command {
	var month, year int

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the market calendar for a month",
		Long: `Show open and closed days with session hours for one month.

Examples:
  trd market calendar                     # Current month
  trd market calendar --month 7 --year 2024`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}
			return runCalendar(cmd, opts, time.Month(month), year)
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "Month (1-12, default current)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (default current)")

	return cmd
}

func runCalendar(cmd *cobra.Command, opts *clientOptions, month time.Month, year int) error {
	ctx, cancel := commandContext()
	defer cancel()

	days, err := opts.client.Market.Calendar(ctx, month, year)
	if err != nil {
		return fmt.Errorf("failed to fetch market calendar: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(days) == 0 {
		return formatter.Empty(fmt.Sprintf("No calendar for %s %d", month, year))
	}

	headers := []string{"Date", "Status", "Open", "Premarket", "Postmarket", "Description"}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			d.Status,
			sessionHours(d.Open),
			sessionHours(d.Premarket),
			sessionHours(d.Postmarket),
			d.Description,
		})
	}

	return formatter.Table(headers, rows)
}

func sessionHours(s *tradier.Session) string {
	if s == nil || s.Start == "" {
		return "-"
	}
	return s.Start + "-" + s.End
}

func newMarketHistoryCmd(opts *clientOptions) *cobra.Command {
	var (
		req        tradier.HistoryRequest
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Show daily, weekly or monthly price history",
		Long: `Show historical OHLCV bars for a symbol.

Examples:
  trd market history AAPL
  trd market history AAPL --interval weekly --start 2023-01-01 --end 2023-12-31`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Symbol = args[0]
			var err error
			if req.Start, err = parseOptionalDate("start", start); err != nil {
				return err
			}
			if req.End, err = parseOptionalDate("end", end); err != nil {
				return err
			}
			return runMarketHistory(cmd, opts, req)
		},
	}

	cmd.Flags().StringVarP(&req.Interval, "interval", "i", "daily", "Bar size: daily, weekly or monthly")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.SessionFilter, "session", "all", "Session filter: all or open")

	return cmd
}

func runMarketHistory(cmd *cobra.Command, opts *clientOptions, req tradier.HistoryRequest) error {
	ctx, cancel := commandContext()
	defer cancel()

	bars, err := opts.client.Market.History(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch price history: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(bars) == 0 {
		return formatter.Empty(fmt.Sprintf("No price history for %s", strings.ToUpper(req.Symbol)))
	}

	headers := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	rows := make([][]string, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []string{
			b.Date,
			tradier.FormatPrice(b.Open),
			tradier.FormatPrice(b.High),
			tradier.FormatPrice(b.Low),
			tradier.FormatPrice(b.Close),
			tradier.FormatVolume(b.Volume),
		})
	}

	return formatter.Table(headers, rows)
}

func newTimeSalesCmd(opts *clientOptions) *cobra.Command {
	var (
		req        tradier.TimeSalesRequest
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "timesales SYMBOL",
		Short: "Show intraday time and sales",
		Long: `Show intraday bars for a symbol. Only the last 20 days or so are available.

Times are given as "YYYY-MM-DD HH:MM" in exchange local time.

Examples:
  trd market timesales SPY
  trd market timesales SPY --interval 15 --start "2024-01-16 09:30" --end "2024-01-16 12:00"`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Symbol = args[0]
			var err error
			if req.Start, err = parseOptionalDateTime("start", start); err != nil {
				return err
			}
			if req.End, err = parseOptionalDateTime("end", end); err != nil {
				return err
			}
			return runTimeSales(cmd, opts, req)
		},
	}

	cmd.Flags().IntVarP(&req.Interval, "interval", "i", 1, "Bar size in minutes: 1, 5 or 15")
	cmd.Flags().StringVar(&start, "start", "", `Start time ("YYYY-MM-DD HH:MM")`)
	cmd.Flags().StringVar(&end, "end", "", `End time ("YYYY-MM-DD HH:MM")`)
	cmd.Flags().StringVar(&req.SessionFilter, "session", "open", "Session filter: all or open")

	return cmd
}

func parseOptionalDateTime(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(tradier.DateTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf(`invalid --%s time %q (use "YYYY-MM-DD HH:MM")`, flag, value)
	}
	return t, nil
}

func runTimeSales(cmd *cobra.Command, opts *clientOptions, req tradier.TimeSalesRequest) error {
	ctx, cancel := commandContext()
	defer cancel()

	sales, err := opts.client.Market.TimeSales(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch time and sales: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(sales) == 0 {
		return formatter.Empty(fmt.Sprintf("No time and sales for %s", strings.ToUpper(req.Symbol)))
	}

	headers := []string{"Time", "Open", "High", "Low", "Close", "VWAP", "Volume"}
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []string{
			s.Time,
			tradier.FormatPrice(s.Open),
			tradier.FormatPrice(s.High),
			tradier.FormatPrice(s.Low),
			tradier.FormatPrice(s.Close),
			tradier.FormatPrice(s.VWAP),
			tradier.FormatVolume(s.Volume),
		})
	}

	return formatter.Table(headers, rows)
}

func newLookupCmd(opts *clientOptions) *cobra.Command {
	var req tradier.LookupRequest

	cmd := &cobra.Command{
		Use:   "lookup [PREFIX]",
		Short: "Find symbols by prefix",
		Long: `Find securities whose symbol starts with PREFIX.

Examples:
  trd market lookup goo
  trd market lookup sp --types etf,index
  trd market lookup --exchanges Q --types stock`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Query = args[0]
			}
			ctx, cancel := commandContext()
			defer cancel()

			securities, err := opts.client.Market.Lookup(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to look up symbols: %w", err)
			}
			return printSecurities(cmd, opts, securities)
		},
	}

	cmd.Flags().StringSliceVar(&req.Types, "types", nil, "Security types: "+strings.Join(tradier.SecurityTypes, ", "))
	cmd.Flags().StringSliceVar(&req.Exchanges, "exchanges", nil, "Exchange codes")

	return cmd
}

func newSearchCmd(opts *clientOptions) *cobra.Command {
	var indexes bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find symbols by company name",
		Long: `Search securities by company name or description.

Examples:
  trd market search alphabet
  trd market search "s&p 500" --indexes`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			securities, err := opts.client.Market.Search(ctx, strings.Join(args, " "), indexes)
			if err != nil {
				return fmt.Errorf("failed to search symbols: %w", err)
			}
			return printSecurities(cmd, opts, securities)
		},
	}

	cmd.Flags().BoolVar(&indexes, "indexes", false, "Include indexes in results")

	return cmd
}

func printSecurities(cmd *cobra.Command, opts *clientOptions, securities []tradier.Security) error {
	formatter := opts.formatter(cmd)
	if len(securities) == 0 {
		return formatter.Empty("No matching symbols")
	}

	headers := []string{"Symbol", "Type", "Exchange", "Description"}
	rows := make([][]string, 0, len(securities))
	for _, s := range securities {
		rows = append(rows, []string{s.Symbol, s.Type, s.Exchange, s.Description})
	}
	return formatter.Table(headers, rows)
}

func newPrevDayCmd(opts *clientOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "prev-day",
		Short: "Show the previous trading day",
		Long: `Show the last day the market was open before today, or before --date.

Examples:
  trd market prev-day
  trd market prev-day --date 2024-07-05`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseOptionalDate("date", date)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			day, err := opts.client.Market.PreviousTradingDay(ctx, from)
			if err != nil {
				return fmt.Errorf("failed to find previous trading day: %w", err)
			}

			if opts.jsonMode {
				return opts.formatter(cmd).Print(map[string]string{"date": tradier.FormatDate(day)})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", tradier.FormatDate(day), day.Weekday())
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Reference date (YYYY-MM-DD, default today)")

	return cmd
}

func init() {
	opts := &clientOptions{}
	marketCmd := newMarketCmd(opts)
	attachClient(marketCmd, opts)
	rootCmd.AddCommand(marketCmd)
}
