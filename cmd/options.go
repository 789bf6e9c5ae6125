package cmd

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// chainFilter holds filtering options for the option chain.
type chainFilter struct {
	callsOnly bool
	putsOnly  bool
	minStrike decimal.Decimal
	maxStrike decimal.Decimal
	strikes   int   // number of strikes around ATM (0 = all)
	minOI     int64 // minimum open interest
	minVolume int64 // minimum volume
}

func (f chainFilter) hasRangeFilter() bool {
	return f.minStrike.IsPositive() || f.maxStrike.IsPositive() || f.minOI > 0 || f.minVolume > 0
}

// filterOptions drops contracts outside the strike range or below the
// open interest and volume floors.
func filterOptions(contracts []tradier.Quote, filter chainFilter) []tradier.Quote {
	filtered := make([]tradier.Quote, 0, len(contracts))
	for _, c := range contracts {
		if filter.minStrike.IsPositive() && c.Strike.LessThan(filter.minStrike) {
			continue
		}
		if filter.maxStrike.IsPositive() && c.Strike.GreaterThan(filter.maxStrike) {
			continue
		}
		if c.OpenInterest < filter.minOI {
			continue
		}
		if c.Volume < filter.minVolume {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// filterStrikesAroundATM keeps n contracts centered on the strike closest
// to underlyingPrice. contracts must be sorted by strike.
func filterStrikesAroundATM(contracts []tradier.Quote, n int, underlyingPrice decimal.Decimal) []tradier.Quote {
	if len(contracts) == 0 || n <= 0 || n >= len(contracts) {
		return contracts
	}

	closestIdx := 0
	closestDiff := contracts[0].Strike.Sub(underlyingPrice).Abs()
	for i, c := range contracts[1:] {
		diff := c.Strike.Sub(underlyingPrice).Abs()
		if diff.LessThan(closestDiff) {
			closestDiff = diff
			closestIdx = i + 1
		}
	}

	// Take n/2 below and n/2 above ATM, one more above if n is odd
	startIdx := closestIdx - n/2
	endIdx := startIdx + n

	if startIdx < 0 {
		startIdx, endIdx = 0, n
	}
	if endIdx > len(contracts) {
		startIdx, endIdx = len(contracts)-n, len(contracts)
	}

	return contracts[startIdx:endIdx]
}

// splitChain separates calls from puts, each sorted by strike.
func splitChain(chain []tradier.Quote) (calls, puts []tradier.Quote) {
	for _, c := range chain {
		switch strings.ToLower(c.OptionType) {
		case "call":
			calls = append(calls, c)
		case "put":
			puts = append(puts, c)
		}
	}
	byStrike := func(s []tradier.Quote) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Strike.LessThan(s[j].Strike) })
	}
	byStrike(calls)
	byStrike(puts)
	return calls, puts
}

// newOptionsCmd creates the options command with the given options.
func newOptionsCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Option chains, expirations and multileg orders",
		Long: `View option expirations, strikes and chains, resolve option symbols
and place multileg option orders.

Examples:
  trd options expirations AAPL                     # List expiration dates
  trd options chain AAPL --expiration 2025-01-17   # Show chain for a date
  trd options strikes AAPL --expiration 2025-01-17 # Strike prices only
  trd options symbol AAPL 2025-01-17 175 call      # OCC symbol of one contract`,
	}

	cmd.AddCommand(newOptionsExpirationsCmd(opts))
	cmd.AddCommand(newOptionsChainCmd(opts))
	cmd.AddCommand(newOptionsStrikesCmd(opts))
	cmd.AddCommand(newOptionsSymbolCmd(opts))
	cmd.AddCommand(newOptionsMultilegCmd(opts))

	return cmd
}

// newOptionsExpirationsCmd creates the options expirations command.
func newOptionsExpirationsCmd(opts *clientOptions) *cobra.Command {
	var allRoots bool

	cmd := &cobra.Command{
		Use:   "expirations SYMBOL",
		Short: "List option expiration dates",
		Long: `List available option expiration dates for an underlying symbol.

Examples:
  trd options expirations AAPL        # List expiration dates
  trd options expirations SPX --all-roots
  trd options expirations AAPL --json # Output in JSON format`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptionsExpirations(cmd, opts, args[0], allRoots)
		},
	}

	cmd.Flags().BoolVar(&allRoots, "all-roots", false, "Include non-standard option roots (e.g. SPXW)")
	cmd.SilenceUsage = true

	return cmd
}

func runOptionsExpirations(cmd *cobra.Command, opts *clientOptions, symbol string, allRoots bool) error {
	ctx, cancel := commandContext()
	defer cancel()

	expirations, err := opts.client.Options.Expirations(ctx, symbol, allRoots)
	if err != nil {
		return fmt.Errorf("failed to fetch expirations: %w", err)
	}

	formatter := opts.formatter(cmd)
	if len(expirations) == 0 {
		return formatter.Empty(fmt.Sprintf("No option expirations found for %s", strings.ToUpper(symbol)))
	}

	headers := []string{"Expiration", "Type", "Contract Size", "Strikes"}
	rows := make([][]string, 0, len(expirations))
	for _, e := range expirations {
		rows = append(rows, []string{
			e.Date,
			e.ExpirationType,
			fmt.Sprintf("%d", e.ContractSize),
			strikeRange(e.Strikes.Strike),
		})
	}

	return formatter.Table(headers, rows)
}

// strikeRange summarises strikes as "count (low - high)".
func strikeRange(strikes []decimal.Decimal) string {
	if len(strikes) == 0 {
		return "-"
	}
	low, high := decimal.Min(strikes[0], strikes...), decimal.Max(strikes[0], strikes...)
	return fmt.Sprintf("%d (%s - %s)", len(strikes), tradier.FormatPrice(low), tradier.FormatPrice(high))
}

// chainFlags holds the raw flag values of the chain command.
type chainFlags struct {
	expiration string
	greeks     bool
	minStrike  string
	maxStrike  string
	filter     chainFilter
}

// newOptionsChainCmd creates the options chain command.
func newOptionsChainCmd(opts *clientOptions) *cobra.Command {
	var flags chainFlags

	cmd := &cobra.Command{
		Use:   "chain SYMBOL",
		Short: "Display option chain",
		Long: `Display the option chain for an underlying symbol and expiration date.

Examples:
  trd options chain AAPL --expiration 2025-01-17                 # Show chain for date
  trd options chain AAPL -e 2025-01-17 --calls --strikes 10      # 10 calls around the money
  trd options chain AAPL -e 2025-01-17 --min-strike 150 --max-strike 200
  trd options chain AAPL -e 2025-01-17 --min-oi 100 --greeks
  trd options chain AAPL --expiration 2025-01-17 --json          # Output in JSON format`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.expiration == "" {
				return fmt.Errorf("expiration date is required (use --expiration flag)")
			}
			if flags.filter.callsOnly && flags.filter.putsOnly {
				return fmt.Errorf("--calls and --puts cannot be used together")
			}
			var err error
			if flags.filter.minStrike, err = parseDecimalFlag("minimum strike", flags.minStrike); err != nil {
				return err
			}
			if flags.filter.maxStrike, err = parseDecimalFlag("maximum strike", flags.maxStrike); err != nil {
				return err
			}
			return runOptionsChain(cmd, opts, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.expiration, "expiration", "e", "", "Expiration date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flags.greeks, "greeks", false, "Include greeks and implied volatility")
	cmd.Flags().BoolVar(&flags.filter.callsOnly, "calls", false, "Show only calls")
	cmd.Flags().BoolVar(&flags.filter.putsOnly, "puts", false, "Show only puts")
	cmd.Flags().StringVar(&flags.minStrike, "min-strike", "", "Minimum strike price")
	cmd.Flags().StringVar(&flags.maxStrike, "max-strike", "", "Maximum strike price")
	cmd.Flags().IntVar(&flags.filter.strikes, "strikes", 0, "Number of strikes around the money")
	cmd.Flags().Int64Var(&flags.filter.minOI, "min-oi", 0, "Minimum open interest")
	cmd.Flags().Int64Var(&flags.filter.minVolume, "min-volume", 0, "Minimum volume")
	cmd.SilenceUsage = true

	return cmd
}

func runOptionsChain(cmd *cobra.Command, opts *clientOptions, symbol string, flags chainFlags) error {
	expiration, err := tradier.ParseDate(flags.expiration)
	if err != nil {
		return fmt.Errorf("invalid expiration date %q (use YYYY-MM-DD)", flags.expiration)
	}
	symbol = strings.ToUpper(symbol)
	filter := flags.filter

	ctx, cancel := commandContext()
	defer cancel()

	chain, err := opts.client.Options.Chain(ctx, symbol, expiration, flags.greeks)
	if err != nil {
		return fmt.Errorf("failed to fetch option chain: %w", err)
	}

	calls, puts := splitChain(chain)

	if filter.hasRangeFilter() {
		calls = filterOptions(calls, filter)
		puts = filterOptions(puts, filter)
	}

	if filter.strikes > 0 {
		underlyingPrice, err := opts.client.Market.LastPrice(ctx, symbol)
		if err != nil {
			return fmt.Errorf("failed to get underlying price for ATM filtering: %w", err)
		}
		calls = filterStrikesAroundATM(calls, filter.strikes, underlyingPrice)
		puts = filterStrikesAroundATM(puts, filter.strikes, underlyingPrice)
	}

	if filter.callsOnly {
		puts = nil
	}
	if filter.putsOnly {
		calls = nil
	}

	formatter := opts.formatter(cmd)
	if opts.jsonMode {
		return formatter.Print(struct {
			Symbol     string          `json:"symbol"`
			Expiration string          `json:"expiration"`
			Calls      []tradier.Quote `json:"calls"`
			Puts       []tradier.Quote `json:"puts"`
		}{symbol, flags.expiration, nonNilQuotes(calls), nonNilQuotes(puts)})
	}

	if len(calls) == 0 && len(puts) == 0 {
		return formatter.Empty(fmt.Sprintf("No options available for %s expiring %s", symbol, flags.expiration))
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Option Chain for %s - Expiration: %s\n\n", symbol, flags.expiration)

	for _, side := range []struct {
		title     string
		contracts []tradier.Quote
	}{{"CALLS", calls}, {"PUTS", puts}} {
		if len(side.contracts) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(out, side.title)
		if err := formatter.Table(chainHeaders(flags.greeks), chainRows(side.contracts, flags.greeks)); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

func chainHeaders(greeks bool) []string {
	headers := []string{"Symbol", "Strike", "Bid", "Ask", "Last", "Volume", "OI"}
	if greeks {
		headers = append(headers, "Delta", "Theta", "IV")
	}
	return headers
}

func chainRows(contracts []tradier.Quote, greeks bool) [][]string {
	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		row := []string{
			c.Symbol,
			tradier.FormatPrice(c.Strike),
			tradier.FormatPrice(c.Bid),
			tradier.FormatPrice(c.Ask),
			tradier.FormatPrice(c.Last),
			tradier.FormatVolume(c.Volume),
			tradier.FormatVolume(c.OpenInterest),
		}
		if greeks {
			if g := c.Greeks; g != nil {
				row = append(row, g.Delta.StringFixed(3), g.Theta.StringFixed(3), output.Percent(g.MidIV.Shift(2)))
			} else {
				row = append(row, "-", "-", "-")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func nonNilQuotes(q []tradier.Quote) []tradier.Quote {
	if q == nil {
		return []tradier.Quote{}
	}
	return q
}

// newOptionsStrikesCmd creates the options strikes command.
func newOptionsStrikesCmd(opts *clientOptions) *cobra.Command {
	var expiration string

	cmd := &cobra.Command{
		Use:   "strikes SYMBOL",
		Short: "List strike prices for an expiration",
		Long: `List the strike prices available for one expiration.

Examples:
  trd options strikes AAPL --expiration 2025-01-17`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if expiration == "" {
				return fmt.Errorf("expiration date is required (use --expiration flag)")
			}
			exp, err := tradier.ParseDate(expiration)
			if err != nil {
				return fmt.Errorf("invalid expiration date %q (use YYYY-MM-DD)", expiration)
			}
			return runOptionsStrikes(cmd, opts, args[0], exp)
		},
	}

	cmd.Flags().StringVarP(&expiration, "expiration", "e", "", "Expiration date (YYYY-MM-DD)")
	cmd.SilenceUsage = true

	return cmd
}

func runOptionsStrikes(cmd *cobra.Command, opts *clientOptions, symbol string, expiration time.Time) error {
	ctx, cancel := commandContext()
	defer cancel()

	strikes, err := opts.client.Options.Strikes(ctx, symbol, expiration)
	if err != nil {
		return fmt.Errorf("failed to fetch strikes: %w", err)
	}

	formatter := opts.formatter(cmd)
	if opts.jsonMode {
		if strikes == nil {
			strikes = []decimal.Decimal{}
		}
		return formatter.Print(strikes)
	}
	if len(strikes) == 0 {
		return formatter.Empty("No strikes found")
	}

	rows := make([][]string, 0, len(strikes))
	for _, s := range strikes {
		rows = append(rows, []string{tradier.FormatPrice(s)})
	}
	return formatter.Table([]string{"Strike"}, rows)
}

// newOptionsSymbolCmd creates the options symbol command.
func newOptionsSymbolCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "symbol UNDERLYING EXPIRATION STRIKE call|put",
		Short: "Resolve the OCC symbol of a contract",
		Long: `Look up the OCC option symbol for an underlying, expiration, strike and type.

Examples:
  trd options symbol AAPL 2025-01-17 175 call
  trd options symbol SPY 2025-01-17 470.5 put`,
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := tradier.ParseDate(args[1])
			if err != nil {
				return fmt.Errorf("invalid expiration date %q (use YYYY-MM-DD)", args[1])
			}
			strike, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid strike %q", args[2])
			}

			ctx, cancel := commandContext()
			defer cancel()

			symbol, err := opts.client.Options.Symbol(ctx, args[0], exp, strike, args[3])
			if err != nil {
				return fmt.Errorf("failed to resolve option symbol: %w", err)
			}

			if opts.jsonMode {
				return opts.formatter(cmd).Print(map[string]string{"symbol": symbol})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), symbol)
			return nil
		},
	}
}

// multilegParams holds the flags of a multileg order.
type multilegParams struct {
	legs      []string
	orderType string
	price     string
	duration  string
	tag       string
	preview   bool
	yes       bool
}

// newOptionsMultilegCmd creates the options multileg command.
func newOptionsMultilegCmd(opts *clientOptions) *cobra.Command {
	var params multilegParams

	cmd := &cobra.Command{
		Use:   "multileg UNDERLYING",
		Short: "Place a multileg option order",
		Long: `Place a spread or other multileg option order on one underlying.

Each --leg is "SIDE OPTION_SYMBOL [QUANTITY]", where SIDE is one of:
  ` + strings.Join(tradier.OptionSides, ", ") + `

The order type is one of ` + strings.Join(tradier.MultilegTypes, ", ") + `.
Debit and credit orders require --price.

Examples:
  # Bull call spread
  trd options multileg AAPL --type debit --price 2.10 \
    --leg "buy_to_open AAPL250117C00175000" \
    --leg "sell_to_open AAPL250117C00180000" --yes

  # Preview an iron condor
  trd options multileg SPY --type credit --price 1.05 --preview \
    --leg "sell_to_open SPY250117P00460000" --leg "buy_to_open SPY250117P00455000" \
    --leg "sell_to_open SPY250117C00490000" --leg "buy_to_open SPY250117C00495000"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMultileg(cmd, opts, args[0], params)
		},
	}

	cmd.Flags().StringArrayVar(&params.legs, "leg", nil, `Leg as "SIDE OPTION_SYMBOL [QUANTITY]" (repeatable)`)
	cmd.Flags().StringVarP(&params.orderType, "type", "t", "market", "Order type: "+strings.Join(tradier.MultilegTypes, ", "))
	cmd.Flags().StringVarP(&params.price, "price", "p", "", "Net debit or credit price")
	cmd.Flags().StringVarP(&params.duration, "duration", "d", "day", "Time in force: day or gtc")
	cmd.Flags().StringVar(&params.tag, "tag", "", "Order tag (generated when empty)")
	cmd.Flags().BoolVar(&params.preview, "preview", false, "Preview cost without placing the order")
	cmd.Flags().BoolVarP(&params.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.SilenceUsage = true

	return cmd
}

// parseLeg parses a leg string in format "SIDE OPTION_SYMBOL [QUANTITY]".
// Example: "buy_to_open AAPL250117C00175000" or "sell_to_open AAPL250117C00180000 2"
func parseLeg(legStr string) (tradier.Leg, error) {
	parts := strings.Fields(legStr)
	if len(parts) < 2 || len(parts) > 3 {
		return tradier.Leg{}, fmt.Errorf("invalid leg format: expected 'SIDE OPTION_SYMBOL [QUANTITY]', got %q", legStr)
	}

	side := strings.ToLower(parts[0])
	if !slices.Contains(tradier.OptionSides, side) {
		return tradier.Leg{}, fmt.Errorf("invalid side %q: must be one of %s", parts[0], strings.Join(tradier.OptionSides, ", "))
	}

	symbol := strings.ToUpper(parts[1])
	if _, err := occRoot(symbol); err != nil {
		return tradier.Leg{}, err
	}

	qty := decimal.NewFromInt(1)
	if len(parts) == 3 {
		var err error
		qty, err = decimal.NewFromString(parts[2])
		if err != nil || !qty.IsPositive() || !qty.IsInteger() {
			return tradier.Leg{}, fmt.Errorf("invalid quantity %q: must be a positive whole number", parts[2])
		}
	}

	return tradier.Leg{OptionSymbol: symbol, Side: side, Quantity: qty}, nil
}

func runMultileg(cmd *cobra.Command, opts *clientOptions, underlying string, params multilegParams) error {
	if len(params.legs) < 2 {
		return fmt.Errorf("at least two --leg flags are required")
	}

	legs := make([]tradier.Leg, 0, len(params.legs))
	for _, raw := range params.legs {
		leg, err := parseLeg(raw)
		if err != nil {
			return err
		}
		legs = append(legs, leg)
	}

	price, err := parseDecimalFlag("price", params.price)
	if err != nil {
		return err
	}
	tag := params.tag
	if tag == "" {
		tag = uuid.NewString()
	}

	if !params.preview && !params.yes {
		return fmt.Errorf("order requires confirmation (use --yes to confirm or --preview to check cost)")
	}

	ctx, cancel := commandContext()
	defer cancel()

	conf, err := opts.client.Orders.PlaceMultileg(ctx, tradier.MultilegOrder{
		Underlying: underlying,
		Type:       params.orderType,
		Duration:   params.duration,
		Price:      price,
		Legs:       legs,
		Tag:        tag,
		Preview:    params.preview,
	})
	if err != nil {
		return fmt.Errorf("failed to place multileg order: %w", err)
	}

	return printConfirmation(cmd, opts, conf, params.preview)
}

func init() {
	opts := &clientOptions{}
	optionsCmd := newOptionsCmd(opts)
	attachClient(optionsCmd, opts)
	rootCmd.AddCommand(optionsCmd)
}
