package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jonandersen/tradier/internal/output"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// newOrderCmd creates the parent order command.
func newOrderCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and manage orders",
		Long: `Place buy and sell orders for stocks and ETFs, check status, change and cancel open orders.

Examples:
  trd order buy AAPL 10 --yes                      # Market order for 10 shares
  trd order sell AAPL 5 --limit 180 --yes          # Limit order
  trd order buy AAPL 10 --preview                  # Cost preview, nothing is placed
  trd order option buy_to_open SPY240119C00470000 1 --limit 5.10 --yes
  trd order list                                   # Orders on the account
  trd order status 228175                          # Check order status
  trd order modify 228175 --limit 179.5 --yes      # Change an open order
  trd order cancel 228175 --yes                    # Cancel an order`,
	}

	cmd.AddCommand(newOrderPlaceCmd(opts, "buy"))
	cmd.AddCommand(newOrderPlaceCmd(opts, "sell"))
	cmd.AddCommand(newOrderOptionCmd(opts))
	cmd.AddCommand(newOrderListCmd(opts))
	cmd.AddCommand(newOrderStatusCmd(opts))
	cmd.AddCommand(newOrderModifyCmd(opts))
	cmd.AddCommand(newOrderCancelCmd(opts))

	return cmd
}

// orderParams holds the flags of an order.
type orderParams struct {
	orderType  string
	limitPrice string
	stopPrice  string
	duration   string
	tag        string
	short      bool
	preview    bool
	yes        bool
}

// newOrderPlaceCmd creates the buy or sell subcommand.
func newOrderPlaceCmd(opts *clientOptions, side string) *cobra.Command {
	var params orderParams

	cmd := &cobra.Command{
		Use:   side + " SYMBOL QUANTITY",
		Short: fmt.Sprintf("Place an equity %s order", side),
		Long: fmt.Sprintf(`Place an equity %[1]s order.

The order type is taken from --type, or derived from the price flags:
  - No price flags: market
  - --limit: limit
  - --stop: stop
  - --limit and --stop: stop_limit

Examples:
  trd order %[1]s AAPL 10 --yes
  trd order %[1]s AAPL 10 --limit 175.00 --duration gtc --yes
  trd order %[1]s AAPL 10 --stop 170 --limit 169.5 --yes
  trd order %[1]s AAPL 10 --limit 175.00 --preview`, side),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlaceOrder(cmd, opts, side, args[0], args[1], params)
		},
	}

	cmd.Flags().StringVarP(&params.orderType, "type", "t", "", "Order type: market, limit, stop or stop_limit")
	cmd.Flags().StringVarP(&params.limitPrice, "limit", "l", "", "Limit price for limit and stop_limit orders")
	cmd.Flags().StringVarP(&params.stopPrice, "stop", "s", "", "Stop price for stop and stop_limit orders")
	cmd.Flags().StringVarP(&params.duration, "duration", "d", "day", "Time in force: day, gtc, pre or post")
	cmd.Flags().StringVar(&params.tag, "tag", "", "Order tag (generated when empty)")
	cmd.Flags().BoolVar(&params.preview, "preview", false, "Preview cost without placing the order")
	cmd.Flags().BoolVarP(&params.yes, "yes", "y", false, "Skip confirmation prompt")
	if side == "buy" {
		cmd.Flags().BoolVar(&params.short, "to-cover", false, "Buy to cover a short position")
	} else {
		cmd.Flags().BoolVar(&params.short, "short", false, "Sell short")
	}
	cmd.SilenceUsage = true

	return cmd
}

// determineOrderType derives the order type from the price flags.
func determineOrderType(limitPrice, stopPrice string) string {
	hasLimit := limitPrice != ""
	hasStop := stopPrice != ""

	switch {
	case hasLimit && hasStop:
		return "stop_limit"
	case hasLimit:
		return "limit"
	case hasStop:
		return "stop"
	default:
		return "market"
	}
}

func parseDecimalFlag(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, value)
	}
	return d, nil
}

func runPlaceOrder(cmd *cobra.Command, opts *clientOptions, side, symbol, quantity string, params orderParams) error {
	qty, err := parseDecimalFlag("quantity", quantity)
	if err != nil {
		return err
	}
	limit, err := parseDecimalFlag("limit price", params.limitPrice)
	if err != nil {
		return err
	}
	stop, err := parseDecimalFlag("stop price", params.stopPrice)
	if err != nil {
		return err
	}

	orderType := strings.ToLower(params.orderType)
	if orderType == "" {
		orderType = determineOrderType(params.limitPrice, params.stopPrice)
	}

	switch {
	case side == "buy" && params.short:
		side = "buy_to_cover"
	case side == "sell" && params.short:
		side = "sell_short"
	}

	tag := params.tag
	if tag == "" {
		tag = uuid.NewString()
	}

	order := tradier.EquityOrder{
		Symbol:     strings.ToUpper(symbol),
		Side:       side,
		Quantity:   qty,
		Type:       orderType,
		Duration:   strings.ToLower(params.duration),
		LimitPrice: limit,
		StopPrice:  stop,
		Tag:        tag,
		Preview:    params.preview,
	}

	if !opts.jsonMode {
		fields := []output.Field{
			{Label: "Action", Value: side},
			{Label: "Symbol", Value: order.Symbol},
			{Label: "Quantity", Value: qty.String()},
			{Label: "Type", Value: orderType},
			{Label: "Duration", Value: order.Duration},
			{Label: "Tag", Value: tag},
		}
		if !limit.IsZero() {
			fields = append(fields, output.Field{Label: "Limit", Value: "$" + tradier.FormatPrice(limit)})
		}
		if !stop.IsZero() {
			fields = append(fields, output.Field{Label: "Stop", Value: "$" + tradier.FormatPrice(stop)})
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nOrder Preview:")
		if err := output.New(cmd.OutOrStdout(), false).Detail(fields); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	if !params.preview && !params.yes {
		return fmt.Errorf("order requires confirmation (use --yes to confirm or --preview to check cost)")
	}

	ctx, cancel := commandContext()
	defer cancel()

	conf, err := opts.client.Orders.PlaceEquity(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to place order: %w", err)
	}

	return printConfirmation(cmd, opts, conf, params.preview)
}

func printConfirmation(cmd *cobra.Command, opts *clientOptions, conf *tradier.OrderConfirmation, preview bool) error {
	if opts.jsonMode {
		return opts.formatter(cmd).Print(conf)
	}

	if preview {
		return opts.formatter(cmd).Detail([]output.Field{
			{Label: "Status", Value: conf.Status},
			{Label: "Order Cost", Value: output.Money(conf.OrderCost)},
			{Label: "Commission", Value: output.Money(conf.Commission)},
			{Label: "Fees", Value: output.Money(conf.Fees)},
			{Label: "Total Cost", Value: output.Money(conf.Cost)},
			{Label: "Margin Change", Value: output.OptionalMoney(conf.MarginChange)},
		})
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Order submitted!")
	return opts.formatter(cmd).Detail([]output.Field{
		{Label: "Order ID", Value: strconv.FormatInt(conf.ID, 10)},
		{Label: "Status", Value: conf.Status},
	})
}

// newOrderOptionCmd creates the single-leg option order subcommand.
func newOrderOptionCmd(opts *clientOptions) *cobra.Command {
	var params orderParams

	cmd := &cobra.Command{
		Use:   "option SIDE OPTION_SYMBOL QUANTITY",
		Short: "Place a single-leg option order",
		Long: `Place an option order using an OCC option symbol.

SIDE is one of: ` + strings.Join(tradier.OptionSides, ", ") + `

Examples:
  trd order option buy_to_open SPY240119C00470000 1 --limit 5.10 --yes
  trd order option sell_to_close SPY240119C00470000 1 --yes`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlaceOptionOrder(cmd, opts, args[0], args[1], args[2], params)
		},
	}

	cmd.Flags().StringVarP(&params.orderType, "type", "t", "", "Order type: market, limit, stop or stop_limit")
	cmd.Flags().StringVarP(&params.limitPrice, "limit", "l", "", "Limit price per contract")
	cmd.Flags().StringVarP(&params.stopPrice, "stop", "s", "", "Stop price per contract")
	cmd.Flags().StringVarP(&params.duration, "duration", "d", "day", "Time in force: day or gtc")
	cmd.Flags().StringVar(&params.tag, "tag", "", "Order tag (generated when empty)")
	cmd.Flags().BoolVar(&params.preview, "preview", false, "Preview cost without placing the order")
	cmd.Flags().BoolVarP(&params.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.SilenceUsage = true

	return cmd
}

// occRoot returns the underlying root of an OCC option symbol such as
// SPY240119C00470000.
func occRoot(symbol string) (string, error) {
	const suffix = 15 // YYMMDD + C/P + 8 digit strike
	if len(symbol) <= suffix || len(symbol) > suffix+6 {
		return "", fmt.Errorf("invalid option symbol %q", symbol)
	}
	return symbol[:len(symbol)-suffix], nil
}

func runPlaceOptionOrder(cmd *cobra.Command, opts *clientOptions, side, optionSymbol, quantity string, params orderParams) error {
	optionSymbol = strings.ToUpper(optionSymbol)
	underlying, err := occRoot(optionSymbol)
	if err != nil {
		return err
	}
	qty, err := parseDecimalFlag("quantity", quantity)
	if err != nil {
		return err
	}
	limit, err := parseDecimalFlag("limit price", params.limitPrice)
	if err != nil {
		return err
	}
	stop, err := parseDecimalFlag("stop price", params.stopPrice)
	if err != nil {
		return err
	}

	orderType := strings.ToLower(params.orderType)
	if orderType == "" {
		orderType = determineOrderType(params.limitPrice, params.stopPrice)
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

	conf, err := opts.client.Orders.PlaceOption(ctx, tradier.OptionOrder{
		Underlying:   underlying,
		OptionSymbol: optionSymbol,
		Side:         strings.ToLower(side),
		Quantity:     qty,
		Type:         orderType,
		Duration:     strings.ToLower(params.duration),
		LimitPrice:   limit,
		StopPrice:    stop,
		Tag:          tag,
		Preview:      params.preview,
	})
	if err != nil {
		return fmt.Errorf("failed to place order: %w", err)
	}

	return printConfirmation(cmd, opts, conf, params.preview)
}

func parseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order ID %q", raw)
	}
	return id, nil
}

// newOrderListCmd creates the list subcommand.
func newOrderListCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Long: `List the orders on your account, including today's filled and cancelled orders.

Examples:
  trd order list
  trd order list --json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderList(cmd, opts)
		},
	}
}

func runOrderList(cmd *cobra.Command, opts *clientOptions) error {
	ctx, cancel := commandContext()
	defer cancel()

	orders, err := opts.client.Accounts.Orders(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch orders: %w", err)
	}

	formatter := opts.formatter(cmd)
	if opts.jsonMode {
		return formatter.Print(orders)
	}
	if len(orders) == 0 {
		return formatter.Empty("No orders")
	}

	headers := []string{"ID", "Symbol", "Side", "Type", "Status", "Qty", "Filled", "Price", "Created"}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		symbol := o.Symbol
		if o.OptionSymbol != "" {
			symbol = o.OptionSymbol
		}
		if o.Class == "multileg" {
			symbol = fmt.Sprintf("%s (%d legs)", o.Symbol, o.NumLegs)
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			symbol,
			o.Side,
			o.Type,
			o.Status,
			o.Quantity.String(),
			o.ExecQuantity.String(),
			orderPrice(o),
			shortDate(o.CreateDate),
		})
	}

	return formatter.Table(headers, rows)
}

func orderPrice(o tradier.Order) string {
	if o.Price.IsZero() {
		return "-"
	}
	return "$" + tradier.FormatPrice(o.Price)
}

// newOrderStatusCmd creates the status subcommand.
func newOrderStatusCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status ORDER_ID",
		Short: "Check the status of an order",
		Long: `Check the status of an order by its order ID.

Status values: open, partially_filled, filled, expired, canceled, pending, rejected

Examples:
  trd order status 228175`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderStatus(cmd, opts, args[0])
		},
	}
}

func runOrderStatus(cmd *cobra.Command, opts *clientOptions, rawID string) error {
	id, err := parseOrderID(rawID)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	order, err := opts.client.Accounts.Order(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get order status: %w", err)
	}

	if opts.jsonMode {
		return opts.formatter(cmd).Print(order)
	}

	fields := []output.Field{
		{Label: "Order ID", Value: strconv.FormatInt(order.ID, 10)},
		{Label: "Symbol", Value: order.Symbol},
		{Label: "Option", Value: order.OptionSymbol},
		{Label: "Class", Value: order.Class},
		{Label: "Side", Value: order.Side},
		{Label: "Type", Value: order.Type},
		{Label: "Duration", Value: order.Duration},
		{Label: "Status", Value: order.Status},
		{Label: "Quantity", Value: order.Quantity.String()},
		{Label: "Filled", Value: order.ExecQuantity.String()},
		{Label: "Remaining", Value: order.RemainingQuantity.String()},
		{Label: "Price", Value: orderPrice(*order)},
		{Label: "Avg Fill", Value: output.OptionalMoney(order.AvgFillPrice)},
		{Label: "Tag", Value: order.Tag},
		{Label: "Created", Value: order.CreateDate},
		{Label: "Reason", Value: order.ReasonDescription},
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nOrder Status:")
	if err := opts.formatter(cmd).Detail(fields); err != nil {
		return err
	}

	if len(order.Legs) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nLegs:")
	headers := []string{"Option", "Side", "Qty", "Status", "Filled"}
	rows := make([][]string, 0, len(order.Legs))
	for _, leg := range order.Legs {
		rows = append(rows, []string{leg.OptionSymbol, leg.Side, leg.Quantity.String(), leg.Status, leg.ExecQuantity.String()})
	}
	return opts.formatter(cmd).Table(headers, rows)
}

// newOrderModifyCmd creates the modify subcommand.
func newOrderModifyCmd(opts *clientOptions) *cobra.Command {
	var params orderParams

	cmd := &cobra.Command{
		Use:   "modify ORDER_ID",
		Short: "Change an open order",
		Long: `Change the type, duration or prices of an open order.

Examples:
  trd order modify 228175 --limit 179.50 --yes
  trd order modify 228175 --duration gtc --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModifyOrder(cmd, opts, args[0], params)
		},
	}

	cmd.Flags().StringVarP(&params.orderType, "type", "t", "", "New order type")
	cmd.Flags().StringVarP(&params.limitPrice, "limit", "l", "", "New limit price")
	cmd.Flags().StringVarP(&params.stopPrice, "stop", "s", "", "New stop price")
	cmd.Flags().StringVarP(&params.duration, "duration", "d", "", "New time in force")
	cmd.Flags().BoolVarP(&params.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.SilenceUsage = true

	return cmd
}

func runModifyOrder(cmd *cobra.Command, opts *clientOptions, rawID string, params orderParams) error {
	id, err := parseOrderID(rawID)
	if err != nil {
		return err
	}
	price, err := parseDecimalFlag("limit price", params.limitPrice)
	if err != nil {
		return err
	}
	stop, err := parseDecimalFlag("stop price", params.stopPrice)
	if err != nil {
		return err
	}

	if !params.yes {
		return fmt.Errorf("modify requires confirmation (use --yes to confirm)")
	}

	ctx, cancel := commandContext()
	defer cancel()

	conf, err := opts.client.Orders.Modify(ctx, id, tradier.OrderChange{
		Type:      strings.ToLower(params.orderType),
		Duration:  strings.ToLower(params.duration),
		Price:     price,
		StopPrice: stop,
	})
	if err != nil {
		return fmt.Errorf("failed to modify order: %w", err)
	}

	return printConfirmation(cmd, opts, conf, false)
}

// newOrderCancelCmd creates the cancel subcommand.
func newOrderCancelCmd(opts *clientOptions) *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an open order",
		Long: `Cancel an open order by its order ID.

Examples:
  trd order cancel 228175        # Cancel order (requires confirmation)
  trd order cancel 228175 --yes  # Skip confirmation`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancelOrder(cmd, opts, args[0], skipConfirm)
		},
	}

	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation prompt")
	cmd.SilenceUsage = true

	return cmd
}

func runCancelOrder(cmd *cobra.Command, opts *clientOptions, rawID string, skipConfirm bool) error {
	id, err := parseOrderID(rawID)
	if err != nil {
		return err
	}

	if !opts.jsonMode {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nCancel Order:\n")
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Order ID: %d\n\n", id)
	}

	if !skipConfirm {
		return fmt.Errorf("cancel requires confirmation (use --yes to confirm)")
	}

	ctx, cancel := commandContext()
	defer cancel()

	conf, err := opts.client.Orders.Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if opts.jsonMode {
		return opts.formatter(cmd).Print(conf)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cancel request submitted!\n")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Order ID: %d\n", id)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Status:   %s\n", conf.Status)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nNote: Cancellation is asynchronous. Use 'trd order status %d' to verify.\n", id)

	return nil
}

func init() {
	opts := &clientOptions{}
	orderCmd := newOrderCmd(opts)
	attachClient(orderCmd, opts)
	rootCmd.AddCommand(orderCmd)
}
