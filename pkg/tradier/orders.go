package tradier

import (
	"context"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Order field values accepted by the API.
var (
	EquitySides       = []string{"buy", "buy_to_cover", "sell", "sell_short"}
	OptionSides       = []string{"buy_to_open", "buy_to_close", "sell_to_open", "sell_to_close"}
	OrderTypes        = []string{"market", "limit", "stop", "stop_limit"}
	MultilegTypes     = []string{"market", "debit", "credit", "even"}
	OrderDurations    = []string{"day", "gtc", "pre", "post"}
	MultilegDurations = []string{"day", "gtc"}
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,255}$`)

// EquityOrder is a single-leg stock order.
type EquityOrder struct {
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	Type       string
	Duration   string // defaults to "day"
	LimitPrice decimal.Decimal
	StopPrice  decimal.Decimal
	Tag        string
	Preview    bool
}

// OptionOrder is a single-leg option order.
type OptionOrder struct {
	Underlying   string
	OptionSymbol string
	Side         string
	Quantity     decimal.Decimal
	Type         string
	Duration     string
	LimitPrice   decimal.Decimal
	StopPrice    decimal.Decimal
	Tag          string
	Preview      bool
}

// Leg is one option leg of a multileg order.
type Leg struct {
	OptionSymbol string
	Side         string
	Quantity     decimal.Decimal
}

// MultilegOrder combines two or more option legs on one underlying.
type MultilegOrder struct {
	Underlying string
	Type       string
	Duration   string
	Price      decimal.Decimal
	Legs       []Leg
	Tag        string
	Preview    bool
}

// OrderChange lists the fields to modify on an open order. Zero fields are
// left unchanged.
type OrderChange struct {
	Type      string
	Duration  string
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// OrderService places, changes and cancels orders.
type OrderService struct {
	client *Client
}

// PlaceEquity submits a stock order. Validation failures return a
// *RequestError and nothing is sent.
func (s *OrderService) PlaceEquity(ctx context.Context, o EquityOrder) (*OrderConfirmation, error) {
	const op = "place equity order"

	symbol := strings.ToUpper(strings.TrimSpace(o.Symbol))
	if symbol == "" {
		return nil, invalidf(op, "symbol is required")
	}
	side := strings.ToLower(o.Side)
	if err := oneOf(op, "side", side, EquitySides); err != nil {
		return nil, err
	}
	body, err := singleLegBody(op, o.Type, o.Duration, o.Quantity, o.LimitPrice, o.StopPrice, o.Tag)
	if err != nil {
		return nil, err
	}
	body["class"] = "equity"
	body["symbol"] = symbol
	body["side"] = side

	return s.place(ctx, body, o.Preview)
}

// PlaceOption submits a single-leg option order.
func (s *OrderService) PlaceOption(ctx context.Context, o OptionOrder) (*OrderConfirmation, error) {
	const op = "place option order"

	underlying := strings.ToUpper(strings.TrimSpace(o.Underlying))
	if underlying == "" {
		return nil, invalidf(op, "underlying symbol is required")
	}
	optionSymbol := strings.ToUpper(strings.TrimSpace(o.OptionSymbol))
	if optionSymbol == "" {
		return nil, invalidf(op, "option symbol is required")
	}
	side := strings.ToLower(o.Side)
	if err := oneOf(op, "side", side, OptionSides); err != nil {
		return nil, err
	}
	body, err := singleLegBody(op, o.Type, o.Duration, o.Quantity, o.LimitPrice, o.StopPrice, o.Tag)
	if err != nil {
		return nil, err
	}
	body["class"] = "option"
	body["symbol"] = underlying
	body["option_symbol"] = optionSymbol
	body["side"] = side

	return s.place(ctx, body, o.Preview)
}

// PlaceMultileg submits a multileg option order.
func (s *OrderService) PlaceMultileg(ctx context.Context, o MultilegOrder) (*OrderConfirmation, error) {
	const op = "place multileg order"

	underlying := strings.ToUpper(strings.TrimSpace(o.Underlying))
	if underlying == "" {
		return nil, invalidf(op, "underlying symbol is required")
	}
	orderType := strings.ToLower(o.Type)
	if err := oneOf(op, "type", orderType, MultilegTypes); err != nil {
		return nil, err
	}
	duration := strings.ToLower(o.Duration)
	if duration == "" {
		duration = "day"
	}
	if err := oneOf(op, "duration", duration, MultilegDurations); err != nil {
		return nil, err
	}
	if (orderType == "debit" || orderType == "credit") && !o.Price.IsPositive() {
		return nil, invalidf(op, "price is required for %s orders", orderType)
	}
	if len(o.Legs) < 2 {
		return nil, invalidf(op, "at least two legs are required, got %d", len(o.Legs))
	}
	if err := validTag(op, o.Tag); err != nil {
		return nil, err
	}

	body := map[string]string{
		"class":    "multileg",
		"symbol":   underlying,
		"type":     orderType,
		"duration": duration,
		"tag":      o.Tag,
	}
	if o.Price.IsPositive() {
		body["price"] = FormatPrice(o.Price)
	}
	for i, leg := range o.Legs {
		optionSymbol := strings.ToUpper(strings.TrimSpace(leg.OptionSymbol))
		if optionSymbol == "" {
			return nil, invalidf(op, "leg %d: option symbol is required", i)
		}
		side := strings.ToLower(leg.Side)
		if err := oneOf(op, "leg "+strconv.Itoa(i)+" side", side, OptionSides); err != nil {
			return nil, err
		}
		if !leg.Quantity.IsPositive() {
			return nil, invalidf(op, "leg %d: quantity must be positive", i)
		}
		idx := "[" + strconv.Itoa(i) + "]"
		body["option_symbol"+idx] = optionSymbol
		body["side"+idx] = side
		body["quantity"+idx] = leg.Quantity.String()
	}

	return s.place(ctx, body, o.Preview)
}

// Cancel cancels an open order. Repeating a cancel has no further effect on
// the server, so the call is retried like a read.
func (s *OrderService) Cancel(ctx context.Context, orderID int64) (*OrderConfirmation, error) {
	if orderID <= 0 {
		return nil, invalidf("cancel order", "order ID must be positive")
	}
	return s.send(ctx, RequestSpec{
		Method:      http.MethodDelete,
		Path:        "/v1/accounts/{account_id}/orders/{order_id}",
		PathParams:  map[string]string{"order_id": strconv.FormatInt(orderID, 10)},
		Family:      FamilyOrders,
		Idempotency: Idempotent,
	})
}

// Modify changes the type, duration or prices of an open order.
func (s *OrderService) Modify(ctx context.Context, orderID int64, change OrderChange) (*OrderConfirmation, error) {
	const op = "modify order"

	if orderID <= 0 {
		return nil, invalidf(op, "order ID must be positive")
	}

	body := map[string]string{}
	if change.Type != "" {
		orderType := strings.ToLower(change.Type)
		if err := oneOf(op, "type", orderType, OrderTypes); err != nil {
			return nil, err
		}
		body["type"] = orderType
	}
	if change.Duration != "" {
		duration := strings.ToLower(change.Duration)
		if err := oneOf(op, "duration", duration, OrderDurations); err != nil {
			return nil, err
		}
		body["duration"] = duration
	}
	if change.Price.IsNegative() || change.StopPrice.IsNegative() {
		return nil, invalidf(op, "prices must not be negative")
	}
	if change.Price.IsPositive() {
		body["price"] = FormatPrice(change.Price)
	}
	if change.StopPrice.IsPositive() {
		body["stop"] = FormatPrice(change.StopPrice)
	}
	if len(body) == 0 {
		return nil, invalidf(op, "nothing to change")
	}

	return s.send(ctx, RequestSpec{
		Method:      http.MethodPut,
		Path:        "/v1/accounts/{account_id}/orders/{order_id}",
		PathParams:  map[string]string{"order_id": strconv.FormatInt(orderID, 10)},
		Body:        body,
		Family:      FamilyOrders,
		Idempotency: NonIdempotent,
	})
}

func (s *OrderService) place(ctx context.Context, body map[string]string, preview bool) (*OrderConfirmation, error) {
	if preview {
		body["preview"] = "true"
	}
	return s.send(ctx, RequestSpec{
		Method:      http.MethodPost,
		Path:        "/v1/accounts/{account_id}/orders",
		Body:        body,
		Family:      FamilyOrders,
		Idempotency: NonIdempotent,
	})
}

func (s *OrderService) send(ctx context.Context, spec RequestSpec) (*OrderConfirmation, error) {
	var resp struct {
		Order OrderConfirmation `json:"order"`
	}
	if err := s.client.do(ctx, spec, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// singleLegBody validates the fields shared by equity and option orders and
// returns the partial form body.
func singleLegBody(op, orderType, duration string, quantity, limit, stop decimal.Decimal, tag string) (map[string]string, error) {
	orderType = strings.ToLower(orderType)
	if err := oneOf(op, "type", orderType, OrderTypes); err != nil {
		return nil, err
	}
	duration = strings.ToLower(duration)
	if duration == "" {
		duration = "day"
	}
	if err := oneOf(op, "duration", duration, OrderDurations); err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, invalidf(op, "quantity must be positive")
	}
	if err := validTag(op, tag); err != nil {
		return nil, err
	}

	body := map[string]string{
		"type":     orderType,
		"duration": duration,
		"quantity": quantity.String(),
		"tag":      tag,
	}
	if orderType == "limit" || orderType == "stop_limit" {
		if !limit.IsPositive() {
			return nil, invalidf(op, "limit price is required for %s orders", orderType)
		}
		body["price"] = FormatPrice(limit)
	}
	if orderType == "stop" || orderType == "stop_limit" {
		if !stop.IsPositive() {
			return nil, invalidf(op, "stop price is required for %s orders", orderType)
		}
		body["stop"] = FormatPrice(stop)
	}
	return body, nil
}

func oneOf(op, field, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return invalidf(op, "%s %q must be one of %s", field, value, strings.Join(allowed, ", "))
	}
	return nil
}

func validTag(op, tag string) error {
	if tag != "" && !tagPattern.MatchString(tag) {
		return invalidf(op, "tag %q may only contain letters, digits and dashes (max 255)", tag)
	}
	return nil
}
