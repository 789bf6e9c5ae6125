package tradier

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// AccountService wraps the account endpoints.
type AccountService struct {
	client *Client
}

// Profile retrieves the user profile and its accounts.
func (s *AccountService) Profile(ctx context.Context) (*Profile, error) {
	var resp struct {
		Profile Profile `json:"profile"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/user/profile",
		Family:    FamilyAccount,
		ListPaths: []string{"profile.account"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Profile, nil
}

// Balances retrieves the balance snapshot of the configured account.
func (s *AccountService) Balances(ctx context.Context) (*Balances, error) {
	var resp struct {
		Balances Balances `json:"balances"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/accounts/{account_id}/balances",
		Family: FamilyAccount,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Balances, nil
}

// PositionFilter narrows Positions results client-side.
type PositionFilter struct {
	Symbols []string
	// EquitiesOnly keeps symbols shorter than five characters.
	EquitiesOnly bool
	// OptionsOnly keeps symbols longer than five characters (OCC symbols).
	// Ignored when EquitiesOnly is set.
	OptionsOnly bool
}

// Positions retrieves open positions. An account with no positions returns
// an empty slice.
func (s *AccountService) Positions(ctx context.Context, filter PositionFilter) ([]Position, error) {
	var resp struct {
		Positions struct {
			Position []Position `json:"position"`
		} `json:"positions"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/accounts/{account_id}/positions",
		Family:    FamilyAccount,
		ListPaths: []string{"positions.position"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	positions := resp.Positions.Position
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		if len(filter.Symbols) > 0 && !containsFold(filter.Symbols, p.Symbol) {
			continue
		}
		if filter.EquitiesOnly && len(p.Symbol) >= 5 {
			continue
		}
		if !filter.EquitiesOnly && filter.OptionsOnly && len(p.Symbol) <= 5 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GainLoss retrieves realized gains and losses of closed positions.
func (s *AccountService) GainLoss(ctx context.Context) ([]ClosedPosition, error) {
	var resp struct {
		GainLoss struct {
			ClosedPosition []ClosedPosition `json:"closed_position"`
		} `json:"gainloss"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/accounts/{account_id}/gainloss",
		Family:    FamilyAccount,
		ListPaths: []string{"gainloss.closed_position"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.GainLoss.ClosedPosition, nil
}

// ActivityTypes are the values accepted by HistoryParams.Type.
var ActivityTypes = []string{
	"trade", "option", "ach", "wire", "dividend", "fee", "tax",
	"journal", "check", "transfer", "adjustment", "interest",
}

// HistoryParams filters account activity. Zero values are omitted.
type HistoryParams struct {
	Start  time.Time
	End    time.Time
	Limit  int // the API defaults to 25
	Type   string
	Symbol string
}

// History retrieves account activity.
func (s *AccountService) History(ctx context.Context, params HistoryParams) ([]HistoryEvent, error) {
	query := url.Values{}
	if !params.Start.IsZero() {
		query.Set("start", FormatDate(params.Start))
	}
	if !params.End.IsZero() {
		query.Set("end", FormatDate(params.End))
	}
	if params.Type != "" {
		activity := strings.ToLower(params.Type)
		if !slices.Contains(ActivityTypes, activity) {
			return nil, invalidf("history", "activity type %q must be one of %s", params.Type, strings.Join(ActivityTypes, ", "))
		}
		query.Set("type", activity)
	}
	if params.Symbol != "" {
		query.Set("symbol", strings.ToUpper(params.Symbol))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	var resp struct {
		History struct {
			Event []HistoryEvent `json:"event"`
		} `json:"history"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/accounts/{account_id}/history",
		Query:     query,
		Family:    FamilyAccount,
		ListPaths: []string{"history.event"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.History.Event, nil
}

// Orders retrieves the orders of the configured account.
func (s *AccountService) Orders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders struct {
			Order []Order `json:"order"`
		} `json:"orders"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/accounts/{account_id}/orders",
		Query:     url.Values{"includeTags": {"true"}},
		Family:    FamilyAccount,
		ListPaths: []string{"orders.order", "orders.order.leg"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Orders.Order, nil
}

// Order retrieves a single order by ID.
func (s *AccountService) Order(ctx context.Context, orderID int64) (*Order, error) {
	if orderID <= 0 {
		return nil, invalidf("order", "order ID must be positive")
	}
	var resp struct {
		Order Order `json:"order"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:     http.MethodGet,
		Path:       "/v1/accounts/{account_id}/orders/{order_id}",
		PathParams: map[string]string{"order_id": strconv.FormatInt(orderID, 10)},
		Query:      url.Values{"includeTags": {"true"}},
		Family:     FamilyAccount,
		ListPaths:  []string{"order.leg"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
