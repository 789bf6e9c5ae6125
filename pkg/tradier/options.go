package tradier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionService wraps the option chain endpoints.
type OptionService struct {
	client *Client
}

// Expirations lists the expiration dates of symbol with their strikes.
// Other option roots are included when allRoots is true.
func (s *OptionService) Expirations(ctx context.Context, symbol string, allRoots bool) ([]Expiration, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, invalidf("option expirations", "symbol is required")
	}

	var resp struct {
		Expirations struct {
			Expiration []Expiration `json:"expiration"`
		} `json:"expirations"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/markets/options/expirations",
		Query: url.Values{
			"symbol":          {symbol},
			"strikes":         {"true"},
			"contractSize":    {"true"},
			"expirationType":  {"true"},
			"includeAllRoots": {strconv.FormatBool(allRoots)},
		},
		Family:    FamilyOptions,
		ListPaths: []string{"expirations.expiration", "expirations.expiration.strikes.strike"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Expirations.Expiration, nil
}

// Chain retrieves every contract of symbol expiring on expiration.
func (s *OptionService) Chain(ctx context.Context, symbol string, expiration time.Time, greeks bool) ([]Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, invalidf("option chain", "symbol is required")
	}
	if expiration.IsZero() {
		return nil, invalidf("option chain", "expiration is required")
	}

	var resp struct {
		Options struct {
			Option []Quote `json:"option"`
		} `json:"options"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/markets/options/chains",
		Query: url.Values{
			"symbol":     {symbol},
			"expiration": {FormatDate(expiration)},
			"greeks":     {strconv.FormatBool(greeks)},
		},
		Family:    FamilyOptions,
		ListPaths: []string{"options.option"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Options.Option, nil
}

// Strikes lists the strike prices of symbol for one expiration.
func (s *OptionService) Strikes(ctx context.Context, symbol string, expiration time.Time) ([]decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, invalidf("option strikes", "symbol is required")
	}
	if expiration.IsZero() {
		return nil, invalidf("option strikes", "expiration is required")
	}

	var resp struct {
		Strikes struct {
			Strike []decimal.Decimal `json:"strike"`
		} `json:"strikes"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/markets/options/strikes",
		Query: url.Values{
			"symbol":     {symbol},
			"expiration": {FormatDate(expiration)},
		},
		Family:    FamilyOptions,
		ListPaths: []string{"strikes.strike"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Strikes.Strike, nil
}

// Symbol resolves the OCC symbol of one contract from the chain. No match
// is a KindNotFound *APIError.
func (s *OptionService) Symbol(ctx context.Context, symbol string, expiration time.Time, strike decimal.Decimal, optionType string) (string, error) {
	optionType = strings.ToLower(strings.TrimSpace(optionType))
	if err := oneOf("option symbol", "option type", optionType, []string{"call", "put"}); err != nil {
		return "", err
	}

	chain, err := s.Chain(ctx, symbol, expiration, false)
	if err != nil {
		return "", err
	}
	for _, contract := range chain {
		if contract.Strike.Equal(strike) && strings.EqualFold(contract.OptionType, optionType) {
			return contract.Symbol, nil
		}
	}
	return "", notFoundf("no %s contract for %s expiring %s at strike %s",
		optionType, strings.ToUpper(symbol), FormatDate(expiration), strike.String())
}
