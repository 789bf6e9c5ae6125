package tradier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxQuoteSymbolsGET is the largest symbol list sent in a query string.
// Longer lists are posted as a form body.
const maxQuoteSymbolsGET = 100

// Security types accepted by Lookup.
var SecurityTypes = []string{"stock", "option", "etf", "index"}

// MarketService wraps the market data endpoints.
type MarketService struct {
	client *Client
}

// QuoteSet is the answer to a quotes request.
type QuoteSet struct {
	Quotes []Quote
	// Unmatched lists requested symbols the API did not recognise.
	Unmatched []string
}

// Quotes retrieves quotes for symbols. A single matching symbol still yields
// a one-element slice.
func (s *MarketService) Quotes(ctx context.Context, symbols []string, greeks bool) (*QuoteSet, error) {
	cleaned := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			cleaned = append(cleaned, sym)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalidf("quotes", "at least one symbol is required")
	}

	spec := RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/markets/quotes",
		Family:    FamilyMarket,
		ListPaths: []string{"quotes.quote", "quotes.unmatched_symbols.symbol"},
	}
	if len(cleaned) > maxQuoteSymbolsGET {
		spec.Method = http.MethodPost
		spec.Idempotency = Idempotent
		spec.Body = map[string]string{
			"symbols": strings.Join(cleaned, ","),
			"greeks":  strconv.FormatBool(greeks),
		}
	} else {
		spec.Query = url.Values{
			"symbols": cleaned,
			"greeks":  {strconv.FormatBool(greeks)},
		}
	}

	var resp struct {
		Quotes struct {
			Quote     []Quote `json:"quote"`
			Unmatched struct {
				Symbol []string `json:"symbol"`
			} `json:"unmatched_symbols"`
		} `json:"quotes"`
	}
	if err := s.client.do(ctx, spec, &resp); err != nil {
		return nil, err
	}
	return &QuoteSet{
		Quotes:    resp.Quotes.Quote,
		Unmatched: resp.Quotes.Unmatched.Symbol,
	}, nil
}

// LastPrice returns the last trade price of symbol. An unknown symbol is a
// KindNotFound *APIError.
func (s *MarketService) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	set, err := s.Quotes(ctx, []string{symbol}, false)
	if err != nil {
		return decimal.Zero, err
	}
	want := strings.ToUpper(strings.TrimSpace(symbol))
	for _, q := range set.Quotes {
		if strings.EqualFold(q.Symbol, want) {
			return q.Last, nil
		}
	}
	return decimal.Zero, notFoundf("no quote found for symbol %s", want)
}

// HistoryRequest selects daily or longer aggregates.
type HistoryRequest struct {
	Symbol        string
	Interval      string // daily (default), weekly or monthly
	Start         time.Time
	End           time.Time
	SessionFilter string // all (default) or open
}

// History retrieves historical OHLCV bars.
func (s *MarketService) History(ctx context.Context, req HistoryRequest) ([]Bar, error) {
	const op = "market history"

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, invalidf(op, "symbol is required")
	}
	interval := defaultLower(req.Interval, "daily")
	if err := oneOf(op, "interval", interval, []string{"daily", "weekly", "monthly"}); err != nil {
		return nil, err
	}
	session := defaultLower(req.SessionFilter, "all")
	if err := oneOf(op, "session filter", session, []string{"all", "open"}); err != nil {
		return nil, err
	}

	query := url.Values{
		"symbol":         {symbol},
		"interval":       {interval},
		"session_filter": {session},
	}
	if !req.Start.IsZero() {
		query.Set("start", FormatDate(req.Start))
	}
	if !req.End.IsZero() {
		query.Set("end", FormatDate(req.End))
	}

	var resp struct {
		History struct {
			Day []Bar `json:"day"`
		} `json:"history"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/markets/history",
		Query:     query,
		Family:    FamilyMarket,
		ListPaths: []string{"history.day"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.History.Day, nil
}

// TimeSalesRequest selects intraday aggregates. The API only looks back
// about 20 days.
type TimeSalesRequest struct {
	Symbol        string
	Interval      int // minutes: 1 (default), 5 or 15
	Start         time.Time
	End           time.Time
	SessionFilter string // open (default) or all
}

// TimeSales retrieves intraday time and sales.
func (s *MarketService) TimeSales(ctx context.Context, req TimeSalesRequest) ([]TimeSale, error) {
	const op = "time and sales"

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, invalidf(op, "symbol is required")
	}
	interval := req.Interval
	if interval == 0 {
		interval = 1
	}
	if interval != 1 && interval != 5 && interval != 15 {
		return nil, invalidf(op, "interval %d must be one of 1, 5, 15", interval)
	}
	session := defaultLower(req.SessionFilter, "open")
	if err := oneOf(op, "session filter", session, []string{"all", "open"}); err != nil {
		return nil, err
	}

	query := url.Values{
		"symbol":         {symbol},
		"interval":       {fmt.Sprintf("%dmin", interval)},
		"session_filter": {session},
	}
	if !req.Start.IsZero() {
		query.Set("start", FormatDateTime(req.Start))
	}
	if !req.End.IsZero() {
		query.Set("end", FormatDateTime(req.End))
	}

	var resp struct {
		Series struct {
			Data []TimeSale `json:"data"`
		} `json:"series"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      "/v1/markets/timesales",
		Query:     query,
		Family:    FamilyMarket,
		ListPaths: []string{"series.data"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Series.Data, nil
}

// Clock retrieves the current market state.
func (s *MarketService) Clock(ctx context.Context) (*Clock, error) {
	var resp struct {
		Clock Clock `json:"clock"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/markets/clock",
		Family: FamilyMarket,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Clock, nil
}

// Calendar retrieves the market calendar for one month.
func (s *MarketService) Calendar(ctx context.Context, month time.Month, year int) ([]CalendarDay, error) {
	if month < time.January || month > time.December {
		return nil, invalidf("market calendar", "month %d is out of range", month)
	}
	if year <= 0 {
		return nil, invalidf("market calendar", "year %d is out of range", year)
	}

	var resp struct {
		Calendar struct {
			Days struct {
				Day []CalendarDay `json:"day"`
			} `json:"days"`
		} `json:"calendar"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   "/v1/markets/calendar",
		Query: url.Values{
			"month": {fmt.Sprintf("%02d", int(month))},
			"year":  {strconv.Itoa(year)},
		},
		Family:    FamilyMarket,
		ListPaths: []string{"calendar.days.day"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Calendar.Days.Day, nil
}

// PreviousTradingDay returns the last open market day strictly before date,
// looking back into the previous month when needed. A zero date means today.
func (s *MarketService) PreviousTradingDay(ctx context.Context, date time.Time) (time.Time, error) {
	if date.IsZero() {
		date = time.Now()
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	cursor := day
	for attempt := 0; attempt < 2; attempt++ {
		days, err := s.Calendar(ctx, cursor.Month(), cursor.Year())
		if err != nil {
			return time.Time{}, err
		}
		for i := len(days) - 1; i >= 0; i-- {
			if days[i].Status != "open" {
				continue
			}
			d, err := ParseDate(days[i].Date)
			if err != nil {
				continue
			}
			if d.Before(day) {
				return d, nil
			}
		}
		cursor = time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	}
	return time.Time{}, notFoundf("no trading day found before %s", FormatDate(day))
}

// LookupRequest searches symbols by prefix.
type LookupRequest struct {
	Query     string
	Exchanges []string
	Types     []string // stock, option, etf, index
}

// Lookup searches securities by symbol prefix. No match yields an empty slice.
func (s *MarketService) Lookup(ctx context.Context, req LookupRequest) ([]Security, error) {
	query := url.Values{}
	if q := strings.TrimSpace(req.Query); q != "" {
		query.Set("q", q)
	}
	for _, t := range req.Types {
		t = strings.ToLower(strings.TrimSpace(t))
		if !slices.Contains(SecurityTypes, t) {
			return nil, invalidf("symbol lookup", "type %q must be one of %s", t, strings.Join(SecurityTypes, ", "))
		}
		query.Add("types", t)
	}
	for _, ex := range req.Exchanges {
		if ex = strings.TrimSpace(ex); ex != "" {
			query.Add("exchanges", strings.ToUpper(ex))
		}
	}
	if len(query) == 0 {
		return nil, invalidf("symbol lookup", "query, types or exchanges is required")
	}
	return s.securities(ctx, "/v1/markets/lookup", query)
}

// Search finds securities by company name. Indexes are included when
// indexes is true.
func (s *MarketService) Search(ctx context.Context, q string, indexes bool) ([]Security, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalidf("symbol search", "query is required")
	}
	return s.securities(ctx, "/v1/markets/search", url.Values{
		"q":       {q},
		"indexes": {strconv.FormatBool(indexes)},
	})
}

func (s *MarketService) securities(ctx context.Context, path string, query url.Values) ([]Security, error) {
	var resp struct {
		Securities struct {
			Security []Security `json:"security"`
		} `json:"securities"`
	}
	err := s.client.do(ctx, RequestSpec{
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
		Family:    FamilyMarket,
		ListPaths: []string{"securities.security"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Securities.Security, nil
}

func defaultLower(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

func notFoundf(format string, args ...any) *APIError {
	return &APIError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}
