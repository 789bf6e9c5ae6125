package tradier

import "github.com/shopspring/decimal"

// =============================================================================
// Account Types
// =============================================================================

// Profile is the authenticated user and the accounts they can trade.
type Profile struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Accounts []ProfileAccount `json:"account"`
}

// ProfileAccount describes one brokerage account on a profile.
type ProfileAccount struct {
	AccountNumber  string `json:"account_number"`
	Classification string `json:"classification"`
	DateCreated    string `json:"date_created"`
	DayTrader      bool   `json:"day_trader"`
	OptionLevel    int    `json:"option_level"`
	Status         string `json:"status"`
	Type           string `json:"type"`
	LastUpdateDate string `json:"last_update_date"`
}

// Balances is an account's balance snapshot. Exactly one of Margin, Cash or
// PDT is populated depending on the account type.
type Balances struct {
	AccountNumber      string          `json:"account_number"`
	AccountType        string          `json:"account_type"`
	TotalEquity        decimal.Decimal `json:"total_equity"`
	TotalCash          decimal.Decimal `json:"total_cash"`
	MarketValue        decimal.Decimal `json:"market_value"`
	LongMarketValue    decimal.Decimal `json:"long_market_value"`
	ShortMarketValue   decimal.Decimal `json:"short_market_value"`
	StockLongValue     decimal.Decimal `json:"stock_long_value"`
	OptionLongValue    decimal.Decimal `json:"option_long_value"`
	OptionShortValue   decimal.Decimal `json:"option_short_value"`
	OptionRequirement  decimal.Decimal `json:"option_requirement"`
	CurrentRequirement decimal.Decimal `json:"current_requirement"`
	OpenPL             decimal.Decimal `json:"open_pl"`
	ClosePL            decimal.Decimal `json:"close_pl"`
	Equity             decimal.Decimal `json:"equity"`
	UnclearedFunds     decimal.Decimal `json:"uncleared_funds"`
	PendingCash        decimal.Decimal `json:"pending_cash"`
	PendingOrdersCount int             `json:"pending_orders_count"`

	Margin *MarginBalances `json:"margin,omitempty"`
	Cash   *CashBalances   `json:"cash,omitempty"`
	PDT    *MarginBalances `json:"pdt,omitempty"`
}

// MarginBalances holds buying power for margin and pattern-day-trader accounts.
type MarginBalances struct {
	FedCall           decimal.Decimal `json:"fed_call"`
	MaintenanceCall   decimal.Decimal `json:"maintenance_call"`
	OptionBuyingPower decimal.Decimal `json:"option_buying_power"`
	StockBuyingPower  decimal.Decimal `json:"stock_buying_power"`
	StockShortValue   decimal.Decimal `json:"stock_short_value"`
	Sweep             decimal.Decimal `json:"sweep"`
}

// CashBalances holds settlement figures for cash accounts.
type CashBalances struct {
	CashAvailable  decimal.Decimal `json:"cash_available"`
	Sweep          decimal.Decimal `json:"sweep"`
	UnsettledFunds decimal.Decimal `json:"unsettled_funds"`
}

// Position is an open holding.
type Position struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	DateAcquired string          `json:"date_acquired"`
}

// ClosedPosition is one realized gain/loss entry.
type ClosedPosition struct {
	Symbol          string          `json:"symbol"`
	Quantity        decimal.Decimal `json:"quantity"`
	Cost            decimal.Decimal `json:"cost"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
	OpenDate        string          `json:"open_date"`
	CloseDate       string          `json:"close_date"`
	Term            int             `json:"term"`
}

// HistoryEvent is one entry of account activity. The detail field matching
// Type is populated.
type HistoryEvent struct {
	Amount  decimal.Decimal `json:"amount"`
	Date    string          `json:"date"`
	Type    string          `json:"type"`
	Trade   *HistoryTrade   `json:"trade,omitempty"`
	Option  *HistoryDetail  `json:"option,omitempty"`
	Journal *HistoryDetail  `json:"journal,omitempty"`
}

// HistoryTrade details a trade event.
type HistoryTrade struct {
	Commission  decimal.Decimal `json:"commission"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Symbol      string          `json:"symbol"`
	TradeType   string          `json:"trade_type"`
}

// HistoryDetail details non-trade events.
type HistoryDetail struct {
	Description string          `json:"description"`
	OptionType  string          `json:"option_type,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// =============================================================================
// Order Types
// =============================================================================

// Order is an order as reported by the account orders endpoints. Multileg
// orders carry their legs in Legs.
type Order struct {
	ID                int64           `json:"id"`
	Type              string          `json:"type"`
	Symbol            string          `json:"symbol"`
	OptionSymbol      string          `json:"option_symbol,omitempty"`
	Side              string          `json:"side"`
	Quantity          decimal.Decimal `json:"quantity"`
	Status            string          `json:"status"`
	Duration          string          `json:"duration"`
	Price             decimal.Decimal `json:"price"`
	StopPrice         decimal.Decimal `json:"stop_price"`
	AvgFillPrice      decimal.Decimal `json:"avg_fill_price"`
	ExecQuantity      decimal.Decimal `json:"exec_quantity"`
	LastFillPrice     decimal.Decimal `json:"last_fill_price"`
	LastFillQuantity  decimal.Decimal `json:"last_fill_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	CreateDate        string          `json:"create_date"`
	TransactionDate   string          `json:"transaction_date"`
	Class             string          `json:"class"`
	Tag               string          `json:"tag,omitempty"`
	Strategy          string          `json:"strategy,omitempty"`
	NumLegs           int             `json:"num_legs,omitempty"`
	ReasonDescription string          `json:"reason_description,omitempty"`
	Legs              []Order         `json:"leg"`
}

// OrderConfirmation is returned when an order is placed, changed or
// cancelled. Preview requests fill the cost fields instead of ID.
type OrderConfirmation struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	PartnerID string `json:"partner_id,omitempty"`

	Result       bool            `json:"result,omitempty"`
	Commission   decimal.Decimal `json:"commission"`
	Cost         decimal.Decimal `json:"cost"`
	Fees         decimal.Decimal `json:"fees"`
	OrderCost    decimal.Decimal `json:"order_cost"`
	MarginChange decimal.Decimal `json:"margin_change"`
}

// =============================================================================
// Market Data Types
// =============================================================================

// Quote is a market quote. Option quotes also carry the contract fields and,
// when requested, Greeks.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Description      string          `json:"description"`
	Exch             string          `json:"exch"`
	Type             string          `json:"type"`
	Last             decimal.Decimal `json:"last"`
	Change           decimal.Decimal `json:"change"`
	ChangePercentage decimal.Decimal `json:"change_percentage"`
	Volume           int64           `json:"volume"`
	AverageVolume    int64           `json:"average_volume"`
	LastVolume       int64           `json:"last_volume"`
	TradeDate        int64           `json:"trade_date"`
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	Close            decimal.Decimal `json:"close"`
	PrevClose        decimal.Decimal `json:"prevclose"`
	Week52High       decimal.Decimal `json:"week_52_high"`
	Week52Low        decimal.Decimal `json:"week_52_low"`
	Bid              decimal.Decimal `json:"bid"`
	BidSize          int64           `json:"bidsize"`
	BidExch          string          `json:"bidexch"`
	BidDate          int64           `json:"bid_date"`
	Ask              decimal.Decimal `json:"ask"`
	AskSize          int64           `json:"asksize"`
	AskExch          string          `json:"askexch"`
	AskDate          int64           `json:"ask_date"`
	RootSymbols      string          `json:"root_symbols,omitempty"`

	Underlying     string          `json:"underlying,omitempty"`
	Strike         decimal.Decimal `json:"strike"`
	OpenInterest   int64           `json:"open_interest,omitempty"`
	ContractSize   int             `json:"contract_size,omitempty"`
	ExpirationDate string          `json:"expiration_date,omitempty"`
	ExpirationType string          `json:"expiration_type,omitempty"`
	OptionType     string          `json:"option_type,omitempty"`
	RootSymbol     string          `json:"root_symbol,omitempty"`
	Greeks         *Greeks         `json:"greeks,omitempty"`
}

// Greeks are the option sensitivities supplied by ORATS.
type Greeks struct {
	Delta     decimal.Decimal `json:"delta"`
	Gamma     decimal.Decimal `json:"gamma"`
	Theta     decimal.Decimal `json:"theta"`
	Vega      decimal.Decimal `json:"vega"`
	Rho       decimal.Decimal `json:"rho"`
	Phi       decimal.Decimal `json:"phi"`
	BidIV     decimal.Decimal `json:"bid_iv"`
	MidIV     decimal.Decimal `json:"mid_iv"`
	AskIV     decimal.Decimal `json:"ask_iv"`
	SmvVol    decimal.Decimal `json:"smv_vol"`
	UpdatedAt string          `json:"updated_at"`
}

// Bar is one daily, weekly or monthly OHLCV aggregate.
type Bar struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// TimeSale is one intraday aggregate.
type TimeSale struct {
	Time      string          `json:"time"`
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap"`
}

// Clock is the current market state.
type Clock struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	State       string `json:"state"`
	Timestamp   int64  `json:"timestamp"`
	NextChange  string `json:"next_change"`
	NextState   string `json:"next_state"`
}

// CalendarDay is one day of the market calendar.
type CalendarDay struct {
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Premarket   *Session `json:"premarket,omitempty"`
	Open        *Session `json:"open,omitempty"`
	Postmarket  *Session `json:"postmarket,omitempty"`
}

// Session is a start/end pair in exchange local time ("09:30").
type Session struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Security is a symbol lookup or search hit.
type Security struct {
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// =============================================================================
// Options Types
// =============================================================================

// Expiration is an option expiration date with its strikes.
type Expiration struct {
	Date           string     `json:"date"`
	ContractSize   int        `json:"contract_size"`
	ExpirationType string     `json:"expiration_type"`
	Strikes        StrikeList `json:"strikes"`
}

// StrikeList mirrors the {"strike": [...]} wrapper used by the API.
type StrikeList struct {
	Strike []decimal.Decimal `json:"strike"`
}
