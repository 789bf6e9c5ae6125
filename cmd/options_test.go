package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonandersen/tradier/pkg/tradier"
)

func executeOptionsCmd(t *testing.T, opts *clientOptions, args ...string) (string, error) {
	t.Helper()

	cmd := newOptionsCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

const testChainBody = `{
	"options": {
		"option": [
			{"symbol": "AAPL250117C00180000", "option_type": "call", "strike": 180, "bid": 1.10, "ask": 1.20, "last": 1.15, "volume": 900, "open_interest": 4000,
			 "greeks": {"delta": 0.32, "theta": -0.045, "mid_iv": 0.251}},
			{"symbol": "AAPL250117C00170000", "option_type": "call", "strike": 170, "bid": 6.00, "ask": 6.20, "last": 6.10, "volume": 50, "open_interest": 1200},
			{"symbol": "AAPL250117C00175000", "option_type": "call", "strike": 175, "bid": 3.00, "ask": 3.10, "last": 3.05, "volume": 1500, "open_interest": 8000},
			{"symbol": "AAPL250117P00175000", "option_type": "put", "strike": 175, "bid": 2.50, "ask": 2.60, "last": 2.55, "volume": 700, "open_interest": 6000}
		]
	}
}`

func TestOptionsExpirationsCmd_Success(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/options/expirations", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "false", r.URL.Query().Get("includeAllRoots"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, `{
			"expirations": {
				"expiration": [
					{"date": "2025-01-17", "contract_size": 100, "expiration_type": "standard", "strikes": {"strike": [170, 175, 180]}},
					{"date": "2025-01-24", "contract_size": 100, "expiration_type": "weeklys", "strikes": {"strike": 175}}
				]
			}
		}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "expirations", "aapl")
	require.NoError(t, err)

	assert.Contains(t, out, "2025-01-17")
	assert.Contains(t, out, "3 (170.00 - 180.00)")
	assert.Contains(t, out, "2025-01-24")
	assert.Contains(t, out, "1 (175.00 - 175.00)")
	assert.Contains(t, out, "weeklys")
}

func TestOptionsExpirationsCmd_SingleExpirationJSON(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("includeAllRoots"))
		writeJSON(w, http.StatusOK, `{"expirations":{"expiration":{"date":"2025-01-17","contract_size":100,"strikes":{"strike":4700}}}}`)
	}, true)

	out, err := executeOptionsCmd(t, opts, "expirations", "SPX", "--all-roots")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-01-17", rows[0]["Expiration"])
}

func TestOptionsExpirationsCmd_NoExpirations(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"expirations":null}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "expirations", "XYZ")
	require.NoError(t, err)
	assert.Contains(t, out, "No option expirations found for XYZ")
}

func TestOptionsExpirationsCmd_APIError(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"fault":{"faultstring":"Invalid Access Token"}}`)
	}, false)

	_, err := executeOptionsCmd(t, opts, "expirations", "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch expirations")
	assert.Equal(t, tradier.KindAuth, tradier.KindOf(err))
}

func TestOptionsChainCmd_Success(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/options/chains", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2025-01-17", r.URL.Query().Get("expiration"))
		assert.Equal(t, "false", r.URL.Query().Get("greeks"))

		writeJSON(w, http.StatusOK, testChainBody)
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "aapl", "--expiration", "2025-01-17")
	require.NoError(t, err)

	assert.Contains(t, out, "Option Chain for AAPL - Expiration: 2025-01-17")
	assert.Contains(t, out, "CALLS")
	assert.Contains(t, out, "PUTS")
	assert.Contains(t, out, "AAPL250117C00175000")
	assert.Contains(t, out, "8,000")
	assert.NotContains(t, out, "Delta")

	// Calls are listed by ascending strike.
	assert.Less(t, bytes.Index([]byte(out), []byte("C00170000")), bytes.Index([]byte(out), []byte("C00180000")))
}

func TestOptionsChainCmd_Greeks(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("greeks"))
		writeJSON(w, http.StatusOK, testChainBody)
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "AAPL", "-e", "2025-01-17", "--greeks", "--calls")
	require.NoError(t, err)

	assert.Contains(t, out, "Delta")
	assert.Contains(t, out, "0.320")
	assert.Contains(t, out, "-0.045")
	assert.Contains(t, out, "25.10%")
	assert.NotContains(t, out, "PUTS")
}

func TestOptionsChainCmd_StrikeFilters(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testChainBody)
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "AAPL", "-e", "2025-01-17", "--min-strike", "172.5", "--max-strike", "178", "--calls")
	require.NoError(t, err)

	assert.Contains(t, out, "AAPL250117C00175000")
	assert.NotContains(t, out, "AAPL250117C00170000")
	assert.NotContains(t, out, "AAPL250117C00180000")
}

func TestOptionsChainCmd_StrikesAroundATM(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/markets/options/chains":
			writeJSON(w, http.StatusOK, testChainBody)
		case "/v1/markets/quotes":
			assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
			writeJSON(w, http.StatusOK, `{"quotes":{"quote":{"symbol":"AAPL","last":179.2}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "AAPL", "-e", "2025-01-17", "--strikes", "1", "--calls")
	require.NoError(t, err)

	assert.Contains(t, out, "AAPL250117C00180000")
	assert.NotContains(t, out, "AAPL250117C00175000")
}

func TestOptionsChainCmd_JSON(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testChainBody)
	}, true)

	out, err := executeOptionsCmd(t, opts, "chain", "AAPL", "-e", "2025-01-17", "--puts")
	require.NoError(t, err)

	var result struct {
		Symbol string `json:"symbol"`
		Calls  []any  `json:"calls"`
		Puts   []struct {
			Symbol string `json:"symbol"`
		} `json:"puts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "AAPL", result.Symbol)
	assert.NotNil(t, result.Calls)
	assert.Empty(t, result.Calls)
	require.Len(t, result.Puts, 1)
	assert.Equal(t, "AAPL250117P00175000", result.Puts[0].Symbol)
}

func TestOptionsChainCmd_SingleContract(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"options":{"option":{"symbol":"XYZ250117C00010000","option_type":"call","strike":10}}}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "XYZ", "-e", "2025-01-17")
	require.NoError(t, err)
	assert.Contains(t, out, "XYZ250117C00010000")
}

func TestOptionsChainCmd_EmptyChain(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"options":null}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "chain", "AAPL", "-e", "2025-01-17")
	require.NoError(t, err)
	assert.Contains(t, out, "No options available for AAPL expiring 2025-01-17")
}

func TestOptionsChainCmd_FlagErrors(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, false)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing expiration", args: []string{"chain", "AAPL"}, wantErr: "expiration date is required"},
		{name: "bad expiration", args: []string{"chain", "AAPL", "-e", "01/17/2025"}, wantErr: "invalid expiration date"},
		{name: "calls and puts", args: []string{"chain", "AAPL", "-e", "2025-01-17", "--calls", "--puts"}, wantErr: "cannot be used together"},
		{name: "bad strike", args: []string{"chain", "AAPL", "-e", "2025-01-17", "--min-strike", "abc"}, wantErr: "invalid minimum strike"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeOptionsCmd(t, opts, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsStrikesCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/options/strikes", r.URL.Path)
		assert.Equal(t, "2025-01-17", r.URL.Query().Get("expiration"))
		writeJSON(w, http.StatusOK, `{"strikes":{"strike":[170.0,172.5,175.0]}}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "strikes", "AAPL", "-e", "2025-01-17")
	require.NoError(t, err)

	assert.Contains(t, out, "170.00")
	assert.Contains(t, out, "172.50")
	assert.Contains(t, out, "175.00")
}

func TestOptionsSymbolCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testChainBody)
	}, false)

	out, err := executeOptionsCmd(t, opts, "symbol", "AAPL", "2025-01-17", "175", "put")
	require.NoError(t, err)
	assert.Equal(t, "AAPL250117P00175000\n", out)
}

func TestOptionsSymbolCmd_NotFound(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testChainBody)
	}, false)

	_, err := executeOptionsCmd(t, opts, "symbol", "AAPL", "2025-01-17", "190", "call")
	require.Error(t, err)
	assert.Equal(t, tradier.KindNotFound, tradier.KindOf(err))
}

func TestOptionsMultilegCmd_Success(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/VA000001/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "multileg", r.PostForm.Get("class"))
		assert.Equal(t, "AAPL", r.PostForm.Get("symbol"))
		assert.Equal(t, "debit", r.PostForm.Get("type"))
		assert.Equal(t, "2.10", r.PostForm.Get("price"))
		assert.Equal(t, "AAPL250117C00175000", r.PostForm.Get("option_symbol[0]"))
		assert.Equal(t, "buy_to_open", r.PostForm.Get("side[0]"))
		assert.Equal(t, "1", r.PostForm.Get("quantity[0]"))
		assert.Equal(t, "AAPL250117C00180000", r.PostForm.Get("option_symbol[1]"))
		assert.Equal(t, "sell_to_open", r.PostForm.Get("side[1]"))
		assert.Equal(t, "2", r.PostForm.Get("quantity[1]"))

		writeJSON(w, http.StatusOK, `{"order":{"id":902,"status":"ok"}}`)
	}, false)

	out, err := executeOptionsCmd(t, opts, "multileg", "AAPL",
		"--type", "debit", "--price", "2.10",
		"--leg", "buy_to_open aapl250117c00175000",
		"--leg", "SELL_TO_OPEN AAPL250117C00180000 2",
		"--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Order submitted!")
	assert.Contains(t, out, "902")
}

func TestOptionsMultilegCmd_Errors(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, false)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "one leg",
			args:    []string{"multileg", "AAPL", "--leg", "buy_to_open AAPL250117C00175000", "--yes"},
			wantErr: "at least two --leg flags",
		},
		{
			name:    "no confirmation",
			args:    []string{"multileg", "AAPL", "--leg", "buy_to_open AAPL250117C00175000", "--leg", "sell_to_open AAPL250117C00180000"},
			wantErr: "requires confirmation",
		},
		{
			name:    "debit without price",
			args:    []string{"multileg", "AAPL", "--type", "debit", "--leg", "buy_to_open AAPL250117C00175000", "--leg", "sell_to_open AAPL250117C00180000", "--yes"},
			wantErr: "price is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeOptionsCmd(t, opts, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLeg(t *testing.T) {
	tests := []struct {
		input   string
		want    tradier.Leg
		wantErr bool
	}{
		{
			input: "buy_to_open SPY250117C00470000",
			want:  tradier.Leg{OptionSymbol: "SPY250117C00470000", Side: "buy_to_open", Quantity: decimal.NewFromInt(1)},
		},
		{
			input: "SELL_TO_CLOSE spy250117p00460000 3",
			want:  tradier.Leg{OptionSymbol: "SPY250117P00460000", Side: "sell_to_close", Quantity: decimal.NewFromInt(3)},
		},
		{input: "buy SPY250117C00470000", wantErr: true},
		{input: "buy_to_open SPY", wantErr: true},
		{input: "buy_to_open SPY250117C00470000 1.5", wantErr: true},
		{input: "buy_to_open", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLeg(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.OptionSymbol, got.OptionSymbol)
			assert.Equal(t, tt.want.Side, got.Side)
			assert.True(t, tt.want.Quantity.Equal(got.Quantity))
		})
	}
}

func strikeQuotes(strikes ...int64) []tradier.Quote {
	out := make([]tradier.Quote, 0, len(strikes))
	for _, s := range strikes {
		out = append(out, tradier.Quote{Strike: decimal.NewFromInt(s)})
	}
	return out
}

func TestFilterOptions(t *testing.T) {
	contracts := strikeQuotes(160, 170, 180, 190)
	contracts[1].OpenInterest = 500
	contracts[2].OpenInterest = 50
	contracts[2].Volume = 10

	got := filterOptions(contracts, chainFilter{minStrike: decimal.NewFromInt(165), maxStrike: decimal.NewFromInt(185)})
	require.Len(t, got, 2)
	assert.True(t, got[0].Strike.Equal(decimal.NewFromInt(170)))

	got = filterOptions(contracts, chainFilter{minOI: 100})
	require.Len(t, got, 1)
	assert.True(t, got[0].Strike.Equal(decimal.NewFromInt(170)))

	got = filterOptions(contracts, chainFilter{minVolume: 5})
	require.Len(t, got, 1)
	assert.True(t, got[0].Strike.Equal(decimal.NewFromInt(180)))
}

func TestFilterStrikesAroundATM(t *testing.T) {
	contracts := strikeQuotes(150, 155, 160, 165, 170, 175, 180)

	got := filterStrikesAroundATM(contracts, 3, decimal.NewFromInt(166))
	require.Len(t, got, 3)
	assert.True(t, got[0].Strike.Equal(decimal.NewFromInt(160)))
	assert.True(t, got[2].Strike.Equal(decimal.NewFromInt(170)))

	// Clamped at the low end.
	got = filterStrikesAroundATM(contracts, 4, decimal.NewFromInt(140))
	require.Len(t, got, 4)
	assert.True(t, got[0].Strike.Equal(decimal.NewFromInt(150)))

	// Clamped at the high end.
	got = filterStrikesAroundATM(contracts, 4, decimal.NewFromInt(200))
	require.Len(t, got, 4)
	assert.True(t, got[3].Strike.Equal(decimal.NewFromInt(180)))

	assert.Len(t, filterStrikesAroundATM(contracts, 10, decimal.NewFromInt(160)), 7)
	assert.Empty(t, filterStrikesAroundATM(nil, 3, decimal.NewFromInt(160)))
}
