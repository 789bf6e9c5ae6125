package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeOrderCmd(t *testing.T, opts *clientOptions, args ...string) (string, error) {
	t.Helper()

	cmd := newOrderCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestOrderBuyCmd_Market(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/VA000001/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "equity", r.PostForm.Get("class"))
		assert.Equal(t, "AAPL", r.PostForm.Get("symbol"))
		assert.Equal(t, "buy", r.PostForm.Get("side"))
		assert.Equal(t, "10", r.PostForm.Get("quantity"))
		assert.Equal(t, "market", r.PostForm.Get("type"))
		assert.Equal(t, "day", r.PostForm.Get("duration"))
		_, err := uuid.Parse(r.PostForm.Get("tag"))
		assert.NoError(t, err, "tag defaults to a generated UUID")
		assert.Empty(t, r.PostForm.Get("preview"))

		writeJSON(w, http.StatusOK, `{"order":{"id":257459,"status":"ok","partner_id":"c4998eb7"}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "buy", "aapl", "10", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Order Preview:")
	assert.Contains(t, out, "Order submitted!")
	assert.Contains(t, out, "257459")
}

func TestOrderSellCmd_StopLimitShort(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sell_short", r.PostForm.Get("side"))
		assert.Equal(t, "stop_limit", r.PostForm.Get("type"))
		assert.Equal(t, "144.00", r.PostForm.Get("price"))
		assert.Equal(t, "145.00", r.PostForm.Get("stop"))
		assert.Equal(t, "gtc", r.PostForm.Get("duration"))
		assert.Equal(t, "my-tag-1", r.PostForm.Get("tag"))

		writeJSON(w, http.StatusOK, `{"order":{"id":1,"status":"ok"}}`)
	}, false)

	_, err := executeOrderCmd(t, opts, "sell", "AAPL", "5",
		"--limit", "144", "--stop", "145", "--duration", "GTC", "--tag", "my-tag-1", "--short", "--yes")
	require.NoError(t, err)
}

func TestOrderBuyCmd_RequiresConfirmation(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without --yes")
	}, false)

	out, err := executeOrderCmd(t, opts, "buy", "AAPL", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Contains(t, out, "Order Preview:")
}

func TestOrderBuyCmd_Preview(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("preview"))
		writeJSON(w, http.StatusOK, `{"order":{"status":"ok","commission":0,"cost":1751.0,"fees":0,"order_cost":1751.0,"margin_change":0,"result":true}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "buy", "AAPL", "10", "--limit", "175.10", "--preview")
	require.NoError(t, err)

	assert.Contains(t, out, "Total Cost")
	assert.Contains(t, out, "$1751.00")
	assert.NotContains(t, out, "Order submitted!")
}

func TestOrderBuyCmd_InvalidQuantity(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, false)

	_, err := executeOrderCmd(t, opts, "buy", "AAPL", "ten", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantity")

	_, err = executeOrderCmd(t, opts, "buy", "AAPL", "0", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity must be positive")
}

func TestOrderBuyCmd_NotRetriedOnServerError(t *testing.T) {
	var calls atomic.Int32
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadGateway, ``)
	}, false)

	_, err := executeOrderCmd(t, opts, "buy", "AAPL", "1", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to place order")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOrderOptionCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "option", r.PostForm.Get("class"))
		assert.Equal(t, "SPY", r.PostForm.Get("symbol"))
		assert.Equal(t, "SPY240119C00470000", r.PostForm.Get("option_symbol"))
		assert.Equal(t, "buy_to_open", r.PostForm.Get("side"))
		assert.Equal(t, "limit", r.PostForm.Get("type"))
		assert.Equal(t, "5.10", r.PostForm.Get("price"))
		writeJSON(w, http.StatusOK, `{"order":{"id":42,"status":"ok"}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "option", "buy_to_open", "spy240119c00470000", "1", "--limit", "5.1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "42")
}

func TestOccRoot(t *testing.T) {
	root, err := occRoot("SPY240119C00470000")
	require.NoError(t, err)
	assert.Equal(t, "SPY", root)

	_, err = occRoot("SPY")
	assert.Error(t, err)
}

func TestOrderListCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/VA000001/orders", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("includeTags"))
		writeJSON(w, http.StatusOK, `{"orders":{"order":{"id":228175,"type":"limit","symbol":"AAPL","side":"buy","quantity":10,"status":"open","price":175,"exec_quantity":0,"create_date":"2024-01-15T14:30:00.000Z","class":"equity"}}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "228175")
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "$175.00")
}

func TestOrderListCmd_Empty(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"orders":"null"}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No orders")
}

func TestOrderStatusCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/VA000001/orders/228175", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"order":{"id":228175,"type":"market","symbol":"AAPL","side":"buy","quantity":10,"status":"filled","exec_quantity":10,"avg_fill_price":175.02,"class":"equity","tag":"my-tag"}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "status", "228175")
	require.NoError(t, err)

	assert.Contains(t, out, "filled")
	assert.Contains(t, out, "$175.02")
	assert.Contains(t, out, "my-tag")
}

func TestOrderStatusCmd_JSON(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"order":{"id":7,"status":"open","class":"multileg","leg":{"option_symbol":"SPY240119C00470000","side":"buy_to_open"}}}`)
	}, true)

	out, err := executeOrderCmd(t, opts, "status", "7")
	require.NoError(t, err)

	var result struct {
		ID   int64 `json:"id"`
		Legs []struct {
			OptionSymbol string `json:"option_symbol"`
		} `json:"leg"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(7), result.ID)
	require.Len(t, result.Legs, 1)
	assert.Equal(t, "SPY240119C00470000", result.Legs[0].OptionSymbol)
}

func TestOrderStatusCmd_InvalidID(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, false)

	_, err := executeOrderCmd(t, opts, "status", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid order ID")
}

func TestOrderModifyCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "179.50", r.PostForm.Get("price"))
		writeJSON(w, http.StatusOK, `{"order":{"id":228175,"status":"ok"}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "modify", "228175", "--limit", "179.5", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "228175")
}

func TestOrderCancelCmd(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/accounts/VA000001/orders/228175", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"order":{"id":228175,"status":"ok"}}`)
	}, false)

	out, err := executeOrderCmd(t, opts, "cancel", "228175", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Cancel request submitted!")
	assert.Contains(t, out, "trd order status 228175")
}

func TestOrderCancelCmd_RequiresConfirmation(t *testing.T) {
	opts := newTestOptions(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without --yes")
	}, false)

	_, err := executeOrderCmd(t, opts, "cancel", "228175")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}
