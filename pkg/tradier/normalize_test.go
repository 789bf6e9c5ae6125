package tradier

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestCoerceLists(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		paths    []string
		expected string
	}{
		{
			name:     "single object wrapped",
			input:    `{"quotes":{"quote":{"symbol":"AAPL"}}}`,
			paths:    []string{"quotes.quote"},
			expected: `{"quotes":{"quote":[{"symbol":"AAPL"}]}}`,
		},
		{
			name:     "list unchanged",
			input:    `{"quotes":{"quote":[{"symbol":"AAPL"},{"symbol":"MSFT"}]}}`,
			paths:    []string{"quotes.quote"},
			expected: `{"quotes":{"quote":[{"symbol":"AAPL"},{"symbol":"MSFT"}]}}`,
		},
		{
			name:     "null string parent",
			input:    `{"positions":"null"}`,
			paths:    []string{"positions.position"},
			expected: `{"positions":{"position":[]}}`,
		},
		{
			name:     "null parent",
			input:    `{"history":null}`,
			paths:    []string{"history.event"},
			expected: `{"history":{"event":[]}}`,
		},
		{
			name:     "missing leaf",
			input:    `{"quotes":{}}`,
			paths:    []string{"quotes.quote"},
			expected: `{"quotes":{"quote":[]}}`,
		},
		{
			name:     "scalar wrapped",
			input:    `{"strikes":{"strike":150.0}}`,
			paths:    []string{"strikes.strike"},
			expected: `{"strikes":{"strike":[150.0]}}`,
		},
		{
			name:  "nested through arrays",
			input: `{"expirations":{"expiration":{"date":"2024-01-19","strikes":{"strike":100}}}}`,
			paths: []string{"expirations.expiration", "expirations.expiration.strikes.strike"},
			expected: `{"expirations":{"expiration":[{"date":"2024-01-19","strikes":{"strike":[100]}}]}}`,
		},
		{
			name:     "nested legs",
			input:    `{"orders":{"order":[{"id":1,"leg":{"id":2}},{"id":3}]}}`,
			paths:    []string{"orders.order", "orders.order.leg"},
			expected: `{"orders":{"order":[{"id":1,"leg":[{"id":2}]},{"id":3,"leg":[]}]}}`,
		},
		{
			name:     "null document",
			input:    `null`,
			paths:    []string{"quotes.quote"},
			expected: `{"quotes":{"quote":[]}}`,
		},
		{
			name:     "no paths",
			input:    `{"clock":{"state":"open"}}`,
			expected: `{"clock":{"state":"open"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceLists(decodeAny(t, tt.input), tt.paths...)
			assert.Equal(t, decodeAny(t, tt.expected), got)
		})
	}
}

func TestCoerceLists_Idempotent(t *testing.T) {
	inputs := []string{
		`{"quotes":{"quote":{"symbol":"AAPL"}}}`,
		`{"positions":"null"}`,
		`{"orders":{"order":{"id":1,"leg":{"id":2}}}}`,
		`{"quotes":{"quote":[{"symbol":"AAPL"}],"unmatched_symbols":{"symbol":"XYZ"}}}`,
	}
	paths := []string{"quotes.quote", "quotes.unmatched_symbols.symbol", "positions.position", "orders.order", "orders.order.leg"}

	for _, in := range inputs {
		once := CoerceLists(decodeAny(t, in), paths...)
		onceJSON, err := json.Marshal(once)
		require.NoError(t, err)

		twice := CoerceLists(decodeAny(t, string(onceJSON)), paths...)
		assert.Equal(t, once, twice, in)
	}
}

func TestNormalize_Success(t *testing.T) {
	raw := &RawResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"quotes":{"quote":{"symbol":"AAPL","last":150.25}}}`),
		Attempts:   2,
	}

	result, err := Normalize(raw, []string{"quotes.quote"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)

	var out struct {
		Quotes struct {
			Quote []Quote `json:"quote"`
		} `json:"quotes"`
	}
	require.NoError(t, result.Decode(&out))
	require.Len(t, out.Quotes.Quote, 1)
	assert.Equal(t, "AAPL", out.Quotes.Quote[0].Symbol)
	assert.Equal(t, "150.25", out.Quotes.Quote[0].Last.String())
}

func TestNormalize_PreservesNumberPrecision(t *testing.T) {
	raw := &RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"v":0.1234567890123456789}`)}

	result, err := Normalize(raw, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":0.1234567890123456789}`, string(result.Payload))
}

func TestNormalize_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{status: 400, body: `{"errors":{"error":"Invalid Parameter: symbol"}}`, kind: KindClientError, message: "Invalid Parameter: symbol"},
		{status: 401, body: `Invalid Access Token`, kind: KindAuth, message: "Invalid Access Token"},
		{status: 403, body: ``, kind: KindAuth},
		{status: 404, body: `{"errors":{"error":["Not found","Really"]}}`, kind: KindNotFound, message: "Not found; Really"},
		{status: 429, body: `{"fault":{"faultstring":"Rate limit quota violation","detail":{"errorcode":"policies.ratelimit.QuotaViolation"}}}`, kind: KindRateLimited, message: "Rate limit quota violation"},
		{status: 503, body: `<html>unavailable</html>`, kind: KindServerError},
		{status: 302, body: ``, kind: KindClientError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			_, err := Normalize(&RawResponse{StatusCode: tt.status, Body: []byte(tt.body), Attempts: 1}, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.body, apiErr.RawBody)
			assert.Equal(t, 1, apiErr.Attempts)
			if tt.message != "" {
				assert.Equal(t, tt.message, apiErr.Message)
			}
		})
	}
}

func TestNormalize_ParseError(t *testing.T) {
	body := `{"quotes": {"quote": `

	_, err := Normalize(&RawResponse{StatusCode: http.StatusOK, Body: []byte(body)}, []string{"quotes.quote"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindParse, apiErr.Kind)
	assert.Equal(t, body, apiErr.RawBody)
}

func TestNormalize_TruncatedBody(t *testing.T) {
	body := `{"history":{"day":[`

	_, err := Normalize(&RawResponse{StatusCode: http.StatusOK, Body: []byte(body), Truncated: true, Attempts: 1}, []string{"history.day"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindParse, apiErr.Kind)
	assert.Equal(t, "response body exceeds 19 bytes", apiErr.Message)
	assert.Equal(t, body, apiErr.RawBody)
	assert.Equal(t, 1, apiErr.Attempts)
}

func TestNormalize_TrailingGarbage(t *testing.T) {
	_, err := Normalize(&RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"a":1} {"b":2}`)}, nil)
	assert.Equal(t, KindParse, KindOf(err))
}

func TestNormalize_EmptyBody(t *testing.T) {
	result, err := Normalize(&RawResponse{StatusCode: http.StatusOK}, []string{"quotes.quote"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"quotes":{"quote":[]}}`, string(result.Payload))
}

func TestResult_DecodeMismatch(t *testing.T) {
	result, err := Normalize(&RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"clock":"open"}`)}, nil)
	require.NoError(t, err)

	var out struct {
		Clock Clock `json:"clock"`
	}
	err = result.Decode(&out)
	require.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
}
