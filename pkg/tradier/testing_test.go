package tradier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testAccount = "VA000001"
	testToken   = "test-token"
)

// newTestClient returns a client pointed at a mock server. Retries are
// immediate so tests never sleep.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*Config)) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		AccountID:   testAccount,
		AccessToken: testToken,
		Environment: Sandbox,
		BaseURL:     server.URL,
		Timeout:     2 * time.Second,
		RetryPolicy: &RetryPolicy{
			MaxAttempts:         3,
			RetryableStatus:     DefaultRetryableStatus(),
			RetryOnNetworkError: true,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	client.executor.sleep = noSleep
	return client
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
