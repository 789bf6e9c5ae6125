package tradier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 10 * time.Second

	defaultResponseBodyLimit int64 = 10 << 20
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawResponse is the unparsed outcome of the final attempt. Truncated is set
// when the body was longer than the executor's limit; Body then holds only
// the first limit bytes.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Truncated  bool
}

// Executor sends PreparedRequests, retrying according to its policy.
// It holds no mutable state and is safe for concurrent use.
type Executor struct {
	HTTP    HTTPDoer
	Policy  *RetryPolicy
	Timeout time.Duration
	Logger  logrus.FieldLogger

	// MaxBodyBytes caps how much of a response body is read. Zero means
	// 10 MiB.
	MaxBodyBytes int64

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor returns an executor with the given client and policy. Nil
// arguments fall back to defaults.
func NewExecutor(doer HTTPDoer, policy *RetryPolicy, timeout time.Duration, logger logrus.FieldLogger) *Executor {
	if doer == nil {
		doer = &http.Client{}
	}
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Executor{
		HTTP:    doer,
		Policy:  policy,
		Timeout: timeout,
		Logger:  logger,
		sleep:   sleepContext,
	}
}

// Execute performs the request. It returns a RawResponse for any HTTP
// status, or a *TransportError when no usable response was received. A
// retryable status still returned by the last of several attempts is
// reported as ReasonExhaustedRetries wrapping the *APIError for that
// response. Non-retryable requests are sent at most once.
func (e *Executor) Execute(ctx context.Context, req *PreparedRequest) (*RawResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	policy := e.Policy
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	logger := e.Logger
	if logger == nil {
		logger = discardLogger()
	}

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if !req.Retryable {
		maxAttempts = 1
	}

	log := logger.WithFields(logrus.Fields{
		"call_id": uuid.NewString(),
		"method":  req.Method,
		"path":    requestPath(req.URL),
	})

	sleep := e.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var wait time.Duration
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			log.WithFields(logrus.Fields{"attempt": attempt, "delay": wait}).Warn("retrying request")
			if err := sleep(ctx, wait); err != nil {
				return nil, &TransportError{Reason: ReasonCanceled, Attempts: attempt - 1, Err: err}
			}
		}

		raw, err := e.attempt(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TransportError{Reason: ReasonCanceled, Attempts: attempt, Err: ctx.Err()}
			}
			reason := classify(err)
			log.WithFields(logrus.Fields{"attempt": attempt, "reason": reason}).WithError(err).Debug("request attempt failed")

			if !req.Retryable || !policy.RetryOnNetworkError {
				return nil, &TransportError{Reason: reason, Attempts: attempt, Err: err}
			}
			if attempt >= maxAttempts {
				return nil, &TransportError{Reason: ReasonExhaustedRetries, Last: reason, Attempts: attempt, Err: err}
			}
			wait = policy.Delay(attempt + 1)
			continue
		}

		raw.Attempts = attempt
		log.WithFields(logrus.Fields{"attempt": attempt, "status": raw.StatusCode}).Debug("request completed")

		if policy.ShouldRetryStatus(raw.StatusCode) {
			if attempt < maxAttempts {
				wait = policy.waitFor(attempt+1, raw.Header, time.Now())
				continue
			}
			if maxAttempts > 1 {
				apiErr := newStatusError(raw.StatusCode, raw.Body)
				apiErr.Attempts = attempt
				return nil, &TransportError{
					Reason:     ReasonExhaustedRetries,
					LastStatus: raw.StatusCode,
					Attempts:   attempt,
					Err:        apiErr,
				}
			}
		}
		return raw, nil
	}
}

// attempt sends the request once under the per-attempt timeout and reads the
// whole body before the attempt context is released.
func (e *Executor) attempt(ctx context.Context, req *PreparedRequest) (*RawResponse, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	doer := e.HTTP
	if doer == nil {
		doer = http.DefaultClient
	}
	resp, err := doer.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	limit := e.MaxBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	truncated := int64(len(data)) > limit
	if truncated {
		data = data[:limit]
	}

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Truncated:  truncated,
	}, nil
}

func requestPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

func classify(err error) TransportReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonConnection
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
