package tradier

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy decides how many times and how often a retryable request is
// attempted. A policy is read-only once handed to a client and may be shared
// between goroutines.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt. Must be at least 1.
	MaxAttempts int

	// Backoff[i] is the wait before attempt i+2. The last entry repeats when
	// the schedule is shorter than MaxAttempts-1. Must be non-decreasing.
	Backoff []time.Duration

	// RetryableStatus lists the HTTP status codes that trigger a retry.
	RetryableStatus map[int]bool

	// RetryOnNetworkError retries timeouts and connection failures.
	RetryOnNetworkError bool

	// RespectRetryAfter waits at least as long as a Retry-After header asks,
	// capped at MaxRetryAfter.
	RespectRetryAfter bool
	MaxRetryAfter     time.Duration
}

// DefaultRetryPolicy retries 429 and 5xx responses and network failures up
// to three attempts.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:         3,
		Backoff:             []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second},
		RetryableStatus:     DefaultRetryableStatus(),
		RetryOnNetworkError: true,
		RespectRetryAfter:   true,
		MaxRetryAfter:       10 * time.Second,
	}
}

// NoRetryPolicy sends every request exactly once.
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// DefaultRetryableStatus returns 429 and 500-599.
func DefaultRetryableStatus() map[int]bool {
	codes := map[int]bool{http.StatusTooManyRequests: true}
	for code := 500; code <= 599; code++ {
		codes[code] = true
	}
	return codes
}

// ExponentialBackoff returns n delays starting at base and doubling up to max.
func ExponentialBackoff(base, max time.Duration, n int) []time.Duration {
	if n <= 0 || base <= 0 {
		return nil
	}
	delays := make([]time.Duration, n)
	delay := base
	for i := range delays {
		if max > 0 && delay > max {
			delay = max
		}
		delays[i] = delay
		delay *= 2
	}
	return delays
}

// Validate checks the invariants of the policy.
func (p *RetryPolicy) Validate() error {
	if p == nil {
		return &ConfigError{Field: "retry", Message: "retry policy is nil"}
	}
	if p.MaxAttempts < 1 {
		return &ConfigError{Field: "retry.max_attempts", Message: fmt.Sprintf("must be at least 1, got %d", p.MaxAttempts)}
	}
	for i, d := range p.Backoff {
		if d < 0 {
			return &ConfigError{Field: "retry.backoff", Message: fmt.Sprintf("delay %d is negative", i)}
		}
		if i > 0 && d < p.Backoff[i-1] {
			return &ConfigError{Field: "retry.backoff", Message: fmt.Sprintf("delay %d (%s) is shorter than delay %d (%s)", i, d, i-1, p.Backoff[i-1])}
		}
	}
	return nil
}

// Delay returns the wait before the given attempt (2 for the first retry).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 || attempt < 2 {
		return 0
	}
	idx := attempt - 2
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

// ShouldRetryStatus reports whether a response status is retryable.
func (p *RetryPolicy) ShouldRetryStatus(status int) bool {
	return p.RetryableStatus[status]
}

// waitFor combines the scheduled delay with a Retry-After hint.
func (p *RetryPolicy) waitFor(attempt int, header http.Header, now time.Time) time.Duration {
	delay := p.Delay(attempt)
	if !p.RespectRetryAfter || header == nil {
		return delay
	}
	hint, ok := parseRetryAfter(header.Get("Retry-After"), now)
	if !ok {
		return delay
	}
	if p.MaxRetryAfter > 0 && hint > p.MaxRetryAfter {
		hint = p.MaxRetryAfter
	}
	if hint > delay {
		return hint
	}
	return delay
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(raw); err == nil && at.After(now) {
		return at.Sub(now), true
	}
	return 0, false
}
