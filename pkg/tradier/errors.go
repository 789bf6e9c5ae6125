package tradier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies every failure the client can return.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindInvalidRequest
	KindTimeout
	KindConnection
	KindExhaustedRetries
	KindCanceled
	KindClientError
	KindAuth
	KindNotFound
	KindRateLimited
	KindServerError
	KindParse
)

var kindNames = map[ErrorKind]string{
	KindUnknown:          "UNKNOWN",
	KindConfiguration:    "CONFIGURATION_ERROR",
	KindInvalidRequest:   "INVALID_REQUEST",
	KindTimeout:          "TIMEOUT",
	KindConnection:       "CONNECTION",
	KindExhaustedRetries: "EXHAUSTED_RETRIES",
	KindCanceled:         "CANCELED",
	KindClientError:      "CLIENT_ERROR",
	KindAuth:             "AUTH_ERROR",
	KindNotFound:         "NOT_FOUND",
	KindRateLimited:      "RATE_LIMITED",
	KindServerError:      "SERVER_ERROR",
	KindParse:            "PARSE_ERROR",
}

// String returns the upper-case name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Kind()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return KindInvalidRequest
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return KindConfiguration
	}
	return KindUnknown
}

// ConfigError reports invalid client configuration. It is never retried.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// RequestError reports a malformed RequestSpec or invalid facade input.
// Nothing is sent to the API when it is returned.
type RequestError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Op == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid request (%s): %s", e.Op, e.Message)
}

func invalidf(op, format string, args ...any) *RequestError {
	return &RequestError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// TransportReason describes why a request never produced a usable response.
type TransportReason int

const (
	ReasonTimeout TransportReason = iota + 1
	ReasonConnection
	ReasonExhaustedRetries
	ReasonCanceled
)

// String returns the upper-case name of the reason.
func (r TransportReason) String() string {
	switch r {
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonConnection:
		return "CONNECTION"
	case ReasonExhaustedRetries:
		return "EXHAUSTED_RETRIES"
	case ReasonCanceled:
		return "CANCELED"
	default:
		return fmt.Sprintf("TransportReason(%d)", int(r))
	}
}

// TransportError is returned when no usable HTTP response could be
// obtained. When Reason is ReasonExhaustedRetries, Last holds the
// classification of a final network failure, or LastStatus the retryable
// status of the final response; in the latter case Err is the *APIError
// built from that response.
type TransportError struct {
	Reason     TransportReason
	Last       TransportReason
	LastStatus int
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport failure (%s) after %d attempt(s)", e.Reason, e.Attempts)
	if e.Reason == ReasonExhaustedRetries {
		switch {
		case e.LastStatus != 0:
			msg += fmt.Sprintf(", last status: %d", e.LastStatus)
		case e.Last != 0:
			msg += fmt.Sprintf(", last: %s", e.Last)
		}
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying network, context or status error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kind maps the reason onto an ErrorKind.
func (e *TransportError) Kind() ErrorKind {
	switch e.Reason {
	case ReasonTimeout:
		return KindTimeout
	case ReasonConnection:
		return KindConnection
	case ReasonExhaustedRetries:
		return KindExhaustedRetries
	case ReasonCanceled:
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Temporary reports whether the same request might succeed later.
func (e *TransportError) Temporary() bool {
	return e.Reason != ReasonCanceled
}

// APIError represents a response from the Tradier API that could not be
// turned into a successful result.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	RawBody    string
	Attempts   int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error [%s]: %s", e.Kind, msg)
	}
	return fmt.Sprintf("API error [%s] (%d): %s", e.Kind, e.StatusCode, msg)
}

// IsNotFound returns true for a 404 or a lookup that matched nothing.
func (e *APIError) IsNotFound() bool {
	return e.Kind == KindNotFound
}

// IsUnauthorized returns true for 401 and 403 responses.
func (e *APIError) IsUnauthorized() bool {
	return e.Kind == KindAuth
}

// IsRateLimited returns true if the error is a 429 Too Many Requests.
func (e *APIError) IsRateLimited() bool {
	return e.Kind == KindRateLimited
}

// KindForStatus maps a non-2xx HTTP status onto an ErrorKind. Status codes
// outside 4xx/5xx are reported as client errors.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status <= 599:
		return KindServerError
	default:
		return KindClientError
	}
}

// errorResponse covers the error shapes Tradier returns:
// {"errors":{"error":"msg"|["msg",...]}} and {"fault":{"faultstring":"..."}}.
type errorResponse struct {
	Errors *struct {
		Error json.RawMessage `json:"error"`
	} `json:"errors"`
	Fault *struct {
		FaultString string `json:"faultstring"`
		Detail      struct {
			ErrorCode string `json:"errorcode"`
		} `json:"detail"`
	} `json:"fault"`
	Message string `json:"message"`
}

// newStatusError builds an APIError from a non-2xx response. Message
// extraction is best effort; the raw body is always preserved.
func newStatusError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:       KindForStatus(status),
		StatusCode: status,
		RawBody:    string(body),
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return apiErr
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		// Plain text bodies ("Invalid Access Token") are common on 401s.
		if len(trimmed) <= 200 && !strings.HasPrefix(trimmed, "<") {
			apiErr.Message = trimmed
		}
		return apiErr
	}

	switch {
	case errResp.Errors != nil:
		apiErr.Message = strings.Join(errorMessages(errResp.Errors.Error), "; ")
	case errResp.Fault != nil:
		apiErr.Message = errResp.Fault.FaultString
		apiErr.Code = errResp.Fault.Detail.ErrorCode
	case errResp.Message != "":
		apiErr.Message = errResp.Message
	}

	return apiErr
}

func errorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	return []string{string(raw)}
}
