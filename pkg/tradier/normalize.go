package tradier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Result is a successful, normalized API response. Payload holds the JSON
// body after list coercion and is ready for typed decoding.
type Result struct {
	StatusCode int
	Header     http.Header
	Payload    json.RawMessage
	Attempts   int

	raw []byte
}

// Decode unmarshals the payload into v. A payload that does not fit v is
// reported as a KindParse *APIError carrying the original body.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &APIError{
			Kind:       KindParse,
			StatusCode: r.StatusCode,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
			RawBody:    string(r.raw),
			Attempts:   r.Attempts,
		}
	}
	return nil
}

// Normalize interprets a raw response. 2xx bodies are parsed and coerced so
// every path in listPaths is a JSON array; any other status becomes an
// *APIError classified by KindForStatus. A truncated 2xx body is a KindParse
// error that keeps the prefix that was read.
func Normalize(raw *RawResponse, listPaths []string) (*Result, error) {
	if raw == nil {
		return nil, &APIError{Kind: KindParse, Message: "no response to normalize"}
	}

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		apiErr := newStatusError(raw.StatusCode, raw.Body)
		apiErr.Attempts = raw.Attempts
		return nil, apiErr
	}

	if raw.Truncated {
		return nil, &APIError{
			Kind:       KindParse,
			StatusCode: raw.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", len(raw.Body)),
			RawBody:    string(raw.Body),
			Attempts:   raw.Attempts,
		}
	}

	value, err := parseJSON(raw.Body)
	if err != nil {
		return nil, &APIError{
			Kind:       KindParse,
			StatusCode: raw.StatusCode,
			Message:    fmt.Sprintf("failed to parse response: %v", err),
			RawBody:    string(raw.Body),
			Attempts:   raw.Attempts,
		}
	}

	value = CoerceLists(value, listPaths...)

	payload, err := json.Marshal(value)
	if err != nil {
		return nil, &APIError{
			Kind:       KindParse,
			StatusCode: raw.StatusCode,
			Message:    fmt.Sprintf("failed to encode normalized response: %v", err),
			RawBody:    string(raw.Body),
			Attempts:   raw.Attempts,
		}
	}

	return &Result{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		Payload:    payload,
		Attempts:   raw.Attempts,
		raw:        raw.Body,
	}, nil
}

// parseJSON decodes a single JSON document, keeping numbers as json.Number.
// An empty body decodes as null.
func parseJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return value, nil
}

// CoerceLists rewrites value so that every dotted path resolves to a JSON
// array: a single object becomes a one-element array, and null, the string
// "null" or a missing field become an empty array. Arrays met along a path
// are traversed element by element. Applying it twice is a no-op.
func CoerceLists(value any, paths ...string) any {
	for _, path := range paths {
		path = strings.Trim(path, ".")
		if path == "" {
			continue
		}
		if isNull(value) {
			value = map[string]any{}
		}
		value = coercePath(value, strings.Split(path, "."))
	}
	return value
}

func coercePath(node any, segs []string) any {
	if len(segs) == 0 {
		return asList(node)
	}

	switch n := node.(type) {
	case []any:
		for i := range n {
			n[i] = coercePath(n[i], segs)
		}
		return n
	case map[string]any:
		child, ok := n[segs[0]]
		if !ok || isNull(child) {
			child = nil
			if len(segs) > 1 {
				child = map[string]any{}
			}
		}
		n[segs[0]] = coercePath(child, segs[1:])
		return n
	default:
		return node
	}
}

func asList(node any) any {
	switch n := node.(type) {
	case []any:
		return n
	case nil:
		return []any{}
	case string:
		if n == "null" {
			return []any{}
		}
		return []any{n}
	default:
		return []any{n}
	}
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == "null"
}
