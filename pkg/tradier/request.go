package tradier

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Family groups endpoints that share API conventions.
type Family int

const (
	FamilyAccount Family = iota
	FamilyOrders
	FamilyMarket
	FamilyOptions
)

// String returns the lowercase family name.
func (f Family) String() string {
	switch f {
	case FamilyAccount:
		return "account"
	case FamilyOrders:
		return "orders"
	case FamilyMarket:
		return "market"
	case FamilyOptions:
		return "options"
	default:
		return "unknown"
	}
}

// ListEncoding controls how multi-valued query parameters are serialized.
type ListEncoding int

const (
	// EncodingDefault defers to the builder's setting for the family.
	EncodingDefault ListEncoding = iota
	// CommaJoined sends symbols=AAPL,MSFT.
	CommaJoined
	// RepeatedKey sends symbols=AAPL&symbols=MSFT.
	RepeatedKey
)

// ParseListEncoding converts "comma" or "repeated" into a ListEncoding.
func ParseListEncoding(s string) (ListEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return EncodingDefault, nil
	case "comma", "comma-joined":
		return CommaJoined, nil
	case "repeated", "repeated-key":
		return RepeatedKey, nil
	default:
		return EncodingDefault, &ConfigError{Field: "list_encoding", Message: "unknown list encoding " + s}
	}
}

// Idempotency tells the executor whether a request may be sent again after
// a failed attempt.
type Idempotency int

const (
	// IdempotencyAuto treats GET and DELETE as retryable and POST/PUT as not.
	IdempotencyAuto Idempotency = iota
	// Idempotent marks the request safe to retry regardless of method.
	Idempotent
	// NonIdempotent forbids automatic retries (order placement).
	NonIdempotent
)

// RequestSpec describes one logical API operation.
type RequestSpec struct {
	Method     string
	Path       string // template, e.g. "/v1/accounts/{account_id}/orders/{order_id}"
	PathParams map[string]string
	Query      url.Values
	Body       map[string]string

	Family       Family
	ListEncoding ListEncoding
	Idempotency  Idempotency

	// Public requests are sent without the Authorization header.
	Public bool

	// ListPaths are dotted paths into the response that must always decode
	// as JSON arrays, e.g. "quotes.quote".
	ListPaths []string
}

// Retryable reports whether the executor may resend the request.
func (s RequestSpec) Retryable() bool {
	switch s.Idempotency {
	case Idempotent:
		return true
	case NonIdempotent:
		return false
	default:
		m := strings.ToUpper(s.Method)
		return m == http.MethodGet || m == http.MethodDelete || m == ""
	}
}

// PreparedRequest is a fully-formed request ready for the executor.
type PreparedRequest struct {
	Method    string
	URL       string
	Header    http.Header
	Body      []byte
	Retryable bool
	ListPaths []string
}

// Builder turns RequestSpecs into PreparedRequests. It never performs I/O.
type Builder struct {
	Credentials Credentials
	BaseURL     string
	Encodings   map[Family]ListEncoding
}

// NewBuilder returns a builder for the credentials' environment. A non-empty
// baseURL overrides the environment host.
func NewBuilder(creds Credentials, baseURL string, encodings map[Family]ListEncoding) *Builder {
	if baseURL == "" {
		baseURL = creds.BaseURL()
	}
	return &Builder{
		Credentials: creds,
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		Encodings:   encodings,
	}
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// Build resolves the path template, encodes query and body parameters and
// applies authentication headers.
func (b *Builder) Build(spec RequestSpec) (*PreparedRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, invalidf("build", "unsupported method %q", spec.Method)
	}
	if strings.TrimSpace(spec.Path) == "" {
		return nil, invalidf("build", "path is required")
	}

	path, err := b.resolvePath(spec.Path, spec.PathParams)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	target := b.BaseURL + path
	if query := encodeQuery(spec.Query, b.encodingFor(spec)); query != "" {
		target += "?" + query
	}

	header := make(http.Header)
	header.Set("Accept", "application/json")
	if !spec.Public {
		header.Set("Authorization", b.Credentials.AuthHeader())
	}

	var body []byte
	if form := encodeForm(spec.Body); form != "" {
		body = []byte(form)
		header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return &PreparedRequest{
		Method:    method,
		URL:       target,
		Header:    header,
		Body:      body,
		Retryable: RequestSpec{Method: method, Idempotency: spec.Idempotency}.Retryable(),
		ListPaths: spec.ListPaths,
	}, nil
}

func (b *Builder) resolvePath(template string, params map[string]string) (string, error) {
	var missing []string
	resolved := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := params[name]
		if !ok && name == "account_id" {
			value, ok = b.Credentials.AccountID(), true
		}
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(value)
	})
	if len(missing) > 0 {
		return "", invalidf("build", "missing path parameter(s) %s for %s", strings.Join(missing, ", "), template)
	}
	return resolved, nil
}

func (b *Builder) encodingFor(spec RequestSpec) ListEncoding {
	if spec.ListEncoding != EncodingDefault {
		return spec.ListEncoding
	}
	if enc, ok := b.Encodings[spec.Family]; ok && enc != EncodingDefault {
		return enc
	}
	return CommaJoined
}

func encodeQuery(query url.Values, enc ListEncoding) string {
	if len(query) == 0 {
		return ""
	}
	out := make(url.Values, len(query))
	for key, values := range query {
		nonEmpty := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}
		if key == "" || len(nonEmpty) == 0 {
			continue
		}
		if enc == RepeatedKey {
			out[key] = nonEmpty
		} else {
			out.Set(key, strings.Join(nonEmpty, ","))
		}
	}
	return out.Encode()
}

func encodeForm(body map[string]string) string {
	if len(body) == 0 {
		return ""
	}
	form := make(url.Values, len(body))
	for k, v := range body {
		if k != "" && v != "" {
			form.Set(k, v)
		}
	}
	return form.Encode()
}
