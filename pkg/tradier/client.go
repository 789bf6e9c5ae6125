package tradier

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Config carries everything a Client needs. Credentials are passed in
// explicitly; the package never reads the environment.
type Config struct {
	AccountID   string
	AccessToken string
	Environment Environment

	// BaseURL overrides the environment host (mock servers, proxies).
	BaseURL string

	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// RetryPolicy defaults to DefaultRetryPolicy().
	RetryPolicy *RetryPolicy

	// ListEncodings selects the query list convention per endpoint family.
	// Families without an entry use CommaJoined.
	ListEncodings map[Family]ListEncoding

	HTTPClient HTTPDoer
	Logger     logrus.FieldLogger
}

// Client handles requests to the Tradier API. It is safe for concurrent use.
type Client struct {
	credentials Credentials
	builder     *Builder
	executor    *Executor
	logger      logrus.FieldLogger

	Accounts *AccountService
	Orders   *OrderService
	Market   *MarketService
	Options  *OptionService
}

// NewClient validates cfg and returns a ready client. Invalid credentials or
// retry settings fail here with a *ConfigError rather than on first use.
func NewClient(cfg Config) (*Client, error) {
	creds, err := NewCredentials(cfg.AccountID, cfg.AccessToken, cfg.Environment)
	if err != nil {
		return nil, err
	}

	policy := cfg.RetryPolicy
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if cfg.Timeout < 0 {
		return nil, &ConfigError{Field: "timeout", Message: "timeout must not be negative"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger()
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{}
	}

	encodings := make(map[Family]ListEncoding, len(cfg.ListEncodings))
	for family, enc := range cfg.ListEncodings {
		encodings[family] = enc
	}

	c := &Client{
		credentials: creds,
		builder:     NewBuilder(creds, cfg.BaseURL, encodings),
		executor:    NewExecutor(doer, policy, cfg.Timeout, logger),
		logger:      logger,
	}
	c.Accounts = &AccountService{client: c}
	c.Orders = &OrderService{client: c}
	c.Market = &MarketService{client: c}
	c.Options = &OptionService{client: c}

	return c, nil
}

// Credentials returns the client's credentials.
func (c *Client) Credentials() Credentials {
	return c.credentials
}

// BaseURL returns the host requests are sent to.
func (c *Client) BaseURL() string {
	return c.builder.BaseURL
}

// Execute builds, sends and normalizes one request. It returns either a
// *Result or one of *RequestError, *TransportError or *APIError.
func (c *Client) Execute(ctx context.Context, spec RequestSpec) (*Result, error) {
	req, err := c.builder.Build(spec)
	if err != nil {
		return nil, err
	}

	raw, err := c.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := Normalize(raw, req.ListPaths)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   requestPath(req.URL),
			"kind":   KindOf(err),
		}).Debug("request failed")
		return nil, err
	}
	return result, nil
}

// do executes spec and decodes the payload into out.
func (c *Client) do(ctx context.Context, spec RequestSpec, out any) error {
	result, err := c.Execute(ctx, spec)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return result.Decode(out)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
