// Package tradier provides a Go client for the Tradier brokerage API.
//
// Every resource call (accounts, orders, market data, options) goes through
// a single execution path: a RequestSpec is built into an authenticated
// request, sent with the client's retry policy, and the response is
// normalized into either a *Result or one of the typed errors in this
// package.
package tradier

import (
	"fmt"
	"strings"
)

const (
	// LiveURL is the base URL for live trading.
	LiveURL = "https://api.tradier.com"

	// SandboxURL is the base URL for paper trading.
	SandboxURL = "https://sandbox.tradier.com"
)

// Environment selects the Tradier host a client talks to.
type Environment int

const (
	// Sandbox is the paper trading environment.
	Sandbox Environment = iota
	// Live is the production brokerage environment.
	Live
)

// String returns the lowercase name of the environment.
func (e Environment) String() string {
	switch e {
	case Sandbox:
		return "sandbox"
	case Live:
		return "live"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// BaseURL returns the API host of the environment.
func (e Environment) BaseURL() string {
	if e == Live {
		return LiveURL
	}
	return SandboxURL
}

// ParseEnvironment converts "sandbox"/"paper" or "live"/"production" into an
// Environment. Matching is case-insensitive.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sandbox", "paper":
		return Sandbox, nil
	case "live", "production", "prod":
		return Live, nil
	default:
		return Sandbox, &ConfigError{Field: "environment", Message: fmt.Sprintf("unknown environment %q", s)}
	}
}

// Credentials holds the account and token used to authenticate requests.
// It is immutable once created and safe for concurrent use.
type Credentials struct {
	accountID   string
	accessToken string
	environment Environment
}

// NewCredentials validates and returns credentials for the given account.
// It fails fast with a *ConfigError when the account ID or token is empty.
func NewCredentials(accountID, accessToken string, env Environment) (Credentials, error) {
	accountID = strings.TrimSpace(accountID)
	accessToken = strings.TrimSpace(accessToken)

	if accountID == "" {
		return Credentials{}, &ConfigError{Field: "account_id", Message: "account ID is required"}
	}
	if accessToken == "" {
		return Credentials{}, &ConfigError{Field: "access_token", Message: "access token is required"}
	}
	if env != Sandbox && env != Live {
		return Credentials{}, &ConfigError{Field: "environment", Message: fmt.Sprintf("unknown environment %d", int(env))}
	}

	return Credentials{
		accountID:   accountID,
		accessToken: accessToken,
		environment: env,
	}, nil
}

// AccountID returns the brokerage account number.
func (c Credentials) AccountID() string {
	return c.accountID
}

// Environment returns the environment fixed at construction.
func (c Credentials) Environment() Environment {
	return c.environment
}

// BaseURL returns the API host for the credentials' environment.
func (c Credentials) BaseURL() string {
	return c.environment.BaseURL()
}

// AuthHeader returns the value for the Authorization header.
func (c Credentials) AuthHeader() string {
	return "Bearer " + c.accessToken
}

// String redacts the access token.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{account=%s env=%s token=%s}", c.accountID, c.environment, redact(c.accessToken))
}

// GoString redacts the access token for %#v.
func (c Credentials) GoString() string {
	return c.String()
}

func redact(token string) string {
	if token == "" {
		return "<empty>"
	}
	return "<redacted>"
}
