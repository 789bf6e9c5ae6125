// Package api wires CLI configuration and stored credentials into a Tradier
// client.
package api

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jonandersen/tradier/internal/config"
	"github.com/jonandersen/tradier/internal/keyring"
	"github.com/jonandersen/tradier/pkg/tradier"
)

// NewClient builds a Tradier client from cfg, reading the access token from
// store. The returned error explains which setting is missing.
func NewClient(cfg *config.Config, store keyring.Store, logger logrus.FieldLogger) (*tradier.Client, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account number is required (run 'trd configure' or set %s)", config.EnvAccountNumber)
	}

	token, err := keyring.AccessToken(store)
	if err != nil {
		return nil, err
	}

	return NewClientWithToken(cfg, token, logger)
}

// NewClientWithToken builds a Tradier client from cfg and an explicit token.
func NewClientWithToken(cfg *config.Config, token string, logger logrus.FieldLogger) (*tradier.Client, error) {
	env, err := cfg.TradierEnvironment()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}
	encodings, err := cfg.ListEncodings()
	if err != nil {
		return nil, err
	}

	return tradier.NewClient(tradier.Config{
		AccountID:     cfg.AccountID,
		AccessToken:   token,
		Environment:   env,
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		RetryPolicy:   policy,
		ListEncodings: encodings,
		HTTPClient:    &http.Client{},
		Logger:        logger,
	})
}
