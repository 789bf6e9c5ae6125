package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	gokeyring "github.com/zalando/go-keyring"
)

const (
	// ServiceName namespaces trd secrets in the system keyring.
	ServiceName = "com.tradier.trd"

	// KeyAccessToken holds the Tradier API access token.
	KeyAccessToken = "access_token"

	// EnvAccessToken overrides the keyring for CI and headless machines.
	EnvAccessToken = "TRADIER_ACCESS_TOKEN"
)

// ErrNotFound is returned when a secret is not stored.
var ErrNotFound = errors.New("secret not found")

// Store provides secure secret storage.
type Store interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SystemStore implements Store using the OS keyring.
type SystemStore struct{}

// NewSystemStore creates a new system keyring store.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

// Get retrieves a secret from the system keyring.
func (s *SystemStore) Get(service, key string) (string, error) {
	secret, err := gokeyring.Get(service, key)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return secret, nil
}

// Set stores a secret in the system keyring.
func (s *SystemStore) Set(service, key, value string) error {
	return gokeyring.Set(service, key, value)
}

// Delete removes a secret. Deleting a missing secret is not an error.
func (s *SystemStore) Delete(service, key string) error {
	err := gokeyring.Delete(service, key)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil
	}
	return err
}

// EnvStore consults environment variables before the wrapped store.
type EnvStore struct {
	underlying Store
	vars       map[string]string // keyring key -> environment variable
}

// NewEnvStore wraps underlying so that TRADIER_ACCESS_TOKEN wins over the
// stored access token.
func NewEnvStore(underlying Store) *EnvStore {
	return &EnvStore{
		underlying: underlying,
		vars:       map[string]string{KeyAccessToken: EnvAccessToken},
	}
}

// Get returns the environment override for key if set, otherwise the stored
// secret.
func (e *EnvStore) Get(service, key string) (string, error) {
	if name, ok := e.vars[key]; ok {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return e.underlying.Get(service, key)
}

// Set stores a secret in the underlying store.
func (e *EnvStore) Set(service, key, value string) error {
	return e.underlying.Set(service, key, value)
}

// Delete removes a secret from the underlying store.
func (e *EnvStore) Delete(service, key string) error {
	return e.underlying.Delete(service, key)
}

// AccessToken loads the Tradier access token from store.
func AccessToken(store Store) (string, error) {
	token, err := store.Get(ServiceName, KeyAccessToken)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("no access token configured, run 'trd configure' or set %s: %w", EnvAccessToken, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	return token, nil
}
