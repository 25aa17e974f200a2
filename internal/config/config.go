// Package config holds the single immutable configuration object built at
// startup. Components that issue network calls receive it explicitly instead
// of reading ambient settings at each call site.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config is assembled once in cmd and passed by value from then on.
type Config struct {
	// APIBaseURL is the root of the review backend, e.g. "https://api.refix.dev".
	APIBaseURL string
	// APIKey is the internal key attached as X-API-Key to every request.
	APIKey string
	// AuthToken is an optional bearer token for authenticated endpoints.
	AuthToken string
	// UserID is the opaque identity-provider subject the dashboard is scoped to.
	UserID string
	// RequestTimeout bounds each backend HTTP call.
	RequestTimeout time.Duration
	// DetectQuiet is the debounce quiet period for language auto-detection.
	DetectQuiet time.Duration
	// DBPath is the local preferences database location.
	DBPath string
}

// FromViper builds a Config from the effective viper state.
func FromViper() Config {
	return Config{
		APIBaseURL:     viper.GetString("api.base_url"),
		APIKey:         viper.GetString("api.key"),
		AuthToken:      viper.GetString("auth.token"),
		UserID:         viper.GetString("auth.user_id"),
		RequestTimeout: viper.GetDuration("api.timeout"),
		DetectQuiet:    viper.GetDuration("workbench.detect_quiet"),
		DBPath:         viper.GetString("db_path"),
	}
}

// Validate checks the fields every network component depends on.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api.base_url is not set (run 'refix config init')")
	}
	if _, err := url.Parse(c.APIBaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	return nil
}
