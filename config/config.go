// Package config holds the runtime configuration of the indexer, loaded
// from environment-backed CLI flags and validated before anything starts.
package config

import (
	"net/url"

	"github.com/pkg/errors"
)

// Config is the validated runtime configuration.
type Config struct {
	Chain string

	DatabaseURL string

	ConsensusArchiveAPIURL string
	ConsensusFullAPIURL    string
	// APIRequestsPerSecond is the global beacon request budget shared by
	// both node pools.
	APIRequestsPerSecond int
	// LookbackSlots is how far behind the head the indexer creates state.
	LookbackSlots uint64

	// FullNodeLimit and ArchiveNodeLimit cap in-flight requests per pool.
	FullNodeLimit    int
	ArchiveNodeLimit int
	// Retries is the attempt budget of the reliable request client.
	Retries int

	ExecutionAPIURL              string
	ExecutionAPIBackupURL        string
	ExecutionAPIRequestPerSecond int
	ExecutionAPIKey              string

	LogOutput string
	LogLevel  string

	MonitoringAddr string
}

// Validate returns an error describing the first invalid setting found.
// Any error here is fatal at start-up.
func (c *Config) Validate() error {
	if c.Chain != "ethereum" && c.Chain != "gnosis" {
		return errors.Errorf("CHAIN must be ethereum or gnosis, got %q", c.Chain)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if err := validURL(c.ConsensusArchiveAPIURL); err != nil {
		return errors.Wrap(err, "CONSENSUS_ARCHIVE_API_URL")
	}
	if err := validURL(c.ConsensusFullAPIURL); err != nil {
		return errors.Wrap(err, "CONSENSUS_FULL_API_URL")
	}
	if c.APIRequestsPerSecond <= 0 {
		return errors.New("CONSENSUS_API_REQUEST_PER_SECOND must be positive")
	}
	if c.LookbackSlots == 0 {
		return errors.New("CONSENSUS_LOOKBACK_SLOT must be positive")
	}
	if c.FullNodeLimit <= 0 || c.ArchiveNodeLimit <= 0 {
		return errors.New("node concurrency limits must be positive")
	}
	if c.Retries <= 0 {
		return errors.New("retries must be positive")
	}
	if c.LogOutput != "console" && c.LogOutput != "file" {
		return errors.Errorf("LOG_OUTPUT must be console or file, got %q", c.LogOutput)
	}
	return nil
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("%q is not a valid URL", raw)
	}
	return nil
}
