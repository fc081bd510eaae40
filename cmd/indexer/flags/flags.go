// Package flags defines the command-line flags of the indexer. Every flag
// is backed by an environment variable so containerized deployments can run
// without a command line.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// Chain selects the chain profile.
	Chain = &cli.StringFlag{
		Name:    "chain",
		Usage:   "Chain to index: ethereum or gnosis",
		EnvVars: []string{"CHAIN"},
		Value:   "ethereum",
	}
	// DatabaseURL points at the Postgres instance.
	DatabaseURL = &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Postgres connection URL",
		EnvVars: []string{"DATABASE_URL"},
	}
	// ConsensusArchiveAPIURL is the archive beacon node.
	ConsensusArchiveAPIURL = &cli.StringFlag{
		Name:    "consensus-archive-api-url",
		Usage:   "Base URL of the archive beacon node REST API",
		EnvVars: []string{"CONSENSUS_ARCHIVE_API_URL"},
	}
	// ConsensusFullAPIURL is the real-time beacon node.
	ConsensusFullAPIURL = &cli.StringFlag{
		Name:    "consensus-full-api-url",
		Usage:   "Base URL of the full beacon node REST API",
		EnvVars: []string{"CONSENSUS_FULL_API_URL"},
	}
	// APIRequestsPerSecond is the global beacon request budget.
	APIRequestsPerSecond = &cli.IntFlag{
		Name:    "consensus-api-request-per-second",
		Usage:   "Global beacon API request budget shared by both node pools",
		EnvVars: []string{"CONSENSUS_API_REQUEST_PER_SECOND"},
		Value:   10,
	}
	// LookbackSlots is how far behind the head indexing starts.
	LookbackSlots = &cli.Uint64Flag{
		Name:    "consensus-lookback-slot",
		Usage:   "How many slots behind the head the indexer backfills",
		EnvVars: []string{"CONSENSUS_LOOKBACK_SLOT"},
		Value:   7200,
	}
	// FullNodeLimit caps in-flight requests to the full node.
	FullNodeLimit = &cli.IntFlag{
		Name:    "consensus-full-node-limit",
		Usage:   "Max in-flight requests to the full node",
		EnvVars: []string{"CONSENSUS_FULL_NODE_LIMIT"},
		Value:   2,
	}
	// ArchiveNodeLimit caps in-flight requests to the archive node.
	ArchiveNodeLimit = &cli.IntFlag{
		Name:    "consensus-archive-node-limit",
		Usage:   "Max in-flight requests to the archive node",
		EnvVars: []string{"CONSENSUS_ARCHIVE_NODE_LIMIT"},
		Value:   8,
	}
	// Retries is the attempt budget per beacon request.
	Retries = &cli.IntFlag{
		Name:    "consensus-api-retries",
		Usage:   "Attempt budget per beacon API request",
		EnvVars: []string{"CONSENSUS_API_RETRIES"},
		Value:   5,
	}
	// ExecutionAPIURL is reserved for the execution-layer reward scraper.
	ExecutionAPIURL = &cli.StringFlag{
		Name:    "execution-api-url",
		Usage:   "Base URL of the execution-layer block explorer API",
		EnvVars: []string{"EXECUTION_API_URL"},
	}
	// ExecutionAPIBackupURL is the fallback explorer.
	ExecutionAPIBackupURL = &cli.StringFlag{
		Name:    "execution-api-backup-url",
		Usage:   "Fallback execution-layer block explorer API",
		EnvVars: []string{"EXECUTION_API_BACKUP_URL"},
	}
	// ExecutionAPIRequestPerSecond budgets the explorer calls.
	ExecutionAPIRequestPerSecond = &cli.IntFlag{
		Name:    "execution-api-request-per-second",
		Usage:   "Execution-layer explorer request budget",
		EnvVars: []string{"EXECUTION_API_REQUEST_PER_SECOND"},
		Value:   5,
	}
	// ExecutionAPIKey authenticates against the explorer.
	ExecutionAPIKey = &cli.StringFlag{
		Name:    "execution-api-key",
		Usage:   "API key for the execution-layer explorer",
		EnvVars: []string{"EXECUTION_API_KEY"},
	}
	// LogOutput selects console or file logging.
	LogOutput = &cli.StringFlag{
		Name:    "log-output",
		Usage:   "Where to log: console or file",
		EnvVars: []string{"LOG_OUTPUT"},
		Value:   "console",
	}
	// LogLevel sets the logrus level.
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level: trace, debug, info, warn, error",
		EnvVars: []string{"LOG_LEVEL"},
		Value:   "info",
	}
	// MonitoringAddr is the /metrics and /healthz listen address.
	MonitoringAddr = &cli.StringFlag{
		Name:    "monitoring-addr",
		Usage:   "Listen address of the monitoring HTTP endpoints",
		EnvVars: []string{"MONITORING_ADDR"},
		Value:   ":8080",
	}
)

// All is the full flag set of the indexer command.
var All = []cli.Flag{
	Chain,
	DatabaseURL,
	ConsensusArchiveAPIURL,
	ConsensusFullAPIURL,
	APIRequestsPerSecond,
	LookbackSlots,
	FullNodeLimit,
	ArchiveNodeLimit,
	Retries,
	ExecutionAPIURL,
	ExecutionAPIBackupURL,
	ExecutionAPIRequestPerSecond,
	ExecutionAPIKey,
	LogOutput,
	LogLevel,
	MonitoringAddr,
}
