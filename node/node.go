// Package node assembles the indexer process: configuration, chain profile,
// database, beacon clients, the scheduled job set and the monitoring
// endpoints, started in dependency order and stopped in reverse on SIGINT
// or SIGTERM.
package node

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/beaconwatch/indexer/beacon"
	"github.com/beaconwatch/indexer/cmd/indexer/flags"
	"github.com/beaconwatch/indexer/config"
	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/db/postgres"
	"github.com/beaconwatch/indexer/fetcher"
	"github.com/beaconwatch/indexer/monitoring/prometheus"
	"github.com/beaconwatch/indexer/requester"
	"github.com/beaconwatch/indexer/runtime"
	"github.com/beaconwatch/indexer/runtime/logging"
	"github.com/beaconwatch/indexer/scheduler"
	"github.com/beaconwatch/indexer/summary"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

const bootstrapTimeout = 2 * time.Minute

// Node is the running indexer process.
type Node struct {
	cfg      *config.Config
	db       *postgres.Store
	services *runtime.ServiceRegistry

	lock sync.Mutex
	stop chan struct{}
}

// New validates the configuration, connects the database and wires every
// service. Nothing is started yet.
func New(cliCtx *cli.Context) (*Node, error) {
	cfg := configFromCLI(cliCtx)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogOutput); err != nil {
		return nil, err
	}
	profile, err := params.ByName(cfg.Chain)
	if err != nil {
		return nil, err
	}
	params.OverrideChainProfile(profile)
	log.WithField("chain", cfg.Chain).Info("Starting indexer")

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()
	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to database")
	}
	if err := store.Bootstrap(ctx); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Could not close database")
		}
		return nil, errors.Wrap(err, "could not bootstrap schema")
	}

	n := &Node{
		cfg:      cfg,
		db:       store,
		services: runtime.NewServiceRegistry(),
		stop:     make(chan struct{}),
	}

	rc := requester.New(requester.Options{
		FullNodeURL:       cfg.ConsensusFullAPIURL,
		ArchiveNodeURL:    cfg.ConsensusArchiveAPIURL,
		FullNodeLimit:     int64(cfg.FullNodeLimit),
		ArchiveNodeLimit:  int64(cfg.ArchiveNodeLimit),
		RequestsPerSecond: cfg.APIRequestsPerSecond,
		Retries:           uint64(cfg.Retries),
	})
	cl := beacon.NewClient(rc)
	fetchers := fetcher.New(store, cl, cfg.LookbackSlots)
	summaries := summary.New(store, cfg.LookbackSlots)

	// The scheduler registers last so it starts after monitoring and is the
	// first thing stopped on shutdown.
	if err := n.services.RegisterService(prometheus.NewService(cfg.MonitoringAddr, n.services)); err != nil {
		return nil, err
	}
	if err := n.services.RegisterService(scheduler.New(n.jobs(fetchers, summaries))); err != nil {
		return nil, err
	}
	return n, nil
}

// jobs is the fixed schedule of the indexer. Fetchers tick at slot pace and
// skip a tick while the previous run is in flight; summaries and maintenance
// run on coarser intervals.
func (n *Node) jobs(f *fetcher.Service, s *summary.Service) []scheduler.Job {
	slotInterval := time.Duration(params.ChainProfile().SecondsPerSlot) * time.Second
	return []scheduler.Job{
		{ID: "create-epochs", Interval: time.Minute, RunImmediately: true, PreventOverrun: true, Run: f.CreateEpochs},
		{ID: "fetch-committees", Interval: slotInterval, RunImmediately: true, PreventOverrun: true, Run: f.FetchCommittees},
		{ID: "fetch-sync-committees", Interval: time.Minute, RunImmediately: true, PreventOverrun: true, Run: f.FetchSyncCommittees},
		{ID: "fetch-attestations", Interval: slotInterval, RunImmediately: true, PreventOverrun: true, Run: f.FetchAttestations},
		{ID: "fetch-block-and-sync-rewards", Interval: slotInterval, RunImmediately: true, PreventOverrun: true, Run: f.FetchBlockAndSyncRewards},
		{ID: "fetch-attestation-rewards", Interval: 30 * time.Second, RunImmediately: true, PreventOverrun: true, Run: f.FetchAttestationRewards},
		{ID: "fetch-validators-info", Interval: 10 * time.Minute, RunImmediately: true, PreventOverrun: true, Run: f.FetchValidatorsInfo},
		{ID: "fetch-validator-balances", Interval: 10 * time.Minute, RunImmediately: true, PreventOverrun: true, Run: f.FetchValidatorBalances},
		{ID: "summarize-hourly", Interval: 5 * time.Minute, PreventOverrun: true, LogsEnabled: true, Run: s.SummarizeHourly},
		{ID: "summarize-daily", Interval: 30 * time.Minute, PreventOverrun: true, LogsEnabled: true, Run: s.SummarizeDaily},
		{ID: "prune-committees", Interval: time.Hour, PreventOverrun: true, Run: n.pruneCommittees},
		{ID: "vacuum-analyze", Interval: 12 * time.Hour, PreventOverrun: true, LogsEnabled: true, Run: n.vacuumAnalyze},
		{ID: "reindex", Interval: 7 * 24 * time.Hour, PreventOverrun: true, LogsEnabled: true, Run: n.reindex},
	}
}

// pruneCommittees drops on-time seats older than the late window; their
// delays already live in the hourly stats and keeping them only bloats the
// hottest table.
func (n *Node) pruneCommittees(ctx context.Context, log *logrus.Entry) error {
	cfg := params.ChainProfile()
	lateWindow := types.Slot(cfg.SlotsPerEpoch * 3)
	current := slots.CurrentSlot(time.Now())
	if current <= lateWindow {
		return nil
	}
	pruned, err := n.db.PruneOnTimeCommittees(ctx, current-lateWindow, cfg.MaxAttestationDelay)
	if err != nil {
		return err
	}
	if pruned > 0 {
		log.WithField("rows", pruned).Info("Pruned on-time committee seats")
	}
	return nil
}

func (n *Node) vacuumAnalyze(ctx context.Context, _ *logrus.Entry) error {
	return n.db.Maintain(ctx, false)
}

func (n *Node) reindex(ctx context.Context, _ *logrus.Entry) error {
	return n.db.Maintain(ctx, true)
}

// Start launches every registered service and blocks until shutdown
// completes.
func (n *Node) Start() {
	n.lock.Lock()
	n.services.StartAll()
	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the indexer")
	}()

	<-stop
}

// Close stops every service in reverse registration order and closes the
// database.
func (n *Node) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	log.Info("Stopping indexer")
	n.services.StopAll()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("Could not close database")
	}
	close(n.stop)
}

func configFromCLI(cliCtx *cli.Context) *config.Config {
	return &config.Config{
		Chain:                        cliCtx.String(flags.Chain.Name),
		DatabaseURL:                  cliCtx.String(flags.DatabaseURL.Name),
		ConsensusArchiveAPIURL:       cliCtx.String(flags.ConsensusArchiveAPIURL.Name),
		ConsensusFullAPIURL:          cliCtx.String(flags.ConsensusFullAPIURL.Name),
		APIRequestsPerSecond:         cliCtx.Int(flags.APIRequestsPerSecond.Name),
		LookbackSlots:                cliCtx.Uint64(flags.LookbackSlots.Name),
		FullNodeLimit:                cliCtx.Int(flags.FullNodeLimit.Name),
		ArchiveNodeLimit:             cliCtx.Int(flags.ArchiveNodeLimit.Name),
		Retries:                      cliCtx.Int(flags.Retries.Name),
		ExecutionAPIURL:              cliCtx.String(flags.ExecutionAPIURL.Name),
		ExecutionAPIBackupURL:        cliCtx.String(flags.ExecutionAPIBackupURL.Name),
		ExecutionAPIRequestPerSecond: cliCtx.Int(flags.ExecutionAPIRequestPerSecond.Name),
		ExecutionAPIKey:              cliCtx.String(flags.ExecutionAPIKey.Name),
		LogOutput:                    cliCtx.String(flags.LogOutput.Name),
		LogLevel:                     cliCtx.String(flags.LogLevel.Name),
		MonitoringAddr:               cliCtx.String(flags.MonitoringAddr.Name),
	}
}
