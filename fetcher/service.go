// Package fetcher contains the forward-progress tasks that advance the
// indexed chain state: epoch/slot creation and one fetcher per beacon feed.
// Every fetcher is idempotent: it reads its cursor from the store, checks
// its prerequisites, fetches, and writes in one transaction that also flips
// the completion flag. Preconditions that are not met yet are not errors;
// the task logs and retries on its next tick.
package fetcher

import (
	"context"
	"time"

	"github.com/beaconwatch/indexer/beacon"
	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/sirupsen/logrus"
)

// Client is the slice of the beacon client the fetchers consume.
type Client interface {
	Committees(ctx context.Context, epoch types.Epoch) ([]beacon.Committee, error)
	SyncCommittees(ctx context.Context, epoch types.Epoch) (beacon.SyncCommittee, error)
	Block(ctx context.Context, slot types.Slot) (beacon.BlockInfo, bool, error)
	BlockRewards(ctx context.Context, slot types.Slot) (beacon.BlockRewards, bool, error)
	SyncCommitteeRewards(ctx context.Context, slot types.Slot, ids []types.ValidatorIndex) ([]beacon.SyncCommitteeReward, bool, error)
	AttestationRewards(ctx context.Context, epoch types.Epoch, ids []types.ValidatorIndex) (beacon.AttestationRewards, error)
	Validators(ctx context.Context, stateSlot types.Slot, ids []types.ValidatorIndex, statuses []string) ([]beacon.Validator, error)
	ValidatorBalances(ctx context.Context, stateSlot types.Slot, ids []types.ValidatorIndex) ([]beacon.ValidatorBalance, error)
	ProposerDuties(ctx context.Context, epoch types.Epoch) ([]beacon.ProposerDuty, error)
}

// balanceBatchSize bounds one validator_balances POST body.
const balanceBatchSize = 1_000_000

// lateWindowEpochs is how many epochs an attestation can still be included
// after its slot; beyond it a null delay is a verified miss.
const lateWindowEpochs = 3

// Service owns the fetch tasks. All tasks share the store, the beacon
// client and the configured lookback.
type Service struct {
	db       iface.Database
	cl       Client
	lookback uint64
	now      func() time.Time
}

// New wires a fetcher service.
func New(db iface.Database, cl Client, lookbackSlots uint64) *Service {
	return &Service{db: db, cl: cl, lookback: lookbackSlots, now: time.Now}
}

// maxSlotToFetch is the newest slot any task may touch this tick.
func (s *Service) maxSlotToFetch() types.Slot {
	return slots.MaxSlotToFetch(s.now())
}

func logSkipping(log *logrus.Entry, kind string, target uint64, max types.Slot) {
	log.WithFields(logrus.Fields{kind: target, "maxSlot": uint64(max)}).Debug("Skipping, too close to head")
}
