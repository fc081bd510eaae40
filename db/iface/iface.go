// Package iface defines the store gateway interface the indexing pipeline
// writes through, together with the row types it exchanges. Keeping the
// interface separate from the Postgres implementation lets fetcher and
// summarizer tests run against in-memory fakes.
package iface

import (
	"context"
	"time"

	"github.com/beaconwatch/indexer/types"
)

// Slot mirrors one row of the slots table.
type Slot struct {
	Slot                    types.Slot `db:"slot"`
	AttestationsFetched     bool       `db:"attestations_fetched"`
	ConsensusRewardsFetched bool       `db:"consensus_rewards_fetched"`
	SyncRewardsFetched      bool       `db:"sync_rewards_fetched"`
}

// Epoch mirrors one row of the epochs table. All flags are monotonic.
type Epoch struct {
	Epoch                     types.Epoch `db:"epoch"`
	CommitteesFetched         bool        `db:"committees_fetched"`
	SyncCommitteesFetched     bool        `db:"sync_committees_fetched"`
	ValidatorsInfoFetched     bool        `db:"validators_info_fetched"`
	ValidatorsBalancesFetched bool        `db:"validators_balances_fetched"`
	RewardsFetched            bool        `db:"rewards_fetched"`
}

// CommitteePosition is one validator's seat in a committee, keyed by
// (slot, index, aggregation bits index).
type CommitteePosition struct {
	Slot                 types.Slot           `db:"slot"`
	Index                types.CommitteeIndex `db:"idx"`
	AggregationBitsIndex int                  `db:"aggregation_bits_index"`
	ValidatorIndex       types.ValidatorIndex `db:"validator_index"`
	// AttestationDelay is nil until the seat's attestation is first seen
	// in a block. Once the late window has passed, nil is a verified miss.
	AttestationDelay *int64 `db:"attestation_delay"`
}

// DelayUpdate records the inclusion delay observed for one committee seat.
// The store keeps the minimum of the existing and the new delay.
type DelayUpdate struct {
	Slot                 types.Slot
	Index                types.CommitteeIndex
	AggregationBitsIndex int
	Delay                int64
}

// Validator mirrors one row of the validators table.
type Validator struct {
	Index             types.ValidatorIndex `db:"validator_index"`
	Status            string               `db:"status"`
	Balance           uint64               `db:"balance"`
	EffectiveBalance  uint64               `db:"effective_balance"`
	WithdrawalAddress string               `db:"withdrawal_address"`
}

// HourlyReward is one (validator, date, hour) row of attestation reward
// components, used both for staging and for reading back.
type HourlyReward struct {
	ValidatorIndex     types.ValidatorIndex `db:"validator_index"`
	Date               string               `db:"day"`
	Hour               int                  `db:"hour"`
	Head               types.Gwei           `db:"head"`
	Target             types.Gwei           `db:"target"`
	Source             types.Gwei           `db:"source"`
	Inactivity         types.Gwei           `db:"inactivity"`
	MissedHead         types.Gwei           `db:"missed_head"`
	MissedTarget       types.Gwei           `db:"missed_target"`
	MissedSource       types.Gwei           `db:"missed_source"`
	MissedInactivity   types.Gwei           `db:"missed_inactivity"`
	AttestationsMissed int                  `db:"attestations_missed"`
}

// BlockSyncReward is one (validator, date, hour) row of proposer and sync
// committee rewards. Values are added onto any existing row.
type BlockSyncReward struct {
	ValidatorIndex types.ValidatorIndex `db:"validator_index"`
	Date           string               `db:"day"`
	Hour           int                  `db:"hour"`
	BlockRewards   types.Gwei           `db:"block_rewards"`
	SyncRewards    types.Gwei           `db:"sync_rewards"`
}

// MissCount is the number of missed attestation seats of one validator in
// a summarization window.
type MissCount struct {
	ValidatorIndex types.ValidatorIndex `db:"validator_index"`
	Missed         int                  `db:"missed"`
}

// Database is the full store gateway. Writes that flip a completion flag do
// so inside the same transaction as their dependent rows; watermarks advance
// only inside the transaction writing the rolled-up rows.
type Database interface {
	// Bootstrap applies the idempotent schema.
	Bootstrap(ctx context.Context) error
	Close() error

	// Progression.
	LatestSlot(ctx context.Context) (types.Slot, bool, error)
	CreateSlots(ctx context.Context, from, to types.Slot) error
	SlotFlags(ctx context.Context, slot types.Slot) (Slot, bool, error)
	EpochFlags(ctx context.Context, epoch types.Epoch) (Epoch, bool, error)

	// Per-feed cursors: each returns the lowest epoch/slot row whose flag
	// is still false, in creation order.
	NextCommitteesEpoch(ctx context.Context) (types.Epoch, bool, error)
	NextSyncCommitteesEpoch(ctx context.Context) (types.Epoch, bool, error)
	NextRewardsEpoch(ctx context.Context) (types.Epoch, bool, error)
	NextValidatorsInfoEpoch(ctx context.Context) (types.Epoch, bool, error)
	NextBalancesEpoch(ctx context.Context) (types.Epoch, bool, error)
	NextAttestationsSlot(ctx context.Context) (types.Slot, bool, error)
	NextConsensusRewardsSlot(ctx context.Context) (types.Slot, bool, error)

	// Committees.
	SaveCommittees(ctx context.Context, epoch types.Epoch, positions []CommitteePosition, countsBySlot map[types.Slot][]int32) error
	CommitteeSizes(ctx context.Context, slot types.Slot) ([]int32, bool, error)
	ApplyAttestations(ctx context.Context, slot types.Slot, updates []DelayUpdate, pruneBefore types.Slot, maxDelay uint64) error
	PruneOnTimeCommittees(ctx context.Context, before types.Slot, maxDelay uint64) (int64, error)

	// Sync committees.
	SaveSyncCommittee(ctx context.Context, epoch types.Epoch, fromEpoch, toEpoch types.Epoch, validators []types.ValidatorIndex, aggregates [][]types.ValidatorIndex) error
	SyncCommitteeValidators(ctx context.Context, epoch types.Epoch) ([]types.ValidatorIndex, bool, error)

	// Validators.
	SaveValidators(ctx context.Context, epoch types.Epoch, validators []Validator) error
	SaveValidatorBalances(ctx context.Context, epoch types.Epoch, balances []Validator) error
	NonTerminalValidators(ctx context.Context) ([]Validator, error)

	// Rewards.
	SaveBlockAndSyncRewards(ctx context.Context, slot types.Slot, rows []BlockSyncReward) error
	SaveEpochRewards(ctx context.Context, epoch types.Epoch, rows []HourlyReward) error

	// Summaries.
	LastSummaryUpdate(ctx context.Context) (hourly, daily time.Time, err error)
	MissedAttestationCounts(ctx context.Context, fromSlot, toSlot types.Slot, maxDelay uint64) ([]MissCount, error)
	SaveHourlySummary(ctx context.Context, date string, hour int, counts []MissCount, watermark time.Time) error
	AnyEpochWithRewardsAfter(ctx context.Context, epoch types.Epoch) (bool, error)
	DistinctHoursAfter(ctx context.Context, since time.Time) (int, error)
	SaveDailySummary(ctx context.Context, date string, watermark time.Time) error

	// Maintenance.
	Maintain(ctx context.Context, reindex bool) error
}
