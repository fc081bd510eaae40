package postgres

import (
	"context"
	"database/sql"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// LatestSlot returns the highest created slot row.
func (s *Store) LatestSlot(ctx context.Context) (types.Slot, bool, error) {
	var slot int64
	err := s.db.GetContext(ctx, &slot, `SELECT slot FROM slots ORDER BY slot DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "could not read latest slot")
	}
	return types.Slot(slot), true, nil
}

// CreateSlots creates slot rows for [from, to] and epoch rows for every
// epoch the range touches. Existing rows are left untouched.
func (s *Store) CreateSlots(ctx context.Context, from, to types.Slot) error {
	if to < from {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slots (slot) SELECT generate_series($1::bigint, $2::bigint) ON CONFLICT DO NOTHING`,
			int64(from), int64(to)); err != nil {
			return errors.Wrap(err, "could not create slot rows")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO epochs (epoch) SELECT generate_series($1::bigint, $2::bigint) ON CONFLICT DO NOTHING`,
			int64(slots.EpochOf(from)), int64(slots.EpochOf(to))); err != nil {
			return errors.Wrap(err, "could not create epoch rows")
		}
		return nil
	})
}

// SlotFlags reads one slot's completion flags.
func (s *Store) SlotFlags(ctx context.Context, slot types.Slot) (iface.Slot, bool, error) {
	var row iface.Slot
	err := s.db.GetContext(ctx, &row,
		`SELECT slot, attestations_fetched, consensus_rewards_fetched, sync_rewards_fetched
		 FROM slots WHERE slot = $1`, int64(slot))
	if errors.Is(err, sql.ErrNoRows) {
		return iface.Slot{}, false, nil
	}
	if err != nil {
		return iface.Slot{}, false, errors.Wrapf(err, "could not read slot %d", slot)
	}
	return row, true, nil
}

// EpochFlags reads one epoch's completion flags.
func (s *Store) EpochFlags(ctx context.Context, epoch types.Epoch) (iface.Epoch, bool, error) {
	var row iface.Epoch
	err := s.db.GetContext(ctx, &row,
		`SELECT epoch, committees_fetched, sync_committees_fetched, validators_info_fetched,
		        validators_balances_fetched, rewards_fetched
		 FROM epochs WHERE epoch = $1`, int64(epoch))
	if errors.Is(err, sql.ErrNoRows) {
		return iface.Epoch{}, false, nil
	}
	if err != nil {
		return iface.Epoch{}, false, errors.Wrapf(err, "could not read epoch %d", epoch)
	}
	return row, true, nil
}

func (s *Store) nextEpochWhere(ctx context.Context, query string) (types.Epoch, bool, error) {
	var epoch int64
	err := s.db.GetContext(ctx, &epoch, query)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "could not read epoch cursor")
	}
	return types.Epoch(epoch), true, nil
}

// NextCommitteesEpoch returns the lowest epoch whose committees are pending.
func (s *Store) NextCommitteesEpoch(ctx context.Context) (types.Epoch, bool, error) {
	return s.nextEpochWhere(ctx, `SELECT epoch FROM epochs WHERE NOT committees_fetched ORDER BY epoch LIMIT 1`)
}

// NextSyncCommitteesEpoch returns the lowest epoch whose sync committee is
// pending.
func (s *Store) NextSyncCommitteesEpoch(ctx context.Context) (types.Epoch, bool, error) {
	return s.nextEpochWhere(ctx, `SELECT epoch FROM epochs WHERE NOT sync_committees_fetched ORDER BY epoch LIMIT 1`)
}

// NextRewardsEpoch returns the lowest epoch whose attestation rewards are
// pending.
func (s *Store) NextRewardsEpoch(ctx context.Context) (types.Epoch, bool, error) {
	return s.nextEpochWhere(ctx, `SELECT epoch FROM epochs WHERE NOT rewards_fetched ORDER BY epoch LIMIT 1`)
}

// NextValidatorsInfoEpoch returns the lowest epoch whose validator registry
// refresh is pending.
func (s *Store) NextValidatorsInfoEpoch(ctx context.Context) (types.Epoch, bool, error) {
	return s.nextEpochWhere(ctx, `SELECT epoch FROM epochs WHERE NOT validators_info_fetched ORDER BY epoch LIMIT 1`)
}

// NextBalancesEpoch returns the lowest epoch whose balance refresh is
// pending.
func (s *Store) NextBalancesEpoch(ctx context.Context) (types.Epoch, bool, error) {
	return s.nextEpochWhere(ctx, `SELECT epoch FROM epochs WHERE NOT validators_balances_fetched ORDER BY epoch LIMIT 1`)
}

// NextAttestationsSlot returns the lowest slot whose attestations are
// pending.
func (s *Store) NextAttestationsSlot(ctx context.Context) (types.Slot, bool, error) {
	var slot int64
	err := s.db.GetContext(ctx, &slot, `SELECT slot FROM slots WHERE NOT attestations_fetched ORDER BY slot LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "could not read attestation cursor")
	}
	return types.Slot(slot), true, nil
}

// NextConsensusRewardsSlot returns the lowest slot whose block or sync
// rewards are pending.
func (s *Store) NextConsensusRewardsSlot(ctx context.Context) (types.Slot, bool, error) {
	var slot int64
	err := s.db.GetContext(ctx, &slot,
		`SELECT slot FROM slots WHERE NOT consensus_rewards_fetched OR NOT sync_rewards_fetched ORDER BY slot LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "could not read rewards cursor")
	}
	return types.Slot(slot), true, nil
}
