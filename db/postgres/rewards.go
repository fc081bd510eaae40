package postgres

import (
	"context"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/types"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SaveBlockAndSyncRewards adds proposer and sync rewards onto the hour rows
// and flips both per-slot reward flags in one transaction. An empty rows
// slice is the missed-slot case: only the flags flip.
func (s *Store) SaveBlockAndSyncRewards(ctx context.Context, slot types.Slot, rows []iface.BlockSyncReward) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rows); start += insertBatch {
			end := start + insertBatch
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO hourly_block_and_sync_rewards (validator_index, day, hour, block_rewards, sync_rewards)
				 VALUES (:validator_index, :day, :hour, :block_rewards, :sync_rewards)
				 ON CONFLICT (validator_index, day, hour) DO UPDATE SET
					block_rewards = hourly_block_and_sync_rewards.block_rewards + EXCLUDED.block_rewards,
					sync_rewards = hourly_block_and_sync_rewards.sync_rewards + EXCLUDED.sync_rewards`,
				rows[start:end]); err != nil {
				return errors.Wrapf(err, "could not upsert block and sync rewards of slot %d", slot)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE slots SET consensus_rewards_fetched = TRUE, sync_rewards_fetched = TRUE WHERE slot = $1`,
			int64(slot)); err != nil {
			return errors.Wrapf(err, "could not flag rewards of slot %d", slot)
		}
		return nil
	})
}

// SaveEpochRewards lands the epoch's attestation reward rows in the staging
// table and merges them additively into hourly_validator_stats. Truncate,
// staging insert, merge and the epoch flag all happen in one transaction, so
// a replayed epoch either fully lands once or not at all.
func (s *Store) SaveEpochRewards(ctx context.Context, epoch types.Epoch, rows []iface.HourlyReward) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE epoch_rewards_temp`); err != nil {
			return errors.Wrap(err, "could not truncate reward staging table")
		}
		for start := 0; start < len(rows); start += insertBatch {
			end := start + insertBatch
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO epoch_rewards_temp
					(validator_index, day, hour, head, target, source, inactivity,
					 missed_head, missed_target, missed_source, missed_inactivity)
				 VALUES (:validator_index, :day, :hour, :head, :target, :source, :inactivity,
					 :missed_head, :missed_target, :missed_source, :missed_inactivity)`,
				rows[start:end]); err != nil {
				return errors.Wrapf(err, "could not stage rewards of epoch %d", epoch)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hourly_validator_stats
				(validator_index, day, hour, head, target, source, inactivity,
				 missed_head, missed_target, missed_source, missed_inactivity)
			 SELECT validator_index, day, hour, head, target, source, inactivity,
				 missed_head, missed_target, missed_source, missed_inactivity
			 FROM epoch_rewards_temp
			 ON CONFLICT (validator_index, day, hour) DO UPDATE SET
				head = hourly_validator_stats.head + EXCLUDED.head,
				target = hourly_validator_stats.target + EXCLUDED.target,
				source = hourly_validator_stats.source + EXCLUDED.source,
				inactivity = hourly_validator_stats.inactivity + EXCLUDED.inactivity,
				missed_head = hourly_validator_stats.missed_head + EXCLUDED.missed_head,
				missed_target = hourly_validator_stats.missed_target + EXCLUDED.missed_target,
				missed_source = hourly_validator_stats.missed_source + EXCLUDED.missed_source,
				missed_inactivity = hourly_validator_stats.missed_inactivity + EXCLUDED.missed_inactivity`); err != nil {
			return errors.Wrapf(err, "could not merge rewards of epoch %d", epoch)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE epochs SET rewards_fetched = TRUE WHERE epoch = $1`, int64(epoch)); err != nil {
			return errors.Wrapf(err, "could not flag rewards of epoch %d", epoch)
		}
		return nil
	})
}
