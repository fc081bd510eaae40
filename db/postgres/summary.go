package postgres

import (
	"context"
	"time"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/types"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// LastSummaryUpdate reads the hourly and daily watermarks.
func (s *Store) LastSummaryUpdate(ctx context.Context) (time.Time, time.Time, error) {
	var row struct {
		Hourly time.Time `db:"hourly_validator_stats"`
		Daily  time.Time `db:"daily_validator_stats"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT hourly_validator_stats, daily_validator_stats FROM last_summary_update WHERE id = 1`)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "could not read summary watermarks")
	}
	return row.Hourly.UTC(), row.Daily.UTC(), nil
}

// MissedAttestationCounts groups committee seats in [fromSlot, toSlot] whose
// attestation never arrived or arrived late, by validator.
func (s *Store) MissedAttestationCounts(ctx context.Context, fromSlot, toSlot types.Slot, maxDelay uint64) ([]iface.MissCount, error) {
	var counts []iface.MissCount
	err := s.db.SelectContext(ctx, &counts,
		`SELECT validator_index, COUNT(*) AS missed
		 FROM committees
		 WHERE slot BETWEEN $1 AND $2
		   AND (attestation_delay IS NULL OR attestation_delay > $3)
		 GROUP BY validator_index`,
		int64(fromSlot), int64(toSlot), int64(maxDelay))
	return counts, errors.Wrap(err, "could not count missed attestations")
}

// SaveHourlySummary overwrites the attestations_missed counters of the hour
// and advances the hourly watermark in the same transaction.
func (s *Store) SaveHourlySummary(ctx context.Context, date string, hour int, counts []iface.MissCount, watermark time.Time) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		type missRow struct {
			ValidatorIndex types.ValidatorIndex `db:"validator_index"`
			Date           string               `db:"day"`
			Hour           int                  `db:"hour"`
			Missed         int                  `db:"missed"`
		}
		rows := make([]missRow, len(counts))
		for i, c := range counts {
			rows[i] = missRow{ValidatorIndex: c.ValidatorIndex, Date: date, Hour: hour, Missed: c.Missed}
		}
		for start := 0; start < len(rows); start += insertBatch {
			end := start + insertBatch
			if end > len(rows) {
				end = len(rows)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO hourly_validator_stats (validator_index, day, hour, attestations_missed)
				 VALUES (:validator_index, :day, :hour, :missed)
				 ON CONFLICT (validator_index, day, hour)
				 DO UPDATE SET attestations_missed = EXCLUDED.attestations_missed`,
				rows[start:end]); err != nil {
				return errors.Wrapf(err, "could not upsert missed attestations for %s hour %d", date, hour)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE last_summary_update SET hourly_validator_stats = $1 WHERE id = 1`, watermark.UTC()); err != nil {
			return errors.Wrap(err, "could not advance hourly watermark")
		}
		return nil
	})
}

// AnyEpochWithRewardsAfter reports whether any epoch past the given one has
// its attestation rewards fetched.
func (s *Store) AnyEpochWithRewardsAfter(ctx context.Context, epoch types.Epoch) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM epochs WHERE epoch > $1 AND rewards_fetched)`, int64(epoch))
	return exists, errors.Wrap(err, "could not check reward progress")
}

// DistinctHoursAfter counts distinct (day, hour) windows in
// hourly_validator_stats strictly after the given time.
func (s *Store) DistinctHoursAfter(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(DISTINCT (day, hour)) FROM hourly_validator_stats
		 WHERE (day + hour * INTERVAL '1 hour') AT TIME ZONE 'UTC' > $1`, since.UTC())
	return n, errors.Wrap(err, "could not count settled hours")
}

// SaveDailySummary rolls the day's hourly rows into daily_validator_stats
// and advances the daily watermark, all in one transaction.
func (s *Store) SaveDailySummary(ctx context.Context, date string, watermark time.Time) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daily_validator_stats
				(validator_index, day, head, target, source, inactivity,
				 missed_head, missed_target, missed_source, missed_inactivity, attestations_missed)
			 SELECT validator_index, day,
				 SUM(head), SUM(target), SUM(source), SUM(inactivity),
				 SUM(missed_head), SUM(missed_target), SUM(missed_source), SUM(missed_inactivity),
				 SUM(attestations_missed)
			 FROM hourly_validator_stats WHERE day = $1::date
			 GROUP BY validator_index, day
			 ON CONFLICT (validator_index, day) DO UPDATE SET
				head = EXCLUDED.head,
				target = EXCLUDED.target,
				source = EXCLUDED.source,
				inactivity = EXCLUDED.inactivity,
				missed_head = EXCLUDED.missed_head,
				missed_target = EXCLUDED.missed_target,
				missed_source = EXCLUDED.missed_source,
				missed_inactivity = EXCLUDED.missed_inactivity,
				attestations_missed = EXCLUDED.attestations_missed`,
			date); err != nil {
			return errors.Wrapf(err, "could not roll up validator stats for %s", date)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO daily_validator_stats (validator_index, day, block_rewards, sync_rewards)
			 SELECT validator_index, day, SUM(block_rewards), SUM(sync_rewards)
			 FROM hourly_block_and_sync_rewards WHERE day = $1::date
			 GROUP BY validator_index, day
			 ON CONFLICT (validator_index, day) DO UPDATE SET
				block_rewards = EXCLUDED.block_rewards,
				sync_rewards = EXCLUDED.sync_rewards`,
			date); err != nil {
			return errors.Wrapf(err, "could not roll up block and sync rewards for %s", date)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE last_summary_update SET daily_validator_stats = $1 WHERE id = 1`, watermark.UTC()); err != nil {
			return errors.Wrap(err, "could not advance daily watermark")
		}
		return nil
	})
}
