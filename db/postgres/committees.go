package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/types"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SaveCommittees stores every committee seat of the epoch, records the
// per-slot committee size vectors, and flips the epoch's committees flag,
// all in one transaction.
func (s *Store) SaveCommittees(ctx context.Context, epoch types.Epoch, positions []iface.CommitteePosition, countsBySlot map[types.Slot][]int32) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(positions); start += insertBatch {
			end := start + insertBatch
			if end > len(positions) {
				end = len(positions)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO committees (slot, idx, aggregation_bits_index, validator_index)
				 VALUES (:slot, :idx, :aggregation_bits_index, :validator_index)
				 ON CONFLICT (slot, idx, aggregation_bits_index) DO NOTHING`,
				positions[start:end]); err != nil {
				return errors.Wrapf(err, "could not insert committees for epoch %d", epoch)
			}
		}
		for slot, counts := range countsBySlot {
			if _, err := tx.ExecContext(ctx,
				`UPDATE slots SET committees_count_in_slot = $2::integer[] WHERE slot = $1`,
				int64(slot), intArrayLiteral(counts)); err != nil {
				return errors.Wrapf(err, "could not update committee sizes of slot %d", slot)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE epochs SET committees_fetched = TRUE WHERE epoch = $1`, int64(epoch)); err != nil {
			return errors.Wrapf(err, "could not flag committees of epoch %d", epoch)
		}
		return nil
	})
}

// CommitteeSizes returns the committee size vector of a slot, indexed by
// committee index.
func (s *Store) CommitteeSizes(ctx context.Context, slot types.Slot) ([]int32, bool, error) {
	var encoded string
	err := s.db.GetContext(ctx, &encoded,
		`SELECT array_to_json(committees_count_in_slot)::text FROM slots WHERE slot = $1`, int64(slot))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read committee sizes of slot %d", slot)
	}
	var counts []int32
	if err := json.UnmarshalFromString(encoded, &counts); err != nil {
		return nil, false, errors.Wrapf(err, "could not decode committee sizes of slot %d", slot)
	}
	return counts, true, nil
}

// ApplyAttestations records inclusion delays for the block at the given
// slot. First inclusion wins: an existing smaller delay is never replaced.
// On-time seats older than pruneBefore are removed, and the slot's
// attestations flag is flipped, all in one transaction.
func (s *Store) ApplyAttestations(ctx context.Context, slot types.Slot, updates []iface.DelayUpdate, pruneBefore types.Slot, maxDelay uint64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(updates); start += insertBatch {
			end := start + insertBatch
			if end > len(updates) {
				end = len(updates)
			}
			batch := updates[start:end]
			values := make([]string, 0, len(batch))
			args := make([]interface{}, 0, len(batch)*4)
			for i, u := range batch {
				base := i * 4
				values = append(values, fmt.Sprintf("($%d::bigint, $%d::integer, $%d::integer, $%d::integer)",
					base+1, base+2, base+3, base+4))
				args = append(args, int64(u.Slot), int64(u.Index), u.AggregationBitsIndex, u.Delay)
			}
			query := `UPDATE committees c
				 SET attestation_delay = LEAST(COALESCE(c.attestation_delay, v.delay), v.delay)
				 FROM (VALUES ` + strings.Join(values, ",") + `) AS v (slot, idx, bits_index, delay)
				 WHERE c.slot = v.slot AND c.idx = v.idx AND c.aggregation_bits_index = v.bits_index`
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return errors.Wrapf(err, "could not apply attestation delays from slot %d", slot)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM committees
			 WHERE slot < $1 AND attestation_delay IS NOT NULL AND attestation_delay <= $2`,
			int64(pruneBefore), int64(maxDelay)); err != nil {
			return errors.Wrap(err, "could not prune on-time committees")
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE slots SET attestations_fetched = TRUE WHERE slot = $1`, int64(slot)); err != nil {
			return errors.Wrapf(err, "could not flag attestations of slot %d", slot)
		}
		return nil
	})
}

// PruneOnTimeCommittees removes seats older than before whose attestation
// arrived within the tolerance. Seats with a null delay are kept as miss
// evidence.
func (s *Store) PruneOnTimeCommittees(ctx context.Context, before types.Slot, maxDelay uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM committees
		 WHERE slot < $1 AND attestation_delay IS NOT NULL AND attestation_delay <= $2`,
		int64(before), int64(maxDelay))
	if err != nil {
		return 0, errors.Wrap(err, "could not prune committees")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "could not count pruned committees")
}

// SaveSyncCommittee upserts the sync committee of one period and flips the
// epoch's flag in the same transaction.
func (s *Store) SaveSyncCommittee(ctx context.Context, epoch, fromEpoch, toEpoch types.Epoch, validators []types.ValidatorIndex, aggregates [][]types.ValidatorIndex) error {
	encodedAggregates, err := json.MarshalToString(aggregates)
	if err != nil {
		return errors.Wrap(err, "could not encode validator aggregates")
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sync_committees (from_epoch, to_epoch, validators, validator_aggregates)
			 VALUES ($1, $2, $3::bigint[], $4::jsonb)
			 ON CONFLICT (from_epoch, to_epoch)
			 DO UPDATE SET validators = EXCLUDED.validators, validator_aggregates = EXCLUDED.validator_aggregates`,
			int64(fromEpoch), int64(toEpoch), validatorArrayLiteral(validators), encodedAggregates); err != nil {
			return errors.Wrapf(err, "could not upsert sync committee %d-%d", fromEpoch, toEpoch)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE epochs SET sync_committees_fetched = TRUE WHERE epoch = $1`, int64(epoch)); err != nil {
			return errors.Wrapf(err, "could not flag sync committees of epoch %d", epoch)
		}
		return nil
	})
}

// SyncCommitteeValidators returns the members of the sync committee period
// covering the epoch.
func (s *Store) SyncCommitteeValidators(ctx context.Context, epoch types.Epoch) ([]types.ValidatorIndex, bool, error) {
	var encoded string
	err := s.db.GetContext(ctx, &encoded,
		`SELECT array_to_json(validators)::text FROM sync_committees
		 WHERE from_epoch <= $1 AND to_epoch >= $1`, int64(epoch))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read sync committee of epoch %d", epoch)
	}
	var validators []types.ValidatorIndex
	if err := json.UnmarshalFromString(encoded, &validators); err != nil {
		return nil, false, errors.Wrap(err, "could not decode sync committee members")
	}
	return validators, true, nil
}

func intArrayLiteral(vs []int32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func validatorArrayLiteral(vs []types.ValidatorIndex) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
