package postgres

import (
	"context"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/types"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// terminalStatuses are the lifecycle states after which a validator's
// balance can no longer change; such validators are excluded from refresh
// batches.
var terminalStatuses = []string{
	"exited_unslashed",
	"exited_slashed",
	"withdrawal_done",
}

// SaveValidators upserts registry entries and flips the epoch's validator
// info flag in the same transaction.
func (s *Store) SaveValidators(ctx context.Context, epoch types.Epoch, validators []iface.Validator) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(validators); start += insertBatch {
			end := start + insertBatch
			if end > len(validators) {
				end = len(validators)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO validators (validator_index, status, balance, effective_balance, withdrawal_address)
				 VALUES (:validator_index, :status, :balance, :effective_balance, :withdrawal_address)
				 ON CONFLICT (validator_index) DO UPDATE SET
					status = EXCLUDED.status,
					balance = EXCLUDED.balance,
					effective_balance = EXCLUDED.effective_balance,
					withdrawal_address = EXCLUDED.withdrawal_address`,
				validators[start:end]); err != nil {
				return errors.Wrapf(err, "could not upsert validators for epoch %d", epoch)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE epochs SET validators_info_fetched = TRUE WHERE epoch = $1`, int64(epoch)); err != nil {
			return errors.Wrapf(err, "could not flag validator info of epoch %d", epoch)
		}
		return nil
	})
}

// SaveValidatorBalances updates balances only and flips the epoch's balance
// flag in the same transaction.
func (s *Store) SaveValidatorBalances(ctx context.Context, epoch types.Epoch, balances []iface.Validator) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(balances); start += insertBatch {
			end := start + insertBatch
			if end > len(balances) {
				end = len(balances)
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO validators (validator_index, balance)
				 VALUES (:validator_index, :balance)
				 ON CONFLICT (validator_index) DO UPDATE SET balance = EXCLUDED.balance`,
				balances[start:end]); err != nil {
				return errors.Wrapf(err, "could not update balances for epoch %d", epoch)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE epochs SET validators_balances_fetched = TRUE WHERE epoch = $1`, int64(epoch)); err != nil {
			return errors.Wrapf(err, "could not flag balances of epoch %d", epoch)
		}
		return nil
	})
}

// NonTerminalValidators lists every validator not in a terminal lifecycle
// state, with its current registry view.
func (s *Store) NonTerminalValidators(ctx context.Context) ([]iface.Validator, error) {
	query, args, err := sqlx.In(
		`SELECT validator_index, status, balance::bigint AS balance,
		        effective_balance::bigint AS effective_balance, withdrawal_address
		 FROM validators WHERE status NOT IN (?) ORDER BY validator_index`,
		terminalStatuses)
	if err != nil {
		return nil, errors.Wrap(err, "could not build validator query")
	}
	var validators []iface.Validator
	err = s.db.SelectContext(ctx, &validators, s.db.Rebind(query), args...)
	return validators, errors.Wrap(err, "could not read non-terminal validators")
}
