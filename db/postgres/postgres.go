// Package postgres implements the store gateway on PostgreSQL via sqlx.
// All timestamps are stored in UTC; gwei columns are NUMERIC so stored
// aggregates never overflow; completion flags flip inside the transaction
// that writes their dependent rows.
package postgres

import (
	"context"

	"github.com/beaconwatch/indexer/db/iface"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// Batch size for multi-row inserts, kept well under the 65535 bind
// parameter limit at our widest row.
const insertBatch = 4000

// Store is the PostgreSQL-backed iface.Database.
type Store struct {
	db *sqlx.DB
}

var _ iface.Database = (*Store)(nil)

// Open connects to the database. The pool blocks callers when saturated
// instead of failing them.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to postgres")
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	return &Store{db: db}, nil
}

// Bootstrap applies the idempotent schema.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "could not apply schema")
	}
	log.Debug("Schema applied")
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Could not roll back transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "could not commit transaction")
}
