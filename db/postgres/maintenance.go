package postgres

import (
	"context"

	"github.com/pkg/errors"
)

// hotTables receive the bulk of the write traffic and benefit from routine
// vacuuming.
var hotTables = []string{
	"committees",
	"slots",
	"hourly_validator_stats",
	"hourly_block_and_sync_rewards",
}

// Maintain runs VACUUM ANALYZE on the hot tables and, when reindex is set,
// rebuilds their indexes. VACUUM cannot run inside a transaction, so each
// statement autocommits.
func (s *Store) Maintain(ctx context.Context, reindex bool) error {
	for _, table := range hotTables {
		if _, err := s.db.ExecContext(ctx, `VACUUM ANALYZE `+table); err != nil {
			return errors.Wrapf(err, "could not vacuum %s", table)
		}
		if reindex {
			if _, err := s.db.ExecContext(ctx, `REINDEX TABLE `+table); err != nil {
				return errors.Wrapf(err, "could not reindex %s", table)
			}
		}
		log.WithField("table", table).Debug("Maintenance pass finished")
	}
	return nil
}
