package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to the database named by TEST_DATABASE_URL and
// applies the bootstrap schema. Tests using it skip when the variable is
// unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	require.NoError(t, s.Bootstrap(ctx))
	return s
}

func TestSaveEpochRewards_AllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `TRUNCATE hourly_validator_stats, epoch_rewards_temp`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `DELETE FROM epochs WHERE epoch = 4242`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO epochs (epoch) VALUES (4242)`)
	require.NoError(t, err)

	rows := []iface.HourlyReward{
		{ValidatorIndex: 1, Date: "2023-05-10", Hour: 14, Head: 100, Target: 40, MissedSource: 5},
		{ValidatorIndex: 2, Date: "2023-05-10", Hour: 14, Source: 60},
	}

	// The poisoned row overflows the staging table's smallint hour column
	// after the truncate and the first values already ran, so the whole
	// transaction has to roll back: no staged rows, no merged stats, no flag.
	poisoned := append(append([]iface.HourlyReward{}, rows...),
		iface.HourlyReward{ValidatorIndex: 3, Date: "2023-05-10", Hour: 40000})
	require.Error(t, s.SaveEpochRewards(ctx, 4242, poisoned))

	var staged, stats int
	require.NoError(t, s.db.GetContext(ctx, &staged, `SELECT COUNT(*) FROM epoch_rewards_temp`))
	require.NoError(t, s.db.GetContext(ctx, &stats, `SELECT COUNT(*) FROM hourly_validator_stats`))
	assert.Equal(t, 0, staged)
	assert.Equal(t, 0, stats)
	var flagged bool
	require.NoError(t, s.db.GetContext(ctx, &flagged, `SELECT rewards_fetched FROM epochs WHERE epoch = 4242`))
	assert.False(t, flagged)

	// The replay after the failure lands the epoch exactly once.
	require.NoError(t, s.SaveEpochRewards(ctx, 4242, rows))
	var head, missedSource, source int64
	require.NoError(t, s.db.GetContext(ctx, &head,
		`SELECT head::bigint FROM hourly_validator_stats WHERE validator_index = 1`))
	require.NoError(t, s.db.GetContext(ctx, &missedSource,
		`SELECT missed_source::bigint FROM hourly_validator_stats WHERE validator_index = 1`))
	require.NoError(t, s.db.GetContext(ctx, &source,
		`SELECT source::bigint FROM hourly_validator_stats WHERE validator_index = 2`))
	assert.Equal(t, int64(100), head)
	assert.Equal(t, int64(5), missedSource)
	assert.Equal(t, int64(60), source)
	require.NoError(t, s.db.GetContext(ctx, &flagged, `SELECT rewards_fetched FROM epochs WHERE epoch = 4242`))
	assert.True(t, flagged)
}
