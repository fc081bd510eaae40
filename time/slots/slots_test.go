package slots

import (
	"testing"
	"time"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/types"
	"github.com/stretchr/testify/require"
)

func setProfile(t *testing.T, c *params.ChainConfig) {
	t.Helper()
	prev := params.ChainProfile()
	params.OverrideChainProfile(c)
	t.Cleanup(func() { params.OverrideChainProfile(prev) })
}

func TestSlotTimeRoundTrip(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	for _, s := range []types.Slot{0, 1, 31, 32, 100000, 7654321} {
		require.Equal(t, s, SlotAt(StartTime(s)), "slot %d", s)
	}
	// Mid-slot times still resolve to the slot in progress.
	mid := StartTime(12345).Add(7 * time.Second)
	require.Equal(t, types.Slot(12345), SlotAt(mid))
}

func TestSlotAtBeforeGenesis(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	require.Equal(t, types.Slot(0), SlotAt(time.Unix(0, 0)))
}

func TestEpochOf(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	require.Equal(t, types.Epoch(0), EpochOf(31))
	require.Equal(t, types.Epoch(1), EpochOf(32))
	require.Equal(t, types.Epoch(312), EpochOf(types.Slot(312*32+17)))

	setProfile(t, params.GnosisConfig())
	require.Equal(t, types.Epoch(0), EpochOf(15))
	require.Equal(t, types.Epoch(1), EpochOf(16))
}

func TestEpochBounds(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	require.Equal(t, types.Slot(64), EpochStartSlot(2))
	require.Equal(t, types.Slot(95), EpochEndSlot(2))
}

func TestPeriodStartEpoch(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	require.Equal(t, types.Epoch(0), PeriodStartEpoch(255))
	require.Equal(t, types.Epoch(256), PeriodStartEpoch(256))
	require.Equal(t, types.Epoch(256), PeriodStartEpoch(400))
	require.Equal(t, types.Epoch(511), PeriodEndEpoch(400))
}

func TestLookbackAndMaxFetch(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	now := StartTime(1000)
	require.Equal(t, types.Slot(900), OldestLookbackSlot(now, 100))
	require.Equal(t, types.Slot(0), OldestLookbackSlot(now, 2000))
	require.Equal(t, types.Slot(994), MaxSlotToFetch(now))
}

func TestUTCDateHour(t *testing.T) {
	// 23:30 UTC expressed in a +02:00 zone must still key to hour 23.
	loc := time.FixedZone("EET", 2*3600)
	local := time.Date(2023, 5, 2, 1, 30, 0, 0, loc)
	date, hour := UTCDateHour(local)
	require.Equal(t, "2023-05-01", date)
	require.Equal(t, 23, hour)
}

func TestHourWindow(t *testing.T) {
	ts := time.Date(2023, 5, 1, 13, 45, 12, 0, time.UTC)
	start, end := HourWindow(ts)
	require.Equal(t, time.Date(2023, 5, 1, 13, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2023, 5, 1, 14, 0, 0, 0, time.UTC), end)
}

func TestDayWindow(t *testing.T) {
	ts := time.Date(2023, 5, 1, 13, 45, 12, 0, time.UTC)
	start, end := DayWindow(ts)
	require.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestLastSlotBefore(t *testing.T) {
	setProfile(t, params.MainnetConfig())
	// A window boundary that coincides with a slot start excludes that slot.
	require.Equal(t, types.Slot(99), LastSlotBefore(StartTime(100)))
	require.Equal(t, types.Slot(100), LastSlotBefore(StartTime(100).Add(time.Second)))
}
