// Package slots maps between wall time, slots and epochs for the active
// chain profile. All derivations are pure integer arithmetic on the genesis
// timestamp and the slot duration; date/hour keys are always UTC.
package slots

import (
	"time"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/types"
)

// SlotAt returns the slot in progress at time t. Times before genesis map
// to slot 0.
func SlotAt(t time.Time) types.Slot {
	cfg := params.ChainProfile()
	genesis := int64(cfg.GenesisTime)
	if t.Unix() < genesis {
		return 0
	}
	return types.Slot(uint64(t.Unix()-genesis) / cfg.SecondsPerSlot)
}

// StartTime returns the wall time at which slot s begins.
func StartTime(s types.Slot) time.Time {
	cfg := params.ChainProfile()
	return time.Unix(int64(cfg.GenesisTime)+int64(uint64(s)*cfg.SecondsPerSlot), 0).UTC()
}

// EpochOf returns the epoch containing slot s.
func EpochOf(s types.Slot) types.Epoch {
	return types.Epoch(uint64(s) / params.ChainProfile().SlotsPerEpoch)
}

// EpochStartSlot returns the first slot of epoch e.
func EpochStartSlot(e types.Epoch) types.Slot {
	return types.Slot(uint64(e) * params.ChainProfile().SlotsPerEpoch)
}

// EpochEndSlot returns the last slot of epoch e.
func EpochEndSlot(e types.Epoch) types.Slot {
	return EpochStartSlot(e+1) - 1
}

// PeriodStartEpoch returns the first epoch of the sync committee period
// containing epoch e.
func PeriodStartEpoch(e types.Epoch) types.Epoch {
	period := params.ChainProfile().EpochsPerSyncCommitteePeriod
	return types.Epoch(uint64(e) / period * period)
}

// PeriodEndEpoch returns the last epoch of the sync committee period
// containing epoch e.
func PeriodEndEpoch(e types.Epoch) types.Epoch {
	return PeriodStartEpoch(e) + types.Epoch(params.ChainProfile().EpochsPerSyncCommitteePeriod) - 1
}

// CurrentSlot returns the slot in progress now.
func CurrentSlot(now time.Time) types.Slot {
	return SlotAt(now)
}

// OldestLookbackSlot returns the oldest slot the indexer creates state for,
// given the configured lookback in slots.
func OldestLookbackSlot(now time.Time, lookback uint64) types.Slot {
	current := uint64(CurrentSlot(now))
	if lookback >= current {
		return 0
	}
	return types.Slot(current - lookback)
}

// MaxSlotToFetch returns the newest slot eligible for indexing. The gap to
// the head absorbs short reorgs.
func MaxSlotToFetch(now time.Time) types.Slot {
	current := uint64(CurrentSlot(now))
	delay := params.ChainProfile().DelaySlotsToHead
	if delay >= current {
		return 0
	}
	return types.Slot(current - delay)
}

// UTCDateHour returns the (date, hour) key for t, always in UTC.
func UTCDateHour(t time.Time) (string, int) {
	utc := t.UTC()
	return utc.Format("2006-01-02"), utc.Hour()
}

// SlotDateHour returns the (date, hour) key of the slot's start time.
func SlotDateHour(s types.Slot) (string, int) {
	return UTCDateHour(StartTime(s))
}

// HourWindow returns the [start, end) hour window containing t, in UTC.
func HourWindow(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(time.Hour)
	return start, start.Add(time.Hour)
}

// DayWindow returns the [start, end) UTC day window containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// LastSlotBefore returns the last slot that begins strictly before t.
func LastSlotBefore(t time.Time) types.Slot {
	s := SlotAt(t)
	if StartTime(s).Equal(t.UTC()) && s > 0 {
		return s - 1
	}
	return s
}
