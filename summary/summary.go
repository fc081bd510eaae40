// Package summary rolls raw per-slot and per-epoch rows up into the hourly
// and daily validator statistics. Each summarizer reads its watermark,
// checks that every feed has advanced past the target window, aggregates,
// and advances the watermark inside the same transaction as the rollup.
// Unmet preconditions are not errors; the job logs and retries next tick.
package summary

import (
	"context"
	"time"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/sirupsen/logrus"
)

// Service owns the summarization tasks.
type Service struct {
	db       iface.Database
	lookback uint64
	now      func() time.Time
}

// New wires a summary service.
func New(db iface.Database, lookbackSlots uint64) *Service {
	return &Service{db: db, lookback: lookbackSlots, now: time.Now}
}

// SummarizeHourly aggregates missed attestations over the hour after the
// hourly watermark. The count for a window is deterministic once every slot
// of the window has all three flags and the reward feed has passed the
// window's epoch, so the rows overwrite rather than add. A window with zero
// missed seats leaves the watermark alone; an empty result this late means
// the window's committees are not in the store yet.
func (s *Service) SummarizeHourly(ctx context.Context, log *logrus.Entry) error {
	hourly, _, err := s.db.LastSummaryUpdate(ctx)
	if err != nil {
		return err
	}
	startTime := hourly
	// A fresh database reports the Unix epoch as its watermark.
	if startTime.Unix() <= 0 {
		oldest := slots.OldestLookbackSlot(s.now(), s.lookback)
		startTime, _ = slots.HourWindow(slots.StartTime(oldest))
	}
	endTime := startTime.Add(time.Hour)
	if s.now().Before(endTime) {
		log.Debug("Hour still in progress")
		return nil
	}
	log = log.WithField("window", startTime.Format("2006-01-02 15:00"))

	boundary := slots.SlotAt(endTime)
	flags, found, err := s.db.SlotFlags(ctx, boundary)
	if err != nil {
		return err
	}
	if !found || !flags.AttestationsFetched || !flags.ConsensusRewardsFetched || !flags.SyncRewardsFetched {
		log.Info("Window boundary slot not fully fetched, retrying next tick")
		return nil
	}
	advanced, err := s.db.AnyEpochWithRewardsAfter(ctx, slots.EpochOf(boundary))
	if err != nil {
		return err
	}
	if !advanced {
		log.Info("Reward feed has not passed the window, retrying next tick")
		return nil
	}

	fromSlot := slots.SlotAt(startTime)
	if slots.StartTime(fromSlot).Before(startTime) {
		fromSlot++
	}
	toSlot := slots.LastSlotBefore(endTime)
	counts, err := s.db.MissedAttestationCounts(ctx, fromSlot, toSlot, params.ChainProfile().MaxAttestationDelay)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		log.Info("No committee rows in window, retrying next tick")
		return nil
	}

	date, hour := slots.UTCDateHour(startTime)
	if err := s.db.SaveHourlySummary(ctx, date, hour, counts, endTime); err != nil {
		return err
	}
	log.WithField("validators", len(counts)).Info("Hourly summary written")
	return nil
}

// SummarizeDaily rolls one UTC day of hourly rows into the daily tables.
// It requires a full day since the last run, at least 24 distinct summarized
// hours past the previous watermark, and the day's final slot to be fully
// fetched including its epoch's attestation rewards.
func (s *Service) SummarizeDaily(ctx context.Context, log *logrus.Entry) error {
	hourly, daily, err := s.db.LastSummaryUpdate(ctx)
	if err != nil {
		return err
	}
	dayAnchor := daily
	if dayAnchor.Unix() <= 0 {
		if hourly.Unix() <= 0 {
			log.Debug("No hourly summaries yet")
			return nil
		}
		dayAnchor, _ = slots.DayWindow(hourly.Add(-time.Hour))
	}
	dayStart, dayEnd := slots.DayWindow(dayAnchor)
	now := s.now()
	if now.Before(dayEnd) || (daily.Unix() > 0 && now.Before(daily.Add(24*time.Hour))) {
		log.Debug("Day still in progress")
		return nil
	}
	log = log.WithField("day", dayStart.Format("2006-01-02"))

	hours, err := s.db.DistinctHoursAfter(ctx, daily)
	if err != nil {
		return err
	}
	if hours < 24 {
		log.WithField("hours", hours).Info("Not enough summarized hours, retrying next tick")
		return nil
	}

	lastSlot := slots.LastSlotBefore(dayEnd)
	epochRow, found, err := s.db.EpochFlags(ctx, slots.EpochOf(lastSlot))
	if err != nil {
		return err
	}
	if !found || !epochRow.RewardsFetched {
		log.Info("Attestation rewards not yet fetched for the day's last epoch, retrying next tick")
		return nil
	}
	slotRow, found, err := s.db.SlotFlags(ctx, lastSlot)
	if err != nil {
		return err
	}
	if !found || !slotRow.ConsensusRewardsFetched || !slotRow.SyncRewardsFetched {
		log.Info("Consensus rewards not yet fetched for the day's last slot, retrying next tick")
		return nil
	}

	date := dayStart.Format("2006-01-02")
	if err := s.db.SaveDailySummary(ctx, date, dayEnd); err != nil {
		return err
	}
	log.Info("Daily summary written")
	return nil
}
