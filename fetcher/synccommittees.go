package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/time/slots"
	"github.com/sirupsen/logrus"
)

// FetchSyncCommittees resolves the sync committee period covering the next
// pending epoch and upserts it under its (fromEpoch, toEpoch) window. Every
// epoch of the same period re-upserts the same row, which is a no-op.
func (s *Service) FetchSyncCommittees(ctx context.Context, log *logrus.Entry) error {
	epoch, found, err := s.db.NextSyncCommitteesEpoch(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No epoch pending sync committees")
		return nil
	}
	if max := s.maxSlotToFetch(); slots.EpochEndSlot(epoch) > max {
		logSkipping(log, "epoch", uint64(epoch), max)
		return nil
	}

	committee, err := s.cl.SyncCommittees(ctx, epoch)
	if err != nil {
		return err
	}
	fromEpoch := slots.PeriodStartEpoch(epoch)
	toEpoch := slots.PeriodEndEpoch(epoch)
	if err := s.db.SaveSyncCommittee(ctx, epoch, fromEpoch, toEpoch, committee.Validators, committee.ValidatorAggregates); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"epoch":     uint64(epoch),
		"fromEpoch": uint64(fromEpoch),
		"toEpoch":   uint64(toEpoch),
		"members":   len(committee.Validators),
	}).Info("Sync committee fetched")
	return nil
}
