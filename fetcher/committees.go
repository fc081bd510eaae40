package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/sirupsen/logrus"
)

// FetchCommittees resolves the committee assignments of the next pending
// epoch into one row per seat, records per-slot committee size vectors, and
// flips the epoch's committees flag.
func (s *Service) FetchCommittees(ctx context.Context, log *logrus.Entry) error {
	epoch, found, err := s.db.NextCommitteesEpoch(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No epoch pending committees")
		return nil
	}
	if max := s.maxSlotToFetch(); slots.EpochEndSlot(epoch) > max {
		logSkipping(log, "epoch", uint64(epoch), max)
		return nil
	}

	committees, err := s.cl.Committees(ctx, epoch)
	if err != nil {
		return err
	}

	var positions []iface.CommitteePosition
	countsBySlot := make(map[types.Slot][]int32)
	for _, committee := range committees {
		for i, validator := range committee.Validators {
			positions = append(positions, iface.CommitteePosition{
				Slot:                 committee.Slot,
				Index:                committee.Index,
				AggregationBitsIndex: i,
				ValidatorIndex:       validator,
			})
		}
		counts := countsBySlot[committee.Slot]
		for uint64(len(counts)) <= uint64(committee.Index) {
			counts = append(counts, 0)
		}
		counts[committee.Index] = int32(len(committee.Validators))
		countsBySlot[committee.Slot] = counts
	}

	if err := s.db.SaveCommittees(ctx, epoch, positions, countsBySlot); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"epoch": uint64(epoch), "seats": len(positions)}).Info("Committees fetched")
	return nil
}
