package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/sirupsen/logrus"
)

// FetchBlockAndSyncRewards fetches the proposer reward and the per-member
// sync committee rewards of the next pending slot and saves them under the
// slot's UTC date and hour. A missed slot still gets a zero proposer row,
// attributed via the epoch's proposer duties, so daily proposals-missed
// counts stay exact. Both slot flags flip in the same transaction as the
// rows.
func (s *Service) FetchBlockAndSyncRewards(ctx context.Context, log *logrus.Entry) error {
	slot, found, err := s.db.NextConsensusRewardsSlot(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No slot pending consensus rewards")
		return nil
	}
	if max := s.maxSlotToFetch(); slot > max {
		logSkipping(log, "slot", uint64(slot), max)
		return nil
	}
	log = log.WithField("slot", uint64(slot))

	epoch := slots.EpochOf(slot)
	members, membersKnown, err := s.db.SyncCommitteeValidators(ctx, epoch)
	if err != nil {
		return err
	}
	if !membersKnown {
		log.Info("Sync committee not yet fetched, retrying next tick")
		return nil
	}

	date, hour := slots.SlotDateHour(slot)
	blockRewards, missed, err := s.cl.BlockRewards(ctx, slot)
	if err != nil {
		return err
	}

	var rows []iface.BlockSyncReward
	if missed {
		proposer, dutyKnown, err := s.missedProposer(ctx, epoch, slot)
		if err != nil {
			return err
		}
		if dutyKnown {
			rows = append(rows, iface.BlockSyncReward{ValidatorIndex: proposer, Date: date, Hour: hour})
		}
		if err := s.db.SaveBlockAndSyncRewards(ctx, slot, rows); err != nil {
			return err
		}
		log.Info("Slot missed, zero proposer reward recorded")
		return nil
	}

	rows = append(rows, iface.BlockSyncReward{
		ValidatorIndex: blockRewards.ProposerIndex,
		Date:           date,
		Hour:           hour,
		BlockRewards:   blockRewards.Total,
	})

	syncRewards, syncMissed, err := s.cl.SyncCommitteeRewards(ctx, slot, members)
	if err != nil {
		return err
	}
	if !syncMissed {
		for _, r := range syncRewards {
			rows = append(rows, iface.BlockSyncReward{
				ValidatorIndex: r.ValidatorIndex,
				Date:           date,
				Hour:           hour,
				SyncRewards:    r.Reward,
			})
		}
	}

	if err := s.db.SaveBlockAndSyncRewards(ctx, slot, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"proposer": uint64(blockRewards.ProposerIndex), "syncRows": len(syncRewards)}).Info("Consensus rewards fetched")
	return nil
}

// missedProposer resolves who should have proposed a missed slot.
func (s *Service) missedProposer(ctx context.Context, epoch types.Epoch, slot types.Slot) (types.ValidatorIndex, bool, error) {
	duties, err := s.cl.ProposerDuties(ctx, epoch)
	if err != nil {
		return 0, false, err
	}
	for _, d := range duties {
		if d.Slot == slot {
			return d.ValidatorIndex, true, nil
		}
	}
	return 0, false, nil
}
