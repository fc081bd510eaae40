package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FetchAttestations processes the block at the next pending slot: for every
// attestation it records the inclusion delay of each participating
// committee seat. A 404 means the slot was missed; the flag still flips so
// the pipeline keeps moving. Seats older than the late window whose
// attestation arrived on time are pruned in the same transaction; late and
// null seats are kept as miss evidence.
func (s *Service) FetchAttestations(ctx context.Context, log *logrus.Entry) error {
	slot, found, err := s.db.NextAttestationsSlot(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No slot pending attestations")
		return nil
	}
	if max := s.maxSlotToFetch(); slot > max {
		logSkipping(log, "slot", uint64(slot), max)
		return nil
	}
	log = log.WithField("slot", uint64(slot))

	// Attestations reference committees up to one epoch back; the epoch's
	// committees flag covers all earlier epochs because committees are
	// fetched in epoch order.
	epochRow, found, err := s.db.EpochFlags(ctx, slots.EpochOf(slot))
	if err != nil {
		return err
	}
	if !found || !epochRow.CommitteesFetched {
		log.Info("Committees not yet fetched, retrying next tick")
		return nil
	}

	cfg := params.ChainProfile()
	lateWindow := types.Slot(cfg.SlotsPerEpoch * lateWindowEpochs)
	pruneBefore := types.Slot(0)
	if slot > lateWindow {
		pruneBefore = slot - lateWindow
	}

	block, missed, err := s.cl.Block(ctx, slot)
	if err != nil {
		return err
	}
	if missed {
		if err := s.db.ApplyAttestations(ctx, slot, nil, pruneBefore, cfg.MaxAttestationDelay); err != nil {
			return err
		}
		log.Info("Slot missed, no attestations")
		return nil
	}

	var updates []iface.DelayUpdate
	sizes := make(map[types.Slot][]int32)
	for _, att := range block.Attestations {
		if att.Slot > slot {
			continue
		}
		counts, ok := sizes[att.Slot]
		if !ok {
			var foundSlot bool
			counts, foundSlot, err = s.db.CommitteeSizes(ctx, att.Slot)
			if err != nil {
				return err
			}
			if !foundSlot {
				log.WithField("attestedSlot", uint64(att.Slot)).Debug("Attested slot outside indexed range")
				counts = nil
			}
			sizes[att.Slot] = counts
		}
		if uint64(att.Index) >= uint64(len(counts)) {
			continue
		}
		bits, err := parseAggregationBits(att.AggregationBits)
		if err != nil {
			return err
		}
		if n := bitlistLen(bits); n < int(counts[att.Index]) {
			return errors.Errorf("aggregation bits of slot %d committee %d encode %d seats, committee has %d",
				att.Slot, att.Index, n, counts[att.Index])
		}
		delay := int64(slot - att.Slot)
		for i := 0; i < int(counts[att.Index]); i++ {
			if bitSet(bits, i) {
				updates = append(updates, iface.DelayUpdate{
					Slot:                 att.Slot,
					Index:                att.Index,
					AggregationBitsIndex: i,
					Delay:                delay,
				})
			}
		}
	}

	if err := s.db.ApplyAttestations(ctx, slot, updates, pruneBefore, cfg.MaxAttestationDelay); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"attestations": len(block.Attestations), "seats": len(updates)}).Info("Attestations fetched")
	return nil
}
