package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/time/slots"
	"github.com/sirupsen/logrus"
)

// CreateEpochs advances the slot/epoch frontier: it creates slot and epoch
// rows from the configured lookback (or the last created slot) up to the
// head-delay boundary. Rows start with all flags false and are filled by
// the feed fetchers.
func (s *Service) CreateEpochs(ctx context.Context, log *logrus.Entry) error {
	from := slots.OldestLookbackSlot(s.now(), s.lookback)
	latest, found, err := s.db.LatestSlot(ctx)
	if err != nil {
		return err
	}
	if found && latest+1 > from {
		from = latest + 1
	}
	to := s.maxSlotToFetch()
	if to < from {
		logSkipping(log, "slot", uint64(from), to)
		return nil
	}
	if err := s.db.CreateSlots(ctx, from, to); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"from": uint64(from), "to": uint64(to)}).Info("Created slot rows")
	return nil
}
