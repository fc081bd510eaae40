package fetcher

import (
	"context"

	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/sirupsen/logrus"
)

// FetchAttestationRewards fetches the per-validator attestation reward
// components of the next pending epoch and derives the missed components
// against the ideal reward at each validator's effective balance. Rows are
// keyed by the UTC date and hour of the epoch's start slot and merged
// additively into the hourly stats.
func (s *Service) FetchAttestationRewards(ctx context.Context, log *logrus.Entry) error {
	epoch, found, err := s.db.NextRewardsEpoch(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No epoch pending attestation rewards")
		return nil
	}
	// Rewards for an epoch are final one epoch after it ends; the head
	// delay built into maxSlotToFetch covers that.
	if max := s.maxSlotToFetch(); slots.EpochEndSlot(epoch) > max {
		logSkipping(log, "epoch", uint64(epoch), max)
		return nil
	}
	log = log.WithField("epoch", uint64(epoch))

	validators, err := s.db.NonTerminalValidators(ctx)
	if err != nil {
		return err
	}
	if len(validators) == 0 {
		log.Info("Validator registry not yet fetched, retrying next tick")
		return nil
	}
	ids := make([]types.ValidatorIndex, len(validators))
	effective := make(map[types.ValidatorIndex]uint64, len(validators))
	for i, v := range validators {
		ids[i] = v.Index
		effective[v.Index] = v.EffectiveBalance
	}

	rewards, err := s.cl.AttestationRewards(ctx, epoch, ids)
	if err != nil {
		return err
	}
	idealByBalance := make(map[uint64]beaconIdeal, len(rewards.IdealRewards))
	for _, ideal := range rewards.IdealRewards {
		idealByBalance[ideal.EffectiveBalance] = beaconIdeal{
			head: ideal.Head, target: ideal.Target, source: ideal.Source, inactivity: ideal.Inactivity,
		}
	}

	increment := params.ChainProfile().EffectiveBalanceIncrement
	date, hour := slots.SlotDateHour(slots.EpochStartSlot(epoch))
	rows := make([]iface.HourlyReward, 0, len(rewards.TotalRewards))
	for _, total := range rewards.TotalRewards {
		row := iface.HourlyReward{
			ValidatorIndex: total.ValidatorIndex,
			Date:           date,
			Hour:           hour,
			Head:           total.Head,
			Target:         total.Target,
			Source:         total.Source,
			Inactivity:     total.Inactivity,
		}
		// Effective balances come in whole increments; rounding down maps
		// any stale registry value onto an ideal-rewards bucket.
		balance := effective[total.ValidatorIndex] / increment * increment
		if ideal, ok := idealByBalance[balance]; ok && balance > 0 {
			row.MissedHead = missedComponent(ideal.head, total.Head)
			row.MissedTarget = missedComponent(ideal.target, total.Target)
			row.MissedSource = missedComponent(ideal.source, total.Source)
			row.MissedInactivity = missedComponent(ideal.inactivity, total.Inactivity)
		}
		rows = append(rows, row)
	}

	if err := s.db.SaveEpochRewards(ctx, epoch, rows); err != nil {
		return err
	}
	log.WithField("validators", len(rows)).Info("Attestation rewards fetched")
	return nil
}

type beaconIdeal struct {
	head, target, source, inactivity types.Gwei
}

// missedComponent is the shortfall against the ideal, floored at zero so
// penalties do not produce negative misses.
func missedComponent(ideal, received types.Gwei) types.Gwei {
	if received >= ideal {
		return 0
	}
	return ideal - received
}
