package fetcher

import (
	"context"
	"strings"

	"github.com/beaconwatch/indexer/db/iface"
	"github.com/beaconwatch/indexer/time/slots"
	"github.com/beaconwatch/indexer/types"
	"github.com/sirupsen/logrus"
)

// FetchValidatorsInfo refreshes the full validator registry at the next
// pending epoch's start slot: status, balances and withdrawal address.
func (s *Service) FetchValidatorsInfo(ctx context.Context, log *logrus.Entry) error {
	epoch, found, err := s.db.NextValidatorsInfoEpoch(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No epoch pending validator info")
		return nil
	}
	stateSlot := slots.EpochStartSlot(epoch)
	if max := s.maxSlotToFetch(); stateSlot > max {
		logSkipping(log, "epoch", uint64(epoch), max)
		return nil
	}

	validators, err := s.cl.Validators(ctx, stateSlot, nil, nil)
	if err != nil {
		return err
	}
	rows := make([]iface.Validator, len(validators))
	for i, v := range validators {
		rows[i] = iface.Validator{
			Index:             v.Index,
			Status:            v.Status,
			Balance:           v.Balance,
			EffectiveBalance:  v.EffectiveBalance,
			WithdrawalAddress: withdrawalAddress(v.WithdrawalCredentials),
		}
	}
	if err := s.db.SaveValidators(ctx, epoch, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"epoch": uint64(epoch), "validators": len(rows)}).Info("Validator registry refreshed")
	return nil
}

// FetchValidatorBalances refreshes the balances of all non-terminal
// validators at the next pending epoch's start slot. Requests are batched
// so one POST body stays bounded regardless of registry size.
func (s *Service) FetchValidatorBalances(ctx context.Context, log *logrus.Entry) error {
	epoch, found, err := s.db.NextBalancesEpoch(ctx)
	if err != nil {
		return err
	}
	if !found {
		log.Debug("No epoch pending balances")
		return nil
	}
	stateSlot := slots.EpochStartSlot(epoch)
	if max := s.maxSlotToFetch(); stateSlot > max {
		logSkipping(log, "epoch", uint64(epoch), max)
		return nil
	}

	validators, err := s.db.NonTerminalValidators(ctx)
	if err != nil {
		return err
	}
	if len(validators) == 0 {
		log.Info("Validator registry not yet fetched, retrying next tick")
		return nil
	}
	ids := make([]types.ValidatorIndex, len(validators))
	for i, v := range validators {
		ids[i] = v.Index
	}

	var rows []iface.Validator
	for start := 0; start < len(ids); start += balanceBatchSize {
		end := start + balanceBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		balances, err := s.cl.ValidatorBalances(ctx, stateSlot, ids[start:end])
		if err != nil {
			return err
		}
		for _, b := range balances {
			rows = append(rows, iface.Validator{Index: b.Index, Balance: b.Balance})
		}
	}
	if err := s.db.SaveValidatorBalances(ctx, epoch, rows); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"epoch": uint64(epoch), "validators": len(rows)}).Info("Validator balances refreshed")
	return nil
}

// withdrawalAddress extracts the execution address from 0x01/0x02
// withdrawal credentials. BLS (0x00) credentials have no address yet.
func withdrawalAddress(credentials string) string {
	creds := strings.TrimPrefix(strings.ToLower(credentials), "0x")
	if len(creds) != 64 {
		return ""
	}
	switch creds[:2] {
	case "01", "02":
		return "0x" + creds[24:]
	default:
		return ""
	}
}
