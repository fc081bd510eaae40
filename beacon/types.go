package beacon

import (
	"strconv"

	"github.com/beaconwatch/indexer/types"
	"github.com/pkg/errors"
)

// The beacon REST API encodes every integer as a decimal string. The *JSON
// structs below mirror the wire layout; converters turn them into the typed
// values the rest of the indexer works with, rejecting malformed payloads.

type committeeJSON struct {
	Index      string   `json:"index"`
	Slot       string   `json:"slot"`
	Validators []string `json:"validators"`
}

type syncCommitteeJSON struct {
	Validators          []string   `json:"validators"`
	ValidatorAggregates [][]string `json:"validator_aggregates"`
}

type attestationDataJSON struct {
	Slot  string `json:"slot"`
	Index string `json:"index"`
}

type attestationJSON struct {
	AggregationBits string              `json:"aggregation_bits"`
	Data            attestationDataJSON `json:"data"`
}

type blockRewardsJSON struct {
	ProposerIndex     string `json:"proposer_index"`
	Total             string `json:"total"`
	Attestations      string `json:"attestations"`
	SyncAggregate     string `json:"sync_aggregate"`
	ProposerSlashings string `json:"proposer_slashings"`
	AttesterSlashings string `json:"attester_slashings"`
}

type syncCommitteeRewardJSON struct {
	ValidatorIndex string `json:"validator_index"`
	Reward         string `json:"reward"`
}

type idealRewardJSON struct {
	EffectiveBalance string `json:"effective_balance"`
	Head             string `json:"head"`
	Target           string `json:"target"`
	Source           string `json:"source"`
	Inactivity       string `json:"inactivity"`
}

type totalRewardJSON struct {
	ValidatorIndex string `json:"validator_index"`
	Head           string `json:"head"`
	Target         string `json:"target"`
	Source         string `json:"source"`
	Inactivity     string `json:"inactivity"`
}

type attestationRewardsJSON struct {
	IdealRewards []idealRewardJSON `json:"ideal_rewards"`
	TotalRewards []totalRewardJSON `json:"total_rewards"`
}

type validatorInfoJSON struct {
	EffectiveBalance      string `json:"effective_balance"`
	WithdrawalCredentials string `json:"withdrawal_credentials"`
}

type validatorJSON struct {
	Index     string            `json:"index"`
	Balance   string            `json:"balance"`
	Status    string            `json:"status"`
	Validator validatorInfoJSON `json:"validator"`
}

type validatorBalanceJSON struct {
	Index   string `json:"index"`
	Balance string `json:"balance"`
}

type proposerDutyJSON struct {
	ValidatorIndex string `json:"validator_index"`
	Slot           string `json:"slot"`
}

// Committee is one committee assignment: the ordered validator list for
// (slot, index).
type Committee struct {
	Slot       types.Slot
	Index      types.CommitteeIndex
	Validators []types.ValidatorIndex
}

// SyncCommittee is the validator set of one sync committee period.
type SyncCommittee struct {
	Validators          []types.ValidatorIndex
	ValidatorAggregates [][]types.ValidatorIndex
}

// Attestation is an aggregate attestation as included in a block body. The
// aggregation bits remain in their wire form (0x-prefixed, little-endian
// bitlist) and are interpreted by the fetcher.
type Attestation struct {
	AggregationBits string
	Slot            types.Slot
	Index           types.CommitteeIndex
}

// BlockRewards is the consensus reward breakdown of one proposed block.
type BlockRewards struct {
	ProposerIndex     types.ValidatorIndex
	Total             types.Gwei
	Attestations      types.Gwei
	SyncAggregate     types.Gwei
	ProposerSlashings types.Gwei
	AttesterSlashings types.Gwei
}

// SyncCommitteeReward is one member's reward for one slot.
type SyncCommitteeReward struct {
	ValidatorIndex types.ValidatorIndex
	Reward         types.Gwei
}

// IdealReward is the reward a perfect validator at the given effective
// balance would have earned over the epoch.
type IdealReward struct {
	EffectiveBalance uint64
	Head             types.Gwei
	Target           types.Gwei
	Source           types.Gwei
	Inactivity       types.Gwei
}

// TotalReward is the reward one validator actually earned over the epoch.
type TotalReward struct {
	ValidatorIndex types.ValidatorIndex
	Head           types.Gwei
	Target         types.Gwei
	Source         types.Gwei
	Inactivity     types.Gwei
}

// AttestationRewards is the per-epoch rewards response.
type AttestationRewards struct {
	IdealRewards []IdealReward
	TotalRewards []TotalReward
}

// Validator is the registry view of one validator.
type Validator struct {
	Index                 types.ValidatorIndex
	Balance               uint64
	Status                string
	EffectiveBalance      uint64
	WithdrawalCredentials string
}

// ValidatorBalance is one validator's balance at a state.
type ValidatorBalance struct {
	Index   types.ValidatorIndex
	Balance uint64
}

// ProposerDuty assigns a proposer to a slot.
type ProposerDuty struct {
	ValidatorIndex types.ValidatorIndex
	Slot           types.Slot
}

func parseUint(field, v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed %s %q", field, v)
	}
	return n, nil
}

func parseGwei(field, v string) (types.Gwei, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed %s %q", field, v)
	}
	return types.Gwei(n), nil
}

func parseValidatorList(field string, vs []string) ([]types.ValidatorIndex, error) {
	out := make([]types.ValidatorIndex, len(vs))
	for i, v := range vs {
		n, err := parseUint(field, v)
		if err != nil {
			return nil, err
		}
		out[i] = types.ValidatorIndex(n)
	}
	return out, nil
}

func (j committeeJSON) convert() (Committee, error) {
	slot, err := parseUint("committee slot", j.Slot)
	if err != nil {
		return Committee{}, err
	}
	index, err := parseUint("committee index", j.Index)
	if err != nil {
		return Committee{}, err
	}
	validators, err := parseValidatorList("committee validator", j.Validators)
	if err != nil {
		return Committee{}, err
	}
	return Committee{Slot: types.Slot(slot), Index: types.CommitteeIndex(index), Validators: validators}, nil
}

func (j syncCommitteeJSON) convert() (SyncCommittee, error) {
	validators, err := parseValidatorList("sync committee validator", j.Validators)
	if err != nil {
		return SyncCommittee{}, err
	}
	aggregates := make([][]types.ValidatorIndex, len(j.ValidatorAggregates))
	for i, agg := range j.ValidatorAggregates {
		aggregates[i], err = parseValidatorList("sync committee aggregate", agg)
		if err != nil {
			return SyncCommittee{}, err
		}
	}
	return SyncCommittee{Validators: validators, ValidatorAggregates: aggregates}, nil
}

func (j attestationJSON) convert() (Attestation, error) {
	slot, err := parseUint("attestation slot", j.Data.Slot)
	if err != nil {
		return Attestation{}, err
	}
	index, err := parseUint("attestation committee index", j.Data.Index)
	if err != nil {
		return Attestation{}, err
	}
	return Attestation{
		AggregationBits: j.AggregationBits,
		Slot:            types.Slot(slot),
		Index:           types.CommitteeIndex(index),
	}, nil
}

func (j blockRewardsJSON) convert() (BlockRewards, error) {
	proposer, err := parseUint("proposer index", j.ProposerIndex)
	if err != nil {
		return BlockRewards{}, err
	}
	out := BlockRewards{ProposerIndex: types.ValidatorIndex(proposer)}
	for _, f := range []struct {
		name string
		src  string
		dst  *types.Gwei
	}{
		{"total", j.Total, &out.Total},
		{"attestations", j.Attestations, &out.Attestations},
		{"sync_aggregate", j.SyncAggregate, &out.SyncAggregate},
		{"proposer_slashings", j.ProposerSlashings, &out.ProposerSlashings},
		{"attester_slashings", j.AttesterSlashings, &out.AttesterSlashings},
	} {
		*f.dst, err = parseGwei("block reward "+f.name, f.src)
		if err != nil {
			return BlockRewards{}, err
		}
	}
	return out, nil
}

func (j syncCommitteeRewardJSON) convert() (SyncCommitteeReward, error) {
	index, err := parseUint("sync reward validator index", j.ValidatorIndex)
	if err != nil {
		return SyncCommitteeReward{}, err
	}
	reward, err := parseGwei("sync reward", j.Reward)
	if err != nil {
		return SyncCommitteeReward{}, err
	}
	return SyncCommitteeReward{ValidatorIndex: types.ValidatorIndex(index), Reward: reward}, nil
}

func (j attestationRewardsJSON) convert() (AttestationRewards, error) {
	out := AttestationRewards{
		IdealRewards: make([]IdealReward, len(j.IdealRewards)),
		TotalRewards: make([]TotalReward, len(j.TotalRewards)),
	}
	for i, ideal := range j.IdealRewards {
		balance, err := parseUint("ideal reward effective balance", ideal.EffectiveBalance)
		if err != nil {
			return AttestationRewards{}, err
		}
		r := IdealReward{EffectiveBalance: balance}
		if r.Head, err = parseGwei("ideal head", ideal.Head); err != nil {
			return AttestationRewards{}, err
		}
		if r.Target, err = parseGwei("ideal target", ideal.Target); err != nil {
			return AttestationRewards{}, err
		}
		if r.Source, err = parseGwei("ideal source", ideal.Source); err != nil {
			return AttestationRewards{}, err
		}
		if ideal.Inactivity != "" {
			if r.Inactivity, err = parseGwei("ideal inactivity", ideal.Inactivity); err != nil {
				return AttestationRewards{}, err
			}
		}
		out.IdealRewards[i] = r
	}
	for i, total := range j.TotalRewards {
		index, err := parseUint("total reward validator index", total.ValidatorIndex)
		if err != nil {
			return AttestationRewards{}, err
		}
		r := TotalReward{ValidatorIndex: types.ValidatorIndex(index)}
		if r.Head, err = parseGwei("reward head", total.Head); err != nil {
			return AttestationRewards{}, err
		}
		if r.Target, err = parseGwei("reward target", total.Target); err != nil {
			return AttestationRewards{}, err
		}
		if r.Source, err = parseGwei("reward source", total.Source); err != nil {
			return AttestationRewards{}, err
		}
		if total.Inactivity != "" {
			if r.Inactivity, err = parseGwei("reward inactivity", total.Inactivity); err != nil {
				return AttestationRewards{}, err
			}
		}
		out.TotalRewards[i] = r
	}
	return out, nil
}

func (j validatorJSON) convert() (Validator, error) {
	index, err := parseUint("validator index", j.Index)
	if err != nil {
		return Validator{}, err
	}
	balance, err := parseUint("validator balance", j.Balance)
	if err != nil {
		return Validator{}, err
	}
	effective, err := parseUint("validator effective balance", j.Validator.EffectiveBalance)
	if err != nil {
		return Validator{}, err
	}
	return Validator{
		Index:                 types.ValidatorIndex(index),
		Balance:               balance,
		Status:                j.Status,
		EffectiveBalance:      effective,
		WithdrawalCredentials: j.Validator.WithdrawalCredentials,
	}, nil
}

func (j validatorBalanceJSON) convert() (ValidatorBalance, error) {
	index, err := parseUint("balance validator index", j.Index)
	if err != nil {
		return ValidatorBalance{}, err
	}
	balance, err := parseUint("validator balance", j.Balance)
	if err != nil {
		return ValidatorBalance{}, err
	}
	return ValidatorBalance{Index: types.ValidatorIndex(index), Balance: balance}, nil
}

func (j proposerDutyJSON) convert() (ProposerDuty, error) {
	index, err := parseUint("duty validator index", j.ValidatorIndex)
	if err != nil {
		return ProposerDuty{}, err
	}
	slot, err := parseUint("duty slot", j.Slot)
	if err != nil {
		return ProposerDuty{}, err
	}
	return ProposerDuty{ValidatorIndex: types.ValidatorIndex(index), Slot: types.Slot(slot)}, nil
}
