// Package params defines the per-chain constants the indexer needs to map
// wall time onto slots and epochs and to bound how close to the head it is
// allowed to index.
package params

import "github.com/pkg/errors"

// ChainConfig contains the static profile of one supported chain.
type ChainConfig struct {
	// Name is the canonical chain name as accepted by the CHAIN env var.
	Name string
	// GenesisTime is the unix timestamp (seconds) of slot 0.
	GenesisTime uint64
	// SecondsPerSlot is the slot duration.
	SecondsPerSlot uint64
	// SlotsPerEpoch is the number of slots per epoch.
	SlotsPerEpoch uint64
	// EpochsPerSyncCommitteePeriod is the sync committee rotation period.
	EpochsPerSyncCommitteePeriod uint64
	// MaxAttestationDelay is the largest inclusion delay, in slots, still
	// counted as an on-time attestation.
	MaxAttestationDelay uint64
	// DelaySlotsToHead is the buffer kept behind the head slot so that
	// short reorgs never touch indexed data.
	DelaySlotsToHead uint64
	// FarBehindHeadSlots is the lag beyond which historical state must be
	// requested from the archive node.
	FarBehindHeadSlots uint64
	// HeadProximitySlots is the window near the head in which attestation
	// bodies are still volatile on the full node.
	HeadProximitySlots uint64
	// GweiPerEth is the gwei denomination of one token unit.
	GweiPerEth uint64
	// EffectiveBalanceIncrement is the gwei granularity of effective
	// balances; the ideal-rewards table is keyed by multiples of it.
	EffectiveBalanceIncrement uint64
}

// MainnetConfig returns the Ethereum mainnet profile.
func MainnetConfig() *ChainConfig {
	return &ChainConfig{
		Name:                         "ethereum",
		GenesisTime:                  1606824023,
		SecondsPerSlot:               12,
		SlotsPerEpoch:                32,
		EpochsPerSyncCommitteePeriod: 256,
		MaxAttestationDelay:          2,
		DelaySlotsToHead:             6,
		FarBehindHeadSlots:           250,
		HeadProximitySlots:           5,
		GweiPerEth:                   1e9,
		EffectiveBalanceIncrement:    1e9,
	}
}

// GnosisConfig returns the Gnosis Chain profile.
func GnosisConfig() *ChainConfig {
	return &ChainConfig{
		Name:                         "gnosis",
		GenesisTime:                  1638993340,
		SecondsPerSlot:               5,
		SlotsPerEpoch:                16,
		EpochsPerSyncCommitteePeriod: 512,
		MaxAttestationDelay:          2,
		DelaySlotsToHead:             10,
		GweiPerEth:                   1e9,
		EffectiveBalanceIncrement:    1e9,
		FarBehindHeadSlots:           250,
		HeadProximitySlots:           5,
	}
}

// ByName resolves a chain profile from its canonical name.
func ByName(name string) (*ChainConfig, error) {
	switch name {
	case "ethereum":
		return MainnetConfig(), nil
	case "gnosis":
		return GnosisConfig(), nil
	default:
		return nil, errors.Errorf("unsupported chain %q", name)
	}
}

var chainProfile = MainnetConfig()

// ChainProfile returns the active chain profile.
func ChainProfile() *ChainConfig {
	return chainProfile
}

// OverrideChainProfile replaces the active chain profile. It must be called
// before any component derives slot math from it, typically during start-up.
func OverrideChainProfile(c *ChainConfig) {
	chainProfile = c
}

// Copy returns a deep copy of the config.
func (c *ChainConfig) Copy() *ChainConfig {
	config := *c
	return &config
}
