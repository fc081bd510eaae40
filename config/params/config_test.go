package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	eth, err := ByName("ethereum")
	require.NoError(t, err)
	require.Equal(t, uint64(32), eth.SlotsPerEpoch)
	require.Equal(t, uint64(12), eth.SecondsPerSlot)
	require.Equal(t, uint64(256), eth.EpochsPerSyncCommitteePeriod)

	gno, err := ByName("gnosis")
	require.NoError(t, err)
	require.Equal(t, uint64(16), gno.SlotsPerEpoch)
	require.Equal(t, uint64(5), gno.SecondsPerSlot)
	require.Equal(t, uint64(512), gno.EpochsPerSyncCommitteePeriod)

	_, err = ByName("sepolia")
	require.Error(t, err)
}

func TestOverrideChainProfile(t *testing.T) {
	prev := ChainProfile()
	defer OverrideChainProfile(prev)

	OverrideChainProfile(GnosisConfig())
	require.Equal(t, "gnosis", ChainProfile().Name)
}

func TestCopyIsDetached(t *testing.T) {
	c := MainnetConfig()
	cp := c.Copy()
	cp.SlotsPerEpoch = 1
	require.Equal(t, uint64(32), c.SlotsPerEpoch)
}
