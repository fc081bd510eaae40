package requester

import (
	"github.com/beaconwatch/indexer/config/params"
	"github.com/beaconwatch/indexer/types"
)

// SelectPool applies the indexer-is-delayed heuristic: when the requested
// slot lags the head by more than the far-behind threshold the archive pool
// is forced, because the full node typically lacks historical state.
func SelectPool(preferred Pool, slot, head types.Slot) Pool {
	if head > slot && uint64(head-slot) > params.ChainProfile().FarBehindHeadSlots {
		return ArchiveNode
	}
	return preferred
}

// SelectAttestationPool applies the head-proximity heuristic: within a few
// slots of the head the full node's attestation body is still volatile, so
// the archive node is used; beyond that window the full node is preferred,
// unless the far-behind heuristic overrides it.
func SelectAttestationPool(slot, head types.Slot) Pool {
	if head >= slot && uint64(head-slot) <= params.ChainProfile().HeadProximitySlots {
		return ArchiveNode
	}
	return SelectPool(FullNode, slot, head)
}
