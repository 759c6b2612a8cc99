package rebalance

import "github.com/holiman/uint256"

// BpsDenominator is the basis-points scale (1 bps = 1/10000) used for
// every cap and threshold parameter in the steward config.
const BpsDenominator = 10000

// CapFromBps computes floor(bps * tvl / 10000) as the total lamport
// budget for one of the three per-cycle unstake caps, snapshotted once
// at the start of a cycle (§4.4, §6). bps can be up to BpsDenominator
// and tvl up to a full u64, so the product is computed in 256 bits
// before truncating back down.
func CapFromBps(bps uint16, tvl uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(uint64(bps)), uint256.NewInt(tvl))
	prod.Div(prod, uint256.NewInt(BpsDenominator))
	return prod.Uint64()
}
