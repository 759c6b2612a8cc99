package rebalance

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Kind identifies the action a Decide call resolves to.
type Kind int

const (
	// KindNone means no stake moves for validator i: it is already at
	// target, or the caps (after worse-ranked claims) or the reserve
	// (after better-ranked deficits) leave nothing for it.
	KindNone Kind = iota
	// KindIncrease means Amount lamports should move reserve -> i.
	KindIncrease
	// KindDecrease means Amount lamports should move i -> reserve
	// (unstake); Amount is the sum of the StakeDeposit/Instant/Scoring
	// layer amounts, each independently capped and independently
	// debited against its own cap (§4.4 step 4).
	KindDecrease
	// KindNoOpWithProgress means i was already decided this phase; the
	// progress bit is set and Decide performed no cap bookkeeping.
	KindNoOpWithProgress
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindIncrease:
		return "increase"
	case KindDecrease:
		return "decrease"
	case KindNoOpWithProgress:
		return "no_op_with_progress"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one Decide call. For KindDecrease, Amount
// is the total across all three layers; StakeDeposit, Instant and
// Scoring break that total down by layer so the caller can debit each
// layer's cap independently (§4.4 step 4) — a validator can draw from
// more than one layer in the same Decide call.
type Outcome struct {
	Kind         Kind
	Amount       uint64
	StakeDeposit uint64
	Instant      uint64
	Scoring      uint64
}

// Decide computes the rebalance action for validator i given read-only
// snapshots of the pool and the steward state (§4.4). It never mutates
// its arguments; the caller is responsible for applying Amount to i's
// internal_lamports and to the matching cap's consumed total once the
// instruction it returns actually lands.
func Decide(i int, pool PoolSnapshot, state StateSnapshot) Outcome {
	pool = pool.Clone()
	state = state.Clone()

	if i < len(state.ProgressRebalance) && state.ProgressRebalance[i] {
		return Outcome{Kind: KindNoOpWithProgress}
	}

	target := targetLamports(i, pool.TotalPoolTVL, state)
	current := uint64(0)
	if i < len(pool.ActiveLamports) {
		current = pool.ActiveLamports[i]
	}

	switch {
	case current > target:
		return decideDecrease(i, pool, state)
	case target > current:
		return decideIncrease(i, target-current, pool, state)
	default:
		return Outcome{Kind: KindNone}
	}
}

// targetLamports computes floor(numerator[i] * tvl / denominator) using
// a 256-bit intermediate product: numerator can be as large as the pool
// validator count and tvl as large as a u64, so the naive product can
// exceed 2^64 long before the division brings it back into range.
func targetLamports(i int, tvl uint64, state StateSnapshot) uint64 {
	if state.DelegationDenominator == 0 || i >= len(state.DelegationNumerators) {
		return 0
	}
	num := state.DelegationNumerators[i]
	if num == 0 {
		return 0
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(num), uint256.NewInt(tvl))
	prod.Div(prod, uint256.NewInt(state.DelegationDenominator))
	return prod.Uint64()
}

// layerExcess is validator j's theoretical (cap-unconstrained) decrease
// amount in each of the three Decrease layers, per the §4.4
// decomposition order: stake-deposit excess first, then Instant (if
// flagged), then whatever remains is Scoring.
type layerExcess struct {
	stakeDeposit uint64
	instant      uint64
	scoring      uint64
}

func computeLayerExcess(j int, pool PoolSnapshot, state StateSnapshot) layerExcess {
	target := targetLamports(j, pool.TotalPoolTVL, state)
	current := uint64(0)
	if j < len(pool.ActiveLamports) {
		current = pool.ActiveLamports[j]
	}
	if current <= target {
		return layerExcess{}
	}
	excess := current - target

	internal := uint64(0)
	if j < len(state.InternalLamports) {
		internal = state.InternalLamports[j]
	}
	depositExcess := uint64(0)
	if current > internal {
		depositExcess = current - internal
	}

	a := minU64(excess, depositExcess)
	remainder := excess - a

	b := uint64(0)
	if j < len(state.InstantUnstake) && state.InstantUnstake[j] {
		b = remainder
		remainder = 0
	}

	return layerExcess{stakeDeposit: a, instant: b, scoring: remainder}
}

// decideDecrease implements the three-layer decomposition (§4.4 step
// 2): stake-deposit excess first, then whatever remains attributed to
// Instant (if flagged), then whatever remains after that attributed to
// Scoring. Each layer is clipped independently against its own cap,
// net of every worse-ranked validator's same-layer claim (§4.4 step
// 3), and every layer with a nonzero clipped amount contributes to the
// total decrease (§4.4 step 4) — a validator can draw from more than
// one layer in the same Decide call (e.g. S2: a partially-capped
// Instant layer plus a Scoring remainder).
func decideDecrease(i int, pool PoolSnapshot, state StateSnapshot) Outcome {
	le := computeLayerExcess(i, pool, state)
	rankRaw := rawScoreRank(state)

	var stakeDeposit, instant, scoring uint64
	if le.stakeDeposit > 0 {
		worse := worseClaims(i, pool, state, rankRaw, func(le layerExcess) uint64 { return le.stakeDeposit })
		stakeDeposit = clipToCap(le.stakeDeposit, state.Caps.StakeDepositRemaining, worse)
	}
	if le.instant > 0 {
		// Instant priority is also ordered by raw_score (sorted_raw_score
		// in §4.4 step 3), same ranking as the other two layers.
		worse := worseClaims(i, pool, state, rankRaw, func(le layerExcess) uint64 { return le.instant })
		instant = clipToCap(le.instant, state.Caps.InstantRemaining, worse)
	}
	if le.scoring > 0 {
		worse := worseClaims(i, pool, state, rankRaw, func(le layerExcess) uint64 { return le.scoring })
		scoring = clipToCap(le.scoring, state.Caps.ScoringRemaining, worse)
	}

	total := stakeDeposit + instant + scoring
	if total == 0 {
		return Outcome{Kind: KindNone}
	}
	return Outcome{
		Kind:         KindDecrease,
		Amount:       total,
		StakeDeposit: stakeDeposit,
		Instant:      instant,
		Scoring:      scoring,
	}
}

// clipToCap returns how much of layerAmt fits given capRemaining lamports
// of budget shared with every worse-ranked claim that must be honored
// first (P1: the instruction-level total can never exceed the cap).
func clipToCap(layerAmt, capRemaining, worseClaims uint64) uint64 {
	if worseClaims >= capRemaining {
		return 0
	}
	avail := capRemaining - worseClaims
	return minU64(layerAmt, avail)
}

// worseClaims sums pick(computeLayerExcess(j)) over every validator j
// that ranks worse than i under rank (larger rank = worse).
func worseClaims(i int, pool PoolSnapshot, state StateSnapshot, rank []int, pick func(layerExcess) uint64) uint64 {
	if i >= len(rank) {
		return 0
	}
	myRank := rank[i]
	var sum uint64
	for j, rj := range rank {
		if rj > myRank {
			sum += pick(computeLayerExcess(j, pool, state))
		}
	}
	return sum
}

// decideIncrease honors Increase priority against every better-ranked
// (by score) validator's own unmet deficit before granting i a share of
// the reserve.
func decideIncrease(i int, deficit uint64, pool PoolSnapshot, state StateSnapshot) Outcome {
	rank := scoreRank(state)
	if i >= len(rank) {
		return Outcome{Kind: KindNone}
	}
	myRank := rank[i]
	var betterClaims uint64
	for j, rj := range rank {
		if rj < myRank {
			betterClaims += deficitOf(j, pool, state)
		}
	}
	if betterClaims >= pool.Reserve {
		return Outcome{Kind: KindNone}
	}
	avail := pool.Reserve - betterClaims
	amt := minU64(deficit, avail)
	if amt == 0 {
		return Outcome{Kind: KindNone}
	}
	return Outcome{Kind: KindIncrease, Amount: amt}
}

func deficitOf(j int, pool PoolSnapshot, state StateSnapshot) uint64 {
	target := targetLamports(j, pool.TotalPoolTVL, state)
	current := uint64(0)
	if j < len(pool.ActiveLamports) {
		current = pool.ActiveLamports[j]
	}
	if target > current {
		return target - current
	}
	return 0
}

// rawScoreRank and scoreRank turn the planner-produced permutations
// into rank[i] = position, so "worse/better than i" is a simple integer
// comparison instead of a linear scan of the permutation.
func rawScoreRank(state StateSnapshot) []int {
	return ranksFromPermutation(state.SortedRawScoreIndices)
}

func scoreRank(state StateSnapshot) []int {
	return ranksFromPermutation(state.SortedScoreIndices)
}

func ranksFromPermutation(perm []int) []int {
	rank := make([]int, len(perm))
	for pos, idx := range perm {
		if idx >= 0 && idx < len(rank) {
			rank[idx] = pos
		}
	}
	return rank
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
