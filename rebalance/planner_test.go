package rebalance

import "testing"

func uniformState(n int, denom uint64) StateSnapshot {
	nums := make([]uint64, n)
	for i := range nums {
		nums[i] = 1
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return StateSnapshot{
		DelegationNumerators:  nums,
		DelegationDenominator: denom,
		RawScores:             make([]uint64, n),
		SortedScoreIndices:    append([]int{}, perm...),
		SortedRawScoreIndices: append([]int{}, perm...),
		InstantUnstake:        make([]bool, n),
		InternalLamports:      make([]uint64, n),
		ProgressRebalance:     make([]bool, n),
	}
}

// S3: validator's pool-observed active stake exceeds steward-tracked
// internal_lamports (a user deposited directly). The deposit excess
// must be attributed to StakeDeposit; whatever excess remains after
// that layer flows on to Scoring in the same Decide call, since
// InstantUnstake isn't flagged here.
func TestDecideAttributesStakeDepositExcess(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{1_000}, TotalPoolTVL: 500, Reserve: 0}
	state := uniformState(1, 1)
	state.InternalLamports[0] = 700 // steward only delegated 700; 300 is a deposit
	state.Caps = Caps{StakeDepositRemaining: 1_000, InstantRemaining: 1_000, ScoringRemaining: 1_000}

	out := Decide(0, pool, state)
	if out.Kind != KindDecrease {
		t.Fatalf("got %+v, want Decrease", out)
	}
	// target = 500 (numerator 1/denom 1 * tvl 500), current = 1000, excess = 500.
	// stake-deposit-excess = current(1000) - internal(700) = 300, which is < 500 excess;
	// the remaining 200 of excess falls through to Scoring (InstantUnstake unset).
	if out.StakeDeposit != 300 {
		t.Fatalf("StakeDeposit = %d, want 300", out.StakeDeposit)
	}
	if out.Scoring != 200 {
		t.Fatalf("Scoring = %d, want 200", out.Scoring)
	}
	if out.Amount != 500 {
		t.Fatalf("Amount = %d, want 500 (sum of both layers)", out.Amount)
	}
}

// S2: two validators both want to decrease under Instant, cap too small
// to cover both. Worse raw_score carries higher Decrease priority (bad
// validators shed stake first), so the worse-ranked validator claims
// the cap and the better-ranked one is left with nothing this call.
func TestDecideInstantCapExhaustedByWorseRanked(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{1_000, 1_000}, TotalPoolTVL: 0, Reserve: 0}
	state := uniformState(2, 2)
	state.DelegationNumerators = []uint64{0, 0} // target 0 for both: full balance is excess
	state.InternalLamports = []uint64{1_000, 1_000} // no stake-deposit excess; whole amount flows past layer a
	state.InstantUnstake = []bool{true, true}
	state.RawScores = []uint64{200, 100} // 0 ranks better (higher raw score) than 1
	state.SortedRawScoreIndices = []int{0, 1}
	state.Caps = Caps{InstantRemaining: 1_000, StakeDepositRemaining: 0, ScoringRemaining: 0}

	out1 := Decide(1, pool, state)
	if out1.Kind != KindDecrease || out1.Instant != 1_000 || out1.Amount != 1_000 {
		t.Fatalf("validator 1 (worse ranked, higher decrease priority): got %+v, want Decrease/Instant/1000", out1)
	}

	out0 := Decide(0, pool, state)
	if out0.Kind != KindNone {
		t.Fatalf("validator 0 (better ranked, cap exhausted by 1's priority claim): got %+v, want None", out0)
	}
}

// P1: the cap is a hard ceiling — a single Decide call can never return
// more than the cap's remaining budget, even with zero competition.
func TestDecideNeverExceedsCapBound(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{10_000}, TotalPoolTVL: 0, Reserve: 0}
	state := uniformState(1, 1)
	state.DelegationNumerators = []uint64{0}
	state.InternalLamports = []uint64{10_000} // no stake-deposit excess; excess is pure Scoring
	state.Caps = Caps{ScoringRemaining: 250}

	out := Decide(0, pool, state)
	if out.Kind != KindDecrease || out.Amount > 250 {
		t.Fatalf("got %+v, amount must be <= cap 250", out)
	}
	if out.Amount != 250 {
		t.Fatalf("Amount = %d, want exactly 250 (full cap, no competition)", out.Amount)
	}
}

// P2/I6: once ProgressRebalance[i] is set, a second Decide call for the
// same validator in the same phase is a no-op and touches no cap.
func TestDecideNoOpWithProgressIsIdempotent(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{10_000}, TotalPoolTVL: 0, Reserve: 0}
	state := uniformState(1, 1)
	state.DelegationNumerators = []uint64{0}
	state.Caps = Caps{ScoringRemaining: 250}
	state.ProgressRebalance[0] = true

	out := Decide(0, pool, state)
	if out.Kind != KindNoOpWithProgress {
		t.Fatalf("got %+v, want NoOpWithProgress", out)
	}
}

func TestDecideIncreaseHonorsBetterRankedDeficitsFirst(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{0, 0}, TotalPoolTVL: 1_000, Reserve: 600}
	state := uniformState(2, 2)
	// both want 500 each (1/2 of 1000 tvl), but reserve only covers 600.
	state.SortedScoreIndices = []int{0, 1} // 0 is better ranked

	out0 := Decide(0, pool, state)
	if out0.Kind != KindIncrease || out0.Amount != 500 {
		t.Fatalf("validator 0 (better ranked): got %+v, want Increase/500", out0)
	}

	out1 := Decide(1, pool, state)
	if out1.Kind != KindIncrease || out1.Amount != 100 {
		t.Fatalf("validator 1 (worse ranked, reserve partially exhausted): got %+v, want Increase/100", out1)
	}
}

func TestDecideNoneWhenAtTarget(t *testing.T) {
	pool := PoolSnapshot{ActiveLamports: []uint64{500}, TotalPoolTVL: 500, Reserve: 0}
	state := uniformState(1, 1)

	out := Decide(0, pool, state)
	if out.Kind != KindNone {
		t.Fatalf("got %+v, want None (already at target)", out)
	}
}

func TestCapFromBpsTruncates(t *testing.T) {
	// 150 bps of 333 lamports = 4.995 -> floor to 4.
	if got := CapFromBps(150, 333); got != 4 {
		t.Fatalf("CapFromBps(150, 333) = %d, want 4", got)
	}
}
