// Package rebalance implements the per-validator local decision
// procedure (§4.4): given global snapshots of the pool and the
// steward's state, decide whether one validator should increase,
// decrease, or hold, respecting three parallel per-cycle unstake caps.
package rebalance

import "github.com/mohae/deepcopy"

// PoolSnapshot is the external stake pool's state as observed at the
// instant one rebalance instruction commits. Rebalance decisions
// consume only a snapshot, never a live reference, so concurrent
// instructions for different validators can be reasoned about
// independently (§5).
type PoolSnapshot struct {
	// ActiveLamports[i] is validator i's currently active stake.
	ActiveLamports []uint64
	// TransientLamports[i] is validator i's cooling-down stake; not
	// used in the target/current arithmetic (the pool account model
	// owns deactivation timing) but carried through so future layers
	// (e.g. logging, metrics) can report it without re-snapshotting.
	TransientLamports []uint64
	// TotalPoolTVL is the pool-wide total value locked used to convert
	// a delegation fraction into a target lamport amount.
	TotalPoolTVL uint64
	// Reserve is the pool's undelegated lamports, the source budget
	// for Increase.
	Reserve uint64
}

// Clone returns a deep, independent copy of the snapshot. Decide always
// operates on a clone so repeated calls against the caller's live
// structures (e.g. in tests that reuse a snapshot across many Decide
// calls) can never observe a partially-mutated view.
func (p PoolSnapshot) Clone() PoolSnapshot {
	return deepcopy.Copy(p).(PoolSnapshot)
}

// StateSnapshot is the steward's per-validator state as observed at the
// instant one rebalance instruction commits.
type StateSnapshot struct {
	// DelegationNumerators[i] / DelegationDenominator give validator
	// i's target fraction (numerator/denominator) of TotalPoolTVL.
	DelegationNumerators []uint64
	DelegationDenominator uint64

	// RawScores[i] is validator i's raw_score. Decide does not read it;
	// decrease priority comes from SortedRawScoreIndices.
	RawScores []uint64

	// SortedScoreIndices is the ComputeDelegations-produced permutation,
	// best score first; drives Increase priority.
	SortedScoreIndices []int
	// SortedRawScoreIndices is the same, ordered by raw_score; drives
	// the priority of all three Decrease layers (worse-ranked claims are
	// honored first).
	SortedRawScoreIndices []int

	// InstantUnstake[i] is the flag computed in ComputeInstantUnstake.
	InstantUnstake []bool

	// InternalLamports[i] is the steward-tracked active balance before
	// this decision; any excess of PoolSnapshot.ActiveLamports[i] over
	// this is attributed to a user stake deposit (I4).
	InternalLamports []uint64

	// ProgressRebalance[i] is true if i has already been decided this
	// phase; Decide returns NoOpWithProgress without mutating caps.
	ProgressRebalance []bool

	// Caps holds the three parallel per-cycle unstake caps' remaining
	// budget (cap total minus amount already enacted this cycle).
	Caps Caps
}

// Clone returns a deep, independent copy of the snapshot.
func (s StateSnapshot) Clone() StateSnapshot {
	return deepcopy.Copy(s).(StateSnapshot)
}

// Caps holds the three parallel unstake caps' remaining budget for the
// current cycle, each precomputed as bps * pool_tvl_at_cycle_start /
// 10000 minus whatever has already been enacted this cycle (P1).
type Caps struct {
	ScoringRemaining      uint64
	InstantRemaining      uint64
	StakeDepositRemaining uint64
}
