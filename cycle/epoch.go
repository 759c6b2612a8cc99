package cycle

import "github.com/bits-and-blooms/bitset"

// EpochMaintenance implements epoch_maintenance (§4.5 steps 1-3) for a
// newly observed runtime epoch. numPoolValidators is the stake pool's
// own validator-list length; validatorListLen is the steward's tracked
// validator count; the §9 fix sizes every scan to the larger of the
// two, never just the steward's own, so a removal the pool already
// enacted is still observed.
//
// Advancing current_epoch is deferred entirely while either removal
// bitset still has a flagged index (I2/I3) — the caller is expected to
// have drained both via its own removal-servicing path before calling
// this, since only the caller (steward) can actually clear a flagged
// slot's per-validator data. Once advanced, the cycle is only reset
// back to ComputeScores — wiping phase/progress for a fresh cycle —
// when the cycle has run its full span: newEpoch - CycleStartEpoch >=
// numEpochsBetweenScoring. Short of that, phase, progress and scores
// persist into the new epoch untouched, so a multi-epoch cycle (N>1)
// actually spans N epochs instead of collapsing to one. Returns
// whether a fresh cycle started, so the caller knows whether to also
// wipe its own per-cycle score/allocation arrays.
func (s *State) EpochMaintenance(numPoolValidators, validatorListLen int, newEpoch, currentSlot, numEpochsBetweenScoring uint64) bool {
	n := validatorListLen
	if numPoolValidators > n {
		n = numPoolValidators
	}
	if uint32(n) > s.NumValidators {
		s.NumValidators = uint32(n)
	}

	if s.PendingRemovals() {
		return false
	}
	s.CycleEpoch = newEpoch
	s.EpochStartSlot = currentSlot

	if numEpochsBetweenScoring == 0 || newEpoch-s.CycleStartEpoch < numEpochsBetweenScoring {
		return false
	}

	s.CycleStartEpoch = newEpoch
	s.Phase = ComputeScores
	s.ComputeScoresProgress = bitset.New(uint(n))
	s.InstantUnstakeProgress = bitset.New(uint(n))
	s.RebalanceProgress = bitset.New(uint(n))
	s.coherenceSet = false
	return true
}

// ForceReset implements the admin reset_state instruction's semantics:
// an unconditional return to ComputeScores over n validator slots,
// bypassing the numEpochsBetweenScoring gate EpochMaintenance enforces
// for the ordinary permissionless path. Used to recover from a cycle
// the normal phase machine cannot escape.
func (s *State) ForceReset(n uint32, epoch uint64) {
	s.Phase = ComputeScores
	s.CycleEpoch = epoch
	s.CycleStartEpoch = epoch
	s.NumValidators = n
	s.ComputeScoresProgress = bitset.New(uint(n))
	s.InstantUnstakeProgress = bitset.New(uint(n))
	s.RebalanceProgress = bitset.New(uint(n))
	s.coherenceSet = false
}

// RemovalScanRange returns the [0, n) range epoch_maintenance must scan
// for validators eligible for removal (marked, zero-stake, etc.),
// following the §9 fix: scan the larger of the pool's own validator
// list length and the steward's tracked length, so a removal the pool
// already enacted is still observed and cleaned up on the steward side.
func RemovalScanRange(numPoolValidators, validatorListLen int) int {
	if numPoolValidators > validatorListLen {
		return numPoolValidators
	}
	return validatorListLen
}

// EpochProgress expresses how far into the current epoch the given
// slot falls, as an exact rational (num / den), never a float (§9 determinism
// note). Callers needing a bps figure multiply the numerator by 10000
// before dividing, keeping every intermediate an integer.
func EpochProgress(currentSlot, epochStartSlot, slotsPerEpoch uint64) (num, den uint64) {
	if slotsPerEpoch == 0 {
		return 0, 1
	}
	elapsed := uint64(0)
	if currentSlot > epochStartSlot {
		elapsed = currentSlot - epochStartSlot
	}
	if elapsed > slotsPerEpoch {
		elapsed = slotsPerEpoch
	}
	return elapsed, slotsPerEpoch
}

// EpochProgressBps converts EpochProgress to whole basis points,
// truncating toward zero.
func EpochProgressBps(currentSlot, epochStartSlot, slotsPerEpoch uint64) uint64 {
	num, den := EpochProgress(currentSlot, epochStartSlot, slotsPerEpoch)
	if den == 0 {
		return 0
	}
	return num * 10000 / den
}
