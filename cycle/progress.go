package cycle

import (
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/paulbellamy/ratecounter"

	"github.com/jito-foundation/steward-core/metrics"
)

// State is the per-pool cycle state machine: the current phase, the
// per-validator progress bitsets that make each phase's instructions
// individually permissionless and idempotent, and the slot range the
// current cycle's score/delegation computation is coherent for. The
// coherence window itself is not stored here — it is the operator-
// tunable compute_score_slot_range (§6), threaded in by the caller on
// every call that needs it, the same way slot and epoch numbers are.
type State struct {
	Phase      Phase
	CycleEpoch uint64

	// CycleStartEpoch is the epoch this cycle's ComputeScores entry
	// last reset at; a new cycle only begins once current_epoch -
	// CycleStartEpoch >= num_epochs_between_scoring (§4.5).
	CycleStartEpoch uint64

	// EpochStartSlot is the slot the current epoch began at, recorded
	// by EpochMaintenance; it anchors epoch_progress() for the Idle ->
	// ComputeInstantUnstake gate.
	EpochStartSlot uint64

	NumValidators uint32

	ComputeScoresProgress  *bitset.BitSet
	InstantUnstakeProgress *bitset.BitSet
	RebalanceProgress      *bitset.BitSet

	// ValidatorsToRemove and ValidatorsForImmediateRemoval are the
	// deferred-removal bitsets of §3: auto_remove_validator_from_pool
	// and instant_remove_validator only flag an index here; the next
	// EpochMaintenance call actually clears the slot and drains the
	// bit, and defers advancing current_epoch until both are empty
	// (I2/I3; the §9 stuck-removal fix).
	ValidatorsToRemove           *bitset.BitSet
	ValidatorsForImmediateRemoval *bitset.BitSet

	// CoherenceStartSlot is the slot compute_scores first ran in this
	// cycle; compute_scores and compute_delegations are only valid
	// through CoherenceStartSlot+compute_score_slot_range.
	CoherenceStartSlot uint64
	coherenceSet       bool

	instructions *ratecounter.RateCounter
}

// NewState initializes a fresh cycle for a pool with numValidators
// slots, starting in ComputeScores.
func NewState(numValidators uint32) *State {
	return &State{
		Phase:                         ComputeScores,
		NumValidators:                 numValidators,
		ComputeScoresProgress:         bitset.New(uint(numValidators)),
		InstantUnstakeProgress:        bitset.New(uint(numValidators)),
		RebalanceProgress:             bitset.New(uint(numValidators)),
		ValidatorsToRemove:            bitset.New(0),
		ValidatorsForImmediateRemoval: bitset.New(0),
		instructions:                  ratecounter.NewRateCounter(1 * time.Minute),
	}
}

// MarkForRemoval flags validator i in validators_to_remove; the next
// EpochMaintenance call drains it (auto_remove_validator_from_pool).
func (s *State) MarkForRemoval(i uint32) {
	s.ValidatorsToRemove.Set(uint(i))
}

// MarkForImmediateRemoval flags validator i in
// validators_for_immediate_removal; the next EpochMaintenance call
// drains it (instant_remove_validator).
func (s *State) MarkForImmediateRemoval(i uint32) {
	s.ValidatorsForImmediateRemoval.Set(uint(i))
}

// PendingRemovals reports whether either removal bitset still has a
// flagged index. While true, EpochMaintenance defers advancing
// current_epoch (I2/I3; without this, a removal the scan never
// reaches — the §9 defect — blocks the cycle forever).
func (s *State) PendingRemovals() bool {
	return s.ValidatorsToRemove.Any() || s.ValidatorsForImmediateRemoval.Any()
}

// recordInstruction ticks the throughput counter; called once per
// landed phase instruction for cycle-health logging (§10).
func (s *State) recordInstruction() {
	s.instructions.Incr(1)
	metrics.InstructionsProcessed.Inc()
	metrics.CyclePhase.Set(int64(s.Phase))
}

// InstructionRate returns the number of phase instructions that have
// landed against this cycle in the trailing minute.
func (s *State) InstructionRate() int64 {
	return s.instructions.Rate()
}

// MarkScored records that validator i's score has been computed this
// cycle. It is safe to call multiple times for the same i (idempotent,
// permissionless cranking).
func (s *State) MarkScored(i uint32, currentSlot, computeScoreSlotRange uint64) error {
	if s.Phase != ComputeScores {
		return ErrPhaseMismatch
	}
	if i >= s.NumValidators {
		return ErrIndexOutOfRange
	}
	if !s.coherenceSet {
		s.CoherenceStartSlot = currentSlot
		s.coherenceSet = true
	}
	if err := s.checkCoherence(currentSlot, computeScoreSlotRange); err != nil {
		return err
	}
	s.ComputeScoresProgress.Set(uint(i))
	s.recordInstruction()
	return nil
}

// AllScored reports whether every validator slot has a fresh score.
func (s *State) AllScored() bool {
	return s.ComputeScoresProgress.Count() == uint(s.NumValidators)
}

// AdvanceToDelegations transitions ComputeScores -> ComputeDelegations.
// All validators must be scored and the cycle must still be inside its
// coherence window, since compute_delegations reads the same snapshot
// of scores compute_scores wrote.
func (s *State) AdvanceToDelegations(currentSlot, computeScoreSlotRange uint64) error {
	if s.Phase != ComputeScores {
		return ErrPhaseMismatch
	}
	if !s.AllScored() {
		return ErrStaleInputs
	}
	if err := s.checkCoherence(currentSlot, computeScoreSlotRange); err != nil {
		return err
	}
	s.Phase = ComputeDelegations
	s.recordInstruction()
	return nil
}

// AdvanceToIdle transitions ComputeDelegations -> Idle. Delegations are
// computed atomically in one instruction, so there is no progress
// bitset to check here.
func (s *State) AdvanceToIdle() error {
	if s.Phase != ComputeDelegations {
		return ErrPhaseMismatch
	}
	s.Phase = Idle
	s.recordInstruction()
	return nil
}

// AdvanceToInstantUnstake transitions Idle -> ComputeInstantUnstake,
// gated on epoch_progress() having reached instantUnstakeEpochProgressBps
// and on the caller's own freshness check (inputsFresh — cluster and
// validator last-update slots within instant_unstake_inputs_epoch_
// progress, which only the steward package can evaluate since it owns
// the per-validator histories). Resets the per-validator instant-
// unstake progress bitset for the new phase.
func (s *State) AdvanceToInstantUnstake(currentSlot, slotsPerEpoch, instantUnstakeEpochProgressBps uint64, inputsFresh bool) error {
	if s.Phase != Idle {
		return ErrPhaseMismatch
	}
	if EpochProgressBps(currentSlot, s.EpochStartSlot, slotsPerEpoch) < instantUnstakeEpochProgressBps {
		return ErrEpochProgressNotReached
	}
	if !inputsFresh {
		return ErrStaleInputs
	}
	s.InstantUnstakeProgress.ClearAll()
	s.Phase = ComputeInstantUnstake
	s.recordInstruction()
	return nil
}

// MarkInstantUnstakeChecked records that validator i's instant-unstake
// flag has been (re)computed this cycle.
func (s *State) MarkInstantUnstakeChecked(i uint32) error {
	if s.Phase != ComputeInstantUnstake {
		return ErrPhaseMismatch
	}
	if i >= s.NumValidators {
		return ErrIndexOutOfRange
	}
	s.InstantUnstakeProgress.Set(uint(i))
	s.recordInstruction()
	return nil
}

// AllInstantUnstakeChecked reports whether every validator has had its
// instant-unstake flag recomputed this cycle.
func (s *State) AllInstantUnstakeChecked() bool {
	return s.InstantUnstakeProgress.Count() == uint(s.NumValidators)
}

// AdvanceToRebalance transitions ComputeInstantUnstake -> Rebalance,
// resetting the per-validator rebalance progress bitset.
func (s *State) AdvanceToRebalance() error {
	if s.Phase != ComputeInstantUnstake {
		return ErrPhaseMismatch
	}
	if !s.AllInstantUnstakeChecked() {
		return ErrStaleInputs
	}
	s.RebalanceProgress.ClearAll()
	s.Phase = Rebalance
	s.recordInstruction()
	return nil
}

// MarkRebalanced records that validator i has had a rebalance decision
// enacted this cycle (§4.4's progress bit; P2).
func (s *State) MarkRebalanced(i uint32) error {
	if s.Phase != Rebalance {
		return ErrPhaseMismatch
	}
	if i >= s.NumValidators {
		return ErrIndexOutOfRange
	}
	s.RebalanceProgress.Set(uint(i))
	s.recordInstruction()
	return nil
}

// AllRebalanced reports whether every validator has been decided this
// cycle's Rebalance phase.
func (s *State) AllRebalanced() bool {
	return s.RebalanceProgress.Count() == uint(s.NumValidators)
}

func (s *State) checkCoherence(currentSlot, computeScoreSlotRange uint64) error {
	if currentSlot < s.CoherenceStartSlot || currentSlot-s.CoherenceStartSlot > computeScoreSlotRange {
		metrics.CoherenceRejections.Inc()
		return ErrOutOfCoherenceWindow
	}
	return nil
}
