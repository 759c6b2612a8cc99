package steward

import (
	"context"

	"github.com/jito-foundation/steward-core/cycle"
	"github.com/jito-foundation/steward-core/delegation"
	"github.com/jito-foundation/steward-core/history"
	"github.com/jito-foundation/steward-core/metrics"
	"github.com/jito-foundation/steward-core/pool"
	"github.com/jito-foundation/steward-core/rebalance"
	"github.com/jito-foundation/steward-core/scoring"
)

// ComputeScore implements the compute_score instruction: (re)computes
// validator i's score and raw_score for the cycle currently in the
// ComputeScores phase. Permissionless and idempotent — a second call
// for the same i inside the same coherence window simply recomputes
// the same result.
func (s *State) ComputeScore(i int, currentEpoch, currentSlot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := s.Cycle.MarkScored(uint32(i), currentSlot, s.Config.ComputeScoreSlotRange); err != nil {
		return err
	}

	view := history.NewView(s.Histories[i], s.Cluster)
	blacklisted := s.Config.IsBlacklisted(uint32(i))
	result := scoring.Compute(view, s.Config.ScoringParams(), blacklisted, currentEpoch)
	s.Scores[i] = result.Score
	s.RawScores[i] = result.RawScore
	if result.Score == 0 {
		metrics.ValidatorsZeroScored.Inc()
	} else {
		metrics.ValidatorsScored.Inc()
	}
	s.log.Debug("compute_score", "index", i, "score", result.Score, "raw_score", result.RawScore)
	return nil
}

// ComputeDelegations implements the compute_delegations instruction:
// once every validator has a fresh score, plans the K-slot allocation
// atomically in one call (§4.3).
func (s *State) ComputeDelegations(currentSlot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	if err := s.Cycle.AdvanceToDelegations(currentSlot, s.Config.ComputeScoreSlotRange); err != nil {
		return err
	}
	s.Allocation = delegation.Plan(s.Scores, s.RawScores, int(s.Config.NumDelegationValidators))
	s.log.Info("compute_delegations", "denominator", s.Allocation.Denominator)
	return nil
}

// Idle implements the idle instruction, the trivial transition between
// compute_delegations and the instant-unstake/rebalance work.
func (s *State) Idle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	return s.Cycle.AdvanceToIdle()
}

// StartInstantUnstakePhase transitions Idle -> ComputeInstantUnstake,
// gated on epoch_progress() and input freshness (§4.5), and resets the
// per-validator progress bitset for the new phase.
func (s *State) StartInstantUnstakePhase(currentSlot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	fresh := s.inputsFresh(currentSlot)
	return s.Cycle.AdvanceToInstantUnstake(currentSlot, s.Config.SlotsPerEpoch, s.Config.InstantUnstakeEpochProgressBps, fresh)
}

// inputsFresh reports whether every tracked validator's gossip and
// vote-account data was updated recently enough to trust for this
// cycle's instant-unstake pass (the StaleInputs gate, §4.5). Cleared
// slots (zero identity — not yet assigned, or drained by a pending
// removal) carry no real data to go stale and are skipped.
func (s *State) inputsFresh(currentSlot uint64) bool {
	var zeroIdentity [32]byte
	for i := range s.Histories {
		if s.Histories[i].IdentityKey == zeroIdentity {
			continue
		}
		view := history.NewView(s.Histories[i], s.Cluster)
		if !view.InputsFresh(currentSlot, s.Config.SlotsPerEpoch, s.Config.InstantUnstakeInputsEpochProgressBps) {
			return false
		}
	}
	return true
}

// ComputeInstantUnstake implements the compute_instant_unstake
// instruction for one validator.
func (s *State) ComputeInstantUnstake(i int, currentEpoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if err := s.Cycle.MarkInstantUnstakeChecked(uint32(i)); err != nil {
		return err
	}

	view := history.NewView(s.Histories[i], s.Cluster)
	blacklisted := s.Config.IsBlacklisted(uint32(i))
	flag := scoring.InstantUnstake(view, s.Config.ScoringParams(), blacklisted, currentEpoch)
	s.InstantUnstakeFlags[i] = flag
	if flag {
		s.log.Warn("instant_unstake flagged", "index", i)
	}
	return nil
}

// StartRebalancePhase transitions ComputeInstantUnstake -> Rebalance,
// snapshotting the three unstake caps against the pool's current TVL
// (§4.4's "caps fixed once per cycle" rule).
func (s *State) StartRebalancePhase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	if err := s.Cycle.AdvanceToRebalance(); err != nil {
		return err
	}
	snap, err := s.poolSnapshot(ctx)
	if err != nil {
		return err
	}
	s.caps = s.Config.CycleCaps(snap.TVL())
	metrics.ScoringCapRemaining.Set(int64(s.caps.ScoringRemaining))
	metrics.InstantCapRemaining.Set(int64(s.caps.InstantRemaining))
	metrics.StakeDepositCapRemaining.Set(int64(s.caps.StakeDepositRemaining))
	return nil
}

// Rebalance implements the rebalance instruction for one validator: it
// reads a fresh pool snapshot, asks rebalance.Decide for the action,
// and if non-trivial, requests it against the Adapter before recording
// progress (P2/I6).
func (s *State) Rebalance(ctx context.Context, i int) (rebalance.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero rebalance.Outcome
	if err := s.checkNotPaused(); err != nil {
		return zero, err
	}
	if err := s.checkIndex(i); err != nil {
		return zero, err
	}
	if s.Cycle.Phase != cycle.Rebalance {
		return zero, cycle.ErrPhaseMismatch
	}

	snap, err := s.poolSnapshot(ctx)
	if err != nil {
		return zero, err
	}

	stateSnap := s.rebalanceStateSnapshot()
	poolSnap := rebalanceSnapshotFrom(snap)

	outcome := rebalance.Decide(i, poolSnap, stateSnap)

	switch outcome.Kind {
	case rebalance.KindIncrease:
		if err := s.PoolAdapter.RequestIncrease(ctx, i, outcome.Amount); err != nil {
			return outcome, err
		}
		s.InternalLamports[i] += outcome.Amount
		metrics.IncreasesEnacted.Inc()
		metrics.LamportsMoved.Observe(float64(outcome.Amount))
	case rebalance.KindDecrease:
		if err := s.PoolAdapter.RequestDecrease(ctx, i, outcome.Amount); err != nil {
			return outcome, err
		}
		if outcome.Amount > s.InternalLamports[i] {
			s.InternalLamports[i] = 0
		} else {
			s.InternalLamports[i] -= outcome.Amount
		}
		if outcome.StakeDeposit > 0 {
			s.caps.StakeDepositRemaining = subSaturating(s.caps.StakeDepositRemaining, outcome.StakeDeposit)
			metrics.StakeDepositCapRemaining.Set(int64(s.caps.StakeDepositRemaining))
		}
		if outcome.Instant > 0 {
			s.caps.InstantRemaining = subSaturating(s.caps.InstantRemaining, outcome.Instant)
			metrics.InstantCapRemaining.Set(int64(s.caps.InstantRemaining))
		}
		if outcome.Scoring > 0 {
			s.caps.ScoringRemaining = subSaturating(s.caps.ScoringRemaining, outcome.Scoring)
			metrics.ScoringCapRemaining.Set(int64(s.caps.ScoringRemaining))
		}
		metrics.DecreasesEnacted.Inc()
		metrics.LamportsMoved.Observe(float64(outcome.Amount))
	}

	if outcome.Kind != rebalance.KindNoOpWithProgress {
		if err := s.Cycle.MarkRebalanced(uint32(i)); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (s *State) rebalanceStateSnapshot() rebalance.StateSnapshot {
	progress := make([]bool, len(s.Histories))
	for j := range progress {
		progress[j] = s.Cycle.RebalanceProgress.Test(uint(j))
	}
	return rebalance.StateSnapshot{
		DelegationNumerators:  s.Allocation.Numerators,
		DelegationDenominator: s.Allocation.Denominator,
		RawScores:             s.RawScores,
		SortedScoreIndices:    s.Allocation.SortedScoreIndices,
		SortedRawScoreIndices: s.Allocation.SortedRawScoreIndices,
		InstantUnstake:        s.InstantUnstakeFlags,
		InternalLamports:      s.InternalLamports,
		ProgressRebalance:     progress,
		Caps:                  s.caps,
	}
}

func rebalanceSnapshotFrom(snap pool.Snapshot) rebalance.PoolSnapshot {
	active := make([]uint64, len(snap.Validators))
	transient := make([]uint64, len(snap.Validators))
	for i, v := range snap.Validators {
		active[i] = v.ActiveLamports
		transient[i] = v.TransientLamports
	}
	return rebalance.PoolSnapshot{
		ActiveLamports:    active,
		TransientLamports: transient,
		TotalPoolTVL:      snap.TVL(),
		Reserve:           snap.Reserve,
	}
}

func subSaturating(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// EpochMaintenance implements epoch_maintenance (§4.5 steps 1-3):
// resizes every per-validator array to the §9-corrected scan range
// (the larger of the pool's own validator-list length and the
// steward's tracked length), drains any pending removal bitsets —
// so a removal the scan can reach is never stuck, the §9 fix — and
// only then asks the cycle to advance. The cycle itself defers
// advancing current_epoch while either removal bitset is still
// nonempty, and only resets its scores/progress back to ComputeScores
// once the cycle has run its full num_epochs_between_scoring span; this
// call wipes the steward-level score/allocation arrays to match,
// exactly when the cycle reports a fresh cycle actually started.
func (s *State) EpochMaintenance(ctx context.Context, newEpoch, currentSlot uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	snap, err := s.poolSnapshot(ctx)
	if err != nil {
		return err
	}
	n := cycle.RemovalScanRange(len(snap.Validators), len(s.Histories))
	s.growTo(n)
	s.drainRemovals()

	resetCycle := s.Cycle.EpochMaintenance(len(snap.Validators), len(s.Histories), newEpoch, currentSlot, s.Config.NumEpochsBetweenScoring)
	if resetCycle {
		for i := range s.Scores {
			s.Scores[i] = 0
			s.RawScores[i] = 0
			s.InstantUnstakeFlags[i] = false
		}
		s.Allocation = delegation.Allocation{}
	}
	s.log.Info("epoch_maintenance", "epoch", newEpoch, "num_validators", n, "reset_cycle", resetCycle)
	return nil
}

func (s *State) growTo(n int) {
	for len(s.Histories) < n {
		s.Histories = append(s.Histories, history.NewValidatorHistory([32]byte{}))
		s.Scores = append(s.Scores, 0)
		s.RawScores = append(s.RawScores, 0)
		s.InstantUnstakeFlags = append(s.InstantUnstakeFlags, false)
		s.InternalLamports = append(s.InternalLamports, 0)
	}
}
