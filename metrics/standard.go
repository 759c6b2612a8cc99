package metrics

// Pre-defined metrics for the steward core. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Cycle metrics ----

	// CyclePhase tracks the current cycle phase as its ordinal value.
	CyclePhase = DefaultRegistry.Gauge("cycle.phase")
	// InstructionsProcessed counts every phase instruction the cycle
	// state machine accepted; rejected calls are not counted.
	InstructionsProcessed = DefaultRegistry.Counter("cycle.instructions_processed")
	// CoherenceRejections counts compute_scores/compute_delegations calls
	// rejected for landing outside the coherence window.
	CoherenceRejections = DefaultRegistry.Counter("cycle.coherence_rejections")

	// ---- Rebalance metrics ----

	// ScoringCapRemaining tracks the scoring-layer unstake cap's
	// remaining budget for the current cycle.
	ScoringCapRemaining = DefaultRegistry.Gauge("rebalance.scoring_cap_remaining")
	// InstantCapRemaining tracks the instant-unstake-layer cap's
	// remaining budget for the current cycle.
	InstantCapRemaining = DefaultRegistry.Gauge("rebalance.instant_cap_remaining")
	// StakeDepositCapRemaining tracks the stake-deposit-layer cap's
	// remaining budget for the current cycle.
	StakeDepositCapRemaining = DefaultRegistry.Gauge("rebalance.stake_deposit_cap_remaining")
	// DecreasesEnacted counts Decide calls that resolved to a Decrease.
	DecreasesEnacted = DefaultRegistry.Counter("rebalance.decreases_enacted")
	// IncreasesEnacted counts Decide calls that resolved to an Increase.
	IncreasesEnacted = DefaultRegistry.Counter("rebalance.increases_enacted")
	// LamportsMoved records the size of each enacted rebalance move.
	LamportsMoved = DefaultRegistry.Histogram("rebalance.lamports_moved")

	// ---- Scoring metrics ----

	// ValidatorsScored counts compute_score calls that produced a
	// nonzero score.
	ValidatorsScored = DefaultRegistry.Counter("scoring.validators_scored")
	// ValidatorsZeroScored counts compute_score calls that resolved to
	// an ineligible (zero) score.
	ValidatorsZeroScored = DefaultRegistry.Counter("scoring.validators_zero_scored")

	// ---- Admin metrics ----

	// AdminActions counts every privileged instruction (update_parameters,
	// set_authority, blacklist edits, pause/resume, reset_state).
	AdminActions = DefaultRegistry.Counter("admin.actions")
	// UnauthorizedAttempts counts privileged instructions rejected for
	// signer mismatch.
	UnauthorizedAttempts = DefaultRegistry.Counter("admin.unauthorized_attempts")
)
