package cycle

import "errors"

var (
	// ErrPhaseMismatch is returned when an instruction meant for one
	// phase is attempted while the machine is in a different phase.
	ErrPhaseMismatch = errors.New("cycle: instruction does not match current phase")
	// ErrNoNextPhase is returned by Phase.Next on the terminal phase.
	ErrNoNextPhase = errors.New("cycle: no phase follows rebalance in one cycle")
	// ErrOutOfCoherenceWindow is returned when compute_scores or
	// compute_delegations is attempted outside the slot range the
	// cluster-wide vote-account snapshot is guaranteed coherent for.
	ErrOutOfCoherenceWindow = errors.New("cycle: current slot is outside the compute coherence window")
	// ErrStaleInputs is returned when a phase transition is attempted
	// before the current phase's per-validator work is complete, or when
	// the caller reports the instant-unstake inputs as not fresh.
	ErrStaleInputs = errors.New("cycle: inputs were computed in a prior cycle")
	// ErrIndexOutOfRange is returned when a progress bit index exceeds
	// the configured validator count.
	ErrIndexOutOfRange = errors.New("cycle: validator index out of range")
	// ErrEpochProgressNotReached is returned when Idle ->
	// ComputeInstantUnstake is attempted before epoch_progress() has
	// reached instant_unstake_epoch_progress.
	ErrEpochProgressNotReached = errors.New("cycle: epoch progress has not reached the instant-unstake threshold")
)
