// Package cycle implements the per-epoch steward cycle state machine
// (§4.5): the ordered phases every epoch passes through, the progress
// bitsets that make each phase's instructions idempotent and
// permissionless, and epoch-boundary maintenance.
package cycle

import "fmt"

// Phase identifies where in the per-epoch cycle the steward currently
// is. Phases are strictly ordered; Next never skips or rewinds except
// via EpochMaintenance resetting back to ComputeScores at an epoch
// boundary.
type Phase int

const (
	ComputeScores Phase = iota
	ComputeDelegations
	Idle
	ComputeInstantUnstake
	Rebalance
)

func (p Phase) String() string {
	switch p {
	case ComputeScores:
		return "compute_scores"
	case ComputeDelegations:
		return "compute_delegations"
	case Idle:
		return "idle"
	case ComputeInstantUnstake:
		return "compute_instant_unstake"
	case Rebalance:
		return "rebalance"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Next returns the phase that follows p in the steady-state cycle.
// Rebalance is the terminal phase of a cycle; advancing past it is a
// caller error since only EpochMaintenance may return the machine to
// ComputeScores.
func (p Phase) Next() (Phase, error) {
	switch p {
	case ComputeScores:
		return ComputeDelegations, nil
	case ComputeDelegations:
		return Idle, nil
	case Idle:
		return ComputeInstantUnstake, nil
	case ComputeInstantUnstake:
		return Rebalance, nil
	case Rebalance:
		return 0, ErrNoNextPhase
	default:
		return 0, ErrPhaseMismatch
	}
}
