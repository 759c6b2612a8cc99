// Package pool defines the narrow interface the steward needs onto an
// external stake pool program, and a reference in-memory implementation
// used in tests and local development (§2 item 6; a supplemented
// feature, since the distilled spec describes the pool only as a
// counterparty, not a concrete integration point).
package pool

import (
	"context"
	"errors"
)

// ErrValidatorNotFound is returned when an operation references a
// validator index the pool has no entry for.
var ErrValidatorNotFound = errors.New("pool: validator index not found")

// ErrInsufficientReserve is returned when RequestIncrease asks for more
// than the pool's reserve currently holds.
var ErrInsufficientReserve = errors.New("pool: reserve balance insufficient")

// Validator is one entry in the pool's validator list, as the steward
// observes it.
type Validator struct {
	VoteAccount       [32]byte
	ActiveLamports    uint64
	TransientLamports uint64

	// VoteAccountActivationEpoch is the epoch the vote account first
	// became active, used by auto_add_validator_from_pool's age >=
	// minimum_voting_epochs predicate (§4.5) before the steward has any
	// history of its own for the identity.
	VoteAccountActivationEpoch uint64
}

// Snapshot is a read-only view of the pool's state at one instant:
// every tracked validator, the total value locked across them, and the
// undelegated reserve balance.
type Snapshot struct {
	Validators []Validator
	Reserve    uint64
}

// TVL sums every validator's active and transient lamports plus the
// undelegated reserve (§3's total_lamports): the whole pool's value
// under management, which is what a validator's delegation fraction is
// computed against, not just what is currently deployed.
func (s Snapshot) TVL() uint64 {
	total := s.Reserve
	for _, v := range s.Validators {
		total += v.ActiveLamports + v.TransientLamports
	}
	return total
}

// Adapter is the steward's view onto an external stake pool program: it
// can read the pool's current state and request that lamports move
// between a validator and the reserve. Implementations are expected to
// wrap whatever RPC or on-chain-account-read mechanism the deployment
// uses; MemoryAdapter is the in-process reference used by tests.
type Adapter interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	RequestIncrease(ctx context.Context, validatorIndex int, lamports uint64) error
	RequestDecrease(ctx context.Context, validatorIndex int, lamports uint64) error
}
