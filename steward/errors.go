// Package steward orchestrates the per-pool state machine: it wires
// history, scoring, delegation, rebalance, cycle, stewardconfig, pool
// and stewardstore behind the instruction surface an operator or
// permissionless cranker actually calls (§6).
package steward

import "errors"

// Steward-level sentinel errors. Subpackage-originated errors (e.g.
// history.ErrNotEnoughHistory, cycle.ErrPhaseMismatch) are returned
// as-is rather than wrapped into new steward kinds, so callers can
// still errors.Is against the package that actually detected the
// condition.
var (
	// ErrInvalidIndex is returned when an instruction names a
	// validator index outside the current validator list.
	ErrInvalidIndex = errors.New("steward: validator index out of range")
	// ErrPaused is returned when any non-admin instruction is attempted
	// while the steward is paused.
	ErrPaused = errors.New("steward: pool is paused")
	// ErrUnauthorized is returned when the signer does not hold the
	// authority the attempted instruction requires.
	ErrUnauthorized = errors.New("steward: signer lacks required authority")
	// ErrMembershipRejected is returned when auto_add_validator_from_pool
	// is attempted for a validator that does not actually appear in the
	// pool's validator list, or auto_remove for one that still does.
	ErrMembershipRejected = errors.New("steward: validator pool membership check failed")
	// ErrInvalidAuthorityKind is returned by SetAuthority for an
	// unrecognized AuthorityKind value.
	ErrInvalidAuthorityKind = errors.New("steward: unrecognized authority kind")
)
