// Package stewardconfig holds the steward's tunable parameters,
// authority set and pause flag (§6). It is the only package besides
// steward itself allowed to import scoring and rebalance, since the
// ScoringParams and CycleCaps methods (bridge.go) translate the
// operator-facing parameters into scoring.Params and rebalance.Caps.
package stewardconfig

import (
	"errors"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrInvalidParameter is returned by Validate when a field is
	// structurally nonsensical (e.g. a denominator of zero, a range
	// start after its end).
	ErrInvalidParameter = errors.New("stewardconfig: invalid parameter value")
)

// Config holds every operator-tunable knob for one pool's steward
// (§6). All ratios are stored as exact integer fractions; nothing here
// is a float.
type Config struct {
	MEVCommissionRangeEpochs uint16
	CommissionRangeEpochs    uint16
	EpochCreditsRangeEpochs  uint16
	FirstReliableEpoch       uint16
	MinimumVotingEpochs      uint16

	MEVCommissionBpsThreshold     uint16
	CommissionThreshold           uint8
	HistoricalCommissionThreshold uint8

	ScoringDelinquencyThresholdRatioNum        uint64
	ScoringDelinquencyThresholdRatioDen        uint64
	InstantUnstakeDelinquencyThresholdRatioNum uint64
	InstantUnstakeDelinquencyThresholdRatioDen uint64

	// ScoringUnstakeCapBps, InstantUnstakeCapBps and
	// StakeDepositUnstakeCapBps are each independently snapshotted into
	// lamport budgets at the start of a cycle (rebalance.CapFromBps).
	ScoringUnstakeCapBps      uint16
	InstantUnstakeCapBps      uint16
	StakeDepositUnstakeCapBps uint16

	// NumDelegationValidators is K, the number of top-scoring
	// validators the delegation planner allocates stake across (§4.3).
	NumDelegationValidators uint32

	// AllowedMerkleRootAuthority and AllowedPriorityFeeMerkleRootAuthority
	// are the two upload authorities every validator's latest history
	// entry must match to pass the merkle_root_ok / priority_fee_ok
	// eligibility filters.
	AllowedMerkleRootAuthority           [32]byte
	AllowedPriorityFeeMerkleRootAuthority [32]byte

	// SlotsPerEpoch is the epoch length in slots, used for
	// epoch_progress() and the instant-unstake input-freshness check.
	SlotsPerEpoch uint64

	// ComputeScoreSlotRange is compute_score_slot_range (§4.2, §6): how
	// many slots after a cycle's first compute_score call the whole
	// ComputeScores/ComputeDelegations batch remains coherent for.
	ComputeScoreSlotRange uint64

	// NumEpochsBetweenScoring is num_epochs_between_scoring (N, §4.5):
	// a cycle only resets back to ComputeScores once current_epoch -
	// cycle_start_epoch >= N, so scores and unstake caps persist across
	// N-1 intervening epoch_maintenance calls.
	NumEpochsBetweenScoring uint64

	// InstantUnstakeEpochProgressBps and InstantUnstakeInputsEpochProgressBps
	// gate the Idle -> ComputeInstantUnstake transition (§4.5):
	// epoch_progress() must have reached the former, and the cluster's
	// and each validator's last-update slot must fall within the
	// latter, before the phase can start.
	InstantUnstakeEpochProgressBps       uint64
	InstantUnstakeInputsEpochProgressBps uint64

	// MinimumStakeLamports is minimum_stake_lamports (§6): the
	// auto_add_validator_from_pool membership floor on pool-observed
	// stake.
	MinimumStakeLamports uint64

	Authorities Authorities
	Paused      bool

	// Blacklist is keyed by validator history index; set bits are
	// permanently ineligible regardless of score (I2).
	Blacklist *bitset.BitSet

	// Pool is the address of the stake pool this steward instance
	// manages; every instruction is scoped to exactly one pool.
	Pool [32]byte
}

// Authorities holds the three independently rotatable signer keys
// named in §6: admin can update any parameter and set authorities,
// parameters can only call update_parameters, blacklist can only
// add/remove_from_blacklist.
type Authorities struct {
	Admin      [32]byte
	Parameters [32]byte
	Blacklist  [32]byte
}

// Default returns a Config with the steward's documented defaults:
// permissive enough to onboard a fresh pool without immediately
// blacklisting every validator for lack of history.
func Default(pool [32]byte, admin [32]byte, numValidatorSlots uint32) Config {
	return Config{
		MEVCommissionRangeEpochs:      10,
		CommissionRangeEpochs:         10,
		EpochCreditsRangeEpochs:       10,
		FirstReliableEpoch:            0,
		MinimumVotingEpochs:           5,
		MEVCommissionBpsThreshold:     1000,
		CommissionThreshold:           10,
		HistoricalCommissionThreshold: 20,
		ScoringDelinquencyThresholdRatioNum:        85,
		ScoringDelinquencyThresholdRatioDen:        100,
		InstantUnstakeDelinquencyThresholdRatioNum: 50,
		InstantUnstakeDelinquencyThresholdRatioDen: 100,
		ScoringUnstakeCapBps:                       1000,
		InstantUnstakeCapBps:                       1000,
		StakeDepositUnstakeCapBps:                  1000,
		NumDelegationValidators:                     numValidatorSlots,
		SlotsPerEpoch:                               432_000,
		ComputeScoreSlotRange:                       1_000,
		NumEpochsBetweenScoring:                      10,
		InstantUnstakeEpochProgressBps:               0,
		InstantUnstakeInputsEpochProgressBps:         10_000,
		MinimumStakeLamports:                        0,
		Authorities: Authorities{Admin: admin, Parameters: admin, Blacklist: admin},
		Blacklist:   bitset.New(uint(numValidatorSlots)),
		Pool:        pool,
	}
}

// Validate rejects structurally invalid configs: zero denominators,
// inverted or zero-length epoch ranges, a K of zero.
func (c Config) Validate() error {
	switch {
	case c.ScoringDelinquencyThresholdRatioDen == 0,
		c.InstantUnstakeDelinquencyThresholdRatioDen == 0:
		return ErrInvalidParameter
	case c.MEVCommissionRangeEpochs == 0, c.CommissionRangeEpochs == 0, c.EpochCreditsRangeEpochs == 0:
		return ErrInvalidParameter
	case c.NumDelegationValidators == 0:
		return ErrInvalidParameter
	case c.ScoringUnstakeCapBps > 10000, c.InstantUnstakeCapBps > 10000, c.StakeDepositUnstakeCapBps > 10000:
		return ErrInvalidParameter
	case c.SlotsPerEpoch == 0:
		return ErrInvalidParameter
	case c.ComputeScoreSlotRange == 0:
		return ErrInvalidParameter
	case c.NumEpochsBetweenScoring == 0:
		return ErrInvalidParameter
	case c.InstantUnstakeEpochProgressBps > 10000, c.InstantUnstakeInputsEpochProgressBps > 10000:
		return ErrInvalidParameter
	}
	return nil
}

// Patch applies a partial update, used by update_parameters: any field
// left at its zero value in delta is left untouched in the receiver,
// matching the teacher's "per-field optional override" pattern used
// elsewhere for config reloads. The caller must call Validate on the
// result before persisting it.
func (c Config) Patch(delta ConfigDelta) Config {
	next := c
	if delta.MEVCommissionRangeEpochs != nil {
		next.MEVCommissionRangeEpochs = *delta.MEVCommissionRangeEpochs
	}
	if delta.CommissionRangeEpochs != nil {
		next.CommissionRangeEpochs = *delta.CommissionRangeEpochs
	}
	if delta.EpochCreditsRangeEpochs != nil {
		next.EpochCreditsRangeEpochs = *delta.EpochCreditsRangeEpochs
	}
	if delta.MEVCommissionBpsThreshold != nil {
		next.MEVCommissionBpsThreshold = *delta.MEVCommissionBpsThreshold
	}
	if delta.CommissionThreshold != nil {
		next.CommissionThreshold = *delta.CommissionThreshold
	}
	if delta.HistoricalCommissionThreshold != nil {
		next.HistoricalCommissionThreshold = *delta.HistoricalCommissionThreshold
	}
	if delta.ScoringUnstakeCapBps != nil {
		next.ScoringUnstakeCapBps = *delta.ScoringUnstakeCapBps
	}
	if delta.InstantUnstakeCapBps != nil {
		next.InstantUnstakeCapBps = *delta.InstantUnstakeCapBps
	}
	if delta.StakeDepositUnstakeCapBps != nil {
		next.StakeDepositUnstakeCapBps = *delta.StakeDepositUnstakeCapBps
	}
	if delta.NumDelegationValidators != nil {
		next.NumDelegationValidators = *delta.NumDelegationValidators
	}
	if delta.MinimumVotingEpochs != nil {
		next.MinimumVotingEpochs = *delta.MinimumVotingEpochs
	}
	if delta.ComputeScoreSlotRange != nil {
		next.ComputeScoreSlotRange = *delta.ComputeScoreSlotRange
	}
	if delta.NumEpochsBetweenScoring != nil {
		next.NumEpochsBetweenScoring = *delta.NumEpochsBetweenScoring
	}
	if delta.InstantUnstakeEpochProgressBps != nil {
		next.InstantUnstakeEpochProgressBps = *delta.InstantUnstakeEpochProgressBps
	}
	if delta.InstantUnstakeInputsEpochProgressBps != nil {
		next.InstantUnstakeInputsEpochProgressBps = *delta.InstantUnstakeInputsEpochProgressBps
	}
	if delta.MinimumStakeLamports != nil {
		next.MinimumStakeLamports = *delta.MinimumStakeLamports
	}
	return next
}

// ConfigDelta is update_parameters' argument: nil fields mean "leave
// unchanged".
type ConfigDelta struct {
	MEVCommissionRangeEpochs      *uint16
	CommissionRangeEpochs         *uint16
	EpochCreditsRangeEpochs       *uint16
	MEVCommissionBpsThreshold     *uint16
	CommissionThreshold           *uint8
	HistoricalCommissionThreshold *uint8
	ScoringUnstakeCapBps          *uint16
	InstantUnstakeCapBps          *uint16
	StakeDepositUnstakeCapBps     *uint16
	NumDelegationValidators       *uint32
	MinimumVotingEpochs           *uint16

	ComputeScoreSlotRange                *uint64
	NumEpochsBetweenScoring              *uint64
	InstantUnstakeEpochProgressBps       *uint64
	InstantUnstakeInputsEpochProgressBps *uint64
	MinimumStakeLamports                 *uint64
}
