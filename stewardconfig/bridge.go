package stewardconfig

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/jito-foundation/steward-core/rebalance"
	"github.com/jito-foundation/steward-core/scoring"
)

// ScoringParams translates the operator-facing Config into the
// decoupled scoring.Params the scoring engine consumes, so scoring
// itself never needs to import stewardconfig (see scoring.Params'
// doc comment).
func (c Config) ScoringParams() scoring.Params {
	return scoring.Params{
		MEVCommissionRangeEpochs:      c.MEVCommissionRangeEpochs,
		CommissionRangeEpochs:         c.CommissionRangeEpochs,
		EpochCreditsRangeEpochs:       c.EpochCreditsRangeEpochs,
		FirstReliableEpoch:            c.FirstReliableEpoch,
		MEVCommissionBpsThreshold:     c.MEVCommissionBpsThreshold,
		CommissionThreshold:           c.CommissionThreshold,
		HistoricalCommissionThreshold: c.HistoricalCommissionThreshold,
		ScoringDelinquencyThresholdRatioNum:        c.ScoringDelinquencyThresholdRatioNum,
		ScoringDelinquencyThresholdRatioDen:        c.ScoringDelinquencyThresholdRatioDen,
		InstantUnstakeDelinquencyThresholdRatioNum: c.InstantUnstakeDelinquencyThresholdRatioNum,
		InstantUnstakeDelinquencyThresholdRatioDen: c.InstantUnstakeDelinquencyThresholdRatioDen,
		MinimumVotingEpochs:                        uint32(c.MinimumVotingEpochs),
		AllowedMerkleRootAuthority:                 c.AllowedMerkleRootAuthority,
		AllowedPriorityFeeMerkleRootAuthority:      c.AllowedPriorityFeeMerkleRootAuthority,
	}
}

// CycleCaps snapshots the three bps-denominated unstake caps into
// lamport budgets against the pool TVL observed at the start of a
// cycle (§4.4's "snapshotted once per cycle" rule).
func (c Config) CycleCaps(poolTVL uint64) rebalance.Caps {
	return rebalance.Caps{
		ScoringRemaining:      rebalance.CapFromBps(c.ScoringUnstakeCapBps, poolTVL),
		InstantRemaining:      rebalance.CapFromBps(c.InstantUnstakeCapBps, poolTVL),
		StakeDepositRemaining: rebalance.CapFromBps(c.StakeDepositUnstakeCapBps, poolTVL),
	}
}

// IsBlacklisted reports whether validator history index i is
// permanently excluded from eligibility regardless of score (I2).
func (c Config) IsBlacklisted(i uint32) bool {
	if c.Blacklist == nil {
		return false
	}
	return c.Blacklist.Test(uint(i))
}

// SetBlacklisted adds or removes validator i from the blacklist,
// growing the bitset if needed (add/remove_from_blacklist).
func (c *Config) SetBlacklisted(i uint32, blacklisted bool) {
	if c.Blacklist == nil {
		c.Blacklist = bitset.New(uint(i) + 1)
	}
	if blacklisted {
		c.Blacklist.Set(uint(i))
	} else {
		c.Blacklist.Clear(uint(i))
	}
}
