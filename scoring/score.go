// Package scoring implements the deterministic ranking function that maps
// one validator's history (plus cluster history, config thresholds, and
// blacklist state) to a packed Score. The packing and comparison rules
// here are load-bearing: every honest caller computing a score for the
// same validator at the same epoch must get the bit-identical uint64,
// which is why every intermediate value is an integer or exact rational
// — never a float.
package scoring

const (
	tier1Shift = 56
	tier1Bits  = 8
	tier2Shift = 42
	tier2Bits  = 14
	tier3Shift = 25
	tier3Bits  = 17
	tier4Shift = 0
	tier4Bits  = 25
)

func mask(bits uint) uint64 { return (uint64(1) << bits) - 1 }

const (
	inflationTierMax = uint64(100)
	mevTierMax       = uint64(10000)
	ageTierMax       = uint64(1)<<tier3Bits - 1
	creditsTierMax   = uint64(1)<<tier4Bits - 1
	creditsScale     = uint64(10_000_000) // 10^7, per spec tier 4 quantization
)

// min64 is the small integer helper the tier packer uses throughout;
// named distinctly from any builtin to keep call sites self-documenting.
func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Tiers holds the four unpacked tier values (pre-shift), in the order
// the packed representation stores them, MSB-first.
type Tiers struct {
	Inflation uint64 // bits 56..63
	MEV       uint64 // bits 42..55
	Age       uint64 // bits 25..41
	Credits   uint64 // bits 0..24
}

// InflationTier computes tier 1 from a max-commission percent (0..100).
// Lower commission yields a higher tier: 100 - min(commission, 100).
func InflationTier(maxCommissionPercent uint8) uint64 {
	return inflationTierMax - min64(uint64(maxCommissionPercent), inflationTierMax)
}

// MEVTier computes tier 2 from an average MEV commission in basis
// points: 10000 - min(avgMEVBps, 10000).
func MEVTier(avgMEVCommissionBps uint16) uint64 {
	return mevTierMax - min64(uint64(avgMEVCommissionBps), mevTierMax)
}

// AgeTier computes tier 3, clamped to the 17-bit field width.
func AgeTier(validatorAge uint32) uint64 {
	return min64(uint64(validatorAge), ageTierMax)
}

// CreditsTier computes tier 4 from the exact vote_credits_ratio
// rational (numerator/denominator), quantized by truncating division
// (round toward zero) — never via float64 — then clamped to the 25-bit
// field width. A zero denominator yields tier 0, matching
// history.View.VoteCreditsRatio's "0 if denom 0" contract.
func CreditsTier(numerator, denominator uint64) uint64 {
	if denominator == 0 {
		return 0
	}
	// floor(numerator * 10^7 / denominator), i.e. truncation toward
	// zero since both operands are non-negative.
	quantized := (numerator * creditsScale) / denominator
	return min64(quantized, creditsTierMax)
}

// Pack combines four tier values into the raw_score u64. Each tier is
// masked to its field width before shifting, so a caller passing an
// out-of-range tier (which should not happen given the *Tier helpers
// above, all of which clamp) cannot corrupt a neighboring field.
func Pack(t Tiers) uint64 {
	return (t.Inflation&mask(tier1Bits))<<tier1Shift |
		(t.MEV&mask(tier2Bits))<<tier2Shift |
		(t.Age&mask(tier3Bits))<<tier3Shift |
		(t.Credits & mask(tier4Bits))
}

// Unpack splits a packed raw_score back into its four tiers. For every
// well-formed packed value produced by Pack (no padding bits set),
// Pack(Unpack(x)) == x.
func Unpack(packed uint64) Tiers {
	return Tiers{
		Inflation: (packed >> tier1Shift) & mask(tier1Bits),
		MEV:       (packed >> tier2Shift) & mask(tier2Bits),
		Age:       (packed >> tier3Shift) & mask(tier3Bits),
		Credits:   packed & mask(tier4Bits),
	}
}

// Eligibility holds the ten binary filter outcomes. score == 0 iff at
// least one of these is false (P4); score == raw_score otherwise.
type Eligibility struct {
	MEVCommissionOK        bool
	CommissionOK           bool
	HistoricalCommissionOK bool
	BlacklistedOK          bool
	SuperminorityOK        bool
	DelinquencyOK          bool
	RunningJitoOK          bool
	MerkleRootOK           bool
	PriorityFeeOK          bool
	MinVotingEpochsOK      bool
}

// AllOK reports whether every eligibility flag is true.
func (e Eligibility) AllOK() bool {
	return e.MEVCommissionOK && e.CommissionOK && e.HistoricalCommissionOK &&
		e.BlacklistedOK && e.SuperminorityOK && e.DelinquencyOK &&
		e.RunningJitoOK && e.MerkleRootOK && e.PriorityFeeOK && e.MinVotingEpochsOK
}

// Score is the full result of scoring one validator for one epoch.
type Score struct {
	Eligibility    Eligibility
	RawScore       uint64 // packed 4-tier value, computed regardless of eligibility
	Score          uint64 // RawScore if Eligibility.AllOK(), else 0
	InstantUnstake bool
}
