package scoring

import "github.com/jito-foundation/steward-core/history"

// Params is the subset of StewardConfig that the scoring engine needs.
// It is deliberately decoupled from the stewardconfig package so scoring
// stays a pure function of (history, params, blacklist, epoch); the
// steward package bridges StewardConfig into Params.
type Params struct {
	MEVCommissionRangeEpochs   uint16 // M
	CommissionRangeEpochs      uint16 // C
	EpochCreditsRangeEpochs    uint16 // E
	FirstReliableEpoch         uint16

	MEVCommissionBpsThreshold      uint16
	CommissionThreshold            uint8
	HistoricalCommissionThreshold  uint8

	ScoringDelinquencyThresholdRatioNum uint64
	ScoringDelinquencyThresholdRatioDen uint64

	InstantUnstakeDelinquencyThresholdRatioNum uint64
	InstantUnstakeDelinquencyThresholdRatioDen uint64

	MinimumVotingEpochs uint32

	AllowedMerkleRootAuthority             [32]byte
	AllowedPriorityFeeMerkleRootAuthority   [32]byte
}

// lastWindow returns the [t1, t2] inclusive window of the last rangeLen
// epochs ending the epoch before currentEpoch, saturating at 0 so a
// validator scored very early in the cluster's life never underflows.
func lastWindow(currentEpoch uint64, rangeLen uint16) (t1, t2 uint16) {
	if currentEpoch == 0 {
		return 0, 0
	}
	end := currentEpoch - 1
	if end > uint64(^uint16(0)) {
		end = uint64(^uint16(0))
	}
	t2 = uint16(end)
	span := uint64(rangeLen)
	if span == 0 {
		span = 1
	}
	if uint64(t2)+1 < span {
		t1 = 0
	} else {
		t1 = uint16(uint64(t2) + 1 - span)
	}
	return t1, t2
}

// Compute evaluates every eligibility filter and the packed quality
// score for one validator at currentEpoch. It never returns an error:
// any windowed reduction that fails with history.ErrNotEnoughHistory is
// treated as filter-fails-closed (the corresponding eligibility flag is
// false) rather than propagated, because a ComputeScores instruction
// must always be able to record *some* result for the validator it was
// invoked for — fatal history-store uncertainty surfaces at the HistoryView
// call sites inside a stricter caller (e.g. instant-unstake) if the
// spec wants that instead, but the steady-state scoring path degrades
// the validator's eligibility rather than aborting the whole batch.
func Compute(v *history.View, p Params, blacklisted bool, currentEpoch uint64) Score {
	mevT1, mevT2 := lastWindow(currentEpoch, p.MEVCommissionRangeEpochs)
	comT1, comT2 := lastWindow(currentEpoch, p.CommissionRangeEpochs)
	delinqT1, delinqT2 := lastWindow(currentEpoch, p.EpochCreditsRangeEpochs)

	var elig Eligibility

	maxMEV, err := v.MaxMEVCommission(mevT1, mevT2)
	elig.MEVCommissionOK = err == nil && maxMEV <= p.MEVCommissionBpsThreshold

	maxCommission, err := v.MaxCommission(comT1, comT2)
	elig.CommissionOK = err == nil && maxCommission <= p.CommissionThreshold

	historicalMax := v.CommissionMaxEver(p.FirstReliableEpoch)
	elig.HistoricalCommissionOK = historicalMax <= p.HistoricalCommissionThreshold

	elig.BlacklistedOK = !blacklisted
	elig.SuperminorityOK = !v.IsSuperminorityNow()

	elig.DelinquencyOK = v.DelinquencyOK(
		p.ScoringDelinquencyThresholdRatioNum, p.ScoringDelinquencyThresholdRatioDen,
		delinqT1, delinqT2,
	)

	elig.RunningJitoOK = v.AnyMEVCommission(mevT1, mevT2)

	latest, haveLatest := v.LatestEntry()
	elig.MerkleRootOK = haveLatest && latest.MerkleRootUploadAuthority == p.AllowedMerkleRootAuthority
	elig.PriorityFeeOK = haveLatest && latest.PriorityFeeMerkleRootUploadAuthority == p.AllowedPriorityFeeMerkleRootAuthority

	elig.MinVotingEpochsOK = v.ValidatorAge() >= p.MinimumVotingEpochs

	// Tiers use whatever data is available even when a filter failed
	// closed: raw_score must stay meaningful for unstake-priority
	// ordering (§4.4) regardless of eligibility (P3/P4 only constrain
	// score, not raw_score).
	inflationTier := InflationTier(orZero(maxCommission, err))
	avgMEV := v.AvgMEVCommission(mevT1, mevT2)
	mevTier := MEVTier(avgMEV)
	ageTier := AgeTier(v.ValidatorAge())
	num, den := v.VoteCreditsRatio(delinqT1, delinqT2)
	creditsTier := CreditsTier(num, den)

	raw := Pack(Tiers{Inflation: inflationTier, MEV: mevTier, Age: ageTier, Credits: creditsTier})

	s := Score{Eligibility: elig, RawScore: raw}
	if elig.AllOK() {
		s.Score = raw
	}
	return s
}

func orZero(v uint8, err error) uint8 {
	if err != nil {
		return 0
	}
	return v
}

// InstantUnstake evaluates the §4.2 instant-unstake predicate against
// the validator's latest recorded entry and current config/blacklist
// state. It is computed from a separate, stricter window than Compute:
// "this epoch" conditions look only at the most recent entry, not a
// multi-epoch max.
func InstantUnstake(v *history.View, p Params, blacklisted bool, currentEpoch uint64) bool {
	latest, ok := v.LatestEntry()
	if !ok {
		return false
	}

	delinqT1, delinqT2 := lastWindow(currentEpoch+1, 1) // "this epoch" = currentEpoch itself
	if !v.DelinquencyOK(
		p.InstantUnstakeDelinquencyThresholdRatioNum, p.InstantUnstakeDelinquencyThresholdRatioDen,
		delinqT1, delinqT2,
	) {
		return true
	}
	if latest.Commission != history.NullU8 && latest.Commission > p.CommissionThreshold {
		return true
	}
	if latest.MEVCommission != history.NullU16 && latest.MEVCommission > p.MEVCommissionBpsThreshold {
		return true
	}
	if blacklisted {
		return true
	}
	if latest.MerkleRootUploadAuthority != p.AllowedMerkleRootAuthority {
		return true
	}
	if latest.PriorityFeeMerkleRootUploadAuthority != p.AllowedPriorityFeeMerkleRootAuthority {
		return true
	}
	return false
}
