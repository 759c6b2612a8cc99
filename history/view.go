package history

import "errors"

// View errors.
var (
	// ErrNotEnoughHistory is returned by a windowed reduction when some
	// epoch in the requested [t1, t2] range has no recorded entry for
	// the subject (validator or cluster).
	ErrNotEnoughHistory = errors.New("history: required epoch has no recorded entry")
)

// BasisPointsMax is 100% in basis points (10000 = 100%).
const BasisPointsMax uint16 = 10000

// View is a read-only facade over one validator's history ring buffer
// and the shared cluster history ring buffer. All reductions are
// O(window) linear scans; windows are bounded by config (typically
// <=30 epochs) so this is cheap. View memoizes per-call-instance results
// (see cache.go) — it is NOT safe to reuse a View across instruction
// calls once new entries may have been appended.
type View struct {
	validator *ValidatorHistory
	cluster   *ClusterHistory
	cache     reductionCache
}

// NewView binds a read-only view over the given validator and cluster
// histories. Callers construct a fresh View per instruction invocation.
func NewView(validator *ValidatorHistory, cluster *ClusterHistory) *View {
	return &View{validator: validator, cluster: cluster}
}

// epochsInRange iterates whole epochs in [t1, t2] inclusive, calling fn
// for each. t1 may exceed t2 only for an empty range (fn never called).
func epochsInRange(t1, t2 uint16, fn func(epoch uint16)) {
	if t1 > t2 {
		return
	}
	for e := t1; ; e++ {
		fn(e)
		if e == t2 {
			break
		}
	}
}

// MaxCommission returns the maximum commission (percent) recorded for
// the validator over [t1, t2]. Returns ErrNotEnoughHistory if any epoch
// in range has no entry, or the entry's commission field is null.
func (v *View) MaxCommission(t1, t2 uint16) (uint8, error) {
	if val, err, ok := v.cache.maxCommissionGet(t1, t2); ok {
		return val, err
	}
	var max uint8
	found := false
	var missing error
	epochsInRange(t1, t2, func(epoch uint16) {
		if missing != nil {
			return
		}
		e, ok := v.validator.entries.find(epoch)
		if !ok {
			missing = ErrNotEnoughHistory
			return
		}
		c, ok := e.commissionOrNull()
		if !ok {
			missing = ErrNotEnoughHistory
			return
		}
		if !found || c > max {
			max = c
			found = true
		}
	})
	if missing != nil {
		v.cache.maxCommissionPut(t1, t2, 0, missing)
		return 0, missing
	}
	if !found {
		v.cache.maxCommissionPut(t1, t2, 0, ErrNotEnoughHistory)
		return 0, ErrNotEnoughHistory
	}
	v.cache.maxCommissionPut(t1, t2, max, nil)
	return max, nil
}

// MaxMEVCommission returns the maximum MEV commission (bps) recorded
// over [t1, t2]. ErrNotEnoughHistory under the same conditions as
// MaxCommission.
func (v *View) MaxMEVCommission(t1, t2 uint16) (uint16, error) {
	if val, err, ok := v.cache.maxMEVCommissionGet(t1, t2); ok {
		return val, err
	}
	var max uint16
	found := false
	var missing error
	epochsInRange(t1, t2, func(epoch uint16) {
		if missing != nil {
			return
		}
		e, ok := v.validator.entries.find(epoch)
		if !ok {
			missing = ErrNotEnoughHistory
			return
		}
		m, ok := e.mevCommissionOrNull()
		if !ok {
			missing = ErrNotEnoughHistory
			return
		}
		if !found || m > max {
			max = m
			found = true
		}
	})
	if missing != nil {
		v.cache.maxMEVCommissionPut(t1, t2, 0, missing)
		return 0, missing
	}
	if !found {
		v.cache.maxMEVCommissionPut(t1, t2, 0, ErrNotEnoughHistory)
		return 0, ErrNotEnoughHistory
	}
	v.cache.maxMEVCommissionPut(t1, t2, max, nil)
	return max, nil
}

// AvgMEVCommission returns the ceiling-divided average MEV commission
// (bps) over [t1, t2], penalizing missing or high values conservatively.
// If the range has no non-null entries, returns BasisPointsMax (worst
// case) rather than an error.
func (v *View) AvgMEVCommission(t1, t2 uint16) uint16 {
	var sum uint64
	var n uint64
	epochsInRange(t1, t2, func(epoch uint16) {
		e, ok := v.validator.entries.find(epoch)
		if !ok {
			return
		}
		m, ok := e.mevCommissionOrNull()
		if !ok {
			return
		}
		sum += uint64(m)
		n++
	})
	if n == 0 {
		return BasisPointsMax
	}
	// Ceiling division.
	avg := (sum + n - 1) / n
	if avg > uint64(BasisPointsMax) {
		avg = uint64(BasisPointsMax)
	}
	return uint16(avg)
}

// AnyMEVCommission reports whether any non-null MEV-commission entry
// exists in [t1, t2] (used by the running_jito filter).
func (v *View) AnyMEVCommission(t1, t2 uint16) bool {
	found := false
	epochsInRange(t1, t2, func(epoch uint16) {
		if found {
			return
		}
		e, ok := v.validator.entries.find(epoch)
		if !ok {
			return
		}
		if _, ok := e.mevCommissionOrNull(); ok {
			found = true
		}
	})
	return found
}

// CommissionMaxEver returns the maximum commission recorded over the
// entire retained history starting at firstReliableEpoch. Entries
// before firstReliableEpoch, or missing entries, are skipped rather
// than treated as an error — this reduction is advisory (historical
// ceiling), not a freshness gate.
func (v *View) CommissionMaxEver(firstReliableEpoch uint16) uint8 {
	var max uint8
	found := false
	v.validator.entries.each(func(e Entry) bool {
		if e.Epoch < firstReliableEpoch {
			return true
		}
		c, ok := e.commissionOrNull()
		if !ok {
			return true
		}
		if !found || c > max {
			max = c
			found = true
		}
		return true
	})
	return max
}

// DelinquencyOK reports whether, for every epoch t in [t1, t2] for which
// cluster.TotalBlocks(t) is known, the validator's credit ratio exceeds
// thresholdNum/thresholdDen. The threshold is an exact rational rather
// than a float so the comparison (credits*thresholdDen >
// totalBlocks*thresholdNum, a cross-multiplication) is bit-identical
// across every caller, per the no-floats-inside-the-core rule (see
// design notes). Missing validator epoch_credits is treated as 0 (i.e.
// it very likely fails the threshold, it is not skipped). Epochs where
// the cluster itself has no entry are skipped (cluster data
// availability is an external collaborator's concern, not the
// validator's fault).
func (v *View) DelinquencyOK(thresholdNum, thresholdDen uint64, t1, t2 uint16) bool {
	ok := true
	epochsInRange(t1, t2, func(epoch uint16) {
		if !ok {
			return
		}
		ce, have := v.cluster.entries.find(epoch)
		if !have || ce.TotalBlocks == 0 {
			return
		}
		var credits uint32
		if ve, have := v.validator.entries.find(epoch); have {
			if c, present := ve.epochCreditsOrNull(); present {
				credits = c
			}
		}
		// credits/totalBlocks > thresholdNum/thresholdDen
		lhs := uint64(credits) * thresholdDen
		rhs := uint64(ce.TotalBlocks) * thresholdNum
		if !(lhs > rhs) {
			ok = false
		}
	})
	return ok
}

// VoteCreditsRatio returns sum(validator.epoch_credits) / sum(cluster.
// total_blocks) over [t1, t2], or 0 if the denominator is 0. Computed
// as an exact rational (numerator, denominator) — callers that need a
// deterministic tier packing must quantize the rational themselves
// (scoring.CreditsTier), never by routing through float64 first.
func (v *View) VoteCreditsRatio(t1, t2 uint16) (numerator, denominator uint64) {
	epochsInRange(t1, t2, func(epoch uint16) {
		if ce, have := v.cluster.entries.find(epoch); have {
			denominator += uint64(ce.TotalBlocks)
		}
		if ve, have := v.validator.entries.find(epoch); have {
			if c, present := ve.epochCreditsOrNull(); present {
				numerator += uint64(c)
			}
		}
	})
	return numerator, denominator
}

// ValidatorAge returns the count of epochs in the retained window with
// a non-null epoch_credits entry.
func (v *View) ValidatorAge() uint32 {
	var age uint32
	v.validator.entries.each(func(e Entry) bool {
		if _, ok := e.epochCreditsOrNull(); ok {
			age++
		}
		return true
	})
	return age
}

// IsSuperminorityNow returns the is_superminority flag of the most
// recently recorded entry, or false if there is no recorded entry.
func (v *View) IsSuperminorityNow() bool {
	var latest Entry
	have := false
	v.validator.entries.each(func(e Entry) bool {
		latest = e
		have = true
		return true
	})
	return have && latest.IsSuperminority
}

// LatestEntry returns the most recently recorded entry, if any. Used by
// ComputeInstantUnstake, which evaluates "this epoch" conditions against
// the latest observation rather than a window.
func (v *View) LatestEntry() (Entry, bool) {
	var latest Entry
	have := false
	v.validator.entries.each(func(e Entry) bool {
		latest = e
		have = true
		return true
	})
	return latest, have
}

// GossipFreshness returns the slot of the last gossip-sourced update and
// the slot of the last vote-account update, for the StaleInputs
// freshness check.
func (v *View) GossipFreshness() (lastGossipSlot, lastVoteAccountSlot uint64) {
	return v.validator.LastGossipUpdateSlot, v.validator.LastVoteAccountUpdateSlot
}

// InputsFresh reports whether both the validator's gossip and
// vote-account data were last updated within thresholdBps (basis
// points of one epoch's slots) of currentSlot — the instant_unstake_
// inputs_epoch_progress gate on Idle -> ComputeInstantUnstake (§4.5).
func (v *View) InputsFresh(currentSlot, slotsPerEpoch, thresholdBps uint64) bool {
	lastGossip, lastVoteAccount := v.GossipFreshness()
	return ageBps(currentSlot, lastGossip, slotsPerEpoch) <= thresholdBps &&
		ageBps(currentSlot, lastVoteAccount, slotsPerEpoch) <= thresholdBps
}

func ageBps(currentSlot, lastUpdateSlot, slotsPerEpoch uint64) uint64 {
	if slotsPerEpoch == 0 {
		return 0
	}
	elapsed := uint64(0)
	if currentSlot > lastUpdateSlot {
		elapsed = currentSlot - lastUpdateSlot
	}
	return elapsed * 10000 / slotsPerEpoch
}

// ConsecutivelyDelinquent reports whether the validator recorded no
// vote credits (or no entry at all) for each of the last n epochs up
// to and including currentEpoch-1 — the auto_remove_validator_from_pool
// "delinquent for >= n consecutive epochs" predicate (§4.5). Returns
// false if fewer than n epochs have elapsed yet, since there isn't a
// full streak to judge.
func (v *View) ConsecutivelyDelinquent(currentEpoch uint64, n uint16) bool {
	if n == 0 || currentEpoch == 0 {
		return false
	}
	end := currentEpoch - 1
	if end > uint64(^uint16(0)) {
		end = uint64(^uint16(0))
	}
	t2 := uint16(end)
	span := uint64(n)
	if uint64(t2)+1 < span {
		return false
	}
	t1 := uint16(uint64(t2) + 1 - span)

	delinquent := true
	epochsInRange(t1, t2, func(epoch uint16) {
		if !delinquent {
			return
		}
		e, ok := v.validator.entries.find(epoch)
		if !ok {
			return // no entry recorded is treated as 0 credits, per DelinquencyOK's convention
		}
		if c, present := e.epochCreditsOrNull(); present && c > 0 {
			delinquent = false
		}
	})
	return delinquent
}

// ClusterTotalBlocks returns the cluster's total_blocks for a single
// epoch, or ErrNotEnoughHistory if unrecorded.
func (v *View) ClusterTotalBlocks(epoch uint16) (uint32, error) {
	ce, ok := v.cluster.entries.find(epoch)
	if !ok {
		return 0, ErrNotEnoughHistory
	}
	return ce.TotalBlocks, nil
}
