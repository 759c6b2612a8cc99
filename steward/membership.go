package steward

import (
	"context"

	"github.com/jito-foundation/steward-core/history"
)

// consecutiveDelinquentEpochsThreshold is the "delinquent for >= n
// consecutive epochs" auto_remove predicate's n (§4.5).
const consecutiveDelinquentEpochsThreshold = 5

// AutoAddValidatorFromPool implements auto_add_validator_from_pool: a
// permissionless instruction that grows the steward's tracked
// validator list by one, gated on the membership predicate of §4.5 —
// the identity genuinely appears in the pool's validator list at
// poolIndex, its vote account has been active at least
// minimum_voting_epochs, its pool-observed stake is at least
// minimum_stake_lamports, and the about-to-be-assigned index is not
// already blacklisted. This is a supplemented feature: the distilled
// spec assumes a validator list already exists, but a real deployment
// must onboard newly-added pool validators somehow.
func (s *State) AutoAddValidatorFromPool(ctx context.Context, poolIndex int, identity [32]byte, currentEpoch uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return -1, err
	}
	snap, err := s.poolSnapshot(ctx)
	if err != nil {
		return -1, err
	}
	if poolIndex < 0 || poolIndex >= len(snap.Validators) {
		return -1, ErrMembershipRejected
	}
	v := snap.Validators[poolIndex]
	if v.VoteAccount != identity {
		return -1, ErrMembershipRejected
	}

	age := uint64(0)
	if currentEpoch > v.VoteAccountActivationEpoch {
		age = currentEpoch - v.VoteAccountActivationEpoch
	}
	if age < uint64(s.Config.MinimumVotingEpochs) {
		return -1, ErrMembershipRejected
	}
	if v.ActiveLamports+v.TransientLamports < s.Config.MinimumStakeLamports {
		return -1, ErrMembershipRejected
	}

	i := len(s.Histories)
	if s.Config.IsBlacklisted(uint32(i)) {
		return -1, ErrMembershipRejected
	}

	s.Histories = append(s.Histories, history.NewValidatorHistory(identity))
	s.Scores = append(s.Scores, 0)
	s.RawScores = append(s.RawScores, 0)
	s.InstantUnstakeFlags = append(s.InstantUnstakeFlags, false)
	s.InternalLamports = append(s.InternalLamports, 0)
	s.log.Info("auto_add_validator_from_pool", "index", i)
	return i, nil
}

// AutoRemoveValidatorFromPool implements auto_remove_validator_from_pool:
// permissionless removal of a steward-tracked validator that either the
// pool no longer lists, or that has gone delinquent for
// consecutiveDelinquentEpochsThreshold consecutive epochs (§4.5).
// Removal only flags the slot in validators_to_remove; the next
// EpochMaintenance call actually clears it (§3; I2/I3; the §9
// stuck-removal fix means this can never block epoch advancement
// forever).
func (s *State) AutoRemoveValidatorFromPool(ctx context.Context, i int, currentEpoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNotPaused(); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	snap, err := s.poolSnapshot(ctx)
	if err != nil {
		return err
	}
	identity := s.Histories[i].IdentityKey
	for _, v := range snap.Validators {
		if v.VoteAccount == identity {
			view := history.NewView(s.Histories[i], s.Cluster)
			if !view.ConsecutivelyDelinquent(currentEpoch, consecutiveDelinquentEpochsThreshold) {
				return ErrMembershipRejected // still present and not delinquent long enough
			}
			s.Cycle.MarkForRemoval(uint32(i))
			s.log.Info("auto_remove_validator_from_pool", "index", i, "reason", "delinquent")
			return nil
		}
	}
	s.Cycle.MarkForRemoval(uint32(i))
	s.log.Info("auto_remove_validator_from_pool", "index", i, "reason", "vote_account_closed")
	return nil
}

// InstantRemoveValidator implements instant_remove_validator: an
// admin-gated immediate removal used for validators that must be
// pulled out-of-band (e.g. a security incident), bypassing the normal
// pool-membership check AutoRemoveValidatorFromPool enforces. Like
// AutoRemoveValidatorFromPool, this only flags the slot — in
// validators_for_immediate_removal — for the next EpochMaintenance to
// drain.
func (s *State) InstantRemoveValidator(signer [32]byte, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAuthority(signer, s.Config.Authorities.Admin); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.Cycle.MarkForImmediateRemoval(uint32(i))
	s.audit(signer, "instant_remove_validator", "")
	return nil
}

// clearSlot zeroes a validator's slot rather than compacting the
// arrays, since every other validator's index must stay stable between
// cycles (I7). Called only from drainRemovals, once EpochMaintenance
// has committed to flushing the deferred removal bitsets.
func (s *State) clearSlot(i int) {
	s.Histories[i] = history.NewValidatorHistory([32]byte{})
	s.Scores[i] = 0
	s.RawScores[i] = 0
	s.InstantUnstakeFlags[i] = false
	s.InternalLamports[i] = 0
	s.Config.SetBlacklisted(uint32(i), false)
}

// drainRemovals flushes every pending bit in validators_to_remove and
// validators_for_immediate_removal, actually clearing each flagged
// slot, before EpochMaintenance advances current_epoch (§4.5 steps
// 1-2).
func (s *State) drainRemovals() {
	for i, ok := s.Cycle.ValidatorsForImmediateRemoval.NextSet(0); ok; i, ok = s.Cycle.ValidatorsForImmediateRemoval.NextSet(i + 1) {
		if int(i) < len(s.Histories) {
			s.clearSlot(int(i))
		}
	}
	s.Cycle.ValidatorsForImmediateRemoval.ClearAll()

	for i, ok := s.Cycle.ValidatorsToRemove.NextSet(0); ok; i, ok = s.Cycle.ValidatorsToRemove.NextSet(i + 1) {
		if int(i) < len(s.Histories) {
			s.clearSlot(int(i))
		}
	}
	s.Cycle.ValidatorsToRemove.ClearAll()
}
