package steward

import (
	"github.com/jito-foundation/steward-core/delegation"
	"github.com/jito-foundation/steward-core/metrics"
	"github.com/jito-foundation/steward-core/stewardconfig"
	"github.com/jito-foundation/steward-core/stewardstore"
)

// AuthorityKind identifies which of the three rotatable signer keys
// set_authority is changing.
type AuthorityKind int

const (
	AuthorityAdmin AuthorityKind = iota
	AuthorityParameters
	AuthorityBlacklist
)

// UpdateParameters implements update_parameters, gated on the
// parameters authority (the admin authority may also call it, since
// admin is a superset of every narrower authority in this scheme).
func (s *State) UpdateParameters(signer [32]byte, delta stewardconfig.ConfigDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEitherAuthority(signer, s.Config.Authorities.Parameters, s.Config.Authorities.Admin); err != nil {
		return err
	}
	next := s.Config.Patch(delta)
	if err := next.Validate(); err != nil {
		return err
	}
	s.Config = next
	s.audit(signer, "update_parameters", "")
	return nil
}

// SetAuthority implements set_authority, admin-only.
func (s *State) SetAuthority(signer [32]byte, kind AuthorityKind, newKey [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAuthority(signer, s.Config.Authorities.Admin); err != nil {
		return err
	}
	switch kind {
	case AuthorityAdmin:
		s.Config.Authorities.Admin = newKey
	case AuthorityParameters:
		s.Config.Authorities.Parameters = newKey
	case AuthorityBlacklist:
		s.Config.Authorities.Blacklist = newKey
	default:
		return ErrInvalidAuthorityKind
	}
	s.audit(signer, "set_authority", "")
	return nil
}

// AddToBlacklist implements add_to_blacklist, gated on the blacklist
// authority (or admin).
func (s *State) AddToBlacklist(signer [32]byte, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEitherAuthority(signer, s.Config.Authorities.Blacklist, s.Config.Authorities.Admin); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.Config.SetBlacklisted(uint32(i), true)
	s.audit(signer, "add_to_blacklist", "")
	return nil
}

// RemoveFromBlacklist implements remove_from_blacklist.
func (s *State) RemoveFromBlacklist(signer [32]byte, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEitherAuthority(signer, s.Config.Authorities.Blacklist, s.Config.Authorities.Admin); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.Config.SetBlacklisted(uint32(i), false)
	s.audit(signer, "remove_from_blacklist", "")
	return nil
}

// Pause implements pause, admin-only. Every non-admin instruction
// refuses while paused (ErrPaused).
func (s *State) Pause(signer [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAuthority(signer, s.Config.Authorities.Admin); err != nil {
		return err
	}
	s.Config.Paused = true
	s.audit(signer, "pause", "")
	return nil
}

// Resume implements resume, admin-only.
func (s *State) Resume(signer [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAuthority(signer, s.Config.Authorities.Admin); err != nil {
		return err
	}
	s.Config.Paused = false
	s.audit(signer, "resume", "")
	return nil
}

// ResetState implements reset_state, admin-only: wipes the cycle back
// to a fresh ComputeScores phase over the current validator count
// without touching history or config. Used to recover from a stuck
// cycle the normal phase machine cannot escape.
func (s *State) ResetState(signer [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAuthority(signer, s.Config.Authorities.Admin); err != nil {
		return err
	}
	n := uint32(len(s.Histories))
	s.Cycle.ForceReset(n, s.Cycle.CycleEpoch)
	for i := range s.Scores {
		s.Scores[i] = 0
		s.RawScores[i] = 0
		s.InstantUnstakeFlags[i] = false
	}
	s.Allocation = delegation.Allocation{}
	s.audit(signer, "reset_state", "")
	return nil
}

func (s *State) checkAuthority(signer, want [32]byte) error {
	if signer != want {
		metrics.UnauthorizedAttempts.Inc()
		return ErrUnauthorized
	}
	return nil
}

func (s *State) checkEitherAuthority(signer, a, b [32]byte) error {
	if signer == a || signer == b {
		return nil
	}
	metrics.UnauthorizedAttempts.Inc()
	return ErrUnauthorized
}

func (s *State) audit(signer [32]byte, action, detail string) {
	metrics.AdminActions.Inc()
	if s.Store == nil {
		return
	}
	s.auditSeq++
	_ = s.Store.AppendAudit(s.Config.Pool, s.auditSeq, stewardstore.AuditEntry{
		CycleEpoch: s.Cycle.CycleEpoch,
		Actor:      signer,
		Action:     action,
		Detail:     detail,
	})
}
