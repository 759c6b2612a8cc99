package pool

import (
	"context"
	"sync"
)

// MemoryAdapter is an in-process Adapter backed by a plain slice,
// guarded by a single RWMutex. It is meant for tests and local
// development against a simulated pool, not production use.
type MemoryAdapter struct {
	mu         sync.RWMutex
	validators []Validator
	reserve    uint64
}

// NewMemoryAdapter seeds a MemoryAdapter with an initial validator list
// and reserve balance.
func NewMemoryAdapter(validators []Validator, reserve uint64) *MemoryAdapter {
	cp := make([]Validator, len(validators))
	copy(cp, validators)
	return &MemoryAdapter{validators: cp, reserve: reserve}
}

// Snapshot implements Adapter.
func (m *MemoryAdapter) Snapshot(ctx context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make([]Validator, len(m.validators))
	copy(cp, m.validators)
	return Snapshot{Validators: cp, Reserve: m.reserve}, nil
}

// RequestIncrease implements Adapter: moves lamports from the reserve
// into validatorIndex's active stake.
func (m *MemoryAdapter) RequestIncrease(ctx context.Context, validatorIndex int, lamports uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if validatorIndex < 0 || validatorIndex >= len(m.validators) {
		return ErrValidatorNotFound
	}
	if lamports > m.reserve {
		return ErrInsufficientReserve
	}
	m.reserve -= lamports
	m.validators[validatorIndex].ActiveLamports += lamports
	return nil
}

// RequestDecrease implements Adapter: moves lamports out of
// validatorIndex's active stake into transient, simulating the cooldown
// period before it lands back in the reserve.
func (m *MemoryAdapter) RequestDecrease(ctx context.Context, validatorIndex int, lamports uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if validatorIndex < 0 || validatorIndex >= len(m.validators) {
		return ErrValidatorNotFound
	}
	v := &m.validators[validatorIndex]
	if lamports > v.ActiveLamports {
		lamports = v.ActiveLamports
	}
	v.ActiveLamports -= lamports
	v.TransientLamports += lamports
	return nil
}

// SettleTransient moves validatorIndex's transient lamports into the
// reserve, simulating cooldown completion; MemoryAdapter-only, exposed
// for tests that exercise a full increase/decrease/settle cycle.
func (m *MemoryAdapter) SettleTransient(validatorIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if validatorIndex < 0 || validatorIndex >= len(m.validators) {
		return
	}
	v := &m.validators[validatorIndex]
	m.reserve += v.TransientLamports
	v.TransientLamports = 0
}
