package steward

import (
	"context"
	"testing"

	"github.com/jito-foundation/steward-core/history"
	"github.com/jito-foundation/steward-core/pool"
	"github.com/jito-foundation/steward-core/stewardconfig"
)

func seed(h *history.ValidatorHistory, cluster *history.ClusterHistory, epochs []uint16, commission uint8, mevBps uint16, credits uint32, totalBlocks uint32) {
	for _, e := range epochs {
		h.Append(history.Entry{Epoch: e, Commission: commission, MEVCommission: mevBps, EpochCredits: credits})
		cluster.Append(history.ClusterEntry{Epoch: e, TotalBlocks: totalBlocks})
	}
}

// S1: a small pool runs one full cycle end to end. The healthy
// validator (low commission, high credit ratio) is the only one
// selected for delegation; the delinquent one scores 0 and receives
// nothing.
func TestFullCycleSmallPool(t *testing.T) {
	ctx := context.Background()
	cfg := stewardconfig.Default([32]byte{9}, [32]byte{1}, 2)
	cfg.NumDelegationValidators = 1

	adapter := pool.NewMemoryAdapter([]pool.Validator{{}, {}}, 1_000_000)
	s := New(cfg, 2, adapter, nil)

	seed(s.Histories[0], s.Cluster, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5, 500, 98, 100)
	seed(s.Histories[1], s.Cluster, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 50, 5000, 10, 100)

	const epoch = 11
	const slot = 1000

	if err := s.ComputeScore(0, epoch, slot); err != nil {
		t.Fatalf("ComputeScore(0): %v", err)
	}
	if err := s.ComputeScore(1, epoch, slot); err != nil {
		t.Fatalf("ComputeScore(1): %v", err)
	}
	if s.Scores[0] == 0 {
		t.Fatalf("validator 0 should be eligible")
	}
	if s.Scores[1] != 0 {
		t.Fatalf("validator 1 (high commission/mev) should score 0")
	}

	if err := s.ComputeDelegations(slot); err != nil {
		t.Fatalf("ComputeDelegations: %v", err)
	}
	if s.Allocation.Numerators[0] != 1 || s.Allocation.Numerators[1] != 0 {
		t.Fatalf("Allocation = %+v, want validator 0 selected exclusively", s.Allocation)
	}

	if err := s.Idle(); err != nil {
		t.Fatalf("Idle: %v", err)
	}
	if err := s.StartInstantUnstakePhase(slot); err != nil {
		t.Fatalf("StartInstantUnstakePhase: %v", err)
	}
	if err := s.ComputeInstantUnstake(0, epoch); err != nil {
		t.Fatalf("ComputeInstantUnstake(0): %v", err)
	}
	if err := s.ComputeInstantUnstake(1, epoch); err != nil {
		t.Fatalf("ComputeInstantUnstake(1): %v", err)
	}
	if err := s.StartRebalancePhase(ctx); err != nil {
		t.Fatalf("StartRebalancePhase: %v", err)
	}

	out0, err := s.Rebalance(ctx, 0)
	if err != nil {
		t.Fatalf("Rebalance(0): %v", err)
	}
	if out0.Kind.String() != "increase" {
		t.Fatalf("validator 0 outcome = %+v, want Increase", out0)
	}

	snap, _ := adapter.Snapshot(ctx)
	if snap.Validators[0].ActiveLamports == 0 {
		t.Fatalf("validator 0 should have received stake")
	}
}

func TestPausedRejectsNonAdminInstructions(t *testing.T) {
	cfg := stewardconfig.Default([32]byte{9}, [32]byte{1}, 1)
	adapter := pool.NewMemoryAdapter([]pool.Validator{{}}, 0)
	s := New(cfg, 1, adapter, nil)

	if err := s.Pause([32]byte{1}); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.ComputeScore(0, 1, 1); err != ErrPaused {
		t.Fatalf("got %v, want ErrPaused", err)
	}
}

func TestUnauthorizedSignerRejected(t *testing.T) {
	cfg := stewardconfig.Default([32]byte{9}, [32]byte{1}, 1)
	s := New(cfg, 1, pool.NewMemoryAdapter([]pool.Validator{{}}, 0), nil)

	if err := s.Pause([32]byte{99}); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestBlacklistForcesZeroScore(t *testing.T) {
	cfg := stewardconfig.Default([32]byte{9}, [32]byte{1}, 1)
	s := New(cfg, 1, pool.NewMemoryAdapter([]pool.Validator{{}}, 0), nil)
	seed(s.Histories[0], s.Cluster, []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 1, 1, 99, 100)

	if err := s.AddToBlacklist([32]byte{1}, 0); err != nil {
		t.Fatalf("AddToBlacklist: %v", err)
	}
	if err := s.ComputeScore(0, 11, 10); err != nil {
		t.Fatalf("ComputeScore: %v", err)
	}
	if s.Scores[0] != 0 {
		t.Fatalf("blacklisted validator must score 0, got %d", s.Scores[0])
	}
}

func TestInvalidIndexRejected(t *testing.T) {
	cfg := stewardconfig.Default([32]byte{9}, [32]byte{1}, 1)
	s := New(cfg, 1, pool.NewMemoryAdapter([]pool.Validator{{}}, 0), nil)
	if err := s.ComputeScore(5, 1, 1); err != ErrInvalidIndex {
		t.Fatalf("got %v, want ErrInvalidIndex", err)
	}
}
