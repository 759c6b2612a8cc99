package steward

import (
	"context"
	"sync"

	"github.com/jito-foundation/steward-core/cycle"
	"github.com/jito-foundation/steward-core/delegation"
	"github.com/jito-foundation/steward-core/history"
	"github.com/jito-foundation/steward-core/log"
	"github.com/jito-foundation/steward-core/pool"
	"github.com/jito-foundation/steward-core/rebalance"
	"github.com/jito-foundation/steward-core/stewardconfig"
	"github.com/jito-foundation/steward-core/stewardstore"
)

// State is one pool's complete steward state (§3): the config, the
// cycle phase machine, and every parallel per-validator array, guarded
// by a single RWMutex so concurrent permissionless instruction calls
// targeting different validator indices never race on the shared
// arrays (§5).
type State struct {
	mu sync.RWMutex

	Config stewardconfig.Config
	Cycle  *cycle.State

	// Cluster is the shared cluster-wide history ring; Histories[i] is
	// validator i's own ring. Both outlive any one cycle.
	Cluster    *history.ClusterHistory
	Histories  []*history.ValidatorHistory

	// Scores, RawScores and InstantUnstakeFlags are this cycle's
	// per-validator results, indexed the same way as Histories.
	Scores             []uint64
	RawScores          []uint64
	InstantUnstakeFlags []bool

	// InternalLamports[i] is the steward's own record of what it last
	// delegated to validator i, used to detect stake-deposit excess
	// (I4, rebalance's layer a).
	InternalLamports []uint64

	Allocation delegation.Allocation

	PoolAdapter pool.Adapter
	Store       *stewardstore.Store

	// caps is this cycle's three unstake cap budgets, snapshotted once
	// in StartRebalancePhase and drawn down as Rebalance instructions
	// land (§4.4).
	caps rebalance.Caps

	// auditSeq is a monotonic counter for stewardstore's audit ring slot
	// assignment; distinct from anything cycle-related.
	auditSeq uint64

	log *log.Logger
}

// New constructs a fresh State for a pool with the given config and
// external collaborators. numValidators sizes every parallel array and
// the cycle's progress bitsets.
func New(cfg stewardconfig.Config, numValidators uint32, adapter pool.Adapter, store *stewardstore.Store) *State {
	n := int(numValidators)
	histories := make([]*history.ValidatorHistory, n)
	for i := range histories {
		histories[i] = history.NewValidatorHistory([32]byte{})
	}
	return &State{
		Config:              cfg,
		Cycle:               cycle.NewState(numValidators),
		Cluster:             history.NewClusterHistory(),
		Histories:           histories,
		Scores:              make([]uint64, n),
		RawScores:           make([]uint64, n),
		InstantUnstakeFlags: make([]bool, n),
		InternalLamports:    make([]uint64, n),
		PoolAdapter:         adapter,
		Store:               store,
		log:                 log.Default().Module("steward"),
	}
}

func (s *State) checkIndex(i int) error {
	if i < 0 || i >= len(s.Histories) {
		return ErrInvalidIndex
	}
	return nil
}

func (s *State) checkNotPaused() error {
	if s.Config.Paused {
		return ErrPaused
	}
	return nil
}

// poolSnapshot reads the live pool state through the Adapter (§2 item
// 6). Every caller holds s.mu across this call, so a slow
// Adapter.Snapshot blocks all other instructions until it returns.
func (s *State) poolSnapshot(ctx context.Context) (pool.Snapshot, error) {
	return s.PoolAdapter.Snapshot(ctx)
}
