// Command steward runs a single local pass of the stake-pool steward
// cycle against an in-memory reference pool, for local development and
// for operators who want to inspect what one cycle would decide before
// wiring a real pool-program adapter.
//
// Usage:
//
//	steward [flags]
//
// Flags:
//
//	--datadir        Data directory for the persisted steward store (default: ~/.steward)
//	--num-validators Maximum number of validator slots tracked (default: 512)
//	--num-delegations Number of top-ranked validators (K) to delegate to (default: 100)
//	--verbosity      Log level 0-5 (default: 3)
//	--admin          Hex-encoded 32-byte admin authority public key
//	--pool           Hex-encoded 32-byte stake pool identifier
//	--version        Print version and exit
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jito-foundation/steward-core/log"
	"github.com/jito-foundation/steward-core/metrics"
	"github.com/jito-foundation/steward-core/pool"
	"github.com/jito-foundation/steward-core/steward"
	"github.com/jito-foundation/steward-core/stewardstore"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cliCfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	log.SetDefault(log.New(verbosityToLevel(cliCfg.Verbosity)))
	logger := log.Default().Module("cmd/steward")
	logger.Info("steward starting", "version", version, "commit", commit, "datadir", cliCfg.DataDir)

	cfg, err := cliCfg.stewardConfig()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	store, err := stewardstore.Open(cliCfg.DataDir)
	if err != nil {
		logger.Error("failed to open steward store", "err", err)
		return 1
	}
	defer store.Close()

	validators := make([]pool.Validator, cliCfg.NumValidators)
	adapter := pool.NewMemoryAdapter(validators, 0)

	s := steward.New(cfg, uint32(len(validators)), adapter, store)

	sysMetrics := metrics.NewSystemMetrics()
	sysMetrics.SetValidatorCountFunc(func() int { return len(validators) })
	sysMetrics.SetCycleEpochFunc(func() uint64 { return s.Cycle.CycleEpoch })
	sysMetrics.SetCycleProgressFunc(func() float64 {
		if s.Cycle.NumValidators == 0 {
			return 0
		}
		return float64(s.Cycle.RebalanceProgress.Count()) / float64(s.Cycle.NumValidators)
	})

	if err := runOneCycle(context.Background(), s, len(validators)); err != nil {
		logger.Error("cycle pass failed", "err", err)
		return 1
	}

	audit, err := store.ListAudit(cfg.Pool)
	if err != nil {
		logger.Warn("failed to read audit log", "err", err)
	}
	fmt.Printf("cycle complete; %d audit entries on record\n", len(audit))

	snapshot, err := sysMetrics.ExportJSON()
	if err != nil {
		logger.Warn("failed to export system metrics", "err", err)
	} else {
		fmt.Printf("system metrics: %s\n", snapshot)
	}
	return 0
}

// runOneCycle drives every validator slot through one full permissionless
// cycle pass, the way a fleet of independent cranker processes would over
// time, but sequentially and in a single process for local inspection.
func runOneCycle(ctx context.Context, s *steward.State, n int) error {
	const epoch, slot = 1, 1

	for i := 0; i < n; i++ {
		if err := s.ComputeScore(i, epoch, slot); err != nil {
			return fmt.Errorf("compute_score(%d): %w", i, err)
		}
	}
	if err := s.ComputeDelegations(slot); err != nil {
		return fmt.Errorf("compute_delegations: %w", err)
	}
	if err := s.Idle(); err != nil {
		return fmt.Errorf("idle: %w", err)
	}
	if err := s.StartInstantUnstakePhase(slot); err != nil {
		return fmt.Errorf("start_instant_unstake_phase: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := s.ComputeInstantUnstake(i, epoch); err != nil {
			return fmt.Errorf("compute_instant_unstake(%d): %w", i, err)
		}
	}
	if err := s.StartRebalancePhase(ctx); err != nil {
		return fmt.Errorf("start_rebalance_phase: %w", err)
	}
	for i := 0; i < n; i++ {
		if _, err := s.Rebalance(ctx, i); err != nil {
			return fmt.Errorf("rebalance(%d): %w", i, err)
		}
	}
	return nil
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError + 4
	case v == 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
