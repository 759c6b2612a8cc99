package main

import (
	"fmt"
	"os"

	"github.com/jito-foundation/steward-core/stewardconfig"
)

// cliConfig holds the resolved flag values used to construct the
// steward's config and runtime collaborators.
type cliConfig struct {
	DataDir        string
	NumValidators  uint64
	Verbosity      int
	AdminHex       string
	PoolHex        string
	NumDelegations uint64
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		DataDir:        defaultDataDir(),
		NumValidators:  512,
		Verbosity:      3,
		NumDelegations: 100,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".steward"
	}
	return home + "/.steward"
}

// parseFlags parses args into a cliConfig. It returns exit=true when the
// process should terminate immediately (e.g. --help, --version, or a
// parse error already reported to stderr).
func parseFlags(args []string) (cliConfig, bool, int) {
	cfg := defaultCLIConfig()
	showVersion := false

	fs := newCustomFlagSet("steward")
	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "Data directory for the persisted steward store")
	fs.Uint64Var(&cfg.NumValidators, "num-validators", cfg.NumValidators, "Maximum number of validator slots tracked")
	fs.Uint64Var(&cfg.NumDelegations, "num-delegations", cfg.NumDelegations, "Number of top-ranked validators (K) to delegate to")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "Log level 0-5")
	fs.StringVar(&cfg.AdminHex, "admin", cfg.AdminHex, "Hex-encoded 32-byte admin authority public key")
	fs.StringVar(&cfg.PoolHex, "pool", cfg.PoolHex, "Hex-encoded 32-byte stake pool identifier")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if showVersion {
		fmt.Printf("steward %s (%s)\n", version, commit)
		return cfg, true, 0
	}
	return cfg, false, 0
}

func (c cliConfig) stewardConfig() (stewardconfig.Config, error) {
	admin, err := decodeKey(c.AdminHex)
	if err != nil {
		return stewardconfig.Config{}, fmt.Errorf("--admin: %w", err)
	}
	pool, err := decodeKey(c.PoolHex)
	if err != nil {
		return stewardconfig.Config{}, fmt.Errorf("--pool: %w", err)
	}
	cfg := stewardconfig.Default(pool, admin, uint32(c.NumValidators))
	cfg.NumDelegationValidators = uint32(c.NumDelegations)
	if err := cfg.Validate(); err != nil {
		return stewardconfig.Config{}, err
	}
	return cfg, nil
}
