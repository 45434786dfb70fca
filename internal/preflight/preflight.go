package preflight

import (
	"cfgd/internal/config"
)

// Result reports the outcome of a single preflight check. A failed optional
// check degrades the boot but does not stop it.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every check for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Run directory", cfg.Daemon.RunDir),
		CheckDatabaseFile("Running database", cfg.Databases.RunningDB),
	}
	configDB := CheckDatabaseFile("Config store", cfg.Databases.ConfigDB)
	configDB.Optional = true
	return append(results, configDB)
}

// FirstFailure returns the first failed required check.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return r, true
		}
	}
	return Result{}, false
}
