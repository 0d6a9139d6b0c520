package preflight

import (
	"context"

	"postroll/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Workspace and data directories (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, cfg.Runtime.MinFreeGiB))
	if cfg.Records.Driver == config.DriverSQLite {
		results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Local blob root", cfg.Storage.LocalRoot))
	}

	if cfg.Progress.Enabled {
		results = append(results, CheckRedis(ctx, cfg.Progress))
	}
	if cfg.Intake.Enabled {
		results = append(results, CheckAMQP(ctx, cfg.Intake.AMQPURL))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
