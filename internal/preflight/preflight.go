package preflight

import (
	"path/filepath"

	"maskpack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every directory maskpack reads from or writes to.
// Unset optional paths are skipped.
func RunAll(cfg *config.Config, runArchiveDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Projects root is only read.
	if cfg.Paths.ProjectsRoot != "" {
		results = append(results, CheckDirectoryReadable("Projects root", cfg.Paths.ProjectsRoot))
	}

	results = append(results, CheckDirectoryAccess("Run archive", runArchiveDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Paths.HistoryDB != "" {
		results = append(results, CheckDirectoryAccess("History directory", filepath.Dir(cfg.Paths.HistoryDB)))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
