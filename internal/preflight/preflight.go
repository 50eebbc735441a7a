package preflight

import (
	"fmt"
	"strings"

	"vidshelf/internal/config"
	"vidshelf/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the path checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckVideoDir(cfg.Paths.VideoDir),
		CheckLibraryDir(cfg.Paths.LibraryDir),
	}
}

// Err folds failed results into a single configuration error, or nil when
// every check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check paths", strings.Join(failed, "; "), nil)
}
