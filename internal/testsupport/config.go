package testsupport

import (
	"path/filepath"
	"testing"

	"maskpack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RunArchiveDir = filepath.Join(base, "run_archive")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProjectsRoot sets the directory launches must happen under.
func WithProjectsRoot(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ProjectsRoot = path
	}
}

// WithDurableLedger toggles PDF rendering of the run ledger.
func WithDurableLedger(durable bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Durable = durable
	}
}

// WithoutHistory disables the run history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.HistoryDB = ""
	}
}
