package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"maskpack/internal/document"
	"maskpack/internal/logging"
)

const (
	// FileExt is the extension of the plain-text ledger.
	FileExt = ".lr"
	// PDFExt is the extension of the rendered ledger.
	PDFExt = ".pdf"
	// ArchiveDirName is the default run archive folder next to the install.
	ArchiveDirName = "run_archive"

	fileTimeLayout   = "020106-150405"
	recordTimeLayout = "2006-01-02 15:04:05"
	lockedMode       = 0o444
	maxNameAttempts  = 100
)

var (
	// ErrLedgerIO wraps failures to write or render the ledger.
	ErrLedgerIO = errors.New("ledger io")
	// ErrLedgerMissing is reported when the ledger file vanished before finalize.
	ErrLedgerMissing = errors.New("ledger file missing")
)

// RenderFunc converts the text ledger at src into a document at dest and
// returns the path written.
type RenderFunc func(src, dest string, opts document.Options) (string, error)

// Options configures Begin.
type Options struct {
	// Dir holds the ledger; DefaultArchiveDir is used when empty.
	Dir    string
	Now    func() time.Time
	Logger *slog.Logger
	Render RenderFunc
}

// FinalizeResult describes what Finalize left on disk.
type FinalizeResult struct {
	Artifact string `json:"artifact"`
	Durable  bool   `json:"durable"`
	Locked   bool   `json:"locked"`
	Repeated bool   `json:"repeated,omitempty"`
	Err      error  `json:"-"`
}

// Ledger is the append-only audit record of one run.
type Ledger struct {
	mu        sync.Mutex
	id        string
	path      string
	now       func() time.Time
	logger    *slog.Logger
	render    RenderFunc
	closed    bool
	finalized *FinalizeResult
	// startErr is set for a ledger whose file could not be created.
	startErr error
}

// DefaultArchiveDir returns <app root>/run_archive where the app root is the
// parent of the directory holding the executable.
func DefaultArchiveDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(filepath.Dir(exe)), ArchiveDirName), nil
}

// Begin creates a new ledger file named run_<DDMMYY-HHMMSS>.lr whose first
// line is the run identifier.
func Begin(opts Options) (*Ledger, error) {
	l := &Ledger{
		id:     uuid.NewString(),
		now:    opts.Now,
		logger: opts.Logger,
		render: opts.Render,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = logging.NewNop()
	}
	l.logger = logging.NewComponentLogger(l.logger, "ledger").With(logging.String(logging.FieldRunID, l.id))
	if l.render == nil {
		l.render = document.RenderFile
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		var err error
		if dir, err = DefaultArchiveDir(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLedgerIO, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create run archive %s: %w", ErrLedgerIO, dir, err)
	}

	file, path, err := createExclusive(dir, "run_"+l.now().Format(fileTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerIO, err)
	}
	defer file.Close()
	if _, err := fmt.Fprintf(file, "RUID: %s\n", l.id); err != nil {
		return nil, fmt.Errorf("%w: write header: %w", ErrLedgerIO, err)
	}
	l.path = path
	l.logger.Info("run ledger started", logging.String("path", path))
	return l, nil
}

// Disabled returns a ledger that keeps a run identifier but writes nothing.
// It stands in when Begin fails so the run can go on: Record is a no-op and
// Finalize reports cause wrapped in ErrLedgerIO.
func Disabled(cause error) *Ledger {
	if cause == nil {
		cause = errors.New("ledger not started")
	}
	if !errors.Is(cause, ErrLedgerIO) {
		cause = fmt.Errorf("%w: %w", ErrLedgerIO, cause)
	}
	return &Ledger{
		id:       uuid.NewString(),
		now:      time.Now,
		logger:   logging.NewNop(),
		startErr: cause,
	}
}

// Enabled reports whether the ledger has a backing file.
func (l *Ledger) Enabled() bool {
	return l.startErr == nil
}

func createExclusive(dir, stem string) (*os.File, string, error) {
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		name := stem + FileExt
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, attempt, FileExt)
		}
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free ledger name for %s in %s", stem, dir)
}

// ID returns the run identifier.
func (l *Ledger) ID() string {
	return l.id
}

// Path returns the text ledger path chosen by Begin, or "" when disabled.
func (l *Ledger) Path() string {
	return l.path
}

// Record appends "YYYY-MM-DD HH:MM:SS - event". It is a no-op once the run
// is done. Errors wrap ErrLedgerIO and are meant to be logged, not to abort.
func (l *Ledger) Record(event string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.startErr != nil {
		return nil
	}
	event = strings.Join(strings.Fields(event), " ")
	line := l.now().Format(recordTimeLayout) + " - " + event + "\n"

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrLedgerIO, l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("%w: append %s: %w", ErrLedgerIO, l.path, err)
	}
	return nil
}

// Recordf formats and records an event.
func (l *Ledger) Recordf(format string, args ...any) error {
	return l.Record(fmt.Sprintf(format, args...))
}

// MarkDone stops further records.
func (l *Ledger) MarkDone() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// Done reports whether MarkDone or Finalize ran.
func (l *Ledger) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Finalize closes the ledger. When durable the text is rendered to a PDF of
// the same base name with a RUID footer and the text file is removed. The
// remaining artifact is made read-only. Only the first call acts; later calls
// return the first result with Repeated set.
func (l *Ledger) Finalize(durable bool) FinalizeResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalized != nil {
		res := *l.finalized
		res.Repeated = true
		return res
	}
	l.closed = true
	res := l.finalize(durable)
	l.finalized = &res
	return res
}

func (l *Ledger) finalize(durable bool) FinalizeResult {
	res := FinalizeResult{Artifact: l.path}
	if l.startErr != nil {
		res.Err = l.startErr
		return res
	}
	if _, err := os.Stat(l.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Err = fmt.Errorf("%w: %s", ErrLedgerMissing, l.path)
		} else {
			res.Err = fmt.Errorf("%w: stat %s: %w", ErrLedgerIO, l.path, err)
		}
		logging.WarnWithContext(l.logger, "run ledger not finalized", "ledger_missing",
			logging.String("path", l.path),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "check whether the run archive was cleaned up during the session"),
			logging.String(logging.FieldImpact, "no durable audit record for this run"),
		)
		return res
	}

	if durable {
		pdfPath := strings.TrimSuffix(l.path, FileExt) + PDFExt
		written, err := l.render(l.path, pdfPath, document.Options{Title: "Run ledger", Footer: "RUID: " + l.id})
		if err != nil {
			res.Err = fmt.Errorf("%w: render %s: %w", ErrLedgerIO, pdfPath, err)
			logging.WarnWithContext(l.logger, "ledger pdf rendering failed; keeping text ledger", "ledger_render_failed",
				logging.String("path", l.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the run is archived as plain text"),
			)
		} else {
			res.Durable = true
			res.Artifact = written
			if err := os.Remove(l.path); err != nil {
				logging.WarnWithContext(l.logger, "text ledger not removed after rendering", "ledger_cleanup_failed",
					logging.String("path", l.path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "the run archive holds both the text and pdf ledger"),
				)
			}
		}
	}

	if err := os.Chmod(res.Artifact, lockedMode); err != nil {
		res.Err = multierr.Append(res.Err, fmt.Errorf("%w: lock %s: %w", ErrLedgerIO, res.Artifact, err))
	} else {
		res.Locked = true
	}
	l.logger.Info("run ledger finalized",
		logging.String("artifact", res.Artifact),
		logging.Bool("durable", res.Durable),
		logging.Bool("locked", res.Locked),
		logging.String(logging.FieldEventType, "ledger_finalized"),
	)
	return res
}
