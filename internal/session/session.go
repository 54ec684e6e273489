package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"maskpack/internal/checklist"
	"maskpack/internal/config"
	"maskpack/internal/fileutil"
	"maskpack/internal/finalmask"
	"maskpack/internal/history"
	"maskpack/internal/ledger"
	"maskpack/internal/logging"
	"maskpack/internal/packager"
	"maskpack/internal/preflight"
	"maskpack/internal/topology"
)

// ErrNotResolved is returned by steps that need a resolved topology.
var ErrNotResolved = errors.New("project folders not resolved")

// Options configures Start.
type Options struct {
	Config    *config.Config
	LaunchDir string
	Chooser   topology.Chooser
	Logger    *slog.Logger
	// History overrides the store opened from Config.Paths.HistoryDB.
	History *history.Store
	FS      afero.Fs
	Now     func() time.Time
	User    string
	Version string
}

// Session ties one run's ledger, history entry, resolver and packager together.
// Ledger and history failures are logged and never stop the run.
type Session struct {
	mu          sync.Mutex
	cfg         *config.Config
	launchDir   string
	user        string
	version     string
	now         func() time.Time
	logger      *slog.Logger
	ledger      *ledger.Ledger
	history     *history.Store
	ownsHistory bool
	patterns    topology.Patterns
	resolver    *topology.Resolver
	packager    *packager.Packager
	chooser     topology.Chooser
	fs          afero.Fs
	topo        *topology.Topology
	closed      *ledger.FinalizeResult
}

// Patterns compiles the folder patterns in effect for cfg.
func Patterns(cfg *config.Config) (topology.Patterns, error) {
	set := cfg.PatternSet()
	return topology.CompilePatterns(topology.PatternSource{
		MaskName:  set.MaskName,
		Revision:  set.Revision,
		Dataprep:  set.Dataprep,
		FinalMask: set.FinalMask,
	})
}

// Start checks the launch directory and opens the run ledger. The returned
// context carries the run id for log lines.
func Start(ctx context.Context, opts Options) (*Session, context.Context, error) {
	if opts.Config == nil {
		return nil, ctx, fmt.Errorf("session: config is required")
	}
	if err := preflight.CheckLaunchDirectory(opts.LaunchDir, opts.Config.Paths.ProjectsRoot); err != nil {
		return nil, ctx, err
	}
	patterns, err := Patterns(opts.Config)
	if err != nil {
		return nil, ctx, fmt.Errorf("folder patterns: %w", err)
	}

	s := &Session{
		cfg:       opts.Config,
		launchDir: opts.LaunchDir,
		user:      opts.User,
		version:   opts.Version,
		now:       opts.Now,
		logger:    opts.Logger,
		patterns:  patterns,
		chooser:   opts.Chooser,
		fs:        opts.FS,
		history:   opts.History,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.user == "" {
		s.user = currentUser()
	}

	led, err := ledger.Begin(ledger.Options{
		Dir:    opts.Config.Paths.RunArchiveDir,
		Now:    s.now,
		Logger: s.logger,
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "run ledger unavailable; continuing without it", "ledger_start_failed",
			logging.String("run_archive", opts.Config.Paths.RunArchiveDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that paths.run_archive_dir is a writable directory"),
			logging.String(logging.FieldImpact, "no run ledger is kept for this session"),
		)
		led = ledger.Disabled(err)
	}
	s.ledger = led
	ctx = logging.WithRunID(ctx, led.ID())
	s.logger = logging.NewComponentLogger(s.logger, "session").With(
		logging.String(logging.FieldRunID, led.ID()),
		logging.String(logging.FieldLaunchDir, opts.LaunchDir),
	)
	s.resolver = topology.NewResolver(patterns, s.chooser, topology.WithFS(s.fs), topology.WithLogger(opts.Logger))
	s.packager = packager.New(packager.WithLogger(opts.Logger))

	s.openHistory(ctx)
	s.record("Session started in %s by %s", opts.LaunchDir, s.user)
	s.logger.Info("session started",
		logging.String("ledger", led.Path()),
		logging.String("user", s.user),
		logging.String(logging.FieldEventType, "session_started"),
	)
	return s, ctx, nil
}

// RunID returns the run identifier.
func (s *Session) RunID() string {
	return s.ledger.ID()
}

// LedgerPath returns the text ledger path.
func (s *Session) LedgerPath() string {
	return s.ledger.Path()
}

// Topology returns the resolved folders, if any.
func (s *Session) Topology() (topology.Topology, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topo == nil {
		return topology.Topology{}, false
	}
	return *s.topo, true
}

// Resolve runs the full topology resolution from the launch directory.
func (s *Session) Resolve(ctx context.Context) (topology.Topology, error) {
	topo, err := s.resolver.Resolve(ctx, s.launchDir)
	return s.adopt(ctx, topo, err, "Resolved")
}

// ResolveInPlace runs the lighter lookup used when packaging from dataprep or
// a final mask folder.
func (s *Session) ResolveInPlace(ctx context.Context) (topology.Topology, error) {
	topo, err := packager.ResolveInPlace(ctx, s.launchDir, s.patterns, s.chooser, s.fs)
	return s.adopt(ctx, topo, err, "Resolved in place")
}

func (s *Session) adopt(ctx context.Context, topo topology.Topology, err error, verb string) (topology.Topology, error) {
	if err != nil {
		s.record("Folder resolution failed: %v", err)
		return topology.Topology{}, err
	}
	s.mu.Lock()
	s.topo = &topo
	s.mu.Unlock()

	s.record("%s: mask name %s, revision %s, dataprep %s, final mask %s", verb, topo.MaskName, topo.Revision, topo.Dataprep, topo.FinalMask)
	if topo.SyntheticFinalMask {
		s.record("No final mask folder found; using %s", topo.FinalMask)
	}
	s.historyFolders(ctx, topo)
	return topo, nil
}

// Package removes editor swap files from the final mask folder and builds
// both archives. Failures are in the manifest, never returned separately.
func (s *Session) Package(ctx context.Context) (packager.Manifest, error) {
	topo, ok := s.Topology()
	if !ok {
		return packager.Manifest{}, ErrNotResolved
	}
	ctx = logging.WithRunID(ctx, s.RunID())

	if removed, err := fileutil.RemoveSwapFiles(topo.FinalMask); err != nil {
		logging.WarnWithContext(s.logger, "swap file cleanup failed", "swap_cleanup_failed",
			logging.String("final_mask", topo.FinalMask),
			logging.Error(err),
			logging.String(logging.FieldImpact, "editor swap files may end up in the archives"),
		)
	} else if len(removed) > 0 {
		s.record("Removed %d swap file(s) from %s", len(removed), topo.FinalMask)
	}

	manifest := s.packager.Package(ctx, topo)
	for _, r := range manifest.Results() {
		if r.OK() {
			s.record("Created %s archive %s (%d files)", r.Target, r.Path, r.Files)
		} else {
			s.record("Failed to create %s archive %s: %v", r.Target, r.Path, r.Err)
		}
		s.historyArchive(ctx, r)
	}
	return manifest, nil
}

// CreateFinalMask copies the template folder into today's final mask folder
// and points the topology at it.
func (s *Session) CreateFinalMask(ctx context.Context) (finalmask.Result, error) {
	topo, ok := s.Topology()
	if !ok {
		return finalmask.Result{}, ErrNotResolved
	}
	res, err := finalmask.Create(topo, finalmask.Options{
		Grade:       s.cfg.FinalMask.Grade,
		TemplateDir: s.cfg.FinalMask.TemplateDir,
		Now:         s.now(),
	})
	if err != nil {
		s.record("Final mask folder not created: %v", err)
		return finalmask.Result{}, err
	}
	if !s.patterns.Match(topology.RoleFinalMask, filepath.Base(res.Path)) {
		logging.WarnWithContext(s.logger, "new folder does not match the final mask pattern", "final_mask_pattern_mismatch",
			logging.String("path", res.Path),
			logging.String(logging.FieldErrorHint, "adjust patterns.final_mask or final_mask.grade"),
			logging.String(logging.FieldImpact, "later runs will not find this folder automatically"),
		)
	}
	next := topo.WithFinalMask(res.Path)
	s.mu.Lock()
	s.topo = &next
	s.mu.Unlock()
	s.record("Created final mask folder %s from %s (%d files)", res.Path, res.Template, res.Files)
	s.historyFolders(ctx, next)
	return res, nil
}

// SaveChecklist writes the checklist record into the revision's docs folder.
func (s *Session) SaveChecklist(items []checklist.Item) (checklist.Result, error) {
	topo, ok := s.Topology()
	if !ok {
		return checklist.Result{}, ErrNotResolved
	}
	res, err := checklist.Save(topo.Revision, items, checklist.Options{
		BaseName:    s.cfg.Checklist.BaseName,
		RunID:       s.RunID(),
		User:        s.user,
		ToolVersion: s.version,
		Now:         s.now(),
	})
	if err != nil {
		s.record("Checklist not saved: %v", err)
		return res, err
	}
	s.record("Saved checklist version %d to %s", res.Version, res.Path)
	return res, nil
}

// Note records a free-form event in the ledger.
func (s *Session) Note(event string) {
	s.record("%s", event)
}

// Close marks the run done, finalizes the ledger and closes the history entry.
// runErr, when set, is recorded as the reason the run failed. Only the first
// call acts.
func (s *Session) Close(ctx context.Context, runErr error) ledger.FinalizeResult {
	s.mu.Lock()
	if s.closed != nil {
		res := *s.closed
		s.mu.Unlock()
		res.Repeated = true
		return res
	}
	s.mu.Unlock()

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		s.record("Run failed: %s", errMsg)
	}
	s.record("Session closed")
	s.ledger.MarkDone()
	res := s.ledger.Finalize(s.cfg.Ledger.Durable)

	if s.history != nil {
		if err := s.history.FinishRun(ctx, s.RunID(), res.Artifact, errMsg, s.now()); err != nil {
			s.historyFailed("finish run", err)
		}
		if s.ownsHistory {
			_ = s.history.Close()
		}
	}
	s.logger.Info("session closed",
		logging.String("ledger", res.Artifact),
		logging.Bool("durable", res.Durable),
		logging.Bool("failed", runErr != nil),
		logging.String(logging.FieldEventType, "session_closed"),
	)

	s.mu.Lock()
	s.closed = &res
	s.mu.Unlock()
	return res
}

func (s *Session) record(format string, args ...any) {
	if err := s.ledger.Recordf(format, args...); err != nil {
		logging.WarnWithContext(s.logger, "ledger write failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this event is missing from the run ledger"),
		)
	}
}

func (s *Session) openHistory(ctx context.Context) {
	if s.history == nil {
		path := strings.TrimSpace(s.cfg.Paths.HistoryDB)
		if path == "" {
			return
		}
		store, err := history.Open(path)
		if err != nil {
			s.historyFailed("open", err)
			return
		}
		s.history = store
		s.ownsHistory = true
	}
	if err := s.history.StartRun(ctx, s.RunID(), s.launchDir, s.user, s.ledger.Path(), s.now()); err != nil {
		s.historyFailed("start run", err)
	}
}

func (s *Session) historyFolders(ctx context.Context, topo topology.Topology) {
	if s.history == nil {
		return
	}
	err := s.history.SetFolders(ctx, s.RunID(), history.Folders{
		MaskName:           topo.MaskName,
		Revision:           topo.Revision,
		Dataprep:           topo.Dataprep,
		FinalMask:          topo.FinalMask,
		SyntheticFinalMask: topo.SyntheticFinalMask,
	})
	if err != nil {
		s.historyFailed("store folders", err)
	}
}

func (s *Session) historyArchive(ctx context.Context, r packager.ArchiveResult) {
	if s.history == nil {
		return
	}
	err := s.history.AddArchive(ctx, history.Archive{
		RunID:        s.RunID(),
		Target:       string(r.Target),
		Path:         r.Path,
		Files:        r.Files,
		Bytes:        r.Bytes,
		ErrorMessage: r.Message,
		CreatedAt:    s.now(),
	})
	if err != nil {
		s.historyFailed("store archive", err)
	}
}

func (s *Session) historyFailed(op string, err error) {
	logging.WarnWithContext(s.logger, "run history unavailable", "history_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.history_db"),
		logging.String(logging.FieldImpact, "this run is missing from maskpack history"),
	)
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
