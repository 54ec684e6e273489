package packager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	"maskpack/internal/logging"
	"maskpack/internal/topology"
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 250 * time.Millisecond
)

// Manifest records the outcome of both archive builds of one Package call.
type Manifest struct {
	Review ArchiveResult `json:"review"`
	Vendor ArchiveResult `json:"vendor"`
}

// Err combines the failures of both builds, or returns nil.
func (m Manifest) Err() error {
	return multierr.Combine(m.Review.Err, m.Vendor.Err)
}

// OK reports whether both archives were written.
func (m Manifest) OK() bool {
	return m.Review.OK() && m.Vendor.OK()
}

// Results returns the review and vendor results in build order.
func (m Manifest) Results() []ArchiveResult {
	return []ArchiveResult{m.Review, m.Vendor}
}

// Packager builds the review and vendor archives for a resolved topology.
type Packager struct {
	logger      *slog.Logger
	lockTimeout time.Duration
}

// Option customizes a Packager.
type Option func(*Packager)

// WithLogger attaches a logger to the packager.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Packager) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLockTimeout bounds how long Package waits for another packager working
// on the same dataprep folder.
func WithLockTimeout(d time.Duration) Option {
	return func(p *Packager) {
		if d > 0 {
			p.lockTimeout = d
		}
	}
}

// New constructs a Packager.
func New(opts ...Option) *Packager {
	p := &Packager{logger: logging.NewNop(), lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "packager")
	return p
}

// Package writes Dataprep/<final>.tgz (without .tgz files) and
// FinalMask/<vendor name> (without .tar.gz files). Each build is attempted
// regardless of the other; failures are reported in the manifest and logged.
func (p *Packager) Package(ctx context.Context, topo topology.Topology) Manifest {
	logger := logging.WithContext(ctx, p.logger)
	reviewPath := filepath.Join(topo.Dataprep, ReviewArchiveName(topo.FinalMask))
	vendorPath := filepath.Join(topo.FinalMask, VendorArchiveName(topo.MaskName, topo.Revision))

	unlock, err := p.lock(ctx, logger, topo.Dataprep)
	if err != nil {
		m := Manifest{
			Review: ArchiveResult{Target: TargetReview, Source: topo.FinalMask, Path: reviewPath, Err: err, Message: err.Error()},
			Vendor: ArchiveResult{Target: TargetVendor, Source: topo.FinalMask, Path: vendorPath, Err: err, Message: err.Error()},
		}
		logging.ErrorWithContext(logger, "packaging lock unavailable", "archive_lock_failed",
			logging.String("dataprep", topo.Dataprep),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for the other maskpack session on this dataprep to finish"),
		)
		return m
	}
	defer unlock()

	var m Manifest
	m.Review = BuildArchive(ctx, topo.FinalMask, reviewPath, ExcludeSuffix(ReviewExt))
	m.Review.Target = TargetReview
	p.report(logger, m.Review)

	m.Vendor = BuildArchive(ctx, topo.FinalMask, vendorPath, ExcludeSuffix(VendorExt))
	m.Vendor.Target = TargetVendor
	p.report(logger, m.Vendor)
	return m
}

func (p *Packager) report(logger *slog.Logger, r ArchiveResult) {
	if r.OK() {
		logger.Info("archive written",
			logging.String("target", string(r.Target)),
			logging.String("path", r.Path),
			logging.Int("files", r.Files),
			logging.Int("excluded", r.Excluded),
			logging.Int64("bytes", r.Bytes),
			logging.String(logging.FieldEventType, "archive_written"),
		)
		return
	}
	logging.ErrorWithContext(logger, "archive build failed", "archive_failed",
		logging.String("target", string(r.Target)),
		logging.String("path", r.Path),
		logging.Error(r.Err),
		logging.String(logging.FieldErrorHint, "check that the final mask folder exists and is writable"),
	)
}

// lock takes the dataprep packaging lock. Only contention with another
// session or cancellation is an error; a lock file that cannot be opened is
// logged and packaging goes on unlocked.
func (p *Packager) lock(ctx context.Context, logger *slog.Logger, dataprep string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, p.lockTimeout)
	defer cancel()

	path := filepath.Join(dataprep, LockName)
	fl := flock.New(path)
	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	switch {
	case ok:
		return func() {
			_ = fl.Unlock()
		}, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: lock %s: %w", ErrArchiveWrite, dataprep, ctx.Err())
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s is being packaged by another session", ErrArchiveWrite, dataprep)
	default:
		logging.WarnWithContext(logger, "packaging lock not taken; continuing unlocked", "archive_lock_skipped",
			logging.String("lock", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the dataprep folder"),
			logging.String(logging.FieldImpact, "concurrent sessions on this dataprep are not serialized"),
		)
		return func() {}, nil
	}
}
