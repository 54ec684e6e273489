package topology

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"maskpack/internal/logging"
)

// Chooser picks one path out of several candidates. Implementations usually
// ask the engineer; the resolver never chooses between equals on its own.
type Chooser interface {
	Choose(ctx context.Context, title string, candidates []string) (string, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(ctx context.Context, title string, candidates []string) (string, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, title string, candidates []string) (string, error) {
	return f(ctx, title, candidates)
}

// Resolver walks the project tree around a launch directory.
type Resolver struct {
	fs       afero.Fs
	patterns Patterns
	chooser  Chooser
	logger   *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithFS replaces the filesystem the resolver reads from.
func WithFS(fs afero.Fs) Option {
	return func(r *Resolver) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// WithLogger attaches a logger to the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver over the host filesystem.
func NewResolver(patterns Patterns, chooser Chooser, opts ...Option) *Resolver {
	r := &Resolver{
		fs:       afero.NewOsFs(),
		patterns: patterns,
		chooser:  chooser,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "resolver")
	return r
}

// Patterns returns the role patterns the resolver classifies with.
func (r *Resolver) Patterns() Patterns {
	return r.patterns
}

// Resolve determines the role of start and fills in the remaining three
// folders. Any error is fatal for the run; no partial topology is returned.
func (r *Resolver) Resolve(ctx context.Context, start string) (Topology, error) {
	start, err := filepath.Abs(filepath.Clean(start))
	if err != nil {
		return Topology{}, fmt.Errorf("resolve launch directory: %w", err)
	}
	base := filepath.Base(start)
	role, ok := Classify(base, r.patterns)
	if !ok {
		return Topology{}, fmt.Errorf("%w: %q matches none of the configured folder patterns", ErrUnrecognizedLaunchLocation, base)
	}
	r.logger.Debug("launch folder classified",
		logging.String("folder", base),
		logging.String("role", role.String()),
	)

	topo := Topology{LaunchDir: start, Launch: role}
	switch role {
	case RoleMaskName:
		topo.MaskName = start
		if topo.Revision, err = r.descend(ctx, topo.MaskName, RoleRevision); err != nil {
			return Topology{}, err
		}
		if topo.Dataprep, err = r.descend(ctx, topo.Revision, RoleDataprep); err != nil {
			return Topology{}, err
		}
		if err := r.inferFinalMask(ctx, &topo); err != nil {
			return Topology{}, err
		}
	case RoleRevision:
		topo.Revision = start
		topo.MaskName = filepath.Dir(start)
		if topo.Dataprep, err = r.descend(ctx, topo.Revision, RoleDataprep); err != nil {
			return Topology{}, err
		}
		if err := r.inferFinalMask(ctx, &topo); err != nil {
			return Topology{}, err
		}
	case RoleDataprep:
		topo.Dataprep = start
		topo.Revision = filepath.Dir(start)
		topo.MaskName = filepath.Dir(topo.Revision)
		if err := r.inferFinalMask(ctx, &topo); err != nil {
			return Topology{}, err
		}
	case RoleFinalMask:
		topo.FinalMask = start
		topo.Dataprep = filepath.Dir(start)
		topo.Revision = filepath.Dir(topo.Dataprep)
		topo.MaskName = filepath.Dir(topo.Revision)
	}

	topo, err = r.reconcileFinalMask(ctx, topo)
	if err != nil {
		return Topology{}, err
	}

	r.logger.Info("project folders resolved",
		logging.String("launch_role", role.String()),
		logging.String("mask_name", topo.MaskName),
		logging.String("revision", topo.Revision),
		logging.String("dataprep", topo.Dataprep),
		logging.String("final_mask", topo.FinalMask),
		logging.Bool("synthetic_final_mask", topo.SyntheticFinalMask),
	)
	return topo, nil
}

// FinalMaskCandidates lists every direct child of dataprep whose name matches
// the final-mask pattern, in lexical order.
func (r *Resolver) FinalMaskCandidates(ctx context.Context, dataprep string) ([]string, error) {
	return ChildDirs(ctx, r.fs, dataprep, func(name string) bool {
		return r.patterns.Match(RoleFinalMask, name)
	})
}

// descend returns the single child of parent matching role. Several matches
// are handed to the chooser.
func (r *Resolver) descend(ctx context.Context, parent string, role Role) (string, error) {
	candidates, err := ChildDirs(ctx, r.fs, parent, func(name string) bool {
		return r.patterns.Match(role, name)
	})
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: no %s folder in %s", ErrMissingExpectedSubdirectory, role, parent)
	case 1:
		return candidates[0], nil
	default:
		return r.choose(ctx, role, candidates)
	}
}

// inferFinalMask takes the first final-mask child of Dataprep, or falls back
// to Dataprep/secret when there is none.
func (r *Resolver) inferFinalMask(ctx context.Context, topo *Topology) error {
	candidates, err := r.FinalMaskCandidates(ctx, topo.Dataprep)
	if err != nil {
		return err
	}
	if len(candidates) > 0 {
		topo.FinalMask = candidates[0]
		return nil
	}
	topo.FinalMask = filepath.Join(topo.Dataprep, SecretDirName)
	topo.SyntheticFinalMask = true
	logging.WarnWithContext(r.logger, "final mask folder not found; using secret folder instead", "final_mask_fallback",
		logging.String("dataprep", topo.Dataprep),
		logging.String("final_mask", topo.FinalMask),
		logging.String(logging.FieldErrorHint, "create the final mask folder with `maskpack final-folder`"),
		logging.String(logging.FieldImpact, "archives are built from the secret folder"),
	)
	return nil
}

// reconcileFinalMask rescans Dataprep; when several final-mask folders exist
// the chooser's answer replaces whatever was inferred.
func (r *Resolver) reconcileFinalMask(ctx context.Context, topo Topology) (Topology, error) {
	candidates, err := r.FinalMaskCandidates(ctx, topo.Dataprep)
	if err != nil {
		return Topology{}, err
	}
	if len(candidates) <= 1 {
		return topo, nil
	}
	selected, err := r.choose(ctx, RoleFinalMask, candidates)
	if err != nil {
		return Topology{}, err
	}
	r.logger.Info("final mask folder selected",
		logging.String("final_mask", selected),
		logging.Int("candidates", len(candidates)),
	)
	return topo.WithFinalMask(selected), nil
}

func (r *Resolver) choose(ctx context.Context, role Role, candidates []string) (string, error) {
	return Choose(ctx, r.chooser, role, candidates)
}

// Choose hands an ambiguous candidate set to chooser and validates the answer.
func Choose(ctx context.Context, chooser Chooser, role Role, candidates []string) (string, error) {
	if chooser == nil {
		return "", fmt.Errorf("%w: %d %s folders: %s", ErrAmbiguousCandidate, len(candidates), role, strings.Join(candidates, ", "))
	}
	title := fmt.Sprintf("Please select which %s folder to use:", strings.ToLower(role.Label()))
	selected, err := chooser.Choose(ctx, title, candidates)
	if err != nil {
		return "", fmt.Errorf("select %s folder: %w", role, err)
	}
	if strings.TrimSpace(selected) == "" {
		return "", fmt.Errorf("select %s folder: %w", role, ErrNoSelection)
	}
	return filepath.Clean(selected), nil
}

// ChildDirs lists the direct child directories of parent accepted by keep,
// as full paths in lexical order. Symlinks to directories count as directories.
func ChildDirs(ctx context.Context, fs afero.Fs, parent string, keep func(name string) bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(fs, parent)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", parent, err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !isDirEntry(fs, parent, entry) {
			continue
		}
		if keep != nil && !keep(name) {
			continue
		}
		out = append(out, filepath.Join(parent, name))
	}
	sort.Strings(out)
	return out, nil
}

func isDirEntry(fs afero.Fs, parent string, entry os.FileInfo) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Mode()&os.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
