package packager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"maskpack/internal/topology"
)

// ResolveInPlace builds a topology for packaging without a full resolve.
// When the folder name of cwd matches the final-mask pattern, cwd is the final
// mask and its parent is dataprep. Otherwise cwd is taken as dataprep and its
// final-mask children are scanned: one is used directly, several go to the
// chooser, none is an error. Revision and mask name are the parent and
// grandparent of dataprep.
func ResolveInPlace(ctx context.Context, cwd string, patterns topology.Patterns, chooser topology.Chooser, fs afero.Fs) (topology.Topology, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cwd, err := filepath.Abs(filepath.Clean(cwd))
	if err != nil {
		return topology.Topology{}, fmt.Errorf("resolve working directory: %w", err)
	}

	topo := topology.Topology{LaunchDir: cwd}
	if patterns.Match(topology.RoleFinalMask, filepath.Base(cwd)) {
		topo.Launch = topology.RoleFinalMask
		topo.FinalMask = cwd
		topo.Dataprep = filepath.Dir(cwd)
	} else {
		topo.Launch = topology.RoleDataprep
		topo.Dataprep = cwd
		candidates, err := topology.ChildDirs(ctx, fs, cwd, func(name string) bool {
			return patterns.Match(topology.RoleFinalMask, name)
		})
		if err != nil {
			return topology.Topology{}, err
		}
		switch len(candidates) {
		case 0:
			return topology.Topology{}, fmt.Errorf("%w: no final mask folder in %s", topology.ErrMissingExpectedSubdirectory, cwd)
		case 1:
			topo.FinalMask = candidates[0]
		default:
			selected, err := topology.Choose(ctx, chooser, topology.RoleFinalMask, candidates)
			if err != nil {
				return topology.Topology{}, err
			}
			topo.FinalMask = selected
		}
	}
	topo.Revision = filepath.Dir(topo.Dataprep)
	topo.MaskName = filepath.Dir(topo.Revision)
	return topo, nil
}
