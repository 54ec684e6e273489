package topology

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SecretDirName is the working folder used in place of a final-mask folder
// that has not been created yet.
const SecretDirName = "secret"

// Topology is the resolved set of canonical project folders for one run.
type Topology struct {
	MaskName  string `json:"mask_name"`
	Revision  string `json:"revision"`
	Dataprep  string `json:"dataprep"`
	FinalMask string `json:"final_mask"`

	// LaunchDir and Launch record where resolution started.
	LaunchDir string `json:"launch_dir"`
	Launch    Role   `json:"-"`
	// SyntheticFinalMask is set when FinalMask is the Dataprep/secret fallback,
	// which may not exist on disk.
	SyntheticFinalMask bool `json:"synthetic_final_mask"`
}

// Path returns the folder resolved for role.
func (t Topology) Path(role Role) string {
	switch role {
	case RoleMaskName:
		return t.MaskName
	case RoleRevision:
		return t.Revision
	case RoleDataprep:
		return t.Dataprep
	case RoleFinalMask:
		return t.FinalMask
	default:
		return ""
	}
}

// WithFinalMask returns a copy whose final-mask folder is replaced by path.
// This is the only change a resolved topology accepts.
func (t Topology) WithFinalMask(path string) Topology {
	t.FinalMask = filepath.Clean(path)
	t.SyntheticFinalMask = false
	return t
}

// Validate checks the nesting invariant: FinalMask below Dataprep below
// Revision below MaskName. A synthetic final mask must be Dataprep/secret.
func (t Topology) Validate() error {
	for _, role := range Roles {
		if strings.TrimSpace(t.Path(role)) == "" {
			return fmt.Errorf("topology: %s path is empty", role)
		}
	}
	if !isDescendant(t.MaskName, t.Revision) {
		return fmt.Errorf("topology: revision %q is not below mask name %q", t.Revision, t.MaskName)
	}
	if !isDescendant(t.Revision, t.Dataprep) {
		return fmt.Errorf("topology: dataprep %q is not below revision %q", t.Dataprep, t.Revision)
	}
	if t.SyntheticFinalMask {
		want := filepath.Join(t.Dataprep, SecretDirName)
		if filepath.Clean(t.FinalMask) != want {
			return fmt.Errorf("topology: synthetic final mask %q is not %q", t.FinalMask, want)
		}
		return nil
	}
	if !isDescendant(t.Dataprep, t.FinalMask) {
		return fmt.Errorf("topology: final mask %q is not below dataprep %q", t.FinalMask, t.Dataprep)
	}
	return nil
}

// Names returns the base names of the four folders keyed by role name, the
// shape the ledger and history store record.
func (t Topology) Names() map[string]string {
	out := make(map[string]string, len(Roles))
	for _, role := range Roles {
		out[role.String()] = filepath.Base(t.Path(role))
	}
	return out
}

func isDescendant(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
