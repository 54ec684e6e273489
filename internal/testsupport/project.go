package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// LayoutSize is the size of the layout.gds file seeded into every final-mask folder.
const LayoutSize = 48 * 1024

// Project is an on-disk mask project tree built for tests.
type Project struct {
	Root      string
	MaskName  string
	Revision  string
	Dataprep  string
	FinalMask string
}

// ProjectOption customizes NewProject.
type ProjectOption func(*projectLayout)

type projectLayout struct {
	mask     string
	revision string
	final    string
	noFinal  bool
	secret   bool
	extras   []string
}

// WithMask overrides the mask name folder (default ABC123).
func WithMask(name string) ProjectOption {
	return func(s *projectLayout) { s.mask = name }
}

// WithRevision overrides the revision folder (default REV02).
func WithRevision(name string) ProjectOption {
	return func(s *projectLayout) { s.revision = name }
}

// WithFinalMask overrides the final-mask folder name.
func WithFinalMask(name string) ProjectOption {
	return func(s *projectLayout) { s.final = name }
}

// WithoutFinalMask leaves dataprep without a final-mask folder.
func WithoutFinalMask() ProjectOption {
	return func(s *projectLayout) { s.noFinal = true }
}

// WithSecret creates dataprep/secret with a couple of files.
func WithSecret() ProjectOption {
	return func(s *projectLayout) { s.secret = true }
}

// WithExtraFinalMask adds another final-mask folder next to the main one.
func WithExtraFinalMask(name string) ProjectOption {
	return func(s *projectLayout) { s.extras = append(s.extras, name) }
}

// NewProject builds mask/revision/dataprep/final under a fresh temp root and
// seeds the final-mask folder with a few files.
func NewProject(t testing.TB, opts ...ProjectOption) Project {
	t.Helper()

	layout := projectLayout{mask: "ABC123", revision: "REV02", final: "ABC123_MS_05Mar26"}
	for _, opt := range opts {
		opt(&layout)
	}

	root := t.TempDir()
	p := Project{Root: root}
	p.MaskName = filepath.Join(root, layout.mask)
	p.Revision = filepath.Join(p.MaskName, layout.revision)
	p.Dataprep = filepath.Join(p.Revision, "dataprep")
	mkdir(t, filepath.Join(p.Revision, "docs"))
	mkdir(t, p.Dataprep)

	if !layout.noFinal {
		p.FinalMask = filepath.Join(p.Dataprep, layout.final)
		WriteFile(t, filepath.Join(p.FinalMask, "layout.gds"), LayoutSize)
		WriteText(t, filepath.Join(p.FinalMask, "jobdeck", "deck.jb"), "deck")
	}
	for _, extra := range layout.extras {
		WriteFile(t, filepath.Join(p.Dataprep, extra, "layout.gds"), LayoutSize)
	}
	if layout.secret {
		WriteText(t, filepath.Join(p.Dataprep, "secret", "template.txt"), "template")
		WriteText(t, filepath.Join(p.Dataprep, "secret", "cfg", "order.po"), "po")
	}
	return p
}

func mkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}
