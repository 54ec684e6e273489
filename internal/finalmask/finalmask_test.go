package finalmask

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"maskpack/internal/testsupport"
	"maskpack/internal/topology"
)

func TestFolderName(t *testing.T) {
	day := time.Date(2026, time.March, 5, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		mask, grade, want string
	}{
		{"/p/ABC123", "MS", "ABC123_MS_05Mar26"},
		{"/p/abc123x", "ms", "ABC123X_MS_05Mar26"},
		{"/p/XY9999/", " msw ", "XY9999_MSW_05Mar26"},
	}
	for _, tc := range cases {
		if got := FolderName(tc.mask, tc.grade, day); got != tc.want {
			t.Fatalf("FolderName(%q, %q) = %q want %q", tc.mask, tc.grade, got, tc.want)
		}
	}
}

func projectTopology(p testsupport.Project) topology.Topology {
	return topology.Topology{
		MaskName:           p.MaskName,
		Revision:           p.Revision,
		Dataprep:           p.Dataprep,
		FinalMask:          filepath.Join(p.Dataprep, topology.SecretDirName),
		SyntheticFinalMask: true,
	}
}

func TestCreateCopiesTemplate(t *testing.T) {
	p := testsupport.NewProject(t, testsupport.WithoutFinalMask(), testsupport.WithSecret())
	day := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	res, err := Create(projectTopology(p), Options{Grade: "MS", TemplateDir: "secret", Now: day})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := filepath.Join(p.Dataprep, "ABC123_MS_06Mar26")
	if res.Path != want {
		t.Fatalf("expected %s, got %s", want, res.Path)
	}
	if res.Files != 2 {
		t.Fatalf("expected 2 files copied, got %d", res.Files)
	}
	if _, err := os.Stat(filepath.Join(want, "cfg", "order.po")); err != nil {
		t.Fatalf("expected nested template file: %v", err)
	}

	if _, err := Create(projectTopology(p), Options{Grade: "MS", TemplateDir: "secret", Now: day}); !errors.Is(err, ErrFolderExists) {
		t.Fatalf("expected ErrFolderExists on second create, got %v", err)
	}
}

func TestCreateMissingTemplate(t *testing.T) {
	p := testsupport.NewProject(t, testsupport.WithoutFinalMask())
	_, err := Create(projectTopology(p), Options{Grade: "MS", TemplateDir: "secret"})
	if !errors.Is(err, ErrMissingTemplate) {
		t.Fatalf("expected ErrMissingTemplate, got %v", err)
	}
}

func TestCreateRejectsUnresolvedTopology(t *testing.T) {
	if _, err := Create(topology.Topology{}, Options{Grade: "MS", TemplateDir: "secret"}); err == nil {
		t.Fatal("expected error for empty topology")
	}
}
