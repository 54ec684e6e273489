package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"maskpack/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_Unset(t *testing.T) {
	if result := CheckDirectoryAccess("test", " "); result.Passed {
		t.Fatal("expected failure for unset path")
	}
}

func TestCheckDirectoryReadable_OK(t *testing.T) {
	if result := CheckDirectoryReadable("root", t.TempDir()); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestCheckLaunchDirectory(t *testing.T) {
	cases := []struct {
		name string
		cwd  string
		root string
		ok   bool
	}{
		{name: "no root", cwd: "/anywhere", root: "", ok: true},
		{name: "root itself", cwd: "/projects", root: "/projects", ok: true},
		{name: "below root", cwd: "/projects/ABC123/REV02", root: "/projects/", ok: true},
		{name: "sibling prefix", cwd: "/projects2/ABC123", root: "/projects", ok: false},
		{name: "outside", cwd: "/home/eng/ABC123", root: "/projects", ok: false},
		{name: "parent escape", cwd: "/projects/../etc", root: "/projects", ok: false},
		{name: "lower test", cwd: "/home/eng/test/ABC123", root: "/projects", ok: true},
		{name: "upper test", cwd: "/scratch/TEST_AREA/ABC123", root: "/projects", ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckLaunchDirectory(tc.cwd, tc.root)
			if tc.ok && err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrOutsideProjects) {
				t.Fatalf("expected ErrOutsideProjects, got %v", err)
			}
		})
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil, ""); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	archive := filepath.Join(t.TempDir(), "run_archive")
	if err := os.MkdirAll(archive, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(cfg, archive)
	if len(results) != 3 {
		t.Fatalf("expected archive, log and history checks, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
}

func TestRunAll_ReportsMissingProjectsRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "projects")
	cfg := testsupport.NewConfig(t, testsupport.WithProjectsRoot(missing))

	results := RunAll(cfg, t.TempDir())
	failed := Failed(results)
	if len(failed) == 0 || failed[0].Name != "Projects root" {
		t.Fatalf("expected projects root failure first, got %+v", failed)
	}
}
