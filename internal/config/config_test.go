package config_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"maskpack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.SiteEnv, "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "maskpack", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Paths.ProjectsRoot != "" || cfg.Paths.RunArchiveDir != "" {
		t.Fatalf("expected empty projects root and run archive, got %q %q", cfg.Paths.ProjectsRoot, cfg.Paths.RunArchiveDir)
	}
	if cfg.FinalMask.Grade != "MS" || cfg.FinalMask.TemplateDir != "secret" {
		t.Fatalf("unexpected final mask defaults: %+v", cfg.FinalMask)
	}
	if !cfg.Ledger.Durable {
		t.Fatal("expected durable ledger by default")
	}
	if len(cfg.Archive.Extensions) != 3 {
		t.Fatalf("unexpected archive extensions: %v", cfg.Archive.Extensions)
	}
}

func TestDefaultPatternsSeparateMaskNameFromFinalMask(t *testing.T) {
	def := config.Default()
	set := def.PatternSet()
	mask := regexp.MustCompile("^(?:" + set.MaskName + ")")
	final := regexp.MustCompile("^(?:" + set.FinalMask + ")")
	rev := regexp.MustCompile("^(?:" + set.Revision + ")")

	if !mask.MatchString("ABC123") || mask.MatchString("ABC123_MS_05Mar26") {
		t.Fatal("mask name pattern must match ABC123 only")
	}
	if !final.MatchString("ABC123_MS_05Mar26") || final.MatchString("ABC123") {
		t.Fatal("final mask pattern must match dated folders only")
	}
	if !rev.MatchString("REV02") || !rev.MatchString("rev02") || rev.MatchString("REV02_old") {
		t.Fatal("revision pattern mismatch")
	}
}

func TestLoadTOMLWithSiteOverride(t *testing.T) {
	t.Setenv(config.SiteEnv, "")
	path := filepath.Join(t.TempDir(), "maskpack.toml")
	content := `site = "fab2"

[paths]
projects_root = "/srv/projects"

[patterns.sites.fab2]
mask_name = 'F2[0-9]{5}$'

[final_mask]
grade = " msw "

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %s to be loaded, got %s exists=%v", path, resolved, exists)
	}
	set := cfg.PatternSet()
	if set.MaskName != `F2[0-9]{5}$` {
		t.Fatalf("expected site mask pattern, got %q", set.MaskName)
	}
	if set.Revision != config.Default().Patterns.Revision {
		t.Fatalf("expected default revision pattern to remain, got %q", set.Revision)
	}
	if cfg.FinalMask.Grade != "MSW" {
		t.Fatalf("expected grade normalized to MSW, got %q", cfg.FinalMask.Grade)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
	if cfg.Paths.ProjectsRoot != "/srv/projects" {
		t.Fatalf("unexpected projects root %q", cfg.Paths.ProjectsRoot)
	}
}

func TestLoadYAMLByExtension(t *testing.T) {
	t.Setenv(config.SiteEnv, "")
	path := filepath.Join(t.TempDir(), "maskpack.yaml")
	content := `patterns:
  dataprep: 'prep$'
ledger:
  durable: false
archive:
  extensions: ["zip", ".TGZ", ".tgz"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Patterns.Dataprep != "prep$" {
		t.Fatalf("expected yaml dataprep pattern, got %q", cfg.Patterns.Dataprep)
	}
	if cfg.Ledger.Durable {
		t.Fatal("expected durable=false from yaml")
	}
	if strings.Join(cfg.Archive.Extensions, ",") != ".zip,.tgz" {
		t.Fatalf("unexpected normalized extensions %v", cfg.Archive.Extensions)
	}
	if cfg.Patterns.MaskName != config.Default().Patterns.MaskName {
		t.Fatal("fields absent from yaml must keep their defaults")
	}
}

func TestSiteFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maskpack.toml")
	content := `[patterns.sites.secret]
revision = 'R[0-9]{3}$'
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(config.SiteEnv, "secret")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Site != "secret" || cfg.PatternSet().Revision != `R[0-9]{3}$` {
		t.Fatalf("expected site override from env, got site=%q revision=%q", cfg.Site, cfg.PatternSet().Revision)
	}

	t.Setenv(config.SiteEnv, "unknown")
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected unknown site error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"empty pattern":   func(c *config.Config) { c.Patterns.Dataprep = "" },
		"invalid pattern": func(c *config.Config) { c.Patterns.FinalMask = "([" },
		"grade":           func(c *config.Config) { c.FinalMask.Grade = "M S" },
		"template path":   func(c *config.Config) { c.FinalMask.TemplateDir = "a/b" },
		"checklist base":  func(c *config.Config) { c.Checklist.BaseName = "../x" },
		"log format":      func(c *config.Config) { c.Logging.Format = "xml" },
		"log level":       func(c *config.Config) { c.Logging.Level = "trace" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	t.Setenv(config.SiteEnv, "")
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.PatternSet() != def.PatternSet() {
		t.Fatal("sample patterns must match defaults")
	}
	if len(cfg.Checklist.Items) != len(config.Default().Checklist.Items) {
		t.Fatalf("unexpected checklist items %v", cfg.Checklist.Items)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Paths.HistoryDB)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
