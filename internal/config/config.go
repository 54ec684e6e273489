package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectsRoot  string `toml:"projects_root" yaml:"projects_root"`
	RunArchiveDir string `toml:"run_archive_dir" yaml:"run_archive_dir"`
	LogDir        string `toml:"log_dir" yaml:"log_dir"`
	HistoryDB     string `toml:"history_db" yaml:"history_db"`
}

// PatternSet holds one folder-name expression per project role.
type PatternSet struct {
	MaskName  string `toml:"mask_name" yaml:"mask_name"`
	Revision  string `toml:"revision" yaml:"revision"`
	Dataprep  string `toml:"dataprep" yaml:"dataprep"`
	FinalMask string `toml:"final_mask" yaml:"final_mask"`
}

// Patterns contains the default pattern set plus per-site overrides.
type Patterns struct {
	MaskName  string                `toml:"mask_name" yaml:"mask_name"`
	Revision  string                `toml:"revision" yaml:"revision"`
	Dataprep  string                `toml:"dataprep" yaml:"dataprep"`
	FinalMask string                `toml:"final_mask" yaml:"final_mask"`
	Sites     map[string]PatternSet `toml:"sites" yaml:"sites"`
}

// Ledger contains run ledger settings.
type Ledger struct {
	// Durable renders the ledger to PDF when the run is finalized.
	Durable bool `toml:"durable" yaml:"durable"`
}

// Archive contains archive discovery settings.
type Archive struct {
	Extensions []string `toml:"extensions" yaml:"extensions"`
}

// FinalMask contains settings for creating final-mask folders.
type FinalMask struct {
	Grade       string `toml:"grade" yaml:"grade"`
	TemplateDir string `toml:"template_dir" yaml:"template_dir"`
}

// Checklist contains the sign-off checklist settings.
type Checklist struct {
	BaseName string   `toml:"base_name" yaml:"base_name"`
	Items    []string `toml:"items" yaml:"items"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Config encapsulates all configuration values for maskpack.
//
// Configuration sections:
//   - Paths: projects root, run archive, logs and history database
//   - Patterns: folder-name expressions per role, with site overrides
//   - Ledger: run ledger finalization
//   - Archive: extensions recognized as deliverable archives
//   - FinalMask: grade and template folder for new final-mask folders
//   - Checklist: sign-off checklist items
//   - Logging: log format, level, and retention
type Config struct {
	Site      string    `toml:"site" yaml:"site"`
	Paths     Paths     `toml:"paths" yaml:"paths"`
	Patterns  Patterns  `toml:"patterns" yaml:"patterns"`
	Ledger    Ledger    `toml:"ledger" yaml:"ledger"`
	Archive   Archive   `toml:"archive" yaml:"archive"`
	FinalMask FinalMask `toml:"final_mask" yaml:"final_mask"`
	Checklist Checklist `toml:"checklist" yaml:"checklist"`
	Logging   Logging   `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Files ending in .yaml or .yml are read as YAML;
// everything else is TOML.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := decode(file, resolvedPath, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decode(r io.Reader, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err := yaml.NewDecoder(r).Decode(cfg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	default:
		return toml.NewDecoder(r).Decode(cfg)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and the parent of the history
// database. The run archive is created by the ledger on first use.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.HistoryDB) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PatternSet returns the folder patterns in effect: the defaults, with every
// non-empty field of the selected site's overrides applied on top.
func (c *Config) PatternSet() PatternSet {
	set := PatternSet{
		MaskName:  c.Patterns.MaskName,
		Revision:  c.Patterns.Revision,
		Dataprep:  c.Patterns.Dataprep,
		FinalMask: c.Patterns.FinalMask,
	}
	site, ok := c.Patterns.Sites[c.Site]
	if c.Site == "" || !ok {
		return set
	}
	if site.MaskName != "" {
		set.MaskName = site.MaskName
	}
	if site.Revision != "" {
		set.Revision = site.Revision
	}
	if site.Dataprep != "" {
		set.Dataprep = site.Dataprep
	}
	if site.FinalMask != "" {
		set.FinalMask = site.FinalMask
	}
	return set
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
