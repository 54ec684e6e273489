package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePatterns()
	c.normalizeArchive()
	c.normalizeFinalMask()
	c.normalizeChecklist()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ProjectsRoot, err = expandPath(strings.TrimSpace(c.Paths.ProjectsRoot)); err != nil {
		return fmt.Errorf("paths.projects_root: %w", err)
	}
	if c.Paths.RunArchiveDir, err = expandPath(strings.TrimSpace(c.Paths.RunArchiveDir)); err != nil {
		return fmt.Errorf("paths.run_archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizePatterns() {
	c.Site = strings.TrimSpace(c.Site)
	if c.Site == "" {
		if value, ok := os.LookupEnv(SiteEnv); ok {
			c.Site = strings.TrimSpace(value)
		}
	}
	c.Patterns.MaskName = strings.TrimSpace(c.Patterns.MaskName)
	c.Patterns.Revision = strings.TrimSpace(c.Patterns.Revision)
	c.Patterns.Dataprep = strings.TrimSpace(c.Patterns.Dataprep)
	c.Patterns.FinalMask = strings.TrimSpace(c.Patterns.FinalMask)
}

func (c *Config) normalizeArchive() {
	exts := make([]string, 0, len(c.Archive.Extensions))
	seen := make(map[string]struct{}, len(c.Archive.Extensions))
	for _, ext := range c.Archive.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultArchiveExtensions...)
	}
	c.Archive.Extensions = exts
}

func (c *Config) normalizeFinalMask() {
	c.FinalMask.Grade = strings.ToUpper(strings.TrimSpace(c.FinalMask.Grade))
	if c.FinalMask.Grade == "" {
		c.FinalMask.Grade = defaultGrade
	}
	c.FinalMask.TemplateDir = strings.TrimSpace(c.FinalMask.TemplateDir)
	if c.FinalMask.TemplateDir == "" {
		c.FinalMask.TemplateDir = defaultTemplateDir
	}
}

func (c *Config) normalizeChecklist() {
	c.Checklist.BaseName = strings.TrimSpace(c.Checklist.BaseName)
	if c.Checklist.BaseName == "" {
		c.Checklist.BaseName = defaultChecklistBase
	}
	items := c.Checklist.Items[:0]
	for _, item := range c.Checklist.Items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	c.Checklist.Items = items
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
