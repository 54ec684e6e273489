package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePatterns(); err != nil {
		return err
	}
	if err := c.validateFinalMask(); err != nil {
		return err
	}
	if err := c.validateChecklist(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePatterns() error {
	if c.Site != "" {
		if _, ok := c.Patterns.Sites[c.Site]; !ok {
			return fmt.Errorf("site %q has no [patterns.sites.%s] table (known sites: %s)", c.Site, c.Site, strings.Join(c.siteNames(), ", "))
		}
	}
	set := c.PatternSet()
	for _, field := range []struct {
		key   string
		value string
	}{
		{"patterns.mask_name", set.MaskName},
		{"patterns.revision", set.Revision},
		{"patterns.dataprep", set.Dataprep},
		{"patterns.final_mask", set.FinalMask},
	} {
		if field.value == "" {
			return fmt.Errorf("%s must be set", field.key)
		}
		if _, err := regexp.Compile("^(?:" + field.value + ")"); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) siteNames() []string {
	names := make([]string, 0, len(c.Patterns.Sites))
	for name := range c.Patterns.Sites {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return []string{"none"}
	}
	return names
}

var gradePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

func (c *Config) validateFinalMask() error {
	if !gradePattern.MatchString(c.FinalMask.Grade) {
		return fmt.Errorf("final_mask.grade %q must be letters and digits only", c.FinalMask.Grade)
	}
	if strings.ContainsAny(c.FinalMask.TemplateDir, `/\`) {
		return errors.New("final_mask.template_dir must be a folder name inside dataprep, not a path")
	}
	return nil
}

func (c *Config) validateChecklist() error {
	if strings.ContainsAny(c.Checklist.BaseName, `/\`) {
		return errors.New("checklist.base_name must not contain path separators")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}
