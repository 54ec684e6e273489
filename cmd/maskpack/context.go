package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"maskpack/internal/config"
	"maskpack/internal/logging"
	"maskpack/internal/prompt"
	"maskpack/internal/session"
	"maskpack/internal/topology"
)

type commandContext struct {
	configFlag *string
	dirFlag    *string
	firstFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
	prunedLogs int
}

func newCommandContext(configFlag, dirFlag *string, firstFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		dirFlag:    dirFlag,
		firstFlag:  firstFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// ensureLogger builds the run logger and prunes expired daily log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		now := time.Now()
		c.prunedLogs = logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.DailyLogPath(cfg.Paths.LogDir, now), now)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// launchDir returns --dir or the working directory, made absolute.
func (c *commandContext) launchDir() (string, error) {
	dir := ""
	if c.dirFlag != nil {
		dir = strings.TrimSpace(*c.dirFlag)
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return wd, nil
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func (c *commandContext) chooser(cmd *cobra.Command) topology.Chooser {
	if c.firstFlag != nil && *c.firstFlag {
		return prompt.First{}
	}
	return prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())
}

func (c *commandContext) patterns() (topology.Patterns, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return topology.Patterns{}, err
	}
	return session.Patterns(cfg)
}

// startSession opens a session rooted at the launch directory.
func (c *commandContext) startSession(cmd *cobra.Command) (*session.Session, context.Context, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	dir, err := c.launchDir()
	if err != nil {
		return nil, nil, err
	}
	return session.Start(cmd.Context(), session.Options{
		Config:    cfg,
		LaunchDir: dir,
		Chooser:   c.chooser(cmd),
		Logger:    logger,
		Version:   version,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
