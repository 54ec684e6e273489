package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"maskpack/internal/fileutil"
	"maskpack/internal/logging"
	"maskpack/internal/packager"
	"maskpack/internal/topology"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the project folders around the launch directory",
		Long:  "Resolve the mask name, revision, dataprep and final mask folders without\nwriting a run ledger.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := ctx.resolve(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, topo)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTopology(topo))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type archiveRow struct {
	Path     string    `json:"path"`
	Bytes    int64     `json:"bytes"`
	Modified time.Time `json:"modified"`
}

type archivesReport struct {
	Dir      string       `json:"dir"`
	Archives []archiveRow `json:"archives"`
	Handoff  string       `json:"handoff,omitempty"`
	Problem  string       `json:"problem,omitempty"`
}

func newArchivesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "archives [dir]",
		Short: "List archives in a folder and check the vendor hand-off",
		Long: "List the archive files directly inside dir (the launch directory by default)\n" +
			"and report whether exactly one archive is ready to send to the mask vendor.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir, err := ctx.launchDir()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if dir, err = filepath.Abs(args[0]); err != nil {
					return err
				}
			}

			fs := afero.NewOsFs()
			paths, err := packager.FindArchives(fs, dir, cfg.Archive.Extensions)
			if err != nil {
				return err
			}
			report := archivesReport{Dir: dir, Archives: []archiveRow{}}
			for _, path := range paths {
				row := archiveRow{Path: path}
				if info, statErr := os.Stat(path); statErr == nil {
					row.Bytes = info.Size()
					row.Modified = info.ModTime()
				}
				report.Archives = append(report.Archives, row)
			}
			handoff, handoffErr := packager.VendorHandoff(fs, dir, cfg.Archive.Extensions)
			if handoffErr != nil {
				report.Problem = handoffErr.Error()
			} else {
				report.Handoff = handoff
			}

			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			if len(report.Archives) > 0 {
				rows := make([][]string, 0, len(report.Archives))
				for _, a := range report.Archives {
					rows = append(rows, []string{filepath.Base(a.Path), formatBytes(a.Bytes), formatTime(a.Modified)})
				}
				fmt.Fprintln(out, renderTable([]string{"Archive", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			colorize := shouldColorize(out)
			switch {
			case handoffErr == nil:
				fmt.Fprintln(out, renderStatusLine("Vendor hand-off", statusOK, filepath.Base(handoff), colorize))
			case errors.Is(handoffErr, packager.ErrMultipleArchives):
				fmt.Fprintln(out, renderStatusLine("Vendor hand-off", statusWarn, report.Problem, colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Vendor hand-off", statusError, report.Problem, colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove editor swap files and expired logs",
		Long: "Remove *.swp editor files below the resolved final mask folder and delete\n" +
			"daily log files older than logging.retention_days.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			topo, err := ctx.resolve(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			removed, err := fileutil.RemoveSwapFiles(topo.FinalMask)
			switch {
			case err != nil && errors.Is(err, os.ErrNotExist) && topo.SyntheticFinalMask:
				fmt.Fprintln(out, renderStatusLine("Swap files", statusInfo, "no final mask folder yet", colorize))
			case err != nil:
				return err
			default:
				for _, path := range removed {
					logger.Info("swap file removed", logging.String("path", path))
				}
				fmt.Fprintln(out, renderStatusLine("Swap files", statusOK, fmt.Sprintf("%d removed from %s", len(removed), topo.FinalMask), colorize))
			}

			now := time.Now()
			pruned := ctx.prunedLogs + logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logging.DailyLogPath(cfg.Paths.LogDir, now), now)
			fmt.Fprintln(out, renderStatusLine("Log files", statusOK, fmt.Sprintf("%d older than %d days removed", pruned, cfg.Logging.RetentionDays), colorize))
			return nil
		},
	}
}

// resolve runs the resolver from the launch directory without a session.
func (c *commandContext) resolve(cmd *cobra.Command) (topology.Topology, error) {
	patterns, err := c.patterns()
	if err != nil {
		return topology.Topology{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return topology.Topology{}, err
	}
	dir, err := c.launchDir()
	if err != nil {
		return topology.Topology{}, err
	}
	resolver := topology.NewResolver(patterns, c.chooser(cmd), topology.WithLogger(logger))
	return resolver.Resolve(cmd.Context(), dir)
}
