package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"maskpack/internal/checklist"
	"maskpack/internal/session"
	"maskpack/internal/topology"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var createFinal bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve the project, build both archives and close the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.startSession(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			topo, err := s.Resolve(runCtx)
			if err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			fmt.Fprintln(out, renderTopology(topo))

			if topo.SyntheticFinalMask && createFinal {
				res, err := s.CreateFinalMask(runCtx)
				if err != nil {
					return closeWithError(runCtx, cmd, s, err)
				}
				fmt.Fprintln(out, renderStatusLine("Final mask folder", statusOK, res.Path, colorize))
			}
			return packageAndClose(runCtx, cmd, s)
		},
	}
	cmd.Flags().BoolVar(&createFinal, "create-final-folder", false, "Create today's final mask folder from the template when none exists")
	return cmd
}

func newPackageCommand(ctx *commandContext) *cobra.Command {
	var inPlace bool

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build the review and vendor archives",
		Long: "Build the review archive (<dataprep>/<final mask>.tgz) and the vendor archive\n" +
			"(<final mask>/0<MASK>_<REV>_<NN>.tar.gz). With --in-place the launch directory\n" +
			"must be the dataprep or a final mask folder.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.startSession(cmd)
			if err != nil {
				return err
			}
			var topo topology.Topology
			if inPlace {
				topo, err = s.ResolveInPlace(runCtx)
			} else {
				topo, err = s.Resolve(runCtx)
			}
			if err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTopology(topo))
			return packageAndClose(runCtx, cmd, s)
		},
	}
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Use the launch directory as dataprep or final mask without a full resolve")
	return cmd
}

func newFinalFolderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "final-folder",
		Short: "Create today's final mask folder from the dataprep template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.startSession(cmd)
			if err != nil {
				return err
			}
			if _, err := s.Resolve(runCtx); err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			res, err := s.CreateFinalMask(runCtx)
			if err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Final mask folder", statusOK, fmt.Sprintf("%s (%d files from %s)", res.Path, res.Files, res.Template), colorize))
			printLedger(out, s.Close(runCtx, nil), colorize)
			return nil
		},
	}
}

func newChecklistCommand(ctx *commandContext) *cobra.Command {
	var checked []string
	var all bool

	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Record the order checklist in the revision docs folder",
		Long: "Record the configured checklist items as a versioned, read-only PDF in\n" +
			"<revision>/docs. Items named with --check (or every item with --all) are\n" +
			"recorded as Checked, the rest as Unchecked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			items := checklist.NewItems(cfg.Checklist.Items)
			if all {
				for i := range items {
					items[i].Checked = true
				}
			}
			if unknown := checklist.Check(items, checked...); len(unknown) > 0 {
				return fmt.Errorf("unknown checklist item(s): %s", strings.Join(unknown, ", "))
			}

			s, runCtx, err := ctx.startSession(cmd)
			if err != nil {
				return err
			}
			if _, err := s.Resolve(runCtx); err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			res, err := s.SaveChecklist(items)
			if err != nil {
				return closeWithError(runCtx, cmd, s, err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, item := range items {
				kind := statusWarn
				if item.Checked {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(item.Name, kind, item.State(), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Checklist", statusOK, fmt.Sprintf("v%d %s", res.Version, res.Path), colorize))
			printLedger(out, s.Close(runCtx, nil), colorize)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&checked, "check", nil, "Checklist item to mark as checked (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Mark every checklist item as checked")
	return cmd
}

func packageAndClose(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	manifest, err := s.Package(ctx)
	if err != nil {
		return closeWithError(ctx, cmd, s, err)
	}
	printManifest(out, manifest, colorize)

	runErr := manifest.Err()
	printLedger(out, s.Close(ctx, runErr), colorize)
	if runErr != nil {
		return fmt.Errorf("packaging failed: %w", runErr)
	}
	return nil
}

func closeWithError(ctx context.Context, cmd *cobra.Command, s *session.Session, err error) error {
	out := cmd.OutOrStdout()
	printLedger(out, s.Close(ctx, err), shouldColorize(out))
	return err
}
