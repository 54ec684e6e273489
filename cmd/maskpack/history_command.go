package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"maskpack/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past maskpack runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					formatTime(run.StartedAt),
					string(run.Status),
					folderName(run.MaskName),
					folderName(run.Revision),
					folderName(run.FinalMask),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Run", "Started", "Status", "Mask", "Revision", "Final mask"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

type runDetail struct {
	history.Run
	Archives []history.Archive `json:"archives"`
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := expandRunID(cmd, store, args[0])
			if err != nil {
				return err
			}
			run, err := store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			archives, err := store.Archives(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				if archives == nil {
					archives = []history.Archive{}
				}
				return writeJSON(cmd, runDetail{Run: *run, Archives: archives})
			}

			finished := "-"
			if run.FinishedAt != nil {
				finished = formatTime(*run.FinishedAt)
			}
			fields := [][2]string{
				{"Run", run.ID},
				{"Status", string(run.Status)},
				{"User", run.User},
				{"Launch directory", run.LaunchDir},
				{"Mask name", run.MaskName},
				{"Revision", run.Revision},
				{"Dataprep", run.Dataprep},
				{"Final mask", run.FinalMask},
				{"Secret fallback", yesNo(run.SyntheticFinalMask)},
				{"Ledger", run.LedgerPath},
				{"Started", formatTime(run.StartedAt)},
				{"Finished", finished},
			}
			if run.ErrorMessage != "" {
				fields = append(fields, [2]string{"Error", run.ErrorMessage})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields(fields))
			if len(archives) > 0 {
				rows := make([][]string, 0, len(archives))
				for _, a := range archives {
					result := "ok"
					if !a.OK() {
						result = a.ErrorMessage
					}
					rows = append(rows, []string{a.Target, a.Path, strconv.Itoa(a.Files), formatBytes(a.Bytes), result})
				}
				fmt.Fprintln(out, renderTable([]string{"Target", "Path", "Files", "Size", "Result"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.HistoryDB) == "" {
		return nil, errors.New("run history is disabled (paths.history_db is empty)")
	}
	return history.Open(cfg.Paths.HistoryDB)
}

// expandRunID accepts a full run id or a unique prefix of one.
func expandRunID(cmd *cobra.Command, store *history.Store, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if _, err := store.GetRun(cmd.Context(), prefix); err == nil {
		return prefix, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			matches = append(matches, run.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", history.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id prefix %q is ambiguous (%d runs)", prefix, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func folderName(path string) string {
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}
