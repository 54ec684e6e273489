package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"maskpack/internal/history"
	"maskpack/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	if err := store.StartRun(ctx, "run-1", "/p/ABC123", "eng", "/arch/run_050326-090000.lr", started); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.SetFolders(ctx, "run-1", history.Folders{
		MaskName: "/p/ABC123", Revision: "/p/ABC123/REV02", Dataprep: "/p/ABC123/REV02/dataprep",
		FinalMask: "/p/ABC123/REV02/dataprep/secret", SyntheticFinalMask: true,
	}); err != nil {
		t.Fatalf("SetFolders: %v", err)
	}
	for _, a := range []history.Archive{
		{RunID: "run-1", Target: "review", Path: "/p/x.tgz", Files: 3, Bytes: 100},
		{RunID: "run-1", Target: "vendor", Path: "/p/y.tar.gz", ErrorMessage: "disk full"},
	} {
		if err := store.AddArchive(ctx, a); err != nil {
			t.Fatalf("AddArchive: %v", err)
		}
	}
	if err := store.FinishRun(ctx, "run-1", "/arch/run_050326-090000.pdf", "", started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.StatusClosed || run.User != "eng" || !run.SyntheticFinalMask {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.LedgerPath != "/arch/run_050326-090000.pdf" {
		t.Fatalf("expected ledger path updated, got %s", run.LedgerPath)
	}
	if !run.StartedAt.Equal(started) || run.FinishedAt == nil || !run.FinishedAt.Equal(started.Add(time.Minute)) {
		t.Fatalf("unexpected times %v %v", run.StartedAt, run.FinishedAt)
	}

	archives, err := store.Archives(ctx, "run-1")
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(archives) != 2 || archives[0].Target != "review" || !archives[0].OK() || archives[1].OK() {
		t.Fatalf("unexpected archives %+v", archives)
	}
}

func TestFailedRunAndListing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(ctx, id, "/p", "", "", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}
	if err := store.FinishRun(ctx, "b", "", "unrecognized launch location", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[1].Status != history.StatusFailed || runs[1].ErrorMessage == "" {
		t.Fatalf("expected failed run, got %+v", runs[1])
	}
	if runs[0].Status != history.StatusOpen || runs[0].FinishedAt != nil {
		t.Fatalf("expected open run, got %+v", runs[0])
	}
}

func TestUnknownRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "missing", "", "", time.Now()); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.StartRun(context.Background(), "x", "/p", "", "", time.Now()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), "x"); err != nil {
		t.Fatalf("GetRun after reopen: %v", err)
	}
}
