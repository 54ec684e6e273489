package checklist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"maskpack/internal/document"
	"maskpack/internal/testsupport"
)

// captureRender copies the text record so tests can read it after Save
// removes it, then writes a stand-in PDF.
func captureRender(captured *string) RenderFunc {
	return func(src, dest string, _ document.Options) (string, error) {
		data, err := os.ReadFile(src)
		if err != nil {
			return "", err
		}
		*captured = string(data)
		return dest, os.WriteFile(dest, []byte("%PDF"), 0o644)
	}
}

func TestSaveWritesVersionedLockedRecord(t *testing.T) {
	p := testsupport.NewProject(t)
	items := NewItems([]string{"Layout checked", " ", "Jobdeck reviewed"})
	if unknown := Check(items, "layout CHECKED", "nope"); len(unknown) != 1 || unknown[0] != "nope" {
		t.Fatalf("unexpected unknown names %v", unknown)
	}

	var text string
	res, err := Save(p.Revision, items, Options{
		BaseName:    "LR_Checklist",
		RunID:       "run-1",
		User:        "eng",
		ToolVersion: "1.2.0",
		Now:         time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
		Render:      captureRender(&text),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := filepath.Join(p.Revision, "docs", "LR_Checklist_v1.pdf")
	if res.Path != want || res.Version != 1 || !res.Locked {
		t.Fatalf("unexpected result %+v", res)
	}
	info, err := os.Stat(want)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o444 {
		t.Fatalf("expected read-only pdf, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(strings.TrimSuffix(want, PDFExt) + TextExt); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected text record removed, got %v", err)
	}
	for _, line := range []string{
		"Saved: 2026-03-05 10:00:00",
		"User: eng",
		"Tool: maskpack 1.2.0",
		"Layout checked: Checked",
		"Jobdeck reviewed: Unchecked",
	} {
		if !strings.Contains(text, line) {
			t.Fatalf("record missing %q:\n%s", line, text)
		}
	}
}

func TestSaveVersionCountsTextAndPDF(t *testing.T) {
	p := testsupport.NewProject(t)
	docs := filepath.Join(p.Revision, "docs")
	testsupport.WriteText(t, filepath.Join(docs, "LR_Checklist_v2.pdf"), "")
	testsupport.WriteText(t, filepath.Join(docs, "LR_Checklist_v4.lrc"), "")
	testsupport.WriteText(t, filepath.Join(docs, "Other_v9.pdf"), "")

	var text string
	res, err := Save(p.Revision, NewItems([]string{"a"}), Options{BaseName: "LR_Checklist", Render: captureRender(&text)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Version != 5 {
		t.Fatalf("expected version 5, got %d", res.Version)
	}
}

func TestSaveKeepsTextWhenRenderFails(t *testing.T) {
	p := testsupport.NewProject(t)
	boom := errors.New("no fonts")
	res, err := Save(p.Revision, NewItems([]string{"a"}), Options{
		BaseName: "LR_Checklist",
		Render: func(string, string, document.Options) (string, error) {
			return "", boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
	if filepath.Ext(res.Path) != TextExt {
		t.Fatalf("expected text record path, got %s", res.Path)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("expected text record kept: %v", err)
	}
}

func TestSaveRendersRealPDF(t *testing.T) {
	p := testsupport.NewProject(t)
	res, err := Save(p.Revision, NewItems([]string{"Layout checked"}), Options{BaseName: "LR_Checklist", RunID: "abc"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Fatal("expected a PDF document")
	}
}

func TestSaveRejectsEmptyChecklist(t *testing.T) {
	if _, err := Save(t.TempDir(), nil, Options{BaseName: "x"}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}
