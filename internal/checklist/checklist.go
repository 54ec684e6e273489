package checklist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"maskpack/internal/document"
)

const (
	// TextExt is the extension of the plain-text checklist record.
	TextExt = ".lrc"
	// PDFExt is the extension of the locked, rendered record.
	PDFExt = ".pdf"
	// DocsDirName is the revision subfolder that holds checklist records.
	DocsDirName = "docs"

	headerTimeLayout = "2006-01-02 15:04:05"
	lockedMode       = 0o444
)

// ErrNoItems is returned when there is nothing to record.
var ErrNoItems = errors.New("checklist has no items")

// Item is one checklist entry.
type Item struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// State renders the checked flag as written in the record.
func (i Item) State() string {
	if i.Checked {
		return "Checked"
	}
	return "Unchecked"
}

// NewItems returns unchecked items for names, in order, skipping blanks.
func NewItems(names []string) []Item {
	items := make([]Item, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		items = append(items, Item{Name: name})
	}
	return items
}

// Check marks every item whose name matches one of names (case-insensitive)
// and returns the names that matched nothing.
func Check(items []Item, names ...string) []string {
	var unknown []string
	for _, name := range names {
		found := false
		for i := range items {
			if strings.EqualFold(items[i].Name, strings.TrimSpace(name)) {
				items[i].Checked = true
				found = true
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// RenderFunc converts the text record into a document.
type RenderFunc func(src, dest string, opts document.Options) (string, error)

// Options controls Save.
type Options struct {
	BaseName    string
	RunID       string
	User        string
	ToolVersion string
	Now         time.Time
	Render      RenderFunc
}

// Result describes the saved record.
type Result struct {
	Version int    `json:"version"`
	Path    string `json:"path"`
	Locked  bool   `json:"locked"`
}

// Save writes <revision>/docs/<base>_v<N>.lrc, where N is one past the highest
// version already present as either text or PDF, renders it to PDF with the
// run id in the footer, removes the text file and locks the PDF read-only.
// If rendering fails the text record is kept and returned with the error.
func Save(revisionDir string, items []Item, opts Options) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrNoItems
	}
	if strings.TrimSpace(opts.BaseName) == "" {
		return Result{}, fmt.Errorf("checklist base name is empty")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	render := opts.Render
	if render == nil {
		render = document.RenderFile
	}

	docs := filepath.Join(revisionDir, DocsDirName)
	if err := os.MkdirAll(docs, 0o755); err != nil {
		return Result{}, fmt.Errorf("create %s: %w", docs, err)
	}
	version, err := document.NextVersion(docs, opts.BaseName, TextExt, PDFExt)
	if err != nil {
		return Result{}, err
	}
	stem := filepath.Join(docs, fmt.Sprintf("%s_v%d", opts.BaseName, version))
	textPath := stem + TextExt

	if err := os.WriteFile(textPath, []byte(format(items, opts, version, now)), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", textPath, err)
	}
	result := Result{Version: version, Path: textPath}

	footer := ""
	if opts.RunID != "" {
		footer = "RUID: " + opts.RunID
	}
	pdfPath, err := render(textPath, stem+PDFExt, document.Options{
		Title:  filepath.Base(stem),
		Footer: footer,
	})
	if err != nil {
		return result, fmt.Errorf("render checklist: %w", err)
	}
	result.Path = pdfPath
	if err := os.Remove(textPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove %s: %w", textPath, err)
	}
	if err := os.Chmod(pdfPath, lockedMode); err != nil {
		return result, fmt.Errorf("lock %s: %w", pdfPath, err)
	}
	result.Locked = true
	return result, nil
}

func format(items []Item, opts Options, version int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checklist: %s v%d\n", opts.BaseName, version)
	fmt.Fprintf(&b, "Saved: %s\n", now.Format(headerTimeLayout))
	if opts.User != "" {
		fmt.Fprintf(&b, "User: %s\n", opts.User)
	}
	if opts.ToolVersion != "" {
		fmt.Fprintf(&b, "Tool: maskpack %s\n", opts.ToolVersion)
	}
	if opts.RunID != "" {
		fmt.Fprintf(&b, "RUID: %s\n", opts.RunID)
	}
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s: %s\n", item.Name, item.State())
	}
	return b.String()
}
