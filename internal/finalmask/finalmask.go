package finalmask

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"maskpack/internal/fileutil"
	"maskpack/internal/topology"
)

// DateLayout formats the order date in folder names, e.g. 05Mar26.
const DateLayout = "02Jan06"

var (
	// ErrFolderExists is returned when today's final mask folder is already there.
	ErrFolderExists = errors.New("final mask folder already exists")
	// ErrMissingTemplate is returned when the template folder is absent.
	ErrMissingTemplate = errors.New("template folder not found")
)

// FolderName builds the final mask folder name for an order placed on day.
func FolderName(maskNameDir, grade string, day time.Time) string {
	upper := cases.Upper(language.Und)
	return upper.String(filepath.Base(maskNameDir)) + "_" + upper.String(strings.TrimSpace(grade)) + "_" + day.Format(DateLayout)
}

// Options controls Create.
type Options struct {
	Grade       string
	TemplateDir string
	Now         time.Time
}

// Result describes a created folder.
type Result struct {
	Path     string
	Template string
	Files    int
}

// Create copies Dataprep/<TemplateDir> into a new final mask folder next to it.
func Create(topo topology.Topology, opts Options) (Result, error) {
	if topo.Dataprep == "" || topo.MaskName == "" {
		return Result{}, fmt.Errorf("create final mask folder: topology is not resolved")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	template := filepath.Join(topo.Dataprep, opts.TemplateDir)
	info, err := os.Stat(template)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingTemplate, template)
	}

	dest := filepath.Join(topo.Dataprep, FolderName(topo.MaskName, opts.Grade, now))
	files, err := fileutil.CopyTree(template, dest)
	if err != nil {
		if errors.Is(err, fileutil.ErrDestinationExists) {
			return Result{}, fmt.Errorf("%w: %s", ErrFolderExists, dest)
		}
		_ = os.RemoveAll(dest)
		return Result{}, fmt.Errorf("copy %s to %s: %w", template, dest, err)
	}
	return Result{Path: dest, Template: template, Files: files}, nil
}
