package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	bodySize   = 11
	lineHeight = 6
)

// Options controls how a text document is rendered.
type Options struct {
	// Title is stored in the PDF metadata.
	Title string
	// Footer is printed centered at the bottom of every page, e.g. "RUID: <id>".
	Footer string
}

// RenderFile renders the text file at src into a PDF at dest. When dest
// cannot be written because of permissions (an earlier, locked copy) the
// next free versioned name in the same folder is used. The path actually
// written is returned.
func RenderFile(src, dest string, opts Options) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	return Render(in, dest, opts)
}

// Render writes the lines read from r into a PDF at dest.
func Render(r io.Reader, dest string, opts Options) (string, error) {
	pdf := newPDF(opts)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			pdf.Ln(lineHeight)
			continue
		}
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read document text: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("layout pdf: %w", err)
	}

	path, err := writePDF(pdf, dest)
	if err != nil && errors.Is(err, os.ErrPermission) {
		ext := filepath.Ext(dest)
		base := versionBase(strings.TrimSuffix(filepath.Base(dest), ext))
		fallback, verr := NextVersionedPath(filepath.Dir(dest), base, ext)
		if verr != nil {
			return "", verr
		}
		return writePDF(pdf, fallback)
	}
	return path, err
}

func newPDF(opts Options) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreator("maskpack", false)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, false)
	}
	if opts.Footer != "" {
		pdf.SetSubject(opts.Footer, false)
		footer := pdf.UnicodeTranslatorFromDescriptor("")(opts.Footer)
		pdf.SetFooterFunc(func() {
			pdf.SetY(-15)
			pdf.SetFont(fontFamily, "I", 8)
			pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
		})
	}
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", bodySize)
	return pdf
}

func writePDF(pdf *fpdf.Fpdf, dest string) (string, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if err := pdf.Output(out); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}

var versionSuffix = regexp.MustCompile(`_v[0-9]+$`)

func versionBase(name string) string {
	return versionSuffix.ReplaceAllString(name, "")
}

// NextVersion returns one more than the highest N among files in dir named
// <base>_v<N> followed by any of exts. A missing directory counts as no
// versions.
func NextVersion(dir, base string, exts ...string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 1, nil
		}
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	prefix := base + "_v"
	highest := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		for _, ext := range exts {
			if !strings.HasSuffix(rest, ext) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSuffix(rest, ext))
			if err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest + 1, nil
}

// NextVersionedPath returns dir/<base>_v<N><ext> with N from NextVersion,
// counting existing files with ext.
func NextVersionedPath(dir, base, ext string, alsoCount ...string) (string, error) {
	n, err := NextVersion(dir, base, append([]string{ext}, alsoCount...)...)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s_v%d%s", base, n, ext)), nil
}
