package packager

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Target names which of the two archives a result describes.
type Target string

const (
	TargetReview Target = "review"
	TargetVendor Target = "vendor"
)

// ExcludeFunc reports whether a file (path relative to the archive root)
// should be left out of the archive.
type ExcludeFunc func(rel string) bool

// ExcludeSuffix excludes every file whose name ends in one of suffixes.
func ExcludeSuffix(suffixes ...string) ExcludeFunc {
	return func(rel string) bool {
		for _, suffix := range suffixes {
			if strings.HasSuffix(rel, suffix) {
				return true
			}
		}
		return false
	}
}

// ArchiveResult is the outcome of one archive build.
type ArchiveResult struct {
	Target   Target `json:"target"`
	Source   string `json:"source"`
	Path     string `json:"path"`
	Files    int    `json:"files"`
	Excluded int    `json:"excluded"`
	Bytes    int64  `json:"bytes"`
	Message  string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

// OK reports whether the archive was written.
func (r ArchiveResult) OK() bool {
	return r.Err == nil
}

// BuildArchive writes a gzip-compressed tar of every file below src to dest.
// Entry names are relative to src. dest itself is never added even when it
// lives inside src. On failure the partial archive is removed and the error
// (wrapping ErrArchiveWrite) is stored in the result.
func BuildArchive(ctx context.Context, src, dest string, exclude ExcludeFunc) ArchiveResult {
	result := ArchiveResult{Source: src, Path: dest}
	if err := writeArchive(ctx, src, dest, exclude, &result); err != nil {
		_ = os.Remove(dest)
		result.Files = 0
		result.Bytes = 0
		result.Err = fmt.Errorf("%w: %s: %w", ErrArchiveWrite, dest, err)
		result.Message = result.Err.Error()
		return result
	}
	if info, err := os.Stat(dest); err == nil {
		result.Bytes = info.Size()
	}
	return result
}

func writeArchive(ctx context.Context, src, dest string, exclude ExcludeFunc, result *ArchiveResult) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", src)
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == destAbs {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if exclude != nil && exclude(rel) {
			result.Excluded++
			return nil
		}
		added, err := addEntry(tw, path, rel, entry)
		if err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
		if added {
			result.Files++
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

// addEntry writes one regular file or symlink. Sockets, devices and pipes
// are skipped.
func addEntry(tw *tar.Writer, path, rel string, entry fs.DirEntry) (bool, error) {
	info, err := entry.Info()
	if err != nil {
		return false, err
	}
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return false, err
		}
	} else if !info.Mode().IsRegular() {
		return false, nil
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return false, err
	}
	header.Name = rel
	if err := tw.WriteHeader(header); err != nil {
		return false, err
	}
	if header.Typeflag != tar.TypeReg {
		return true, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()
	if _, err := io.Copy(tw, file); err != nil {
		return false, err
	}
	return true, nil
}
