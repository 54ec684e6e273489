package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SwapSuffix marks editor swap files left behind in project folders.
const SwapSuffix = ".swp"

// ErrDestinationExists is returned by CopyTree when dst is already present.
var ErrDestinationExists = errors.New("destination already exists")

// CopyTree copies the directory src to dst, which must not exist yet.
// Regular files are copied with CopyFileVerified and keep their permission
// bits; symlinks are recreated as links. It returns the number of files copied.
func CopyTree(src, dst string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return 0, fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("stat destination: %w", err)
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		entryInfo, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, entryInfo.Mode().Perm()|0o700)
		case entryInfo.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case entryInfo.Mode().IsRegular():
			if err := CopyFileVerified(path, target); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			copied++
			return os.Chmod(target, entryInfo.Mode().Perm())
		default:
			return nil
		}
	})
	if err != nil {
		return copied, err
	}
	return copied, nil
}

// FindFiles returns every regular file below root whose name ends in suffix,
// in lexical order.
func FindFiles(root, suffix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), suffix) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// RemoveSwapFiles deletes editor swap files below root and returns the paths
// it removed. Removal stops at the first failure.
func RemoveSwapFiles(root string) ([]string, error) {
	files, err := FindFiles(root, SwapSuffix)
	if err != nil {
		return nil, fmt.Errorf("find swap files: %w", err)
	}
	removed := make([]string, 0, len(files))
	for _, path := range files {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
