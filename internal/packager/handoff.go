package packager

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// DefaultArchiveExtensions are recognized when no extensions are configured.
var DefaultArchiveExtensions = []string{".tar.gz", ".tgz", ".tar"}

// FindArchives lists the archive files directly inside dir, sorted by name.
func FindArchives(fs afero.Fs, dir string, extensions []string) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(extensions) == 0 {
		extensions = DefaultArchiveExtensions
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		for _, ext := range extensions {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				out = append(out, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// VendorHandoff returns the single archive in dir that is ready to be sent to
// the mask vendor.
func VendorHandoff(fs afero.Fs, dir string, extensions []string) (string, error) {
	archives, err := FindArchives(fs, dir, extensions)
	if err != nil {
		return "", err
	}
	switch len(archives) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoArchive, dir)
	case 1:
		return archives[0], nil
	default:
		names := make([]string, len(archives))
		for i, a := range archives {
			names[i] = filepath.Base(a)
		}
		return "", fmt.Errorf("%w in %s: %s", ErrMultipleArchives, dir, strings.Join(names, ", "))
	}
}
