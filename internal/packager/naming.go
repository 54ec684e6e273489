package packager

import (
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// VendorExt is the extension of the vendor deliverable.
	VendorExt = ".tar.gz"
	// ReviewExt is the extension of the internal review archive.
	ReviewExt = ".tgz"
	// LockName is the advisory lock file created in dataprep while packaging.
	LockName = ".maskpack.lock"
)

// VendorArchiveName derives the vendor deliverable name from the mask name and
// revision folders: "0" + mask + "_" + first three runes of the revision
// + "_" + the rest, uppercased, with a .tar.gz extension.
// ABC123 and REV02 give 0ABC123_REV_02.tar.gz.
func VendorArchiveName(maskNameDir, revisionDir string) string {
	mask := filepath.Base(maskNameDir)
	rev := filepath.Base(revisionDir)
	prefix, rest := rev, ""
	if r := []rune(rev); len(r) > 3 {
		prefix, rest = string(r[:3]), string(r[3:])
	}
	return cases.Upper(language.Und).String("0"+mask+"_"+prefix+"_"+rest) + VendorExt
}

// ReviewArchiveName is the final-mask folder name with a .tgz extension.
func ReviewArchiveName(finalMaskDir string) string {
	return filepath.Base(finalMaskDir) + ReviewExt
}
