package packager

import "errors"

var (
	// ErrArchiveWrite wraps every failure to produce an archive.
	ErrArchiveWrite = errors.New("archive write failed")
	// ErrNoArchive is returned when a handoff folder holds no archive.
	ErrNoArchive = errors.New("no archive found")
	// ErrMultipleArchives is returned when a handoff folder holds more than one archive.
	ErrMultipleArchives = errors.New("more than one archive found")
)
