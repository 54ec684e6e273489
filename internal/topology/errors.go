package topology

import "errors"

var (
	// ErrUnrecognizedLaunchLocation means the launch folder name matches no
	// configured role. Resolution cannot continue.
	ErrUnrecognizedLaunchLocation = errors.New("unrecognized launch location")
	// ErrMissingExpectedSubdirectory means a one-level descent found no child
	// matching the expected role.
	ErrMissingExpectedSubdirectory = errors.New("missing expected subdirectory")
	// ErrAmbiguousCandidate means several children matched where one was
	// expected. It is surfaced to the Chooser rather than returned, unless no
	// Chooser is configured.
	ErrAmbiguousCandidate = errors.New("ambiguous candidate")
	// ErrNoSelection is returned when the Chooser declines to pick a candidate.
	ErrNoSelection = errors.New("no candidate selected")
)
