// Package document renders plain-text records (run ledgers, checklists) into
// PDF files with a run-identifier footer, and picks versioned file names so a
// locked earlier copy is never overwritten.
package document
