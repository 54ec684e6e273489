// Package ledger keeps the per-run audit record: a uniquely named text file
// in the run archive that starts with the run identifier and receives one
// timestamped line per significant event. Finalizing optionally renders it to
// a PDF and always leaves the artifact read-only.
package ledger
