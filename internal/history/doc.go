// Package history keeps a SQLite index of past maskpack runs: where each run
// started, the folders it resolved, the archives it built and where its
// ledger ended up. The index is a convenience for `maskpack history`; the run
// ledger stays the authoritative record.
package history
