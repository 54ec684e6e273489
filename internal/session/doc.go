// Package session runs one maskpack session: it checks the launch directory,
// opens the run ledger and history entry, resolves the project folders,
// builds the archives and writes every step to the ledger before finalizing
// it on Close.
package session
