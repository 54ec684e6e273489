// Package fileutil copies project folders with verified copies and sweeps
// editor swap files out of them.
package fileutil
