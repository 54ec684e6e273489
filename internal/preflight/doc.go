// Package preflight provides readiness checks for the launch directory and
// the filesystem paths maskpack depends on.
//
// These checks run in two contexts:
//   - Every session calls CheckLaunchDirectory before touching the project
//     tree, so a run started in the wrong place stops early.
//   - The CLI "maskpack config validate" command uses RunAll to display the
//     state of the run archive, log and history directories.
package preflight
