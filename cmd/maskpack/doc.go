// Package main hosts the maskpack CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into sessions: resolve
// the project folders around the launch directory, build the review and
// vendor archives, create the final mask folder, record the checklist, and
// finalize the run ledger. Configuration loading, logger setup and the
// candidate chooser are resolved once per invocation in commandContext so the
// subcommands stay small.
package main
