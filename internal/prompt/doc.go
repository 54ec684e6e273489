// Package prompt asks the engineer to pick one folder when the resolver finds
// several equally valid candidates. Terminals get an arrow-key picker built on
// bubbletea; pipes and scripts get a numbered line prompt.
package prompt
