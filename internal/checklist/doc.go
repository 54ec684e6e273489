// Package checklist records the engineer's order checklist as a versioned,
// read-only document in the revision's docs folder.
package checklist
