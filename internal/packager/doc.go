// Package packager turns a resolved final-mask folder into its two
// deliverables: an internal review archive written next to it in dataprep and
// a vendor archive written inside it under the vendor naming convention.
//
// Both builds always run; a failure in one never prevents the other. Results
// are returned in a Manifest rather than as errors so callers can record each
// outcome in the run ledger.
package packager
