// Package config loads, normalizes, and validates maskpack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files (or YAML when the file ends in .yaml/.yml), and
// honours the MASKPACK_SITE environment fallback that selects a site's folder
// patterns. The Config type centralizes every knob the CLI needs so the
// resolver, packager, and ledger are built from one validated value.
package config
