// Package topology locates the four canonical folders of a photomask project
// (mask name, revision, dataprep, final mask) around a launch directory.
//
// Classification is a prefix match of the folder name against one configured
// expression per role, tried in a fixed order. The Resolver then walks up or
// down the tree from the classified folder, falls back to Dataprep/secret when
// no final-mask folder exists yet, and hands every ambiguous candidate set to a
// Chooser instead of guessing. The resulting Topology value is the single
// source of truth for the packager, ledger, and CLI.
package topology
