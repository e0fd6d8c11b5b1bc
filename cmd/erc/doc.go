// Package main hosts the erc CLI entrypoint and command graph.
//
// The Cobra command tree covers the dataset lifecycle: merging raw
// annotation tables into normalized caches, inspecting folds and examples,
// summarizing corpora, materializing encoded datasets and maintaining the
// materialization catalog. Configuration resolution and logger setup live in
// the shared command context so subcommands only deal with presentation.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
