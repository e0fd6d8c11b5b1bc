// Package annotation owns the normalized per-corpus annotation table and its
// on-disk CSV cache.
//
// The Merger asks a RawSource (a corpus adapter) for merged raw records,
// optionally expands vote strings into per-category counts, and persists the
// result so later runs skip the raw tables. ValidateCache classifies an
// existing cache as valid, stale or missing; stale caches are rebuilt.
package annotation
