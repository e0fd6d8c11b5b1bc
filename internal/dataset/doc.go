// Package dataset exposes annotated corpora as indexable example sources.
//
// An Accessor wraps one corpus adapter and its normalized annotation table:
// it applies the fold split, deuce filtering and the development prefix once
// at construction, then loads waveform, transcript and labels lazily per
// index. Missing media yields a partial example rather than an error, and
// callers either skip partial examples or use FilterComplete before Collate.
//
// Concat stitches several sources into one global index space, and Dialog
// serves the auxiliary AI-Hub dialogue corpus with a seeded train/valid split.
package dataset
