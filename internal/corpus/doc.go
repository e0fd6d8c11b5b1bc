// Package corpus holds the per-corpus adapters of the annotated speech
// corpora.
//
// An adapter knows three things the rest of the pipeline must not hard-code:
// how the corpus lays out its raw per-session annotation tables, how a
// segment identifier encodes session, speaker and gender, and where the
// segment's waveform and transcript live on disk. Adapters are obtained from
// the registry by name ("kemdy19", "kemdy20") and satisfy
// annotation.RawSource so the merger can rebuild their normalized caches.
package corpus
