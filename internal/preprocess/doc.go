// Package preprocess materializes encoded datasets on disk.
//
// Run pulls examples from a dataset.Source in fixed-size batches, replaces
// raw waveforms and transcripts with encoder outputs and masks, and writes
// the result as Arrow IPC shards plus metadata.json under a directory named
// by the configuration fingerprint. A later Run with the same fingerprint
// opens the existing directory instead of recomputing it.
//
// Encoders are pluggable: FeatureExtractor and TokenizerEncoder run
// in-process, HTTPEncoder delegates both modalities to a remote service.
// Batches may be encoded by several workers but are always written in source
// order; a single worker is the documented safe setting.
package preprocess
