// Package audio loads utterance waveforms and shapes them for batching.
//
// Load decodes PCM WAV files into mono float32 samples in [-1, 1]; Pad
// truncates or zero-pads a waveform to a fixed length and returns the
// matching attention mask. Summarize reports level statistics used for
// normalization and corpus inspection.
package audio
