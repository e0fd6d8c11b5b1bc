// Package tokenize turns transcripts into fixed-length token id sequences.
//
// Subword wraps github.com/sugarme/tokenizer. It loads either a BERT-style
// vocab.txt (one token per line, the line number is the id) or a Hugging Face
// tokenizer.json, and produces [CLS] ... [SEP] sequences padded with [PAD] to
// the requested length together with an attention mask.
package tokenize
