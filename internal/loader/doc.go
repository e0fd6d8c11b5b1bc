// Package loader turns an application Config into ready-to-use pipeline
// objects.
//
// It resolves corpus adapters, ensures each normalized annotation cache,
// builds accessors (concatenated when dataset.corpora joins several names
// with '-'), loads the optional tokenizer and selects the local or
// HTTP encoders used by the batch preprocessor. Commands in cmd/erc go
// through a Loader rather than wiring packages by hand.
package loader
