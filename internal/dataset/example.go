package dataset

import (
	"context"
	"errors"
)

var (
	// ErrInvalidFold reports a fold outside [-1, NumFolds).
	ErrInvalidFold = errors.New("dataset: invalid validation fold")
	// ErrInvalidMode reports a run mode other than train, valid or test.
	ErrInvalidMode = errors.New("dataset: invalid mode")
	// ErrIndexOutOfRange reports an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("dataset: index out of range")
	// ErrPartialExample reports a partial example handed to Collate.
	ErrPartialExample = errors.New("dataset: partial example")
	// ErrRaggedBatch reports examples whose tensors differ in length.
	ErrRaggedBatch = errors.New("dataset: examples differ in length")
)

// Example is one model-ready segment. Partial examples carry only SegmentID
// and the Partial flag; every other field is the zero value. Slices are shared with the
// accessor cache and must be treated as read-only.
type Example struct {
	SegmentID    string
	Corpus       string
	Partial      bool
	SamplingRate int
	Wav          []float32
	// WavMask is nil when the waveform is untruncated.
	WavMask []int8
	Text    string
	// InputIDs and TextMask are nil when no tokenizer is configured.
	InputIDs []int64
	TextMask []int8
	Bio      map[string]float32
	// Label is the single-label index, or the hard vote in multilabel mode.
	Label int
	// Probs is the normalized vote vector in multilabel mode.
	Probs   []float64
	Valence float32
	Arousal float32
	Gender  int
}

func partialExample(segmentID string) Example {
	return Example{SegmentID: segmentID, Partial: true}
}

// Source is an indexable, length-queryable collection of examples.
type Source interface {
	Name() string
	Len() int
	Get(ctx context.Context, i int) (Example, error)
}
