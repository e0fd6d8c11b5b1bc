package dataset

import (
	"context"
	"fmt"
)

// Batch is a column-oriented group of complete examples.
type Batch struct {
	SegmentIDs   []string
	Corpora      []string
	SamplingRate []int
	Wav          [][]float32
	WavMask      [][]int8
	Texts        []string
	InputIDs     [][]int64
	TextMask     [][]int8
	Labels       []int
	Probs        [][]float64
	Valence      []float32
	Arousal      []float32
	Gender       []int
}

// Len returns the number of examples in the batch.
func (b Batch) Len() int {
	return len(b.SegmentIDs)
}

// Collate stacks examples into a batch. Partial examples are rejected with
// ErrPartialExample; fixed-length fields must agree across the batch.
func Collate(examples []Example) (Batch, error) {
	n := len(examples)
	b := Batch{
		SegmentIDs:   make([]string, 0, n),
		Corpora:      make([]string, 0, n),
		SamplingRate: make([]int, 0, n),
		Wav:          make([][]float32, 0, n),
		WavMask:      make([][]int8, 0, n),
		Texts:        make([]string, 0, n),
		InputIDs:     make([][]int64, 0, n),
		TextMask:     make([][]int8, 0, n),
		Labels:       make([]int, 0, n),
		Probs:        make([][]float64, 0, n),
		Valence:      make([]float32, 0, n),
		Arousal:      make([]float32, 0, n),
		Gender:       make([]int, 0, n),
	}
	for i, ex := range examples {
		if ex.Partial {
			return Batch{}, fmt.Errorf("%w: %s at position %d", ErrPartialExample, ex.SegmentID, i)
		}
		if i > 0 {
			first := examples[0]
			if ex.WavMask != nil && first.WavMask != nil && len(ex.Wav) != len(first.Wav) {
				return Batch{}, fmt.Errorf("%w: wav %d vs %d at %s", ErrRaggedBatch, len(ex.Wav), len(first.Wav), ex.SegmentID)
			}
			if len(ex.InputIDs) != len(first.InputIDs) {
				return Batch{}, fmt.Errorf("%w: input ids %d vs %d at %s", ErrRaggedBatch, len(ex.InputIDs), len(first.InputIDs), ex.SegmentID)
			}
		}
		b.SegmentIDs = append(b.SegmentIDs, ex.SegmentID)
		b.Corpora = append(b.Corpora, ex.Corpus)
		b.SamplingRate = append(b.SamplingRate, ex.SamplingRate)
		b.Wav = append(b.Wav, ex.Wav)
		b.WavMask = append(b.WavMask, ex.WavMask)
		b.Texts = append(b.Texts, ex.Text)
		b.InputIDs = append(b.InputIDs, ex.InputIDs)
		b.TextMask = append(b.TextMask, ex.TextMask)
		b.Labels = append(b.Labels, ex.Label)
		b.Probs = append(b.Probs, ex.Probs)
		b.Valence = append(b.Valence, ex.Valence)
		b.Arousal = append(b.Arousal, ex.Arousal)
		b.Gender = append(b.Gender, ex.Gender)
	}
	return b, nil
}

// FilterComplete drops partial examples and reports how many were dropped.
func FilterComplete(examples []Example) ([]Example, int) {
	kept := make([]Example, 0, len(examples))
	for _, ex := range examples {
		if !ex.Partial {
			kept = append(kept, ex)
		}
	}
	return kept, len(examples) - len(kept)
}

// Slice loads examples [start, end) of src in order.
func Slice(ctx context.Context, src Source, start, end int) ([]Example, error) {
	if start < 0 || end > src.Len() || start > end {
		return nil, fmt.Errorf("%w: [%d, %d) not within [0, %d)", ErrIndexOutOfRange, start, end, src.Len())
	}
	out := make([]Example, 0, end-start)
	for i := start; i < end; i++ {
		ex, err := src.Get(ctx, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}
