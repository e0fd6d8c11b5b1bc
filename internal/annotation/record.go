package annotation

import (
	"context"
	"errors"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

var (
	// ErrMissingInput reports that the raw annotation tables needed to
	// (re)build a cache are absent.
	ErrMissingInput = errors.New("annotation: raw annotation input missing")
	// ErrEmptyCache reports a cache or rebuilt table with no usable rows.
	ErrEmptyCache = errors.New("annotation: cache is empty")
	// ErrCacheLocked reports that another process holds the cache write lock.
	ErrCacheLocked = errors.New("annotation: cache is locked by another writer")
)

// BioSignal names a physiological signal recorded alongside a segment.
type BioSignal string

const (
	BioECG  BioSignal = "ecg"
	BioEDA  BioSignal = "e4-eda"
	BioTemp BioSignal = "e4-temp"
)

// BioSignals lists the physiological signals in cache column order.
var BioSignals = []BioSignal{BioECG, BioEDA, BioTemp}

// Interval is a start/end timestamp pair. Valid is false when the raw table
// left the pair blank.
type Interval struct {
	Start float64
	End   float64
	Valid bool
}

// Midpoint returns the average of start and end.
func (i Interval) Midpoint() float64 {
	return (i.Start + i.End) / 2
}

// Record is one annotated utterance segment.
type Record struct {
	Numb      string
	SegmentID string
	// Emotion holds a single category or a ';'-joined vote string.
	Emotion string
	Valence float64
	Arousal float64
	Wav     Interval
	Bio     map[BioSignal]Interval
	// Votes is populated for multilabel tables only.
	Votes [emotion.NumCategories]float64
}

// Table is the normalized annotation table of one corpus.
type Table struct {
	Corpus     string
	Multilabel bool
	Records    []Record
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// ExpandVotes fills Votes from each record's raw emotion field and marks the
// table as multilabel.
func (t *Table) ExpandVotes() {
	for i := range t.Records {
		votes, _ := emotion.ParseVotes(t.Records[i].Emotion)
		t.Records[i].Votes = votes
	}
	t.Multilabel = true
}

// RawSource produces the merged raw records of one corpus.
type RawSource interface {
	Name() string
	MergeRaw(ctx context.Context, root string) ([]Record, error)
}
