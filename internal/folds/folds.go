// Package folds partitions corpus sessions into contiguous cross-validation
// folds and filters annotation tables by fold and run mode.
package folds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
)

// DefaultNumFolds is the fold count used by the corpora.
const DefaultNumFolds = 5

// All selects every session.
const All Fold = -1

var (
	// ErrInvalidFoldCount reports a session or fold count that cannot be partitioned.
	ErrInvalidFoldCount = errors.New("folds: invalid fold count")
	// ErrInvalidFold reports a fold outside [-1, numFolds).
	ErrInvalidFold = errors.New("folds: invalid fold")
	// ErrInvalidMode reports an unknown run mode.
	ErrInvalidMode = errors.New("folds: invalid mode")
)

// Fold identifies one partition, or All.
type Fold int

// Mode selects which side of a fold a split keeps.
type Mode string

const (
	Train Mode = "train"
	Valid Mode = "valid"
	Test  Mode = "test"
)

// ParseMode accepts train, valid or test in any case.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case Train:
		return Train, nil
	case Valid:
		return Valid, nil
	case Test:
		return Test, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
	}
}

// Range is an inclusive span of 1-based session numbers.
type Range struct {
	Start int
	End   int
}

// Contains reports whether session lies in the range.
func (r Range) Contains(session int) bool {
	return session >= r.Start && session <= r.End
}

// Len returns the number of sessions in the range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// GetFolds splits sessions 1..numSessions into numFolds contiguous ranges in
// order. When the split is uneven the first numSessions%numFolds folds hold
// one extra session.
func GetFolds(numSessions, numFolds int) (map[Fold]Range, error) {
	if numFolds <= 0 || numSessions < numFolds {
		return nil, fmt.Errorf("%w: %d sessions into %d folds", ErrInvalidFoldCount, numSessions, numFolds)
	}
	size, extra := numSessions/numFolds, numSessions%numFolds
	out := make(map[Fold]Range, numFolds)
	start := 1
	for i := 0; i < numFolds; i++ {
		n := size
		if i < extra {
			n++
		}
		out[Fold(i)] = Range{Start: start, End: start + n - 1}
		start += n
	}
	return out, nil
}

// Validate checks fold against numFolds. All is always valid.
func Validate(fold Fold, numFolds int) error {
	if fold == All {
		return nil
	}
	if fold < 0 || int(fold) >= numFolds {
		return fmt.Errorf("%w: %d (want -1 or 0..%d)", ErrInvalidFold, fold, numFolds-1)
	}
	return nil
}

// Keeps reports whether a session in the given fold range belongs to mode.
// Train keeps sessions outside the range; every other mode keeps sessions
// inside it.
func Keeps(r Range, mode Mode, session int) bool {
	if mode == Train {
		return !r.Contains(session)
	}
	return r.Contains(session)
}

// Membership returns the mode that owns session when fold is held out.
func Membership(numSessions, numFolds int, fold Fold, session int) (Mode, error) {
	ranges, err := GetFolds(numSessions, numFolds)
	if err != nil {
		return "", err
	}
	if err := Validate(fold, numFolds); err != nil {
		return "", err
	}
	if fold == All || !ranges[fold].Contains(session) {
		return Train, nil
	}
	return Valid, nil
}

// SessionParser extracts the session number of a segment.
type SessionParser interface {
	NumSessions() int
	Session(segmentID string) (int, error)
}

// Split returns the records of table that belong to mode when fold is held
// out. All returns every record unchanged. A record whose segment id cannot
// be parsed is an error.
func Split(table annotation.Table, parser SessionParser, fold Fold, numFolds int, mode Mode) ([]annotation.Record, error) {
	if err := Validate(fold, numFolds); err != nil {
		return nil, err
	}
	if fold == All {
		return table.Records, nil
	}
	ranges, err := GetFolds(parser.NumSessions(), numFolds)
	if err != nil {
		return nil, err
	}
	r := ranges[fold]
	out := make([]annotation.Record, 0, len(table.Records))
	for _, rec := range table.Records {
		session, err := parser.Session(rec.SegmentID)
		if err != nil {
			return nil, err
		}
		if Keeps(r, mode, session) {
			out = append(out, rec)
		}
	}
	return out, nil
}
