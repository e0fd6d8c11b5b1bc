package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
)

var (
	// ErrUnknownCorpus reports a corpus name with no registered adapter.
	ErrUnknownCorpus = errors.New("corpus: unknown corpus")
	// ErrMalformedSegmentID reports a segment identifier the adapter cannot parse.
	ErrMalformedSegmentID = errors.New("corpus: malformed segment id")
)

// Identifier is a parsed segment identifier.
type Identifier struct {
	SegmentID    string
	SessionToken string
	Session      int
	Script       string
	Speaker      string
	Gender       string
	// MediaPrefix is the directory holding <segment_id>.wav and .txt.
	MediaPrefix string
}

// GenderIndex returns the numeric gender class, or -1 when unknown.
func (id Identifier) GenderIndex() int {
	return emotion.GenderIndex(id.Gender)
}

// WavPath returns the waveform location of the segment.
func (id Identifier) WavPath() string {
	return filepath.Join(id.MediaPrefix, id.SegmentID+".wav")
}

// TextPath returns the transcript location of the segment.
func (id Identifier) TextPath() string {
	return filepath.Join(id.MediaPrefix, id.SegmentID+".txt")
}

// Adapter describes one annotated corpus.
type Adapter interface {
	annotation.RawSource
	Root() string
	NumSessions() int
	TextEncoding() string
	Session(segmentID string) (int, error)
	Parse(segmentID string) (Identifier, error)
}

// Settings configures an adapter. Zero values fall back to the corpus
// defaults.
type Settings struct {
	Root         string
	NumSessions  int
	TextEncoding string
	Logger       *slog.Logger
}

type factory func(Settings) Adapter

var registry = map[string]factory{
	KEMDy19Name: func(s Settings) Adapter { return newKEMDy19(s) },
	KEMDy20Name: func(s Settings) Adapter { return newKEMDy20(s) },
}

// New returns the adapter registered under name.
func New(name string, settings Settings) (Adapter, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownCorpus, name, strings.Join(Names(), ", "))
	}
	return build(settings), nil
}

// Names lists registered corpus names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SessionNumber extracts the session from the first '_'-separated token of
// segmentID, which must end in two digits (Sess01 -> 1).
func SessionNumber(segmentID string) (int, string, error) {
	token, _, _ := strings.Cut(segmentID, "_")
	if len(token) < 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedSegmentID, segmentID)
	}
	session, err := strconv.Atoi(token[len(token)-2:])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q: session suffix is not numeric", ErrMalformedSegmentID, segmentID)
	}
	return session, token, nil
}

// base carries the settings shared by every adapter.
type base struct {
	name        string
	root        string
	numSessions int
	encoding    string
	layout      layout
	logger      *slog.Logger
}

func (b *base) Name() string         { return b.name }
func (b *base) Root() string         { return b.root }
func (b *base) NumSessions() int     { return b.numSessions }
func (b *base) TextEncoding() string { return b.encoding }

func (b *base) Session(segmentID string) (int, error) {
	session, _, err := SessionNumber(segmentID)
	return session, err
}

func newBase(name string, s Settings, sessions int, encoding string, l layout) base {
	logger := logging.NewComponentLogger(s.Logger, "corpus").With(
		logging.String(logging.FieldCorpus, name),
	)
	b := base{
		name:        name,
		root:        s.Root,
		numSessions: s.NumSessions,
		encoding:    strings.ToLower(strings.TrimSpace(s.TextEncoding)),
		layout:      l,
		logger:      logger,
	}
	if b.numSessions <= 0 {
		b.numSessions = sessions
	}
	if b.encoding == "" {
		b.encoding = encoding
	}
	return b
}
