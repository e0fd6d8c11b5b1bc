package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	lru "github.com/hashicorp/golang-lru"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/audio"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/corpus"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/tokenize"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/transcript"
)

// devFraction is the share of a partition kept when NumData is out of range.
const devFraction = 0.05

// Options configures an Accessor.
type Options struct {
	Fold     folds.Fold
	NumFolds int
	Mode     folds.Mode
	// MaxLengthWav pads or truncates waveforms; 0 keeps them untruncated.
	MaxLengthWav  int
	MaxLengthText int
	// Tokenizer is optional; without one Example.Text carries the raw string.
	Tokenizer   tokenize.Tokenizer
	ReturnBio   bool
	Multilabel  bool
	RemoveDeuce bool
	// Centroids replaces the corpus' built-in tie-break centroids.
	Centroids *emotion.CentroidTable
	// NumData keeps a prefix of the partition for fast development runs.
	NumData   *int
	CacheSize int
	Logger    *slog.Logger
}

// Accessor serves the examples of one corpus partition.
type Accessor struct {
	adapter  corpus.Adapter
	records  []annotation.Record
	opts     Options
	resolver emotion.Resolver
	cache    *lru.Cache
	logger   *slog.Logger
}

// New validates opts, partitions table and returns an accessor over the
// selected records.
func New(adapter corpus.Adapter, table annotation.Table, opts Options) (*Accessor, error) {
	if adapter == nil {
		return nil, errors.New("dataset: accessor requires a corpus adapter")
	}
	if opts.NumFolds <= 0 {
		opts.NumFolds = folds.DefaultNumFolds
	}
	if err := folds.Validate(opts.Fold, opts.NumFolds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFold, err)
	}
	if opts.Mode == "" {
		opts.Mode = folds.Train
	}
	mode, err := folds.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMode, err)
	}
	opts.Mode = mode
	if opts.MaxLengthWav < 0 || opts.MaxLengthText < 0 {
		return nil, errors.New("dataset: max lengths must be non-negative")
	}
	if opts.Tokenizer != nil && opts.MaxLengthText < 2 {
		return nil, errors.New("dataset: max_length_txt must be at least 2 with a tokenizer")
	}

	if opts.Multilabel && !table.Multilabel {
		expanded := annotation.Table{
			Corpus:  table.Corpus,
			Records: append([]annotation.Record(nil), table.Records...),
		}
		expanded.ExpandVotes()
		table = expanded
	}

	records, err := folds.Split(table, adapter, opts.Fold, opts.NumFolds, opts.Mode)
	if err != nil {
		return nil, err
	}
	if opts.RemoveDeuce {
		kept := make([]annotation.Record, 0, len(records))
		for _, rec := range records {
			if !emotion.IsDisputed(rec.Emotion) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}
	if opts.NumData != nil {
		records = records[:prefixLen(*opts.NumData, len(records))]
	}

	var cache *lru.Cache
	if opts.CacheSize > 0 {
		cache, err = lru.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("example cache: %w", err)
		}
	}

	logger := logging.NewComponentLogger(opts.Logger, "dataset").With(
		logging.String(logging.FieldCorpus, adapter.Name()),
		logging.Int(logging.FieldFold, int(opts.Fold)),
		logging.String(logging.FieldMode, string(opts.Mode)),
	)
	resolver := emotion.NewResolver(adapter.Name())
	if opts.Centroids != nil {
		resolver = emotion.NewResolverWithCentroids(adapter.Name(), *opts.Centroids)
	}

	logger.Debug("accessor ready",
		logging.Int("examples", len(records)),
		logging.Bool("multilabel", opts.Multilabel),
		logging.Bool("remove_deuce", opts.RemoveDeuce),
	)

	return &Accessor{
		adapter:  adapter,
		records:  records,
		opts:     opts,
		resolver: resolver,
		cache:    cache,
		logger:   logger,
	}, nil
}

// prefixLen returns n when it indexes into the partition, otherwise a share
// of size rounded half to even.
func prefixLen(n, size int) int {
	if n >= 0 && n < size {
		return n
	}
	return int(math.RoundToEven(devFraction * float64(size)))
}

// Name returns the corpus name.
func (a *Accessor) Name() string {
	return a.adapter.Name()
}

// Len returns the number of examples in the partition.
func (a *Accessor) Len() int {
	return len(a.records)
}

// Record returns the annotation backing index i.
func (a *Accessor) Record(i int) (annotation.Record, error) {
	if i < 0 || i >= len(a.records) {
		return annotation.Record{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(a.records))
	}
	return a.records[i], nil
}

// Get loads example i. Missing waveform or transcript files produce a partial
// example and a warning instead of an error.
func (a *Accessor) Get(ctx context.Context, i int) (Example, error) {
	rec, err := a.Record(i)
	if err != nil {
		return Example{}, err
	}
	if err := ctx.Err(); err != nil {
		return Example{}, err
	}
	if a.cache != nil {
		if cached, ok := a.cache.Get(rec.SegmentID); ok {
			return cached.(Example), nil
		}
	}

	ex, err := a.load(rec)
	if err != nil {
		return Example{}, err
	}
	if a.cache != nil {
		a.cache.Add(rec.SegmentID, ex)
	}
	return ex, nil
}

func (a *Accessor) load(rec annotation.Record) (Example, error) {
	id, err := a.adapter.Parse(rec.SegmentID)
	if err != nil {
		return Example{}, err
	}

	wavPath, txtPath := id.WavPath(), id.TextPath()
	for _, path := range []string{wavPath, txtPath} {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Example{}, fmt.Errorf("stat media: %w", err)
			}
			logging.WarnWithContext(a.logger, "segment media missing; returning partial example", "missing_media",
				logging.String(logging.FieldSegmentID, rec.SegmentID),
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "check the corpus wav directory layout"),
				logging.String(logging.FieldImpact, "example carries only its segment id"),
			)
			return partialExample(rec.SegmentID), nil
		}
	}

	ex := Example{
		SegmentID: rec.SegmentID,
		Corpus:    a.adapter.Name(),
		Valence:   float32(rec.Valence),
		Arousal:   float32(rec.Arousal),
		Gender:    id.GenderIndex(),
	}
	if err := loadWaveform(&ex, wavPath, a.opts.MaxLengthWav); err != nil {
		return Example{}, err
	}

	text, err := transcript.Read(txtPath, a.adapter.TextEncoding())
	if err != nil {
		return Example{}, fmt.Errorf("segment %s: %w", rec.SegmentID, err)
	}
	if err := encodeText(&ex, text, a.opts.Tokenizer, a.opts.MaxLengthText); err != nil {
		return Example{}, err
	}

	if a.opts.ReturnBio {
		ex.Bio = make(map[string]float32, len(annotation.BioSignals))
		for _, signal := range annotation.BioSignals {
			if iv, ok := rec.Bio[signal]; ok && iv.Valid {
				ex.Bio[string(signal)] = float32(iv.Midpoint())
			}
		}
	}

	ex.Label, ex.Probs = a.labels(rec)
	return ex, nil
}

// labels resolves the single-label index, or the vote vector and its hard
// vote in multilabel mode.
func (a *Accessor) labels(rec annotation.Record) (int, []float64) {
	if !a.opts.Multilabel {
		return a.resolver.Index(rec.Emotion), nil
	}
	probs, err := emotion.Vectorize(rec.Votes[:])
	if err != nil {
		return emotion.Unmappable, nil
	}
	return a.resolver.HardVote(probs, rec.Valence, rec.Arousal), probs
}

func loadWaveform(ex *Example, path string, maxLen int) error {
	wave, err := audio.Load(path)
	if err != nil {
		return fmt.Errorf("segment %s: %w", ex.SegmentID, err)
	}
	ex.SamplingRate = wave.SampleRate
	ex.Wav, ex.WavMask = audio.Pad(wave.Samples, maxLen)
	return nil
}

func encodeText(ex *Example, text string, tok tokenize.Tokenizer, maxLen int) error {
	ex.Text = text
	if tok == nil {
		return nil
	}
	enc, err := tok.Encode(text, maxLen)
	if err != nil {
		return fmt.Errorf("segment %s: tokenize: %w", ex.SegmentID, err)
	}
	ex.InputIDs = enc.InputIDs
	ex.TextMask = enc.AttentionMask
	return nil
}
