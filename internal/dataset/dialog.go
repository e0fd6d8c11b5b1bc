package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	lru "github.com/hashicorp/golang-lru"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/tokenize"
)

// DialogName is the registry name of the AI-Hub dialogue corpus.
const DialogName = "aihub"

// Default split parameters of the dialogue corpus.
const (
	DefaultTrainRatio = 0.8
	DefaultSeed       = 42
)

// Splitter draws a reproducible train/valid split.
type Splitter struct {
	rng *rand.Rand
}

// NewSplitter returns a splitter seeded with seed.
func NewSplitter(seed int64) *Splitter {
	return &Splitter{rng: rand.New(rand.NewSource(seed))}
}

// Split samples int(total*ratio) indices for training and returns the rest
// for validation. Both slices are sorted ascending.
func (s *Splitter) Split(total int, ratio float64) ([]int, []int) {
	if total <= 0 {
		return nil, nil
	}
	perm := s.rng.Perm(total)
	n := int(float64(total) * ratio)
	if n < 0 {
		n = 0
	}
	if n > total {
		n = total
	}
	train := append([]int(nil), perm[:n]...)
	valid := append([]int(nil), perm[n:]...)
	sort.Ints(train)
	sort.Ints(valid)
	return train, valid
}

// dialogRow is the first row of an AI-Hub annotation file.
type dialogRow struct {
	Text      string `csv:"txt"`
	SegmentID string `csv:"segment_id"`
	Emotion   string `csv:"emotion"`
}

// DialogOptions configures a Dialog source.
type DialogOptions struct {
	Root          string
	Mode          folds.Mode
	TrainRatio    float64
	Seed          int64
	MaxLengthWav  int
	MaxLengthText int
	Tokenizer     tokenize.Tokenizer
	NumData       *int
	CacheSize     int
	Logger        *slog.Logger
}

type dialogItem struct {
	annotationPath string
	wavPath        string
}

// Dialog serves the auxiliary AI-Hub dialogue corpus. It has no valence or
// arousal ratings; both are reported as zero.
type Dialog struct {
	items  []dialogItem
	opts   DialogOptions
	cache  *lru.Cache
	logger *slog.Logger
}

// NewDialog pairs the sorted annotation/*.csv and wav/*.wav files under
// opts.Root and keeps the side of the seeded split selected by opts.Mode.
func NewDialog(opts DialogOptions) (*Dialog, error) {
	if opts.Mode == "" {
		opts.Mode = folds.Train
	}
	mode, err := folds.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMode, err)
	}
	if mode == folds.Test {
		return nil, fmt.Errorf("%w: the dialogue corpus only splits into train and valid", ErrInvalidMode)
	}
	opts.Mode = mode
	if opts.TrainRatio <= 0 || opts.TrainRatio >= 1 {
		opts.TrainRatio = DefaultTrainRatio
	}

	annotations, err := filepath.Glob(filepath.Join(opts.Root, "annotation", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list dialogue annotations: %w", err)
	}
	waves, err := filepath.Glob(filepath.Join(opts.Root, "wav", "*.wav"))
	if err != nil {
		return nil, fmt.Errorf("list dialogue waveforms: %w", err)
	}
	if len(annotations) == 0 {
		return nil, fmt.Errorf("%w: no annotation files under %s", annotation.ErrMissingInput, opts.Root)
	}
	if len(annotations) != len(waves) {
		return nil, fmt.Errorf("dialogue corpus: %d annotation files but %d waveforms", len(annotations), len(waves))
	}
	sort.Strings(annotations)
	sort.Strings(waves)

	train, valid := NewSplitter(opts.Seed).Split(len(annotations), opts.TrainRatio)
	indices := train
	if mode == folds.Valid {
		indices = valid
	}
	items := make([]dialogItem, 0, len(indices))
	for _, idx := range indices {
		items = append(items, dialogItem{annotationPath: annotations[idx], wavPath: waves[idx]})
	}
	if opts.NumData != nil {
		items = items[:prefixLen(*opts.NumData, len(items))]
	}

	var cache *lru.Cache
	if opts.CacheSize > 0 {
		if cache, err = lru.New(opts.CacheSize); err != nil {
			return nil, fmt.Errorf("example cache: %w", err)
		}
	}
	logger := logging.NewComponentLogger(opts.Logger, "dataset").With(
		logging.String(logging.FieldCorpus, DialogName),
		logging.String(logging.FieldMode, string(mode)),
	)
	logger.Debug("dialogue split ready",
		logging.Int("total", len(annotations)),
		logging.Int("examples", len(items)),
		logging.Int64("seed", opts.Seed),
	)
	return &Dialog{items: items, opts: opts, cache: cache, logger: logger}, nil
}

// Name returns DialogName.
func (d *Dialog) Name() string {
	return DialogName
}

// Len returns the number of dialogue examples on this side of the split.
func (d *Dialog) Len() int {
	return len(d.items)
}

// Get loads dialogue example i.
func (d *Dialog) Get(ctx context.Context, i int) (Example, error) {
	if i < 0 || i >= len(d.items) {
		return Example{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(d.items))
	}
	if err := ctx.Err(); err != nil {
		return Example{}, err
	}
	item := d.items[i]
	if d.cache != nil {
		if cached, ok := d.cache.Get(item.annotationPath); ok {
			return cached.(Example), nil
		}
	}

	row, err := readDialogRow(item.annotationPath)
	if err != nil {
		return Example{}, err
	}
	if _, err := os.Stat(item.wavPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Example{}, fmt.Errorf("stat media: %w", err)
		}
		logging.WarnWithContext(d.logger, "dialogue waveform missing; returning partial example", "missing_media",
			logging.String(logging.FieldSegmentID, row.SegmentID),
			logging.String("path", item.wavPath),
		)
		return partialExample(row.SegmentID), nil
	}

	ex := Example{
		SegmentID: row.SegmentID,
		Corpus:    DialogName,
		Label:     emotion.Index(row.Emotion),
		Gender:    emotion.Unmappable,
	}
	if err := loadWaveform(&ex, item.wavPath, d.opts.MaxLengthWav); err != nil {
		return Example{}, err
	}
	if err := encodeText(&ex, strings.TrimSpace(row.Text), d.opts.Tokenizer, d.opts.MaxLengthText); err != nil {
		return Example{}, err
	}
	if d.cache != nil {
		d.cache.Add(item.annotationPath, ex)
	}
	return ex, nil
}

func readDialogRow(path string) (dialogRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dialogRow{}, fmt.Errorf("read dialogue annotation: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	var rows []*dialogRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return dialogRow{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return dialogRow{}, fmt.Errorf("dialogue annotation %s has no rows", path)
	}
	row := *rows[0]
	row.SegmentID = strings.TrimSpace(row.SegmentID)
	if row.SegmentID == "" {
		row.SegmentID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return row, nil
}
