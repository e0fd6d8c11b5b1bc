package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/catalog"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/corpus"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/dataset"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/preprocess"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/tokenize"
)

// Encoder names accepted by preprocess.encoder.
const (
	EncoderLocal = "local"
	EncoderHTTP  = "http"
)

// ErrNoTokenizer reports a local text encoder without a vocabulary.
var ErrNoTokenizer = errors.New("loader: tokenizer.vocab_path is required for the local text encoder")

// Loader builds pipeline components from one configuration.
type Loader struct {
	cfg       *config.Config
	logger    *slog.Logger
	tokenizer tokenize.Tokenizer
}

// New returns a loader for cfg. The tokenizer is loaded eagerly when
// tokenizer.vocab_path is set.
func New(cfg *config.Config, logger *slog.Logger) (*Loader, error) {
	if cfg == nil {
		return nil, errors.New("loader: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loader{cfg: cfg, logger: logger}
	if path := strings.TrimSpace(cfg.Tokenizer.VocabPath); path != "" {
		tok, err := tokenize.Load(path, tokenize.Options{Lowercase: cfg.Tokenizer.Lowercase})
		if err != nil {
			return nil, err
		}
		l.tokenizer = tok
	}
	return l, nil
}

// Config returns the configuration the loader was built with.
func (l *Loader) Config() *config.Config {
	return l.cfg
}

// Tokenizer returns the configured tokenizer, or nil.
func (l *Loader) Tokenizer() tokenize.Tokenizer {
	return l.tokenizer
}

// Adapter returns the corpus adapter for name using its configured root,
// session count and transcript encoding.
func (l *Loader) Adapter(name string) (corpus.Adapter, error) {
	section, ok := l.cfg.Corpus(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", corpus.ErrUnknownCorpus, name)
	}
	return corpus.New(name, corpus.Settings{
		Root:         section.Root,
		NumSessions:  section.NumSessions,
		TextEncoding: section.TextEncoding,
		Logger:       l.logger,
	})
}

// Merger returns the normalized cache manager for corpus name.
func (l *Loader) Merger(name string) (*annotation.Merger, error) {
	adapter, err := l.Adapter(name)
	if err != nil {
		return nil, err
	}
	section, _ := l.cfg.Corpus(name)
	return annotation.NewMerger(adapter, annotation.MergerOptions{
		Root:       adapter.Root(),
		CachePath:  section.CachePath,
		Multilabel: l.cfg.Dataset.Multilabel,
		Logger:     l.logger,
	})
}

// Table returns the normalized annotation table of corpus name, rebuilding
// the cache when needed or when force is set.
func (l *Loader) Table(ctx context.Context, name string, force bool) (annotation.Table, error) {
	merger, err := l.Merger(name)
	if err != nil {
		return annotation.Table{}, err
	}
	return merger.Ensure(ctx, force)
}

// Accessor builds the accessor of one annotated corpus for mode.
func (l *Loader) Accessor(ctx context.Context, name string, mode folds.Mode) (*dataset.Accessor, error) {
	adapter, err := l.Adapter(name)
	if err != nil {
		return nil, err
	}
	centroids, err := l.Centroids(adapter.Name())
	if err != nil {
		return nil, err
	}
	table, err := l.Table(ctx, name, false)
	if err != nil {
		return nil, err
	}
	ds := l.cfg.Dataset
	return dataset.New(adapter, table, dataset.Options{
		Fold:          folds.Fold(ds.ValidationFold),
		NumFolds:      ds.NumFolds,
		Mode:          mode,
		MaxLengthWav:  ds.MaxLengthWav,
		MaxLengthText: ds.MaxLengthText,
		Tokenizer:     l.tokenizer,
		ReturnBio:     ds.ReturnBio,
		Multilabel:    ds.Multilabel,
		RemoveDeuce:   ds.RemoveDeuce,
		Centroids:     centroids,
		NumData:       ds.NumData,
		CacheSize:     ds.CacheSize,
		Logger:        l.logger,
	})
}

// Centroids returns the tie-break table of corpus name with the configured
// overrides applied, or nil when the configuration leaves it untouched.
func (l *Loader) Centroids(name string) (*emotion.CentroidTable, error) {
	points := l.cfg.Centroids[name]
	if len(points) == 0 {
		return nil, nil
	}
	base, ok := emotion.CentroidsFor(name)
	if !ok {
		return nil, fmt.Errorf("centroids.%s: corpus has no valence/arousal ratings", name)
	}
	overrides := make(map[string]emotion.Point, len(points))
	for category, va := range points {
		if len(va) != 2 {
			return nil, fmt.Errorf("centroids.%s.%s: want [valence, arousal]", name, category)
		}
		overrides[category] = emotion.Point{Valence: va[0], Arousal: va[1]}
	}
	table, err := base.Override(overrides)
	if err != nil {
		return nil, fmt.Errorf("centroids.%s: %w", name, err)
	}
	return &table, nil
}

// Dialog builds the auxiliary AI-Hub source for mode.
func (l *Loader) Dialog(mode folds.Mode) (*dataset.Dialog, error) {
	ds := l.cfg.Dataset
	return dataset.NewDialog(dataset.DialogOptions{
		Root:          l.cfg.AIHub.Root,
		Mode:          mode,
		TrainRatio:    l.cfg.AIHub.TrainRatio,
		Seed:          l.cfg.AIHub.Seed,
		MaxLengthWav:  ds.MaxLengthWav,
		MaxLengthText: ds.MaxLengthText,
		Tokenizer:     l.tokenizer,
		NumData:       ds.NumData,
		CacheSize:     ds.CacheSize,
		Logger:        l.logger,
	})
}

// Source returns the examples of a '-'-joined corpus list for mode. A single
// name yields its own source; several are concatenated in list order.
func (l *Loader) Source(ctx context.Context, corpora string, mode folds.Mode) (dataset.Source, error) {
	names := config.SplitCorpora(corpora)
	if len(names) == 0 {
		return nil, errors.New("loader: no corpora selected")
	}
	sources := make([]dataset.Source, 0, len(names))
	for _, name := range names {
		var (
			src dataset.Source
			err error
		)
		if name == dataset.DialogName {
			src, err = l.Dialog(mode)
		} else {
			src, err = l.Accessor(ctx, name, mode)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sources = append(sources, src)
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return dataset.Concat(sources...), nil
}

// Mode parses dataset.mode.
func (l *Loader) Mode() (folds.Mode, error) {
	return folds.ParseMode(l.cfg.Dataset.Mode)
}

// Encoders returns the audio and text encoders selected by
// preprocess.encoder.
func (l *Loader) Encoders() (preprocess.AudioEncoder, preprocess.TextEncoder, error) {
	p := l.cfg.Preprocess
	switch p.Encoder {
	case EncoderHTTP:
		enc := preprocess.NewHTTPEncoder(p.EncoderURL, time.Duration(p.TimeoutSeconds)*time.Second, p.MaxLengthWav, p.MaxLengthText)
		return enc, enc, nil
	case EncoderLocal, "":
		if l.tokenizer == nil {
			return nil, nil, ErrNoTokenizer
		}
		return preprocess.FeatureExtractor{SamplingRate: p.SamplingRate, MaxLength: p.MaxLengthWav},
			preprocess.TokenizerEncoder{Tokenizer: l.tokenizer, MaxLength: p.MaxLengthText},
			nil
	default:
		return nil, nil, fmt.Errorf("loader: unsupported encoder %q", p.Encoder)
	}
}

// PreprocessConfig maps the configuration onto a materialization config for
// mode.
func (l *Loader) PreprocessConfig(mode folds.Mode) preprocess.Config {
	p := l.cfg.Preprocess
	ds := l.cfg.Dataset
	return preprocess.Config{
		Root:          l.cfg.Paths.ProcessedDir,
		Corpora:       ds.Corpora,
		Mode:          mode,
		Fold:          folds.Fold(ds.ValidationFold),
		Multilabel:    ds.Multilabel,
		RemoveDeuce:   ds.RemoveDeuce,
		BatchSize:     p.BatchSize,
		NumWorkers:    p.NumWorkers,
		SamplingRate:  p.SamplingRate,
		MaxLengthWav:  p.MaxLengthWav,
		MaxLengthText: p.MaxLengthText,
		MinFreeGiB:    p.MinFreeGiB,
	}
}

// Preprocess returns one materialization per mode, encoding the configured
// corpora for every mode that has none yet.
func (l *Loader) Preprocess(ctx context.Context, store *catalog.Store, force bool, modes ...folds.Mode) (map[folds.Mode]*preprocess.Dataset, error) {
	audioEnc, textEnc, err := l.Encoders()
	if err != nil {
		return nil, err
	}
	opts := preprocess.Options{
		Config:  l.PreprocessConfig(folds.Train),
		Audio:   audioEnc,
		Text:    textEnc,
		Catalog: store,
		Logger:  l.logger,
		Force:   force,
	}
	return preprocess.LoadModes(ctx, opts, func(ctx context.Context, mode folds.Mode) (dataset.Source, error) {
		return l.Source(ctx, l.cfg.Dataset.Corpora, mode)
	}, modes...)
}
