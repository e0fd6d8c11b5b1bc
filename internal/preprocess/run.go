package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/catalog"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/dataset"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/preflight"
)

// Options configures Run.
type Options struct {
	Config Config
	Audio  AudioEncoder
	Text   TextEncoder
	// Catalog, when set, records every materialization Run builds or reuses.
	Catalog *catalog.Store
	Logger  *slog.Logger
	// Force rebuilds even when a valid materialization exists.
	Force bool
}

type batchResult struct {
	examples []dataset.Example
	partial  int
	err      error
}

// Run materializes src under Config.Dir() and returns it opened for reading.
// An existing materialization with a matching fingerprint is reused unless
// Force is set.
func Run(ctx context.Context, src dataset.Source, opts Options) (*Dataset, error) {
	if src == nil {
		return nil, errors.New("preprocess: source is required")
	}
	if opts.Audio == nil || opts.Text == nil {
		return nil, errors.New("preprocess: audio and text encoders are required")
	}
	cfg := opts.Config.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(cfg)
	dir := cfg.Dir()
	logger := logging.NewComponentLogger(opts.Logger, "preprocess").With(
		logging.String(logging.FieldFingerprint, fingerprint),
	)

	if !opts.Force {
		ds, err := Open(dir, fingerprint)
		switch {
		case err == nil:
			logger.Info("materialization reused",
				logging.Args(logging.DecisionAttrs("materialization", "hit", "fingerprint matched")...)...)
			if err := register(ctx, opts.Catalog, cfg, ds); err != nil {
				_ = ds.Close()
				return nil, err
			}
			return ds, nil
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("materialization not found; encoding source",
				logging.String("path", dir),
				logging.Int("rows", src.Len()),
			)
		default:
			logging.WarnWithContext(logger, "materialization is stale", "materialization_stale",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldImpact, "materialization will be rebuilt"),
			)
		}
	}

	if cfg.NumWorkers > 1 {
		logging.WarnWithContext(logger, "encoding with several workers", "unsafe_workers",
			logging.Int("num_workers", cfg.NumWorkers),
			logging.String(logging.FieldImpact, "encoders must be safe for concurrent use"),
			logging.String(logging.FieldErrorHint, "set num_workers = 1 if encoding fails"),
		)
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create materialization root: %w", err)
	}
	if cfg.MinFreeGiB > 0 {
		if err := preflight.EnsureFreeSpace(cfg.Root, cfg.MinFreeGiB); err != nil {
			return nil, err
		}
	}

	lock := flock.New(dir + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire materialization lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", annotation.ErrCacheLocked, dir)
	}
	defer func() { _ = lock.Unlock() }()

	buildID := uuid.NewString()
	tmpDir := dir + ".tmp-" + buildID
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmpDir)
		}
	}()

	started := time.Now()
	shards, rows, partial, err := materialize(ctx, src, cfg, opts, tmpDir, logger)
	if err != nil {
		return nil, err
	}
	meta := Metadata{
		FormatVersion: formatVersion,
		Fingerprint:   fingerprint,
		BuildID:       buildID,
		CreatedAt:     time.Now().UTC(),
		Corpora:       cfg.Corpora,
		Mode:          string(cfg.Mode),
		Fold:          int(cfg.Fold),
		Multilabel:    cfg.Multilabel,
		RemoveDeuce:   cfg.RemoveDeuce,
		SamplingRate:  cfg.SamplingRate,
		MaxLengthWav:  cfg.MaxLengthWav,
		MaxLengthText: cfg.MaxLengthText,
		Rows:          rows,
		PartialRows:   partial,
		Shards:        shards,
	}
	if err := writeMetadata(tmpDir, meta); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("remove previous materialization: %w", err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		return nil, fmt.Errorf("commit materialization: %w", err)
	}
	committed = true

	logger.Info("materialization written",
		logging.String("path", dir),
		logging.String("build_id", buildID),
		logging.Int("rows", rows),
		logging.Int("partial_rows", partial),
		logging.Int("shards", len(shards)),
		logging.Duration("elapsed", time.Since(started)),
	)

	ds, err := Open(dir, fingerprint)
	if err != nil {
		return nil, err
	}
	if err := register(ctx, opts.Catalog, cfg, ds); err != nil {
		_ = ds.Close()
		return nil, err
	}
	return ds, nil
}

// materialize encodes src batch by batch into dir. Batches are encoded in
// windows of NumWorkers goroutines and written in source order.
func materialize(ctx context.Context, src dataset.Source, cfg Config, opts Options, dir string, logger *slog.Logger) ([]ShardInfo, int, int, error) {
	total := src.Len()
	numBatches := (total + cfg.BatchSize - 1) / cfg.BatchSize
	writer := newShardWriter(dir, cfg.ShardRows)
	sampler := logging.NewProgressSampler(10)
	rows, partial := 0, 0

	for start := 0; start < numBatches; start += cfg.NumWorkers {
		if err := ctx.Err(); err != nil {
			_, _ = writer.finish()
			return nil, 0, 0, err
		}
		end := min(start+cfg.NumWorkers, numBatches)
		results := make([]batchResult, end-start)
		var wg sync.WaitGroup
		for b := start; b < end; b++ {
			wg.Add(1)
			go func(b int) {
				defer wg.Done()
				results[b-start] = encodeBatch(ctx, src, cfg, opts, b)
			}(b)
		}
		wg.Wait()

		for i, res := range results {
			if res.err != nil {
				_, _ = writer.finish()
				return nil, 0, 0, fmt.Errorf("batch %d: %w", start+i, res.err)
			}
			if err := writer.write(res.examples); err != nil {
				_, _ = writer.finish()
				return nil, 0, 0, err
			}
			rows += len(res.examples)
			partial += res.partial
		}

		done := min(end*cfg.BatchSize, total)
		if percent := logging.Percent(done, total); sampler.ShouldLog(percent, "encode") {
			logger.Info("encoding progress",
				logging.Int("done", done),
				logging.Int("total", total),
				logging.Float64("percent", percent),
			)
		}
	}

	if partial > 0 {
		logging.WarnWithContext(logger, "partial examples skipped", "partial_examples",
			logging.Int("partial_rows", partial),
			logging.String(logging.FieldImpact, "segments without audio or transcript are not materialized"),
		)
	}
	shards, err := writer.finish()
	if err != nil {
		return nil, 0, 0, err
	}
	return shards, rows, partial, nil
}

func encodeBatch(ctx context.Context, src dataset.Source, cfg Config, opts Options, batch int) batchResult {
	lo := batch * cfg.BatchSize
	hi := min(lo+cfg.BatchSize, src.Len())
	loaded, err := dataset.Slice(ctx, src, lo, hi)
	if err != nil {
		return batchResult{err: err}
	}
	examples, partial := dataset.FilterComplete(loaded)
	if len(examples) == 0 {
		return batchResult{partial: partial}
	}

	clips := make([][]float32, len(examples))
	texts := make([]string, len(examples))
	for i, ex := range examples {
		if ex.SamplingRate != 0 && ex.SamplingRate != cfg.SamplingRate {
			return batchResult{err: fmt.Errorf("%w: %s recorded at %d Hz, want %d Hz",
				ErrSamplingRate, ex.SegmentID, ex.SamplingRate, cfg.SamplingRate)}
		}
		clips[i] = unpad(ex.Wav, ex.WavMask)
		texts[i] = ex.Text
	}

	af, err := opts.Audio.EncodeAudio(ctx, clips, cfg.SamplingRate)
	if err != nil {
		return batchResult{err: fmt.Errorf("encode audio: %w", err)}
	}
	tf, err := opts.Text.EncodeText(ctx, texts)
	if err != nil {
		return batchResult{err: fmt.Errorf("encode text: %w", err)}
	}
	if len(af.Values) != len(examples) || len(af.Mask) != len(examples) {
		return batchResult{err: fmt.Errorf("audio encoder returned %d rows for %d clips", len(af.Values), len(examples))}
	}
	if len(tf.IDs) != len(examples) || len(tf.Mask) != len(examples) {
		return batchResult{err: fmt.Errorf("text encoder returned %d rows for %d texts", len(tf.IDs), len(examples))}
	}
	for i := range examples {
		examples[i].SamplingRate = cfg.SamplingRate
		examples[i].Wav = af.Values[i]
		examples[i].WavMask = af.Mask[i]
		examples[i].InputIDs = tf.IDs[i]
		examples[i].TextMask = tf.Mask[i]
	}
	return batchResult{examples: examples, partial: partial}
}

func register(ctx context.Context, store *catalog.Store, cfg Config, ds *Dataset) error {
	if store == nil {
		return nil
	}
	meta := ds.Metadata()
	path, err := filepath.Abs(ds.Dir())
	if err != nil {
		path = ds.Dir()
	}
	_, err = store.Register(ctx, catalog.Entry{
		Fingerprint: meta.Fingerprint,
		Corpora:     meta.Corpora,
		Mode:        meta.Mode,
		Fold:        meta.Fold,
		Multilabel:  meta.Multilabel,
		RemoveDeuce: meta.RemoveDeuce,
		Path:        path,
		BuildID:     meta.BuildID,
		Rows:        meta.Rows,
		PartialRows: meta.PartialRows,
		Shards:      len(meta.Shards),
	})
	if err != nil {
		return fmt.Errorf("register materialization: %w", err)
	}
	return nil
}

// SourceFunc builds the source for one mode. It is only called when that
// mode has no reusable materialization.
type SourceFunc func(ctx context.Context, mode folds.Mode) (dataset.Source, error)

// LoadModes returns one materialization per mode, building the ones that are
// missing or stale. On error every dataset already opened is closed.
func LoadModes(ctx context.Context, opts Options, open SourceFunc, modes ...folds.Mode) (map[folds.Mode]*Dataset, error) {
	if open == nil {
		return nil, errors.New("preprocess: source constructor is required")
	}
	if len(modes) == 0 {
		modes = []folds.Mode{folds.Train, folds.Valid}
	}
	out := make(map[folds.Mode]*Dataset, len(modes))
	closeAll := func() {
		for _, ds := range out {
			_ = ds.Close()
		}
	}
	for _, mode := range modes {
		modeOpts := opts
		modeOpts.Config.Mode = mode
		cfg := modeOpts.Config.withDefaults()
		if !opts.Force {
			if ds, err := Open(cfg.Dir(), Fingerprint(cfg)); err == nil {
				if err := register(ctx, opts.Catalog, cfg, ds); err != nil {
					_ = ds.Close()
					closeAll()
					return nil, err
				}
				out[mode] = ds
				continue
			}
		}
		src, err := open(ctx, mode)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("build %s source: %w", mode, err)
		}
		ds, err := Run(ctx, src, modeOpts)
		if err != nil {
			closeAll()
			return nil, err
		}
		out[mode] = ds
	}
	return out, nil
}
