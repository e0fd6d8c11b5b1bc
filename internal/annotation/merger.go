package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/logging"
)

// Merger builds and maintains the normalized cache of one corpus.
type Merger struct {
	source     RawSource
	root       string
	cachePath  string
	multilabel bool
	logger     *slog.Logger
}

// MergerOptions configures a Merger.
type MergerOptions struct {
	Root       string
	CachePath  string
	Multilabel bool
	Logger     *slog.Logger
}

// NewMerger constructs a merger for source.
func NewMerger(source RawSource, opts MergerOptions) (*Merger, error) {
	if source == nil {
		return nil, errors.New("annotation: merger requires a raw source")
	}
	if strings.TrimSpace(opts.CachePath) == "" {
		return nil, errors.New("annotation: merger requires a cache path")
	}
	logger := logging.NewComponentLogger(opts.Logger, "annotation").With(
		logging.String(logging.FieldCorpus, source.Name()),
	)
	return &Merger{
		source:     source,
		root:       opts.Root,
		cachePath:  opts.CachePath,
		multilabel: opts.Multilabel,
		logger:     logger,
	}, nil
}

// CachePath returns the cache location managed by the merger.
func (m *Merger) CachePath() string {
	return m.cachePath
}

// Ensure returns the normalized table, rebuilding the cache from raw tables
// when it is missing, stale, or force is set. A valid cache is returned
// untouched.
func (m *Merger) Ensure(ctx context.Context, force bool) (Table, error) {
	if !force {
		state := ValidateCache(m.cachePath, m.source.Name(), m.multilabel)
		switch state.Status {
		case CacheValid:
			m.logger.Debug("normalized cache reused",
				logging.String(logging.FieldDecisionType, "annotation_cache"),
				logging.String("decision_result", "hit"),
				logging.String("cache_path", m.cachePath),
				logging.Int("rows", state.Table.Len()),
			)
			return state.Table, nil
		case CacheStale:
			if errors.Is(state.Err, ErrEmptyCache) {
				logging.ErrorWithContext(m.logger, "normalized cache is empty", "annotation_cache_empty",
					logging.String("cache_path", m.cachePath),
					logging.String(logging.FieldErrorHint, "cache will be rebuilt from raw annotations"),
				)
			} else {
				logging.WarnWithContext(m.logger, "normalized cache is stale", "annotation_cache_stale",
					logging.String("cache_path", m.cachePath),
					logging.Error(state.Err),
					logging.String(logging.FieldImpact, "cache will be rebuilt from raw annotations"),
				)
			}
		case CacheMissing:
			m.logger.Info("normalized cache not found; processing raw annotations",
				logging.String("cache_path", m.cachePath),
			)
		}
	}
	return m.Rebuild(ctx)
}

// Rebuild merges the raw tables and overwrites the cache.
func (m *Merger) Rebuild(ctx context.Context) (Table, error) {
	records, err := m.source.MergeRaw(ctx, m.root)
	if err != nil {
		return Table{}, err
	}
	table := Table{Corpus: m.source.Name(), Records: records}
	if m.multilabel {
		table.ExpandVotes()
	}
	if table.Len() == 0 {
		return Table{}, fmt.Errorf("%w: no rows merged from %s", ErrEmptyCache, m.root)
	}
	if err := WriteCache(m.cachePath, table); err != nil {
		return Table{}, err
	}
	m.logger.Info("normalized cache written",
		logging.String("cache_path", m.cachePath),
		logging.Int("rows", table.Len()),
		logging.Bool("multilabel", table.Multilabel),
	)
	return table, nil
}
