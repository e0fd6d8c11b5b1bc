package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Corpus roots, caches and the processed directory all live under one base
// directory so fixtures can be written next to them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataRoot = filepath.Join(base, "data")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Corpora.KEMDy19.Root = filepath.Join(cfgVal.Paths.DataRoot, "KEMDy19")
	cfgVal.Corpora.KEMDy19.CachePath = filepath.Join(cfgVal.Paths.CacheDir, "kemdy19.csv")
	cfgVal.Corpora.KEMDy20.Root = filepath.Join(cfgVal.Paths.DataRoot, "KEMDy20_v1_1")
	cfgVal.Corpora.KEMDy20.CachePath = filepath.Join(cfgVal.Paths.CacheDir, "kemdy20.csv")
	cfgVal.AIHub.Root = filepath.Join(cfgVal.Paths.DataRoot, "aihub")
	cfgVal.Preprocess.MinFreeGiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCorpora sets the '-'-joined corpus list.
func WithCorpora(names string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.Corpora = names
	}
}

// WithFold sets the validation fold and mode.
func WithFold(fold int, mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.ValidationFold = fold
		b.cfg.Dataset.Mode = mode
	}
}

// WithSessions overrides the session counts of both annotated corpora.
func WithSessions(kemdy19, kemdy20 int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpora.KEMDy19.NumSessions = kemdy19
		b.cfg.Corpora.KEMDy20.NumSessions = kemdy20
	}
}

// WithMultilabel toggles multilabel vote expansion.
func WithMultilabel(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.Multilabel = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataRoot)
}
