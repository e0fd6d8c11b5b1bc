package preprocess

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
)

// Defaults applied by Run when a Config field is zero.
const (
	DefaultBatchSize     = 1000
	DefaultSamplingRate  = 16000
	DefaultMaxLengthWav  = 112000
	DefaultMaxLengthText = 64
	DefaultShardRows     = 10000
	// recordRows bounds the rows per Arrow record batch so random access
	// decodes a small slice of a shard.
	recordRows = 64
)

// Config identifies and shapes one materialization.
type Config struct {
	// Root is the directory holding every materialization.
	Root          string
	Corpora       string
	Mode          folds.Mode
	Fold          folds.Fold
	Multilabel    bool
	RemoveDeuce   bool
	BatchSize     int
	NumWorkers    int
	SamplingRate  int
	MaxLengthWav  int
	MaxLengthText int
	MinFreeGiB    int
	ShardRows     int
}

func (c Config) withDefaults() Config {
	if c.Mode == "" {
		c.Mode = folds.Train
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.SamplingRate <= 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.MaxLengthWav <= 0 {
		c.MaxLengthWav = DefaultMaxLengthWav
	}
	if c.MaxLengthText <= 0 {
		c.MaxLengthText = DefaultMaxLengthText
	}
	if c.ShardRows <= 0 {
		c.ShardRows = DefaultShardRows
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("preprocess: root directory is required")
	}
	if strings.TrimSpace(c.Corpora) == "" {
		return errors.New("preprocess: corpora is required")
	}
	if _, err := folds.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Fold < folds.All {
		return fmt.Errorf("%w: %d", folds.ErrInvalidFold, c.Fold)
	}
	return nil
}

// Fingerprint names the materialization of c:
// <corpora>_<mode><fold>_multilabel<True|False>_rdeuce<True|False>. The
// capitalized booleans keep directories built by the training scripts
// loadable.
func Fingerprint(c Config) string {
	mode := c.Mode
	if mode == "" {
		mode = folds.Train
	}
	return fmt.Sprintf("%s_%s%d_multilabel%s_rdeuce%s",
		c.Corpora, mode, int(c.Fold),
		pyBool(c.Multilabel), pyBool(c.RemoveDeuce))
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// Dir returns the materialization directory of c.
func (c Config) Dir() string {
	return filepath.Join(c.Root, Fingerprint(c))
}
