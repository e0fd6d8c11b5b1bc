package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCorpora(); err != nil {
		return err
	}
	if err := c.validateAIHub(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateCentroids(); err != nil {
		return err
	}
	if err := c.validatePreprocess(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.data_root is required. Set ERC_DATA_ROOT env var or edit %s (create with 'erc config init')", defaultPath)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		return errors.New("paths.processed_dir must be set")
	}
	return nil
}

func (c *Config) validateCorpora() error {
	for name, corpus := range map[string]Corpus{"kemdy19": c.Corpora.KEMDy19, "kemdy20": c.Corpora.KEMDy20} {
		if corpus.NumSessions <= 0 {
			return fmt.Errorf("corpora.%s.num_sessions must be positive", name)
		}
		if corpus.NumSessions < c.Dataset.NumFolds {
			return fmt.Errorf("corpora.%s.num_sessions (%d) must be at least dataset.num_folds (%d)", name, corpus.NumSessions, c.Dataset.NumFolds)
		}
		if corpus.TextEncoding == "" {
			return fmt.Errorf("corpora.%s.text_encoding must be set", name)
		}
	}
	return nil
}

func (c *Config) validateAIHub() error {
	if c.AIHub.TrainRatio <= 0 || c.AIHub.TrainRatio >= 1 {
		return errors.New("aihub.train_ratio must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateDataset() error {
	for _, name := range c.CorpusNames() {
		switch name {
		case "kemdy19", "kemdy20", "aihub":
		default:
			return fmt.Errorf("dataset.corpora: unknown corpus %q", name)
		}
	}
	if c.Dataset.NumFolds <= 0 {
		return errors.New("dataset.num_folds must be positive")
	}
	if c.Dataset.ValidationFold < -1 || c.Dataset.ValidationFold >= c.Dataset.NumFolds {
		return fmt.Errorf("dataset.validation_fold must lie between -1 and %d", c.Dataset.NumFolds-1)
	}
	switch c.Dataset.Mode {
	case "train", "valid", "test":
	default:
		return fmt.Errorf("dataset.mode: unsupported value %q (want train, valid or test)", c.Dataset.Mode)
	}
	if c.Dataset.MaxLengthWav < 0 {
		return errors.New("dataset.max_length_wav must be >= 0")
	}
	if c.Dataset.MaxLengthText < 0 {
		return errors.New("dataset.max_length_txt must be >= 0")
	}
	if c.Dataset.CacheSize < 0 {
		return errors.New("dataset.cache_size must be >= 0")
	}
	return nil
}

func (c *Config) validateCentroids() error {
	for corpus, points := range c.Centroids {
		if corpus != "kemdy19" && corpus != "kemdy20" {
			return fmt.Errorf("centroids.%s: only kemdy19 and kemdy20 carry valence/arousal ratings", corpus)
		}
		for name, point := range points {
			if emotion.Index(name) == emotion.Unmappable {
				return fmt.Errorf("centroids.%s.%s: unknown category (want one of %s)", corpus, name, strings.Join(emotion.Names(), ", "))
			}
			if len(point) != 2 {
				return fmt.Errorf("centroids.%s.%s: want [valence, arousal], got %d values", corpus, name, len(point))
			}
		}
	}
	return nil
}

func (c *Config) validatePreprocess() error {
	switch c.Preprocess.Encoder {
	case "local":
	case "http":
		if c.Preprocess.EncoderURL == "" {
			return errors.New("preprocess.encoder_url is required when preprocess.encoder is \"http\". Set ERC_ENCODER_URL or edit the config")
		}
	default:
		return fmt.Errorf("preprocess.encoder: unsupported value %q (want local or http)", c.Preprocess.Encoder)
	}
	if c.Preprocess.TimeoutSeconds <= 0 {
		return errors.New("preprocess.timeout_seconds must be positive")
	}
	if c.Preprocess.BatchSize <= 0 {
		return errors.New("preprocess.batch_size must be positive")
	}
	if c.Preprocess.NumWorkers < 1 {
		return errors.New("preprocess.num_workers must be at least 1")
	}
	if c.Preprocess.SamplingRate <= 0 {
		return errors.New("preprocess.sampling_rate must be positive")
	}
	if c.Preprocess.MaxLengthWav <= 0 {
		return errors.New("preprocess.max_length_wav must be positive")
	}
	if c.Preprocess.MaxLengthText <= 0 {
		return errors.New("preprocess.max_length_txt must be positive")
	}
	if c.Preprocess.MinFreeGiB < 0 {
		return errors.New("preprocess.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
