package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCorpora(); err != nil {
		return err
	}
	if err := c.normalizeAIHub(); err != nil {
		return err
	}
	if err := c.normalizeTokenizer(); err != nil {
		return err
	}
	c.normalizeDataset()
	c.normalizePreprocess()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("ERC_DATA_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataRoot = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		c.Paths.ProcessedDir = defaultProcessedDir
	}
	var err error
	if c.Paths.DataRoot, err = expandPath(strings.TrimSpace(c.Paths.DataRoot)); err != nil {
		return fmt.Errorf("paths.data_root: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(strings.TrimSpace(c.Paths.ProcessedDir)); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCorpora() error {
	if err := c.normalizeCorpus("kemdy19", &c.Corpora.KEMDy19, defaultKEMDy19Dir, defaultKEMDy19Encoding); err != nil {
		return err
	}
	return c.normalizeCorpus("kemdy20", &c.Corpora.KEMDy20, defaultKEMDy20Dir, defaultKEMDy20Encoding)
}

func (c *Config) normalizeCorpus(name string, corpus *Corpus, dir, encoding string) error {
	if strings.TrimSpace(corpus.Root) == "" {
		corpus.Root = filepath.Join(c.Paths.DataRoot, dir)
	}
	if strings.TrimSpace(corpus.CachePath) == "" {
		corpus.CachePath = filepath.Join(c.Paths.CacheDir, name+".csv")
	}
	var err error
	if corpus.Root, err = expandPath(strings.TrimSpace(corpus.Root)); err != nil {
		return fmt.Errorf("corpora.%s.root: %w", name, err)
	}
	if corpus.CachePath, err = expandPath(strings.TrimSpace(corpus.CachePath)); err != nil {
		return fmt.Errorf("corpora.%s.cache_path: %w", name, err)
	}
	corpus.TextEncoding = strings.ToLower(strings.TrimSpace(corpus.TextEncoding))
	if corpus.TextEncoding == "" {
		corpus.TextEncoding = encoding
	}
	return nil
}

func (c *Config) normalizeAIHub() error {
	if strings.TrimSpace(c.AIHub.Root) == "" {
		c.AIHub.Root = filepath.Join(c.Paths.DataRoot, defaultAIHubDir)
	}
	var err error
	if c.AIHub.Root, err = expandPath(strings.TrimSpace(c.AIHub.Root)); err != nil {
		return fmt.Errorf("aihub.root: %w", err)
	}
	return nil
}

func (c *Config) normalizeTokenizer() error {
	var err error
	if c.Tokenizer.VocabPath, err = expandPath(strings.TrimSpace(c.Tokenizer.VocabPath)); err != nil {
		return fmt.Errorf("tokenizer.vocab_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDataset() {
	c.Dataset.Corpora = strings.Join(SplitCorpora(c.Dataset.Corpora), "-")
	if c.Dataset.Corpora == "" {
		c.Dataset.Corpora = defaultCorpora
	}
	c.Dataset.Mode = strings.ToLower(strings.TrimSpace(c.Dataset.Mode))
	if c.Dataset.Mode == "" {
		c.Dataset.Mode = defaultMode
	}
}

func (c *Config) normalizePreprocess() {
	c.Preprocess.Encoder = strings.ToLower(strings.TrimSpace(c.Preprocess.Encoder))
	if c.Preprocess.Encoder == "" {
		c.Preprocess.Encoder = defaultEncoder
	}
	c.Preprocess.EncoderURL = strings.TrimSpace(c.Preprocess.EncoderURL)
	if c.Preprocess.EncoderURL == "" {
		if value, ok := os.LookupEnv("ERC_ENCODER_URL"); ok {
			c.Preprocess.EncoderURL = strings.TrimSpace(value)
		}
	}
	if c.Preprocess.NumWorkers == 0 {
		c.Preprocess.NumWorkers = defaultNumWorkers
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("ERC_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
