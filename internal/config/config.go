package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataRoot     string `toml:"data_root"`
	CacheDir     string `toml:"cache_dir"`
	ProcessedDir string `toml:"processed_dir"`
	LogDir       string `toml:"log_dir"`
}

// Corpus contains the location and layout knobs of one annotated corpus.
type Corpus struct {
	Root         string `toml:"root"`
	CachePath    string `toml:"cache_path"`
	NumSessions  int    `toml:"num_sessions"`
	TextEncoding string `toml:"text_encoding"`
}

// Corpora groups the per-corpus sections.
type Corpora struct {
	KEMDy19 Corpus `toml:"kemdy19"`
	KEMDy20 Corpus `toml:"kemdy20"`
}

// AIHub contains configuration for the auxiliary dialogue corpus.
type AIHub struct {
	Root       string  `toml:"root"`
	TrainRatio float64 `toml:"train_ratio"`
	Seed       int64   `toml:"seed"`
}

// Dataset contains accessor options shared by every corpus.
type Dataset struct {
	Corpora        string `toml:"corpora"`
	ValidationFold int    `toml:"validation_fold"`
	NumFolds       int    `toml:"num_folds"`
	Mode           string `toml:"mode"`
	MaxLengthWav   int    `toml:"max_length_wav"`
	MaxLengthText  int    `toml:"max_length_txt"`
	Multilabel     bool   `toml:"multilabel"`
	RemoveDeuce    bool   `toml:"remove_deuce"`
	ReturnBio      bool   `toml:"return_bio"`
	// NumData limits the accessor to a prefix for fast iteration. Unset
	// means no limit.
	NumData   *int `toml:"num_data"`
	CacheSize int  `toml:"cache_size"`
}

// Tokenizer contains text tokenizer configuration. VocabPath names a
// vocab.txt or a tokenizer.json.
type Tokenizer struct {
	VocabPath string `toml:"vocab_path"`
	Lowercase bool   `toml:"lowercase"`
}

// Centroids overrides tie-break centroids per corpus. Keys are corpus names,
// then category names; values are [valence, arousal] on the scale of the
// corpus' ratings.
type Centroids map[string]map[string][]float64

// Preprocess contains batch preprocessing configuration.
type Preprocess struct {
	Encoder        string `toml:"encoder"`
	EncoderURL     string `toml:"encoder_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BatchSize      int    `toml:"batch_size"`
	NumWorkers     int    `toml:"num_workers"`
	SamplingRate   int    `toml:"sampling_rate"`
	MaxLengthWav   int    `toml:"max_length_wav"`
	MaxLengthText  int    `toml:"max_length_txt"`
	MinFreeGiB     int    `toml:"min_free_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: data root, normalized cache, materialized datasets, logs
//   - Corpora: per-corpus roots, cache files and text encodings
//   - AIHub: auxiliary dialogue corpus and its seeded split
//   - Dataset: fold, mode and example shaping options
//   - Tokenizer: WordPiece vocabulary or tokenizer.json
//   - Centroids: per-corpus tie-break centroid overrides
//   - Preprocess: encoders, batching and materialization
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Corpora    Corpora    `toml:"corpora"`
	AIHub      AIHub      `toml:"aihub"`
	Dataset    Dataset    `toml:"dataset"`
	Tokenizer  Tokenizer  `toml:"tokenizer"`
	Centroids  Centroids  `toml:"centroids,omitempty"`
	Preprocess Preprocess `toml:"preprocess"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files next to the config and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" && configDir != "." {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("erc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the writable directories used by the merger,
// the preprocessor and the log sink.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.ProcessedDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Corpus returns the section for a corpus name such as "kemdy19".
func (c *Config) Corpus(name string) (Corpus, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kemdy19":
		return c.Corpora.KEMDy19, true
	case "kemdy20":
		return c.Corpora.KEMDy20, true
	default:
		return Corpus{}, false
	}
}

// CorpusNames splits the dataset.corpora setting on '-'.
func (c *Config) CorpusNames() []string {
	return SplitCorpora(c.Dataset.Corpora)
}

// SplitCorpora splits a '-'-joined corpus list, dropping blanks.
func SplitCorpora(value string) []string {
	var names []string
	for _, part := range strings.Split(value, "-") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// CatalogPath returns the location of the materialized dataset catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.ProcessedDir, "catalog.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "erc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/erc"
	}
	return filepath.Join(home, ".cache", "erc")
}

// ErrConfigExists reports a sample target that already holds a file.
var ErrConfigExists = errors.New("config: file already exists")

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path. An existing file is
// kept unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
