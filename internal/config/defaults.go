package config

const (
	defaultConfigPath         = "~/.config/erc/config.toml"
	defaultDataRoot           = "~/data/kemdy-dataset"
	defaultProcessedDir       = "~/.local/share/erc/processed"
	defaultLogDir             = "~/.local/share/erc/logs"
	defaultKEMDy19Dir         = "KEMDy19"
	defaultKEMDy20Dir         = "KEMDy20_v1_1"
	defaultAIHubDir           = "aihub"
	defaultKEMDy19Sessions    = 20
	defaultKEMDy20Sessions    = 40
	defaultKEMDy19Encoding    = "utf-8"
	defaultKEMDy20Encoding    = "cp949"
	defaultAIHubTrainRatio    = 0.8
	defaultAIHubSeed          = 42
	defaultCorpora            = "kemdy19-kemdy20"
	defaultValidationFold     = 4
	defaultNumFolds           = 5
	defaultMode               = "train"
	defaultMaxLengthWav       = 200_000
	defaultMaxLengthText      = 50
	defaultCacheSize          = 256
	defaultEncoder            = "local"
	defaultEncoderTimeout     = 60
	defaultBatchSize          = 1000
	defaultNumWorkers         = 1
	defaultSamplingRate       = 16_000
	defaultPreprocessWavLen   = 112_000
	defaultPreprocessTextLen  = 64
	defaultMinFreeGiB         = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultTokenizerLowercase = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot:     defaultDataRoot,
			CacheDir:     defaultCacheDir(),
			ProcessedDir: defaultProcessedDir,
			LogDir:       defaultLogDir,
		},
		Corpora: Corpora{
			KEMDy19: Corpus{
				NumSessions:  defaultKEMDy19Sessions,
				TextEncoding: defaultKEMDy19Encoding,
			},
			KEMDy20: Corpus{
				NumSessions:  defaultKEMDy20Sessions,
				TextEncoding: defaultKEMDy20Encoding,
			},
		},
		AIHub: AIHub{
			TrainRatio: defaultAIHubTrainRatio,
			Seed:       defaultAIHubSeed,
		},
		Dataset: Dataset{
			Corpora:        defaultCorpora,
			ValidationFold: defaultValidationFold,
			NumFolds:       defaultNumFolds,
			Mode:           defaultMode,
			MaxLengthWav:   defaultMaxLengthWav,
			MaxLengthText:  defaultMaxLengthText,
			RemoveDeuce:    true,
			CacheSize:      defaultCacheSize,
		},
		Tokenizer: Tokenizer{
			Lowercase: defaultTokenizerLowercase,
		},
		Preprocess: Preprocess{
			Encoder:        defaultEncoder,
			TimeoutSeconds: defaultEncoderTimeout,
			BatchSize:      defaultBatchSize,
			NumWorkers:     defaultNumWorkers,
			SamplingRate:   defaultSamplingRate,
			MaxLengthWav:   defaultPreprocessWavLen,
			MaxLengthText:  defaultPreprocessTextLen,
			MinFreeGiB:     defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
