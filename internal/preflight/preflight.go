package preflight

import (
	"context"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir))
	if cfg.Preprocess.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace("Processed disk space", cfg.Paths.ProcessedDir, cfg.Preprocess.MinFreeGiB))
	}

	for _, name := range cfg.CorpusNames() {
		if name == "aihub" {
			results = append(results, CheckDialogLayout("Corpus aihub", cfg.AIHub.Root))
			continue
		}
		section, ok := cfg.Corpus(name)
		if !ok {
			results = append(results, Result{Name: "Corpus " + name, Detail: "not configured"})
			continue
		}
		results = append(results, CheckCorpusLayout("Corpus "+name, section.Root))
	}

	if vocab := strings.TrimSpace(cfg.Tokenizer.VocabPath); vocab != "" {
		results = append(results, CheckFile("Tokenizer vocabulary", vocab))
	}

	if cfg.Preprocess.Encoder == "http" {
		results = append(results, CheckEncoder(ctx, cfg.Preprocess.EncoderURL))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
