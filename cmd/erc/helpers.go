package main

import (
	"strconv"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/config"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/dataset"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

// annotatedCorpora returns the corpora that have annotation tables: the
// '-'-joined flag value when set, else dataset.corpora, minus aihub.
func annotatedCorpora(cfg *config.Config, flag string) []string {
	names := cfg.CorpusNames()
	if flag != "" {
		names = config.SplitCorpora(flag)
	}
	out := names[:0:0]
	for _, name := range names {
		if name != dataset.DialogName {
			out = append(out, name)
		}
	}
	return out
}

func labelName(idx int) string {
	if name, ok := emotion.Name(idx); ok {
		return name
	}
	return "unmappable"
}

func genderName(idx int) string {
	switch idx {
	case emotion.GenderMale:
		return "M"
	case emotion.GenderFemale:
		return "F"
	default:
		return "-"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
