package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
)

// KEMDy19Name is the registry name of the KEMDy19 corpus.
const KEMDy19Name = "kemdy19"

// kemdy19Aliases maps raw header names to canonical columns. Blank header
// cells are read as "Unnamed: <index>".
var kemdy19Aliases = map[string]string{
	"numb":             colNumb,
	"wav":              colWavStart,
	"unnamed: 2":       colWavEnd,
	"ecg":              colECGStart,
	"unnamed: 4":       colECGEnd,
	"e4-eda":           colEDAStart,
	"unnamed: 6":       colEDAEnd,
	"e4-temp":          colTempStart,
	"unnamed: 8":       colTempEnd,
	"segment id":       colSegmentID,
	"total evaluation": colEmotion,
	"unnamed: 11":      colValence,
	"unnamed: 12":      colArousal,
}

// KEMDy19 adapts the 2019 corpus: 20 sessions, UTF-8 transcripts, segment ids
// such as Sess01_script01_M001.
type KEMDy19 struct {
	base
}

func newKEMDy19(s Settings) *KEMDy19 {
	return &KEMDy19{base: newBase(KEMDy19Name, s, 20, "utf-8", namedLayout{aliases: kemdy19Aliases})}
}

// Parse splits Sess01_script01_M001 into its parts. Gender is the first
// character of the speaker token.
func (k *KEMDy19) Parse(segmentID string) (Identifier, error) {
	parts := strings.Split(segmentID, "_")
	if len(parts) != 3 {
		return Identifier{}, fmt.Errorf("%w: %q: want session_script_speaker", ErrMalformedSegmentID, segmentID)
	}
	session, token, err := SessionNumber(segmentID)
	if err != nil {
		return Identifier{}, err
	}
	script, speaker := parts[1], parts[2]
	if script == "" || speaker == "" {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedSegmentID, segmentID)
	}
	suffix := token[len(token)-2:]
	return Identifier{
		SegmentID:    segmentID,
		SessionToken: token,
		Session:      session,
		Script:       script,
		Speaker:      speaker,
		Gender:       speaker[:1],
		MediaPrefix:  filepath.Join(k.root, "wav", "Session"+suffix, "Sess"+suffix+"_"+script),
	}, nil
}

// MergeRaw reads every per-session annotation table under root.
func (k *KEMDy19) MergeRaw(ctx context.Context, root string) ([]annotation.Record, error) {
	return mergeTables(ctx, root, k.layout, k.logger)
}
