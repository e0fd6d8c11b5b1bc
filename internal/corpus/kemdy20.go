package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
)

// KEMDy20Name is the registry name of the KEMDy20 corpus.
const KEMDy20Name = "kemdy20"

// kemdy20Columns lists the canonical column at each raw position.
var kemdy20Columns = []string{colNumb, colWavStart, colWavEnd, colSegmentID, colEmotion, colValence, colArousal}

// KEMDy20 adapts the 2020 corpus: 40 sessions, cp949 transcripts, segment ids
// such as Sess01_script01_User002M_001.
type KEMDy20 struct {
	base
}

func newKEMDy20(s Settings) *KEMDy20 {
	return &KEMDy20{base: newBase(KEMDy20Name, s, 40, "cp949", positionalLayout{columns: kemdy20Columns})}
}

// Parse splits Sess01_script01_User002M_001 into its parts. Gender is the
// last character of the speaker token.
func (k *KEMDy20) Parse(segmentID string) (Identifier, error) {
	parts := strings.Split(segmentID, "_")
	if len(parts) != 4 {
		return Identifier{}, fmt.Errorf("%w: %q: want session_script_speaker_index", ErrMalformedSegmentID, segmentID)
	}
	session, token, err := SessionNumber(segmentID)
	if err != nil {
		return Identifier{}, err
	}
	speaker := parts[2]
	if speaker == "" {
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedSegmentID, segmentID)
	}
	return Identifier{
		SegmentID:    segmentID,
		SessionToken: token,
		Session:      session,
		Script:       parts[1],
		Speaker:      speaker,
		Gender:       speaker[len(speaker)-1:],
		MediaPrefix:  filepath.Join(k.root, "wav", "Session"+token[len(token)-2:]),
	}, nil
}

// MergeRaw reads every per-session annotation table under root.
func (k *KEMDy20) MergeRaw(ctx context.Context, root string) ([]annotation.Record, error) {
	return mergeTables(ctx, root, k.layout, k.logger)
}
