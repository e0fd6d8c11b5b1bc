package testsupport

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Segment describes one annotated utterance in a synthetic corpus.
type Segment struct {
	ID      string
	Emotion string
	Valence float64
	Arousal float64
}

// WriteKEMDy19Table writes a per-session annotation table in the KEMDy19
// layout: a named header with blank cells, a sub-header row, then data rows.
func WriteKEMDy19Table(t testing.TB, root, name string, segments []Segment) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Numb,Wav,,ECG,,E4-EDA,,E4-TEMP,,Segment ID,Total Evaluation,,\n")
	b.WriteString(",start,end,start,end,start,end,start,end,,Emotion,Valence,Arousal\n")
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d,%d.0,%d.5,1.0,3.0,2.0,4.0,30.5,31.5,%s,%s,%s,%s\n",
			i+1, i, i+2, seg.ID, quote(seg.Emotion), formatFloat(seg.Valence), formatFloat(seg.Arousal))
	}
	path := filepath.Join(root, "annotation", name)
	WriteFile(t, path, []byte(b.String()))
	return path
}

// WriteKEMDy20Table writes a per-session annotation table in the KEMDy20
// layout: seven positional columns followed by per-evaluator columns.
func WriteKEMDy20Table(t testing.TB, root, name string, segments []Segment) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Numb,Wav,,Segment ID,Total Evaluation,,,Eval01F,,\n")
	b.WriteString(",start,end,,Emotion,Valence,Arousal,Emotion,Valence,Arousal\n")
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d,%d.0,%d.5,%s,%s,%s,%s,neutral,3,3\n",
			i+1, i, i+2, seg.ID, quote(seg.Emotion), formatFloat(seg.Valence), formatFloat(seg.Arousal))
	}
	path := filepath.Join(root, "annotation", name)
	WriteFile(t, path, []byte(b.String()))
	return path
}

// WriteSegmentMedia writes <prefix>/<id>.wav and <prefix>/<id>.txt.
func WriteSegmentMedia(t testing.TB, prefix, segmentID string, samples []int, text []byte) {
	t.Helper()

	WriteWAV(t, filepath.Join(prefix, segmentID+".wav"), 16000, 1, samples)
	WriteFile(t, filepath.Join(prefix, segmentID+".txt"), text)
}

func quote(s string) string {
	if strings.ContainsAny(s, ",\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
