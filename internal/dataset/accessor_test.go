package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/corpus"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/folds"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/testsupport"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/tokenize"
)

type fixture struct {
	root    string
	adapter corpus.Adapter
	table   annotation.Table
}

// newFixture builds a five-session KEMDy20 tree with two segments per
// session. Every segment has media unless listed in missing.
func newFixture(t *testing.T, missing ...string) fixture {
	t.Helper()

	root := filepath.Join(t.TempDir(), "KEMDy20")
	adapter, err := corpus.New(corpus.KEMDy20Name, corpus.Settings{Root: root, NumSessions: 5, TextEncoding: "utf-8"})
	if err != nil {
		t.Fatalf("corpus.New: %v", err)
	}
	skip := make(map[string]bool, len(missing))
	for _, id := range missing {
		skip[id] = true
	}

	emotions := []string{"angry", "neutral;happy"}
	table := annotation.Table{Corpus: corpus.KEMDy20Name}
	for session := 1; session <= 5; session++ {
		for k, emo := range emotions {
			id := fmt.Sprintf("Sess%02d_script01_User%03dM_%03d", session, session, k+1)
			table.Records = append(table.Records, annotation.Record{
				SegmentID: id,
				Emotion:   emo,
				Valence:   3.8,
				Arousal:   3.3,
				Wav:       annotation.Interval{Start: 1, End: 2, Valid: true},
				Bio: map[annotation.BioSignal]annotation.Interval{
					annotation.BioECG:  {Start: 1, End: 3, Valid: true},
					annotation.BioEDA:  {Start: 2, End: 4, Valid: true},
					annotation.BioTemp: {},
				},
			})
			if skip[id] {
				continue
			}
			prefix := filepath.Join(root, "wav", fmt.Sprintf("Session%02d", session))
			testsupport.WriteSegmentMedia(t, prefix, id, []int{100, 200, 300, 400}, []byte("hello\nworld\n"))
		}
	}
	return fixture{root: root, adapter: adapter, table: table}
}

func TestNewValidatesFoldAndMode(t *testing.T) {
	fx := newFixture(t)
	cases := []struct {
		name string
		opts Options
		want error
	}{
		{"fold too large", Options{Fold: 5, Mode: folds.Train}, ErrInvalidFold},
		{"fold below all", Options{Fold: -2, Mode: folds.Train}, ErrInvalidFold},
		{"unknown mode", Options{Fold: 0, Mode: "predict"}, ErrInvalidMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(fx.adapter, fx.table, tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAccessorSplitsByFold(t *testing.T) {
	fx := newFixture(t)
	cases := []struct {
		fold folds.Fold
		mode folds.Mode
		want int
	}{
		{0, folds.Train, 8},
		{0, folds.Valid, 2},
		{4, folds.Test, 2},
		{folds.All, folds.Valid, 10},
	}
	for _, tc := range cases {
		acc, err := New(fx.adapter, fx.table, Options{Fold: tc.fold, Mode: tc.mode})
		if err != nil {
			t.Fatalf("New(%d, %s): %v", tc.fold, tc.mode, err)
		}
		if acc.Len() != tc.want {
			t.Fatalf("fold %d %s: len = %d, want %d", tc.fold, tc.mode, acc.Len(), tc.want)
		}
	}

	valid, err := New(fx.adapter, fx.table, Options{Fold: 0, Mode: folds.Valid})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < valid.Len(); i++ {
		rec, _ := valid.Record(i)
		if !strings.HasPrefix(rec.SegmentID, "Sess01_") {
			t.Fatalf("valid fold 0 holds %s", rec.SegmentID)
		}
	}
}

func TestGetLoadsExample(t *testing.T) {
	fx := newFixture(t)
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, MaxLengthWav: 8, ReturnBio: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ex, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ex.Partial {
		t.Fatalf("expected a complete example")
	}
	if ex.SegmentID != "Sess01_script01_User001M_001" || ex.Corpus != corpus.KEMDy20Name {
		t.Fatalf("unexpected identity %s/%s", ex.Corpus, ex.SegmentID)
	}
	if ex.SamplingRate != 16000 {
		t.Fatalf("sampling rate = %d", ex.SamplingRate)
	}
	if len(ex.Wav) != 8 {
		t.Fatalf("wav len = %d, want 8", len(ex.Wav))
	}
	if want := []int8{1, 1, 1, 1, 0, 0, 0, 0}; !reflect.DeepEqual(ex.WavMask, want) {
		t.Fatalf("wav mask = %v, want %v", ex.WavMask, want)
	}
	if math.Abs(float64(ex.Wav[0])-100.0/32768.0) > 1e-6 || ex.Wav[7] != 0 {
		t.Fatalf("unexpected samples %v", ex.Wav)
	}
	if ex.Text != "hello world" || ex.InputIDs != nil || ex.TextMask != nil {
		t.Fatalf("unexpected text fields %q %v %v", ex.Text, ex.InputIDs, ex.TextMask)
	}
	if ex.Label != emotion.Angry || ex.Probs != nil {
		t.Fatalf("label = %d probs = %v", ex.Label, ex.Probs)
	}
	if ex.Gender != emotion.GenderMale {
		t.Fatalf("gender = %d", ex.Gender)
	}
	if ex.Valence != 3.8 || ex.Arousal != 3.3 {
		t.Fatalf("valence/arousal = %v/%v", ex.Valence, ex.Arousal)
	}
	wantBio := map[string]float32{"ecg": 2, "e4-eda": 3}
	if !reflect.DeepEqual(ex.Bio, wantBio) {
		t.Fatalf("bio = %v, want %v", ex.Bio, wantBio)
	}
}

func TestGetUntruncatedWaveform(t *testing.T) {
	fx := newFixture(t)
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ex, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(ex.Wav) != 4 || ex.WavMask != nil || ex.Bio != nil {
		t.Fatalf("wav=%v mask=%v bio=%v", ex.Wav, ex.WavMask, ex.Bio)
	}
}

func TestGetMissingMediaReturnsPartial(t *testing.T) {
	missing := "Sess01_script01_User001M_001"
	fx := newFixture(t, missing)
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ex, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(ex, Example{SegmentID: missing, Partial: true}) {
		t.Fatalf("expected bare partial example, got %+v", ex)
	}
	if !strings.Contains(logs.String(), `"event_type":"missing_media"`) {
		t.Fatalf("expected missing_media warning, got %s", logs.String())
	}

	other, err := acc.Get(context.Background(), 1)
	if err != nil || other.Partial {
		t.Fatalf("neighbouring example should load: %+v %v", other, err)
	}
}

func TestRemoveDeuce(t *testing.T) {
	fx := newFixture(t)
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, RemoveDeuce: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if acc.Len() != 5 {
		t.Fatalf("len = %d, want 5", acc.Len())
	}
	for i := 0; i < acc.Len(); i++ {
		rec, _ := acc.Record(i)
		if emotion.IsDisputed(rec.Emotion) {
			t.Fatalf("disputed record %s kept", rec.SegmentID)
		}
	}
}

func TestNumDataPrefix(t *testing.T) {
	fx := newFixture(t)
	three := 3
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, NumData: &three})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if acc.Len() != 3 {
		t.Fatalf("len = %d, want 3", acc.Len())
	}

	cases := []struct{ n, size, want int }{
		{3, 10, 3},
		{0, 10, 0},
		{10, 10, 0},
		{-1, 50, 2},
		{-1, 90, 4},
		{-1, 70, 4},
		{100, 40, 2},
		{-1, 60, 3},
	}
	for _, tc := range cases {
		if got := prefixLen(tc.n, tc.size); got != tc.want {
			t.Fatalf("prefixLen(%d, %d) = %d, want %d", tc.n, tc.size, got, tc.want)
		}
	}
}

func TestMultilabelHardVote(t *testing.T) {
	fx := newFixture(t)
	fx.table.Records[2].Emotion = "xyz"
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, Multilabel: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fx.table.Multilabel || fx.table.Records[1].Votes != ([emotion.NumCategories]float64{}) {
		t.Fatalf("caller table must not be mutated")
	}

	ex, err := acc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	wantProbs := []float64{0, 0, 0, 0.5, 0.5, 0, 0}
	if !reflect.DeepEqual(ex.Probs, wantProbs) {
		t.Fatalf("probs = %v, want %v", ex.Probs, wantProbs)
	}
	if ex.Label != emotion.Happy {
		t.Fatalf("hard vote = %d, want happy", ex.Label)
	}

	single, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if single.Label != emotion.Angry || len(single.Probs) != emotion.NumCategories || single.Probs[emotion.Angry] != 1 {
		t.Fatalf("single vote example = %d %v", single.Label, single.Probs)
	}

	unknown, err := acc.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if unknown.Label != emotion.Unmappable || unknown.Probs != nil {
		t.Fatalf("unmappable example = %d %v", unknown.Label, unknown.Probs)
	}
}

func TestMultilabelTieUsesConfiguredCentroids(t *testing.T) {
	fx := newFixture(t)
	for i := range fx.table.Records {
		fx.table.Records[i].Valence = 0.6
		fx.table.Records[i].Arousal = 0.5
	}
	builtIn, _ := emotion.CentroidsFor(corpus.KEMDy20Name)
	table, err := builtIn.Override(map[string]emotion.Point{
		"neutral": {Valence: 0.0, Arousal: 0.0},
		"happy":   {Valence: 0.8, Arousal: 0.7},
	})
	if err != nil {
		t.Fatalf("Override: %v", err)
	}

	cases := []struct {
		name      string
		centroids *emotion.CentroidTable
		want      int
	}{
		{"built-in", nil, emotion.Neutral},
		{"override", &table, emotion.Happy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, Multilabel: true, Centroids: tc.centroids})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			ex, err := acc.Get(context.Background(), 1)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ex.Label != tc.want {
				t.Fatalf("label = %d, want %d", ex.Label, tc.want)
			}
		})
	}
}

func TestGetTokenizesText(t *testing.T) {
	fx := newFixture(t)
	path := testsupport.WriteVocab(t, t.TempDir(), "[PAD]", "[UNK]", "[CLS]", "[SEP]", "hello", "world")
	tok, err := tokenize.LoadVocab(path, tokenize.Options{})
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, Tokenizer: tok, MaxLengthText: 6})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ex, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := []int64{2, 4, 5, 3, 0, 0}; !reflect.DeepEqual(ex.InputIDs, want) {
		t.Fatalf("input ids = %v, want %v", ex.InputIDs, want)
	}
	if want := []int8{1, 1, 1, 1, 0, 0}; !reflect.DeepEqual(ex.TextMask, want) {
		t.Fatalf("text mask = %v, want %v", ex.TextMask, want)
	}
	if ex.Text != "hello world" {
		t.Fatalf("text = %q", ex.Text)
	}

	if _, err := New(fx.adapter, fx.table, Options{Fold: folds.All, Tokenizer: tok, MaxLengthText: 1}); err == nil {
		t.Fatalf("expected error for max_length_txt below 2")
	}
}

func TestGetUsesCache(t *testing.T) {
	fx := newFixture(t)
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All, CacheSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(fx.root, "wav")); err != nil {
		t.Fatalf("remove media: %v", err)
	}
	second, err := acc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.Partial || !reflect.DeepEqual(first, second) {
		t.Fatalf("expected cached example, got %+v", second)
	}
	uncached, err := acc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !uncached.Partial {
		t.Fatalf("expected partial example once media is gone")
	}
}

func TestGetErrors(t *testing.T) {
	fx := newFixture(t)
	acc, err := New(fx.adapter, fx.table, Options{Fold: folds.All})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := acc.Get(context.Background(), acc.Len()); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := acc.Get(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	fx.table.Records[0].SegmentID = "garbage"
	bad, err := New(fx.adapter, annotation.Table{Corpus: fx.table.Corpus, Records: fx.table.Records[:1]}, Options{Fold: folds.All})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := bad.Get(context.Background(), 0); !errors.Is(err, corpus.ErrMalformedSegmentID) {
		t.Fatalf("expected ErrMalformedSegmentID, got %v", err)
	}
}
