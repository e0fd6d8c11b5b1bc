package corpus_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/annotation"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/corpus"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/testsupport"
)

func TestNewUnknownCorpus(t *testing.T) {
	_, err := corpus.New("kemdy21", corpus.Settings{})
	if !errors.Is(err, corpus.ErrUnknownCorpus) {
		t.Fatalf("expected ErrUnknownCorpus, got %v", err)
	}
	if got := corpus.Names(); len(got) != 2 || got[0] != "kemdy19" || got[1] != "kemdy20" {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestAdapterDefaults(t *testing.T) {
	a19, err := corpus.New("KEMDy19", corpus.Settings{Root: "/data/KEMDy19"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if a19.NumSessions() != 20 || a19.TextEncoding() != "utf-8" || a19.Name() != "kemdy19" {
		t.Fatalf("unexpected kemdy19 defaults: %d %q %q", a19.NumSessions(), a19.TextEncoding(), a19.Name())
	}
	a20, err := corpus.New("kemdy20", corpus.Settings{NumSessions: 8, TextEncoding: "AUTO"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if a20.NumSessions() != 8 || a20.TextEncoding() != "auto" {
		t.Fatalf("settings not applied: %d %q", a20.NumSessions(), a20.TextEncoding())
	}
}

func TestKEMDy19Parse(t *testing.T) {
	adapter, _ := corpus.New("kemdy19", corpus.Settings{Root: "/data/KEMDy19"})
	id, err := adapter.Parse("Sess03_impro02_F011")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if id.Session != 3 || id.SessionToken != "Sess03" || id.Script != "impro02" || id.Speaker != "F011" {
		t.Fatalf("unexpected identifier: %+v", id)
	}
	if id.Gender != "F" || id.GenderIndex() != emotion.GenderFemale {
		t.Fatalf("unexpected gender: %q", id.Gender)
	}
	wantPrefix := filepath.Join("/data/KEMDy19", "wav", "Session03", "Sess03_impro02")
	if id.MediaPrefix != wantPrefix {
		t.Fatalf("MediaPrefix = %q, want %q", id.MediaPrefix, wantPrefix)
	}
	if id.WavPath() != filepath.Join(wantPrefix, "Sess03_impro02_F011.wav") {
		t.Fatalf("unexpected wav path %q", id.WavPath())
	}
	if id.TextPath() != filepath.Join(wantPrefix, "Sess03_impro02_F011.txt") {
		t.Fatalf("unexpected text path %q", id.TextPath())
	}
}

func TestKEMDy20Parse(t *testing.T) {
	adapter, _ := corpus.New("kemdy20", corpus.Settings{Root: "/data/KEMDy20_v1_1"})
	id, err := adapter.Parse("Sess12_script05_User024M_017")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if id.Session != 12 || id.Speaker != "User024M" || id.Gender != "M" || id.GenderIndex() != emotion.GenderMale {
		t.Fatalf("unexpected identifier: %+v", id)
	}
	if id.MediaPrefix != filepath.Join("/data/KEMDy20_v1_1", "wav", "Session12") {
		t.Fatalf("unexpected prefix %q", id.MediaPrefix)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	adapter, _ := corpus.New("kemdy20", corpus.Settings{Root: "/r"})
	a, _ := adapter.Parse("Sess01_script01_User002F_001")
	b, _ := adapter.Parse("Sess01_script01_User002F_001")
	if a != b {
		t.Fatalf("parse not deterministic: %+v vs %+v", a, b)
	}
}

func TestParseMalformed(t *testing.T) {
	a19, _ := corpus.New("kemdy19", corpus.Settings{})
	a20, _ := corpus.New("kemdy20", corpus.Settings{})
	cases := []struct {
		adapter corpus.Adapter
		id      string
	}{
		{a19, "Sess01_script01"},
		{a19, "SessXY_script01_M001"},
		{a19, "Sess01__M001"},
		{a20, "Sess01_script01_M001"},
		{a20, "S_script01_User002M_001"},
	}
	for _, tc := range cases {
		if _, err := tc.adapter.Parse(tc.id); !errors.Is(err, corpus.ErrMalformedSegmentID) {
			t.Fatalf("%s Parse(%q): expected ErrMalformedSegmentID, got %v", tc.adapter.Name(), tc.id, err)
		}
	}
}

func TestSessionNumber(t *testing.T) {
	session, token, err := corpus.SessionNumber("Sess40_script06_User080F_040")
	if err != nil || session != 40 || token != "Sess40" {
		t.Fatalf("SessionNumber = %d %q %v", session, token, err)
	}
	if _, _, err := corpus.SessionNumber("x"); !errors.Is(err, corpus.ErrMalformedSegmentID) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestKEMDy19MergeRaw(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteKEMDy19Table(t, root, "Sess02_eval.csv", []testsupport.Segment{
		{ID: "Sess02_script01_M001", Emotion: "sad", Valence: 1.5, Arousal: 2},
	})
	testsupport.WriteKEMDy19Table(t, root, "Sess01_eval.csv", []testsupport.Segment{
		{ID: "Sess01_script01_F001", Emotion: "neutral", Valence: 3, Arousal: 3},
		{ID: "Sess01_script01_M002", Emotion: "happy;neutral", Valence: 3.6, Arousal: 3.1},
	})

	adapter, _ := corpus.New("kemdy19", corpus.Settings{Root: root})
	records, err := adapter.MergeRaw(context.Background(), root)
	if err != nil {
		t.Fatalf("MergeRaw returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	order := []string{"Sess01_script01_F001", "Sess01_script01_M002", "Sess02_script01_M001"}
	for i, want := range order {
		if records[i].SegmentID != want {
			t.Fatalf("record %d = %q, want %q (sorted file order)", i, records[i].SegmentID, want)
		}
	}
	rec := records[1]
	if rec.Emotion != "happy;neutral" || rec.Valence != 3.6 || rec.Arousal != 3.1 || rec.Numb != "2" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.Wav.Valid || rec.Wav.Start != 1 || rec.Wav.End != 3.5 {
		t.Fatalf("unexpected wav interval: %+v", rec.Wav)
	}
	ecg := rec.Bio[annotation.BioECG]
	if !ecg.Valid || ecg.Midpoint() != 2 {
		t.Fatalf("unexpected ecg interval: %+v", ecg)
	}
	if temp := rec.Bio[annotation.BioTemp]; temp.Midpoint() != 31 {
		t.Fatalf("unexpected temp midpoint: %v", temp.Midpoint())
	}
}

func TestKEMDy20MergeRawPositional(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteKEMDy20Table(t, root, "Sess01_eval.csv", []testsupport.Segment{
		{ID: "Sess01_script01_User002M_001", Emotion: "angry", Valence: 1.8, Arousal: 4.2},
		{ID: "Sess01_script01_User002M_002", Emotion: "fear", Valence: 2, Arousal: 3.9},
	})
	adapter, _ := corpus.New("kemdy20", corpus.Settings{Root: root})
	records, err := adapter.MergeRaw(context.Background(), root)
	if err != nil {
		t.Fatalf("MergeRaw returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Emotion != "angry" || records[0].Valence != 1.8 || records[0].Arousal != 4.2 {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[0].Bio != nil {
		t.Fatalf("kemdy20 rows carry no bio intervals, got %+v", records[0].Bio)
	}
}

func TestMergeRawDropsDuplicates(t *testing.T) {
	root := t.TempDir()
	seg := testsupport.Segment{ID: "Sess01_script01_F001", Emotion: "neutral", Valence: 3, Arousal: 3}
	dup := seg
	dup.Emotion = "sad"
	testsupport.WriteKEMDy19Table(t, root, "Sess01_a.csv", []testsupport.Segment{seg})
	testsupport.WriteKEMDy19Table(t, root, "Sess01_b.csv", []testsupport.Segment{dup})

	adapter, _ := corpus.New("kemdy19", corpus.Settings{Root: root})
	records, err := adapter.MergeRaw(context.Background(), root)
	if err != nil {
		t.Fatalf("MergeRaw returned error: %v", err)
	}
	if len(records) != 1 || records[0].Emotion != "neutral" {
		t.Fatalf("expected the first occurrence only, got %+v", records)
	}
}

func TestMergeRawStripsBOM(t *testing.T) {
	root := t.TempDir()
	content := "Numb,Wav,,ECG,,E4-EDA,,E4-TEMP,,Segment ID,Total Evaluation,,\n" +
		"1,0.0,1.5,,,,,,,Sess01_script01_F001,sad,2,4\n"
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(content)...)
	testsupport.WriteFile(t, filepath.Join(root, "annotation", "Sess01_eval.csv"), data)

	adapter, _ := corpus.New("kemdy19", corpus.Settings{Root: root})
	records, err := adapter.MergeRaw(context.Background(), root)
	if err != nil {
		t.Fatalf("MergeRaw returned error: %v", err)
	}
	if len(records) != 1 || records[0].Numb != "1" {
		t.Fatalf("expected Numb bound despite the byte order mark, got %+v", records)
	}
	if records[0].Bio[annotation.BioECG].Valid {
		t.Fatal("blank ecg cells should yield an invalid interval")
	}
}

func TestMergeRawDecodesCP949Tables(t *testing.T) {
	root := t.TempDir()
	content := "Numb,Wav,,Segment ID,Total Evaluation,,\n" +
		",시작,끝,,감정,긍정,각성\n" +
		"1,0.0,1.5,Sess01_script01_User002M_001,neutral,3,3\n"
	testsupport.WriteFile(t, filepath.Join(root, "annotation", "Sess01_eval.csv"), testsupport.EncodeCP949(t, content))

	adapter, _ := corpus.New("kemdy20", corpus.Settings{Root: root})
	records, err := adapter.MergeRaw(context.Background(), root)
	if err != nil {
		t.Fatalf("MergeRaw returned error: %v", err)
	}
	if len(records) != 1 || records[0].SegmentID != "Sess01_script01_User002M_001" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestMergeRawMissingInput(t *testing.T) {
	adapter, _ := corpus.New("kemdy19", corpus.Settings{})
	_, err := adapter.MergeRaw(context.Background(), t.TempDir())
	if !errors.Is(err, annotation.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestMergeRawHeaderWithoutRequiredColumns(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "annotation", "Sess01.csv"), []byte("Numb,Wav\n1,0.0\n"))
	adapter, _ := corpus.New("kemdy19", corpus.Settings{})
	if _, err := adapter.MergeRaw(context.Background(), root); err == nil {
		t.Fatal("expected error for header without segment id")
	}
}

func TestMergeRawHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteKEMDy19Table(t, root, "Sess01.csv", []testsupport.Segment{{ID: "Sess01_a_M001", Emotion: "sad"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	adapter, _ := corpus.New("kemdy19", corpus.Settings{})
	if _, err := adapter.MergeRaw(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMergerRebuildsCacheFromAdapter(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteKEMDy19Table(t, root, "Sess01_eval.csv", []testsupport.Segment{
		{ID: "Sess01_script01_F001", Emotion: "neutral;happy", Valence: 3.5, Arousal: 3},
	})
	adapter, _ := corpus.New("kemdy19", corpus.Settings{Root: root})
	merger, err := annotation.NewMerger(adapter, annotation.MergerOptions{
		Root:       root,
		CachePath:  filepath.Join(t.TempDir(), "kemdy19.csv"),
		Multilabel: true,
	})
	if err != nil {
		t.Fatalf("NewMerger returned error: %v", err)
	}
	table, err := merger.Ensure(context.Background(), false)
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if !table.Multilabel || table.Len() != 1 {
		t.Fatalf("unexpected table: %+v", table)
	}
	votes := table.Records[0].Votes
	if votes[emotion.Neutral] != 1 || votes[emotion.Happy] != 1 {
		t.Fatalf("unexpected votes: %v", votes)
	}
}
