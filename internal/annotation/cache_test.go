package annotation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

func sampleTable() Table {
	return Table{
		Corpus: "kemdy19",
		Records: []Record{
			{
				Numb:      "1",
				SegmentID: "Sess01_script01_F001",
				Emotion:   "neutral",
				Valence:   3,
				Arousal:   2.5,
				Wav:       Interval{Start: 0, End: 1.25, Valid: true},
				Bio: map[BioSignal]Interval{
					BioECG:  {Start: 1, End: 3, Valid: true},
					BioEDA:  {Start: 2, End: 4, Valid: true},
					BioTemp: {},
				},
			},
			{
				Numb:      "2",
				SegmentID: "Sess01_script01_M002",
				Emotion:   "happy;neutral",
				Valence:   3.6,
				Arousal:   3.1,
			},
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kemdy19.csv")
	want := sampleTable()
	if err := WriteCache(path, want); err != nil {
		t.Fatalf("WriteCache returned error: %v", err)
	}

	state := ValidateCache(path, "kemdy19", false)
	if state.Status != CacheValid {
		t.Fatalf("status = %s (%v), want valid", state.Status, state.Err)
	}
	got := state.Table
	if got.Len() != 2 || got.Multilabel {
		t.Fatalf("unexpected table: %+v", got)
	}
	first := got.Records[0]
	if first.SegmentID != "Sess01_script01_F001" || first.Valence != 3 || first.Arousal != 2.5 || first.Numb != "1" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Wav != want.Records[0].Wav {
		t.Fatalf("wav interval = %+v, want %+v", first.Wav, want.Records[0].Wav)
	}
	if first.Bio[BioECG].Midpoint() != 2 || first.Bio[BioTemp].Valid {
		t.Fatalf("unexpected bio intervals: %+v", first.Bio)
	}
	if got.Records[1].Emotion != "happy;neutral" || got.Records[1].Wav.Valid {
		t.Fatalf("unexpected second record: %+v", got.Records[1])
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file should be renamed away, stat err = %v", err)
	}
}

func TestMultilabelCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kemdy20.csv")
	table := sampleTable()
	table.ExpandVotes()
	if err := WriteCache(path, table); err != nil {
		t.Fatalf("WriteCache returned error: %v", err)
	}
	data, _ := os.ReadFile(path)
	header := strings.SplitN(string(data), "\n", 2)[0]
	for _, name := range emotion.Names() {
		if !strings.Contains(header, name) {
			t.Fatalf("header %q lacks %s column", header, name)
		}
	}

	state := ValidateCache(path, "kemdy20", true)
	if state.Status != CacheValid {
		t.Fatalf("status = %s (%v), want valid", state.Status, state.Err)
	}
	votes := state.Table.Records[1].Votes
	if votes[emotion.Happy] != 1 || votes[emotion.Neutral] != 1 || votes[emotion.Sad] != 0 {
		t.Fatalf("unexpected votes: %v", votes)
	}
}

func TestValidateCacheStates(t *testing.T) {
	dir := t.TempDir()

	if state := ValidateCache(filepath.Join(dir, "missing.csv"), "kemdy19", false); state.Status != CacheMissing {
		t.Fatalf("missing file: status = %s", state.Status)
	}

	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, nil, 0o644)
	state := ValidateCache(empty, "kemdy19", false)
	if state.Status != CacheStale || !errors.Is(state.Err, ErrEmptyCache) {
		t.Fatalf("empty file: status = %s err = %v", state.Status, state.Err)
	}

	headerOnly := filepath.Join(dir, "header.csv")
	os.WriteFile(headerOnly, []byte("segment_id,emotion,valence,arousal\n"), 0o644)
	state = ValidateCache(headerOnly, "kemdy19", false)
	if state.Status != CacheStale || !errors.Is(state.Err, ErrEmptyCache) {
		t.Fatalf("header-only file: status = %s err = %v", state.Status, state.Err)
	}

	wrongSchema := filepath.Join(dir, "schema.csv")
	os.WriteFile(wrongSchema, []byte("id,label\nSess01_a_M001,sad\n"), 0o644)
	if state := ValidateCache(wrongSchema, "kemdy19", false); state.Status != CacheStale {
		t.Fatalf("wrong schema: status = %s", state.Status)
	}

	badNumber := filepath.Join(dir, "number.csv")
	os.WriteFile(badNumber, []byte("segment_id,emotion,valence,arousal\nSess01_a_M001,sad,high,3\n"), 0o644)
	if state := ValidateCache(badNumber, "kemdy19", false); state.Status != CacheStale {
		t.Fatalf("unparsable valence: status = %s", state.Status)
	}

	single := filepath.Join(dir, "single.csv")
	if err := WriteCache(single, sampleTable()); err != nil {
		t.Fatalf("WriteCache returned error: %v", err)
	}
	if state := ValidateCache(single, "kemdy19", true); state.Status != CacheStale {
		t.Fatalf("single-label cache requested as multilabel: status = %s", state.Status)
	}
}

func TestWriteCacheFailsWhenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kemdy19.csv")
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire test lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if err := WriteCache(path, sampleTable()); !errors.Is(err, ErrCacheLocked) {
		t.Fatalf("expected ErrCacheLocked, got %v", err)
	}
}

func TestParseInterval(t *testing.T) {
	if iv := ParseInterval("1.5", "2.5"); !iv.Valid || iv.Midpoint() != 2 {
		t.Fatalf("unexpected interval %+v", iv)
	}
	if iv := ParseInterval("", "2.5"); iv.Valid {
		t.Fatal("blank start should be invalid")
	}
	if iv := ParseInterval("a", "b"); iv.Valid {
		t.Fatal("non-numeric bounds should be invalid")
	}
}

func TestCacheStatusString(t *testing.T) {
	if CacheValid.String() != "valid" || CacheStale.String() != "stale" || CacheMissing.String() != "missing" {
		t.Fatal("unexpected status names")
	}
}
