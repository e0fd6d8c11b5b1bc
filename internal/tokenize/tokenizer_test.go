package tokenize

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"hello", "world", "un", "##aff", "##able", "!", "안녕", "##하세요",
}

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func newTestTokenizer(t *testing.T, opts Options) *Subword {
	t.Helper()
	s, err := LoadVocab(writeVocab(t, testVocab), opts)
	if err != nil {
		t.Fatalf("LoadVocab: %v", err)
	}
	return s
}

func tokens(t *testing.T, s *Subword, text string) []string {
	t.Helper()
	got, err := s.Tokens(text)
	if err != nil {
		t.Fatalf("Tokens(%q): %v", text, err)
	}
	return got
}

func TestTokensSplitsPiecesAndPunctuation(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	got := tokens(t, s, "hello unaffable!  안녕하세요")
	want := []string{"hello", "un", "##aff", "##able", "!", "안녕", "##하세요"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestTokensUnknownWord(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	got := tokens(t, s, "hello xyz")
	want := []string{"hello", TokenUNK}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	if got := tokens(t, s, strings.Repeat("a", 101)); !reflect.DeepEqual(got, []string{TokenUNK}) {
		t.Fatalf("long word tokens = %v", got)
	}
}

func TestLowercase(t *testing.T) {
	cased := newTestTokenizer(t, Options{})
	if got := tokens(t, cased, "HELLO"); !reflect.DeepEqual(got, []string{TokenUNK}) {
		t.Fatalf("cased tokens = %v", got)
	}
	lower := newTestTokenizer(t, Options{Lowercase: true})
	if got := tokens(t, lower, "HELLO"); !reflect.DeepEqual(got, []string{"hello"}) {
		t.Fatalf("lowercased tokens = %v", got)
	}
}

func TestEncodePadsAndMasks(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	enc, err := s.Encode("hello world", 6)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wantIDs := []int64{2, 4, 5, 3, 0, 0}
	wantMask := []int8{1, 1, 1, 1, 0, 0}
	if !reflect.DeepEqual(enc.InputIDs, wantIDs) {
		t.Fatalf("ids = %v, want %v", enc.InputIDs, wantIDs)
	}
	if !reflect.DeepEqual(enc.AttentionMask, wantMask) {
		t.Fatalf("mask = %v, want %v", enc.AttentionMask, wantMask)
	}
}

func TestEncodeTruncates(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	enc, err := s.Encode("hello unaffable world", 4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wantIDs := []int64{2, 4, 6, 3}
	if !reflect.DeepEqual(enc.InputIDs, wantIDs) {
		t.Fatalf("ids = %v, want %v", enc.InputIDs, wantIDs)
	}
	for i, m := range enc.AttentionMask {
		if m != 1 {
			t.Fatalf("mask[%d] = %d, want 1", i, m)
		}
	}
}

func TestEncodeEmptyText(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	enc, err := s.Encode("", 3)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !reflect.DeepEqual(enc.InputIDs, []int64{2, 3, 0}) {
		t.Fatalf("ids = %v", enc.InputIDs)
	}
	if _, err := s.Encode("hello", 1); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestEncodeConcurrent(t *testing.T) {
	s := newTestTokenizer(t, Options{})
	want, err := s.Encode("hello unaffable world", 8)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Encode("hello unaffable world", 8)
			if err == nil && !reflect.DeepEqual(got, want) {
				err = errors.New("encoding differs between goroutines")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadVocabRequiresSpecials(t *testing.T) {
	if _, err := LoadVocab(writeVocab(t, nil), Options{}); !errors.Is(err, ErrEmptyVocab) {
		t.Fatalf("expected ErrEmptyVocab, got %v", err)
	}
	if _, err := LoadVocab(writeVocab(t, []string{"[PAD]", "[CLS]", "[SEP]"}), Options{}); !errors.Is(err, ErrMissingSpecial) {
		t.Fatalf("expected ErrMissingSpecial, got %v", err)
	}
	if _, err := LoadVocab(filepath.Join(t.TempDir(), "absent.txt"), Options{}); err == nil {
		t.Fatal("expected error for missing vocab file")
	}
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	s, err := Load(writeVocab(t, testVocab), Options{})
	if err != nil {
		t.Fatalf("Load(vocab.txt): %v", err)
	}
	encs, err := EncodeBatch(s, []string{"hello", "world"}, 4)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if len(encs) != 2 || encs[1].InputIDs[1] != 5 {
		t.Fatalf("unexpected batch %+v", encs)
	}

	broken := filepath.Join(t.TempDir(), "tokenizer.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write tokenizer.json: %v", err)
	}
	if _, err := Load(broken, Options{}); err == nil || !strings.Contains(err.Error(), "load tokenizer") {
		t.Fatalf("expected tokenizer.json load error, got %v", err)
	}
}
