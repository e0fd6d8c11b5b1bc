package tokenize

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Special tokens a vocab.txt must contain.
const (
	TokenCLS = "[CLS]"
	TokenSEP = "[SEP]"
	TokenPAD = "[PAD]"
	TokenUNK = "[UNK]"
)

var (
	// ErrEmptyVocab reports a vocabulary without tokens.
	ErrEmptyVocab = errors.New("tokenize: vocabulary is empty")
	// ErrMissingSpecial reports a vocabulary lacking a required special token.
	ErrMissingSpecial = errors.New("tokenize: vocabulary lacks special token")
	// ErrInvalidLength reports a max length too small for [CLS] and [SEP].
	ErrInvalidLength = errors.New("tokenize: max length must be at least 2")
)

// Encoding is a fixed-length tokenized text.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int8
}

// Tokenizer encodes text into exactly maxLen ids.
type Tokenizer interface {
	Encode(text string, maxLen int) (Encoding, error)
}

// Options tunes text normalization of vocab.txt tokenizers. A tokenizer.json
// carries its own normalizer.
type Options struct {
	Lowercase bool
}

// Subword wraps a loaded subword model. Special tokens are added here rather
// than by the model's post-processor so every model yields the same layout.
type Subword struct {
	mu  sync.Mutex
	tk  *tokenizer.Tokenizer
	cls int64
	sep int64
	pad int64
}

// specialAliases lists the names tried for each special token; RoBERTa
// style tokenizer.json files use the angle bracket forms.
var specialAliases = [3][]string{
	{TokenCLS, "<s>"},
	{TokenSEP, "</s>"},
	{TokenPAD, "<pad>"},
}

// Load picks LoadPretrained for .json files and LoadVocab otherwise.
func Load(path string, opts Options) (*Subword, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadPretrained(path)
	}
	return LoadVocab(path, opts)
}

// LoadVocab builds a BERT WordPiece tokenizer from a vocab.txt file (one
// token per line, the line number is the id). Accents are kept so Hangul
// syllables reach the model intact.
func LoadVocab(path string, opts Options) (*Subword, error) {
	if err := checkVocab(path); err != nil {
		return nil, err
	}
	model, err := wordpiece.NewWordPieceFromFile(path, TokenUNK)
	if err != nil {
		return nil, fmt.Errorf("load vocab %s: %w", path, err)
	}
	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, opts.Lowercase, true, false))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	return wrap(tk)
}

// LoadPretrained reads a Hugging Face tokenizer.json. Truncation and padding
// stored in the file are ignored; Encode applies its own.
func LoadPretrained(path string) (*Subword, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	tk.WithTruncation(nil)
	tk.WithPadding(nil)
	return wrap(tk)
}

func wrap(tk *tokenizer.Tokenizer) (*Subword, error) {
	s := &Subword{tk: tk}
	for i, dst := range []*int64{&s.cls, &s.sep, &s.pad} {
		id, ok := lookup(tk, specialAliases[i])
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrMissingSpecial, specialAliases[i][0])
		}
		*dst = int64(id)
	}
	return s, nil
}

func lookup(tk *tokenizer.Tokenizer, names []string) (int, bool) {
	for _, name := range names {
		if id, ok := tk.TokenToId(name); ok {
			return id, true
		}
	}
	return 0, false
}

// checkVocab rejects empty vocabularies and ones missing a special token
// before the model sees them.
func checkVocab(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vocab: %w", err)
	}
	defer file.Close()

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if token := strings.TrimSpace(scanner.Text()); token != "" {
			seen[token] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read vocab: %w", err)
	}
	if len(seen) == 0 {
		return ErrEmptyVocab
	}
	for _, special := range []string{TokenCLS, TokenSEP, TokenPAD, TokenUNK} {
		if !seen[special] {
			return fmt.Errorf("%w %s", ErrMissingSpecial, special)
		}
	}
	return nil
}

// Tokens splits text into subword pieces without special tokens.
func (s *Subword) Tokens(text string) ([]string, error) {
	enc, err := s.encode(text)
	if err != nil || enc == nil {
		return nil, err
	}
	return enc.Tokens, nil
}

// Encode produces [CLS] pieces [SEP] truncated to maxLen and right-padded
// with [PAD]. The attention mask is 1 for real tokens and 0 for padding.
func (s *Subword) Encode(text string, maxLen int) (Encoding, error) {
	if maxLen < 2 {
		return Encoding{}, fmt.Errorf("%w: got %d", ErrInvalidLength, maxLen)
	}
	raw, err := s.encode(text)
	if err != nil {
		return Encoding{}, err
	}
	var ids []int
	if raw != nil {
		ids = raw.Ids
	}
	if len(ids) > maxLen-2 {
		ids = ids[:maxLen-2]
	}

	enc := Encoding{
		InputIDs:      make([]int64, maxLen),
		AttentionMask: make([]int8, maxLen),
	}
	enc.InputIDs[0] = s.cls
	for i, id := range ids {
		enc.InputIDs[i+1] = int64(id)
	}
	used := len(ids) + 2
	enc.InputIDs[used-1] = s.sep
	for i := 0; i < used; i++ {
		enc.AttentionMask[i] = 1
	}
	for i := used; i < maxLen; i++ {
		enc.InputIDs[i] = s.pad
	}
	return enc, nil
}

// encode returns nil for blank text.
func (s *Subword) encode(text string) (*tokenizer.Encoding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enc, err := s.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return enc, nil
}

// EncodeBatch encodes every text with the same length.
func EncodeBatch(tok Tokenizer, texts []string, maxLen int) ([]Encoding, error) {
	out := make([]Encoding, 0, len(texts))
	for i, text := range texts {
		enc, err := tok.Encode(text, maxLen)
		if err != nil {
			return nil, fmt.Errorf("encode text %d: %w", i, err)
		}
		out = append(out, enc)
	}
	return out, nil
}
