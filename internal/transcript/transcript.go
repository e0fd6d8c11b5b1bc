// Package transcript decodes utterance transcripts into UTF-8 text.
package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/korean"
)

// Auto selects the decoder per file by charset detection.
const Auto = "auto"

var (
	// ErrUnsupportedEncoding reports an encoding name with no decoder.
	ErrUnsupportedEncoding = errors.New("transcript: unsupported encoding")
	// ErrUndetectable reports that no detected charset produced valid text.
	ErrUndetectable = errors.New("transcript: unable to detect encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read loads the transcript at path and joins its lines with a single space.
func Read(path, enc string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	text, err := Decode(data, enc)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return JoinLines(text), nil
}

// JoinLines collapses a multi-line transcript into one line.
func JoinLines(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

// Decode converts data from the named encoding to UTF-8. An empty name or
// "utf-8" strips a leading byte order mark; "cp949" and "euc-kr" use the
// Korean decoder; "auto" detects the charset.
func Decode(data []byte, enc string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(enc))
	switch name {
	case "", "utf-8", "utf8":
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	case Auto:
		return detect(data)
	}
	decoder, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := decoder.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

// Lookup resolves an encoding name. cp949 is served by the EUC-KR decoder,
// which covers the unified Hangul code extension.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cp949", "euc-kr", "euckr", "ms949", "uhc":
		return korean.EUCKR, nil
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
	return e, nil
}

// Supported reports whether name can be passed to Decode.
func Supported(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", Auto:
		return true
	}
	_, err := Lookup(name)
	return err == nil
}

// detect tries UTF-8, then cp949, then the charsets reported by chardet in
// confidence order.
func detect(data []byte) (string, error) {
	trimmed := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(trimmed) {
		return string(trimmed), nil
	}
	if out, ok := tryDecode(korean.EUCKR, data); ok {
		return out, nil
	}
	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndetectable, err)
	}
	for _, result := range results {
		e, err := Lookup(result.Charset)
		if err != nil {
			continue
		}
		if out, ok := tryDecode(e, data); ok {
			return out, nil
		}
	}
	return "", ErrUndetectable
}

func tryDecode(e encoding.Encoding, data []byte) (string, bool) {
	out, err := e.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
