package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"golang.org/x/text/encoding/korean"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteVocab writes a vocab.txt with one token per line under dir and
// returns its path.
func WriteVocab(t testing.TB, dir string, tokens ...string) string {
	t.Helper()

	path := filepath.Join(dir, "vocab.txt")
	WriteFile(t, path, []byte(strings.Join(tokens, "\n")+"\n"))
	return path
}

// WriteWAV writes 16-bit PCM samples to path. Multi-channel data is
// interleaved.
func WriteWAV(t testing.TB, path string, sampleRate, channels int, samples []int) {
	t.Helper()

	if channels <= 0 {
		channels = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("finalize %s: %v", path, err)
	}
}

// Ramp returns n samples rising by step from start.
func Ramp(n, start, step int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i*step
	}
	return out
}

// EncodeCP949 converts UTF-8 text to cp949 bytes.
func EncodeCP949(t testing.TB, text string) []byte {
	t.Helper()

	out, err := korean.EUCKR.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatalf("encode cp949: %v", err)
	}
	return out
}
