package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV reports a file that is not a decodable PCM WAV.
var ErrInvalidWAV = errors.New("audio: invalid wav file")

// Waveform is a mono signal.
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Load decodes the WAV file at path. Multi-channel audio is averaged into
// mono and samples are scaled by the bit depth into [-1, 1].
func Load(path string) (Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return Waveform{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Waveform{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Waveform{}, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return Waveform{}, fmt.Errorf("%w: %s: unsupported bit depth %d", ErrInvalidWAV, path, bitDepth)
	}

	return Waveform{
		SampleRate: int(dec.SampleRate),
		Samples:    toMono(buf.Data, channels, bitDepth),
	}, nil
}

func toMono(data []int, channels, bitDepth int) []float32 {
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit PCM is unsigned.
		offset = scale
	}
	frames := len(data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(data[i*channels+c]) - offset) / scale
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// Pad shapes samples to exactly maxLen values. Longer input is truncated with
// an all-ones mask; shorter input is zero-padded and the mask is zero over
// the padded tail. maxLen <= 0 returns the input unchanged and a nil mask.
func Pad(samples []float32, maxLen int) ([]float32, []int8) {
	if maxLen <= 0 {
		return samples, nil
	}
	out := make([]float32, maxLen)
	mask := make([]int8, maxLen)
	n := copy(out, samples)
	for i := 0; i < n; i++ {
		mask[i] = 1
	}
	return out, mask
}
