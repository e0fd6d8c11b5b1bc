package preprocess

import (
	"context"
	"errors"
	"fmt"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/audio"
	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/tokenize"
)

// ErrSamplingRate reports audio recorded at a rate the encoder does not accept.
var ErrSamplingRate = errors.New("preprocess: unexpected sampling rate")

// AudioFeatures holds one encoded vector and mask per clip.
type AudioFeatures struct {
	Values [][]float32
	Mask   [][]int8
}

// TextFeatures holds one id sequence and mask per text.
type TextFeatures struct {
	IDs  [][]int64
	Mask [][]int8
}

// AudioEncoder turns unpadded mono clips into fixed-length features.
type AudioEncoder interface {
	EncodeAudio(ctx context.Context, clips [][]float32, samplingRate int) (AudioFeatures, error)
}

// TextEncoder turns transcripts into fixed-length id sequences.
type TextEncoder interface {
	EncodeText(ctx context.Context, texts []string) (TextFeatures, error)
}

// FeatureExtractor normalizes each clip to zero mean and unit variance, then
// pads or truncates it to MaxLength.
type FeatureExtractor struct {
	SamplingRate int
	MaxLength    int
}

// EncodeAudio implements AudioEncoder.
func (f FeatureExtractor) EncodeAudio(ctx context.Context, clips [][]float32, samplingRate int) (AudioFeatures, error) {
	if f.SamplingRate > 0 && samplingRate != f.SamplingRate {
		return AudioFeatures{}, fmt.Errorf("%w: got %d Hz, want %d Hz", ErrSamplingRate, samplingRate, f.SamplingRate)
	}
	out := AudioFeatures{
		Values: make([][]float32, len(clips)),
		Mask:   make([][]int8, len(clips)),
	}
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return AudioFeatures{}, err
		}
		out.Values[i], out.Mask[i] = audio.Pad(audio.Normalize(clip), f.MaxLength)
	}
	return out, nil
}

// TokenizerEncoder encodes text with a local tokenizer.
type TokenizerEncoder struct {
	Tokenizer tokenize.Tokenizer
	MaxLength int
}

// EncodeText implements TextEncoder.
func (e TokenizerEncoder) EncodeText(ctx context.Context, texts []string) (TextFeatures, error) {
	if e.Tokenizer == nil {
		return TextFeatures{}, errors.New("preprocess: text encoder has no tokenizer")
	}
	if err := ctx.Err(); err != nil {
		return TextFeatures{}, err
	}
	encs, err := tokenize.EncodeBatch(e.Tokenizer, texts, e.MaxLength)
	if err != nil {
		return TextFeatures{}, err
	}
	out := TextFeatures{
		IDs:  make([][]int64, len(encs)),
		Mask: make([][]int8, len(encs)),
	}
	for i, enc := range encs {
		out.IDs[i] = enc.InputIDs
		out.Mask[i] = enc.AttentionMask
	}
	return out, nil
}

// unpad strips the padded tail marked by mask.
func unpad(wav []float32, mask []int8) []float32 {
	if mask == nil {
		return wav
	}
	n := 0
	for n < len(mask) && n < len(wav) && mask[n] == 1 {
		n++
	}
	return wav[:n]
}
