package preprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPEncoder delegates audio and text encoding to a remote service exposing
// POST /encode/audio and POST /encode/text.
type HTTPEncoder struct {
	baseURL       string
	client        *http.Client
	maxLengthWav  int
	maxLengthText int
}

// NewHTTPEncoder returns an encoder for baseURL.
func NewHTTPEncoder(baseURL string, timeout time.Duration, maxLengthWav, maxLengthText int) *HTTPEncoder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEncoder{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:        &http.Client{Timeout: timeout},
		maxLengthWav:  maxLengthWav,
		maxLengthText: maxLengthText,
	}
}

type audioRequest struct {
	Waves        [][]float32 `json:"waves"`
	SamplingRate int         `json:"sampling_rate"`
	MaxLength    int         `json:"max_length"`
}

type audioResponse struct {
	InputValues   [][]float32 `json:"input_values"`
	AttentionMask [][]int8    `json:"attention_mask"`
}

type textRequest struct {
	Texts     []string `json:"texts"`
	MaxLength int      `json:"max_length"`
}

type textResponse struct {
	InputIDs      [][]int64 `json:"input_ids"`
	AttentionMask [][]int8  `json:"attention_mask"`
}

// EncodeAudio implements AudioEncoder.
func (h *HTTPEncoder) EncodeAudio(ctx context.Context, clips [][]float32, samplingRate int) (AudioFeatures, error) {
	var out audioResponse
	req := audioRequest{Waves: clips, SamplingRate: samplingRate, MaxLength: h.maxLengthWav}
	if err := h.post(ctx, "/encode/audio", req, &out); err != nil {
		return AudioFeatures{}, err
	}
	if len(out.InputValues) != len(clips) || len(out.AttentionMask) != len(clips) {
		return AudioFeatures{}, fmt.Errorf("encode audio: got %d vectors for %d clips", len(out.InputValues), len(clips))
	}
	return AudioFeatures{Values: out.InputValues, Mask: out.AttentionMask}, nil
}

// EncodeText implements TextEncoder.
func (h *HTTPEncoder) EncodeText(ctx context.Context, texts []string) (TextFeatures, error) {
	var out textResponse
	if err := h.post(ctx, "/encode/text", textRequest{Texts: texts, MaxLength: h.maxLengthText}, &out); err != nil {
		return TextFeatures{}, err
	}
	if len(out.InputIDs) != len(texts) || len(out.AttentionMask) != len(texts) {
		return TextFeatures{}, fmt.Errorf("encode text: got %d sequences for %d texts", len(out.InputIDs), len(texts))
	}
	return TextFeatures{IDs: out.InputIDs, Mask: out.AttentionMask}, nil
}

func (h *HTTPEncoder) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", path, err)
	}
	return nil
}
