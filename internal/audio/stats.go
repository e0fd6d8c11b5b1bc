package audio

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"
)

// Summary describes the level distribution of a signal.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	RMS    float64
}

// ErrEmptySignal reports a summary request over no samples.
var ErrEmptySignal = errors.New("audio: empty signal")

// Summarize computes level statistics of samples.
func Summarize(samples []float32) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrEmptySignal
	}
	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		data[i] = float64(s)
	}
	return SummarizeFloat64(data)
}

// SummarizeFloat64 computes the same statistics over float64 values, such as
// per-segment durations.
func SummarizeFloat64(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptySignal
	}
	data := stats.Float64Data(values)
	mean, err := data.Mean()
	if err != nil {
		return Summary{}, err
	}
	std, err := data.StandardDeviationPopulation()
	if err != nil {
		return Summary{}, err
	}
	lo, err := data.Min()
	if err != nil {
		return Summary{}, err
	}
	hi, err := data.Max()
	if err != nil {
		return Summary{}, err
	}
	var sq float64
	for _, v := range data {
		sq += v * v
	}
	return Summary{
		Count:  len(data),
		Mean:   mean,
		StdDev: std,
		Min:    lo,
		Max:    hi,
		RMS:    math.Sqrt(sq / float64(len(data))),
	}, nil
}

// Normalize returns zero-mean, unit-variance samples. A silent or constant
// signal is only centred.
func Normalize(samples []float32) []float32 {
	out := make([]float32, len(samples))
	summary, err := Summarize(samples)
	if err != nil {
		return out
	}
	denom := summary.StdDev
	if denom < 1e-7 {
		denom = 1
	}
	for i, s := range samples {
		out[i] = float32((float64(s) - summary.Mean) / denom)
	}
	return out
}
