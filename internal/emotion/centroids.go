package emotion

import (
	"errors"
	"fmt"
	"strings"
)

// Point is a location in valence/arousal space.
type Point struct {
	Valence float64
	Arousal float64
}

// CentroidTable holds one reference point per category.
type CentroidTable [NumCategories]Point

// ErrUnknownCategory reports a centroid override naming no category.
var ErrUnknownCategory = errors.New("emotion: unknown category")

// Built-in centroids are approximate defaults on the corpora's 1-5 rating
// scale. Deployments with reference centroids should set them through the
// centroids section of the configuration.
var (
	kemdy19Centroids = CentroidTable{
		Surprise: {Valence: 3.35, Arousal: 3.62},
		Fear:     {Valence: 2.12, Arousal: 3.41},
		Angry:    {Valence: 1.86, Arousal: 3.78},
		Neutral:  {Valence: 3.02, Arousal: 2.74},
		Happy:    {Valence: 3.94, Arousal: 3.35},
		Sad:      {Valence: 1.98, Arousal: 2.51},
		Disgust:  {Valence: 2.05, Arousal: 3.19},
	}
	kemdy20Centroids = CentroidTable{
		Surprise: {Valence: 3.28, Arousal: 3.55},
		Fear:     {Valence: 2.25, Arousal: 3.33},
		Angry:    {Valence: 1.95, Arousal: 3.67},
		Neutral:  {Valence: 3.05, Arousal: 2.88},
		Happy:    {Valence: 3.87, Arousal: 3.29},
		Sad:      {Valence: 2.10, Arousal: 2.62},
		Disgust:  {Valence: 2.18, Arousal: 3.12},
	}
)

// CentroidsFor returns the centroid table of a corpus. Corpora without
// valence/arousal annotations report false.
func CentroidsFor(corpus string) (CentroidTable, bool) {
	switch strings.ToLower(strings.TrimSpace(corpus)) {
	case "kemdy19":
		return kemdy19Centroids, true
	case "kemdy20":
		return kemdy20Centroids, true
	default:
		return CentroidTable{}, false
	}
}

// Override returns a copy of t with the named categories moved to the given
// points. Names are matched case-insensitively.
func (t CentroidTable) Override(points map[string]Point) (CentroidTable, error) {
	out := t
	for name, p := range points {
		idx := Index(name)
		if idx == Unmappable {
			return t, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
		out[idx] = p
	}
	return out, nil
}
