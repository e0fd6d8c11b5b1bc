package emotion

import (
	"errors"
	"math"
	"strings"
)

// VoteSeparator joins multi-annotator votes in raw emotion fields.
const VoteSeparator = ";"

// ErrNoVotes reports a vote vector whose total is zero.
var ErrNoVotes = errors.New("emotion: vote vector has no votes")

// Resolver converts raw emotion fields into labels for one corpus.
type Resolver struct {
	corpus       string
	centroids    CentroidTable
	hasCentroids bool
}

// NewResolver builds a resolver using the corpus' built-in centroid table.
func NewResolver(corpus string) Resolver {
	table, ok := CentroidsFor(corpus)
	return Resolver{corpus: corpus, centroids: table, hasCentroids: ok}
}

// NewResolverWithCentroids builds a resolver with an explicit centroid table.
func NewResolverWithCentroids(corpus string, table CentroidTable) Resolver {
	return Resolver{corpus: corpus, centroids: table, hasCentroids: true}
}

// Corpus returns the corpus the resolver was built for.
func (r Resolver) Corpus() string {
	return r.corpus
}

// Index maps a single-label field to its category index. Vote strings and
// unknown names return Unmappable.
func (r Resolver) Index(field string) int {
	return Index(field)
}

// ParseVotes counts the categories named in a raw vote string. Unknown names
// are ignored and reported through the second return value.
func ParseVotes(field string) ([NumCategories]float64, int) {
	var votes [NumCategories]float64
	unknown := 0
	for _, part := range strings.Split(field, VoteSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := Index(part)
		if idx == Unmappable {
			unknown++
			continue
		}
		votes[idx]++
	}
	return votes, unknown
}

// IsDisputed reports whether the raw field carries more than one vote.
func IsDisputed(field string) bool {
	return strings.Contains(field, VoteSeparator)
}

// Vectorize normalizes per-category vote counts into a probability vector.
func Vectorize(votes []float64) ([]float64, error) {
	var total float64
	for _, v := range votes {
		total += v
	}
	if total == 0 {
		return nil, ErrNoVotes
	}
	out := make([]float64, len(votes))
	for i, v := range votes {
		out[i] = v / total
	}
	return out, nil
}

// HardVote collapses a probability vector into a single category. When more
// than one category holds the maximum share, the category whose centroid is
// closest to (valence, arousal) wins; exact distance ties go to the lowest
// index. Without a centroid table the lowest tied index wins.
func (r Resolver) HardVote(probs []float64, valence, arousal float64) int {
	if len(probs) == 0 {
		return Unmappable
	}
	best := probs[0]
	for _, p := range probs[1:] {
		if p > best {
			best = p
		}
	}
	tied := make([]int, 0, len(probs))
	for idx, p := range probs {
		if p == best {
			tied = append(tied, idx)
		}
	}
	if len(tied) == 1 || !r.hasCentroids {
		return tied[0]
	}

	winner := Unmappable
	minDist := math.Inf(1)
	for _, idx := range tied {
		if idx >= NumCategories {
			continue
		}
		c := r.centroids[idx]
		dist := math.Hypot(valence-c.Valence, arousal-c.Arousal)
		if dist < minDist {
			minDist = dist
			winner = idx
		}
	}
	if winner == Unmappable {
		return tied[0]
	}
	return winner
}
