package emotion_test

import (
	"errors"
	"math"
	"testing"

	"github.com/git-ThLee/MulitmodalERC-TensorMixerNetwork-Kaggle/internal/emotion"
)

func TestIndexMapsVocabularyAndSentinel(t *testing.T) {
	cases := map[string]int{
		"surprise":  emotion.Surprise,
		"fear":      emotion.Fear,
		"angry":     emotion.Angry,
		"neutral":   emotion.Neutral,
		" Happy ":   emotion.Happy,
		"sad":       emotion.Sad,
		"disgust":   emotion.Disgust,
		"disqust":   emotion.Unmappable,
		"":          emotion.Unmappable,
		"happy;sad": emotion.Unmappable,
	}
	r := emotion.NewResolver("kemdy19")
	for field, want := range cases {
		if got := r.Index(field); got != want {
			t.Fatalf("Index(%q) = %d, want %d", field, got, want)
		}
	}
}

func TestGenderIndex(t *testing.T) {
	if emotion.GenderIndex("M") != emotion.GenderMale {
		t.Fatal("expected M to map to male")
	}
	if emotion.GenderIndex("f") != emotion.GenderFemale {
		t.Fatal("expected f to map to female")
	}
	if emotion.GenderIndex("X") != emotion.Unmappable {
		t.Fatal("expected unknown gender to be unmappable")
	}
}

func TestParseVotesCountsCategories(t *testing.T) {
	votes, unknown := emotion.ParseVotes("neutral;happy;neutral;bored")
	if votes[emotion.Neutral] != 2 || votes[emotion.Happy] != 1 {
		t.Fatalf("unexpected votes: %v", votes)
	}
	if unknown != 1 {
		t.Fatalf("expected one unknown vote, got %d", unknown)
	}
	if !emotion.IsDisputed("neutral;happy") || emotion.IsDisputed("neutral") {
		t.Fatal("IsDisputed mismatch")
	}
}

func TestVectorizeSumsToOne(t *testing.T) {
	inputs := [][]float64{
		{0, 0, 0, 2, 2, 0, 0},
		{1, 1, 1, 1, 1, 1, 1},
		{0, 3, 0, 0, 0, 0, 7},
		{0, 0, 0, 0, 0, 0, 10},
	}
	for _, votes := range inputs {
		probs, err := emotion.Vectorize(votes)
		if err != nil {
			t.Fatalf("Vectorize(%v): %v", votes, err)
		}
		var sum float64
		for _, p := range probs {
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("Vectorize(%v) sums to %v", votes, sum)
		}
	}
	if _, err := emotion.Vectorize(make([]float64, emotion.NumCategories)); !errors.Is(err, emotion.ErrNoVotes) {
		t.Fatalf("expected ErrNoVotes, got %v", err)
	}
}

func TestHardVoteSingleMaximum(t *testing.T) {
	r := emotion.NewResolver("kemdy20")
	probs := []float64{0, 0, 0.25, 0.5, 0.25, 0, 0}
	if got := r.HardVote(probs, 1, 1); got != emotion.Neutral {
		t.Fatalf("HardVote = %d, want neutral", got)
	}
}

func TestHardVoteBreaksTieByCentroidDistance(t *testing.T) {
	table := emotion.CentroidTable{}
	table[emotion.Neutral] = emotion.Point{Valence: 0.0, Arousal: 0.0}
	table[emotion.Happy] = emotion.Point{Valence: 0.8, Arousal: 0.7}
	r := emotion.NewResolverWithCentroids("kemdy20", table)

	probs, err := emotion.Vectorize([]float64{0, 0, 0, 2, 2, 0, 0})
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if got := r.HardVote(probs, 0.6, 0.5); got != emotion.Happy {
		t.Fatalf("HardVote = %d, want happy", got)
	}
	if got := r.HardVote(probs, 0.1, 0.2); got != emotion.Neutral {
		t.Fatalf("HardVote = %d, want neutral", got)
	}
}

func TestHardVoteUsesBuiltInCentroids(t *testing.T) {
	for _, corpus := range []string{"kemdy19", "kemdy20"} {
		table, ok := emotion.CentroidsFor(corpus)
		if !ok {
			t.Fatalf("expected centroids for %s", corpus)
		}
		r := emotion.NewResolver(corpus)
		probs := []float64{0, 0, 0, 0.5, 0.5, 0, 0}
		happy := table[emotion.Happy]
		if got := r.HardVote(probs, happy.Valence, happy.Arousal); got != emotion.Happy {
			t.Fatalf("%s: HardVote at happy centroid = %d", corpus, got)
		}
		neutral := table[emotion.Neutral]
		if got := r.HardVote(probs, neutral.Valence, neutral.Arousal); got != emotion.Neutral {
			t.Fatalf("%s: HardVote at neutral centroid = %d", corpus, got)
		}
	}
}

func TestHardVoteIsDeterministic(t *testing.T) {
	r := emotion.NewResolver("kemdy19")
	probs := []float64{0.25, 0.25, 0, 0, 0.25, 0.25, 0}
	first := r.HardVote(probs, 2.7, 3.1)
	for i := 0; i < 100; i++ {
		if got := r.HardVote(probs, 2.7, 3.1); got != first {
			t.Fatalf("iteration %d: HardVote = %d, first = %d", i, got, first)
		}
	}
}

func TestHardVoteEquidistantPicksLowestIndex(t *testing.T) {
	table := emotion.CentroidTable{}
	table[emotion.Fear] = emotion.Point{Valence: -1, Arousal: 0}
	table[emotion.Sad] = emotion.Point{Valence: 1, Arousal: 0}
	r := emotion.NewResolverWithCentroids("kemdy19", table)
	probs := []float64{0, 0.5, 0, 0, 0, 0.5, 0}
	if got := r.HardVote(probs, 0, 0); got != emotion.Fear {
		t.Fatalf("HardVote = %d, want fear", got)
	}
}

func TestHardVoteWithoutCentroidsPicksLowestTiedIndex(t *testing.T) {
	r := emotion.NewResolver("aihub")
	probs := []float64{0, 0, 0, 0, 0.5, 0.5, 0}
	if got := r.HardVote(probs, 3, 3); got != emotion.Happy {
		t.Fatalf("HardVote = %d, want happy", got)
	}
	if got := r.HardVote(nil, 0, 0); got != emotion.Unmappable {
		t.Fatalf("HardVote(nil) = %d", got)
	}
}

func TestCentroidOverrideResolvesNormalizedRatings(t *testing.T) {
	probs, err := emotion.Vectorize([]float64{0, 0, 0, 2, 2, 0, 0})
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	builtIn, _ := emotion.CentroidsFor("kemdy20")

	// Ratings on a 0-1 scale sit far below every 1-5 default.
	if got := emotion.NewResolver("kemdy20").HardVote(probs, 0.6, 0.5); got != emotion.Neutral {
		t.Fatalf("built-in HardVote = %d, want neutral", got)
	}

	table, err := builtIn.Override(map[string]emotion.Point{
		"Neutral": {Valence: 0.0, Arousal: 0.0},
		"happy":   {Valence: 0.8, Arousal: 0.7},
	})
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	if got := emotion.NewResolverWithCentroids("kemdy20", table).HardVote(probs, 0.6, 0.5); got != emotion.Happy {
		t.Fatalf("overridden HardVote = %d, want happy", got)
	}
	if table[emotion.Sad] != builtIn[emotion.Sad] {
		t.Fatalf("untouched category changed: %+v", table[emotion.Sad])
	}
	if again, _ := emotion.CentroidsFor("kemdy20"); again != builtIn {
		t.Fatal("Override mutated the built-in table")
	}
}

func TestCentroidOverrideRejectsUnknownCategory(t *testing.T) {
	builtIn, _ := emotion.CentroidsFor("kemdy19")
	_, err := builtIn.Override(map[string]emotion.Point{"contempt": {Valence: 1, Arousal: 1}})
	if !errors.Is(err, emotion.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}
