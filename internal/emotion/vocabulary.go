package emotion

import "strings"

// Category indices. The order is part of the on-disk contract of every cache
// and materialized dataset.
const (
	Surprise = iota
	Fear
	Angry
	Neutral
	Happy
	Sad
	Disgust

	// NumCategories is the size of the emotion vocabulary.
	NumCategories
)

// Unmappable marks a label that could not be mapped to a category.
const Unmappable = -1

// Gender indices.
const (
	GenderMale   = 0
	GenderFemale = 1
)

var categoryNames = [NumCategories]string{
	Surprise: "surprise",
	Fear:     "fear",
	Angry:    "angry",
	Neutral:  "neutral",
	Happy:    "happy",
	Sad:      "sad",
	Disgust:  "disgust",
}

var categoryIndex = func() map[string]int {
	out := make(map[string]int, NumCategories)
	for idx, name := range categoryNames {
		out[name] = idx
	}
	return out
}()

// Names returns the category names in index order.
func Names() []string {
	out := make([]string, NumCategories)
	copy(out, categoryNames[:])
	return out
}

// Name returns the category name for idx.
func Name(idx int) (string, bool) {
	if idx < 0 || idx >= NumCategories {
		return "", false
	}
	return categoryNames[idx], true
}

// Index maps a category name to its index, or Unmappable when the name is
// not part of the vocabulary.
func Index(name string) int {
	key := strings.ToLower(strings.TrimSpace(name))
	if idx, ok := categoryIndex[key]; ok {
		return idx
	}
	return Unmappable
}

// GenderIndex maps "M"/"F" to GenderMale/GenderFemale, or Unmappable.
func GenderIndex(gender string) int {
	switch strings.ToUpper(strings.TrimSpace(gender)) {
	case "M":
		return GenderMale
	case "F":
		return GenderFemale
	default:
		return Unmappable
	}
}
