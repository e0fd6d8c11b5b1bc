// Package emotion holds the fixed emotion vocabulary shared by every corpus
// and the label resolver that turns raw annotation fields into training
// targets.
//
// Category indices are stable: surprise, fear, angry, neutral, happy, sad,
// disgust map to 0..6. Unknown category strings resolve to Unmappable (-1)
// instead of failing so loaders can flag or drop them downstream.
//
// Multi-annotator vote strings ("neutral;happy") are counted into per-category
// vote vectors, normalized into probabilities with Vectorize, and collapsed
// to a single hard label with Resolver.HardVote. Ties are broken by the
// Euclidean distance between the example's (valence, arousal) point and each
// tied category's corpus-specific centroid.
package emotion
