// Package fitness scores candidate images against a fixed target image by the
// cosine similarity of their feature vectors.
package fitness

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two feature vectors differ in length.
	ErrDimensionMismatch = errors.New("feature vectors have different dimensions")
	// ErrZeroTarget is returned when the target image embeds to a zero vector.
	ErrZeroTarget = errors.New("target feature vector has zero norm")
)

// Extractor embeds an image into a fixed-length feature vector.
type Extractor interface {
	Extract(img image.Image) ([]float32, error)
}

// Scorer holds the extractor and the target's feature vector. It is not
// modified after NewScorer returns.
type Scorer struct {
	extractor Extractor
	target    []float32
}

// NewScorer embeds target once and returns a Scorer comparing against it.
func NewScorer(extractor Extractor, target image.Image) (*Scorer, error) {
	features, err := extractor.Extract(target)
	if err != nil {
		return nil, fmt.Errorf("failed to extract target features: %w", err)
	}
	if len(features) == 0 || norm(features) == 0 {
		return nil, ErrZeroTarget
	}

	return &Scorer{
		extractor: extractor,
		target:    features,
	}, nil
}

// Dimension is the length of the target feature vector.
func (s *Scorer) Dimension() int {
	return len(s.target)
}

// Score returns the clamped cosine similarity between the candidate's
// features and the target's, in [0, 1].
func (s *Scorer) Score(candidate image.Image) (float64, error) {
	features, err := s.extractor.Extract(candidate)
	if err != nil {
		return 0, fmt.Errorf("failed to extract candidate features: %w", err)
	}

	similarity, err := CosineSimilarity(s.target, features)
	if err != nil {
		return 0, err
	}
	return Clamp(similarity), nil
}

// CosineSimilarity computes dot(a, b) / (|a| |b|) in float64. A zero vector
// has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	// sqrt(x*x) == x, so identical vectors score exactly 1.
	denom := math.Sqrt(normA * normB)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}

// Clamp limits v to [0, 1]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
