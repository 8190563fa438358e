package search

import "math"

// Config holds the fusion weights and inclusion threshold.
type Config struct {
	// TitleWeight scales the lexical title score.
	TitleWeight float64

	// ConceptWeight scales the lexical concept-label score.
	ConceptWeight float64

	// SemanticWeight scales the cosine similarity score.
	SemanticWeight float64

	// Threshold is the minimum fused score for a candidate to appear in
	// results.
	Threshold float64
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() *Config {
	return &Config{
		TitleWeight:    0.4,
		ConceptWeight:  0.2,
		SemanticWeight: 0.4,
		Threshold:      0.15,
	}
}

// Validate checks that the weights form a convex combination and the
// threshold is a sensible score bound.
func (c *Config) Validate() error {
	for _, w := range []float64{c.TitleWeight, c.ConceptWeight, c.SemanticWeight} {
		if w < 0 || w > 1 {
			return ErrInvalidWeights
		}
	}
	if math.Abs(c.TitleWeight+c.ConceptWeight+c.SemanticWeight-1.0) > 1e-9 {
		return ErrInvalidWeights
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}
