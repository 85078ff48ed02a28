package importance

import (
	"math"

	"smod/internal/vectorize"
)

// Weights exposes per-feature coefficients of a fitted linear model.
type Weights interface {
	Coef(feature int) float64
}

// Annotate back-projects the model's margin onto symbols: each feature
// occurrence adds coef/||x|| split evenly across the positions it covers.
// The scores sum to the margin without its intercept, so symbols pushing the
// sequence toward the real class receive positive values.
func Annotate(symbols string, vec *vectorize.Vectorizer, w Weights) []float64 {
	scores := make([]float64, len(symbols))
	occs := vec.Occurrences(symbols)
	if len(occs) == 0 {
		return scores
	}

	counts := make(map[int]float64, len(occs))
	for _, o := range occs {
		counts[o.Feature]++
	}
	norm := 0.0
	for _, c := range counts {
		norm += c * c
	}
	norm = math.Sqrt(norm)

	for _, o := range occs {
		share := w.Coef(o.Feature) / norm / float64(o.Width())
		for i := o.Start; i < o.End; i++ {
			scores[i] += share
		}
		for i := o.PairStart; i < o.PairEnd; i++ {
			scores[i] += share
		}
	}
	return scores
}
