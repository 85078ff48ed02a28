package importance

import (
	"math"
	"testing"

	"smod/internal/vectorize"
)

type denseWeights []float64

func (d denseWeights) Coef(feature int) float64 { return d[feature] }

func TestAnnotateSumsToMargin(t *testing.T) {
	vec, err := vectorize.New(vectorize.Config{Complexity: 3, NBits: 10})
	if err != nil {
		t.Fatalf("new vectorizer: %v", err)
	}
	w := make(denseWeights, vec.Dim())
	for i := range w {
		w[i] = math.Sin(float64(i))
	}
	symbols := "GATTACAGATTACA"
	scores := Annotate(symbols, vec, w)
	if len(scores) != len(symbols) {
		t.Fatalf("expected %d scores, got %d", len(symbols), len(scores))
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	margin := vec.Transform(symbols).DotDense(w)
	if math.Abs(sum-margin) > 1e-9 {
		t.Fatalf("scores sum %f does not match margin %f", sum, margin)
	}
}

func TestAnnotateHighlightsPositiveFeatures(t *testing.T) {
	vec, _ := vectorize.New(vectorize.Config{Complexity: 1, NBits: 12})
	w := make(denseWeights, vec.Dim())
	w[vec.Transform("G").Indices[0]] = 1
	w[vec.Transform("A").Indices[0]] = -1

	scores := Annotate("AAGGAA", vec, w)
	for i, s := range scores {
		switch i {
		case 2, 3:
			if s <= 0 {
				t.Fatalf("position %d: expected positive score, got %f", i, s)
			}
		default:
			if s >= 0 {
				t.Fatalf("position %d: expected negative score, got %f", i, s)
			}
		}
	}
}

func TestAnnotateEmpty(t *testing.T) {
	vec, _ := vectorize.New(vectorize.DefaultConfig())
	if got := Annotate("", vec, make(denseWeights, vec.Dim())); len(got) != 0 {
		t.Fatalf("expected empty scores, got %v", got)
	}
}
