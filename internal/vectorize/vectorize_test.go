package vectorize

import (
	"errors"
	"math"
	"testing"

	"smod/internal/model"
)

func TestNewValidatesConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Complexity: 0, NBits: 10},
		{Complexity: 2, NBits: 0},
		{Complexity: 2, NBits: 40},
	} {
		if _, err := New(cfg); !errors.Is(err, model.ErrInvalidParameter) {
			t.Fatalf("config %+v: expected invalid parameter, got %v", cfg, err)
		}
	}
}

func TestTransformIsNormalizedAndSorted(t *testing.T) {
	v, err := New(Config{Complexity: 3, NBits: 12})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	vec := v.Transform("ACGTACGGTCA")
	if math.Abs(vec.Norm()-1) > 1e-12 {
		t.Fatalf("expected unit norm, got %f", vec.Norm())
	}
	for i := 1; i < len(vec.Indices); i++ {
		if vec.Indices[i] <= vec.Indices[i-1] {
			t.Fatalf("indices not strictly increasing at %d", i)
		}
	}
	for _, idx := range vec.Indices {
		if idx < 0 || idx >= v.Dim() {
			t.Fatalf("index %d outside dim %d", idx, v.Dim())
		}
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	v, _ := New(DefaultConfig())
	a := v.Transform("TTGACAGGCTA")
	b := v.Transform("TTGACAGGCTA")
	if a.Len() != b.Len() {
		t.Fatalf("length mismatch %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] || a.Values[i] != b.Values[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
	if math.Abs(a.Dot(b)-1) > 1e-12 {
		t.Fatalf("expected self similarity 1, got %f", a.Dot(b))
	}
}

func TestOccurrencesStayInBounds(t *testing.T) {
	v, _ := New(Config{Complexity: 4, NBits: 10})
	symbols := "ACGTAC"
	for _, o := range v.Occurrences(symbols) {
		if o.Start < 0 || o.End > len(symbols) || o.Start >= o.End {
			t.Fatalf("bad span %+v", o)
		}
		if o.PairEnd > len(symbols) || o.PairStart > o.PairEnd {
			t.Fatalf("bad pair span %+v", o)
		}
		if o.PairEnd > 0 && o.PairStart < o.End {
			t.Fatalf("pair overlaps first k-mer %+v", o)
		}
	}
}

func TestSquaredDistance(t *testing.T) {
	x := Vector{Indices: []int{1, 3}, Values: []float64{1, 2}}
	y := Vector{Indices: []int{3, 5}, Values: []float64{1, 1}}
	// (1-0)^2 + (2-1)^2 + (0-1)^2
	if got := x.SquaredDistance(y); math.Abs(got-3) > 1e-12 {
		t.Fatalf("expected 3, got %f", got)
	}
	if got := x.DotDense([]float64{0, 2, 0, 3, 0, 0}); got != 8 {
		t.Fatalf("expected 8, got %f", got)
	}
}
