package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"smod/internal/model"
	"smod/internal/vectorize"
)

// MiniBatchKMeans is centroid-based clustering updated from random batches
// with per-center learning rates 1/count.
type MiniBatchKMeans struct {
	cfg KMeansConfig
}

func NewMiniBatchKMeans(cfg KMeansConfig) (*MiniBatchKMeans, error) {
	if cfg.NClusters <= 0 {
		return nil, fmt.Errorf("%w: n clusters must be > 0", model.ErrInvalidParameter)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 100
	}
	return &MiniBatchKMeans{cfg: cfg}, nil
}

func (k *MiniBatchKMeans) Name() string {
	return AlgorithmMiniBatchKMeans
}

func (k *MiniBatchKMeans) FitPredict(vectors []vectorize.Vector) ([]int, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	points, dim := compact(vectors)
	rng := rand.New(rand.NewSource(k.cfg.Seed))

	nc := k.cfg.NClusters
	if nc > len(points) {
		nc = len(points)
	}
	centers := seedPlusPlus(points, dim, nc, rng)
	norms := make([]float64, nc)
	for i, c := range centers {
		norms[i] = floats.Dot(c, c)
	}

	counts := make([]int, nc)
	batch := k.cfg.BatchSize
	if batch > len(points) {
		batch = len(points)
	}
	for iter := 0; iter < k.cfg.MaxIter; iter++ {
		idx := rng.Perm(len(points))[:batch]
		assign := make([]int, batch)
		for b, i := range idx {
			assign[b], _ = nearest(points[i], centers, norms)
		}
		moved := 0.0
		for b, i := range idx {
			c := assign[b]
			counts[c]++
			eta := 1 / float64(counts[c])
			before := append([]float64(nil), centers[c]...)
			floats.Scale(1-eta, centers[c])
			addSparse(centers[c], points[i], eta)
			norms[c] = floats.Dot(centers[c], centers[c])
			moved += floats.Distance(before, centers[c], 2)
		}
		if moved < 1e-9 {
			break
		}
	}

	labels := make([]int, len(points))
	for i, p := range points {
		labels[i], _ = nearest(p, centers, norms)
	}
	return labels, nil
}

// seedPlusPlus picks k initial centers with D² weighting.
func seedPlusPlus(points []vectorize.Vector, dim, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centers = append(centers, densify(first, dim))

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centers[0], floats.Dot(centers[0], centers[0]))
	}
	for len(centers) < k {
		total := floats.Sum(dist)
		pick := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(len(points))
		}
		c := densify(points[pick], dim)
		centers = append(centers, c)
		norm := floats.Dot(c, c)
		for i, p := range points {
			if d := sqDist(p, c, norm); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

func nearest(p vectorize.Vector, centers [][]float64, norms []float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := sqDist(p, c, norms[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func densify(p vectorize.Vector, dim int) []float64 {
	out := make([]float64, dim)
	addSparse(out, p, 1)
	return out
}

func addSparse(dst []float64, p vectorize.Vector, alpha float64) {
	for i, idx := range p.Indices {
		dst[idx] += alpha * p.Values[i]
	}
}
