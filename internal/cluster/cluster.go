package cluster

import (
	"fmt"
	"sort"
	"strings"

	"smod/internal/model"
	"smod/internal/vectorize"
)

// Noise is the label for points no cluster claims.
const Noise = -1

const (
	AlgorithmMiniBatchKMeans = "minibatchkmeans"
	AlgorithmDBSCAN          = "dbscan"
	AlgorithmBirch           = "birch"
)

// Algorithm assigns a label to every vector.
type Algorithm interface {
	Name() string
	FitPredict(vectors []vectorize.Vector) ([]int, error)
}

type KMeansConfig struct {
	NClusters int   `json:"n_clusters" mapstructure:"n-clusters"`
	BatchSize int   `json:"batch_size" mapstructure:"batch-size"`
	MaxIter   int   `json:"max_iter" mapstructure:"max-iter"`
	Seed      int64 `json:"seed" mapstructure:"seed"`
}

type DBSCANConfig struct {
	Eps        float64 `json:"eps" mapstructure:"eps"`
	MinSamples int     `json:"min_samples" mapstructure:"min-samples"`
}

type BirchConfig struct {
	Threshold       float64 `json:"threshold" mapstructure:"threshold"`
	BranchingFactor int     `json:"branching_factor" mapstructure:"branching-factor"`
	NClusters       int     `json:"n_clusters" mapstructure:"n-clusters"`
	Seed            int64   `json:"seed" mapstructure:"seed"`
}

// Config selects one algorithm by name; only the matching section is read.
type Config struct {
	Algorithm string       `json:"algorithm" mapstructure:"algorithm"`
	KMeans    KMeansConfig `json:"kmeans" mapstructure:"kmeans"`
	DBSCAN    DBSCANConfig `json:"dbscan" mapstructure:"dbscan"`
	Birch     BirchConfig  `json:"birch" mapstructure:"birch"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmMiniBatchKMeans,
		KMeans:    KMeansConfig{NClusters: 10, BatchSize: 100, MaxIter: 100},
		DBSCAN:    DBSCANConfig{Eps: 0.5, MinSamples: 5},
		Birch:     BirchConfig{Threshold: 0.5, BranchingFactor: 50, NClusters: 10},
	}
}

// WithSeed sets the seed of the seeded algorithms.
func (c Config) WithSeed(seed int64) Config {
	c.KMeans.Seed = seed
	c.Birch.Seed = seed
	return c
}

func New(cfg Config) (Algorithm, error) {
	switch strings.ToLower(cfg.Algorithm) {
	case AlgorithmMiniBatchKMeans, "kmeans":
		return NewMiniBatchKMeans(cfg.KMeans)
	case AlgorithmDBSCAN:
		return NewDBSCAN(cfg.DBSCAN)
	case AlgorithmBirch:
		return NewBirch(cfg.Birch)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedAlgorithm, cfg.Algorithm)
	}
}

// compact remaps feature indices onto 0..d-1 preserving their order, so
// dense centroids only span features that occur.
func compact(points []vectorize.Vector) ([]vectorize.Vector, int) {
	seen := make(map[int]struct{})
	for _, p := range points {
		for _, idx := range p.Indices {
			seen[idx] = struct{}{}
		}
	}
	keys := make([]int, 0, len(seen))
	for idx := range seen {
		keys = append(keys, idx)
	}
	sort.Ints(keys)
	remap := make(map[int]int, len(keys))
	for i, idx := range keys {
		remap[idx] = i
	}

	out := make([]vectorize.Vector, len(points))
	for i, p := range points {
		q := vectorize.Vector{Indices: make([]int, len(p.Indices)), Values: append([]float64(nil), p.Values...)}
		for j, idx := range p.Indices {
			q.Indices[j] = remap[idx]
		}
		out[i] = q
	}
	return out, len(keys)
}

// sqDist is ||x - c||² for sparse x and dense c with cached ||c||².
func sqDist(x vectorize.Vector, c []float64, cNorm2 float64) float64 {
	d := x.Dot(x) - 2*x.DotDense(c) + cNorm2
	if d < 0 {
		return 0
	}
	return d
}
