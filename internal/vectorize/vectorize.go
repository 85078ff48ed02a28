package vectorize

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"smod/internal/model"
)

const (
	DefaultComplexity = 4
	DefaultNBits      = 16
	maxNBits          = 28
)

// Config selects the feature space. Complexity bounds both the k-mer length
// and the gap between paired k-mers.
type Config struct {
	Complexity int `json:"complexity"`
	NBits      int `json:"nbits"`
}

func DefaultConfig() Config {
	return Config{Complexity: DefaultComplexity, NBits: DefaultNBits}
}

func (c Config) Settings() model.VectorizerSettings {
	return model.VectorizerSettings{Complexity: c.Complexity, NBits: c.NBits}
}

func FromSettings(s model.VectorizerSettings) Config {
	return Config{Complexity: s.Complexity, NBits: s.NBits}
}

// Vectorizer maps symbol strings to hashed sparse feature vectors. It holds
// no mutable state and is safe for concurrent use.
type Vectorizer struct {
	cfg  Config
	mask uint32
}

func New(cfg Config) (*Vectorizer, error) {
	if cfg.Complexity < 1 {
		return nil, fmt.Errorf("%w: complexity must be >= 1", model.ErrInvalidParameter)
	}
	if cfg.NBits < 1 || cfg.NBits > maxNBits {
		return nil, fmt.Errorf("%w: nbits must be in [1, %d]", model.ErrInvalidParameter, maxNBits)
	}
	return &Vectorizer{cfg: cfg, mask: uint32(1)<<cfg.NBits - 1}, nil
}

func (v *Vectorizer) Config() Config {
	return v.cfg
}

// Dim is the size of the hashed feature space.
func (v *Vectorizer) Dim() int {
	return int(v.mask) + 1
}

// Occurrence is one emitted feature. A single k-mer covers [Start, End); a
// k-mer pair also covers [PairStart, PairEnd).
type Occurrence struct {
	Feature   int
	Start     int
	End       int
	PairStart int
	PairEnd   int
}

// Width is the number of symbol slots the occurrence covers.
func (o Occurrence) Width() int {
	return (o.End - o.Start) + (o.PairEnd - o.PairStart)
}

// Occurrences lists the features of symbols in a fixed order: for each
// position, k-mers by increasing length, each followed by its pairs at
// increasing gaps.
func (v *Vectorizer) Occurrences(symbols string) []Occurrence {
	n := len(symbols)
	c := v.cfg.Complexity
	out := make([]Occurrence, 0, n*c*(c+1))
	for i := 0; i < n; i++ {
		for k := 1; k <= c && i+k <= n; k++ {
			kmer := symbols[i : i+k]
			out = append(out, Occurrence{
				Feature: v.hash(0, k, 0, kmer, ""),
				Start:   i,
				End:     i + k,
			})
			for d := 1; d <= c; d++ {
				j := i + k - 1 + d
				if j+k > n {
					break
				}
				out = append(out, Occurrence{
					Feature:   v.hash(1, k, d, kmer, symbols[j:j+k]),
					Start:     i,
					End:       i + k,
					PairStart: j,
					PairEnd:   j + k,
				})
			}
		}
	}
	return out
}

// Transform returns the L2-normalized count vector of symbols.
func (v *Vectorizer) Transform(symbols string) Vector {
	return FromOccurrences(v.Occurrences(symbols))
}

// FromOccurrences accumulates occurrences into a normalized vector.
func FromOccurrences(occs []Occurrence) Vector {
	counts := make(map[int]float64, len(occs))
	for _, o := range occs {
		counts[o.Feature]++
	}
	vec := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, counts[idx])
	}
	vec.Normalize()
	return vec
}

// TransformAll vectorizes each sequence.
func (v *Vectorizer) TransformAll(seqs []model.Sequence) []Vector {
	out := make([]Vector, len(seqs))
	for i, s := range seqs {
		out[i] = v.Transform(s.Symbols)
	}
	return out
}

func (v *Vectorizer) hash(kind byte, k, d int, a, b string) int {
	h := fnv.New32a()
	h.Write([]byte{kind, byte(k), byte(d)})
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return int(h.Sum32() & v.mask)
}

// Vector is sparse with strictly increasing Indices.
type Vector struct {
	Indices []int
	Values  []float64
}

func (x Vector) Len() int {
	return len(x.Indices)
}

func (x Vector) Norm() float64 {
	sum := 0.0
	for _, val := range x.Values {
		sum += val * val
	}
	return math.Sqrt(sum)
}

// Normalize scales x to unit length in place; the zero vector is unchanged.
func (x Vector) Normalize() {
	norm := x.Norm()
	if norm == 0 {
		return
	}
	for i := range x.Values {
		x.Values[i] /= norm
	}
}

// DotDense returns x·w for a dense w.
func (x Vector) DotDense(w []float64) float64 {
	sum := 0.0
	for i, idx := range x.Indices {
		sum += x.Values[i] * w[idx]
	}
	return sum
}

// Dot returns x·y for two sparse vectors.
func (x Vector) Dot(y Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(x.Indices) && j < len(y.Indices) {
		switch {
		case x.Indices[i] == y.Indices[j]:
			sum += x.Values[i] * y.Values[j]
			i++
			j++
		case x.Indices[i] < y.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// SquaredDistance returns ||x-y||².
func (x Vector) SquaredDistance(y Vector) float64 {
	d := x.Dot(x) + y.Dot(y) - 2*x.Dot(y)
	if d < 0 {
		return 0
	}
	return d
}
