package estimator

import (
	"fmt"
	"math"
	"math/rand"

	"smod/internal/vectorize"
)

const (
	LossHinge = "hinge"
	LossLog   = "log"
)

const minWeightScale = 1e-9

// Params are the hyperparameters of the online learner.
type Params struct {
	Loss   string  `json:"loss"`
	Alpha  float64 `json:"alpha"`
	Eta0   float64 `json:"eta0"`
	PowerT float64 `json:"power_t"`
	Epochs int     `json:"epochs"`
}

func DefaultParams() Params {
	return Params{
		Loss:   LossHinge,
		Alpha:  1e-4,
		Eta0:   0.1,
		PowerT: 0.5,
		Epochs: 5,
	}
}

func (p Params) Validate() error {
	if p.Loss != LossHinge && p.Loss != LossLog {
		return fmt.Errorf("unsupported loss: %s", p.Loss)
	}
	if p.Alpha < 0 {
		return fmt.Errorf("alpha must be >= 0")
	}
	if p.Eta0 <= 0 {
		return fmt.Errorf("eta0 must be > 0")
	}
	if p.PowerT < 0 {
		return fmt.Errorf("power_t must be >= 0")
	}
	if p.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0")
	}
	return nil
}

// SGD is an L2-regularized linear classifier learned one sample at a time.
// The coefficients are stored as scale*v so the regularization shrink is O(1)
// per step.
type SGD struct {
	Params
	v         []float64
	scale     float64
	Intercept float64
	Steps     int
}

func NewSGD(dim int, p Params) (*SGD, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be > 0")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SGD{Params: p, v: make([]float64, dim), scale: 1}, nil
}

func (m *SGD) Dim() int {
	return len(m.v)
}

// Coef returns the weight of a feature.
func (m *SGD) Coef(feature int) float64 {
	return m.scale * m.v[feature]
}

// Weights returns a copy of the dense coefficients.
func (m *SGD) Weights() []float64 {
	out := make([]float64, len(m.v))
	for i, val := range m.v {
		out[i] = m.scale * val
	}
	return out
}

// Score returns the signed margin w·x + b; positive favors the real class.
func (m *SGD) Score(x vectorize.Vector) float64 {
	return m.scale*x.DotDense(m.v) + m.Intercept
}

// LearningRate is the step size for update t (0-based). It decreases
// monotonically with t.
func (m *SGD) LearningRate(t int) float64 {
	return m.Eta0 / math.Pow(1+m.Alpha*m.Eta0*float64(t), m.PowerT)
}

// PartialFit applies one update per sample in the given order. Labels are
// +1 for real sequences and -1 for decoys.
func (m *SGD) PartialFit(xs []vectorize.Vector, ys []int) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("sample/label mismatch: %d vs %d", len(xs), len(ys))
	}
	for i, x := range xs {
		m.update(x, float64(ys[i]))
	}
	return nil
}

func (m *SGD) update(x vectorize.Vector, y float64) {
	eta := m.LearningRate(m.Steps)
	m.Steps++

	margin := m.Score(x)
	var dloss float64
	switch m.Loss {
	case LossLog:
		z := y * margin
		if z > 18 {
			dloss = -y * math.Exp(-z)
		} else if z < -18 {
			dloss = -y
		} else {
			dloss = -y / (1 + math.Exp(z))
		}
	default:
		if y*margin < 1 {
			dloss = -y
		}
	}

	m.scale *= 1 - eta*m.Alpha
	if m.scale < minWeightScale {
		m.rescale()
	}
	if dloss != 0 {
		step := -eta * dloss / m.scale
		for i, idx := range x.Indices {
			m.v[idx] += step * x.Values[i]
		}
		m.Intercept -= eta * dloss
	}
}

func (m *SGD) rescale() {
	for i := range m.v {
		m.v[i] *= m.scale
	}
	m.scale = 1
}

// Train runs Epochs passes over the samples, reshuffling each pass with rng.
func (m *SGD) Train(xs []vectorize.Vector, ys []int, rng *rand.Rand) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("sample/label mismatch: %d vs %d", len(xs), len(ys))
	}
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	bx := make([]vectorize.Vector, len(xs))
	by := make([]int, len(xs))
	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for i, idx := range order {
			bx[i] = xs[idx]
			by[i] = ys[idx]
		}
		if err := m.PartialFit(bx, by); err != nil {
			return err
		}
	}
	return nil
}
