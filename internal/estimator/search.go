package estimator

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"smod/internal/model"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

const holdoutFraction = 0.3

// SearchConfig drives Fit. NIter <= 1 trains Defaults without a search.
type SearchConfig struct {
	NIter    int
	Seed     int64
	Workers  int
	Defaults Params
}

type Candidate struct {
	Params Params  `json:"params"`
	AUC    float64 `json:"auc"`
}

type SearchReport struct {
	Candidates []Candidate `json:"candidates,omitempty"`
	Best       int         `json:"best"`
	TrainAUC   float64     `json:"train_auc"`
}

// Fit trains a classifier separating pos (+1) from neg (-1). With a search,
// every candidate trains an independent model on a stratified split and is
// scored by held-out ROC AUC; the winner is refit on all samples.
func Fit(ctx context.Context, dim int, pos, neg []vectorize.Vector, cfg SearchConfig) (*SGD, SearchReport, error) {
	if len(pos) == 0 || len(neg) == 0 {
		return nil, SearchReport{}, fmt.Errorf("%w: need both classes, got %d positive and %d negative", model.ErrEmptyTrainingSet, len(pos), len(neg))
	}
	defaults := cfg.Defaults
	if defaults == (Params{}) {
		defaults = DefaultParams()
	}
	if err := defaults.Validate(); err != nil {
		return nil, SearchReport{}, fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
	}

	xs, ys := stack(pos, neg)
	report := SearchReport{}
	best := defaults

	if cfg.NIter > 1 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		params := make([]Params, cfg.NIter)
		for i := range params {
			params[i] = sample(rng, defaults.Epochs)
		}
		trainIdx, holdIdx := stratifiedSplit(len(pos), len(neg), rng)

		aucs, err := workers.MapItems(ctx, params, workers.Plan{Jobs: cfg.Workers, BlockSize: 1}, func(i int, p Params) (float64, error) {
			return evaluate(dim, p, xs, ys, trainIdx, holdIdx, cfg.Seed+int64(i)+1)
		})
		if err != nil {
			return nil, SearchReport{}, err
		}

		report.Candidates = make([]Candidate, len(params))
		for i := range params {
			report.Candidates[i] = Candidate{Params: params[i], AUC: aucs[i]}
			if aucs[i] > aucs[report.Best] {
				report.Best = i
			}
		}
		best = params[report.Best]
	}

	m, err := NewSGD(dim, best)
	if err != nil {
		return nil, SearchReport{}, err
	}
	if err := m.Train(xs, ys, rand.New(rand.NewSource(cfg.Seed))); err != nil {
		return nil, SearchReport{}, err
	}
	report.TrainAUC = AUC(m, xs, ys)
	return m, report, nil
}

func sample(rng *rand.Rand, epochs int) Params {
	loss := LossHinge
	if rng.Intn(2) == 1 {
		loss = LossLog
	}
	return Params{
		Loss:   loss,
		Alpha:  math.Pow(10, -6+4*rng.Float64()),
		Eta0:   math.Pow(10, -3+3*rng.Float64()),
		PowerT: 0.1 + 0.8*rng.Float64(),
		Epochs: epochs,
	}
}

func evaluate(dim int, p Params, xs []vectorize.Vector, ys []int, trainIdx, holdIdx []int, seed int64) (float64, error) {
	m, err := NewSGD(dim, p)
	if err != nil {
		return 0, err
	}
	tx, ty := pick(xs, ys, trainIdx)
	if err := m.Train(tx, ty, rand.New(rand.NewSource(seed))); err != nil {
		return 0, err
	}
	hx, hy := pick(xs, ys, holdIdx)
	if !hasBothClasses(hy) {
		hx, hy = tx, ty
	}
	return AUC(m, hx, hy), nil
}

// AUC is the area under the ROC curve of m's margins on the samples.
func AUC(m *SGD, xs []vectorize.Vector, ys []int) float64 {
	if !hasBothClasses(ys) {
		return 0
	}
	scores := make([]float64, len(xs))
	classes := make([]bool, len(xs))
	for i, x := range xs {
		scores[i] = m.Score(x)
		classes[i] = ys[i] > 0
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

func stack(pos, neg []vectorize.Vector) ([]vectorize.Vector, []int) {
	xs := make([]vectorize.Vector, 0, len(pos)+len(neg))
	ys := make([]int, 0, len(pos)+len(neg))
	for _, x := range pos {
		xs = append(xs, x)
		ys = append(ys, 1)
	}
	for _, x := range neg {
		xs = append(xs, x)
		ys = append(ys, -1)
	}
	return xs, ys
}

// stratifiedSplit holds out a fraction of each class; indices refer to the
// stacked [pos..., neg...] layout.
func stratifiedSplit(nPos, nNeg int, rng *rand.Rand) ([]int, []int) {
	var train, hold []int
	split := func(offset, n int) {
		perm := rng.Perm(n)
		k := int(math.Round(holdoutFraction * float64(n)))
		if k >= n {
			k = n - 1
		}
		for i, p := range perm {
			if i < k {
				hold = append(hold, offset+p)
			} else {
				train = append(train, offset+p)
			}
		}
	}
	split(0, nPos)
	split(nPos, nNeg)
	return train, hold
}

func pick(xs []vectorize.Vector, ys []int, idx []int) ([]vectorize.Vector, []int) {
	px := make([]vectorize.Vector, len(idx))
	py := make([]int, len(idx))
	for i, j := range idx {
		px[i] = xs[j]
		py[i] = ys[j]
	}
	return px, py
}

func hasBothClasses(ys []int) bool {
	var pos, neg bool
	for _, y := range ys {
		if y > 0 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}
