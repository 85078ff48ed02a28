package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"smod/internal/cluster"
	"smod/internal/estimator"
	"smod/internal/importance"
	"smod/internal/model"
	"smod/internal/motifdb"
	"smod/internal/negative"
	"smod/internal/subarray"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

// FitReport summarizes one fit for the caller to log.
type FitReport struct {
	Positives int                    `json:"positives"`
	Negatives int                    `json:"negatives"`
	Subarrays int                    `json:"subarrays"`
	Noise     int                    `json:"noise"`
	Search    estimator.SearchReport `json:"search"`
	Clusters  []motifdb.Summary      `json:"clusters"`
}

// Fit trains an estimator separating seqs from negatives (shuffled decoys
// when negatives is empty), mines every sequence for maximal subarrays,
// clusters them and builds the motif database.
func Fit(ctx context.Context, cfg Config, seqs, negatives []model.Sequence) (*motifdb.Database, FitReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, FitReport{}, err
	}
	if len(seqs) == 0 {
		return nil, FitReport{}, fmt.Errorf("%w: no input sequences", model.ErrEmptyTrainingSet)
	}
	vec, err := vectorize.New(cfg.Vectorizer)
	if err != nil {
		return nil, FitReport{}, err
	}
	alg, err := cluster.New(cfg.Cluster.WithSeed(cfg.Seed))
	if err != nil {
		return nil, FitReport{}, err
	}

	train := subsample(seqs, cfg.TrainingSize, cfg.Seed)
	if len(negatives) == 0 {
		negatives, err = decoys(ctx, train, cfg)
		if err != nil {
			return nil, FitReport{}, err
		}
	}
	report := FitReport{Positives: len(train), Negatives: len(negatives)}

	pos, err := vectorizeAll(ctx, vec, train, cfg.Plan)
	if err != nil {
		return nil, FitReport{}, err
	}
	neg, err := vectorizeAll(ctx, vec, negatives, cfg.Plan)
	if err != nil {
		return nil, FitReport{}, err
	}
	est, search, err := estimator.Fit(ctx, vec.Dim(), pos, neg, estimator.SearchConfig{
		NIter:    cfg.NIterSearch,
		Seed:     cfg.Seed,
		Workers:  cfg.Plan.Jobs,
		Defaults: cfg.Estimator,
	})
	if err != nil {
		return nil, FitReport{}, err
	}
	report.Search = search

	subs, err := Mine(ctx, vec, est, seqs, cfg)
	if err != nil {
		return nil, FitReport{}, err
	}
	report.Subarrays = len(subs)

	var labels []int
	if len(subs) > 0 {
		motifs := make([]model.Sequence, len(subs))
		for i, s := range subs {
			motifs[i] = model.Sequence{Symbols: s.Motif}
		}
		points, err := vectorizeAll(ctx, vec, motifs, cfg.Plan)
		if err != nil {
			return nil, FitReport{}, err
		}
		if labels, err = alg.FitPredict(points); err != nil {
			return nil, FitReport{}, fmt.Errorf("cluster %s: %w", alg.Name(), err)
		}
	}
	for _, l := range labels {
		if l == cluster.Noise {
			report.Noise++
		}
	}

	clusters, summaries, err := motifdb.BuildWithSummary(labels, subs, cfg.MinMotifCount, cfg.MinClusterSize)
	if err != nil {
		return nil, FitReport{}, err
	}
	report.Clusters = summaries

	build := cfg.BuildSettings()
	build.Algorithm = alg.Name()
	return motifdb.New(vec, est, build, clusters), report, nil
}

// Mine annotates every sequence with est and extracts its maximal
// subarrays, in sequence order.
func Mine(ctx context.Context, vec *vectorize.Vectorizer, est importance.Weights, seqs []model.Sequence, cfg Config) ([]model.Subarray, error) {
	return workers.Map(ctx, seqs, cfg.Plan, func(ctx context.Context, block []model.Sequence, offset int) ([]model.Subarray, error) {
		var out []model.Subarray
		for i, s := range block {
			scores := importance.Annotate(s.Symbols, vec, est)
			subs, err := subarray.Subarrays(offset+i, s.Symbols, scores, cfg.MinSubarraySize, cfg.MaxSubarraySize)
			if err != nil {
				return nil, err
			}
			out = append(out, subs...)
		}
		return out, nil
	})
}

func decoys(ctx context.Context, seqs []model.Sequence, cfg Config) ([]model.Sequence, error) {
	return workers.Map(ctx, seqs, cfg.Plan, func(_ context.Context, block []model.Sequence, offset int) ([]model.Sequence, error) {
		var out []model.Sequence
		for i, s := range block {
			shuffled, err := negative.ShuffleSequence(s, cfg.NegativeRatio, cfg.ShuffleOrder, negative.SequenceSeed(cfg.Seed, offset+i))
			if err != nil {
				return nil, err
			}
			out = append(out, shuffled...)
		}
		return out, nil
	})
}

func vectorizeAll(ctx context.Context, vec *vectorize.Vectorizer, seqs []model.Sequence, plan workers.Plan) ([]vectorize.Vector, error) {
	return workers.MapItems(ctx, seqs, plan, func(_ int, s model.Sequence) (vectorize.Vector, error) {
		return vec.Transform(s.Symbols), nil
	})
}

// subsample keeps n sequences drawn by seed, in input order.
func subsample(seqs []model.Sequence, n int, seed int64) []model.Sequence {
	if n <= 0 || n >= len(seqs) {
		return seqs
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(seqs))[:n]
	sort.Ints(idx)
	out := make([]model.Sequence, n)
	for i, j := range idx {
		out[i] = seqs[j]
	}
	return out
}
