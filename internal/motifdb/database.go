package motifdb

import (
	"context"
	"sort"
	"sync"

	"smod/internal/estimator"
	"smod/internal/model"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

// Database is a fitted motif database. It is read-only once built and safe
// for concurrent Predict and Transform calls.
type Database struct {
	vec      *vectorize.Vectorizer
	est      *estimator.SGD
	build    model.BuildSettings
	clusters []model.MotifCluster

	once sync.Once
	ac   *matcher
}

// New assembles a database. est may be nil for a match-only database,
// which cannot be persisted.
func New(vec *vectorize.Vectorizer, est *estimator.SGD, build model.BuildSettings, clusters []model.MotifCluster) *Database {
	return &Database{
		vec:      vec,
		est:      est,
		build:    build,
		clusters: cloneClusters(clusters),
	}
}

func (db *Database) Vectorizer() *vectorize.Vectorizer {
	return db.vec
}

func (db *Database) Estimator() *estimator.SGD {
	return db.est
}

func (db *Database) Build() model.BuildSettings {
	return db.build
}

// Clusters returns a copy of the cluster table in ascending id order.
func (db *Database) Clusters() []model.MotifCluster {
	return cloneClusters(db.clusters)
}

func (db *Database) automaton() *matcher {
	db.once.Do(func() {
		db.ac = newMatcher(db.clusters)
	})
	return db.ac
}

// Span is a half-open match interval.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Hits is the predict view of one sequence.
type Hits struct {
	// Counts holds one cluster id per motif occurrence, by match position.
	Counts []int `json:"counts"`
	// Clusters holds each cluster hit once, ascending.
	Clusters []int `json:"clusters"`
}

type ClusterMatches struct {
	ClusterID int    `json:"cluster_id"`
	Spans     []Span `json:"spans"`
}

type occurrence struct {
	cluster int
	span    Span
}

func (db *Database) occurrences(symbols string) []occurrence {
	m := db.automaton()
	var out []occurrence
	for _, hit := range m.scan(symbols) {
		for _, id := range m.patterns[hit.Pattern].clusters {
			out = append(out, occurrence{cluster: id, span: Span{Start: hit.Start, End: hit.End}})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.span.Start != b.span.Start {
			return a.span.Start < b.span.Start
		}
		if a.span.End != b.span.End {
			return a.span.End < b.span.End
		}
		return a.cluster < b.cluster
	})
	return out
}

// PredictSequence reports the clusters whose motifs occur in symbols.
func (db *Database) PredictSequence(symbols string) Hits {
	hits := Hits{Counts: []int{}, Clusters: []int{}}
	seen := make(map[int]bool)
	for _, o := range db.occurrences(symbols) {
		hits.Counts = append(hits.Counts, o.cluster)
		if !seen[o.cluster] {
			seen[o.cluster] = true
			hits.Clusters = append(hits.Clusters, o.cluster)
		}
	}
	sort.Ints(hits.Clusters)
	return hits
}

// TransformSequence lists every match span per cluster, clusters ascending
// and spans by start then end. Clusters without a match are omitted.
func (db *Database) TransformSequence(symbols string) []ClusterMatches {
	byCluster := make(map[int][]Span)
	for _, o := range db.occurrences(symbols) {
		byCluster[o.cluster] = append(byCluster[o.cluster], o.span)
	}
	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]ClusterMatches, 0, len(ids))
	for _, id := range ids {
		out = append(out, ClusterMatches{ClusterID: id, Spans: byCluster[id]})
	}
	return out
}

func (db *Database) Predict(ctx context.Context, seqs []model.Sequence, plan workers.Plan) ([]Hits, error) {
	return workers.MapItems(ctx, seqs, plan, func(_ int, s model.Sequence) (Hits, error) {
		return db.PredictSequence(s.Symbols), nil
	})
}

func (db *Database) Transform(ctx context.Context, seqs []model.Sequence, plan workers.Plan) ([][]ClusterMatches, error) {
	return workers.MapItems(ctx, seqs, plan, func(_ int, s model.Sequence) ([]ClusterMatches, error) {
		return db.TransformSequence(s.Symbols), nil
	})
}

func cloneClusters(in []model.MotifCluster) []model.MotifCluster {
	if in == nil {
		return nil
	}
	out := make([]model.MotifCluster, len(in))
	for i, c := range in {
		out[i] = model.MotifCluster{ID: c.ID, Motifs: append([]model.MotifCount(nil), c.Motifs...)}
	}
	return out
}
