package motifdb

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"smod/internal/estimator"
	"smod/internal/model"
	"smod/internal/storage"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

func subs(motifs ...string) []model.Subarray {
	out := make([]model.Subarray, len(motifs))
	for i, m := range motifs {
		out[i] = model.Subarray{SeqIndex: i, Start: 0, End: len(m), Motif: m, Score: 1}
	}
	return out
}

func TestBuildDropsSmallClusters(t *testing.T) {
	labels := []int{0, 0, 0, 0, 0, 1}
	clusters, err := Build(labels, subs("ACGT", "ACGT", "ACGT", "ACGT", "ACGT", "TTTT"), 1, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []model.MotifCluster{{ID: 0, Motifs: []model.MotifCount{{Motif: "ACGT", Count: 5}}}}
	if !reflect.DeepEqual(clusters, want) {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}
}

func TestBuildRenumbersAndOrders(t *testing.T) {
	labels := []int{7, 7, 7, 3, -1, 3, 3}
	clusters, summaries, err := BuildWithSummary(labels, subs("GGA", "CCA", "CCA", "TTT", "AAA", "TTT", "TAT"), 1, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []model.MotifCluster{
		{ID: 0, Motifs: []model.MotifCount{{Motif: "TTT", Count: 2}, {Motif: "TAT", Count: 1}}},
		{ID: 1, Motifs: []model.MotifCount{{Motif: "CCA", Count: 2}, {Motif: "GGA", Count: 1}}},
	}
	if !reflect.DeepEqual(clusters, want) {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}
	if len(summaries) != 2 || summaries[0].Total != 3 || summaries[0].Distinct != 2 || summaries[0].MeanScore != 1 {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestBuildThresholdsHold(t *testing.T) {
	labels := []int{0, 0, 0, 1, 1, 2, 2, 2, 2}
	motifs := subs("AA", "AA", "AC", "CC", "CG", "GG", "GG", "GT", "GT")
	clusters, err := Build(labels, motifs, 2, 3)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, c := range clusters {
		if c.Total() < 3 {
			t.Fatalf("cluster %d below min size: %+v", c.ID, c)
		}
		for _, m := range c.Motifs {
			if m.Count < 2 {
				t.Fatalf("motif below min count: %+v", m)
			}
		}
	}
	if len(clusters) != 1 || clusters[0].Total() != 4 {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, err := Build([]int{0}, nil, 1, 1); !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
	if _, err := Build(nil, nil, -1, 1); !errors.Is(err, model.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	clusters, err := Build(nil, nil, 1, 1)
	if err != nil || len(clusters) != 0 {
		t.Fatalf("expected empty build, got %+v err=%v", clusters, err)
	}
}

func TestTransformReportsAllSpans(t *testing.T) {
	db := New(nil, nil, model.BuildSettings{}, []model.MotifCluster{
		{ID: 2, Motifs: []model.MotifCount{{Motif: "ACGT", Count: 1}}},
	})
	got := db.TransformSequence("XXACGTXXACGTXX")
	want := []ClusterMatches{{ClusterID: 2, Spans: []Span{{Start: 2, End: 6}, {Start: 8, End: 12}}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected transform: %+v", got)
	}
}

func TestMatcherFindsOverlaps(t *testing.T) {
	db := New(nil, nil, model.BuildSettings{}, []model.MotifCluster{
		{ID: 0, Motifs: []model.MotifCount{{Motif: "AA", Count: 3}}},
		{ID: 1, Motifs: []model.MotifCount{{Motif: "AAA", Count: 1}, {Motif: "CAA", Count: 1}}},
	})
	got := db.TransformSequence("CAAAA")
	want := []ClusterMatches{
		{ClusterID: 0, Spans: []Span{{1, 3}, {2, 4}, {3, 5}}},
		{ClusterID: 1, Spans: []Span{{0, 3}, {1, 4}, {2, 5}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected transform: %+v", got)
	}

	hits := db.PredictSequence("CAAAA")
	if !reflect.DeepEqual(hits.Counts, []int{1, 0, 1, 0, 1, 0}) {
		t.Fatalf("unexpected counts: %v", hits.Counts)
	}
	if !reflect.DeepEqual(hits.Clusters, []int{0, 1}) {
		t.Fatalf("unexpected clusters: %v", hits.Clusters)
	}

	if hits := db.PredictSequence("GGG"); len(hits.Counts) != 0 || len(hits.Clusters) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func fitted(t *testing.T) *Database {
	t.Helper()
	vec, err := vectorize.New(vectorize.Config{Complexity: 2, NBits: 8})
	if err != nil {
		t.Fatalf("vectorizer: %v", err)
	}
	est, err := estimator.NewSGD(vec.Dim(), estimator.DefaultParams())
	if err != nil {
		t.Fatalf("estimator: %v", err)
	}
	pos := vec.TransformAll([]model.Sequence{{Symbols: "ACGTACGT"}, {Symbols: "TTACGTTT"}})
	neg := vec.TransformAll([]model.Sequence{{Symbols: "GGGGCCCC"}, {Symbols: "CCGGCCGG"}})
	if err := est.PartialFit(append(pos, neg...), []int{1, 1, -1, -1}); err != nil {
		t.Fatalf("partial fit: %v", err)
	}
	return New(vec, est, model.BuildSettings{MinSubarraySize: 3, MaxSubarraySize: 5, MinMotifCount: 1, MinClusterSize: 1, Algorithm: "dbscan"},
		[]model.MotifCluster{
			{ID: 0, Motifs: []model.MotifCount{{Motif: "ACGT", Count: 4}, {Motif: "CGT", Count: 1}}},
			{ID: 1, Motifs: []model.MotifCount{{Motif: "TTT", Count: 2}}},
		})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := fitted(t)
	path := filepath.Join(t.TempDir(), "model.db")
	if err := db.Save(ctx, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving twice replaces the artifact.
	if err := db.Save(ctx, path); err != nil {
		t.Fatalf("resave: %v", err)
	}

	loaded, err := Load(ctx, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID() != db.ID() || db.ID() == "" {
		t.Fatalf("id changed: %q vs %q", loaded.ID(), db.ID())
	}
	if !reflect.DeepEqual(loaded.Clusters(), db.Clusters()) {
		t.Fatalf("clusters changed: %+v", loaded.Clusters())
	}

	seqs := []model.Sequence{{Symbols: "ACGTTTTACGT"}, {Symbols: "GGGG"}, {Symbols: "CGTACGT"}}
	plan := workers.Plan{Jobs: 2, Blocks: 2}
	for _, s := range seqs {
		if !reflect.DeepEqual(db.TransformSequence(s.Symbols), loaded.TransformSequence(s.Symbols)) {
			t.Fatalf("transform differs for %q", s.Symbols)
		}
		want := db.Estimator().Score(db.Vectorizer().Transform(s.Symbols))
		got := loaded.Estimator().Score(loaded.Vectorizer().Transform(s.Symbols))
		if math.Abs(want-got) > 1e-9 {
			t.Fatalf("score differs for %q", s.Symbols)
		}
	}
	a, err := db.Predict(ctx, seqs, plan)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := loaded.Predict(ctx, seqs, plan)
	if err != nil {
		t.Fatalf("predict loaded: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("predict differs: %+v vs %+v", a, b)
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := fitted(t)
	seqs := []model.Sequence{{Symbols: "ACGTACGTTT"}, {Symbols: "TTTT"}}
	first, err := db.Predict(ctx, seqs, workers.Plan{Jobs: 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	second, err := db.Predict(ctx, seqs, workers.Plan{Jobs: 4, BlockSize: 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("predict not idempotent: %+v vs %+v", first, second)
	}
}

func TestLoadMissingOrMalformed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := Load(ctx, filepath.Join(dir, "missing.db")); !errors.Is(err, model.ErrModelLoad) {
		t.Fatalf("expected model load error for missing file, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.db")
	body := make([]byte, 0, 1024)
	for len(body) < 1024 {
		body = append(body, "not a model artifact "...)
	}
	if err := os.WriteFile(garbage, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(ctx, garbage); !errors.Is(err, model.ErrModelLoad) {
		t.Fatalf("expected model load error for garbage file, got %v", err)
	}

	empty := filepath.Join(dir, "empty.db")
	store := storage.NewSQLiteStore(empty)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	_ = store.Close()
	if _, err := Load(ctx, empty); !errors.Is(err, model.ErrModelLoad) {
		t.Fatalf("expected model load error for empty store, got %v", err)
	}
}

func TestFromRecordRejectsCorruptWeights(t *testing.T) {
	record, err := fitted(t).Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	record.Estimator.Weights = record.Estimator.Weights[:10]
	if _, err := FromRecord(record); !errors.Is(err, model.ErrModelLoad) {
		t.Fatalf("expected model load error, got %v", err)
	}
}

func TestSaveToMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	db := fitted(t)
	id, err := db.SaveTo(ctx, store)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFrom(ctx, store, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID() != id {
		t.Fatalf("expected id %s, got %s", id, loaded.ID())
	}
}

func TestMatchOnlyDatabaseCannotSave(t *testing.T) {
	db := New(nil, nil, model.BuildSettings{}, nil)
	if err := db.Save(context.Background(), filepath.Join(t.TempDir(), "m.db")); err == nil {
		t.Fatal("expected save error")
	}
}
