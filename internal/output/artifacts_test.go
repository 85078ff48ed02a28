package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"smod/internal/model"
	"smod/internal/motifdb"
)

func TestWriteFitArtifactsAfterFiltering(t *testing.T) {
	labels := []int{0, 0, 0, 0, 0, 1}
	subs := make([]model.Subarray, 0, len(labels))
	for i := 0; i < 5; i++ {
		subs = append(subs, model.Subarray{SeqIndex: i, End: 4, Motif: "ACGT", Score: 1})
	}
	subs = append(subs, model.Subarray{SeqIndex: 5, End: 4, Motif: "TTTT", Score: 1})
	clusters, err := motifdb.Build(labels, subs, 1, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	dir := t.TempDir()
	if err := WriteFitArtifacts(dir, clusters); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, MotifsFile))
	if err != nil {
		t.Fatalf("read motifs: %v", err)
	}
	if string(data) != "#0\nACGT\t5\n" {
		t.Fatalf("unexpected motifs.txt: %q", data)
	}
	fa, err := os.ReadFile(filepath.Join(dir, MotifFASTAFile(0)))
	if err != nil {
		t.Fatalf("read motif fasta: %v", err)
	}
	if string(fa) != ">cl:0|id:0\nACGT\n" {
		t.Fatalf("unexpected motif fasta: %q", fa)
	}
	if _, err := os.Stat(filepath.Join(dir, MotifFASTAFile(1))); !os.IsNotExist(err) {
		t.Fatalf("expected no fasta for dropped cluster, got %v", err)
	}
}

func TestWriteEmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFitArtifacts(dir, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, MotifsFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty motifs.txt, got %q", data)
	}
}

func TestWriteClusterHits(t *testing.T) {
	hits := []motifdb.Hits{
		{Counts: []int{2, 0, 2}, Clusters: []int{0, 2}},
		{Counts: []int{}, Clusters: []int{}},
		{Counts: []int{1}, Clusters: []int{1}},
	}
	var buf bytes.Buffer
	if err := WriteClusterHits(&buf, hits, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "0\t0 2\n2\t1\n" {
		t.Fatalf("unexpected hits: %q", buf.String())
	}

	buf.Reset()
	if err := WriteClusterHits(&buf, hits, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "0\t2 0 2\n2\t1\n" {
		t.Fatalf("unexpected hit counts: %q", buf.String())
	}
}

func TestWriteTransformArtifacts(t *testing.T) {
	seqs := []model.Sequence{{Header: "chr1 some description", Symbols: "XXACGTXXACGTXX"}, {Header: "chr2", Symbols: "GGGG"}}
	matches := [][]motifdb.ClusterMatches{
		{{ClusterID: 2, Spans: []motifdb.Span{{Start: 2, End: 6}, {Start: 8, End: 12}}}},
		nil,
	}
	dir := t.TempDir()
	if err := WriteTransformArtifacts(dir, seqs, matches); err != nil {
		t.Fatalf("write: %v", err)
	}
	pos, err := os.ReadFile(filepath.Join(dir, MatchPositionsFile))
	if err != nil {
		t.Fatalf("read positions: %v", err)
	}
	if string(pos) != "0\t2:[(2,6),(8,12)]\n" {
		t.Fatalf("unexpected positions: %q", pos)
	}
	bed, err := os.ReadFile(filepath.Join(dir, MatchBEDFile))
	if err != nil {
		t.Fatalf("read bed: %v", err)
	}
	if string(bed) != "chr1\t2\t6\t2\nchr1\t8\t12\t2\n" {
		t.Fatalf("unexpected bed: %q", bed)
	}
}

func TestWriteBEDLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBED(&buf, nil, [][]motifdb.ClusterMatches{nil}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSummary(dir, map[string]int{"clusters": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FitSummaryFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil || decoded["clusters"] != 3 {
		t.Fatalf("unexpected summary %q err=%v", data, err)
	}
}
