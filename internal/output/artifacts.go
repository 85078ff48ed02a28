package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"smod/internal/fasta"
	"smod/internal/model"
	"smod/internal/motifdb"
)

const (
	MotifsFile         = "motifs.txt"
	ClusterHitsFile    = "sequences_cluster_id_hit.txt"
	MatchPositionsFile = "sequences_cluster_match_position.txt"
	MatchBEDFile       = "sequences_cluster_match_position.bed"
	FitSummaryFile     = "fit_summary.json"
)

// MotifFASTAFile names the per-cluster motif file.
func MotifFASTAFile(clusterID int) string {
	return fmt.Sprintf("motif_%d.fa", clusterID)
}

// WriteMotifs writes "#<id>" followed by "<motif>\t<count>" per cluster.
func WriteMotifs(w io.Writer, clusters []model.MotifCluster) error {
	bw := bufio.NewWriter(w)
	for _, c := range clusters {
		if _, err := fmt.Fprintf(bw, "#%d\n", c.ID); err != nil {
			return err
		}
		for _, m := range c.Motifs {
			if _, err := fmt.Fprintf(bw, "%s\t%d\n", m.Motif, m.Count); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteMotifFASTA writes one ">cl:<id>|id:<n>" record per distinct motif.
func WriteMotifFASTA(w io.Writer, c model.MotifCluster) error {
	records := make([]model.Sequence, len(c.Motifs))
	for i, m := range c.Motifs {
		records[i] = model.Sequence{Header: fmt.Sprintf("cl:%d|id:%d", c.ID, i), Symbols: m.Motif}
	}
	return fasta.Write(w, records)
}

// WriteClusterHits writes "<seq index>\t<ids>" for each sequence with a hit.
// withMultiplicity selects the per-occurrence view over distinct ids.
func WriteClusterHits(w io.Writer, hits []motifdb.Hits, withMultiplicity bool) error {
	bw := bufio.NewWriter(w)
	for i, h := range hits {
		ids := h.Clusters
		if withMultiplicity {
			ids = h.Counts
		}
		if len(ids) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", i, joinInts(ids, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMatchPositions writes "<seq index>\t<id>:[(s,e),...] ..." for each
// sequence with a match.
func WriteMatchPositions(w io.Writer, matches [][]motifdb.ClusterMatches) error {
	bw := bufio.NewWriter(w)
	for i, perSeq := range matches {
		if len(perSeq) == 0 {
			continue
		}
		fields := make([]string, len(perSeq))
		for j, cm := range perSeq {
			spans := make([]string, len(cm.Spans))
			for k, sp := range cm.Spans {
				spans[k] = fmt.Sprintf("(%d,%d)", sp.Start, sp.End)
			}
			fields[j] = fmt.Sprintf("%d:[%s]", cm.ClusterID, strings.Join(spans, ","))
		}
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", i, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBED writes one "<name>\t<start>\t<end>\t<cluster id>" row per match.
// The name is the first field of the sequence header.
func WriteBED(w io.Writer, seqs []model.Sequence, matches [][]motifdb.ClusterMatches) error {
	if len(seqs) != len(matches) {
		return fmt.Errorf("%d sequences for %d match lists", len(seqs), len(matches))
	}
	bw := bufio.NewWriter(w)
	for i, perSeq := range matches {
		name := fasta.ID(seqs[i].Header)
		if name == "" {
			name = strconv.Itoa(i)
		}
		for _, cm := range perSeq {
			for _, sp := range cm.Spans {
				if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%d\n", name, sp.Start, sp.End, cm.ClusterID); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

// WriteFitArtifacts writes motifs.txt and one motif FASTA per cluster.
func WriteFitArtifacts(dir string, clusters []model.MotifCluster) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, MotifsFile), func(w io.Writer) error {
		return WriteMotifs(w, clusters)
	}); err != nil {
		return err
	}
	for _, c := range clusters {
		if err := writeFile(filepath.Join(dir, MotifFASTAFile(c.ID)), func(w io.Writer) error {
			return WriteMotifFASTA(w, c)
		}); err != nil {
			return err
		}
	}
	return nil
}

func WritePredictArtifacts(dir string, hits []motifdb.Hits, withMultiplicity bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, ClusterHitsFile), func(w io.Writer) error {
		return WriteClusterHits(w, hits, withMultiplicity)
	})
}

func WriteTransformArtifacts(dir string, seqs []model.Sequence, matches [][]motifdb.ClusterMatches) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, MatchPositionsFile), func(w io.Writer) error {
		return WriteMatchPositions(w, matches)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, MatchBEDFile), func(w io.Writer) error {
		return WriteBED(w, seqs, matches)
	})
}

// WriteSummary stores a JSON summary of a fit next to its artifacts.
func WriteSummary(dir string, value any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, FitSummaryFile), value)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
