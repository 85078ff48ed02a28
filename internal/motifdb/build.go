package motifdb

import (
	"fmt"
	"sort"

	"smod/internal/cluster"
	"smod/internal/model"
)

// Summary describes one retained cluster.
type Summary struct {
	ClusterID int     `json:"cluster_id"`
	Total     int     `json:"total"`
	Distinct  int     `json:"distinct"`
	MeanScore float64 `json:"mean_score"`
}

// Build groups labelled subarrays into motif clusters. Noise is dropped,
// motifs seen fewer than minMotifCount times are dropped, then clusters
// whose retained total is below minClusterSize are dropped. Survivors are
// renumbered from 0 in ascending order of their original label; motifs are
// ordered by count descending, then lexicographically.
func Build(labels []int, subarrays []model.Subarray, minMotifCount, minClusterSize int) ([]model.MotifCluster, error) {
	clusters, _, err := BuildWithSummary(labels, subarrays, minMotifCount, minClusterSize)
	return clusters, err
}

// BuildWithSummary is Build that also reports per-cluster totals and the
// mean extraction score of the retained members.
func BuildWithSummary(labels []int, subarrays []model.Subarray, minMotifCount, minClusterSize int) ([]model.MotifCluster, []Summary, error) {
	if len(labels) != len(subarrays) {
		return nil, nil, fmt.Errorf("%w: %d labels for %d subarrays", model.ErrInvalidParameter, len(labels), len(subarrays))
	}
	if minMotifCount < 0 {
		return nil, nil, fmt.Errorf("%w: min motif count must be >= 0", model.ErrInvalidParameter)
	}
	if minClusterSize < 0 {
		return nil, nil, fmt.Errorf("%w: min cluster size must be >= 0", model.ErrInvalidParameter)
	}

	type tally struct {
		count int
		score float64
	}
	groups := make(map[int]map[string]*tally)
	for i, label := range labels {
		if label == cluster.Noise {
			continue
		}
		if label < 0 {
			return nil, nil, fmt.Errorf("%w: negative cluster label %d", model.ErrInvalidParameter, label)
		}
		motifs := groups[label]
		if motifs == nil {
			motifs = make(map[string]*tally)
			groups[label] = motifs
		}
		t := motifs[subarrays[i].Motif]
		if t == nil {
			t = &tally{}
			motifs[subarrays[i].Motif] = t
		}
		t.count++
		t.score += subarrays[i].Score
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var (
		clusters  []model.MotifCluster
		summaries []Summary
	)
	for _, id := range ids {
		var (
			retained []model.MotifCount
			total    int
			score    float64
		)
		for motif, t := range groups[id] {
			if t.count < minMotifCount {
				continue
			}
			retained = append(retained, model.MotifCount{Motif: motif, Count: t.count})
			total += t.count
			score += t.score
		}
		if len(retained) == 0 || total < minClusterSize {
			continue
		}
		sortMotifs(retained)
		next := len(clusters)
		clusters = append(clusters, model.MotifCluster{ID: next, Motifs: retained})
		summaries = append(summaries, Summary{
			ClusterID: next,
			Total:     total,
			Distinct:  len(retained),
			MeanScore: score / float64(total),
		})
	}
	return clusters, summaries, nil
}

func sortMotifs(motifs []model.MotifCount) {
	sort.Slice(motifs, func(i, j int) bool {
		if motifs[i].Count != motifs[j].Count {
			return motifs[i].Count > motifs[j].Count
		}
		return motifs[i].Motif < motifs[j].Motif
	})
}
