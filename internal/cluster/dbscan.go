package cluster

import (
	"fmt"

	"smod/internal/model"
	"smod/internal/vectorize"
)

// DBSCAN groups points with at least MinSamples neighbors (itself included)
// within Eps; unreachable points are Noise.
type DBSCAN struct {
	cfg DBSCANConfig
}

func NewDBSCAN(cfg DBSCANConfig) (*DBSCAN, error) {
	if cfg.Eps <= 0 {
		return nil, fmt.Errorf("%w: eps must be > 0", model.ErrInvalidParameter)
	}
	if cfg.MinSamples <= 0 {
		return nil, fmt.Errorf("%w: min samples must be > 0", model.ErrInvalidParameter)
	}
	return &DBSCAN{cfg: cfg}, nil
}

func (d *DBSCAN) Name() string {
	return AlgorithmDBSCAN
}

func (d *DBSCAN) FitPredict(vectors []vectorize.Vector) ([]int, error) {
	n := len(vectors)
	eps2 := d.cfg.Eps * d.cfg.Eps

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		neighbors[i] = append(neighbors[i], i)
		for j := i + 1; j < n; j++ {
			if vectors[i].SquaredDistance(vectors[j]) <= eps2 {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}

	const unvisited = -2
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}
	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if len(neighbors[i]) < d.cfg.MinSamples {
			labels[i] = Noise
			continue
		}
		id := next
		next++
		labels[i] = id
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == Noise {
				labels[j] = id
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = id
			if len(neighbors[j]) >= d.cfg.MinSamples {
				queue = append(queue, neighbors[j]...)
			}
		}
	}
	return labels, nil
}
