package storage

import "smod/internal/model"

func fixtureRecord(id string) model.ModelRecord {
	return Stamp(model.ModelRecord{
		ID:         id,
		Vectorizer: model.VectorizerSettings{Complexity: 3, NBits: 8},
		Estimator: model.EstimatorState{
			Loss:      "hinge",
			Alpha:     1e-4,
			Eta0:      0.1,
			PowerT:    0.5,
			Epochs:    5,
			Intercept: -0.25,
			Steps:     120,
			Weights:   []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		Build: model.BuildSettings{MinSubarraySize: 3, MaxSubarraySize: 6, MinMotifCount: 1, MinClusterSize: 2, Algorithm: "dbscan"},
		Clusters: []model.MotifCluster{
			{ID: 0, Motifs: []model.MotifCount{{Motif: "ACGT", Count: 5}, {Motif: "ACGA", Count: 2}}},
			{ID: 1, Motifs: []model.MotifCount{{Motif: "TTTG", Count: 3}}},
		},
	})
}
