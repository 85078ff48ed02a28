package discovery

import (
	"fmt"

	"smod/internal/cluster"
	"smod/internal/estimator"
	"smod/internal/model"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

// Config holds every fit parameter. Zero Estimator means the documented
// defaults.
type Config struct {
	MinSubarraySize int
	MaxSubarraySize int
	MinMotifCount   int
	MinClusterSize  int

	NegativeRatio int
	ShuffleOrder  int
	// TrainingSize caps the positives used to train the estimator; 0 uses
	// all. Every sequence is still mined for motifs.
	TrainingSize int
	NIterSearch  int

	Vectorizer vectorize.Config
	Estimator  estimator.Params
	Cluster    cluster.Config
	Plan       workers.Plan
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		MinSubarraySize: 7,
		MaxSubarraySize: 10,
		MinMotifCount:   1,
		MinClusterSize:  1,
		NegativeRatio:   2,
		ShuffleOrder:    2,
		NIterSearch:     1,
		Vectorizer:      vectorize.DefaultConfig(),
		Cluster:         cluster.DefaultConfig(),
		Plan:            workers.Plan{Jobs: 4, Blocks: 8},
		Seed:            1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MinSubarraySize < 1:
		return fmt.Errorf("%w: min subarray size must be >= 1", model.ErrInvalidParameter)
	case c.MaxSubarraySize < c.MinSubarraySize:
		return fmt.Errorf("%w: max subarray size %d must be >= min subarray size %d", model.ErrInvalidParameter, c.MaxSubarraySize, c.MinSubarraySize)
	case c.MinMotifCount < 0:
		return fmt.Errorf("%w: min motif count must be >= 0", model.ErrInvalidParameter)
	case c.MinClusterSize < 0:
		return fmt.Errorf("%w: min cluster size must be >= 0", model.ErrInvalidParameter)
	case c.NegativeRatio < 1:
		return fmt.Errorf("%w: negative ratio must be >= 1", model.ErrInvalidParameter)
	case c.ShuffleOrder < 0:
		return fmt.Errorf("%w: shuffle order must be >= 0", model.ErrInvalidParameter)
	case c.TrainingSize < 0:
		return fmt.Errorf("%w: training size must be >= 0", model.ErrInvalidParameter)
	}
	if err := c.Plan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
	}
	if c.Estimator != (estimator.Params{}) {
		if err := c.Estimator.Validate(); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
		}
	}
	return nil
}

// BuildSettings is the part of the config persisted with the model.
func (c Config) BuildSettings() model.BuildSettings {
	return model.BuildSettings{
		MinSubarraySize: c.MinSubarraySize,
		MaxSubarraySize: c.MaxSubarraySize,
		MinMotifCount:   c.MinMotifCount,
		MinClusterSize:  c.MinClusterSize,
		Algorithm:       c.Cluster.Algorithm,
	}
}
