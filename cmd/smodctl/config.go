package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"smod/pkg/smod"
)

const envPrefix = "SMOD"

// Config is the merged view of flags, SMOD_* environment variables and the
// optional --config file, in that order of precedence.
type Config struct {
	Input         string `mapstructure:"input"`
	Negatives     string `mapstructure:"negatives"`
	OutputDir     string `mapstructure:"output-dir"`
	ModelFilename string `mapstructure:"model-filename"`
	Verbose       bool   `mapstructure:"verbose"`

	MinSubarraySize int   `mapstructure:"min-subarray-size"`
	MaxSubarraySize int   `mapstructure:"max-subarray-size"`
	MinMotifCount   int   `mapstructure:"min-motif-count"`
	MinClusterSize  int   `mapstructure:"min-cluster-size"`
	NegativeRatio   int   `mapstructure:"negative-ratio"`
	ShuffleOrder    int   `mapstructure:"shuffle-order"`
	TrainingSize    int   `mapstructure:"training-size"`
	NIterSearch     int   `mapstructure:"n-iter-search"`
	Complexity      int   `mapstructure:"complexity"`
	NBits           int   `mapstructure:"nbits"`
	RandomState     int64 `mapstructure:"random-state"`

	Algorithm       string  `mapstructure:"algorithm"`
	NClusters       int     `mapstructure:"n-clusters"`
	BatchSize       int     `mapstructure:"batch-size"`
	Eps             float64 `mapstructure:"eps"`
	MinSamples      int     `mapstructure:"min-samples"`
	Threshold       float64 `mapstructure:"threshold"`
	BranchingFactor int     `mapstructure:"branching-factor"`

	NJobs     int `mapstructure:"n-jobs"`
	NBlocks   int `mapstructure:"n-blocks"`
	BlockSize int `mapstructure:"block-size"`

	CountMultiplicity bool `mapstructure:"count-multiplicity"`
}

// loadConfig binds the command's flags into v and decodes the result.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (Config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return Config{}, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) FitRequest() smod.FitRequest {
	return smod.FitRequest{
		MinSubarraySize: c.MinSubarraySize,
		MaxSubarraySize: c.MaxSubarraySize,
		MinMotifCount:   c.MinMotifCount,
		MinClusterSize:  c.MinClusterSize,
		NegativeRatio:   c.NegativeRatio,
		ShuffleOrder:    c.ShuffleOrder,
		TrainingSize:    c.TrainingSize,
		NIterSearch:     c.NIterSearch,
		Complexity:      c.Complexity,
		NBits:           c.NBits,
		Algorithm:       c.Algorithm,
		NClusters:       c.NClusters,
		BatchSize:       c.BatchSize,
		Eps:             c.Eps,
		MinSamples:      c.MinSamples,
		Threshold:       c.Threshold,
		BranchingFactor: c.BranchingFactor,
		Parallel:        c.Parallel(),
		Seed:            c.RandomState,
	}
}

func (c Config) Parallel() smod.Parallel {
	return smod.Parallel{NJobs: c.NJobs, NBlocks: c.NBlocks, BlockSize: c.BlockSize}
}

func addIOFlags(fs *pflag.FlagSet, withNegatives bool) {
	fs.StringP("input", "i", "", "input FASTA file (.gz supported, - for stdin)")
	if withNegatives {
		fs.String("negatives", "", "FASTA of negative sequences; decoys are generated when empty")
	}
	fs.StringP("output-dir", "o", "out", "directory for output artifacts")
	fs.StringP("model-filename", "m", "model.db", "model artifact path")
}

func addParallelFlags(fs *pflag.FlagSet) {
	d := smod.DefaultFitRequest()
	fs.Int("n-jobs", d.NJobs, "number of worker goroutines")
	fs.Int("n-blocks", d.NBlocks, "number of input partitions")
	fs.Int("block-size", d.BlockSize, "partition size; overrides n-blocks when > 0")
}

func addFitFlags(fs *pflag.FlagSet) {
	d := smod.DefaultFitRequest()
	fs.Int("min-subarray-size", d.MinSubarraySize, "minimum motif length")
	fs.Int("max-subarray-size", d.MaxSubarraySize, "maximum motif length")
	fs.Int("min-motif-count", d.MinMotifCount, "minimum occurrences of a motif within its cluster")
	fs.Int("min-cluster-size", d.MinClusterSize, "minimum total occurrences of a cluster")
	fs.Int("negative-ratio", d.NegativeRatio, "decoys generated per input sequence")
	fs.Int("shuffle-order", d.ShuffleOrder, "k-mer order preserved by the decoy shuffle")
	fs.Int("training-size", 0, "cap on sequences used to train the estimator; 0 uses all")
	fs.Int("n-iter-search", d.NIterSearch, "randomized hyperparameter search iterations")
	fs.Int("complexity", d.Complexity, "vectorizer complexity")
	fs.Int("nbits", d.NBits, "vectorizer feature bits")
	fs.Int64("random-state", d.Seed, "random seed")

	fs.String("algorithm", d.Algorithm, "clustering algorithm: minibatchkmeans|dbscan|birch")
	fs.Int("n-clusters", d.NClusters, "clusters for minibatchkmeans and birch")
	fs.Int("batch-size", d.BatchSize, "minibatchkmeans batch size")
	fs.Float64("eps", d.Eps, "dbscan neighborhood radius")
	fs.Int("min-samples", d.MinSamples, "dbscan core point neighbors")
	fs.Float64("threshold", d.Threshold, "birch subcluster radius")
	fs.Int("branching-factor", d.BranchingFactor, "birch branching factor")
}
