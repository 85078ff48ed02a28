package smod

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smod/internal/cluster"
	"smod/internal/discovery"
	"smod/internal/model"
	"smod/internal/motifdb"
	"smod/internal/storage"
	"smod/internal/vectorize"
	"smod/internal/workers"
)

type (
	Sequence       = model.Sequence
	MotifCluster   = model.MotifCluster
	MotifCount     = model.MotifCount
	Hits           = motifdb.Hits
	ClusterMatches = motifdb.ClusterMatches
	Span           = motifdb.Span
)

var (
	ErrInvalidParameter     = model.ErrInvalidParameter
	ErrEmptyTrainingSet     = model.ErrEmptyTrainingSet
	ErrModelLoad            = model.ErrModelLoad
	ErrUnsupportedAlgorithm = model.ErrUnsupportedAlgorithm
	ErrNotFitted            = errors.New("no fitted model")
)

type Options struct {
	// StoreKind selects where SaveToStore and OpenFromStore keep models:
	// memory or sqlite.
	StoreKind string
	DBPath    string
}

// Client owns at most one motif database. Fit and Load replace it; Predict
// and Transform may run concurrently with each other.
type Client struct {
	mu    sync.RWMutex
	db    *motifdb.Database
	store storage.Store
}

// FitRequest lists the fit parameters. Zero values take the defaults except
// ShuffleOrder and Seed, which are used as given; start from
// DefaultFitRequest to get those too.
type FitRequest struct {
	Sequences []Sequence
	// Negatives replaces generated decoys when non-empty.
	Negatives []Sequence

	MinSubarraySize int
	MaxSubarraySize int
	MinMotifCount   int
	MinClusterSize  int
	NegativeRatio   int
	ShuffleOrder    int
	TrainingSize    int
	NIterSearch     int
	Complexity      int
	NBits           int

	Algorithm       string
	NClusters       int
	BatchSize       int
	Eps             float64
	MinSamples      int
	Threshold       float64
	BranchingFactor int

	Parallel
	Seed int64
}

// Parallel controls the worker pool of a call.
type Parallel struct {
	NJobs     int
	NBlocks   int
	BlockSize int
}

type ClusterSummary struct {
	ClusterID int
	Total     int
	Distinct  int
	MeanScore float64
}

type FitSummary struct {
	ModelID   string
	Positives int
	Negatives int
	Subarrays int
	Noise     int
	TrainAUC  float64
	Clusters  []ClusterSummary
}

type ModelInfo struct {
	ModelID         string
	Complexity      int
	NBits           int
	Loss            string
	Alpha           float64
	Eta0            float64
	PowerT          float64
	Steps           int
	MinSubarraySize int
	MaxSubarraySize int
	MinMotifCount   int
	MinClusterSize  int
	Algorithm       string
	Clusters        []ClusterSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.KindMemory
	}
	store, err := storage.NewStore(storeKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

// Open returns a client holding the model saved at path.
func Open(ctx context.Context, path string) (*Client, error) {
	c, err := New(Options{})
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx, path); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	cfg := configFromRequest(req)
	db, report, err := discovery.Fit(ctx, cfg, req.Sequences, req.Negatives)
	if err != nil {
		return FitSummary{}, err
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()

	summary := FitSummary{
		ModelID:   db.ID(),
		Positives: report.Positives,
		Negatives: report.Negatives,
		Subarrays: report.Subarrays,
		Noise:     report.Noise,
		TrainAUC:  report.Search.TrainAUC,
	}
	for _, s := range report.Clusters {
		summary.Clusters = append(summary.Clusters, ClusterSummary(s))
	}
	return summary, nil
}

func (c *Client) Predict(ctx context.Context, seqs []Sequence, par Parallel) ([]Hits, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.Predict(ctx, seqs, par.plan())
}

func (c *Client) Transform(ctx context.Context, seqs []Sequence, par Parallel) ([][]ClusterMatches, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.Transform(ctx, seqs, par.plan())
}

// FitPredict fits on req and predicts the same sequences.
func (c *Client) FitPredict(ctx context.Context, req FitRequest) (FitSummary, []Hits, error) {
	summary, err := c.Fit(ctx, req)
	if err != nil {
		return FitSummary{}, nil, err
	}
	hits, err := c.Predict(ctx, req.Sequences, req.Parallel)
	return summary, hits, err
}

// FitTransform fits on req and transforms the same sequences.
func (c *Client) FitTransform(ctx context.Context, req FitRequest) (FitSummary, [][]ClusterMatches, error) {
	summary, err := c.Fit(ctx, req)
	if err != nil {
		return FitSummary{}, nil, err
	}
	matches, err := c.Transform(ctx, req.Sequences, req.Parallel)
	return summary, matches, err
}

// Motifs returns the cluster table of the current model.
func (c *Client) Motifs() ([]MotifCluster, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.Clusters(), nil
}

func (c *Client) Info() (ModelInfo, error) {
	db, err := c.database()
	if err != nil {
		return ModelInfo{}, err
	}
	est := db.Estimator()
	vcfg := db.Vectorizer().Config()
	build := db.Build()
	info := ModelInfo{
		ModelID:         db.ID(),
		Complexity:      vcfg.Complexity,
		NBits:           vcfg.NBits,
		Loss:            est.Loss,
		Alpha:           est.Alpha,
		Eta0:            est.Eta0,
		PowerT:          est.PowerT,
		Steps:           est.Steps,
		MinSubarraySize: build.MinSubarraySize,
		MaxSubarraySize: build.MaxSubarraySize,
		MinMotifCount:   build.MinMotifCount,
		MinClusterSize:  build.MinClusterSize,
		Algorithm:       build.Algorithm,
	}
	for _, cl := range db.Clusters() {
		info.Clusters = append(info.Clusters, ClusterSummary{
			ClusterID: cl.ID,
			Total:     cl.Total(),
			Distinct:  len(cl.Motifs),
		})
	}
	return info, nil
}

// Save writes the current model to a single file at path.
func (c *Client) Save(ctx context.Context, path string) error {
	db, err := c.database()
	if err != nil {
		return err
	}
	return db.Save(ctx, path)
}

// Load replaces the current model with the one saved at path.
func (c *Client) Load(ctx context.Context, path string) error {
	db, err := motifdb.Load(ctx, path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

// SaveToStore keeps the current model in the client's store and returns its id.
func (c *Client) SaveToStore(ctx context.Context) (string, error) {
	db, err := c.database()
	if err != nil {
		return "", err
	}
	if err := c.store.Init(ctx); err != nil {
		return "", err
	}
	return db.SaveTo(ctx, c.store)
}

// LoadFromStore loads model id from the client's store, the latest when id
// is empty.
func (c *Client) LoadFromStore(ctx context.Context, id string) error {
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	db, err := motifdb.LoadFrom(ctx, c.store, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

func (c *Client) database() (*motifdb.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotFitted
	}
	return c.db, nil
}

func (p Parallel) plan() workers.Plan {
	return workers.Plan{Jobs: p.NJobs, Blocks: p.NBlocks, BlockSize: p.BlockSize}
}

func configFromRequest(req FitRequest) discovery.Config {
	cfg := discovery.DefaultConfig()
	if req.MinSubarraySize > 0 {
		cfg.MinSubarraySize = req.MinSubarraySize
	}
	if req.MaxSubarraySize > 0 {
		cfg.MaxSubarraySize = req.MaxSubarraySize
	}
	if req.MinMotifCount > 0 {
		cfg.MinMotifCount = req.MinMotifCount
	}
	if req.MinClusterSize > 0 {
		cfg.MinClusterSize = req.MinClusterSize
	}
	if req.NegativeRatio > 0 {
		cfg.NegativeRatio = req.NegativeRatio
	}
	cfg.ShuffleOrder = req.ShuffleOrder
	if req.TrainingSize > 0 {
		cfg.TrainingSize = req.TrainingSize
	}
	if req.NIterSearch > 0 {
		cfg.NIterSearch = req.NIterSearch
	}
	if req.Complexity > 0 {
		cfg.Vectorizer.Complexity = req.Complexity
	}
	if req.NBits > 0 {
		cfg.Vectorizer.NBits = req.NBits
	}
	if req.NJobs > 0 {
		cfg.Plan.Jobs = req.NJobs
	}
	if req.NBlocks > 0 {
		cfg.Plan.Blocks = req.NBlocks
	}
	if req.BlockSize > 0 {
		cfg.Plan.BlockSize = req.BlockSize
	}
	cfg.Seed = req.Seed

	if req.Algorithm != "" {
		cfg.Cluster.Algorithm = req.Algorithm
	}
	if req.NClusters > 0 {
		cfg.Cluster.KMeans.NClusters = req.NClusters
		cfg.Cluster.Birch.NClusters = req.NClusters
	}
	if req.BatchSize > 0 {
		cfg.Cluster.KMeans.BatchSize = req.BatchSize
	}
	if req.Eps > 0 {
		cfg.Cluster.DBSCAN.Eps = req.Eps
	}
	if req.MinSamples > 0 {
		cfg.Cluster.DBSCAN.MinSamples = req.MinSamples
	}
	if req.Threshold > 0 {
		cfg.Cluster.Birch.Threshold = req.Threshold
	}
	if req.BranchingFactor > 0 {
		cfg.Cluster.Birch.BranchingFactor = req.BranchingFactor
	}
	return cfg
}

// DefaultFitRequest spells out the defaults a zero request resolves to.
func DefaultFitRequest() FitRequest {
	cfg := discovery.DefaultConfig()
	return FitRequest{
		MinSubarraySize: cfg.MinSubarraySize,
		MaxSubarraySize: cfg.MaxSubarraySize,
		MinMotifCount:   cfg.MinMotifCount,
		MinClusterSize:  cfg.MinClusterSize,
		NegativeRatio:   cfg.NegativeRatio,
		ShuffleOrder:    cfg.ShuffleOrder,
		NIterSearch:     cfg.NIterSearch,
		Complexity:      vectorize.DefaultComplexity,
		NBits:           vectorize.DefaultNBits,
		Algorithm:       cfg.Cluster.Algorithm,
		NClusters:       cfg.Cluster.KMeans.NClusters,
		BatchSize:       cfg.Cluster.KMeans.BatchSize,
		Eps:             cfg.Cluster.DBSCAN.Eps,
		MinSamples:      cfg.Cluster.DBSCAN.MinSamples,
		Threshold:       cfg.Cluster.Birch.Threshold,
		BranchingFactor: cfg.Cluster.Birch.BranchingFactor,
		Parallel:        Parallel{NJobs: cfg.Plan.Jobs, NBlocks: cfg.Plan.Blocks},
		Seed:            cfg.Seed,
	}
}

// Algorithms lists the supported clustering algorithm names.
func Algorithms() []string {
	return []string{cluster.AlgorithmMiniBatchKMeans, cluster.AlgorithmDBSCAN, cluster.AlgorithmBirch}
}
