package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Sequence is a named symbol string. The engine never mutates it.
type Sequence struct {
	Header  string `json:"header"`
	Symbols string `json:"symbols"`
}

func (s Sequence) Len() int {
	return len(s.Symbols)
}

// Subarray is a half-open [Start, End) run of one input sequence.
type Subarray struct {
	SeqIndex int     `json:"seq_index"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Motif    string  `json:"motif"`
	Score    float64 `json:"score"`
}

func (s Subarray) Len() int {
	return s.End - s.Start
}

type MotifCount struct {
	Motif string `json:"motif"`
	Count int    `json:"count"`
}

type MotifCluster struct {
	ID     int          `json:"id"`
	Motifs []MotifCount `json:"motifs"`
}

// Total returns the occurrence count summed over all retained motifs.
func (c MotifCluster) Total() int {
	total := 0
	for _, m := range c.Motifs {
		total += m.Count
	}
	return total
}

type VectorizerSettings struct {
	Complexity int `json:"complexity"`
	NBits      int `json:"nbits"`
}

type EstimatorState struct {
	Loss      string  `json:"loss"`
	Alpha     float64 `json:"alpha"`
	Eta0      float64 `json:"eta0"`
	PowerT    float64 `json:"power_t"`
	Epochs    int     `json:"epochs"`
	Intercept float64 `json:"intercept"`
	Steps     int     `json:"steps"`
	// Weights is the little-endian float64 coefficient blob.
	Weights []byte `json:"weights,omitempty"`
}

type BuildSettings struct {
	MinSubarraySize int    `json:"min_subarray_size"`
	MaxSubarraySize int    `json:"max_subarray_size"`
	MinMotifCount   int    `json:"min_motif_count"`
	MinClusterSize  int    `json:"min_cluster_size"`
	Algorithm       string `json:"algorithm"`
}

// ModelRecord is the persisted form of a fitted motif database.
type ModelRecord struct {
	VersionedRecord
	ID         string             `json:"id"`
	Vectorizer VectorizerSettings `json:"vectorizer"`
	Estimator  EstimatorState     `json:"estimator"`
	Build      BuildSettings      `json:"build"`
	Clusters   []MotifCluster     `json:"clusters"`
}
