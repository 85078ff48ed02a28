package estimator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"smod/internal/model"
)

// State snapshots the learner for persistence. Weights layout:
// [dim uint32][dim x float64], little-endian.
func (m *SGD) State() (model.EstimatorState, error) {
	buf := &bytes.Buffer{}
	buf.Grow(4 + 8*len(m.v))
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(m.v))); err != nil {
		return model.EstimatorState{}, err
	}
	if err := binary.Write(buf, binary.LittleEndian, m.Weights()); err != nil {
		return model.EstimatorState{}, err
	}
	return model.EstimatorState{
		Loss:      m.Loss,
		Alpha:     m.Alpha,
		Eta0:      m.Eta0,
		PowerT:    m.PowerT,
		Epochs:    m.Epochs,
		Intercept: m.Intercept,
		Steps:     m.Steps,
		Weights:   buf.Bytes(),
	}, nil
}

// FromState restores a learner; dim must match the weight blob.
func FromState(state model.EstimatorState, dim int) (*SGD, error) {
	p := Params{
		Loss:   state.Loss,
		Alpha:  state.Alpha,
		Eta0:   state.Eta0,
		PowerT: state.PowerT,
		Epochs: state.Epochs,
	}
	m, err := NewSGD(dim, p)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(state.Weights)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read weight count: %w", err)
	}
	if int(n) != dim {
		return nil, fmt.Errorf("weight count %d does not match dimension %d", n, dim)
	}
	if r.Len() != 8*dim {
		return nil, errors.New("truncated weight blob")
	}
	if err := binary.Read(r, binary.LittleEndian, m.v); err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	for _, w := range m.v {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.New("non-finite weight")
		}
	}
	m.Intercept = state.Intercept
	m.Steps = state.Steps
	return m, nil
}
