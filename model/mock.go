package model

import (
	"errors"
)

// Mock is a Backend that returns fixed logits without loading a runtime.
type Mock struct {
	spec Spec
	// Logits is returned (copied) from every Forward call.
	Logits []float32
	// Err, when set, is returned instead of Logits.
	Err error
	// Score, when set, computes logits from the input instead of Logits.
	Score func(t Tensor) []float32
	// Calls counts Forward invocations.
	Calls int
	// Last is the most recent tensor passed to Forward.
	Last Tensor
}

func NewMock(spec Spec, logits ...float32) *Mock {
	return &Mock{spec: spec, Logits: logits}
}

func (m *Mock) Spec() Spec {
	return m.spec
}

func (m *Mock) Forward(t Tensor) ([]float32, error) {
	m.Calls++
	m.Last = t
	if m.Err != nil {
		return nil, m.Err
	}
	if err := checkTensor(m.spec, t); err != nil {
		return nil, err
	}
	if m.Score != nil {
		return m.Score(t), nil
	}
	if len(m.Logits) == 0 {
		return nil, errors.New("mock has no logits")
	}
	out := make([]float32, len(m.Logits))
	copy(out, m.Logits)
	return out, nil
}

func (m *Mock) Close() error {
	return nil
}

var _ Backend = (*Mock)(nil)
