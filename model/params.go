package model

import (
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

// Parameters is a flat vector of model weights. It is passed by value
// between the agent and the aggregator and replaced wholesale each round;
// callers must never mutate a vector another component still references.
type Parameters struct {
	Values []float64 `json:"values"`
}

func NewParameters(values []float64) Parameters {
	return Parameters{Values: values}
}

func Zeros(size int) Parameters {
	return Parameters{Values: make([]float64, size)}
}

func (p Parameters) Size() int {
	return len(p.Values)
}

// Clone returns an independent copy so readers observe either the fully-old
// or fully-new vector, never an interleaved mix.
func (p Parameters) Clone() Parameters {
	values := make([]float64, len(p.Values))
	copy(values, p.Values)

	return Parameters{Values: values}
}

func (p Parameters) MatchesShape(other Parameters) error {
	if len(p.Values) != len(other.Values) {
		return pkgerrors.ErrShapeMismatch
	}

	return nil
}

// Average computes the unweighted element-wise mean of the given vectors,
// dividing by divisor rather than len(updates) so the round's expected count
// stays the denominator even if the two ever diverge.
func Average(updates []Parameters, divisor int) (Parameters, error) {
	if len(updates) == 0 || divisor <= 0 {
		return Parameters{}, pkgerrors.ErrInvalidData
	}

	size := updates[0].Size()
	sum := make([]float64, size)
	for _, u := range updates {
		if u.Size() != size {
			return Parameters{}, pkgerrors.ErrShapeMismatch
		}
		for i, v := range u.Values {
			sum[i] += v
		}
	}

	for i := range sum {
		sum[i] /= float64(divisor)
	}

	return Parameters{Values: sum}, nil
}
