package model

import (
	"math/rand"

	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

// Sample is one participant's local training batch: Data holds
// len(Labels) rows of features flattened row-major.
type Sample struct {
	Data   []float64 `json:"data"`
	Labels []float64 `json:"labels"`
}

func (s Sample) Validate(features int) error {
	if len(s.Labels) == 0 {
		return pkgerrors.ErrInvalidData
	}
	if len(s.Data) != len(s.Labels)*features {
		return pkgerrors.ErrShapeMismatch
	}

	return nil
}

// GenerateData produces a synthetic regression sample for demo runs:
// features drawn from [-1, 1), label = x0 + x1 + x2.
func GenerateData(samples int, seed int64) Sample {
	rng := rand.New(rand.NewSource(seed))

	data := make([]float64, 0, samples*InputSize)
	labels := make([]float64, 0, samples)

	for i := 0; i < samples; i++ {
		row := make([]float64, InputSize)
		for j := range row {
			row[j] = rng.Float64()*2 - 1
		}
		data = append(data, row...)
		labels = append(labels, row[0]+row[1]+row[2])
	}

	return Sample{Data: data, Labels: labels}
}
