package model

import (
	"math"
	"math/rand"

	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

const (
	InputSize  = 10
	HiddenSize = 64
	OutputSize = 1

	defLearningRate = 0.01
	defEpochs       = 10
)

// ParameterCount is the flattened length of the reference network:
// w1 | b1 | w2 | b2.
const ParameterCount = InputSize*HiddenSize + HiddenSize + HiddenSize*OutputSize + OutputSize

// Trainer produces an updated parameter vector from the current global
// parameters and a local data sample. Implementations must preserve the
// vector length and be deterministic given identical inputs and seed.
type Trainer interface {
	Train(current Parameters, sample Sample) (Parameters, error)
}

// SimpleNN is a two-layer fully connected network with ReLU activation,
// trained by full-batch gradient descent.
type SimpleNN struct {
	w1 []float64 // [InputSize x HiddenSize], row-major
	b1 []float64 // [HiddenSize]
	w2 []float64 // [HiddenSize x OutputSize], row-major
	b2 []float64 // [OutputSize]

	learningRate float64
	epochs       int
}

// NewSimpleNN initializes weights with Xavier bounds from the given seed so
// two trainers created with the same seed start identical.
func NewSimpleNN(seed int64) *SimpleNN {
	rng := rand.New(rand.NewSource(seed))

	w1Bound := math.Sqrt(6.0 / float64(InputSize+HiddenSize))
	w2Bound := math.Sqrt(6.0 / float64(HiddenSize+OutputSize))

	nn := &SimpleNN{
		w1:           make([]float64, InputSize*HiddenSize),
		b1:           make([]float64, HiddenSize),
		w2:           make([]float64, HiddenSize*OutputSize),
		b2:           make([]float64, OutputSize),
		learningRate: defLearningRate,
		epochs:       defEpochs,
	}

	for i := range nn.w1 {
		nn.w1[i] = rng.Float64()*2*w1Bound - w1Bound
	}
	for i := range nn.w2 {
		nn.w2[i] = rng.Float64()*2*w2Bound - w2Bound
	}

	return nn
}

func (nn *SimpleNN) Train(current Parameters, sample Sample) (Parameters, error) {
	if err := nn.SetParameters(current); err != nil {
		return Parameters{}, err
	}
	if err := sample.Validate(InputSize); err != nil {
		return Parameters{}, err
	}

	rows := len(sample.Labels)
	for epoch := 0; epoch < nn.epochs; epoch++ {
		nn.step(sample.Data, sample.Labels, rows)
	}

	return nn.Parameters(), nil
}

// Predict runs the forward pass over the given feature rows.
func (nn *SimpleNN) Predict(data []float64) ([]float64, error) {
	if len(data) == 0 || len(data)%InputSize != 0 {
		return nil, pkgerrors.ErrShapeMismatch
	}

	rows := len(data) / InputSize
	out := make([]float64, rows)
	hidden := make([]float64, HiddenSize)
	for r := 0; r < rows; r++ {
		nn.forward(data[r*InputSize:(r+1)*InputSize], hidden, out[r:r+1])
	}

	return out, nil
}

func (nn *SimpleNN) forward(x, z1, z2 []float64) {
	for j := 0; j < HiddenSize; j++ {
		sum := nn.b1[j]
		for i := 0; i < InputSize; i++ {
			sum += x[i] * nn.w1[i*HiddenSize+j]
		}
		if sum < 0 {
			sum = 0
		}
		z1[j] = sum
	}
	for k := 0; k < OutputSize; k++ {
		sum := nn.b2[k]
		for j := 0; j < HiddenSize; j++ {
			sum += z1[j] * nn.w2[j*OutputSize+k]
		}
		z2[k] = sum
	}
}

// step performs one full-batch gradient descent update.
func (nn *SimpleNN) step(data, labels []float64, rows int) {
	dw1 := make([]float64, len(nn.w1))
	db1 := make([]float64, len(nn.b1))
	dw2 := make([]float64, len(nn.w2))
	db2 := make([]float64, len(nn.b2))

	hidden := make([]float64, HiddenSize)
	out := make([]float64, OutputSize)
	dz2 := make([]float64, OutputSize)
	dz1 := make([]float64, HiddenSize)

	scale := 1.0 / float64(rows)
	for r := 0; r < rows; r++ {
		x := data[r*InputSize : (r+1)*InputSize]
		nn.forward(x, hidden, out)

		for k := 0; k < OutputSize; k++ {
			dz2[k] = out[k] - labels[r*OutputSize+k]
			db2[k] += dz2[k] * scale
			for j := 0; j < HiddenSize; j++ {
				dw2[j*OutputSize+k] += hidden[j] * dz2[k] * scale
			}
		}

		for j := 0; j < HiddenSize; j++ {
			dz1[j] = 0
			if hidden[j] > 0 {
				for k := 0; k < OutputSize; k++ {
					dz1[j] += dz2[k] * nn.w2[j*OutputSize+k]
				}
			}
			db1[j] += dz1[j] * scale
			for i := 0; i < InputSize; i++ {
				dw1[i*HiddenSize+j] += x[i] * dz1[j] * scale
			}
		}
	}

	for i := range nn.w1 {
		nn.w1[i] -= nn.learningRate * dw1[i]
	}
	for i := range nn.b1 {
		nn.b1[i] -= nn.learningRate * db1[i]
	}
	for i := range nn.w2 {
		nn.w2[i] -= nn.learningRate * dw2[i]
	}
	for i := range nn.b2 {
		nn.b2[i] -= nn.learningRate * db2[i]
	}
}

// Parameters flattens the network into a single transmittable vector.
func (nn *SimpleNN) Parameters() Parameters {
	values := make([]float64, 0, ParameterCount)
	values = append(values, nn.w1...)
	values = append(values, nn.b1...)
	values = append(values, nn.w2...)
	values = append(values, nn.b2...)

	return Parameters{Values: values}
}

// SetParameters loads a flattened vector back into the network layers.
func (nn *SimpleNN) SetParameters(p Parameters) error {
	if p.Size() != ParameterCount {
		return pkgerrors.ErrShapeMismatch
	}

	offset := 0
	offset += copy(nn.w1, p.Values[offset:offset+len(nn.w1)])
	offset += copy(nn.b1, p.Values[offset:offset+len(nn.b1)])
	offset += copy(nn.w2, p.Values[offset:offset+len(nn.w2)])
	copy(nn.b2, p.Values[offset:offset+len(nn.b2)])

	return nil
}
