package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/fedlearn/model"
	pkgerrors "github.com/absmach/fedlearn/pkg/errors"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		name    string
		updates []model.Parameters
		divisor int
		want    []float64
		err     error
	}{
		{
			name: "three updates",
			updates: []model.Parameters{
				model.NewParameters([]float64{1, 1, 1, 1}),
				model.NewParameters([]float64{2, 2, 2, 2}),
				model.NewParameters([]float64{0, 0, 0, 0}),
			},
			divisor: 3,
			want:    []float64{1, 1, 1, 1},
		},
		{
			name: "single update",
			updates: []model.Parameters{
				model.NewParameters([]float64{4, 8}),
			},
			divisor: 1,
			want:    []float64{4, 8},
		},
		{
			name:    "no updates",
			updates: nil,
			divisor: 3,
			err:     pkgerrors.ErrInvalidData,
		},
		{
			name: "zero divisor",
			updates: []model.Parameters{
				model.NewParameters([]float64{1}),
			},
			divisor: 0,
			err:     pkgerrors.ErrInvalidData,
		},
		{
			name: "mismatched shapes",
			updates: []model.Parameters{
				model.NewParameters([]float64{1, 2}),
				model.NewParameters([]float64{1, 2, 3}),
			},
			divisor: 2,
			err:     pkgerrors.ErrShapeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.Average(tt.updates, tt.divisor)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Values)
		})
	}
}

func TestAverageDoesNotMutateInputs(t *testing.T) {
	a := model.NewParameters([]float64{2, 4})
	b := model.NewParameters([]float64{6, 8})

	_, err := model.Average([]model.Parameters{a, b}, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4}, a.Values)
	assert.Equal(t, []float64{6, 8}, b.Values)
}

func TestCloneIndependence(t *testing.T) {
	orig := model.NewParameters([]float64{1, 2, 3})
	clone := orig.Clone()

	clone.Values[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, orig.Values)
}

func TestMatchesShape(t *testing.T) {
	a := model.Zeros(4)
	b := model.Zeros(4)
	c := model.Zeros(3)

	assert.NoError(t, a.MatchesShape(b))
	assert.ErrorIs(t, a.MatchesShape(c), pkgerrors.ErrShapeMismatch)
}
