// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package evaluation

import (
	"context"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/training"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// thresholdModel flags a single feature of 1 as suspicious and 0 as normal.
func thresholdModel() *mlp.Model {
	return &mlp.Model{
		AddressFamily: definitions.AddressFamilyV4,
		TrainedAt:     77,
		InputSize:     1,
		HiddenWidth:   1,
		Layers:        1,
		Activation:    mlp.ActivationSigmoid,
		Weights:       [][]float64{{10}, {10}},
		Biases:        [][]float64{{-5}, {-5}},
	}
}

func repeat(sample training.Sample, count int) []training.Sample {
	samples := make([]training.Sample, count)
	for i := range samples {
		samples[i] = sample
	}

	return samples
}

func mixedSamples() []training.Sample {
	var samples []training.Sample

	samples = append(samples, repeat(training.Sample{Features: []float64{1}, Label: training.Negative}, 3)...)
	samples = append(samples, repeat(training.Sample{Features: []float64{0}, Label: training.Negative}, 1)...)
	samples = append(samples, repeat(training.Sample{Features: []float64{1}, Label: training.Positive}, 1)...)
	samples = append(samples, repeat(training.Sample{Features: []float64{0}, Label: training.Positive}, 5)...)

	return samples
}

func TestEvaluator_Evaluate(t *testing.T) {
	require.NoError(t, thresholdModel().Validate())

	result, err := NewEvaluator(1).Evaluate(context.Background(), thresholdModel(), mixedSamples())
	require.NoError(t, err)

	assert.Equal(t, 3, result.TruePositives)
	assert.Equal(t, 1, result.FalseNegatives)
	assert.Equal(t, 1, result.FalsePositives)
	assert.Equal(t, 5, result.TrueNegatives)
	assert.Equal(t, 10, result.Samples())
	assert.InDelta(t, 0.75, result.Precision, 1e-12)
	assert.InDelta(t, 0.75, result.Recall, 1e-12)
	assert.Equal(t, int64(77), result.EvaluatedAgainst)
}

func TestEvaluator_WorkersDoNotChangeResult(t *testing.T) {
	samples := mixedSamples()
	for i := 0; i < 5; i++ {
		samples = append(samples, mixedSamples()...)
	}

	serial, err := NewEvaluator(1).Evaluate(context.Background(), thresholdModel(), samples)
	require.NoError(t, err)

	for _, workers := range []int{0, 2, 7, 100} {
		parallel, err := NewEvaluator(workers).Evaluate(context.Background(), thresholdModel(), samples)
		require.NoError(t, err)

		assert.Equal(t, serial, parallel)
	}
}

func TestEvaluator_ZeroDenominators(t *testing.T) {
	tests := []struct {
		name    string
		samples []training.Sample
	}{
		{name: "no suspicious predictions and no suspicious samples", samples: repeat(training.Sample{Features: []float64{0}, Label: training.Positive}, 4)},
		{name: "only false positives", samples: repeat(training.Sample{Features: []float64{1}, Label: training.Positive}, 4)},
		{name: "only false negatives", samples: repeat(training.Sample{Features: []float64{0}, Label: training.Negative}, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewEvaluator(2).Evaluate(context.Background(), thresholdModel(), tt.samples)
			require.NoError(t, err)

			assert.Zero(t, result.Precision)
			assert.Zero(t, result.Recall)
		})
	}
}

func TestEvaluator_NotEvaluable(t *testing.T) {
	_, err := NewEvaluator(1).Evaluate(context.Background(), thresholdModel(), nil)
	assert.ErrorIs(t, err, errors.ErrNotEvaluable)

	_, err = NewEvaluator(1).Evaluate(context.Background(), nil, mixedSamples())
	assert.ErrorIs(t, err, errors.ErrNotEvaluable)
}

func TestEvaluator_FeatureSize(t *testing.T) {
	samples := []training.Sample{{Features: []float64{1, 0}, Label: training.Negative}}

	_, err := NewEvaluator(1).Evaluate(context.Background(), thresholdModel(), samples)
	assert.ErrorIs(t, err, errors.ErrFeatureSize)
}
