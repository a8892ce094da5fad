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

package mlp

import (
	"math"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithIsNonDestructive(t *testing.T) {
	base, err := NewConfig(100, 2, 0.5, 0.5, 0.05)
	require.NoError(t, err)

	changed := base.WithEpochs(10).WithLayers(3)

	assert.Equal(t, 100, base.Epochs())
	assert.Equal(t, 2, base.Layers())
	assert.Equal(t, 10, changed.Epochs())
	assert.Equal(t, 3, changed.Layers())
	assert.Equal(t, base.LearningRate(), changed.LearningRate())
	assert.Equal(t, ActivationSigmoid, changed.Activation())
}

func TestConfig_Validate(t *testing.T) {
	base, err := NewConfig(100, 2, 0.5, 0.5, 0.05)
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero epochs", cfg: base.WithEpochs(0)},
		{name: "zero layers", cfg: base.WithLayers(0)},
		{name: "negative hidden width", cfg: base.WithHiddenWidth(-1)},
		{name: "shuffled rate above one", cfg: base.WithShuffledNegativeRate(1.5)},
		{name: "negative random rate", cfg: base.WithRandomNegativeRate(-0.1)},
		{name: "zero learning rate", cfg: base.WithLearningRate(0)},
		{name: "NaN learning rate", cfg: base.WithLearningRate(math.NaN())},
		{name: "unknown activation", cfg: base.WithActivation("softplus")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), errors.ErrInvalidMLPConfig)
		})
	}

	_, err = NewConfig(0, 2, 0.5, 0.5, 0.05)
	assert.ErrorIs(t, err, errors.ErrInvalidMLPConfig)
}

func TestConfig_HiddenWidthFor(t *testing.T) {
	cfg, err := NewConfig(1, 1, 0, 0, 0.1)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.HiddenWidthFor(48))
	assert.Equal(t, 40, cfg.HiddenWidthFor(80))
	assert.Equal(t, 8, cfg.HiddenWidthFor(4))
	assert.Equal(t, 5, cfg.WithHiddenWidth(5).HiddenWidthFor(48))
}

func TestConfig_JSON(t *testing.T) {
	cfg, err := NewConfig(80, 3, 0.6, 0.4, 0.02)
	require.NoError(t, err)

	cfg = cfg.WithActivation(ActivationTanh)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"epochs":80,"layers":3,"shuffled_negative_rate":0.6,"random_negative_rate":0.4,"learning_rate":0.02,"activation":"tanh"}`, string(data))

	var decoded Config

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)
}
