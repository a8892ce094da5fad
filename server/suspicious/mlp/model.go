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
	"fmt"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
)

// SuspiciousThreshold is the output at and above which a login is classified as suspicious.
const SuspiciousThreshold = 0.5

// Model is a trained network together with everything needed to use and describe it. A Model
// is never modified after training.
type Model struct {
	AddressFamily definitions.AddressFamily `json:"address_family"`
	TrainedAt     int64                     `json:"trained_at"`
	InputSize     int                       `json:"input_size"`
	HiddenWidth   int                       `json:"hidden_width"`
	Layers        int                       `json:"layers"`
	Activation    string                    `json:"activation"`
	Weights       [][]float64               `json:"weights"`
	Biases        [][]float64               `json:"biases"`
	Config        Config                    `json:"config"`
}

func newModel(nn *network, cfg Config, family definitions.AddressFamily, trainedAt int64) *Model {
	model := &Model{
		AddressFamily: family,
		TrainedAt:     trainedAt,
		InputSize:     nn.layers[0].in,
		HiddenWidth:   nn.layers[0].out,
		Layers:        len(nn.layers) - 1,
		Activation:    nn.activation,
		Weights:       make([][]float64, len(nn.layers)),
		Biases:        make([][]float64, len(nn.layers)),
		Config:        cfg,
	}

	for l, current := range nn.layers {
		model.Weights[l] = append([]float64(nil), current.weights...)
		model.Biases[l] = append([]float64(nil), current.biases...)
	}

	return model
}

// Validate checks that the stored weights fit the declared shape. It is used for models that
// were loaded from storage.
func (m *Model) Validate() error {
	if !m.AddressFamily.Valid() {
		return fmt.Errorf("%w: %d", errors.ErrFamilyMismatch, m.AddressFamily)
	}

	if m.InputSize < 1 || m.HiddenWidth < 1 || m.Layers < 1 {
		return fmt.Errorf("invalid model shape: input=%d hidden=%d layers=%d", m.InputSize, m.HiddenWidth, m.Layers)
	}

	if len(m.Weights) != m.Layers+1 || len(m.Biases) != m.Layers+1 {
		return fmt.Errorf("model has %d weight and %d bias layers, want %d", len(m.Weights), len(m.Biases), m.Layers+1)
	}

	in := m.InputSize

	for l := 0; l <= m.Layers; l++ {
		out := m.HiddenWidth
		if l == m.Layers {
			out = 1
		}

		if len(m.Weights[l]) != in*out || len(m.Biases[l]) != out {
			return fmt.Errorf("layer %d has %d weights and %d biases, want %d and %d",
				l, len(m.Weights[l]), len(m.Biases[l]), in*out, out)
		}

		in = out
	}

	return nil
}

func (m *Model) network() *network {
	nn := &network{
		layers:     make([]layer, len(m.Weights)),
		activation: m.Activation,
	}

	in := m.InputSize

	for l := range m.Weights {
		out := m.HiddenWidth
		if l == len(m.Weights)-1 {
			out = 1
		}

		nn.layers[l] = layer{in: in, out: out, weights: m.Weights[l], biases: m.Biases[l]}
		in = out
	}

	return nn
}

// Predict returns the probability that the login described by features is suspicious. It is
// safe for concurrent use.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != m.InputSize {
		return 0, fmt.Errorf("%w: expected %d, got %d", errors.ErrFeatureSize, m.InputSize, len(features))
	}

	nn := m.network()

	return nn.feedForward(features, nn.newBuffers()), nil
}

// Classify classifies a feature vector with SuspiciousThreshold.
func (m *Model) Classify(features []float64) (bool, error) {
	output, err := m.Predict(features)
	if err != nil {
		return false, err
	}

	return output >= SuspiciousThreshold, nil
}
