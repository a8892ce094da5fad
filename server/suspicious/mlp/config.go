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
	"math"

	"github.com/cloudcopy/suspicious-login/server/errors"

	jsoniter "github.com/json-iterator/go"
)

// Supported hidden layer activation functions. The output neuron is always a sigmoid.
const (
	ActivationSigmoid   = "sigmoid"
	ActivationTanh      = "tanh"
	ActivationReLU      = "relu"
	ActivationLeakyReLU = "leaky_relu"
)

const minHiddenWidth = 8

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the hyperparameters of a training run. It is a value type: every With method
// returns a modified copy and leaves the receiver untouched.
type Config struct {
	epochs               int
	layers               int
	hiddenWidth          int
	shuffledNegativeRate float64
	randomNegativeRate   float64
	learningRate         float64
	activation           string
}

// NewConfig returns a validated Config with a sigmoid hidden activation and the default
// hidden width.
func NewConfig(epochs, layers int, shuffledNegativeRate, randomNegativeRate, learningRate float64) (Config, error) {
	cfg := Config{
		epochs:               epochs,
		layers:               layers,
		shuffledNegativeRate: shuffledNegativeRate,
		randomNegativeRate:   randomNegativeRate,
		learningRate:         learningRate,
		activation:           ActivationSigmoid,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Epochs() int                   { return c.epochs }
func (c Config) Layers() int                   { return c.layers }
func (c Config) ShuffledNegativeRate() float64 { return c.shuffledNegativeRate }
func (c Config) RandomNegativeRate() float64   { return c.randomNegativeRate }
func (c Config) LearningRate() float64         { return c.learningRate }

// Activation returns the hidden layer activation. An unset value means sigmoid.
func (c Config) Activation() string {
	if c.activation == "" {
		return ActivationSigmoid
	}

	return c.activation
}

// HiddenWidth returns the configured hidden layer width. Zero means automatic, see HiddenWidthFor.
func (c Config) HiddenWidth() int { return c.hiddenWidth }

// HiddenWidthFor returns the width of every hidden layer for a given input size.
func (c Config) HiddenWidthFor(inputSize int) int {
	if c.hiddenWidth > 0 {
		return c.hiddenWidth
	}

	return max(inputSize/2, minHiddenWidth)
}

func (c Config) WithEpochs(epochs int) Config {
	c.epochs = epochs

	return c
}

func (c Config) WithLayers(layers int) Config {
	c.layers = layers

	return c
}

func (c Config) WithShuffledNegativeRate(rate float64) Config {
	c.shuffledNegativeRate = rate

	return c
}

func (c Config) WithRandomNegativeRate(rate float64) Config {
	c.randomNegativeRate = rate

	return c
}

func (c Config) WithLearningRate(rate float64) Config {
	c.learningRate = rate

	return c
}

func (c Config) WithActivation(activation string) Config {
	c.activation = activation

	return c
}

func (c Config) WithHiddenWidth(width int) Config {
	c.hiddenWidth = width

	return c
}

// Validate checks the ranges of all hyperparameters.
func (c Config) Validate() error {
	switch {
	case c.epochs < 1:
		return fmt.Errorf("%w: epochs must be at least 1, got %d", errors.ErrInvalidMLPConfig, c.epochs)
	case c.layers < 1:
		return fmt.Errorf("%w: layers must be at least 1, got %d", errors.ErrInvalidMLPConfig, c.layers)
	case c.hiddenWidth < 0:
		return fmt.Errorf("%w: hidden width must not be negative, got %d", errors.ErrInvalidMLPConfig, c.hiddenWidth)
	case !isRate(c.shuffledNegativeRate):
		return fmt.Errorf("%w: shuffled negative rate must be in [0, 1], got %v", errors.ErrInvalidMLPConfig, c.shuffledNegativeRate)
	case !isRate(c.randomNegativeRate):
		return fmt.Errorf("%w: random negative rate must be in [0, 1], got %v", errors.ErrInvalidMLPConfig, c.randomNegativeRate)
	case !(c.learningRate > 0) || math.IsInf(c.learningRate, 1):
		return fmt.Errorf("%w: learning rate must be a positive number, got %v", errors.ErrInvalidMLPConfig, c.learningRate)
	}

	switch c.Activation() {
	case ActivationSigmoid, ActivationTanh, ActivationReLU, ActivationLeakyReLU:
	default:
		return fmt.Errorf("%w: unknown activation %q", errors.ErrInvalidMLPConfig, c.activation)
	}

	return nil
}

func isRate(value float64) bool {
	return value >= 0 && value <= 1
}

func (c Config) String() string {
	return fmt.Sprintf("epochs=%d layers=%d hidden_width=%d shuffled=%.2f random=%.2f learn_rate=%g activation=%s",
		c.epochs, c.layers, c.hiddenWidth, c.shuffledNegativeRate, c.randomNegativeRate, c.learningRate, c.Activation())
}

type configJSON struct {
	Epochs               int     `json:"epochs"`
	Layers               int     `json:"layers"`
	HiddenWidth          int     `json:"hidden_width,omitempty"`
	ShuffledNegativeRate float64 `json:"shuffled_negative_rate"`
	RandomNegativeRate   float64 `json:"random_negative_rate"`
	LearningRate         float64 `json:"learning_rate"`
	Activation           string  `json:"activation"`
}

// MarshalJSON stores the hyperparameters next to a persisted model.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		Epochs:               c.epochs,
		Layers:               c.layers,
		HiddenWidth:          c.hiddenWidth,
		ShuffledNegativeRate: c.shuffledNegativeRate,
		RandomNegativeRate:   c.randomNegativeRate,
		LearningRate:         c.learningRate,
		Activation:           c.Activation(),
	})
}

func (c *Config) UnmarshalJSON(data []byte) error {
	var raw configJSON

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Config{
		epochs:               raw.Epochs,
		layers:               raw.Layers,
		hiddenWidth:          raw.HiddenWidth,
		shuffledNegativeRate: raw.ShuffledNegativeRate,
		randomNegativeRate:   raw.RandomNegativeRate,
		learningRate:         raw.LearningRate,
		activation:           raw.Activation,
	}

	return nil
}
