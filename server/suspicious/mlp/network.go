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
	"math/rand"
)

// leakyAlpha is the slope of leaky ReLU for negative inputs.
const leakyAlpha = 0.01

// layer is a fully connected layer. weights is row-major: the in weights of output neuron i
// start at i*in.
type layer struct {
	in      int
	out     int
	weights []float64
	biases  []float64
}

// network is a multilayer perceptron with equally wide hidden layers and a single sigmoid
// output neuron.
type network struct {
	layers     []layer
	activation string
}

// newNetwork creates a network with Xavier initialized weights and zero biases. All random
// values are drawn from rng, so equal seeds give equal networks.
func newNetwork(inputSize, hiddenWidth, hiddenLayers int, activation string, rng *rand.Rand) *network {
	nn := &network{
		layers:     make([]layer, 0, hiddenLayers+1),
		activation: activation,
	}

	in := inputSize

	for l := 0; l <= hiddenLayers; l++ {
		out := hiddenWidth
		if l == hiddenLayers {
			out = 1
		}

		current := layer{
			in:      in,
			out:     out,
			weights: make([]float64, in*out),
			biases:  make([]float64, out),
		}

		limit := math.Sqrt(6.0 / float64(in+out))
		for i := range current.weights {
			current.weights[i] = (rng.Float64()*2 - 1) * limit
		}

		nn.layers = append(nn.layers, current)
		in = out
	}

	return nn
}

// buffers holds the per-layer net inputs and activations of one forward pass.
type buffers struct {
	netInputs   [][]float64
	activations [][]float64
	deltas      [][]float64
}

func (nn *network) newBuffers() *buffers {
	b := &buffers{
		netInputs:   make([][]float64, len(nn.layers)),
		activations: make([][]float64, len(nn.layers)+1),
		deltas:      make([][]float64, len(nn.layers)),
	}

	for l, current := range nn.layers {
		b.netInputs[l] = make([]float64, current.out)
		b.activations[l+1] = make([]float64, current.out)
		b.deltas[l] = make([]float64, current.out)
	}

	return b
}

// feedForward runs one forward pass and returns the output neuron's activation.
func (nn *network) feedForward(input []float64, b *buffers) float64 {
	b.activations[0] = input
	last := len(nn.layers) - 1

	for l, current := range nn.layers {
		previous := b.activations[l]

		for i := 0; i < current.out; i++ {
			sum := current.biases[i]
			row := current.weights[i*current.in : (i+1)*current.in]

			for j, weight := range row {
				sum += weight * previous[j]
			}

			b.netInputs[l][i] = sum

			if l == last {
				b.activations[l+1][i] = sigmoid(sum)
			} else {
				b.activations[l+1][i] = nn.activate(sum)
			}
		}
	}

	return b.activations[len(nn.layers)][0]
}

// trainSample performs one forward pass, back propagates the binary cross-entropy gradient and
// updates all weights. It returns the sample's loss before the update.
func (nn *network) trainSample(input []float64, target, learningRate float64, b *buffers) float64 {
	output := nn.feedForward(input, b)
	last := len(nn.layers) - 1

	// With a sigmoid output the cross-entropy gradient at the net input is output - target.
	b.deltas[last][0] = output - target

	for l := last - 1; l >= 0; l-- {
		next := nn.layers[l+1]

		for i := 0; i < nn.layers[l].out; i++ {
			errorValue := 0.0
			for j := 0; j < next.out; j++ {
				errorValue += next.weights[j*next.in+i] * b.deltas[l+1][j]
			}

			b.deltas[l][i] = errorValue * nn.activateDerivative(b.netInputs[l][i])
		}
	}

	for l, current := range nn.layers {
		previous := b.activations[l]

		for i := 0; i < current.out; i++ {
			step := learningRate * b.deltas[l][i]
			row := current.weights[i*current.in : (i+1)*current.in]

			for j := range row {
				row[j] -= step * previous[j]
			}

			current.biases[i] -= step
		}
	}

	return crossEntropy(output, target)
}

// finite reports whether all weights and biases are finite numbers.
func (nn *network) finite() bool {
	for _, current := range nn.layers {
		for _, w := range current.weights {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return false
			}
		}

		for _, b := range current.biases {
			if math.IsNaN(b) || math.IsInf(b, 0) {
				return false
			}
		}
	}

	return true
}

// activate applies the selected hidden layer activation function to the input
func (nn *network) activate(x float64) float64 {
	switch nn.activation {
	case ActivationTanh:
		return math.Tanh(x)
	case ActivationReLU:
		if x > 0 {
			return x
		}

		return 0
	case ActivationLeakyReLU:
		if x > 0 {
			return x
		}

		return leakyAlpha * x
	default:
		return sigmoid(x)
	}
}

// activateDerivative calculates the derivative of the hidden layer activation function
func (nn *network) activateDerivative(x float64) float64 {
	switch nn.activation {
	case ActivationTanh:
		tanhX := math.Tanh(x)

		return 1.0 - tanhX*tanhX
	case ActivationReLU:
		if x > 0 {
			return 1.0
		}

		return 0.0
	case ActivationLeakyReLU:
		if x > 0 {
			return 1.0
		}

		return leakyAlpha
	default:
		sigmoidX := sigmoid(x)

		return sigmoidX * (1.0 - sigmoidX)
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

const lossEpsilon = 1e-12

func crossEntropy(output, target float64) float64 {
	p := math.Min(math.Max(output, lossEpsilon), 1-lossEpsilon)

	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}
