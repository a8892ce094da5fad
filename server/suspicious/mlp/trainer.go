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
	"math/rand"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/model/training"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
)

// progressInterval is the number of epochs between two progress log lines.
const progressInterval = 10

// Trainer fits a Model to a set of labeled samples. Two trainers with the same seed produce
// bit-identical models from identical inputs.
type Trainer struct {
	seed int64
}

// NewTrainer returns a Trainer that draws all random values from seed.
func NewTrainer(seed int64) *Trainer {
	return &Trainer{seed: seed}
}

// Train runs stochastic gradient descent over samples for cfg.Epochs() epochs. The sample
// order is reshuffled every epoch. A diverging run returns a ServiceError.
func (t *Trainer) Train(cfg Config, family definitions.AddressFamily, trainedAt int64, samples []training.Sample) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewServiceError("refusing to train", err)
	}

	if len(samples) == 0 {
		return nil, errors.NewServiceError("refusing to train", fmt.Errorf("no training samples"))
	}

	inputSize := len(samples[0].Features)

	for index := range samples {
		if len(samples[index].Features) != inputSize {
			return nil, errors.NewServiceError("refusing to train",
				fmt.Errorf("%w: sample %d has %d features, want %d", errors.ErrFeatureSize, index, len(samples[index].Features), inputSize))
		}
	}

	rng := rand.New(rand.NewSource(t.seed))
	hiddenWidth := cfg.HiddenWidthFor(inputSize)
	nn := newNetwork(inputSize, hiddenWidth, cfg.Layers(), cfg.Activation(), rng)
	familyName := family.String()

	util.DebugModule(definitions.DbgNeural,
		"action", "create_neural_network",
		"input_size", inputSize,
		"hidden_size", hiddenWidth,
		"hidden_layers", cfg.Layers(),
		"activation_function", cfg.Activation(),
		"seed", t.seed,
	)

	stats.GetMetrics().RecordNetworkStructure(familyName, inputSize, hiddenWidth, 1)

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	b := nn.newBuffers()
	epochs := cfg.Epochs()

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		totalLoss := 0.0

		for _, index := range order {
			totalLoss += nn.trainSample(samples[index].Features, samples[index].Label.Target(), cfg.LearningRate(), b)
		}

		avgLoss := totalLoss / float64(len(samples))

		if math.IsNaN(avgLoss) || math.IsInf(avgLoss, 0) || !nn.finite() {
			return nil, errors.NewServiceError("training diverged",
				fmt.Errorf("non-finite loss in epoch %d, consider a lower learning rate", epoch))
		}

		if epoch%progressInterval == 0 || epoch == epochs-1 {
			level.Info(log.Logger).Log(
				definitions.LogKeyMsg, fmt.Sprintf("Epoch %d: Average error = %.6f", epoch, avgLoss),
				definitions.LogKeyAddressFamily, familyName,
			)

			util.DebugModule(definitions.DbgNeural,
				"action", "epoch_progress",
				"epoch", epoch,
				"total_epochs", epochs,
				"average_error", avgLoss,
			)

			stats.GetMetrics().RecordTrainingError(familyName, epoch, avgLoss)
		}
	}

	util.DebugModule(definitions.DbgNeural,
		"action", "train_complete",
		"epochs_completed", epochs,
		"samples", len(samples),
	)

	return newModel(nn, cfg, family, trainedAt), nil
}
