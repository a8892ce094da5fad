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

// Package evaluation measures a trained model on its validation pool. The positive class of
// the metrics is "suspicious": a synthesized login the model flags is a true positive.
package evaluation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/training"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/util"

	"golang.org/x/sync/errgroup"
)

// Result holds the metrics of one evaluation. It can be recomputed at any time from the model
// and the validation pool.
type Result struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TrueNegatives  int `json:"true_negatives"`

	// EvaluatedAgainst is the TrainedAt of the evaluated model.
	EvaluatedAgainst int64 `json:"evaluated_against"`
}

// Samples returns the number of evaluated samples.
func (r *Result) Samples() int {
	return r.TruePositives + r.FalsePositives + r.FalseNegatives + r.TrueNegatives
}

type confusion struct {
	tp, fp, fn, tn int
}

func (c *confusion) add(other confusion) {
	c.tp += other.tp
	c.fp += other.fp
	c.fn += other.fn
	c.tn += other.tn
}

// Evaluator classifies samples in parallel. Counts are integers, so the result does not
// depend on the number of workers.
type Evaluator struct {
	workers int
}

// NewEvaluator returns an Evaluator using up to workers goroutines. Zero or less means one
// per CPU.
func NewEvaluator(workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Evaluator{workers: workers}
}

// Evaluate classifies every sample with model and returns precision and recall. An empty pool
// returns ErrNotEvaluable.
func (e *Evaluator) Evaluate(ctx context.Context, model *mlp.Model, samples []training.Sample) (*Result, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: no model", errors.ErrNotEvaluable)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: validation pool is empty", errors.ErrNotEvaluable)
	}

	workers := min(e.workers, len(samples))
	chunkSize := (len(samples) + workers - 1) / workers
	partial := make([]confusion, workers)

	g, ctx := errgroup.WithContext(ctx)

	for worker := 0; worker < workers; worker++ {
		start := worker * chunkSize
		end := min(start+chunkSize, len(samples))

		if start >= end {
			break
		}

		g.Go(func() error {
			counts := &partial[worker]

			for _, sample := range samples[start:end] {
				if err := ctx.Err(); err != nil {
					return err
				}

				suspicious, err := model.Classify(sample.Features)
				if err != nil {
					return err
				}

				switch {
				case suspicious && sample.Label == training.Negative:
					counts.tp++
				case suspicious:
					counts.fp++
				case sample.Label == training.Negative:
					counts.fn++
				default:
					counts.tn++
				}
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total confusion

	for _, counts := range partial {
		total.add(counts)
	}

	result := &Result{
		Precision:        ratio(total.tp, total.tp+total.fp),
		Recall:           ratio(total.tp, total.tp+total.fn),
		TruePositives:    total.tp,
		FalsePositives:   total.fp,
		FalseNegatives:   total.fn,
		TrueNegatives:    total.tn,
		EvaluatedAgainst: model.TrainedAt,
	}

	util.DebugModule(definitions.DbgNeural,
		"action", "evaluate",
		definitions.LogKeyAddressFamily, model.AddressFamily.String(),
		"samples", len(samples),
		"workers", workers,
		"true_positives", total.tp,
		"false_positives", total.fp,
		"false_negatives", total.fn,
		"true_negatives", total.tn,
	)

	return result, nil
}

// ratio returns numerator / denominator, or 0 for a zero denominator.
func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}

	return float64(numerator) / float64(denominator)
}
