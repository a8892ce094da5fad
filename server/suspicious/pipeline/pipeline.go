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

// Package pipeline runs one training invocation: collect and partition the event log, train a
// model, evaluate it and hand it to the model sink.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/eventlog"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/modelstore"
	"github.com/cloudcopy/suspicious-login/server/monitoring/trace"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/suspicious/dataset"
	"github.com/cloudcopy/suspicious-login/server/suspicious/evaluation"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/suspicious/strategy"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
)

// State is a step of a training invocation.
type State string

const (
	StateCollectAndPartition State = "collect_and_partition"
	StateTrain               State = "train"
	StateEvaluate            State = "evaluate"
	StateReport              State = "report"
)

// Options tune a single invocation.
type Options struct {
	// Seed drives negative sampling, weight initialization and sample order.
	Seed int64

	// Sink receives the trained model. Nil keeps the model in the Result only.
	Sink modelstore.Sink

	// Evaluator defaults to one worker per CPU.
	Evaluator *evaluation.Evaluator
}

// Result is the outcome of a successful invocation.
type Result struct {
	GUID    string
	Model   *mlp.Model
	Dataset *dataset.Dataset

	// Evaluation is nil when the model could not be evaluated.
	Evaluation *evaluation.Result

	// EvaluationError explains a nil Evaluation.
	EvaluationError error
}

// Trainer runs invocations against one event log.
type Trainer struct {
	reader eventlog.Reader
	tracer trace.Tracer
}

// NewTrainer returns a Trainer reading from reader.
func NewTrainer(reader eventlog.Reader) *Trainer {
	return &Trainer{
		reader: reader,
		tracer: trace.New("suspicious-login/pipeline"),
	}
}

// Train runs one invocation. Invalid configurations are rejected before the event log is
// read. Afterwards every failure is either an InsufficientDataError or a ServiceError and no
// model is returned.
func (t *Trainer) Train(ctx context.Context, mlpCfg mlp.Config, dataCfg dataset.TrainingDataConfig, s strategy.Strategy, opts Options) (result *Result, err error) {
	if s == nil {
		return nil, errors.NewServiceError("no feature strategy selected", nil)
	}

	if err = mlpCfg.Validate(); err != nil {
		return nil, err
	}

	if err = dataCfg.Validate(); err != nil {
		return nil, err
	}

	guid := ksuid.New().String()
	family := s.Family().String()
	started := time.Now()

	ctx, sp := t.tracer.Start(ctx, "pipeline.train",
		attribute.String("run", guid),
		attribute.String("family", family),
		attribute.Int64("now", dataCfg.Now()),
	)

	defer func() {
		trace.End(sp, err)
		stats.GetMetrics().RecordTrainingRun(family, time.Since(started).Seconds(), err == nil)
	}()

	level.Info(log.Logger).Log(
		definitions.LogKeyGUID, guid,
		definitions.LogKeyMsg, "Starting training run",
		definitions.LogKeyAddressFamily, family,
		"mlp", mlpCfg.String(),
		"data", dataCfg.String(),
	)

	t.transition(guid, StateCollectAndPartition)

	ds, err := t.collect(ctx, mlpCfg, dataCfg, s, opts.Seed)
	if err != nil {
		t.logFailure(guid, StateCollectAndPartition, err)

		return nil, err
	}

	t.transition(guid, StateTrain)

	model, err := t.train(ctx, mlpCfg, dataCfg, s, ds, opts.Seed)
	if err != nil {
		t.logFailure(guid, StateTrain, err)

		return nil, err
	}

	result = &Result{GUID: guid, Model: model, Dataset: ds}

	t.transition(guid, StateEvaluate)

	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = evaluation.NewEvaluator(0)
	}

	result.Evaluation, result.EvaluationError = t.evaluate(ctx, evaluator, model, ds)
	if result.EvaluationError != nil {
		level.Warn(log.Logger).Log(
			definitions.LogKeyGUID, guid,
			definitions.LogKeyMsg, "Model is not yet evaluable",
			definitions.LogKeyError, result.EvaluationError,
		)
	} else {
		stats.GetMetrics().RecordEvaluation(family, result.Evaluation.Precision, result.Evaluation.Recall)
	}

	t.transition(guid, StateReport)

	if opts.Sink != nil {
		if err = opts.Sink.Save(ctx, model, result.Evaluation); err != nil {
			err = errors.NewServiceError("could not save the model", err)
			t.logFailure(guid, StateReport, err)

			return nil, err
		}
	}

	keyvals := []any{
		definitions.LogKeyGUID, guid,
		definitions.LogKeyMsg, "Training run finished",
		definitions.LogKeyAddressFamily, family,
		"trained_at", model.TrainedAt,
		"duration", time.Since(started).String(),
	}

	if result.Evaluation != nil {
		keyvals = append(keyvals, "precision", result.Evaluation.Precision, "recall", result.Evaluation.Recall)
	}

	level.Info(log.Logger).Log(keyvals...)

	return result, nil
}

func (t *Trainer) collect(ctx context.Context, mlpCfg mlp.Config, dataCfg dataset.TrainingDataConfig, s strategy.Strategy, seed int64) (ds *dataset.Dataset, err error) {
	ctx, sp := t.tracer.StartClient(ctx, "pipeline.collect_and_partition")
	defer func() { trace.End(sp, err) }()

	ds, err = dataset.NewAssembler(t.reader, s, seed).Assemble(ctx, dataCfg, mlpCfg)
	if err != nil {
		return nil, err
	}

	sp.SetAttributes(
		attribute.Int("training.samples", len(ds.Training.Samples)),
		attribute.Int("validation.samples", len(ds.Validation.Samples)),
	)

	return ds, nil
}

func (t *Trainer) train(ctx context.Context, mlpCfg mlp.Config, dataCfg dataset.TrainingDataConfig, s strategy.Strategy, ds *dataset.Dataset, seed int64) (model *mlp.Model, err error) {
	_, sp := t.tracer.Start(ctx, "pipeline.fit", attribute.Int("epochs", mlpCfg.Epochs()))
	defer func() { trace.End(sp, err) }()

	if len(ds.Training.Samples) == 0 {
		return nil, errors.NewServiceError("training pool is empty", nil)
	}

	return mlp.NewTrainer(seed).Train(mlpCfg, s.Family(), dataCfg.Now(), ds.Training.Samples)
}

func (t *Trainer) evaluate(ctx context.Context, evaluator *evaluation.Evaluator, model *mlp.Model, ds *dataset.Dataset) (result *evaluation.Result, err error) {
	ctx, sp := t.tracer.Start(ctx, "pipeline.evaluate")
	defer func() { trace.End(sp, err) }()

	result, err = evaluator.Evaluate(ctx, model, ds.Validation.Samples)
	if err != nil && !stderrors.Is(err, errors.ErrNotEvaluable) {
		err = fmt.Errorf("%w: %v", errors.ErrNotEvaluable, err)
	}

	return result, err
}

func (t *Trainer) transition(guid string, state State) {
	util.DebugModule(definitions.DbgNeural,
		definitions.LogKeyGUID, guid,
		"action", "state_transition",
		"state", string(state),
	)
}

func (t *Trainer) logFailure(guid string, state State, err error) {
	logger := level.Error(log.Logger)
	if stderrors.Is(err, errors.ErrInsufficientData) {
		logger = level.Warn(log.Logger)
	}

	logger.Log(
		definitions.LogKeyGUID, guid,
		definitions.LogKeyMsg, "Training run failed",
		"state", string(state),
		definitions.LogKeyError, err,
	)
}
