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

// Package dataset builds the labeled training and validation pools of a run from the event
// log. Real logins become positive samples; negative samples are synthesized.
package dataset

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/eventlog"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/model/training"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/suspicious/strategy"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
)

// MinPositiveSamples is the smallest number of real logins each pool must contain.
const MinPositiveSamples = 50

// Pool names
const (
	PoolTraining   = "training"
	PoolValidation = "validation"
)

// rateEpsilon absorbs float error in rate * size, e.g. 0.29 * 100.
const rateEpsilon = 1e-9

// Pool is one partition of a dataset.
type Pool struct {
	Name    string
	Samples []training.Sample

	Positives         int
	ShuffledNegatives int
	RandomNegatives   int

	// ShuffledDiscarded and RandomDiscarded count synthesized samples dropped because they
	// matched a real login.
	ShuffledDiscarded int
	RandomDiscarded   int
}

// Negatives returns the number of synthesized samples in the pool.
func (p *Pool) Negatives() int {
	return p.ShuffledNegatives + p.RandomNegatives
}

// Discarded returns the number of dropped synthesized samples.
func (p *Pool) Discarded() int {
	return p.ShuffledDiscarded + p.RandomDiscarded
}

// Dataset is the result of one assembly.
type Dataset struct {
	Family     definitions.AddressFamily
	Config     TrainingDataConfig
	Training   *Pool
	Validation *Pool

	// Skipped counts queried events of another address family or newer than now.
	Skipped int
}

// Assembler builds datasets for the address family of its strategy.
type Assembler struct {
	reader   eventlog.Reader
	strategy strategy.Strategy
	rng      *rand.Rand
}

// NewAssembler returns an Assembler. All negative sampling draws from seed.
func NewAssembler(reader eventlog.Reader, s strategy.Strategy, seed int64) *Assembler {
	return &Assembler{
		reader:   reader,
		strategy: s,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// encodedEvent is a real login together with its feature vector.
type encodedEvent struct {
	event    login.Event
	features []float64
}

// Assemble queries the event log, partitions the window at the validation boundary and builds
// both pools. It returns an InsufficientDataError if a pool holds fewer than
// MinPositiveSamples real logins.
func (a *Assembler) Assemble(ctx context.Context, dataCfg TrainingDataConfig, mlpCfg mlp.Config) (*Dataset, error) {
	if err := dataCfg.Validate(); err != nil {
		return nil, err
	}

	if err := mlpCfg.Validate(); err != nil {
		return nil, err
	}

	if dataCfg.Threshold() >= dataCfg.MaxAge() {
		return nil, errors.NewInsufficientDataError(
			"validation window is empty: threshold %d is not below max age %d", dataCfg.Threshold(), dataCfg.MaxAge())
	}

	events, err := a.reader.QueryEvents(ctx, dataCfg.Since())
	if err != nil {
		return nil, errors.NewServiceError("could not query the event log", err)
	}

	dataset := &Dataset{
		Family:     a.strategy.Family(),
		Config:     dataCfg,
		Training:   &Pool{Name: PoolTraining},
		Validation: &Pool{Name: PoolValidation},
	}

	var trainingEvents, validationEvents []encodedEvent

	known := make(map[string]struct{}, len(events))
	boundary := dataCfg.ValidationBoundary()

	for _, event := range events {
		family, ok := strategy.FamilyOf(event.IP)
		if !ok || family != dataset.Family || event.Timestamp > dataCfg.Now() || event.Timestamp < dataCfg.Since() {
			dataset.Skipped++

			continue
		}

		features, err := a.strategy.ExtractFeatures(event)
		if err != nil {
			return nil, errors.NewServiceError("could not extract features", err)
		}

		known[vectorKey(features)] = struct{}{}

		if event.Timestamp >= boundary {
			validationEvents = append(validationEvents, encodedEvent{event: event, features: features})
		} else {
			trainingEvents = append(trainingEvents, encodedEvent{event: event, features: features})
		}
	}

	util.DebugModule(definitions.DbgDataset,
		"action", "partition",
		definitions.LogKeyAddressFamily, dataset.Family.String(),
		"queried", len(events),
		"skipped", dataset.Skipped,
		"training", len(trainingEvents),
		"validation", len(validationEvents),
		"boundary", boundary,
	)

	if len(trainingEvents) < MinPositiveSamples {
		return nil, errors.NewInsufficientDataError(
			"training pool has %d logins, at least %d are required", len(trainingEvents), MinPositiveSamples)
	}

	if len(validationEvents) < MinPositiveSamples {
		return nil, errors.NewInsufficientDataError(
			"validation pool has %d logins, at least %d are required", len(validationEvents), MinPositiveSamples)
	}

	for _, part := range []struct {
		pool   *Pool
		events []encodedEvent
	}{
		{pool: dataset.Training, events: trainingEvents},
		{pool: dataset.Validation, events: validationEvents},
	} {
		if err = a.fillPool(part.pool, part.events, known, mlpCfg); err != nil {
			return nil, err
		}

		a.recordPool(part.pool)
	}

	level.Info(log.Logger).Log(
		definitions.LogKeyMsg, "Assembled training data",
		definitions.LogKeyAddressFamily, dataset.Family.String(),
		"training_positives", dataset.Training.Positives,
		"training_negatives", dataset.Training.Negatives(),
		"validation_positives", dataset.Validation.Positives,
		"validation_negatives", dataset.Validation.Negatives(),
		"discarded", dataset.Training.Discarded()+dataset.Validation.Discarded(),
	)

	return dataset, nil
}

// fillPool adds the positives of events and both kinds of synthesized negatives to pool.
func (a *Assembler) fillPool(pool *Pool, events []encodedEvent, known map[string]struct{}, mlpCfg mlp.Config) error {
	pool.Samples = make([]training.Sample, 0, len(events)*2)

	for _, encoded := range events {
		pool.Samples = append(pool.Samples, training.Sample{Features: encoded.features, Label: training.Positive})
	}

	pool.Positives = len(events)

	if canShuffle(events) {
		for range rateCount(mlpCfg.ShuffledNegativeRate(), len(events)) {
			first := a.rng.Intn(len(events))

			second := a.rng.Intn(len(events) - 1)
			if second >= first {
				second++
			}

			added, err := a.addNegative(pool, known, login.Event{
				IP:        events[first].event.IP,
				AccountID: events[second].event.AccountID,
				Timestamp: events[first].event.Timestamp,
			})
			if err != nil {
				return err
			}

			if added {
				pool.ShuffledNegatives++
			} else {
				pool.ShuffledDiscarded++
			}
		}
	}

	for range rateCount(mlpCfg.RandomNegativeRate(), len(events)) {
		source := events[a.rng.Intn(len(events))].event

		added, err := a.addNegative(pool, known, login.Event{
			IP:        a.strategy.RandomAddress(a.rng),
			AccountID: source.AccountID,
			Timestamp: source.Timestamp,
		})
		if err != nil {
			return err
		}

		if added {
			pool.RandomNegatives++
		} else {
			pool.RandomDiscarded++
		}
	}

	util.DebugModule(definitions.DbgDataset,
		"action", "synthesize_negatives",
		"pool", pool.Name,
		"positives", pool.Positives,
		"shuffled", pool.ShuffledNegatives,
		"random", pool.RandomNegatives,
		"discarded", pool.Discarded(),
	)

	return nil
}

// addNegative appends event as negative sample unless its vector equals a real login.
func (a *Assembler) addNegative(pool *Pool, known map[string]struct{}, event login.Event) (bool, error) {
	features, err := a.strategy.ExtractFeatures(event)
	if err != nil {
		return false, errors.NewServiceError("could not extract features", err)
	}

	if _, collides := known[vectorKey(features)]; collides {
		return false, nil
	}

	pool.Samples = append(pool.Samples, training.Sample{Features: features, Label: training.Negative})

	return true, nil
}

func (a *Assembler) recordPool(pool *Pool) {
	family := a.strategy.Family().String()
	metrics := stats.GetMetrics()

	metrics.RecordTrainingSamples(family, pool.Name, training.Positive.String(), pool.Positives)
	metrics.RecordTrainingSamples(family, pool.Name, training.Negative.String(), pool.Negatives())
}

// canShuffle reports whether events hold at least two accounts and two addresses.
func canShuffle(events []encodedEvent) bool {
	if len(events) < 2 {
		return false
	}

	first := events[0].event
	otherAccount, otherAddress := false, false

	for _, encoded := range events[1:] {
		otherAccount = otherAccount || encoded.event.AccountID != first.AccountID
		otherAddress = otherAddress || encoded.event.IP != first.IP

		if otherAccount && otherAddress {
			return true
		}
	}

	return false
}

// rateCount returns rate * size rounded down.
func rateCount(rate float64, size int) int {
	return int(math.Floor(rate*float64(size) + rateEpsilon))
}

// vectorKey returns a map key for a feature vector.
func vectorKey(features []float64) string {
	buf := make([]byte, 8*len(features))

	for i, value := range features {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}

	return string(buf)
}

// String returns a one line summary of the dataset.
func (d *Dataset) String() string {
	return fmt.Sprintf("%s training=%d+%d validation=%d+%d",
		d.Family, d.Training.Positives, d.Training.Negatives(), d.Validation.Positives, d.Validation.Negatives())
}
