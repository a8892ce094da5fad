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

package stats

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// Singleton instance of Metrics
	metrics     *Metrics
	initMetrics sync.Once
)

// Metrics contains all Prometheus metrics of a training run.
type Metrics struct {
	// Neural network structure metrics
	networkStructure *prometheus.GaugeVec // Labels: family, layer (input, hidden, output)

	// Training metrics
	trainingRuns     *prometheus.CounterVec   // Labels: family, result
	trainingDuration *prometheus.HistogramVec // Labels: family, result
	trainingLoss     *prometheus.GaugeVec     // Labels: family
	trainingProgress *prometheus.GaugeVec     // Labels: family
	trainingSamples  *prometheus.GaugeVec     // Labels: family, pool, label

	// Evaluation metrics
	precision *prometheus.GaugeVec // Labels: family
	recall    *prometheus.GaugeVec // Labels: family

	// Storage metrics
	eventsRead  *prometheus.CounterVec // Labels: backend
	redisReads  prometheus.Counter
	redisWrites prometheus.Counter
}

// GetMetrics returns the singleton instance of Metrics
func GetMetrics() *Metrics {
	initMetrics.Do(func() {
		metrics = newMetrics()
	})

	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		networkStructure: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_network_structure",
				Help: "Structure of the multilayer perceptron (layer sizes)",
			},
			[]string{"family", "layer"},
		),
		trainingRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suspicious_login_training_runs_total",
				Help: "Number of training runs by result",
			},
			[]string{"family", "result"},
		),
		trainingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suspicious_login_training_duration_seconds",
				Help:    "Duration of a training run",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"family", "result"},
		),
		trainingLoss: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_training_loss",
				Help: "Average binary cross-entropy of the last logged epoch",
			},
			[]string{"family"},
		),
		trainingProgress: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_training_epoch",
				Help: "Last logged epoch of the current training run",
			},
			[]string{"family"},
		),
		trainingSamples: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_training_samples",
				Help: "Number of samples per pool and label",
			},
			[]string{"family", "pool", "label"},
		),
		precision: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_model_precision",
				Help: "Precision of the latest model on its validation pool",
			},
			[]string{"family"},
		),
		recall: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "suspicious_login_model_recall",
				Help: "Recall of the latest model on its validation pool",
			},
			[]string{"family"},
		),
		eventsRead: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suspicious_login_events_read_total",
				Help: "Number of login events read from the event log",
			},
			[]string{"backend"},
		),
		redisReads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suspicious_login_redis_read_total",
			Help: "Total number of Redis read operations",
		}),
		redisWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suspicious_login_redis_write_total",
			Help: "Total number of Redis write operations",
		}),
	}
}

// RecordNetworkStructure records the layer sizes of a network.
func (m *Metrics) RecordNetworkStructure(family string, inputSize, hiddenSize, outputSize int) {
	m.networkStructure.WithLabelValues(family, "input").Set(float64(inputSize))
	m.networkStructure.WithLabelValues(family, "hidden").Set(float64(hiddenSize))
	m.networkStructure.WithLabelValues(family, "output").Set(float64(outputSize))
}

// RecordTrainingError records the average loss of an epoch.
func (m *Metrics) RecordTrainingError(family string, epoch int, loss float64) {
	m.trainingLoss.WithLabelValues(family).Set(loss)
	m.trainingProgress.WithLabelValues(family).Set(float64(epoch))
}

// RecordTrainingSamples records the size of one pool/label combination.
func (m *Metrics) RecordTrainingSamples(family, pool, label string, count int) {
	m.trainingSamples.WithLabelValues(family, pool, label).Set(float64(count))
}

// RecordTrainingRun records the outcome and duration of a run.
func (m *Metrics) RecordTrainingRun(family string, duration float64, success bool) {
	result := "failure"
	if success {
		result = "success"
	}

	m.trainingRuns.WithLabelValues(family, result).Inc()
	m.trainingDuration.WithLabelValues(family, result).Observe(duration)
}

// RecordEvaluation records precision and recall of the latest model.
func (m *Metrics) RecordEvaluation(family string, precision, recall float64) {
	m.precision.WithLabelValues(family).Set(precision)
	m.recall.WithLabelValues(family).Set(recall)
}

// RecordEventsRead counts events read from a backend.
func (m *Metrics) RecordEventsRead(backend string, count int) {
	m.eventsRead.WithLabelValues(backend).Add(float64(count))
}

// GetRedisReadCounter returns the Redis read counter.
func (m *Metrics) GetRedisReadCounter() prometheus.Counter {
	return m.redisReads
}

// GetRedisWriteCounter returns the Redis write counter.
func (m *Metrics) GetRedisWriteCounter() prometheus.Counter {
	return m.redisWrites
}

// Push sends all collected metrics of this run to a Prometheus Pushgateway. With tracing the
// request is sent through an instrumented transport.
func Push(ctx context.Context, url, job string, tracing bool) error {
	pusher := push.New(url, job).Gatherer(prometheus.DefaultGatherer)

	if tracing {
		pusher = pusher.Client(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)})
	}

	return pusher.PushContext(ctx)
}
