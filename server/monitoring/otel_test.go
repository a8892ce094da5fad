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

package monitoring

import (
	"context"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/config"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
)

// providerMock implements TelemetryConfigProvider for tests
type providerMock struct {
	telemetry    *config.Telemetry
	instanceName string
}

func (p providerMock) GetTelemetry() *config.Telemetry { return p.telemetry }
func (p providerMock) GetInstanceName() string         { return p.instanceName }

// helper to save/restore global OTel state per test
func withGlobalOtelSaved(t *testing.T, fn func()) {
	t.Helper()

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	fn()
}

func TestStartDisabledNoop(t *testing.T) {
	withGlobalOtelSaved(t, func() {
		tm := &Telemetry{}
		tm.SetProvider(providerMock{instanceName: "test-instance", telemetry: &config.Telemetry{}})
		tm.Start(context.Background(), "test-version")

		assert.False(t, tm.Started())
	})
}

func TestStartEnabledSetsProvider(t *testing.T) {
	withGlobalOtelSaved(t, func() {
		prev := otel.GetTracerProvider()

		tm := &Telemetry{}
		tm.SetProvider(providerMock{
			instanceName: "test-instance",
			telemetry:    &config.Telemetry{OTLPEndpoint: "127.0.0.1:4318", Insecure: true, SamplerRatio: 0.5},
		})

		tm.Start(context.Background(), "v0.0.1")
		assert.True(t, tm.Started())
		assert.NotEqual(t, prev, otel.GetTracerProvider())

		// Idempotency
		tp := tm.tp
		tm.Start(context.Background(), "v0.0.1")
		assert.Same(t, tp, tm.tp)

		tm.Shutdown(context.Background())
		assert.False(t, tm.Started())
	})
}

func TestBuildPropagators(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		contains []string
		excludes []string
	}{
		{
			name:     "default",
			contains: []string{"traceparent", "baggage"},
			excludes: []string{"b3", "uber-trace-id"},
		},
		{
			name:     "b3 and jaeger",
			names:    []string{"B3", " jaeger "},
			contains: []string{"uber-trace-id"},
			excludes: []string{"traceparent"},
		},
		{
			name:     "b3 multi header",
			names:    []string{"b3multi"},
			contains: []string{"x-b3-traceid"},
		},
		{
			name:     "unknown falls back",
			names:    []string{"xray"},
			contains: []string{"traceparent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := buildPropagators(tt.names).Fields()

			for _, field := range tt.contains {
				assert.Contains(t, fields, field)
			}

			for _, field := range tt.excludes {
				assert.NotContains(t, fields, field)
			}
		})
	}
}
