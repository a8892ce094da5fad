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

package config

import (
	"github.com/cloudcopy/suspicious-login/server/definitions"
)

// ServerSection holds process wide settings.
type ServerSection struct {
	InstanceName string    `mapstructure:"instance_name" validate:"omitempty,max=255,printascii"`
	Log          Log       `mapstructure:"log" validate:"omitempty"`
	Redis        Redis     `mapstructure:"redis" validate:"omitempty"`
	Telemetry    Telemetry `mapstructure:"telemetry" validate:"omitempty"`
	Metrics      Metrics   `mapstructure:"metrics" validate:"omitempty"`
}

// GetInstanceName returns the instance name used in log lines.
func (s *ServerSection) GetInstanceName() string {
	if s == nil || s.InstanceName == "" {
		return definitions.InstanceName
	}

	return s.InstanceName
}

// GetLog returns the logging settings.
func (s *ServerSection) GetLog() *Log {
	if s == nil {
		return &Log{}
	}

	return &s.Log
}

// GetRedis returns the Redis settings.
func (s *ServerSection) GetRedis() *Redis {
	if s == nil {
		return &Redis{}
	}

	return &s.Redis
}

// GetTelemetry returns the tracing settings.
func (s *ServerSection) GetTelemetry() *Telemetry {
	if s == nil {
		return &Telemetry{}
	}

	return &s.Telemetry
}

// GetMetrics returns the metrics settings.
func (s *ServerSection) GetMetrics() *Metrics {
	if s == nil {
		return &Metrics{}
	}

	return &s.Metrics
}

// Log configures the go-kit logger.
type Log struct {
	JSON         bool     `mapstructure:"json"`
	Color        bool     `mapstructure:"color"`
	Level        string   `mapstructure:"level" validate:"omitempty,oneof=none error warn info debug"`
	DebugModules []string `mapstructure:"debug_modules" validate:"omitempty,dive,oneof=none all neural dataset eventlog modelstore report"`
}

// GetLogLevel returns the numeric log level.
func (l *Log) GetLogLevel() int {
	if l == nil {
		return definitions.LogLevelInfo
	}

	var verbosity Verbosity

	if err := verbosity.Set(l.Level); err != nil || l.Level == "" {
		return definitions.LogLevelInfo
	}

	return verbosity.Level()
}

// GetDebugModules returns the enabled debug modules.
func (l *Log) GetDebugModules() []definitions.DbgModule {
	if l == nil {
		return nil
	}

	modules := make([]definitions.DbgModule, 0, len(l.DebugModules))

	for _, name := range l.DebugModules {
		if module, ok := definitions.DbgModuleFromName(name); ok {
			modules = append(modules, module)
		}
	}

	return modules
}

// Redis configures the Redis connection shared by the event log and the model store.
type Redis struct {
	Address        string `mapstructure:"address" validate:"omitempty,hostname_port"`
	Username       string `mapstructure:"username" validate:"omitempty"`
	Password       string `mapstructure:"password" validate:"omitempty"`
	DatabaseNumber int    `mapstructure:"database_number" validate:"omitempty,gte=0,lte=15"`
	Prefix         string `mapstructure:"prefix" validate:"omitempty,printascii"`
	PoolSize       int    `mapstructure:"pool_size" validate:"omitempty,gte=1"`

	// ReplicaAddresses are optional read replicas. Event log queries are spread over them.
	ReplicaAddresses []string `mapstructure:"replica_addresses" validate:"omitempty,dive,hostname_port"`
}

// GetPrefix returns the key prefix.
func (r *Redis) GetPrefix() string {
	if r == nil || r.Prefix == "" {
		return definitions.DefaultRedisPrefix
	}

	return r.Prefix
}

// GetAddress returns the Redis address.
func (r *Redis) GetAddress() string {
	if r == nil || r.Address == "" {
		return "127.0.0.1:6379"
	}

	return r.Address
}

// Telemetry configures the optional OTLP/HTTP trace exporter.
type Telemetry struct {
	OTLPEndpoint string   `mapstructure:"otlp_endpoint" validate:"omitempty,hostname_port"`
	Insecure     bool     `mapstructure:"insecure"`
	SamplerRatio float64  `mapstructure:"sampler_ratio" validate:"omitempty,gte=0,lte=1"`
	Propagators  []string `mapstructure:"propagators" validate:"omitempty,dive,oneof=tracecontext baggage b3 b3multi jaeger"`
}

// GetSamplerRatio returns the fraction of sampled root spans. Zero means all.
func (t *Telemetry) GetSamplerRatio() float64 {
	if t == nil || t.SamplerRatio == 0 {
		return 1
	}

	return t.SamplerRatio
}

// Enabled reports whether traces should be exported.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.OTLPEndpoint != ""
}

// Metrics configures the optional Prometheus Pushgateway.
type Metrics struct {
	Pushgateway string `mapstructure:"pushgateway" validate:"omitempty,url"`
	Job         string `mapstructure:"job" validate:"omitempty,printascii"`
}

// GetJob returns the Pushgateway job name.
func (m *Metrics) GetJob() string {
	if m == nil || m.Job == "" {
		return "suspicious_login_train"
	}

	return m.Job
}
