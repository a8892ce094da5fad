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
	"fmt"
	"strings"
	"time"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
)

// EventLogSection selects the backend the captured login events are read from.
type EventLogSection struct {
	Backend string `mapstructure:"backend" validate:"omitempty,oneof=redis sql"`
	SQL     SQL    `mapstructure:"sql" validate:"omitempty"`
}

// SQL configures the SQL event log.
type SQL struct {
	DSN                string `mapstructure:"dsn" validate:"omitempty"`
	Table              string `mapstructure:"table" validate:"omitempty,max=64,sql_identifier"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gte=1"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gte=0"`
}

// GetBackend returns the configured backend name.
func (e *EventLogSection) GetBackend() string {
	if e == nil || e.Backend == "" {
		return definitions.EventLogRedis
	}

	return e.Backend
}

// GetSQL returns the SQL settings.
func (e *EventLogSection) GetSQL() *SQL {
	if e == nil {
		return &SQL{}
	}

	return &e.SQL
}

func (e *EventLogSection) validate() error {
	switch e.GetBackend() {
	case definitions.EventLogRedis:
		return nil
	case definitions.EventLogSQL:
		dsn := e.GetSQL().DSN
		if dsn == "" {
			return fmt.Errorf("%w: event_log.sql.dsn is required for the sql backend", errors.ErrUnsupportedSQLDriver)
		}

		for _, scheme := range []string{"postgres://", "postgresql://", "mysql://", "sqlite://"} {
			if strings.HasPrefix(dsn, scheme) {
				return nil
			}
		}

		return fmt.Errorf("%w: %s", errors.ErrUnsupportedSQLDriver, dsn[:strings.Index(dsn+":", ":")])
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownEventLogBackend, e.Backend)
	}
}

// GetTable returns the SQL table name.
func (s *SQL) GetTable() string {
	if s == nil || s.Table == "" {
		return "login_address"
	}

	return s.Table
}

// ModelStoreSection configures the model sink.
type ModelStoreSection struct {
	Backend     string `mapstructure:"backend" validate:"omitempty,oneof=redis none"`
	HistorySize int    `mapstructure:"history_size" validate:"omitempty,min=1,max=1000"`
}

// Enabled reports whether trained models are persisted. Only "none" disables the store.
func (m *ModelStoreSection) Enabled() bool {
	return m == nil || m.Backend != "none"
}

// GetHistorySize returns how many evaluation results are kept per address family.
func (m *ModelStoreSection) GetHistorySize() int {
	if m == nil || m.HistorySize == 0 {
		return definitions.DefaultHistorySize
	}

	return m.HistorySize
}

// TrainingSection holds the training data defaults. CLI flags override them per run.
type TrainingSection struct {
	ValidationThreshold time.Duration `mapstructure:"validation_threshold" validate:"omitempty,gt=0"`
	MaxAge              time.Duration `mapstructure:"max_age" validate:"omitempty,gt=0"`
	Seed                int64         `mapstructure:"seed"`

	// Activation and HiddenWidth replace the network defaults of the selected strategy.
	Activation  string `mapstructure:"activation" validate:"omitempty,oneof=sigmoid tanh relu leaky_relu"`
	HiddenWidth int    `mapstructure:"hidden_width" validate:"omitempty,gte=1,lte=4096"`
}

// GetActivation returns the configured hidden layer activation or "" for the default.
func (t *TrainingSection) GetActivation() string {
	if t == nil {
		return ""
	}

	return t.Activation
}

// GetHiddenWidth returns the configured hidden layer width or 0 for the default.
func (t *TrainingSection) GetHiddenWidth() int {
	if t == nil {
		return 0
	}

	return t.HiddenWidth
}

// GetValidationThreshold returns the validation window in seconds.
func (t *TrainingSection) GetValidationThreshold() int64 {
	if t == nil || t.ValidationThreshold == 0 {
		return definitions.DefaultValidationThreshold
	}

	return int64(t.ValidationThreshold / time.Second)
}

// GetMaxAge returns the maximum event age in seconds.
func (t *TrainingSection) GetMaxAge() int64 {
	if t == nil || t.MaxAge == 0 {
		return definitions.DefaultMaxAge
	}

	return int64(t.MaxAge / time.Second)
}

// ReportSection configures the statistics report.
type ReportSection struct {
	Language string `mapstructure:"language" validate:"omitempty,oneof=en es cs"`
}

// GetLanguage returns the report language.
func (r *ReportSection) GetLanguage() string {
	if r == nil || r.Language == "" {
		return "en"
	}

	return r.Language
}
