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

// Package eventlog provides read and append access to captured login events. Training only
// reads; appending is used by the capture side, the seeder and tests.
package eventlog

import (
	"context"
	"fmt"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/rediscli"
)

// Reader queries captured logins.
type Reader interface {
	// QueryEvents returns all events with a timestamp of at least since, ordered by
	// timestamp ascending. Every call issues a fresh query.
	QueryEvents(ctx context.Context, since int64) ([]login.Event, error)
}

// Appender stores captured logins.
type Appender interface {
	Append(ctx context.Context, events ...login.Event) error
}

// StatisticsProvider computes corpus statistics directly from the log.
type StatisticsProvider interface {
	Statistics(ctx context.Context) (login.CorpusStatistics, error)
}

// Log is a complete event log backend.
type Log interface {
	Reader
	Appender
	StatisticsProvider

	// Name returns the backend name used in metrics.
	Name() string

	Close() error
}

// New opens the backend selected by event_log.backend.
func New(ctx context.Context, cfg *config.File) (Log, error) {
	section := cfg.GetEventLog()

	switch section.GetBackend() {
	case definitions.EventLogRedis:
		return NewRedisLog(rediscli.GetClient(), cfg.GetServer().GetRedis().GetPrefix()), nil
	case definitions.EventLogSQL:
		sqlLog, err := OpenSQL(ctx, section.GetSQL())
		if err != nil {
			return nil, err
		}

		if err = sqlLog.EnsureSchema(ctx); err != nil {
			sqlLog.Close()

			return nil, err
		}

		return sqlLog, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventLogBackend, section.GetBackend())
	}
}
