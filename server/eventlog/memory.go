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

package eventlog

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/stats"
)

// MemoryLog is an in-process event log.
type MemoryLog struct {
	mu     sync.RWMutex
	events []login.Event
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog returns a log that holds events.
func NewMemoryLog(events ...login.Event) *MemoryLog {
	return &MemoryLog{events: slices.Clone(events)}
}

func (m *MemoryLog) Name() string {
	return "memory"
}

func (m *MemoryLog) Append(_ context.Context, events ...login.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, events...)

	return nil
}

func (m *MemoryLog) QueryEvents(ctx context.Context, since int64) ([]login.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()

	result := make([]login.Event, 0, len(m.events))

	for _, event := range m.events {
		if event.Timestamp >= since {
			result = append(result, event)
		}
	}

	m.mu.RUnlock()

	slices.SortStableFunc(result, func(a, b login.Event) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	stats.GetMetrics().RecordEventsRead(m.Name(), len(result))

	return result, nil
}

func (m *MemoryLog) Statistics(_ context.Context) (login.CorpusStatistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc := login.NewAccumulator()

	for _, event := range m.events {
		acc.Add(event)
	}

	return acc.Statistics(), nil
}

func (m *MemoryLog) Close() error {
	return nil
}
