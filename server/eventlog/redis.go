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
	"context"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/rediscli"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

const (
	loginsKey = "logins"
	pairsKey  = "logins:pairs"
)

var json = jsoniter.Config{
	EscapeHTML:                    true,
	SortMapKeys:                   true,
	ValidateJsonRawMessage:        true,
	ObjectFieldMustBeSimpleString: true,
}.Froze()

// redisEvent is the sorted set member of one login. The id keeps repeated logins of the same
// pair within one second apart.
type redisEvent struct {
	ID        string `json:"id"`
	IP        string `json:"ip"`
	AccountID string `json:"uid"`
	Timestamp int64  `json:"ts"`
}

// RedisLog stores logins in a sorted set scored by timestamp and the distinct
// (IP, account) pairs in a plain set.
type RedisLog struct {
	client rediscli.Client
	prefix string
	newID  func() string
}

var _ Log = (*RedisLog)(nil)

// NewRedisLog returns a log using keys below prefix.
func NewRedisLog(client rediscli.Client, prefix string) *RedisLog {
	return &RedisLog{
		client: client,
		prefix: prefix,
		newID: func() string {
			return ksuid.New().String()
		},
	}
}

func (r *RedisLog) loginsKey() string {
	return r.prefix + loginsKey
}

func (r *RedisLog) pairsKey() string {
	return r.prefix + pairsKey
}

func (r *RedisLog) Name() string {
	return definitions.EventLogRedis
}

func (r *RedisLog) Append(ctx context.Context, events ...login.Event) error {
	if len(events) == 0 {
		return nil
	}

	defer stats.GetMetrics().GetRedisWriteCounter().Inc()

	pipe := r.client.GetWriteHandle().Pipeline()

	for _, event := range events {
		if !event.IP.IsValid() || event.AccountID == "" {
			return fmt.Errorf("%w: %+v", errors.ErrMalformedEvent, event)
		}

		member, err := json.Marshal(redisEvent{
			ID:        r.newID(),
			IP:        event.IP.Unmap().String(),
			AccountID: event.AccountID,
			Timestamp: event.Timestamp,
		})
		if err != nil {
			return err
		}

		pipe.ZAdd(ctx, r.loginsKey(), redis.Z{Score: float64(event.Timestamp), Member: string(member)})
		pipe.SAdd(ctx, r.pairsKey(), event.Pair().String())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append %d logins: %w", len(events), err)
	}

	util.DebugModule(definitions.DbgEventLog,
		"action", "append",
		"backend", r.Name(),
		"count", len(events),
	)

	return nil
}

func (r *RedisLog) QueryEvents(ctx context.Context, since int64) ([]login.Event, error) {
	defer stats.GetMetrics().GetRedisReadCounter().Inc()

	members, err := r.client.GetReadHandle().ZRangeByScore(ctx, r.loginsKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(since, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query logins since %d: %w", since, err)
	}

	events := make([]login.Event, 0, len(members))

	for _, member := range members {
		event, err := decodeRedisEvent(member)
		if err != nil {
			level.Warn(log.Logger).Log(
				definitions.LogKeyMsg, "Skipping malformed login event",
				definitions.LogKeyError, err,
			)

			continue
		}

		events = append(events, event)
	}

	util.DebugModule(definitions.DbgEventLog,
		"action", "query_events",
		"backend", r.Name(),
		"since", since,
		"count", len(events),
	)

	stats.GetMetrics().RecordEventsRead(r.Name(), len(events))

	return events, nil
}

func decodeRedisEvent(member string) (login.Event, error) {
	var raw redisEvent

	if err := json.UnmarshalFromString(member, &raw); err != nil {
		return login.Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}

	addr, err := netip.ParseAddr(raw.IP)
	if err != nil || raw.AccountID == "" {
		return login.Event{}, fmt.Errorf("%w: %q", errors.ErrMalformedEvent, member)
	}

	return login.Event{IP: addr, AccountID: raw.AccountID, Timestamp: raw.Timestamp}, nil
}

func (r *RedisLog) Statistics(ctx context.Context) (login.CorpusStatistics, error) {
	defer stats.GetMetrics().GetRedisReadCounter().Inc()

	handle := r.client.GetReadHandle()

	total, err := handle.ZCard(ctx, r.loginsKey()).Result()
	if err != nil {
		return login.CorpusStatistics{}, fmt.Errorf("failed to count logins: %w", err)
	}

	distinct, err := handle.SCard(ctx, r.pairsKey()).Result()
	if err != nil {
		return login.CorpusStatistics{}, fmt.Errorf("failed to count distinct pairs: %w", err)
	}

	return login.CorpusStatistics{Total: total, DistinctPairs: distinct}, nil
}

// Close is a no-op; the shared Redis client is closed by its owner.
func (r *RedisLog) Close() error {
	return nil
}
