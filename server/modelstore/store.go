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

// Package modelstore persists trained models together with their evaluation history.
package modelstore

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/rediscli"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/suspicious/evaluation"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.Config{
	EscapeHTML:                    true,
	SortMapKeys:                   true,
	ValidateJsonRawMessage:        true,
	MarshalFloatWith6Digits:       false,
	ObjectFieldMustBeSimpleString: true,
}.Froze()

// Sink takes ownership of a trained model. result is nil when the model could not be evaluated.
type Sink interface {
	Save(ctx context.Context, model *mlp.Model, result *evaluation.Result) error
}

// StoredModel is the latest model of an address family.
type StoredModel struct {
	Model      *mlp.Model         `json:"model"`
	Evaluation *evaluation.Result `json:"evaluation,omitempty"`
}

// HistoryEntry is the evaluation summary of one trained model.
type HistoryEntry struct {
	TrainedAt int64   `json:"trained_at"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Evaluated bool    `json:"evaluated"`
}

// NewHistoryEntry summarizes model and its evaluation, which may be nil.
func NewHistoryEntry(model *mlp.Model, result *evaluation.Result) HistoryEntry {
	entry := HistoryEntry{TrainedAt: model.TrainedAt}
	if result != nil {
		entry.Precision = result.Precision
		entry.Recall = result.Recall
		entry.Evaluated = true
	}

	return entry
}

// RedisStore keeps the latest model per family and a bounded list of history entries, newest
// first.
type RedisStore struct {
	client      rediscli.Client
	prefix      string
	historySize int
}

var _ Sink = (*RedisStore)(nil)

// NewRedisStore returns a store using keys below prefix.
func NewRedisStore(client rediscli.Client, prefix string, historySize int) *RedisStore {
	if historySize < 1 {
		historySize = definitions.DefaultHistorySize
	}

	return &RedisStore{client: client, prefix: prefix, historySize: historySize}
}

func (s *RedisStore) latestKey(family definitions.AddressFamily) string {
	return s.prefix + "model:" + family.String() + ":latest"
}

func (s *RedisStore) historyKey(family definitions.AddressFamily) string {
	return s.prefix + "model:" + family.String() + ":history"
}

// Save replaces the latest model and prepends a history entry in one MULTI/EXEC transaction,
// so readers never see a model without its history entry.
func (s *RedisStore) Save(ctx context.Context, model *mlp.Model, result *evaluation.Result) error {
	if model == nil {
		return fmt.Errorf("refusing to save an empty model")
	}

	defer stats.GetMetrics().GetRedisWriteCounter().Inc()

	modelData, err := json.Marshal(StoredModel{Model: model, Evaluation: result})
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}

	entryData, err := json.Marshal(NewHistoryEntry(model, result))
	if err != nil {
		return fmt.Errorf("failed to serialize history entry: %w", err)
	}

	family := model.AddressFamily

	_, err = s.client.GetWriteHandle().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.latestKey(family), string(modelData), 0)
		pipe.LPush(ctx, s.historyKey(family), string(entryData))
		pipe.LTrim(ctx, s.historyKey(family), 0, int64(s.historySize-1))

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save model for %s: %w", family, err)
	}

	util.DebugModule(definitions.DbgModelStore,
		"action", "save_model",
		"key", s.latestKey(family),
		"data_size", len(modelData),
		"trained_at", model.TrainedAt,
	)

	level.Info(log.Logger).Log(
		definitions.LogKeyMsg, "Saved model",
		definitions.LogKeyAddressFamily, family.String(),
		"trained_at", model.TrainedAt,
	)

	return nil
}

// Latest returns the most recently saved model of family, or ErrNoModel.
func (s *RedisStore) Latest(ctx context.Context, family definitions.AddressFamily) (*StoredModel, error) {
	defer stats.GetMetrics().GetRedisReadCounter().Inc()

	data, err := s.client.GetReadHandle().Get(ctx, s.latestKey(family)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w for %s", errors.ErrNoModel, family)
		}

		return nil, fmt.Errorf("failed to load model for %s: %w", family, err)
	}

	var stored StoredModel

	if err = json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse model for %s: %w", family, err)
	}

	if stored.Model == nil {
		return nil, fmt.Errorf("%w for %s", errors.ErrNoModel, family)
	}

	if err = stored.Model.Validate(); err != nil {
		return nil, fmt.Errorf("stored model for %s is corrupt: %w", family, err)
	}

	util.DebugModule(definitions.DbgModelStore,
		"action", "load_model",
		"key", s.latestKey(family),
		"data_size", len(data),
	)

	return &stored, nil
}

// History returns the stored history entries of family, newest first.
func (s *RedisStore) History(ctx context.Context, family definitions.AddressFamily) ([]HistoryEntry, error) {
	defer stats.GetMetrics().GetRedisReadCounter().Inc()

	items, err := s.client.GetReadHandle().LRange(ctx, s.historyKey(family), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load model history for %s: %w", family, err)
	}

	entries := make([]HistoryEntry, 0, len(items))

	for _, item := range items {
		var entry HistoryEntry

		if err = json.UnmarshalFromString(item, &entry); err != nil {
			level.Warn(log.Logger).Log(
				definitions.LogKeyMsg, "Skipping malformed history entry",
				definitions.LogKeyError, err,
			)

			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
