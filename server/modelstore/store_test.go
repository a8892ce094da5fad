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

package modelstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/model/training"
	"github.com/cloudcopy/suspicious-login/server/rediscli"
	"github.com/cloudcopy/suspicious-login/server/suspicious/evaluation"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedModel(t *testing.T) *mlp.Model {
	t.Helper()

	cfg, err := mlp.NewConfig(2, 1, 0.5, 0.5, 0.1)
	require.NoError(t, err)

	samples := []training.Sample{
		{Features: []float64{0, 0}, Label: training.Positive},
		{Features: []float64{1, 1}, Label: training.Negative},
	}

	model, err := mlp.NewTrainer(1).Train(cfg, definitions.AddressFamilyV4, 100, samples)
	require.NoError(t, err)

	return model
}

func newMockedStore(t *testing.T) (*RedisStore, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	if db == nil || mock == nil {
		t.Fatalf("Failed to create Redis mock client.")
	}

	return NewRedisStore(rediscli.NewTestClient(db), "sl:", 30), mock
}

func TestRedisStore_Save(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectTxPipeline()
	mock.Regexp().ExpectSet("sl:model:v4:latest", `.*`, 0).SetVal("OK")
	mock.ExpectLPush("sl:model:v4:history", `{"trained_at":100,"precision":0.75,"recall":0.5,"evaluated":true}`).SetVal(1)
	mock.ExpectLTrim("sl:model:v4:history", 0, 29).SetVal("OK")
	mock.ExpectTxPipelineExec()

	err := store.Save(context.Background(), trainedModel(t), &evaluation.Result{Precision: 0.75, Recall: 0.5, EvaluatedAgainst: 100})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SaveNotEvaluated(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectTxPipeline()
	mock.Regexp().ExpectSet("sl:model:v4:latest", `.*`, 0).SetVal("OK")
	mock.ExpectLPush("sl:model:v4:history", `{"trained_at":100,"precision":0,"recall":0,"evaluated":false}`).SetVal(1)
	mock.ExpectLTrim("sl:model:v4:history", 0, 29).SetVal("OK")
	mock.ExpectTxPipelineExec()

	assert.NoError(t, store.Save(context.Background(), trainedModel(t), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Latest(t *testing.T) {
	store, mock := newMockedStore(t)
	model := trainedModel(t)
	result := &evaluation.Result{Precision: 0.75, Recall: 0.5, TruePositives: 3, EvaluatedAgainst: 100}

	data, err := json.Marshal(StoredModel{Model: model, Evaluation: result})
	require.NoError(t, err)

	mock.ExpectGet("sl:model:v4:latest").SetVal(string(data))

	stored, err := store.Latest(context.Background(), definitions.AddressFamilyV4)
	require.NoError(t, err)

	assert.Equal(t, model, stored.Model)
	assert.Equal(t, result, stored.Evaluation)

	suspicious, err := stored.Model.Classify([]float64{1, 1})
	require.NoError(t, err)

	expected, err := model.Classify([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, expected, suspicious)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LatestErrors(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectGet("sl:model:v6:latest").RedisNil()

	_, err := store.Latest(context.Background(), definitions.AddressFamilyV6)
	assert.ErrorIs(t, err, errors.ErrNoModel)

	mock.ExpectGet("sl:model:v6:latest").SetVal(`{"model":{"address_family":"v6","input_size":80,"hidden_width":40,"layers":1,"weights":[[1]],"biases":[[1]]}}`)

	_, err = store.Latest(context.Background(), definitions.AddressFamilyV6)
	assert.ErrorContains(t, err, "corrupt")

	mock.ExpectGet("sl:model:v6:latest").SetErr(fmt.Errorf("connection refused"))

	_, err = store.Latest(context.Background(), definitions.AddressFamilyV6)
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_History(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectLRange("sl:model:v4:history", 0, -1).SetVal([]string{
		`{"trained_at":300,"precision":0.9,"recall":0.8,"evaluated":true}`,
		`garbage`,
		`{"trained_at":100,"precision":0,"recall":0,"evaluated":false}`,
	})

	history, err := store.History(context.Background(), definitions.AddressFamilyV4)
	require.NoError(t, err)

	assert.Equal(t, []HistoryEntry{
		{TrainedAt: 300, Precision: 0.9, Recall: 0.8, Evaluated: true},
		{TrainedAt: 100},
	}, history)
	assert.NoError(t, mock.ExpectationsWereMet())
}
