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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/eventlog"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/suspicious/strategy"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

const sqliteConfig = `server:
  log:
    level: none
event_log:
  backend: sql
  sql:
    dsn: "sqlite://:memory:"
model_store:
  backend: none
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "suspiciouslogin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func runCommand(t *testing.T, args ...string) (int, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer

	code := run(ctx, cancel, args, &stdout, &stderr)

	return code, stdout.String()
}

func TestRootContextOptionProvidesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var provided context.Context

	app := fx.New(
		fx.NopLogger,
		rootContextOption(ctx, cancel),
		fx.Populate(&provided),
	)

	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Stop(context.Background()))

	assert.Equal(t, ctx, provided)
}

func TestFlags_MLPConfig(t *testing.T) {
	f := newFlags("test")
	require.NoError(t, f.parse([]string{"-e", "10", "--shuffled", "0.3", "--learn-rate", "0.2"}))

	cfg := f.mlpConfig(strategy.IPv4{}, &config.File{})
	defaults := strategy.IPv4{}.DefaultMLPConfig()

	assert.Equal(t, 10, cfg.Epochs())
	assert.Equal(t, defaults.Layers(), cfg.Layers())
	assert.Equal(t, 0.3, cfg.ShuffledNegativeRate())
	assert.Equal(t, defaults.RandomNegativeRate(), cfg.RandomNegativeRate())
	assert.Equal(t, 0.2, cfg.LearningRate())
}

func TestFlags_MLPConfigExplicitZero(t *testing.T) {
	f := newFlags("test")
	require.NoError(t, f.parse([]string{"--layers", "0"}))

	cfg := f.mlpConfig(strategy.IPv6{}, &config.File{})

	assert.Equal(t, 0, cfg.Layers())
	assert.Error(t, cfg.Validate())
}

func TestFlags_MLPConfigFromFile(t *testing.T) {
	file := &config.File{Training: &config.TrainingSection{Activation: mlp.ActivationTanh, HiddenWidth: 24}}

	f := newFlags("test")
	require.NoError(t, f.parse([]string{"-e", "7"}))

	cfg := f.mlpConfig(strategy.IPv4{}, file)

	assert.Equal(t, mlp.ActivationTanh, cfg.Activation())
	assert.Equal(t, 24, cfg.HiddenWidth())
	assert.Equal(t, 24, cfg.HiddenWidthFor(64))
	assert.Equal(t, 7, cfg.Epochs())
	require.NoError(t, cfg.Validate())

	cfg = f.mlpConfig(strategy.IPv4{}, &config.File{})

	assert.Equal(t, mlp.ActivationSigmoid, cfg.Activation())
	assert.Equal(t, 0, cfg.HiddenWidth())
}

func TestFlags_DataConfig(t *testing.T) {
	f := newFlags("test")
	require.NoError(t, f.parse([]string{"--now", "42", "--max-age", "100", "--validation-threshold", "10"}))

	cfg := f.dataConfig(&config.File{})

	assert.Equal(t, int64(42), cfg.Now())
	assert.Equal(t, int64(100), cfg.MaxAge())
	assert.Equal(t, int64(10), cfg.Threshold())

	f = newFlags("test")
	require.NoError(t, f.parse([]string{"--now", "42"}))

	cfg = f.dataConfig(&config.File{})

	assert.Equal(t, int64(definitions.DefaultValidationThreshold), cfg.Threshold())
	assert.Equal(t, int64(definitions.DefaultMaxAge), cfg.MaxAge())
}

func TestFlags_Overrides(t *testing.T) {
	f := newFlags("test")
	require.NoError(t, f.parse([]string{"--lang", "cs", "--verbose", "debug", "--seed", "5", "--v6"}))

	v := viper.New()
	v.Set("report.language", "en")
	f.overrides(v)

	assert.Equal(t, "cs", v.GetString("report.language"))
	assert.Equal(t, "debug", v.GetString("server.log.level"))
	assert.Equal(t, int64(5), v.GetInt64("training.seed"))
	assert.Equal(t, definitions.AddressFamilyV6, f.family())

	untouched := viper.New()
	newFlags("test").overrides(untouched)

	assert.False(t, untouched.IsSet("report.language"))
	assert.False(t, untouched.IsSet("server.log.level"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)

	defer f.Close()

	assert.False(t, isTerminal(f))
}

func TestRun_Version(t *testing.T) {
	code, out := runCommand(t, "--version")

	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "suspicious-login "+version)
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _ := runCommand(t, "--bogus")

	assert.Equal(t, exitUsage, code)
}

func TestRun_MissingConfigFile(t *testing.T) {
	code, out := runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, out, "Invalid configuration")
}

func TestRun_InsufficientData(t *testing.T) {
	code, out := runCommand(t, "--config", writeConfig(t, sqliteConfig), "--now", "1000")

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "Using IPv4 strategy\n")
	assert.Contains(t, out, "Not enough data, try again later (")
}

func TestRun_InvalidMLPConfig(t *testing.T) {
	code, out := runCommand(t, "--config", writeConfig(t, sqliteConfig), "--epochs", "0", "--now", "1700000000")

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, out, "Invalid configuration")
}

func TestRun_InsufficientDataWithStats(t *testing.T) {
	code, out := runCommand(t, "--config", writeConfig(t, sqliteConfig), "--now", "1000", "--stats")

	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "Not enough data, try again later (")
	assert.Contains(t, out, "Training data statistics")
	assert.Contains(t, out, "Classifier model statistics (IPv4)")
	assert.Contains(t, out, "No classifier model has been trained yet")
}

func TestRun_InvalidConfigLeavesEventLogUntouched(t *testing.T) {
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "events.db")
	cfg := "server:\n  log:\n    level: none\nevent_log:\n  backend: sql\n  sql:\n    dsn: \"" + dsn + "\"\nmodel_store:\n  backend: none\n"

	for _, args := range [][]string{
		{"--epochs", "0"},
		{"--max-age", "0"},
	} {
		args = append([]string{"--config", writeConfig(t, cfg), "--fake-events", "300", "--now", "1700000000"}, args...)

		code, out := runCommand(t, args...)

		assert.Equal(t, exitUsage, code, args)
		assert.Contains(t, out, "Invalid configuration")
		assert.NotContains(t, out, "Trained")
	}

	events, err := eventlog.OpenSQL(context.Background(), &config.SQL{DSN: dsn})
	require.NoError(t, err)

	defer events.Close()

	require.NoError(t, events.EnsureSchema(context.Background()))

	stats, err := events.Statistics(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
}

func TestRun_TrainsOnFakeEvents(t *testing.T) {
	code, out := runCommand(t,
		"--config", writeConfig(t, sqliteConfig),
		"--now", "1700000000",
		"--fake-events", "1000",
		"--epochs", "5",
		"--seed", "3",
		"--stats",
	)

	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "Using IPv4 strategy\n")
	assert.Contains(t, out, "Trained IPv4 model")
	assert.Contains(t, out, "Training data statistics")
	assert.Contains(t, out, "captured 1,000 logins")
	assert.Contains(t, out, "Classifier model statistics (IPv4)")
	assert.Contains(t, out, "2023-11-14 22:13:20")
}
