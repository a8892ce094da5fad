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
	"context"
	"io"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/eventlog"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/modelstore"
	"github.com/cloudcopy/suspicious-login/server/monitoring"
	"github.com/cloudcopy/suspicious-login/server/rediscli"
	"github.com/cloudcopy/suspicious-login/server/report"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/suspicious/pipeline"

	"github.com/go-kit/log/level"
	"go.uber.org/fx"
)

// output is the writer command results are printed to.
type output struct {
	io.Writer
}

func newApp(ctx context.Context, cancel context.CancelFunc, flags *cliFlags, file *config.File, stdout io.Writer, cmd **trainCommand) *fx.App {
	return fx.New(
		fx.NopLogger,
		rootContextOption(ctx, cancel),
		fx.Supply(flags, file, output{stdout}),
		fx.Provide(
			newEventLog,
			newModelStore,
			report.NewManager,
			newPipeline,
			newTrainCommand,
		),
		fx.Invoke(
			registerRedisLifecycle,
			registerTelemetryLifecycle,
			registerMetricsPush,
		),
		fx.Populate(cmd),
	)
}

func newEventLog(lc fx.Lifecycle, ctx context.Context, file *config.File) (eventlog.Log, error) {
	events, err := eventlog.New(ctx, file)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return events.Close()
		},
	})

	level.Debug(log.Logger).Log(definitions.LogKeyMsg, "Opened event log", "backend", events.Name())

	return events, nil
}

// newModelStore returns nil when the model store is disabled.
func newModelStore(file *config.File) *modelstore.RedisStore {
	if !file.GetModelStore().Enabled() {
		return nil
	}

	return modelstore.NewRedisStore(
		rediscli.GetClient(),
		file.GetServer().GetRedis().GetPrefix(),
		file.GetModelStore().GetHistorySize(),
	)
}

func newPipeline(events eventlog.Log) *pipeline.Trainer {
	return pipeline.NewTrainer(events)
}

func usesRedis(file *config.File) bool {
	return file.GetEventLog().GetBackend() == definitions.EventLogRedis || file.GetModelStore().Enabled()
}

func registerRedisLifecycle(lc fx.Lifecycle, file *config.File) {
	if !usesRedis(file) {
		return
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			rediscli.GetClient().Close()

			return nil
		},
	})
}

func registerTelemetryLifecycle(lc fx.Lifecycle, ctx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			monitoring.GetTelemetry().Start(ctx, version)

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			monitoring.GetTelemetry().Shutdown(stopCtx)

			return nil
		},
	})
}

// registerMetricsPush pushes the collected metrics once the run is over. Push failures are
// logged and do not change the exit code.
func registerMetricsPush(lc fx.Lifecycle, file *config.File) {
	metrics := file.GetServer().GetMetrics()
	if metrics == nil || metrics.Pushgateway == "" {
		return
	}

	lc.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			if err := stats.Push(stopCtx, metrics.Pushgateway, metrics.GetJob(), file.GetServer().GetTelemetry().Enabled()); err != nil {
				level.Warn(log.Logger).Log(
					definitions.LogKeyMsg, "Failed to push metrics",
					"pushgateway", metrics.Pushgateway,
					definitions.LogKeyError, err,
				)
			}

			return nil
		},
	})
}
