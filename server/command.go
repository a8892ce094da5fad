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
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/eventlog"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/modelstore"
	"github.com/cloudcopy/suspicious-login/server/report"
	"github.com/cloudcopy/suspicious-login/server/suspicious/dataset"
	"github.com/cloudcopy/suspicious-login/server/suspicious/pipeline"
	"github.com/cloudcopy/suspicious-login/server/suspicious/strategy"

	"github.com/fatih/color"
	"github.com/go-kit/log/level"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const stopTimeout = 10 * time.Second

// fakeEventsPerAccount sets how many synthetic logins share one account.
const fakeEventsPerAccount = 20

type trainCommand struct {
	flags   *cliFlags
	cfg     *config.File
	events  eventlog.Log
	store   *modelstore.RedisStore
	reports report.Manager
	trainer *pipeline.Trainer
	stdout  io.Writer
}

func newTrainCommand(flags *cliFlags, cfg *config.File, events eventlog.Log, store *modelstore.RedisStore, reports report.Manager, trainer *pipeline.Trainer, out output) *trainCommand {
	return &trainCommand{
		flags:   flags,
		cfg:     cfg,
		events:  events,
		store:   store,
		reports: reports,
		trainer: trainer,
		stdout:  out.Writer,
	}
}

// run parses args, wires the application and returns the process exit code.
func run(ctx context.Context, cancel context.CancelFunc, args []string, stdout, stderr io.Writer) int {
	flags := newFlags("suspicious-login")
	flags.fs.SetOutput(stderr)

	if err := flags.parse(args); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	if flags.version {
		fmt.Fprintf(stdout, "suspicious-login %s %s\n", version, buildTime)

		return exitOK
	}

	file, err := config.Load(flags.configPath, flags.overrides)
	if err != nil {
		color.New(color.FgRed).Fprintf(stdout, "Invalid configuration: %s\n", err)

		return exitUsage
	}

	config.SetFile(file)

	logCfg := file.GetServer().GetLog()
	log.SetupLoggingWithWriter(stderr, logCfg.GetLogLevel(), logCfg.JSON, logCfg.Color && isTerminal(stderr), file.GetServer().GetInstanceName())

	var cmd *trainCommand

	app := newApp(ctx, cancel, flags, file, stdout, &cmd)
	if err = app.Err(); err != nil {
		return printFailure(stdout, err)
	}

	if err = app.Start(ctx); err != nil {
		return printFailure(stdout, err)
	}

	code := cmd.execute(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err = app.Stop(stopCtx); err != nil {
		level.Warn(log.Logger).Log(definitions.LogKeyMsg, "Shutdown incomplete", definitions.LogKeyError, err)
	}

	return code
}

func (c *trainCommand) execute(ctx context.Context) int {
	s, err := strategy.ForFamily(c.flags.family())
	if err != nil {
		return printFailure(c.stdout, err)
	}

	fmt.Fprintf(c.stdout, "Using %s strategy\n", s.TypeName())

	mlpCfg := c.flags.mlpConfig(s, c.cfg)
	dataCfg := c.flags.dataConfig(c.cfg)
	seed := c.flags.runSeed(c.cfg)

	if err = mlpCfg.Validate(); err != nil {
		return printFailure(c.stdout, err)
	}

	if err = dataCfg.Validate(); err != nil {
		return printFailure(c.stdout, err)
	}

	if c.flags.fakeEvents > 0 {
		if err = c.seedEvents(ctx, dataCfg, seed); err != nil {
			return printFailure(c.stdout, errors.NewServiceError("could not seed the event log", err))
		}
	}

	opts := pipeline.Options{Seed: seed}
	if c.store != nil {
		opts.Sink = c.store
	}

	result, err := c.trainer.Train(ctx, mlpCfg, dataCfg, s, opts)
	if err != nil {
		code := printFailure(c.stdout, err)

		if c.flags.stats && stderrors.Is(err, errors.ErrInsufficientData) {
			if statsErr := c.printStatistics(ctx, s.Family(), dataCfg, nil); statsErr != nil {
				level.Warn(log.Logger).Log(definitions.LogKeyMsg, "Could not read statistics", definitions.LogKeyError, statsErr)
			}
		}

		return code
	}

	color.New(color.FgGreen).Fprintf(c.stdout, "Trained %s model (run %s, %s)\n", s.TypeName(), result.GUID, result.Dataset)

	if c.flags.stats {
		if err = c.printStatistics(ctx, s.Family(), dataCfg, result); err != nil {
			return printFailure(c.stdout, errors.NewServiceError("could not read statistics", err))
		}
	}

	return exitOK
}

func (c *trainCommand) seedEvents(ctx context.Context, dataCfg dataset.TrainingDataConfig, seed int64) error {
	ipv6Share := 0.0
	if c.flags.v6 {
		ipv6Share = 1
	}

	_, err := eventlog.Seed(ctx, c.events, eventlog.SeedConfig{
		Accounts:            max(c.flags.fakeEvents/fakeEventsPerAccount, 1),
		AddressesPerAccount: 2,
		Events:              c.flags.fakeEvents,
		From:                dataCfg.Since(),
		To:                  dataCfg.Now(),
		IPv6Share:           ipv6Share,
		Seed:                uint64(seed),
	})

	return err
}

// printStatistics renders the report. Without a result of this run the latest stored model is
// shown, if there is one.
func (c *trainCommand) printStatistics(ctx context.Context, family definitions.AddressFamily, dataCfg dataset.TrainingDataConfig, result *pipeline.Result) error {
	corpus, err := c.events.Statistics(ctx)
	if err != nil {
		return err
	}

	statistics := report.Statistics{
		Family: family,
		Corpus: corpus,
		MaxAge: dataCfg.MaxAge(),
	}

	if result != nil {
		statistics.Latest = &modelstore.StoredModel{Model: result.Model, Evaluation: result.Evaluation}
	}

	switch {
	case c.store != nil:
		if statistics.Latest == nil {
			statistics.Latest, err = c.store.Latest(ctx, family)
			if err != nil && !stderrors.Is(err, errors.ErrNoModel) {
				return err
			}
		}

		if statistics.History, err = c.store.History(ctx, family); err != nil {
			return err
		}
	case result != nil:
		statistics.History = []modelstore.HistoryEntry{modelstore.NewHistoryEntry(result.Model, result.Evaluation)}
	}

	fmt.Fprintln(c.stdout)

	return report.NewRenderer(c.reports, c.cfg.GetReport().GetLanguage()).Render(c.stdout, statistics)
}

// printFailure reports err the way the exit code classifies it.
func printFailure(w io.Writer, err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInsufficientData):
		fmt.Fprintf(w, "Not enough data, try again later (%s)\n", color.RedString("%s", err))

		return exitFailure
	case isConfigError(err):
		color.New(color.FgRed).Fprintf(w, "Invalid configuration: %s\n", err)

		return exitUsage
	default:
		color.New(color.FgRed).Fprintf(w, "Could not train a model: %s\n", err)

		return exitFailure
	}
}

func isConfigError(err error) bool {
	for _, target := range []error{
		errors.ErrInvalidMLPConfig,
		errors.ErrInvalidTrainingDataConfig,
		errors.ErrUnknownEventLogBackend,
		errors.ErrUnsupportedSQLDriver,
		errors.ErrWrongVerboseLevel,
		errors.ErrWrongDebugModule,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}

	return false
}

// isTerminal reports whether w is a terminal. Colored log lines are only written to one.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
