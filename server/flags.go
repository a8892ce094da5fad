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
	"time"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/suspicious/dataset"
	"github.com/cloudcopy/suspicious-login/server/suspicious/mlp"
	"github.com/cloudcopy/suspicious-login/server/suspicious/strategy"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cliFlags holds the parsed command line. A value only replaces a default when its flag was
// given.
type cliFlags struct {
	fs *pflag.FlagSet

	epochs    int
	layers    int
	shuffled  float64
	random    float64
	learnRate float64

	validationThreshold int64
	maxAge              int64
	now                 int64

	v6         bool
	stats      bool
	seed       int64
	fakeEvents int
	lang       string
	configPath string
	verbose    config.Verbosity
	version    bool
}

func newFlags(name string) *cliFlags {
	f := &cliFlags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}

	f.fs.IntVarP(&f.epochs, "epochs", "e", 0, "number of epochs to train")
	f.fs.IntVarP(&f.layers, "layers", "l", 0, "number of hidden layers")
	f.fs.Float64Var(&f.shuffled, "shuffled", 0, "ratio of shuffled negative samples")
	f.fs.Float64Var(&f.random, "random", 0, "ratio of random negative samples")
	f.fs.Float64Var(&f.learnRate, "learn-rate", 0, "learning rate")
	f.fs.Int64Var(&f.validationThreshold, "validation-threshold", 0, "seconds of the most recent data used for validation (default one week)")
	f.fs.Int64Var(&f.maxAge, "max-age", 0, "maximum age of training data in seconds (default 60 days)")
	f.fs.Int64Var(&f.now, "now", 0, "overwrite the current time (Unix seconds)")
	f.fs.BoolVar(&f.v6, "v6", false, "train with IPv6 data")
	f.fs.BoolVar(&f.stats, "stats", false, "print training data and model statistics")
	f.fs.Int64Var(&f.seed, "seed", 0, "random seed for reproducible runs")
	f.fs.IntVar(&f.fakeEvents, "fake-events", 0, "append this many synthetic logins to the event log before training")
	f.fs.StringVar(&f.lang, "lang", "", "language of the statistics report (en, es, cs)")
	f.fs.StringVar(&f.configPath, "config", "", "path to the configuration file")
	f.fs.Var(&f.verbose, "verbose", "log level: none, error, warn, info or debug")
	f.fs.BoolVar(&f.version, "version", false, "print the version and exit")

	return f
}

func (f *cliFlags) parse(args []string) error {
	return f.fs.Parse(args)
}

func (f *cliFlags) changed(name string) bool {
	return f.fs.Changed(name)
}

// overrides maps the flags that shadow configuration keys onto the viper instance.
func (f *cliFlags) overrides(v *viper.Viper) {
	if f.changed("lang") {
		v.Set("report.language", f.lang)
	}

	if f.changed("verbose") {
		v.Set("server.log.level", f.verbose.String())
	}

	if f.changed("seed") {
		v.Set("training.seed", f.seed)
	}
}

func (f *cliFlags) family() definitions.AddressFamily {
	if f.v6 {
		return definitions.AddressFamilyV6
	}

	return definitions.AddressFamilyV4
}

// mlpConfig returns the strategy defaults with the configuration file and the given flags
// applied.
func (f *cliFlags) mlpConfig(s strategy.Strategy, file *config.File) mlp.Config {
	cfg := s.DefaultMLPConfig()
	training := file.GetTraining()

	if activation := training.GetActivation(); activation != "" {
		cfg = cfg.WithActivation(activation)
	}

	if width := training.GetHiddenWidth(); width != 0 {
		cfg = cfg.WithHiddenWidth(width)
	}

	if f.changed("epochs") {
		cfg = cfg.WithEpochs(f.epochs)
	}

	if f.changed("layers") {
		cfg = cfg.WithLayers(f.layers)
	}

	if f.changed("shuffled") {
		cfg = cfg.WithShuffledNegativeRate(f.shuffled)
	}

	if f.changed("random") {
		cfg = cfg.WithRandomNegativeRate(f.random)
	}

	if f.changed("learn-rate") {
		cfg = cfg.WithLearningRate(f.learnRate)
	}

	return cfg
}

// dataConfig builds the training data window from the configuration file and the flags.
func (f *cliFlags) dataConfig(file *config.File) dataset.TrainingDataConfig {
	now := time.Now().Unix()
	if f.changed("now") {
		now = f.now
	}

	training := file.GetTraining()
	cfg := dataset.DefaultTrainingDataConfig(now).
		WithThreshold(training.GetValidationThreshold()).
		WithMaxAge(training.GetMaxAge())

	if f.changed("validation-threshold") {
		cfg = cfg.WithThreshold(f.validationThreshold)
	}

	if f.changed("max-age") {
		cfg = cfg.WithMaxAge(f.maxAge)
	}

	return cfg
}

// runSeed returns the configured seed or a time based one.
func (f *cliFlags) runSeed(file *config.File) int64 {
	if seed := file.GetTraining().Seed; seed != 0 {
		return seed
	}

	return time.Now().UnixNano()
}
