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

package dataset

import (
	"fmt"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
)

// TrainingDataConfig selects the event window of a run. All values are Unix seconds. It is a
// value type; every With method returns a modified copy.
type TrainingDataConfig struct {
	threshold int64
	maxAge    int64
	now       int64
}

// NewTrainingDataConfig returns a validated config.
func NewTrainingDataConfig(threshold, maxAge, now int64) (TrainingDataConfig, error) {
	cfg := TrainingDataConfig{threshold: threshold, maxAge: maxAge, now: now}

	if err := cfg.Validate(); err != nil {
		return TrainingDataConfig{}, err
	}

	return cfg, nil
}

// DefaultTrainingDataConfig validates on the last 7 days of a 60 day window ending at now.
func DefaultTrainingDataConfig(now int64) TrainingDataConfig {
	return TrainingDataConfig{
		threshold: definitions.DefaultValidationThreshold,
		maxAge:    definitions.DefaultMaxAge,
		now:       now,
	}
}

func (c TrainingDataConfig) Threshold() int64 { return c.threshold }
func (c TrainingDataConfig) MaxAge() int64    { return c.maxAge }
func (c TrainingDataConfig) Now() int64       { return c.now }

// Since returns the oldest timestamp that is considered.
func (c TrainingDataConfig) Since() int64 {
	return c.now - c.maxAge
}

// ValidationBoundary returns the first timestamp of the validation pool.
func (c TrainingDataConfig) ValidationBoundary() int64 {
	return c.now - c.threshold
}

func (c TrainingDataConfig) WithThreshold(threshold int64) TrainingDataConfig {
	c.threshold = threshold

	return c
}

func (c TrainingDataConfig) WithMaxAge(maxAge int64) TrainingDataConfig {
	c.maxAge = maxAge

	return c
}

func (c TrainingDataConfig) WithNow(now int64) TrainingDataConfig {
	c.now = now

	return c
}

// Validate rejects values that can never describe a window. A threshold at or above maxAge is
// accepted here and refused as insufficient data by the Assembler.
func (c TrainingDataConfig) Validate() error {
	switch {
	case c.threshold < 0:
		return fmt.Errorf("%w: threshold must not be negative, got %d", errors.ErrInvalidTrainingDataConfig, c.threshold)
	case c.maxAge <= 0:
		return fmt.Errorf("%w: max age must be positive, got %d", errors.ErrInvalidTrainingDataConfig, c.maxAge)
	case c.now < 0:
		return fmt.Errorf("%w: now must not be negative, got %d", errors.ErrInvalidTrainingDataConfig, c.now)
	}

	return nil
}

func (c TrainingDataConfig) String() string {
	return fmt.Sprintf("threshold=%d max_age=%d now=%d", c.threshold, c.maxAge, c.now)
}
