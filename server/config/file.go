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

package config

import (
	"regexp"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

var (
	file atomic.Pointer[File]

	sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// File is the decoded and validated configuration file.
type File struct {
	Server     *ServerSection     `mapstructure:"server" validate:"omitempty"`
	EventLog   *EventLogSection   `mapstructure:"event_log" validate:"omitempty"`
	ModelStore *ModelStoreSection `mapstructure:"model_store" validate:"omitempty"`
	Training   *TrainingSection   `mapstructure:"training" validate:"omitempty"`
	Report     *ReportSection     `mapstructure:"report" validate:"omitempty"`
}

// GetFile returns the active configuration. It never returns nil; an unset configuration
// behaves like an empty file and every getter falls back to its default.
func GetFile() *File {
	if f := file.Load(); f != nil {
		return f
	}

	return &File{}
}

// SetFile replaces the active configuration.
func SetFile(f *File) {
	file.Store(f)
}

// SetTestFile replaces the active configuration in tests.
func SetTestFile(f *File) {
	SetFile(f)
}

// GetServer returns the server section.
func (f *File) GetServer() *ServerSection {
	if f == nil || f.Server == nil {
		return &ServerSection{}
	}

	return f.Server
}

// GetEventLog returns the event log section.
func (f *File) GetEventLog() *EventLogSection {
	if f == nil || f.EventLog == nil {
		return &EventLogSection{}
	}

	return f.EventLog
}

// GetModelStore returns the model store section.
func (f *File) GetModelStore() *ModelStoreSection {
	if f == nil || f.ModelStore == nil {
		return &ModelStoreSection{}
	}

	return f.ModelStore
}

// GetTraining returns the training section.
func (f *File) GetTraining() *TrainingSection {
	if f == nil || f.Training == nil {
		return &TrainingSection{}
	}

	return f.Training
}

// GetReport returns the report section.
func (f *File) GetReport() *ReportSection {
	if f == nil || f.Report == nil {
		return &ReportSection{}
	}

	return f.Report
}

// validate runs the struct tag rules and the cross-field checks.
func (f *File) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("sql_identifier", func(fl validator.FieldLevel) bool {
		return sqlIdentifier.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := validate.Struct(f); err != nil {
		return err
	}

	return f.GetEventLog().validate()
}
