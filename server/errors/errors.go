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

package errors

import (
	"errors"
	"fmt"
)

// training.

var (
	// ErrInsufficientData marks a run that was refused because the event log holds too little data.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrService marks any other pipeline failure. No model is produced.
	ErrService = errors.New("training service failure")

	// ErrNotEvaluable is returned when a model cannot be evaluated, e.g. on an empty validation pool.
	ErrNotEvaluable = errors.New("model not yet evaluable")

	// ErrFamilyMismatch is returned when an address does not belong to the strategy's family.
	ErrFamilyMismatch = errors.New("address family mismatch")

	// ErrFeatureSize is returned when a feature vector does not match the model input width.
	ErrFeatureSize = errors.New("feature vector size mismatch")
)

// config.

var (
	ErrInvalidMLPConfig          = errors.New("invalid MLP configuration")
	ErrInvalidTrainingDataConfig = errors.New("invalid training data configuration")
	ErrWrongVerboseLevel         = errors.New("wrong verbose level")
	ErrWrongDebugModule          = errors.New("wrong debug module")
	ErrUnknownEventLogBackend    = errors.New("unknown event log backend")
	ErrUnsupportedSQLDriver      = errors.New("unsupported SQL driver")
)

// storage.

var (
	ErrNoModel           = errors.New("no model has been trained yet")
	ErrNoDatabaseConnect = errors.New("no SQL database connection established")
	ErrMalformedEvent    = errors.New("malformed login event")
)

// InsufficientDataError is raised when the assembled dataset cannot support training.
// It matches ErrInsufficientData with errors.Is.
type InsufficientDataError struct {
	reason string
}

// NewInsufficientDataError returns an InsufficientDataError with a formatted reason.
func NewInsufficientDataError(format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{reason: fmt.Sprintf(format, args...)}
}

func (e *InsufficientDataError) Error() string {
	return e.reason
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// ServiceError wraps a non-recoverable pipeline failure. It matches ErrService with errors.Is
// and unwraps to the underlying cause.
type ServiceError struct {
	msg string
	err error
}

// NewServiceError returns a ServiceError with a message and an optional cause.
func NewServiceError(msg string, err error) *ServiceError {
	return &ServiceError{msg: msg, err: err}
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return e.msg + ": " + e.err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
