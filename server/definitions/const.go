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

package definitions

const (
	// LogKeyGUID represents the training run identifier used in log entries.
	LogKeyGUID = "run"

	// LogKeyMsg represents the message content in log entries.
	LogKeyMsg = "msg"

	// LogKeyError represents error information in log entries.
	LogKeyError = "error"

	// LogKeyWarning represents warning information in log entries.
	LogKeyWarning = "warn"

	// LogKeyInstance represents instance identification in log entries.
	LogKeyInstance = "instance"

	// LogKeyAddressFamily is the address family a run was started for.
	LogKeyAddressFamily = "address_family"

	// LogKeyDebugModule names the debug module of a debug line.
	LogKeyDebugModule = "debug_module"
)

// Log level.
const (
	// LogLevelNone is the iota constant representing no logs
	LogLevelNone = iota

	// LogLevelError is the iota constant for error logs
	LogLevelError

	// LogLevelWarn is the iota constant for warning logs
	LogLevelWarn

	// LogLevelInfo is the iota constant for info logs
	LogLevelInfo

	// LogLevelDebug is the iota constant for debug logs
	LogLevelDebug
)

// Debug modules.
const (
	// DbgNone is used when no debugging module is selected.
	DbgNone DbgModule = iota

	// DbgAll is used for indicating all debugging modules.
	DbgAll

	// DbgNeural is the debugging module for the multilayer perceptron.
	DbgNeural

	// DbgDataset is the debugging module for training data assembly.
	DbgDataset

	// DbgEventLog is the debugging module for event log backends.
	DbgEventLog

	// DbgModelStore is the debugging module for model persistence.
	DbgModelStore

	// DbgReport is the debugging module for the statistics report.
	DbgReport
)

const (
	DbgNoneName       = "none"
	DbgAllName        = "all"
	DbgNeuralName     = "neural"
	DbgDatasetName    = "dataset"
	DbgEventLogName   = "eventlog"
	DbgModelStoreName = "modelstore"
	DbgReportName     = "report"
)

const (
	// InstanceName is the default instance name used in log lines.
	InstanceName = "suspicious-login"

	// DefaultRedisPrefix is prepended to every Redis key.
	DefaultRedisPrefix = "sl:"

	// DefaultHistorySize is the number of model evaluations kept per address family.
	DefaultHistorySize = 30

	// SecondsPerDay is used to convert between CLI seconds and report days.
	SecondsPerDay = 86400

	// DefaultValidationThreshold is the default size of the validation window (one week).
	DefaultValidationThreshold = 7 * SecondsPerDay

	// DefaultMaxAge is the default maximum age of training data (60 days).
	DefaultMaxAge = 60 * SecondsPerDay
)

// Event log backends.
const (
	EventLogRedis = "redis"
	EventLogSQL   = "sql"
)
