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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	slerrors "github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()

	SetDefaults(v)
	v.SetConfigType("yaml")

	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	return v
}

func TestNewFile_Defaults(t *testing.T) {
	f, err := NewFile(newTestViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, definitions.InstanceName, f.GetServer().GetInstanceName())
	assert.Equal(t, definitions.LogLevelInfo, f.GetServer().GetLog().GetLogLevel())
	assert.Equal(t, definitions.DefaultRedisPrefix, f.GetServer().GetRedis().GetPrefix())
	assert.Equal(t, definitions.EventLogRedis, f.GetEventLog().GetBackend())
	assert.Equal(t, int64(definitions.DefaultValidationThreshold), f.GetTraining().GetValidationThreshold())
	assert.Equal(t, int64(definitions.DefaultMaxAge), f.GetTraining().GetMaxAge())
	assert.Equal(t, definitions.DefaultHistorySize, f.GetModelStore().GetHistorySize())
	assert.Equal(t, "en", f.GetReport().GetLanguage())
}

func TestNewFile_Values(t *testing.T) {
	f, err := NewFile(newTestViper(t, `
server:
  instance_name: train-01
  log:
    level: debug
    json: true
    debug_modules:
      - neural
      - dataset
  redis:
    address: redis.example.com:6380
    prefix: "test:"
event_log:
  backend: sql
  sql:
    dsn: postgres://user:secret@db/logins
training:
  validation_threshold: 72h
  max_age: 720h
  activation: tanh
  hidden_width: 16
report:
  language: es
`))
	require.NoError(t, err)

	assert.Equal(t, "train-01", f.GetServer().GetInstanceName())
	assert.Equal(t, definitions.LogLevelDebug, f.GetServer().GetLog().GetLogLevel())
	assert.Equal(t, []definitions.DbgModule{definitions.DbgNeural, definitions.DbgDataset}, f.GetServer().GetLog().GetDebugModules())
	assert.Equal(t, "redis.example.com:6380", f.GetServer().GetRedis().GetAddress())
	assert.Equal(t, "test:", f.GetServer().GetRedis().GetPrefix())
	assert.Equal(t, definitions.EventLogSQL, f.GetEventLog().GetBackend())
	assert.Equal(t, int64(3*24*time.Hour/time.Second), f.GetTraining().GetValidationThreshold())
	assert.Equal(t, int64(30*24*time.Hour/time.Second), f.GetTraining().GetMaxAge())
	assert.Equal(t, "es", f.GetReport().GetLanguage())
	assert.Equal(t, "tanh", f.GetTraining().GetActivation())
	assert.Equal(t, 16, f.GetTraining().GetHiddenWidth())
}

func TestNewFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "unknown log level",
			yaml: "server:\n  log:\n    level: chatty\n",
		},
		{
			name: "unknown debug module",
			yaml: "server:\n  log:\n    debug_modules: [ldap]\n",
		},
		{
			name: "unknown language",
			yaml: "report:\n  language: de\n",
		},
		{
			name: "unknown backend",
			yaml: "event_log:\n  backend: kafka\n",
		},
		{
			name:    "sql without dsn",
			yaml:    "event_log:\n  backend: sql\n",
			wantErr: slerrors.ErrUnsupportedSQLDriver,
		},
		{
			name:    "unsupported sql driver",
			yaml:    "event_log:\n  backend: sql\n  sql:\n    dsn: oracle://db\n",
			wantErr: slerrors.ErrUnsupportedSQLDriver,
		},
		{
			name: "unknown activation",
			yaml: "training:\n  activation: softmax\n",
		},
		{
			name: "negative hidden width",
			yaml: "training:\n  hidden_width: -4\n",
		},
		{
			name: "bad table name",
			yaml: "event_log:\n  sql:\n    table: \"logins; drop\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFile(newTestViper(t, tt.yaml))
			assert.Error(t, err)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			}
		})
	}
}

func TestNewFile_Environment(t *testing.T) {
	t.Setenv("SUSPICIOUS_LOGIN_SERVER_REDIS_PREFIX", "env:")
	t.Setenv("SUSPICIOUS_LOGIN_REPORT_LANGUAGE", "cs")

	v := NewViper("")

	f, err := NewFile(v)
	require.NoError(t, err)

	assert.Equal(t, "env:", f.GetServer().GetRedis().GetPrefix())
	assert.Equal(t, "cs", f.GetReport().GetLanguage())
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suspiciouslogin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  language: es\nmodel_store:\n  backend: none\n"), 0o600))

	f, err := Load(path, func(v *viper.Viper) {
		v.Set("report.language", "cs")
	})
	require.NoError(t, err)

	assert.Equal(t, "cs", f.GetReport().GetLanguage())
	assert.False(t, f.GetModelStore().Enabled())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(path, func(v *viper.Viper) {
		v.Set("report.language", "de")
	})
	assert.Error(t, err)
}

func TestVerbosity(t *testing.T) {
	var v Verbosity

	for name, want := range map[string]int{
		"none":  definitions.LogLevelNone,
		"error": definitions.LogLevelError,
		"warn":  definitions.LogLevelWarn,
		"info":  definitions.LogLevelInfo,
		"debug": definitions.LogLevelDebug,
	} {
		assert.NoError(t, v.Set(name))
		assert.Equal(t, want, v.Level())
		assert.Equal(t, name, v.String())
	}

	assert.True(t, errors.Is(v.Set("loud"), slerrors.ErrWrongVerboseLevel))
}

func TestGetFile_Unset(t *testing.T) {
	SetTestFile(nil)

	assert.NotNil(t, GetFile())
	assert.Equal(t, definitions.DefaultRedisPrefix, GetFile().GetServer().GetRedis().GetPrefix())
}
