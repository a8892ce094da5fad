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

package log

import (
	"bytes"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name           string
		configLogLevel int
		formatJSON     bool
		wantDebug      bool
		wantInfo       bool
		wantError      bool
	}{
		{
			name:           "LogLevelNone, JSON format",
			configLogLevel: definitions.LogLevelNone,
			formatJSON:     true,
		},
		{
			name:           "LogLevelError, Logfmt format",
			configLogLevel: definitions.LogLevelError,
			wantError:      true,
		},
		{
			name:           "LogLevelInfo, Logfmt format",
			configLogLevel: definitions.LogLevelInfo,
			wantInfo:       true,
			wantError:      true,
		},
		{
			name:           "LogLevelDebug, JSON format",
			configLogLevel: definitions.LogLevelDebug,
			formatJSON:     true,
			wantDebug:      true,
			wantInfo:       true,
			wantError:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			SetupLoggingWithWriter(buf, tt.configLogLevel, tt.formatJSON, false, "test")

			level.Debug(Logger).Log(definitions.LogKeyMsg, "debug-line")
			level.Info(Logger).Log(definitions.LogKeyMsg, "info-line")
			level.Error(Logger).Log(definitions.LogKeyMsg, "error-line")

			out := buf.String()

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug-line")), out)
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info-line")), out)
			assert.Equal(t, tt.wantError, bytes.Contains(buf.Bytes(), []byte("error-line")), out)

			if tt.wantError {
				assert.Contains(t, out, "test")
			}
		})
	}
}
