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

package util

import (
	"bytes"
	"testing"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/stretchr/testify/assert"
)

func TestDebugModule(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		modules []string
		want    bool
	}{
		{name: "info level suppresses debug", level: "info", modules: []string{"all"}, want: false},
		{name: "module not enabled", level: "debug", modules: []string{"dataset"}, want: false},
		{name: "module enabled", level: "debug", modules: []string{"neural"}, want: true},
		{name: "all enabled", level: "debug", modules: []string{"all"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			config.SetTestFile(&config.File{
				Server: &config.ServerSection{
					Log: config.Log{Level: tt.level, DebugModules: tt.modules},
				},
			})
			log.SetupLoggingWithWriter(buf, config.GetFile().GetServer().GetLog().GetLogLevel(), false, false, "test")

			DebugModule(definitions.DbgNeural, "action", "unit_test")

			assert.Equal(t, tt.want, bytes.Contains(buf.Bytes(), []byte("action=unit_test")), buf.String())

			if tt.want {
				assert.Contains(t, buf.String(), "debug_module=neural")
			}
		})
	}

	config.SetTestFile(nil)
}
