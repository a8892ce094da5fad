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
	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/log"

	"github.com/go-kit/log/level"
)

// DebugModule logs keyvals at debug level if the log level is debug and either module or
// "all" is listed in server.log.debug_modules.
func DebugModule(module definitions.DbgModule, keyvals ...any) {
	logCfg := config.GetFile().GetServer().GetLog()

	if logCfg.GetLogLevel() < definitions.LogLevelDebug {
		return
	}

	enabled := false

	for _, configured := range logCfg.GetDebugModules() {
		if configured == definitions.DbgAll || configured == module {
			enabled = true

			break
		}
	}

	if !enabled {
		return
	}

	keyvals = append([]any{definitions.LogKeyDebugModule, module.String()}, keyvals...)

	level.Debug(log.Logger).Log(keyvals...)
}
