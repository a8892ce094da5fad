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

package rediscli

import (
	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/log"

	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// newRedisClient returns a new Redis client for address. Credentials, database number and
// pool size are taken from the server.redis section. With tracing every command gets a span.
func newRedisClient(redisCfg *config.Redis, address string, tracing bool) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Username: redisCfg.Username,
		Password: redisCfg.Password,
		DB:       redisCfg.DatabaseNumber,
		PoolSize: redisCfg.PoolSize,
	})

	if tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			level.Warn(log.Logger).Log(
				definitions.LogKeyMsg, "Failed to instrument Redis client",
				"address", address,
				definitions.LogKeyError, err,
			)
		}
	}

	return client
}
