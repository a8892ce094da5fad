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
	stderrors "errors"
	"strings"

	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of all environment variables that override file settings.
const EnvPrefix = "SUSPICIOUS_LOGIN"

// SetDefaults registers every known key with viper. Keys unknown to viper cannot be
// overridden from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.instance_name", definitions.InstanceName)
	v.SetDefault("server.log.level", "info")
	v.SetDefault("server.log.json", false)
	v.SetDefault("server.log.color", false)
	v.SetDefault("server.log.debug_modules", []string{})
	v.SetDefault("server.redis.address", "127.0.0.1:6379")
	v.SetDefault("server.redis.username", "")
	v.SetDefault("server.redis.password", "")
	v.SetDefault("server.redis.database_number", 0)
	v.SetDefault("server.redis.prefix", definitions.DefaultRedisPrefix)
	v.SetDefault("server.redis.pool_size", 10)
	v.SetDefault("server.redis.replica_addresses", []string{})
	v.SetDefault("server.telemetry.otlp_endpoint", "")
	v.SetDefault("server.telemetry.insecure", false)
	v.SetDefault("server.telemetry.sampler_ratio", 1.0)
	v.SetDefault("server.telemetry.propagators", []string{})
	v.SetDefault("server.metrics.pushgateway", "")
	v.SetDefault("server.metrics.job", "suspicious_login_train")
	v.SetDefault("event_log.backend", definitions.EventLogRedis)
	v.SetDefault("event_log.sql.dsn", "")
	v.SetDefault("event_log.sql.table", "login_address")
	v.SetDefault("event_log.sql.max_connections", 4)
	v.SetDefault("event_log.sql.max_idle_connections", 2)
	v.SetDefault("model_store.backend", "redis")
	v.SetDefault("model_store.history_size", definitions.DefaultHistorySize)
	v.SetDefault("training.validation_threshold", "168h")
	v.SetDefault("training.max_age", "1440h")
	v.SetDefault("training.seed", 0)
	v.SetDefault("training.activation", "")
	v.SetDefault("training.hidden_width", 0)
	v.SetDefault("report.language", "en")
}

// NewViper returns a viper instance with defaults, search paths and environment binding.
// An explicit path replaces the search paths.
func NewViper(path string) *viper.Viper {
	v := viper.New()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("suspiciouslogin") // name of config file (without extension)
		v.SetConfigType("yaml")
		v.AddConfigPath("/usr/local/etc/suspiciouslogin/")
		v.AddConfigPath("/etc/suspiciouslogin/")
		v.AddConfigPath("$HOME/.suspiciouslogin")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration file, if any, and returns the validated result. A missing
// file in the search paths is not an error; a missing explicit file is. Overrides run after
// the file has been read, so command line values win.
func Load(path string, overrides ...func(v *viper.Viper)) (*File, error) {
	v := NewViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if path != "" || !stderrors.As(err, &notFound) {
			return nil, err
		}
	}

	for _, override := range overrides {
		override(v)
	}

	return NewFile(v)
}

// NewFile decodes and validates the current state of v.
func NewFile(v *viper.Viper) (*File, error) {
	f := &File{}

	if err := v.Unmarshal(f, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, err
	}

	if err := f.validate(); err != nil {
		return nil, err
	}

	return f, nil
}
