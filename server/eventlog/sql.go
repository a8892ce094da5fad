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

package eventlog

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/cloudcopy/suspicious-login/server/config"
	"github.com/cloudcopy/suspicious-login/server/definitions"
	"github.com/cloudcopy/suspicious-login/server/errors"
	"github.com/cloudcopy/suspicious-login/server/log"
	"github.com/cloudcopy/suspicious-login/server/model/login"
	"github.com/cloudcopy/suspicious-login/server/stats"
	"github.com/cloudcopy/suspicious-login/server/util"

	"github.com/go-kit/log/level"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// sqlRow is one row of the login table. created_at holds Unix seconds.
type sqlRow struct {
	AccountID string `db:"uid"`
	IP        string `db:"ip"`
	CreatedAt int64  `db:"created_at"`
}

// SQLLog stores logins in a single table with one row per login.
type SQLLog struct {
	db    *sqlx.DB
	table string
}

var _ Log = (*SQLLog)(nil)

// parseDSN returns the driver name and the data source name the driver expects.
func parseDSN(dsn string) (driver string, dataSource string, err error) {
	switch {
	case strings.HasPrefix(dsn, "mysql://"):
		return driverMySQL, dsn[strings.Index(dsn, "://")+3:], nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return driverSQLite, dsn[strings.Index(dsn, "://")+3:], nil
	default:
		return "", "", errors.ErrUnsupportedSQLDriver
	}
}

// OpenSQL connects to the database named by the event_log.sql section.
func OpenSQL(ctx context.Context, cfg *config.SQL) (*SQLLog, error) {
	driver, dataSource, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrNoDatabaseConnect, err)
	}

	db.SetConnMaxLifetime(time.Minute * 3)

	if driver == driverSQLite {
		// SQLite allows a single writer; an in-memory database also exists per connection only.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConnections > 0 {
			db.SetMaxOpenConns(cfg.MaxConnections)
		}

		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}

	util.DebugModule(definitions.DbgEventLog,
		"action", "sql_connect",
		"sql_driver", driver,
		"table", cfg.GetTable(),
	)

	return NewSQLLog(db, cfg.GetTable()), nil
}

// NewSQLLog wraps an open database. table must be a plain SQL identifier.
func NewSQLLog(db *sqlx.DB, table string) *SQLLog {
	return &SQLLog{db: db, table: table}
}

func (s *SQLLog) Name() string {
	return definitions.EventLogSQL
}

// EnsureSchema creates the login table and its timestamp index if they do not exist.
func (s *SQLLog) EnsureSchema(ctx context.Context) error {
	var statements []string

	switch s.db.DriverName() {
	case driverMySQL:
		statements = []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	uid VARCHAR(255) NOT NULL,
	ip VARCHAR(45) NOT NULL,
	created_at BIGINT NOT NULL,
	INDEX %s_created_at_idx (created_at)
)`, s.table, s.table)}
	case driverPostgres:
		statements = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	uid VARCHAR(255) NOT NULL,
	ip VARCHAR(45) NOT NULL,
	created_at BIGINT NOT NULL
)`, s.table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`, s.table, s.table),
		}
	default:
		statements = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL,
	ip TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`, s.table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`, s.table, s.table),
		}
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
	}

	return nil
}

func (s *SQLLog) Append(ctx context.Context, events ...login.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	query := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (uid, ip, created_at) VALUES (?, ?, ?)", s.table))

	for _, event := range events {
		if !event.IP.IsValid() || event.AccountID == "" {
			_ = tx.Rollback()

			return fmt.Errorf("%w: %+v", errors.ErrMalformedEvent, event)
		}

		if _, err = tx.ExecContext(ctx, query, event.AccountID, event.IP.Unmap().String(), event.Timestamp); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to append login: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLLog) QueryEvents(ctx context.Context, since int64) ([]login.Event, error) {
	var rows []sqlRow

	query := s.db.Rebind(fmt.Sprintf("SELECT uid, ip, created_at FROM %s WHERE created_at >= ? ORDER BY created_at ASC, id ASC", s.table))

	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to query logins since %d: %w", since, err)
	}

	events := make([]login.Event, 0, len(rows))

	for _, row := range rows {
		addr, err := netip.ParseAddr(row.IP)
		if err != nil {
			level.Warn(log.Logger).Log(
				definitions.LogKeyMsg, "Skipping malformed login event",
				definitions.LogKeyError, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err),
			)

			continue
		}

		events = append(events, login.Event{IP: addr, AccountID: row.AccountID, Timestamp: row.CreatedAt})
	}

	util.DebugModule(definitions.DbgEventLog,
		"action", "query_events",
		"backend", s.Name(),
		"since", since,
		"count", len(events),
	)

	stats.GetMetrics().RecordEventsRead(s.Name(), len(events))

	return events, nil
}

func (s *SQLLog) Statistics(ctx context.Context) (login.CorpusStatistics, error) {
	var result login.CorpusStatistics

	if err := s.db.GetContext(ctx, &result.Total, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return login.CorpusStatistics{}, fmt.Errorf("failed to count logins: %w", err)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT uid, ip FROM %s) pairs", s.table)

	if err := s.db.GetContext(ctx, &result.DistinctPairs, query); err != nil {
		return login.CorpusStatistics{}, fmt.Errorf("failed to count distinct pairs: %w", err)
	}

	return result, nil
}

func (s *SQLLog) Close() error {
	return s.db.Close()
}
