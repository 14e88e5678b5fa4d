// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/artifact-registry/registry/pkg/log"

	"github.com/jmoiron/sqlx"
)

var (
	dbConnOnce     sync.Once
	dbConnInstance *DBConnection
)

// DBConnection wraps the sqlx handle shared by every table-specific
// repository in this package.
type DBConnection struct {
	DB     *sqlx.DB
	Driver string
}

// auditHooks logs every statement at debug level via a sqlhooks driver
// wrapper.
type auditHooks struct{}

func (h *auditHooks) Before(ctx any, query string, args ...any) (any, error) {
	log.Debugf("sql: %s %v", query, args)
	return ctx, nil
}

func (h *auditHooks) After(ctx any, query string, args ...any) (any, error) {
	return ctx, nil
}

// Connect opens (and memoizes) the metadata store connection. dbURL is
// either a bare sqlite3 file path or a "driver://dsn" form; only
// sqlite3 is wired as a concrete driver here, registered through the
// hook-wrapped driver used for query auditing.
func Connect(dbURL string) error {
	var err error
	dbConnOnce.Do(func() {
		driver, dsn := splitDriver(dbURL)

		switch driver {
		case "sqlite3", "":
			base := &sqlite3.SQLiteDriver{
				ConnectHook: func(conn *sqlite3.SQLiteConn) error {
					return conn.RegisterFunc("regexp", sqliteRegexp, true)
				},
			}
			// The driver name is process-global; a reconnect after
			// resetForTesting must not register it a second time.
			registered := false
			for _, name := range sql.Drivers() {
				registered = registered || name == "sqlite3WithHooks"
			}
			if !registered {
				sql.Register("sqlite3WithHooks", sqlhooks.Wrap(base, &auditHooks{}))
			}
			var dbHandle *sqlx.DB
			dbHandle, err = sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
			if err != nil {
				return
			}
			// sqlite does not multithread; one connection avoids lock
			// contention between concurrent writers.
			dbHandle.SetMaxOpenConns(1)
			dbConnInstance = &DBConnection{DB: dbHandle, Driver: "sqlite3"}
		default:
			err = fmt.Errorf("repository: unsupported db driver %q", driver)
		}
	})
	return err
}

// sqliteRegexp backs the REGEXP operator used by readme and name
// search queries; mattn/go-sqlite3 does not register one by default.
func sqliteRegexp(pattern, s string) (bool, error) {
	return regexp.MatchString(pattern, s)
}

func splitDriver(dbURL string) (driver, dsn string) {
	if idx := strings.Index(dbURL, "://"); idx >= 0 {
		return dbURL[:idx], dbURL[idx+3:]
	}
	return "sqlite3", dbURL
}

// GetConnection returns the singleton connection. Connect must have
// been called first.
func GetConnection() *DBConnection {
	if dbConnInstance == nil {
		log.Fatal("repository: database connection not initialized")
	}
	return dbConnInstance
}

// resetForTesting drops the singleton so tests can reconnect to a
// fresh in-memory database.
func resetForTesting() {
	dbConnOnce = sync.Once{}
	dbConnInstance = nil
}
