// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/artifact-registry/registry/pkg/log"
)

const supportedVersion uint = 2

//go:embed migrations/*
var migrationFiles embed.FS

// MigrateUp brings the schema to supportedVersion, run at connection
// time.
func MigrateUp(db *sql.DB, driverName string) error {
	m, err := migrator(db, driverName)
	if err != nil {
		return err
	}
	if err := m.Migrate(supportedVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// CheckVersion warns (but does not fail) when the schema is behind the
// version this build expects.
func CheckVersion(db *sql.DB, driverName string) {
	m, err := migrator(db, driverName)
	if err != nil {
		log.Errorf("repository: migrator init failed: %v", err)
		return
	}
	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Errorf("repository: could not read schema version: %v", err)
		return
	}
	if dirty {
		log.Warnf("repository: schema at version %d is marked dirty", v)
	}
	if v != supportedVersion {
		log.Warnf("repository: schema version %d does not match supported version %d", v, supportedVersion)
	}
}

func migrator(db *sql.DB, driverName string) (*migrate.Migrate, error) {
	switch driverName {
	case "sqlite3", "":
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			return nil, err
		}
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	default:
		return nil, errors.New("repository: no migrations registered for driver " + driverName)
	}
}
