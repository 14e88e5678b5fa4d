// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"github.com/jmoiron/sqlx"
)

// withTx runs fn inside a single committed transaction, rolling back on
// any error including a panic. Every multi-statement write in this
// package (artifact + edges + readme, or artifact + edge cleanup) goes
// through this helper so every insert/update/delete is a single
// committed transaction against the metadata store.
func withTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
