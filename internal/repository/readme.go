// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/artifact-registry/registry/internal/model"
)

func insertReadmeTx(tx *sqlx.Tx, id string, kind model.Kind, body string) error {
	sqlStr, args, err := sq.Insert("readme").
		Columns("id", "kind", "body").
		Values(id, string(kind), body).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

func deleteReadmeTx(tx *sqlx.Tx, id string, kind model.Kind) error {
	sqlStr, args, err := sq.Delete("readme").
		Where(sq.Eq{"id": id, "kind": string(kind)}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// GetReadme returns the readme body for an artifact, or ("", nil) if
// none was recorded.
func (r *ArtifactRepository) GetReadme(id string, kind model.Kind) (string, error) {
	var body string
	err := sq.Select("body").From("readme").
		Where(sq.Eq{"id": id, "kind": string(kind)}).
		RunWith(r.stmtCache).QueryRow().Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return body, err
}

// SearchReadmesByRegex returns the ids of artifacts of the given kind
// whose readme body matches the given regular expression (Go regexp syntax),
// backing the `/artifact/byRegEx` endpoint's README search behavior.
func (r *ArtifactRepository) SearchReadmesByRegex(kind model.Kind, pattern string) ([]string, error) {
	rows, err := sq.Select("id").From("readme").
		Where(sq.Eq{"kind": string(kind)}).
		Where("body REGEXP ?", pattern).
		RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
