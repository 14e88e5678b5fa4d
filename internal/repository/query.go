// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/artifact-registry/registry/internal/model"
)

// Query lists artifacts matching name/kind filters, enforcing the
// configured hard cap on result size regardless of the requested page
// size.
func (r *ArtifactRepository) Query(q model.Query, offset, limit int) ([]model.Artifact, error) {
	kinds := q.Kinds
	if len(kinds) == 0 {
		kinds = []model.Kind{model.KindModel, model.KindDataset, model.KindCode}
	}

	var out []model.Artifact
	for _, kind := range kinds {
		if len(out) >= limit {
			break
		}
		table, err := tableFor(kind)
		if err != nil {
			return nil, err
		}

		builder := sq.Select("id", "name", "source_url", "size_mb").From(table)
		if q.Name != "" && q.Name != "*" {
			builder = builder.Where(sq.Eq{"name": q.Name})
		}
		builder = builder.OrderBy("name").Limit(uint64(limit - len(out))).Offset(uint64(offset))

		sqlStr, args, err := builder.ToSql()
		if err != nil {
			return nil, err
		}
		rows, err := r.stmtCache.Query(sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("repository: query %s: %w", table, err)
		}
		for rows.Next() {
			a := model.Artifact{Kind: kind}
			if err := rows.Scan(&a.ID, &a.Name, &a.SourceURL, &a.SizeMB); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, a)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// SearchNamesByRegex returns the ids of artifacts of the given kind
// whose name matches the given regular expression (Go regexp syntax).
func (r *ArtifactRepository) SearchNamesByRegex(kind model.Kind, pattern string) ([]string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := sq.Select("id").From(table).
		Where("name REGEXP ?", pattern).
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

// GetByNameAndKind returns one artifact of the given kind with that
// exact name, or (nil, nil) if there is none. Names are not unique;
// when several artifacts share one, which of them is returned is not
// defined.
func (r *ArtifactRepository) GetByNameAndKind(name string, kind model.Kind) (*model.Artifact, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	row := sq.Select("id", "name", "source_url", "size_mb").From(table).
		Where(sq.Eq{"name": name}).RunWith(r.stmtCache).QueryRow()
	a, err := scanArtifact(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
