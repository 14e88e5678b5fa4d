// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package repository implements the metadata store: a typed, per-kind
// physical table catalog plus the edge, readme and rating tables, with
// transactional CRUD and the derived query operations the accessor and
// query routers build on.
package repository

import (
	"database/sql"
	"errors"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/pkg/log"
)

var (
	artifactRepoOnce     sync.Once
	artifactRepoInstance *ArtifactRepository
)

// ArtifactRepository is the transactional, relational catalog of
// artifacts, edges, readmes and ratings.
type ArtifactRepository struct {
	DB        *sqlx.DB
	stmtCache *sq.StmtCache
}

// GetArtifactRepository returns the process-wide singleton, matching
// the lazily-initialized repository-handle pattern the rest of this
// codebase uses for its database-backed singletons.
func GetArtifactRepository() *ArtifactRepository {
	artifactRepoOnce.Do(func() {
		conn := GetConnection()
		artifactRepoInstance = &ArtifactRepository{
			DB:        conn.DB,
			stmtCache: sq.NewStmtCache(conn.DB.DB),
		}
	})
	return artifactRepoInstance
}

func tableFor(kind model.Kind) (string, error) {
	switch kind {
	case model.KindModel:
		return "model", nil
	case model.KindDataset:
		return "dataset", nil
	case model.KindCode:
		return "code", nil
	default:
		return "", errors.New("repository: unknown artifact kind " + string(kind))
	}
}

func scanArtifact(row interface {
	Scan(...interface{}) error
}, kind model.Kind) (*model.Artifact, error) {
	a := &model.Artifact{Kind: kind}
	if err := row.Scan(&a.ID, &a.Name, &a.SourceURL, &a.SizeMB); err != nil {
		return nil, err
	}
	return a, nil
}

// Exists reports whether an artifact of the given id and kind is
// already in the catalog.
func (r *ArtifactRepository) Exists(id string, kind model.Kind) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int
	err = sq.Select("count(*)").From(table).Where(sq.Eq{"id": id}).
		RunWith(r.stmtCache).QueryRow().Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID returns the artifact or (nil, nil) if it does not exist.
func (r *ArtifactRepository) GetByID(id string, kind model.Kind) (*model.Artifact, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	row := sq.Select("id", "name", "source_url", "size_mb").From(table).
		Where(sq.Eq{"id": id}).RunWith(r.stmtCache).QueryRow()
	a, err := scanArtifact(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Insert writes the artifact row, its readme (if non-empty) and, for
// models, its relation edges, all inside one committed transaction. It
// returns false (not an error) if the (id, kind) pair already exists.
func (r *ArtifactRepository) Insert(a *model.Artifact, readmeBody string, linked *model.LinkedNames) (bool, error) {
	table, err := tableFor(a.Kind)
	if err != nil {
		return false, err
	}

	inserted := false
	err = withTx(r.DB, func(tx *sqlx.Tx) error {
		var count int
		if err := sq.Select("count(*)").From(table).Where(sq.Eq{"id": a.ID}).
			RunWith(tx).QueryRow().Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		sqlStr, args, err := sq.Insert(table).
			Columns("id", "name", "source_url", "size_mb").
			Values(a.ID, a.Name, a.SourceURL, a.SizeMB).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlStr, args...); err != nil {
			return err
		}

		if readmeBody != "" {
			if err := insertReadmeTx(tx, a.ID, a.Kind, readmeBody); err != nil {
				return err
			}
		}

		if a.Kind == model.KindModel && linked != nil {
			if err := insertModelEdgesTx(tx, a, linked); err != nil {
				return err
			}
		}

		if err := resolveDeferredEdgesTx(tx, a.Name, a.ID, a.Kind); err != nil {
			return err
		}

		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Update mutates the artifact's mutable fields (name, source url, size)
// in place; id and kind are immutable. For models, the model's own
// dependency edges (those whose dst_id is the model) are dropped and
// re-derived from the new linked-names set.
func (r *ArtifactRepository) Update(a *model.Artifact, newSizeMB float64, readmeBody string, linked *model.LinkedNames) error {
	table, err := tableFor(a.Kind)
	if err != nil {
		return err
	}

	return withTx(r.DB, func(tx *sqlx.Tx) error {
		sqlStr, args, err := sq.Update(table).
			Set("name", a.Name).
			Set("source_url", a.SourceURL).
			Set("size_mb", newSizeMB).
			Where(sq.Eq{"id": a.ID}).ToSql()
		if err != nil {
			return err
		}
		res, err := tx.Exec(sqlStr, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}

		if err := deleteReadmeTx(tx, a.ID, a.Kind); err != nil {
			return err
		}
		if readmeBody != "" {
			if err := insertReadmeTx(tx, a.ID, a.Kind, readmeBody); err != nil {
				return err
			}
		}

		if a.Kind == model.KindModel {
			if err := deleteOutgoingEdgesTx(tx, a.ID); err != nil {
				return err
			}
			if linked != nil {
				if err := insertModelEdgesTx(tx, a, linked); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

// Delete removes the artifact row, its readme, its rating, its
// incoming edges, and nulls the src_id of its outgoing edges: a
// dangling upstream name is still informative.
func (r *ArtifactRepository) Delete(id string, kind model.Kind) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	deleted := false
	err = withTx(r.DB, func(tx *sqlx.Tx) error {
		sqlStr, args, err := sq.Delete(table).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return err
		}
		res, err := tx.Exec(sqlStr, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := deleteReadmeTx(tx, id, kind); err != nil {
			return err
		}
		if err := deleteRatingTx(tx, id); err != nil {
			return err
		}
		if err := deleteIncomingEdgesTx(tx, id); err != nil {
			return err
		}
		if err := nullOutgoingEdgesTx(tx, id); err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !deleted {
		log.Debugf("repository: delete(%s, %s) affected no rows", id, kind)
	}
	return deleted, nil
}
