// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/artifact-registry/registry/internal/model"
)

func deleteRatingTx(tx *sqlx.Tx, modelID string) error {
	sqlStr, args, err := sq.Delete("rating").Where(sq.Eq{"model_id": modelID}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// PutRating upserts the most recent rating for a model; ratings are
// overwritten rather than versioned, since the registry only ever
// exposes the latest net score.
func (r *ArtifactRepository) PutRating(rating *model.Rating) error {
	metricsJSON, err := json.Marshal(rating.Metrics)
	if err != nil {
		return err
	}
	sizeJSON, err := json.Marshal(rating.RawSize)
	if err != nil {
		return err
	}
	combined := struct {
		Metrics json.RawMessage `json:"metrics"`
		Size    json.RawMessage `json:"size"`
	}{Metrics: metricsJSON, Size: sizeJSON}
	blob, err := json.Marshal(combined)
	if err != nil {
		return err
	}

	return withTx(r.DB, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`DELETE FROM rating WHERE model_id = ?`, rating.ModelID)
		if err != nil {
			return err
		}
		sqlStr, args, err := sq.Insert("rating").
			Columns("model_id", "net_score", "metrics", "rated_at").
			Values(rating.ModelID, rating.NetScore, string(blob), rating.RatedAt).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(sqlStr, args...)
		return err
	})
}

// GetRating returns the stored rating for a model, or (nil, nil) if
// the model has not been rated.
func (r *ArtifactRepository) GetRating(modelID string) (*model.Rating, error) {
	var netScore float64
	var blob string
	var ratedAt sql.NullTime

	err := sq.Select("net_score", "metrics", "rated_at").From("rating").
		Where(sq.Eq{"model_id": modelID}).RunWith(r.stmtCache).QueryRow().
		Scan(&netScore, &blob, &ratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var combined struct {
		Metrics json.RawMessage `json:"metrics"`
		Size    json.RawMessage `json:"size"`
	}
	if err := json.Unmarshal([]byte(blob), &combined); err != nil {
		return nil, err
	}

	rating := &model.Rating{ModelID: modelID, NetScore: netScore}
	if ratedAt.Valid {
		rating.RatedAt = ratedAt.Time
	}
	if err := json.Unmarshal(combined.Metrics, &rating.Metrics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(combined.Size, &rating.RawSize); err != nil {
		return nil, err
	}
	return rating, nil
}
