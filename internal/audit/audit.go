// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package audit implements the append-only audit log: every mutating
// and retrieval-worthy operation on an artifact records one entry,
// keyed by a content hash of its fields so that a retried write (same
// actor, same action, same whole-second instant) is naturally
// idempotent rather than producing a duplicate row.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/pkg/log"
)

// Log appends audit entries and serves per-artifact retrieval.
type Log struct {
	db      *sqlx.DB
	enabled bool
}

// New builds a Log bound to the given database handle. When enabled is
// false, Append is a silent no-op, a cheap config toggle around an
// otherwise-always-present subsystem.
func New(db *sqlx.DB, enabled bool) *Log {
	return &Log{db: db, enabled: enabled}
}

// Append records one audit entry, deriving its id from a hash of its
// content so that re-appending the identical event (same artifact,
// actor, action, and whole-second timestamp) is a safe no-op retry
// rather than a duplicate.
func (l *Log) Append(artifactID string, kind model.Kind, name, actor string, action model.Action, at time.Time) error {
	if !l.enabled {
		return nil
	}

	entry := model.AuditEntry{
		ID:            contentHash(artifactID, kind, actor, action, at),
		ArtifactID:    artifactID,
		Kind:          kind,
		Name:          name,
		Actor:         actor,
		Timestamp:     at,
		Action:        action,
		CorrelationID: uuid.NewString(),
	}

	sqlStr, args, err := sq.Insert("audit_entry").
		Columns("id", "artifact_id", "kind", "name", "actor", "timestamp", "action", "correlation_id").
		Values(entry.ID, entry.ArtifactID, string(entry.Kind), entry.Name, entry.Actor, entry.Timestamp, string(entry.Action), entry.CorrelationID).
		Suffix("ON CONFLICT(id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := l.db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	log.Debugf("audit: %s %s %s by %s", action, kind, artifactID, actor)
	return nil
}

// GetByArtifact returns every recorded entry for an artifact, oldest
// first.
func (l *Log) GetByArtifact(artifactID string, kind model.Kind) ([]model.AuditEntry, error) {
	rows, err := sq.Select("id", "artifact_id", "kind", "name", "actor", "timestamp", "action").
		From("audit_entry").
		Where(sq.Eq{"artifact_id": artifactID, "kind": string(kind)}).
		OrderBy("timestamp ASC").
		RunWith(l.db).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var kindStr, actionStr string
		if err := rows.Scan(&e.ID, &e.ArtifactID, &kindStr, &e.Name, &e.Actor, &e.Timestamp, &actionStr); err != nil {
			return nil, err
		}
		e.Kind = model.Kind(kindStr)
		e.Action = model.Action(actionStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

func contentHash(artifactID string, kind model.Kind, actor string, action model.Action, at time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", artifactID, kind, actor, action, at.Unix())
	return hex.EncodeToString(h.Sum(nil))
}
