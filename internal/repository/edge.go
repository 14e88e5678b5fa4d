// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/artifact-registry/registry/internal/model"
)

// relationKindFor reports which physical table a relation's source
// side resolves against once the named artifact is ingested.
func relationKindFor(rel model.Relation) model.Kind {
	switch rel {
	case model.RelationModelDataset:
		return model.KindDataset
	case model.RelationModelCode:
		return model.KindCode
	case model.RelationModelParent:
		return model.KindModel
	default:
		return ""
	}
}

// insertModelEdgesTx writes one edge per dataset/codebase/parent-model
// name linked from a model artifact. The source side is resolved
// immediately against the matching physical table; if the named
// upstream artifact is not registered yet, src_id is left null and
// filled in later by resolveDeferredEdgesTx.
func insertModelEdgesTx(tx *sqlx.Tx, dst *model.Artifact, linked *model.LinkedNames) error {
	for _, name := range linked.DatasetNames {
		if err := insertOneEdgeTx(tx, name, dst, model.RelationModelDataset, "", ""); err != nil {
			return err
		}
	}
	for _, name := range linked.CodebaseNames {
		if err := insertOneEdgeTx(tx, name, dst, model.RelationModelCode, "", ""); err != nil {
			return err
		}
	}
	if linked.ParentModelName != "" {
		if err := insertOneEdgeTx(tx, linked.ParentModelName, dst, model.RelationModelParent,
			linked.ParentRelationTag, linked.ParentSourceTag); err != nil {
			return err
		}
	}
	return nil
}

func insertOneEdgeTx(tx *sqlx.Tx, srcName string, dst *model.Artifact, rel model.Relation, relationLabel, sourceTag string) error {
	srcID, err := lookupIDByNameTx(tx, srcName, relationKindFor(rel))
	if err != nil {
		return err
	}

	sqlStr, args, err := sq.Insert("edge").
		Columns("src_name", "src_id", "dst_name", "dst_id", "relation", "relation_label", "source_tag").
		Values(srcName, nullableString(srcID), dst.Name, dst.ID, string(rel), relationLabel, sourceTag).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

func lookupIDByNameTx(tx *sqlx.Tx, name string, kind model.Kind) (string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	var id string
	err = sq.Select("id").From(table).Where(sq.Eq{"name": name}).RunWith(tx).QueryRow().Scan(&id)
	if err != nil {
		return "", nil // not found yet: leave unresolved, not an error
	}
	return id, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// resolveDeferredEdgesTx patches src_id on every pending edge whose
// src_name matches the just-inserted artifact's name and whose
// relation resolves against that artifact's kind. It is the
// counterpart of insertModelEdgesTx's lookup: whichever artifact
// arrives second (upstream or downstream) completes the edge.
func resolveDeferredEdgesTx(tx *sqlx.Tx, name, id string, kind model.Kind) error {
	var relations []model.Relation
	switch kind {
	case model.KindDataset:
		relations = []model.Relation{model.RelationModelDataset}
	case model.KindCode:
		relations = []model.Relation{model.RelationModelCode}
	case model.KindModel:
		relations = []model.Relation{model.RelationModelParent}
	}
	if len(relations) == 0 {
		return nil
	}

	rels := make([]string, len(relations))
	for i, r := range relations {
		rels[i] = string(r)
	}

	sqlStr, args, err := sq.Update("edge").
		Set("src_id", id).
		Where(sq.Eq{"src_name": name, "relation": rels, "src_id": nil}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// deleteIncomingEdgesTx removes every edge pointing at a deleted
// artifact; a downstream dependent no longer makes sense once its
// target is gone.
func deleteIncomingEdgesTx(tx *sqlx.Tx, dstID string) error {
	sqlStr, args, err := sq.Delete("edge").Where(sq.Eq{"dst_id": dstID}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// nullOutgoingEdgesTx nulls, rather than deletes, src_id on edges
// whose source artifact was deleted: the dependent model still
// references the upstream by name, so the edge's informational value
// (what it once depended on) survives the source's removal.
func nullOutgoingEdgesTx(tx *sqlx.Tx, srcID string) error {
	sqlStr, args, err := sq.Update("edge").
		Set("src_id", nil).
		Where(sq.Eq{"src_id": srcID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// deleteOutgoingEdgesTx removes a model's own dependency edges (those
// whose dst_id is the model), used before re-deriving a fresh edge set
// on model update.
func deleteOutgoingEdgesTx(tx *sqlx.Tx, dstID string) error {
	sqlStr, args, err := sq.Delete("edge").Where(sq.Eq{"dst_id": dstID}).ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(sqlStr, args...)
	return err
}

// GetAssociated returns the dataset and codebase names linked from a
// model, plus its parent model name and relation/source tags if any.
func (r *ArtifactRepository) GetAssociated(modelID string) (*model.LinkedNames, error) {
	rows, err := sq.Select("src_name", "relation", "relation_label", "source_tag").
		From("edge").Where(sq.Eq{"dst_id": modelID}).RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &model.LinkedNames{}
	for rows.Next() {
		var srcName, relation, relationLabel, sourceTag string
		if err := rows.Scan(&srcName, &relation, &relationLabel, &sourceTag); err != nil {
			return nil, err
		}
		switch model.Relation(relation) {
		case model.RelationModelDataset:
			out.DatasetNames = append(out.DatasetNames, srcName)
		case model.RelationModelCode:
			out.CodebaseNames = append(out.CodebaseNames, srcName)
		case model.RelationModelParent:
			out.ParentModelName = srcName
			out.ParentRelationTag = relationLabel
			out.ParentSourceTag = sourceTag
		}
	}
	return out, rows.Err()
}

// GetParentEdges returns every edge whose dst_id is the given
// artifact's id, used by the lineage and cost routers to walk the
// ancestor chain one hop at a time.
func (r *ArtifactRepository) GetParentEdges(dstID string) ([]model.Edge, error) {
	rows, err := sq.Select("id", "src_name", "src_id", "dst_name", "dst_id", "relation", "relation_label", "source_tag").
		From("edge").Where(sq.Eq{"dst_id": dstID}).RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		var srcID *string
		if err := rows.Scan(&e.ID, &e.SrcName, &srcID, &e.DstName, &e.DstID, &e.Relation, &e.RelationLabel, &e.SourceTag); err != nil {
			return nil, err
		}
		e.SrcID = srcID
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
