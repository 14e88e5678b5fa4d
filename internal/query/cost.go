// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query implements the derived query routers: cost, lineage,
// audit retrieval and rating retrieval, all built on top of the
// metadata store's artifact and edge tables.
package query

import (
	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/repository"
)

// maxAncestorDepth bounds the parent-model walk performed by Cost and
// Lineage; the edge invariant (a model has at most one parent edge)
// already prevents cycles, but a bound still caps pathological chains
// and lets truncation be reported honestly.
const maxAncestorDepth = 64

// Router answers the four derived queries: cost, lineage, audit and
// rating retrieval.
type Router struct {
	Repo *repository.ArtifactRepository
}

// New builds a Router bound to the given repository.
func New(repo *repository.ArtifactRepository) *Router {
	return &Router{Repo: repo}
}

// Cost computes the standalone and total size cost for an artifact. For
// non-model kinds, or when includeDependencies is false, standalone and
// total are both just the artifact's own size. For a model with
// includeDependencies true, total additionally sums every ancestor
// model's size plus the size of every model's linked datasets and
// codebases along the chain.
func (router *Router) Cost(id string, kind model.Kind, includeDependencies bool) (*model.CostReport, *apperr.Error) {
	artifact, err := router.Repo.GetByID(id, kind)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if artifact == nil {
		return nil, apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	report := &model.CostReport{ArtifactID: id, Standalone: artifact.SizeMB, Total: artifact.SizeMB}
	if !includeDependencies || kind != model.KindModel {
		return report, nil
	}

	total := artifact.SizeMB
	currentID := id
	for depth := 0; depth < maxAncestorDepth; depth++ {
		linked, err := router.Repo.GetAssociated(currentID)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}
		for _, name := range linked.DatasetNames {
			total += router.lookupSizeByName(name, model.KindDataset)
		}
		for _, name := range linked.CodebaseNames {
			total += router.lookupSizeByName(name, model.KindCode)
		}

		if linked.ParentModelName == "" {
			report.Total = total
			return report, nil
		}

		parentEdges, err := router.Repo.GetParentEdges(currentID)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}
		parentID := parentIDFromEdges(parentEdges, model.RelationModelParent)
		if parentID == "" {
			report.Total = total
			return report, nil
		}

		parent, err := router.Repo.GetByID(parentID, model.KindModel)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}
		if parent == nil {
			report.Total = total
			return report, nil
		}
		total += parent.SizeMB
		currentID = parentID
	}

	report.Total = total
	report.Truncated = true
	return report, nil
}

func (router *Router) lookupSizeByName(name string, kind model.Kind) float64 {
	artifact, err := router.Repo.GetByNameAndKind(name, kind)
	if err != nil || artifact == nil {
		return 0
	}
	return artifact.SizeMB
}

func parentIDFromEdges(edges []model.Edge, relation model.Relation) string {
	for _, e := range edges {
		if e.Relation == relation && e.SrcID != nil {
			return *e.SrcID
		}
	}
	return ""
}
