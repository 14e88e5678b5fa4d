// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package query

import (
	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/model"
)

// Lineage walks the parent-model chain of id and returns the ancestor
// graph plus a self-node for id. Returns DoesNotExist if id does not
// resolve to a model.
func (router *Router) Lineage(id string) (*model.LineageGraph, *apperr.Error) {
	self, err := router.Repo.GetByID(id, model.KindModel)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if self == nil {
		return nil, apperr.New(apperr.DoesNotExist, "no such model")
	}

	graph := &model.LineageGraph{
		ThisModel: id,
		Nodes:     []model.LineageNode{{ArtifactID: self.ID, Name: self.Name}},
	}

	currentID := self.ID
	for depth := 0; depth < maxAncestorDepth; depth++ {
		parentEdges, err := router.Repo.GetParentEdges(currentID)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}

		var parentEdge *model.Edge
		for i := range parentEdges {
			if parentEdges[i].Relation == model.RelationModelParent {
				parentEdge = &parentEdges[i]
				break
			}
		}
		if parentEdge == nil || parentEdge.SrcID == nil {
			break
		}

		parent, err := router.Repo.GetByID(*parentEdge.SrcID, model.KindModel)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}
		if parent == nil {
			break
		}

		graph.Nodes = append(graph.Nodes, model.LineageNode{
			ArtifactID: parent.ID,
			Name:       parent.Name,
			SourceTag:  parentEdge.SourceTag,
		})
		graph.Edges = append(graph.Edges, model.LineageEdge{
			FromID:        parent.ID,
			ToID:          currentID,
			RelationLabel: parentEdge.RelationLabel,
		})

		currentID = parent.ID
	}

	return graph, nil
}
