// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package query

import (
	"time"

	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/model"
)

// Rating returns the stored rating for a model and appends a RATE
// audit entry.
func (router *Router) Rating(log *audit.Log, id string, actor string) (*model.Rating, *apperr.Error) {
	artifact, err := router.Repo.GetByID(id, model.KindModel)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if artifact == nil {
		return nil, apperr.New(apperr.DoesNotExist, "no such model")
	}

	rating, err := router.Repo.GetRating(id)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if rating == nil {
		return nil, apperr.New(apperr.DoesNotExist, "model has not been rated")
	}

	if err := log.Append(id, model.KindModel, artifact.Name, actor, model.ActionRate, time.Now()); err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}

	return rating, nil
}
