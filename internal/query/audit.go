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

// Audit returns the recorded entry list for an artifact and appends
// one more AUDIT entry for the retrieval itself.
func (router *Router) Audit(log *audit.Log, id string, kind model.Kind, actor string) ([]model.AuditEntry, *apperr.Error) {
	artifact, err := router.Repo.GetByID(id, kind)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if artifact == nil {
		return nil, apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	entries, err := log.GetByArtifact(id, kind)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}

	if err := log.Append(id, kind, artifact.Name, actor, model.ActionAudit, time.Now()); err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}

	return entries, nil
}
