// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accessor

import (
	"math"

	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/model"
)

// GetByName returns every artifact across all three kinds sharing the
// exact given name.
func (a *Accessor) GetByName(name string) ([]model.Artifact, *apperr.Error) {
	if name == "*" {
		// Query reads "*" as a wildcard; here it is only a literal name.
		return nil, apperr.New(apperr.DoesNotExist, "no artifact with that name")
	}
	out, err := a.Repo.Query(model.Query{Name: name}, 0, math.MaxInt32)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.DoesNotExist, "no artifact with that name")
	}
	return out, nil
}

// GetByRegex returns the union of artifacts whose name matches pattern
// and artifacts whose readme body matches, deduplicated by id.
func (a *Accessor) GetByRegex(pattern string) ([]model.Artifact, *apperr.Error) {
	seen := make(map[string]bool)
	var out []model.Artifact

	for _, kind := range []model.Kind{model.KindModel, model.KindDataset, model.KindCode} {
		nameIDs, err := a.Repo.SearchNamesByRegex(kind, pattern)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}
		readmeIDs, err := a.Repo.SearchReadmesByRegex(kind, pattern)
		if err != nil {
			return nil, apperr.New(apperr.InternalError, err.Error())
		}

		for _, id := range append(nameIDs, readmeIDs...) {
			if seen[id] {
				continue
			}
			art, err := a.Repo.GetByID(id, kind)
			if err != nil {
				return nil, apperr.New(apperr.InternalError, err.Error())
			}
			if art == nil {
				continue
			}
			seen[id] = true
			out = append(out, *art)
		}
	}

	if len(out) == 0 {
		return nil, apperr.New(apperr.DoesNotExist, "no artifact matched")
	}
	return out, nil
}

// Query lists artifacts matching q, enforcing the hard cap on result
// size.
func (a *Accessor) Query(q model.Query, offset, pageSize, hardCap int) ([]model.Artifact, *apperr.Error) {
	if pageSize > hardCap {
		return nil, apperr.New(apperr.TooManyArtifacts, "requested page size exceeds hard cap")
	}
	results, err := a.Repo.Query(q, offset, pageSize)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	return results, nil
}
