// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/api/schema"
	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/model"
)

// postArtifacts implements POST /artifacts?offset=N: a paged listing
// against one or more query filters.
func (api *RestApi) postArtifacts(rw http.ResponseWriter, r *http.Request) {
	var queries []model.Query
	if err := decodeValidated(r.Body, schema.QueryList, &queries); err != nil {
		writeAppError(rw, apperr.New(apperr.BadRequest, err.Error()), false)
		return
	}
	if len(queries) == 0 {
		queries = []model.Query{{Name: "*"}}
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeAppError(rw, apperr.New(apperr.BadRequest, "offset must be an integer cursor"), false)
			return
		}
		offset = parsed
	}

	var out []model.Artifact
	for _, q := range queries {
		results, appErr := api.Accessor.Query(q, offset, api.PageSize, api.HardCap)
		if appErr != nil {
			writeAppError(rw, appErr, false)
			return
		}
		out = append(out, results...)
	}

	if len(out) == api.PageSize {
		rw.Header().Set("X-Next-Offset", strconv.Itoa(offset+api.PageSize))
	}
	writeJSON(rw, http.StatusOK, out)
}

// postByName implements POST /artifact/byName/{name}.
func (api *RestApi) postByName(rw http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	out, appErr := api.Accessor.GetByName(name)
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, out)
}

type regexRequest struct {
	Regex string `json:"regex" validate:"required"`
}

// postByRegex implements POST /artifact/byRegEx.
func (api *RestApi) postByRegex(rw http.ResponseWriter, r *http.Request) {
	var req regexRequest
	if err := decodeValidated(r.Body, schema.RegexQuery, &req); err != nil {
		writeAppError(rw, apperr.New(apperr.BadRequest, err.Error()), false)
		return
	}
	out, appErr := api.Accessor.GetByRegex(req.Regex)
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, out)
}

// getArtifact implements GET /artifacts/{kind}/{id}.
func (api *RestApi) getArtifact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	artifact, appErr := api.Accessor.Get(r.Context(), kind, vars["id"], actorFor(r))
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, artifact)
}

type artifactUpdateRequest struct {
	SourceURL string `json:"url" validate:"required,url"`
}

// putArtifact implements PUT /artifacts/{kind}/{id}.
func (api *RestApi) putArtifact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	var req artifactUpdateRequest
	if err := decodeValidated(r.Body, schema.ArtifactUpdate, &req); err != nil {
		writeAppError(rw, apperr.New(apperr.BadRequest, err.Error()), false)
		return
	}

	appErr := api.Accessor.Update(r.Context(), kind, vars["id"], req.SourceURL, actorFor(r))
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, nil)
}

// deleteArtifact implements DELETE /artifacts/{kind}/{id}.
func (api *RestApi) deleteArtifact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	appErr := api.Accessor.Delete(r.Context(), kind, vars["id"], actorFor(r))
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, nil)
}

type artifactIngestRequest struct {
	SourceURL string `json:"url" validate:"required,url"`
}

// postArtifact implements POST /artifact/{kind}: register, either
// synchronously or deferred to the ingest manager depending on
// configuration.
func (api *RestApi) postArtifact(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	var req artifactIngestRequest
	if err := decodeValidated(r.Body, schema.ArtifactIngest, &req); err != nil {
		writeAppError(rw, apperr.New(apperr.BadRequest, err.Error()), false)
		return
	}
	registerReq := accessor.RegisterRequest{SourceURL: req.SourceURL, Actor: actorFor(r)}

	if api.Async {
		correlationID, submitted := api.Deferred.Submit(kind, registerReq)
		if !submitted {
			writeJSON(rw, http.StatusServiceUnavailable, ErrorResponse{Status: apperr.InternalError.String(), Error: "deferred queue is full"})
			return
		}
		writeJSON(rw, apperr.Deferred.HTTPStatus(true), map[string]string{"correlation_id": correlationID})
		return
	}

	result, appErr := api.Accessor.Register(r.Context(), kind, registerReq)
	if appErr != nil {
		writeAppError(rw, appErr, true)
		return
	}
	writeJSON(rw, http.StatusCreated, result.Artifact)
}

// reset implements DELETE /reset: wipes the catalog for local/dev use.
func (api *RestApi) reset(rw http.ResponseWriter, r *http.Request) {
	for _, kind := range []model.Kind{model.KindModel, model.KindDataset, model.KindCode} {
		results, err := api.Repo.Query(model.Query{Name: "*", Kinds: []model.Kind{kind}}, 0, api.HardCap)
		if err != nil {
			writeAppError(rw, apperr.New(apperr.InternalError, err.Error()), false)
			return
		}
		for _, artifact := range results {
			if _, err := api.Repo.Delete(artifact.ID, kind); err != nil {
				writeAppError(rw, apperr.New(apperr.InternalError, err.Error()), false)
				return
			}
		}
	}
	if err := api.Cache.Reset(r.Context()); err != nil {
		writeAppError(rw, apperr.New(apperr.InternalError, err.Error()), false)
		return
	}
	writeJSON(rw, http.StatusOK, nil)
}
