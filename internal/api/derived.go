// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/artifact-registry/registry/internal/apperr"
)

// getCost implements GET /artifact/{kind}/{id}/cost?dependency=bool.
func (api *RestApi) getCost(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	includeDeps, _ := strconv.ParseBool(r.URL.Query().Get("dependency"))

	report, appErr := api.Query.Cost(vars["id"], kind, includeDeps)
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, report)
}

// getRating implements GET /artifact/model/{id}/rate.
func (api *RestApi) getRating(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rating, appErr := api.Query.Rating(api.Audit, id, actorFor(r))
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, rating)
}

// getLineage implements GET /artifact/model/{id}/lineage.
func (api *RestApi) getLineage(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	graph, appErr := api.Query.Lineage(id)
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, graph)
}

// getAudit implements GET /artifact/{kind}/{id}/audit.
func (api *RestApi) getAudit(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := kindFromVar(vars)
	if !ok {
		writeAppError(rw, apperr.New(apperr.BadRequest, "unknown artifact kind"), false)
		return
	}

	entries, appErr := api.Query.Audit(api.Audit, vars["id"], kind, actorFor(r))
	if appErr != nil {
		writeAppError(rw, appErr, false)
		return
	}
	writeJSON(rw, http.StatusOK, entries)
}
