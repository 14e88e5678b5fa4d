// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api implements the HTTP surface: the endpoint table for
// artifact CRUD, search, derived queries and the reset operation,
// wired through gorilla/mux and decorated with the response cache
// middleware.
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/api/schema"
	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/cache"
	"github.com/artifact-registry/registry/internal/ingest"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/query"
	"github.com/artifact-registry/registry/internal/repository"
	"github.com/artifact-registry/registry/pkg/log"
)

// validate runs the struct tags ("required", "url", "oneof", ...) that
// complement the coarser structural checks in the schema package. A
// single validator.Validate is safe for concurrent use and caches its
// struct-tag parsing, so it is built once at package init.
var validate = validator.New()

// RestApi wires the artifact accessor, derived query router, audit log
// and deferred ingest manager into HTTP handlers.
type RestApi struct {
	Accessor   *accessor.Accessor
	Repo       *repository.ArtifactRepository
	Query      *query.Router
	Audit      *audit.Log
	Cache      *cache.Cache
	Deferred   *ingest.Manager
	Async      bool
	PageSize   int
	HardCap    int
}

// MountRoutes registers every endpoint on r.
func (api *RestApi) MountRoutes(r *mux.Router) {
	r.StrictSlash(true)

	r.HandleFunc("/artifacts", api.postArtifacts).Methods(http.MethodPost)
	r.HandleFunc("/artifact/byName/{name}", api.postByName).Methods(http.MethodPost)
	r.HandleFunc("/artifact/byRegEx", api.postByRegex).Methods(http.MethodPost)

	r.Handle("/artifacts/{kind}/{id}", api.Cache.Middleware(cacheIDFromPath, http.HandlerFunc(api.getArtifact))).Methods(http.MethodGet)
	r.HandleFunc("/artifacts/{kind}/{id}", api.putArtifact).Methods(http.MethodPut)
	r.HandleFunc("/artifacts/{kind}/{id}", api.deleteArtifact).Methods(http.MethodDelete)

	r.HandleFunc("/artifact/{kind}", api.postArtifact).Methods(http.MethodPost)

	r.Handle("/artifact/{kind}/{id}/cost", api.Cache.Middleware(cacheIDFromPath, http.HandlerFunc(api.getCost))).Methods(http.MethodGet)
	r.Handle("/artifact/model/{id}/rate", api.Cache.Middleware(cacheIDFromModelPath, http.HandlerFunc(api.getRating))).Methods(http.MethodGet)
	r.Handle("/artifact/model/{id}/lineage", api.Cache.Middleware(cacheIDFromModelPath, http.HandlerFunc(api.getLineage))).Methods(http.MethodGet)
	r.Handle("/artifact/{kind}/{id}/audit", api.Cache.Middleware(cacheIDFromPath, http.HandlerFunc(api.getAudit))).Methods(http.MethodGet)

	r.HandleFunc("/reset", api.reset).Methods(http.MethodDelete)
}

// cacheIDFromPath extracts the artifact id from a {kind}/{id} route,
// used by the response cache middleware to scope invalidation.
func cacheIDFromPath(r *http.Request) (id, kind string, ok bool) {
	vars := mux.Vars(r)
	id, kind = vars["id"], vars["kind"]
	return id, kind, id != "" && kind != ""
}

// cacheIDFromModelPath extracts the artifact id from a /artifact/model/{id}/...
// route, whose kind is fixed to "model" by the route pattern itself rather
// than carried as a mux variable.
func cacheIDFromModelPath(r *http.Request) (id, kind string, ok bool) {
	id = mux.Vars(r)["id"]
	return id, string(model.KindModel), id != ""
}

// ErrorResponse is the JSON body returned on every non-2xx response.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(rw http.ResponseWriter, status int, body interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		log.Errorf("api: encode response: %v", err)
	}
}

func writeAppError(rw http.ResponseWriter, appErr *apperr.Error, created bool) {
	status := appErr.Status.HTTPStatus(created)
	log.Warnf("api: request failed: %v", appErr)
	writeJSON(rw, status, ErrorResponse{Status: appErr.Status.String(), Error: appErr.Msg})
}

func decode(r io.Reader, val interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

// decodeValidated checks the request body against the embedded schema
// for k before decoding it into val, so a structurally invalid body is
// rejected with a schema error rather than a field-by-field decode
// error.
func decodeValidated(r io.Reader, k schema.Kind, val interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := schema.Validate(k, bytes.NewReader(body)); err != nil {
		return err
	}
	if err := decode(bytes.NewReader(body), val); err != nil {
		return err
	}
	if k == schema.QueryList {
		return validate.Var(val, "dive")
	}
	return validate.Struct(val)
}

func actorFor(r *http.Request) string {
	if actor := r.Header.Get("X-Actor"); actor != "" {
		return actor
	}
	return "anonymous"
}

func kindFromVar(vars map[string]string) (model.Kind, bool) {
	kind := model.Kind(vars["kind"])
	return kind, kind.Valid()
}
