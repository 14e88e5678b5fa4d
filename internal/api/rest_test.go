// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/cache"
	"github.com/artifact-registry/registry/internal/config"
	"github.com/artifact-registry/registry/internal/downloader"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/objectstore"
	"github.com/artifact-registry/registry/internal/query"
	"github.com/artifact-registry/registry/internal/rating"
	"github.com/artifact-registry/registry/internal/repository"
)

var connectOnce sync.Once

type fakeDownloader struct {
	sizeMB float64
	err    error
}

func (f fakeDownloader) Supports(string) bool { return true }
func (f fakeDownloader) Download(_ context.Context, _ string, _ downloader.Kind, _ string) (float64, error) {
	return f.sizeMB, f.err
}

type fakeScalar struct {
	name  string
	score float64
}

func (f fakeScalar) Name() string    { return f.name }
func (f fakeScalar) Weight() float64 { return 1 }
func (f fakeScalar) Score(context.Context, rating.Input) (float64, error) { return f.score, nil }

func freshAPI(t *testing.T, netScore float64) (*RestApi, *mux.Router) {
	t.Helper()
	connectOnce.Do(func() {
		require.NoError(t, repository.Connect("sqlite3://:memory:"))
	})
	conn := repository.GetConnection()
	require.NoError(t, repository.MigrateUp(conn.DB.DB, "sqlite3"))
	repo := repository.GetArtifactRepository()
	wipeAll(t, repo)
	_, err := conn.DB.Exec("DELETE FROM audit_entry")
	require.NoError(t, err)

	objStore, err := objectstore.New(config.ObjectStoreConfig{
		AccessKey: "test", SecretKey: "test", Bucket: "artifacts", Region: "us-east-1",
	}, time.Minute)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	respCache := cache.NewWithClient(redisClient, time.Minute)

	acc := &accessor.Accessor{
		Repo:       repo,
		Downloads:  downloader.NewRegistry(fakeDownloader{sizeMB: 5}),
		Rater:      rating.NewAggregator([]rating.Scalar{fakeScalar{name: "fixed", score: netScore}}, nil, 1),
		Objects:    objStore,
		Audit:      audit.New(conn.DB, true),
		Cache:      respCache,
		ScratchDir: t.TempDir(),
		Threshold:  0.5,
	}

	restApi := &RestApi{
		Accessor: acc,
		Repo:     repo,
		Query:    query.New(repo),
		Audit:    acc.Audit,
		Cache:    respCache,
		PageSize: 20,
		HardCap:  100,
	}

	r := mux.NewRouter()
	restApi.MountRoutes(r)
	return restApi, r
}

func wipeAll(t *testing.T, repo *repository.ArtifactRepository) {
	t.Helper()
	for _, kind := range []model.Kind{model.KindModel, model.KindDataset, model.KindCode} {
		rows, err := repo.Query(model.Query{Name: "*", Kinds: []model.Kind{kind}}, 0, 10000)
		require.NoError(t, err)
		for _, a := range rows {
			_, err := repo.Delete(a.ID, kind)
			require.NoError(t, err)
		}
	}
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPostArtifactRegistersAndReturns201(t *testing.T) {
	_, r := freshAPI(t, 1.0)

	rec := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var got model.Artifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "bert-base-uncased", got.Name)
}

func TestPostArtifactBelowThresholdIsFailedDependency(t *testing.T) {
	_, r := freshAPI(t, 0.0)

	rec := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/low-quality-model"})
	assert.Equal(t, http.StatusFailedDependency, rec.Code)
}

func TestPostArtifactUnknownKindIsBadRequest(t *testing.T) {
	_, r := freshAPI(t, 1.0)

	rec := doJSON(t, r, http.MethodPost, "/artifact/bogus", map[string]string{"url": "https://huggingface.co/x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostArtifactRejectsBodyMissingURL(t *testing.T) {
	_, r := freshAPI(t, 1.0)

	rec := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetArtifactNotFoundIs404(t *testing.T) {
	_, r := freshAPI(t, 1.0)

	rec := doJSON(t, r, http.MethodGet, "/artifacts/model/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetArtifactServesFromCacheOnSecondRequest(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	first := doJSON(t, r, http.MethodGet, "/artifacts/model/"+created.ID, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := doJSON(t, r, http.MethodGet, "/artifacts/model/"+created.ID, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
}

func TestGetRatingServesFromCacheAndInvalidatesOnUpdate(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	first := doJSON(t, r, http.MethodGet, "/artifact/model/"+created.ID+"/rate", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := doJSON(t, r, http.MethodGet, "/artifact/model/"+created.ID+"/rate", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	update := doJSON(t, r, http.MethodPut, "/artifacts/model/"+created.ID, map[string]string{"url": "https://huggingface.co/bert-base-uncased-v2"})
	require.Equal(t, http.StatusOK, update.Code)

	third := doJSON(t, r, http.MethodGet, "/artifact/model/"+created.ID+"/rate", nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"), "an update must invalidate the cached rating, not serve a stale body")
}

func TestPutArtifactUpdatesExisting(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	rec := doJSON(t, r, http.MethodPut, "/artifacts/model/"+created.ID, map[string]string{"url": "https://huggingface.co/bert-base-uncased-v2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteArtifactThenGetIs404(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	del := doJSON(t, r, http.MethodDelete, "/artifacts/model/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, del.Code)

	get := doJSON(t, r, http.MethodGet, "/artifacts/model/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, get.Code)
}

func TestPostByNameFindsRegisteredArtifact(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)

	rec := doJSON(t, r, http.MethodPost, "/artifact/byName/bert-base-uncased", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var found []model.Artifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 1)
}

func TestPostByRegexRejectsMissingField(t *testing.T) {
	_, r := freshAPI(t, 1.0)

	rec := doJSON(t, r, http.MethodPost, "/artifact/byRegEx", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostArtifactsListsWithDefaultWildcard(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)

	rec := doJSON(t, r, http.MethodPost, "/artifacts", []model.Query{})
	require.Equal(t, http.StatusOK, rec.Code)

	var found []model.Artifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 1)
}

func TestGetCostForStandaloneDataset(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/dataset", map[string]string{"url": "https://huggingface.co/datasets/org/squad"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	rec := doJSON(t, r, http.MethodGet, "/artifact/dataset/"+created.ID+"/cost", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report model.CostReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, created.SizeMB, report.Standalone)
}

func TestGetAuditAfterRegisterHasCreateEntry(t *testing.T) {
	_, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)
	var created model.Artifact
	require.NoError(t, json.Unmarshal(reg.Body.Bytes(), &created))

	rec := doJSON(t, r, http.MethodGet, "/artifact/model/"+created.ID+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCreate, entries[0].Action)
}

func TestResetClearsCatalogAndCache(t *testing.T) {
	restApi, r := freshAPI(t, 1.0)
	reg := doJSON(t, r, http.MethodPost, "/artifact/model", map[string]string{"url": "https://huggingface.co/bert-base-uncased"})
	require.Equal(t, http.StatusCreated, reg.Code)

	rec := doJSON(t, r, http.MethodDelete, "/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	remaining, err := restApi.Repo.Query(model.Query{Name: "*"}, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
