// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accessor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/cache"
	"github.com/artifact-registry/registry/internal/config"
	"github.com/artifact-registry/registry/internal/downloader"
	"github.com/artifact-registry/registry/internal/ingestname"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/objectstore"
	"github.com/artifact-registry/registry/internal/rating"
	"github.com/artifact-registry/registry/internal/repository"
)

var connectOnce sync.Once

// fakeDownloader lets each test control the download outcome without
// reaching any real origin.
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

func freshAccessor(t *testing.T, dl downloader.Downloader, netScore float64) (*Accessor, *repository.ArtifactRepository) {
	t.Helper()
	connectOnce.Do(func() {
		require.NoError(t, repository.Connect("sqlite3://:memory:"))
	})
	conn := repository.GetConnection()
	require.NoError(t, repository.MigrateUp(conn.DB.DB, "sqlite3"))
	repo := repository.GetArtifactRepository()
	wipeAll(t, repo)

	objStore, err := objectstore.New(config.ObjectStoreConfig{
		AccessKey: "test", SecretKey: "test", Bucket: "artifacts", Region: "us-east-1",
	}, time.Minute)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return &Accessor{
		Repo:       repo,
		Downloads:  downloader.NewRegistry(dl),
		Rater:      rating.NewAggregator([]rating.Scalar{fakeScalar{name: "fixed", score: netScore}}, nil, 1),
		Objects:    objStore,
		Audit:      audit.New(conn.DB, true),
		Cache:      cache.NewWithClient(redisClient, time.Minute),
		ScratchDir: t.TempDir(),
		Threshold:  0.5,
	}, repo
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

func TestRegisterRejectsAlreadyRegisteredSourceURL(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 10}, 1.0)
	url := "https://huggingface.co/bert-base-uncased"
	id := ingestname.ID(url)

	_, err := repo.Insert(&model.Artifact{ID: id, Kind: model.KindModel, Name: "bert-base-uncased", SourceURL: url}, "", nil)
	require.NoError(t, err)

	_, appErr := acc.Register(context.Background(), model.KindModel, RegisterRequest{SourceURL: url, Actor: "alice"})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "ALREADY_EXISTS")
}

func TestRegisterDownloadNotFoundIsBadRequest(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{err: downloader.ErrNotFound}, 1.0)

	_, appErr := acc.Register(context.Background(), model.KindModel, RegisterRequest{SourceURL: "https://huggingface.co/missing-model", Actor: "alice"})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "BAD_REQUEST")
}

func TestRegisterGenericDownloadFailureIsDisqualified(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{err: assertError{"network blip"}}, 1.0)

	_, appErr := acc.Register(context.Background(), model.KindModel, RegisterRequest{SourceURL: "https://huggingface.co/flaky-model", Actor: "alice"})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DISQUALIFIED")
}

func TestRegisterBelowThresholdIsDisqualifiedAndNotPersisted(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 10}, 0.1)

	url := "https://huggingface.co/underperforming-model"
	_, appErr := acc.Register(context.Background(), model.KindModel, RegisterRequest{SourceURL: url, Actor: "alice"})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DISQUALIFIED")

	got, err := repo.GetByNameAndKind("underperforming-model", model.KindModel)
	require.NoError(t, err)
	assert.Nil(t, got, "a disqualified register must leave no row behind")
}

func TestUpdateMissingArtifactIsDoesNotExist(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 10}, 1.0)

	appErr := acc.Update(context.Background(), model.KindModel, "missing-id", "https://huggingface.co/x", "alice")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DOES_NOT_EXIST")
}

func TestUpdateDownloadFailureIsDisqualified(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{err: assertError{"down"}}, 1.0)
	_, err := repo.Insert(&model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "u"}, "", nil)
	require.NoError(t, err)

	appErr := acc.Update(context.Background(), model.KindModel, "m1", "https://huggingface.co/bert-base-2", "alice")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DISQUALIFIED")
}

func TestDeleteMissingArtifactIsDoesNotExist(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 10}, 1.0)

	appErr := acc.Delete(context.Background(), model.KindModel, "missing-id", "alice")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DOES_NOT_EXIST")
}

func TestGetMissingArtifactIsDoesNotExist(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 10}, 1.0)

	_, appErr := acc.Get(context.Background(), model.KindModel, "missing-id", "alice")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DOES_NOT_EXIST")
}

func TestGetExistingArtifactPresignsAndAppendsDownloadAudit(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 10}, 1.0)
	_, err := repo.Insert(&model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "u"}, "", nil)
	require.NoError(t, err)

	artifact, appErr := acc.Get(context.Background(), model.KindModel, "m1", "bob")
	require.Nil(t, appErr)
	assert.NotEmpty(t, artifact.DownloadURL)

	entries, err := acc.Audit.GetByArtifact("m1", model.KindModel)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionDownload, entries[0].Action)
	assert.Equal(t, "bob", entries[0].Actor)
}

// assertError is a trivial error value distinguishable from the
// downloader package's sentinel errors, standing in for a transient
// network failure.
type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
