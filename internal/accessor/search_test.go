// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/model"
)

func TestGetByNameReturnsOneArtifactPerMatchingKind(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)
	_, err := repo.Insert(&model.Artifact{ID: "m1", Kind: model.KindModel, Name: "shared-name", SourceURL: "u1"}, "", nil)
	require.NoError(t, err)
	_, err = repo.Insert(&model.Artifact{ID: "d1", Kind: model.KindDataset, Name: "shared-name", SourceURL: "u2"}, "", nil)
	require.NoError(t, err)

	found, appErr := acc.GetByName("shared-name")
	require.Nil(t, appErr)
	assert.Len(t, found, 2)
}

func TestGetByNameNoMatchIsDoesNotExist(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)

	_, appErr := acc.GetByName("nothing-registered")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DOES_NOT_EXIST")
}

func TestGetByRegexMatchesNameAndDeduplicates(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)
	_, err := repo.Insert(&model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base-uncased", SourceURL: "u1"}, "readme mentions bert-base-uncased twice", nil)
	require.NoError(t, err)

	found, appErr := acc.GetByRegex("^bert-.*")
	require.Nil(t, appErr)
	require.Len(t, found, 1)
	assert.Equal(t, "m1", found[0].ID)
}

func TestGetByRegexNoMatchIsDoesNotExist(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)

	_, appErr := acc.GetByRegex("^nothing-will-match-this$")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "DOES_NOT_EXIST")
}

func TestQueryRejectsPageSizeAboveHardCap(t *testing.T) {
	acc, _ := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)

	_, appErr := acc.Query(model.Query{}, 0, 100, 10)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Error(), "TOO_MANY_ARTIFACTS")
}

func TestQueryListsMatchingArtifacts(t *testing.T) {
	acc, repo := freshAccessor(t, fakeDownloader{sizeMB: 1}, 1.0)
	_, err := repo.Insert(&model.Artifact{ID: "m1", Kind: model.KindModel, Name: "alpha", SourceURL: "u1"}, "", nil)
	require.NoError(t, err)
	_, err = repo.Insert(&model.Artifact{ID: "m2", Kind: model.KindModel, Name: "beta", SourceURL: "u2"}, "", nil)
	require.NoError(t, err)

	results, appErr := acc.Query(model.Query{Kinds: []model.Kind{model.KindModel}}, 0, 10, 10)
	require.Nil(t, appErr)
	assert.Len(t, results, 2)
}
