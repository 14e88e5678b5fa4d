// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/model"
)

func TestArtifactInsertGetByID(t *testing.T) {
	repo := freshRepo(t)

	a := &model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "https://huggingface.co/bert-base", SizeMB: 420}
	inserted, err := repo.Insert(a, "# bert-base\n", nil)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.GetByID("m1", model.KindModel)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bert-base", got.Name)
	assert.Equal(t, 420.0, got.SizeMB)

	exists, err := repo.Exists("m1", model.KindModel)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestArtifactInsertDuplicateIsNotError(t *testing.T) {
	repo := freshRepo(t)

	a := &model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "https://huggingface.co/bert-base"}
	inserted, err := repo.Insert(a, "", nil)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(a, "", nil)
	require.NoError(t, err)
	assert.False(t, inserted, "re-inserting the same id must not error or duplicate")
}

func TestArtifactGetByIDMissingReturnsNilNotError(t *testing.T) {
	repo := freshRepo(t)

	got, err := repo.GetByID("does-not-exist", model.KindModel)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArtifactUpdate(t *testing.T) {
	repo := freshRepo(t)

	a := &model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "https://huggingface.co/bert-base", SizeMB: 100}
	_, err := repo.Insert(a, "old readme", nil)
	require.NoError(t, err)

	a.SourceURL = "https://huggingface.co/bert-base-v2"
	err = repo.Update(a, 256, "new readme", nil)
	require.NoError(t, err)

	got, err := repo.GetByID("m1", model.KindModel)
	require.NoError(t, err)
	assert.Equal(t, "https://huggingface.co/bert-base-v2", got.SourceURL)
	assert.Equal(t, 256.0, got.SizeMB)

	readme, err := repo.GetReadme("m1", model.KindModel)
	require.NoError(t, err)
	assert.Equal(t, "new readme", readme)
}

func TestArtifactDelete(t *testing.T) {
	repo := freshRepo(t)

	a := &model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "https://huggingface.co/bert-base"}
	_, err := repo.Insert(a, "readme", nil)
	require.NoError(t, err)

	deleted, err := repo.Delete("m1", model.KindModel)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID("m1", model.KindModel)
	require.NoError(t, err)
	assert.Nil(t, got)

	deletedAgain, err := repo.Delete("m1", model.KindModel)
	require.NoError(t, err)
	assert.False(t, deletedAgain)
}

func TestArtifactDeleteNullsOutgoingEdges(t *testing.T) {
	repo := freshRepo(t)

	dataset := &model.Artifact{ID: "d1", Kind: model.KindDataset, Name: "squad", SourceURL: "https://huggingface.co/datasets/squad"}
	_, err := repo.Insert(dataset, "", nil)
	require.NoError(t, err)

	m := &model.Artifact{ID: "m1", Kind: model.KindModel, Name: "bert-base", SourceURL: "https://huggingface.co/bert-base"}
	_, err = repo.Insert(m, "", &model.LinkedNames{DatasetNames: []string{"squad"}})
	require.NoError(t, err)

	_, err = repo.Delete("d1", model.KindDataset)
	require.NoError(t, err)

	edges, err := repo.GetParentEdges("m1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Nil(t, edges[0].SrcID, "deleting the source artifact should null src_id, not drop the edge")
	assert.Equal(t, "squad", edges[0].SrcName)
}
