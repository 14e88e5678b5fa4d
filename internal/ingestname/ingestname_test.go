// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingestname

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDIsDeterministicAndDistinct(t *testing.T) {
	a := ID("https://huggingface.co/bert-base-uncased")
	b := ID("https://huggingface.co/bert-base-uncased")
	c := ID("https://huggingface.co/bert-large-uncased")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64, "sha256 hex digest is 64 characters")
}

func TestExtractModelNameWithoutOrg(t *testing.T) {
	name, err := Extract("https://huggingface.co/bert-base-uncased", KindModel)
	assert.NoError(t, err)
	assert.Equal(t, "bert-base-uncased", name)
}

func TestExtractModelNameWithOrg(t *testing.T) {
	name, err := Extract("https://huggingface.co/google/bert-base-uncased", KindModel)
	assert.NoError(t, err)
	assert.Equal(t, "bert-base-uncased", name)
}

func TestExtractDatasetName(t *testing.T) {
	name, err := Extract("https://huggingface.co/datasets/rajpurkar/squad", KindDataset)
	assert.NoError(t, err)
	assert.Equal(t, "squad", name)
}

func TestExtractDatasetRejectsWrongOrigin(t *testing.T) {
	_, err := Extract("https://example.com/datasets/rajpurkar/squad", KindDataset)
	assert.True(t, errors.Is(err, ErrInvalidURL))
}

func TestExtractCodebaseName(t *testing.T) {
	name, err := Extract("https://github.com/huggingface/transformers", KindCode)
	assert.NoError(t, err)
	assert.Equal(t, "huggingface-transformers", name)
}

func TestExtractCodebaseNameTrimsDotGit(t *testing.T) {
	name, err := Extract("https://github.com/huggingface/transformers.git", KindCode)
	assert.NoError(t, err)
	assert.Equal(t, "huggingface-transformers", name)
}

func TestExtractUnknownKind(t *testing.T) {
	_, err := Extract("https://huggingface.co/bert-base-uncased", Kind("bogus"))
	assert.Error(t, err)
}
