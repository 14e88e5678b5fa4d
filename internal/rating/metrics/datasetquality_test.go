// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/rating"
)

func TestDatasetQualityNoLinkedDatasetsScoresZero(t *testing.T) {
	d := NewDatasetQuality(1, resty.New())
	score, err := d.Score(context.Background(), rating.Input{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDatasetQualityScoresPermissiveWellDocumentedDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"likes":500,"downloads":50000,"license":"mit","cardData":{"task_categories":["text-classification","summarization"]}}`))
	}))
	defer srv.Close()

	d := NewDatasetQuality(1, resty.New())
	score, err := d.Score(context.Background(), rating.Input{
		Datasets: []model.Artifact{{SourceURL: srv.URL}},
	})
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
}

func TestDatasetQualitySkipsUnreachableDatasets(t *testing.T) {
	client := resty.New().SetTimeout(500 * time.Millisecond)
	d := NewDatasetQuality(1, client)
	score, err := d.Score(context.Background(), rating.Input{
		Datasets: []model.Artifact{{SourceURL: "http://127.0.0.1:1/unreachable"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score, "a connection failure contributes no samples, and the average of zero samples is 0")
}

func TestNewDatasetQualityNameAndWeight(t *testing.T) {
	d := NewDatasetQuality(2, resty.New())
	assert.Equal(t, "dataset_quality", d.Name())
	assert.Equal(t, 2.0, d.Weight())
}
