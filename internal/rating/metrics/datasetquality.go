// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"math"

	"github.com/go-resty/resty/v2"

	"github.com/artifact-registry/registry/internal/rating"
)

// datasetInfo is the subset of the Hugging Face dataset-info response
// this metric reasons about.
type datasetInfo struct {
	Likes     int    `json:"likes"`
	Downloads int    `json:"downloads"`
	License   string `json:"license"`
	CardData  struct {
		TaskCategories []string `json:"task_categories"`
	} `json:"cardData"`
}

// DatasetQuality scores a model's linked datasets by popularity,
// adoption, license and descriptive richness, averaged across every
// linked dataset.
type DatasetQuality struct {
	WeightValue float64
	HTTP        *resty.Client
}

func NewDatasetQuality(weight float64, http *resty.Client) *DatasetQuality {
	return &DatasetQuality{WeightValue: weight, HTTP: http}
}

func (d *DatasetQuality) Name() string    { return "dataset_quality" }
func (d *DatasetQuality) Weight() float64 { return d.WeightValue }

func (d *DatasetQuality) Score(ctx context.Context, in rating.Input) (float64, error) {
	if len(in.Datasets) == 0 {
		return 0.0, nil
	}

	var total float64
	var n int
	for _, ds := range in.Datasets {
		info, err := d.fetchDatasetInfo(ctx, ds.SourceURL)
		if err != nil {
			continue
		}
		total += scoreSingleDataset(info)
		n++
	}
	if n == 0 {
		return 0.0, nil
	}
	return total / float64(n), nil
}

func (d *DatasetQuality) fetchDatasetInfo(ctx context.Context, url string) (datasetInfo, error) {
	var info datasetInfo
	_, err := d.HTTP.R().SetContext(ctx).SetResult(&info).Get(url)
	return info, err
}

func scoreSingleDataset(info datasetInfo) float64 {
	likesScore := math.Log(float64(info.Likes)+1) / math.Log(5001)
	downloadsScore := math.Log(float64(info.Downloads)+1) / math.Log(1_000_001)

	licenseScore := 0.5
	switch {
	case info.License == "":
		licenseScore = 0.2
	case containsAny(info.License, "mit", "apache", "cc0", "cc-by"):
		licenseScore = 1.0
	case containsAny(info.License, "research"):
		licenseScore = 0.8
	}

	dimensionScore := math.Min(float64(len(info.CardData.TaskCategories))/10.0, 1.0)

	total := 0.3*likesScore + 0.3*downloadsScore + 0.3*licenseScore + 0.1*dimensionScore
	return math.Min(total, 1.0)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}
