// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"

	"github.com/artifact-registry/registry/internal/rating"
)

// TreeScore rewards a model whose ancestors (the models it was
// fine-tuned or quantized from) were themselves well rated: the
// average net score across the lineage, or 0 if none of the ancestors
// have been rated yet.
type TreeScore struct {
	WeightValue float64
}

func NewTreeScore(weight float64) *TreeScore { return &TreeScore{WeightValue: weight} }

func (t *TreeScore) Name() string    { return "tree_score" }
func (t *TreeScore) Weight() float64 { return t.WeightValue }

func (t *TreeScore) Score(_ context.Context, in rating.Input) (float64, error) {
	if len(in.AncestorNetScores) == 0 {
		return 0.0, nil
	}
	var sum float64
	for _, score := range in.AncestorNetScores {
		sum += score
	}
	return sum / float64(len(in.AncestorNetScores)), nil
}
