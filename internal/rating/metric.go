// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rating implements the parallel rating aggregator: every
// registered Metric runs concurrently over a downloaded artifact tree,
// and their scores combine into one weighted net score.
package rating

import (
	"context"

	"github.com/artifact-registry/registry/internal/model"
)

// Input is everything a Metric needs to score one model artifact: its
// locally materialized working tree, its catalog row, and the
// resolved dependency names an earlier stage already looked up.
type Input struct {
	TreePath string
	Artifact model.Artifact
	Linked   model.LinkedNames

	// Datasets and Codebases are the resolved artifact rows for the
	// model's linked dependencies, when they are already registered;
	// metrics that reason about attached codebases (reviewedness) or
	// re-derive size from a dependency walk use these instead of
	// re-querying the catalog themselves.
	Datasets  []model.Artifact
	Codebases []model.Artifact

	// AncestorNetScores is the net score of every ancestor model
	// already rated, keyed by model id, used by the tree-score metric.
	AncestorNetScores map[string]float64
}

// Scalar is a Metric that produces a single normalized [0,1] score.
type Scalar interface {
	Name() string
	Weight() float64
	Score(ctx context.Context, in Input) (float64, error)
}

// Structured is a Metric whose score is a vector rather than a scalar;
// only the size metric implements this in the initial metric set, but
// the aggregator folds its mean into the net score like any Scalar.
type Structured interface {
	Name() string
	Weight() float64
	ScoreVector(ctx context.Context, in Input) (model.SizeScore, error)
}
