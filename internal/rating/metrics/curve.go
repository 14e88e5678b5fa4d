// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics implements the concrete scoring metrics the
// aggregator fans out over: license compatibility, bus factor,
// ramp-up time, dataset quality, code quality, reviewedness, tree
// score and the structured size vector.
package metrics

import (
	"math"
	"strings"
)

// expCoefficient returns the decay constant that makes
// scoreLargeGood/scoreLargeBad cross 0.5 at halfMagnitudePoint.
func expCoefficient(halfMagnitudePoint float64) float64 {
	return math.Log2(0.5) / halfMagnitudePoint
}

// scoreLargeGood approaches 1 as score grows; use it where a bigger
// raw count is a better signal (contributor count, arxiv references).
func scoreLargeGood(coefficient, score float64) float64 {
	if score < 0 {
		return 0
	}
	return 1 - math.Pow(2, score*coefficient)
}

// scoreLargeBad approaches 0 as score grows; use it where a bigger raw
// count is a worse signal (files per directory, directory depth).
func scoreLargeBad(coefficient, score float64) float64 {
	if score < 0 {
		return 0
	}
	return math.Pow(2, score*coefficient)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
