// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreLargeGoodCrossesHalfAtMagnitudePoint(t *testing.T) {
	coeff := expCoefficient(10)
	assert.InDelta(t, 0.5, scoreLargeGood(coeff, 10), 1e-9)
}

func TestScoreLargeGoodNegativeIsZero(t *testing.T) {
	assert.Equal(t, 0.0, scoreLargeGood(expCoefficient(10), -1))
}

func TestScoreLargeBadCrossesHalfAtMagnitudePoint(t *testing.T) {
	coeff := expCoefficient(10)
	assert.InDelta(t, 0.5, scoreLargeBad(coeff, 10), 1e-9)
}

func TestScoreLargeBadNegativeIsZero(t *testing.T) {
	assert.Equal(t, 0.0, scoreLargeBad(expCoefficient(10), -1))
}

func TestContainsFoldIsCaseInsensitive(t *testing.T) {
	assert.True(t, containsFold("Hello World", "WORLD"))
	assert.False(t, containsFold("Hello World", "xyz"))
}
