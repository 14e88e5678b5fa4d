// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"

	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/rating"
)

// Size scores deployability onto four target profiles: the closer an
// artifact's total size is to a profile's max, the lower that
// profile's score, reaching 0 once the artifact no longer fits.
type Size struct {
	RPiMaxMB    float64
	JetsonMaxMB float64
	DesktopMaxMB float64
	AWSMaxMB    float64
	WeightValue float64
}

func NewSize(rpi, jetson, desktop, aws, weight float64) *Size {
	return &Size{RPiMaxMB: rpi, JetsonMaxMB: jetson, DesktopMaxMB: desktop, AWSMaxMB: aws, WeightValue: weight}
}

func (s *Size) Name() string    { return "size_score" }
func (s *Size) Weight() float64 { return s.WeightValue }

func (s *Size) ScoreVector(_ context.Context, in rating.Input) (model.SizeScore, error) {
	size := in.Artifact.SizeMB
	for _, d := range in.Datasets {
		size += d.SizeMB
	}
	for _, c := range in.Codebases {
		size += c.SizeMB
	}

	return model.SizeScore{
		RaspberryPi: scoreWithMax(s.RPiMaxMB, size),
		JetsonNano:  scoreWithMax(s.JetsonMaxMB, size),
		DesktopPC:   scoreWithMax(s.DesktopMaxMB, size),
		AWSServer:   scoreWithMax(s.AWSMaxMB, size),
	}, nil
}

func scoreWithMax(maxSize, size float64) float64 {
	adjusted := maxSize - size
	if adjusted < 0 {
		return 0
	}
	return adjusted / maxSize
}
