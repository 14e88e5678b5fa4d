// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rating

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once at package init so that repeated
// Aggregator construction (one per rating run, or one per test case)
// never attempts a duplicate collector registration.
var (
	metricDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artifact_registry",
			Subsystem: "rating",
			Name:      "metric_duration_seconds",
			Help:      "Duration of one metric's Score/ScoreVector call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"metric", "result"},
	)

	metricFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artifact_registry",
			Subsystem: "rating",
			Name:      "metric_failures_total",
			Help:      "Total metric evaluations that failed or returned an out-of-range score.",
		},
		[]string{"metric", "reason"},
	)

	ratingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artifact_registry",
			Subsystem: "rating",
			Name:      "rate_duration_seconds",
			Help:      "Duration of one full Aggregator.Rate call across all metrics.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
