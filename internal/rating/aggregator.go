// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package rating

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/pkg/log"
)

// Aggregator fans a fixed metric set out over an artifact tree and
// combines their scores into a net score, bounding concurrency so a
// burst of ingest jobs cannot spawn unbounded goroutines per artifact.
type Aggregator struct {
	scalars     []Scalar
	structured  []Structured
	concurrency int64
}

// NewAggregator builds an Aggregator from the registered metric sets.
func NewAggregator(scalars []Scalar, structured []Structured, concurrency int64) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{scalars: scalars, structured: structured, concurrency: concurrency}
}

// Rate runs every metric concurrently (bounded by the configured
// concurrency) and combines their results. A metric that errors is
// recorded as Failed with a zero contribution and excluded from the
// net-score denominator, rather than aborting the whole rating — one
// broken metric should not block ingest admission for every other
// metric's signal.
func (a *Aggregator) Rate(ctx context.Context, modelID string, in Input) (*model.Rating, error) {
	rateStart := time.Now()
	defer func() { ratingDuration.Observe(time.Since(rateStart).Seconds()) }()

	sem := semaphore.NewWeighted(a.concurrency)
	var mu sync.Mutex
	results := make(map[string]model.MetricResult, len(a.scalars)+len(a.structured))
	var sizeScore model.SizeScore

	var wg sync.WaitGroup
	for _, m := range a.scalars {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Failed: true}
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			start := time.Now()
			score, err := m.Score(ctx, in)
			latency := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warnf("rating: metric %s failed for %s: %v", m.Name(), modelID, err)
				metricDuration.WithLabelValues(m.Name(), "error").Observe(latency.Seconds())
				metricFailures.WithLabelValues(m.Name(), "error").Inc()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Latency: latency, Failed: true}
				return
			}
			if score < 0 || score > 1 {
				log.Errorf("rating: metric %s returned out-of-range score %v for %s, failing as MetricOutOfRange", m.Name(), score, modelID)
				metricDuration.WithLabelValues(m.Name(), "out_of_range").Observe(latency.Seconds())
				metricFailures.WithLabelValues(m.Name(), "out_of_range").Inc()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Latency: latency, Failed: true}
				return
			}
			metricDuration.WithLabelValues(m.Name(), "ok").Observe(latency.Seconds())
			results[m.Name()] = model.MetricResult{
				Name:     m.Name(),
				RawScore: score,
				Latency:  latency,
				Weighted: score * m.Weight(),
			}
		}()
	}

	for _, m := range a.structured {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Failed: true}
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			start := time.Now()
			vec, err := m.ScoreVector(ctx, in)
			latency := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warnf("rating: metric %s failed for %s: %v", m.Name(), modelID, err)
				metricDuration.WithLabelValues(m.Name(), "error").Observe(latency.Seconds())
				metricFailures.WithLabelValues(m.Name(), "error").Inc()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Latency: latency, Failed: true}
				return
			}
			mean := vec.Mean()
			if mean < 0 || mean > 1 {
				log.Errorf("rating: metric %s returned out-of-range score %v for %s, failing as MetricOutOfRange", m.Name(), mean, modelID)
				metricDuration.WithLabelValues(m.Name(), "out_of_range").Observe(latency.Seconds())
				metricFailures.WithLabelValues(m.Name(), "out_of_range").Inc()
				results[m.Name()] = model.MetricResult{Name: m.Name(), Latency: latency, Failed: true}
				return
			}
			metricDuration.WithLabelValues(m.Name(), "ok").Observe(latency.Seconds())
			sizeScore = vec
			results[m.Name()] = model.MetricResult{
				Name:     m.Name(),
				RawScore: mean,
				Latency:  latency,
				Weighted: mean * m.Weight(),
			}
		}()
	}

	wg.Wait()

	var weightedSum, weightSum float64
	for name, res := range results {
		if res.Failed {
			continue
		}
		weightedSum += res.Weighted
		weightSum += weightFor(a, name)
	}

	net := 0.0
	if weightSum > 0 {
		net = weightedSum / weightSum
	}

	return &model.Rating{
		ModelID:  modelID,
		NetScore: clamp01(net),
		Metrics:  results,
		RawSize:  sizeScore,
		RatedAt:  time.Now(),
	}, nil
}

func weightFor(a *Aggregator, name string) float64 {
	for _, m := range a.scalars {
		if m.Name() == name {
			return m.Weight()
		}
	}
	for _, m := range a.structured {
		if m.Name() == name {
			return m.Weight()
		}
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
