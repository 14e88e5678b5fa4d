// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest implements the deferred ingest manager: a bounded
// submission queue, a single dispatcher, and a fixed-size worker pool
// that runs the full synchronous accessor register pipeline out of
// band from the request that submitted it.
package ingest

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/pkg/log"
)

// job is one deferred register request. CorrelationID ties a Submit
// call to the worker log lines that eventually process it, since the
// two happen on different goroutines at arbitrary delay.
type job struct {
	Kind          model.Kind
	Request       accessor.RegisterRequest
	CorrelationID string
}

// Manager owns the submission queue, dispatcher and worker pool.
// Submit order is preserved by the queue channel; actual ingest
// completion order is not guaranteed, since workers run concurrently.
type Manager struct {
	accessor *accessor.Accessor

	queue chan job // bounded submission queue; Submit fails fast when full
	work  chan job // unbuffered hand-off to whichever worker is free

	workers int

	dispatchDone chan struct{}
	workersWG    sync.WaitGroup

	scheduler gocron.Scheduler
	scratch   string
}

// New builds a Manager with the given queue capacity and worker count.
// scratchDir is swept periodically by the maintenance job to remove
// abandoned ingest directories left behind by a crash mid-request.
func New(acc *accessor.Accessor, queueCapacity, workers int, scratchDir string) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		accessor: acc,
		queue:    make(chan job, queueCapacity),
		work:     make(chan job),
		workers:  workers,
		scratch:  scratchDir,
	}
}

// Start spins up the dispatcher, the worker pool, and a gocron
// scheduler running periodic maintenance (stale scratch-directory
// sweep), one scheduler owned per long-running subsystem.
func (m *Manager) Start(ctx context.Context) error {
	m.dispatchDone = make(chan struct{})
	go m.dispatch(ctx)

	m.workersWG.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(ctx)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	m.scheduler = scheduler
	if m.scratch != "" {
		if _, err := m.scheduler.NewJob(
			gocron.DurationJob(1*time.Hour),
			gocron.NewTask(m.sweepScratch),
		); err != nil {
			return err
		}
	}
	m.scheduler.Start()

	log.Infof("ingest: started with %d workers, queue capacity %d", m.workers, cap(m.queue))
	return nil
}

// Submit enqueues a deferred register request. It returns the
// correlation id assigned to the job and false (backpressure to the
// caller, answered with a 503 at the API layer) if the queue is
// already full.
func (m *Manager) Submit(kind model.Kind, req accessor.RegisterRequest) (string, bool) {
	correlationID := uuid.NewString()
	select {
	case m.queue <- job{Kind: kind, Request: req, CorrelationID: correlationID}:
		return correlationID, true
	default:
		return "", false
	}
}

// dispatch drains the submission queue and hands each item to the
// worker pool, one at a time. It is the single point of ordering:
// items leave the queue in the order they were submitted, even though
// the workers that pick them up off the unbuffered work channel run
// concurrently.
func (m *Manager) dispatch(ctx context.Context) {
	defer close(m.dispatchDone)
	defer close(m.work)
	for {
		select {
		case j, ok := <-m.queue:
			if !ok {
				return
			}
			select {
			case m.work <- j:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.workersWG.Done()
	for j := range m.work {
		m.process(ctx, j)
	}
}

func (m *Manager) process(ctx context.Context, j job) {
	start := time.Now()
	result, apperr := m.accessor.Register(ctx, j.Kind, j.Request)
	if apperr != nil {
		log.Warnf("ingest[%s]: deferred register of %s failed: %s", j.CorrelationID, j.Request.SourceURL, apperr.Error())
		return
	}
	log.Infof("ingest[%s]: deferred register of %s (%s) admitted in %s", j.CorrelationID, result.Artifact.ID, j.Kind, time.Since(start))
}

// Shutdown cancels the dispatcher cooperatively and joins the worker
// pool to completion: in-flight jobs already handed to a worker finish,
// but nothing new is accepted. The queue itself is not persisted across
// restarts; a crash drops whatever was still queued.
func (m *Manager) Shutdown(ctx context.Context) {
	close(m.queue)
	select {
	case <-m.dispatchDone:
	case <-ctx.Done():
	}
	m.workersWG.Wait()
	if m.scheduler != nil {
		_ = m.scheduler.Shutdown()
	}
	log.Info("ingest: shutdown complete")
}

// sweepScratch removes ingest scratch directories older than one hour,
// the trace left behind when a process crashes mid-download before its
// deferred os.RemoveAll runs.
func (m *Manager) sweepScratch() {
	entries, err := os.ReadDir(m.scratch)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-1 * time.Hour)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if !strings.HasPrefix(entry.Name(), "ingest-") && !strings.HasPrefix(entry.Name(), "update-") {
			continue
		}
		path := m.scratch + "/" + entry.Name()
		if err := os.RemoveAll(path); err != nil {
			log.Warnf("ingest: scratch sweep could not remove %s: %v", path, err)
		}
	}
}
