// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifact-registry/registry/internal/accessor"
	"github.com/artifact-registry/registry/internal/model"
)

func TestSubmitFailsFastWhenQueueFull(t *testing.T) {
	m := New(nil, 1, 1, "")

	_, ok := m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "u1"})
	assert.True(t, ok)
	_, ok = m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "u2"})
	assert.False(t, ok, "a full bounded queue should reject rather than block")
}

func TestSubmitAssignsDistinctCorrelationIDs(t *testing.T) {
	m := New(nil, 2, 1, "")

	first, ok := m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "u1"})
	require.True(t, ok)
	second, ok := m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "u2"})
	require.True(t, ok)

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}

func TestDispatchPreservesSubmitOrder(t *testing.T) {
	m := New(nil, 3, 1, "")
	m.dispatchDone = make(chan struct{})

	_, ok := m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "first"})
	require.True(t, ok)
	_, ok = m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "second"})
	require.True(t, ok)
	_, ok = m.Submit(model.KindModel, accessor.RegisterRequest{SourceURL: "third"})
	require.True(t, ok)
	close(m.queue)

	ctx := context.Background()
	go m.dispatch(ctx)

	var got []string
	for j := range m.work {
		got = append(got, j.Request.SourceURL)
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)

	select {
	case <-m.dispatchDone:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not signal done after the queue drained")
	}
}

func TestDispatchStopsOnContextCancel(t *testing.T) {
	m := New(nil, 1, 1, "")
	m.dispatchDone = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go m.dispatch(ctx)
	cancel()

	select {
	case <-m.dispatchDone:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not stop after context cancellation")
	}
}

func TestNewClampsWorkerCountToAtLeastOne(t *testing.T) {
	m := New(nil, 1, 0, "")
	assert.Equal(t, 1, m.workers)
}
