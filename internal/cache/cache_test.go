// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, time.Minute)
}

func TestCacheGetMissReturnsFalse(t *testing.T) {
	c := newTestCache(t)
	_, ok := c.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestCachePutThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t)
	key := Key("m1", "model", "fp1")
	require.NoError(t, c.Put(context.Background(), key, []byte("payload")))

	got, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
}

func TestInvalidateArtifactRemovesOnlyThatArtifactsKeys(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, Key("m1", "model", "a"), []byte("1")))
	require.NoError(t, c.Put(ctx, Key("m1", "model", "b"), []byte("2")))
	require.NoError(t, c.Put(ctx, Key("m2", "model", "c"), []byte("3")))

	require.NoError(t, c.InvalidateArtifact(ctx, "m1", "model"))

	_, ok := c.Get(ctx, Key("m1", "model", "a"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, Key("m1", "model", "b"))
	assert.False(t, ok)
	got, ok := c.Get(ctx, Key("m2", "model", "c"))
	require.True(t, ok)
	assert.Equal(t, []byte("3"), got)
}

func TestResetDropsEverything(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "a", []byte("1")))
	require.NoError(t, c.Put(ctx, "b", []byte("2")))

	require.NoError(t, c.Reset(ctx))

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestFingerprintIsStableAndDistinguishesBody(t *testing.T) {
	a := Fingerprint("GET", "/artifacts", "q=1", []byte("body"))
	b := Fingerprint("GET", "/artifacts", "q=1", []byte("body"))
	c := Fingerprint("GET", "/artifacts", "q=1", []byte("other"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "artifact:m1:model:fp", Key("m1", "model", "fp"))
}
