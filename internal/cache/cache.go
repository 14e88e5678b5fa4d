// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache implements the response cache: GET responses for an
// artifact are memoized under a key fingerprinting the request, with
// prefix-scan invalidation on any write to that artifact. The store is
// Redis so that invalidation and TTL survive a process restart and are
// shared across replicas, configured via cache.{host,port,password,
// ttl_seconds}.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artifact-registry/registry/pkg/log"
)

// Cache is a Redis-backed response cache keyed per artifact.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a Cache from connection details and a default entry TTL.
func New(host string, port int, password string, ttl time.Duration) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", host, port),
			Password: password,
		}),
		ttl: ttl,
	}
}

// NewWithClient wraps an already-constructed client, used by tests to
// point the cache at a miniredis instance.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Fingerprint derives a cache key from a request's identifying
// attributes: the method, path, query string sorted by parameter name,
// and body. Two logically identical requests fingerprint identically
// regardless of query parameter ordering.
func Fingerprint(method, path, rawQuery string, body []byte) string {
	if parsed, err := url.ParseQuery(rawQuery); err == nil {
		rawQuery = parsed.Encode()
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n", method, path, rawQuery)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Key builds the "artifact:{id}:{kind}:{fingerprint}" cache key, so
// that a prefix scan on "artifact:{id}:{kind}:" can invalidate every
// cached response for one artifact in one pass.
func Key(artifactID, kind, fingerprint string) string {
	return fmt.Sprintf("artifact:%s:%s:%s", artifactID, kind, fingerprint)
}

func keyPrefix(artifactID, kind string) string {
	return fmt.Sprintf("artifact:%s:%s:*", artifactID, kind)
}

// Get returns the cached payload for key, or (nil, false) on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Warnf("cache: get %s: %v", key, err)
		return nil, false
	}
	return val, true
}

// Put stores payload under key with the cache's configured TTL.
func (c *Cache) Put(ctx context.Context, key string, payload []byte) error {
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// InvalidateArtifact deletes every cached response keyed under the
// given artifact, called after any insert/update/delete/rate
// mutation so stale GET responses never outlive their source data.
func (c *Cache) InvalidateArtifact(ctx context.Context, artifactID, kind string) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix(artifactID, kind), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan %s/%s: %w", artifactID, kind, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s/%s: %w", artifactID, kind, err)
	}
	log.Debugf("cache: invalidated %d entries for %s/%s", len(keys), kind, artifactID)
	return nil
}

// Reset drops every cached entry, used by the registry-wide /reset
// endpoint.
func (c *Cache) Reset(ctx context.Context) error {
	return c.rdb.FlushDB(ctx).Err()
}
