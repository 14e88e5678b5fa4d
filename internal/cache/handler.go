// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cache

import (
	"bytes"
	"io"
	"net/http"
)

// cachedResponseWriter buffers a handler's response so it can be
// stored verbatim and replayed on a later cache hit.
type cachedResponseWriter struct {
	w          http.ResponseWriter
	statusCode int
	buf        bytes.Buffer
}

func (crw *cachedResponseWriter) Header() http.Header { return crw.w.Header() }

func (crw *cachedResponseWriter) Write(b []byte) (int, error) { return crw.buf.Write(b) }

func (crw *cachedResponseWriter) WriteHeader(statusCode int) { crw.statusCode = statusCode }

// ArtifactIDFromRequest extracts the (id, kind) a request concerns, so
// the middleware can scope its fingerprint and later invalidation to
// the right artifact.
type ArtifactIDFromRequest func(r *http.Request) (id, kind string, ok bool)

// Middleware wraps next so that GET responses are served from cache
// when present, and populated into cache otherwise. Non-200 responses
// are never cached: the Put is simply skipped.
func (c *Cache) Middleware(idFromRequest ArtifactIDFromRequest, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(rw, r)
			return
		}

		id, kind, ok := idFromRequest(r)
		if !ok {
			next.ServeHTTP(rw, r)
			return
		}

		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
		}
		fp := Fingerprint(r.Method, r.URL.Path, r.URL.RawQuery, body)
		key := Key(id, kind, fp)

		if cached, hit := c.Get(r.Context(), key); hit {
			rw.Header().Set("Content-Type", "application/json")
			rw.Header().Set("X-Cache", "HIT")
			rw.WriteHeader(http.StatusOK)
			rw.Write(cached)
			return
		}

		crw := &cachedResponseWriter{w: rw, statusCode: http.StatusOK}
		next.ServeHTTP(crw, r)

		for k, v := range rw.Header() {
			crw.w.Header()[k] = v
		}
		crw.w.Header().Set("X-Cache", "MISS")
		crw.w.WriteHeader(crw.statusCode)
		crw.w.Write(crw.buf.Bytes())

		if crw.statusCode == http.StatusOK {
			if err := c.Put(r.Context(), key, crw.buf.Bytes()); err != nil {
				// best-effort: a failed cache write should not fail the request
				_ = err
			}
		}
	})
}
