// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package downloader implements the per-origin download adapters that
// materialize an artifact's source URL into a local working tree and
// report its on-disk size in megabytes.
package downloader

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the upstream origin has no such
// repository or revision.
var ErrNotFound = errors.New("downloader: artifact not found at source")

// ErrUnsupportedKind is returned when an origin cannot serve the
// requested artifact kind (e.g. asking GitHub for a dataset).
var ErrUnsupportedKind = errors.New("downloader: origin does not support this artifact kind")

// ErrUnsupportedOrigin is returned when no registered downloader
// claims the given source URL.
var ErrUnsupportedOrigin = errors.New("downloader: no downloader registered for this source url")

// Kind mirrors model.Kind without importing the model package, keeping
// this package importable standalone by the metrics and CLI tooling
// that only needs to describe what to download, not the full catalog
// schema.
type Kind string

const (
	KindModel   Kind = "model"
	KindDataset Kind = "dataset"
	KindCode    Kind = "code"
)

// Downloader materializes one artifact origin (Hugging Face, GitHub,
// ...) into a local directory.
type Downloader interface {
	// Supports reports whether this downloader can handle the given
	// source URL.
	Supports(url string) bool

	// Download fetches the artifact at url into destDir, returning its
	// total on-disk size in megabytes.
	Download(ctx context.Context, url string, kind Kind, destDir string) (sizeMB float64, err error)
}

// Registry dispatches a source URL to the first downloader that
// claims it.
type Registry struct {
	downloaders []Downloader
}

// NewRegistry builds a Registry from an ordered list of downloaders;
// the first one whose Supports returns true wins.
func NewRegistry(downloaders ...Downloader) *Registry {
	return &Registry{downloaders: downloaders}
}

// Download resolves url to a downloader and delegates to it.
func (r *Registry) Download(ctx context.Context, url string, kind Kind, destDir string) (float64, error) {
	for _, d := range r.downloaders {
		if d.Supports(url) {
			size, err := d.Download(ctx, url, kind, destDir)
			if err != nil {
				return 0, fmt.Errorf("downloader: %w", err)
			}
			return size, nil
		}
	}
	return 0, ErrUnsupportedOrigin
}
