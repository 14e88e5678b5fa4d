// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingestname derives a human-readable artifact name and a
// stable content-addressed id from a source URL, the same mapping the
// registry used to only go one way (url -> id) originally performed
// via name_extraction.py's model/dataset/codebase splitters.
package ingestname

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Kind mirrors model.Kind; kept local so this package has no
// dependency on the catalog schema.
type Kind string

const (
	KindModel   Kind = "model"
	KindDataset Kind = "dataset"
	KindCode    Kind = "code"
)

// ErrInvalidURL is returned when a source URL does not match the shape
// expected for its artifact kind.
var ErrInvalidURL = errors.New("ingestname: url does not match expected origin for this artifact kind")

// ID derives the deterministic content-addressed id for a source URL:
// id = sha256(source_url). Two distinct URLs that happen to describe
// the same artifact still get distinct ids, same as the upstream
// project's hash-of-url scheme, just with a stronger digest.
func ID(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// Extract derives a human-readable name for an artifact from its
// source URL and kind.
func Extract(sourceURL string, kind Kind) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(sourceURL, "https://"), "http://")
	parts := strings.Split(trimmed, "/")

	switch kind {
	case KindDataset:
		return datasetName(parts)
	case KindCode:
		return codebaseName(parts)
	case KindModel:
		return modelName(parts)
	default:
		return "", fmt.Errorf("ingestname: unknown kind %q", kind)
	}
}

func datasetName(parts []string) (string, error) {
	if len(parts) < 4 {
		return "", ErrInvalidURL
	}
	if parts[0] != "huggingface.co" {
		return "", ErrInvalidURL
	}
	if parts[1] != "datasets" {
		return "", fmt.Errorf("ingestname: dataset url must include /datasets/ path: %w", ErrInvalidURL)
	}
	return parts[3], nil
}

func modelName(parts []string) (string, error) {
	if len(parts) < 2 {
		return "", ErrInvalidURL
	}
	if parts[0] != "huggingface.co" {
		return "", ErrInvalidURL
	}
	if len(parts) < 3 {
		return parts[1], nil
	}
	return parts[2], nil
}

func codebaseName(parts []string) (string, error) {
	if len(parts) < 3 {
		return "", ErrInvalidURL
	}
	if parts[0] != "github.com" {
		return "", ErrInvalidURL
	}
	name := fmt.Sprintf("%s-%s", parts[1], parts[2])
	return strings.TrimSuffix(name, ".git"), nil
}
