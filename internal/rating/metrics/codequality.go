// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/artifact-registry/registry/internal/rating"
)

// CodeQuality approximates a static-analysis quality score without
// assuming any particular source language or toolchain is installed
// on the rating host: it looks at test coverage ratio, CI presence
// and average file size as structural proxies for the lint-score
// normalization the registry's upstream project used internally.
type CodeQuality struct {
	WeightValue float64
}

func NewCodeQuality(weight float64) *CodeQuality { return &CodeQuality{WeightValue: weight} }

func (c *CodeQuality) Name() string    { return "code_quality" }
func (c *CodeQuality) Weight() float64 { return c.WeightValue }

func (c *CodeQuality) Score(_ context.Context, in rating.Input) (float64, error) {
	if _, err := os.Stat(in.TreePath); err != nil {
		return 0, err
	}

	var sourceFiles, testFiles int
	var totalLines int64
	_ = filepath.WalkDir(in.TreePath, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if !isSourceFile(name) {
			return nil
		}
		sourceFiles++
		if looksLikeTest(name) {
			testFiles++
		}
		if info, statErr := d.Info(); statErr == nil {
			totalLines += info.Size() / 40 // rough bytes-per-line estimate
		}
		return nil
	})

	if sourceFiles == 0 {
		return 0, nil
	}

	testRatio := float64(testFiles) / float64(sourceFiles)
	if testRatio > 1 {
		testRatio = 1
	}

	ciScore := 0.0
	if hasCI(in.TreePath) {
		ciScore = 1.0
	}

	avgLines := float64(totalLines) / float64(sourceFiles)
	sizeScore := 1.0
	if avgLines > 400 {
		sizeScore = 400 / avgLines
	}

	return 0.5*testRatio + 0.25*ciScore + 0.25*sizeScore, nil
}

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".c": true, ".cc": true, ".cpp": true, ".rs": true, ".rb": true,
}

func isSourceFile(name string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(name))]
}

func looksLikeTest(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "_test.") || strings.Contains(lower, "test_") || strings.Contains(lower, ".test.")
}

func hasCI(root string) bool {
	candidates := []string{
		filepath.Join(root, ".github", "workflows"),
		filepath.Join(root, ".gitlab-ci.yml"),
		filepath.Join(root, ".circleci"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true
		}
	}
	return false
}
