// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/artifact-registry/registry/internal/rating"
)

var arxivPattern = regexp.MustCompile(`(?i)(https?://arxiv\.org/(abs|pdf)/\d{4}\.\d{4,5}(\.pdf)?)|(arxiv:\d{4}\.\d{4,5})`)

var docNameSets = [][]string{
	{"src"}, {"scripts"}, {"configs", "config"}, {"tests", "test"},
	{"docs", "documentation"}, {"examples", "example"}, {"demo", "demos"},
	{"notebooks", "notebook"},
}

// RampUpTime scores how quickly a newcomer could get the artifact
// running: a shallow, well-labeled tree with citations and install
// instructions scores high; a deep, sprawling tree with neither scores
// low.
type RampUpTime struct {
	BreadthHalfScorePoint float64
	DepthHalfScorePoint   float64
	ArxivHalfScorePoint   float64
	WeightValue           float64
}

func NewRampUpTime(breadth, depth, arxiv, weight float64) *RampUpTime {
	return &RampUpTime{BreadthHalfScorePoint: breadth, DepthHalfScorePoint: depth, ArxivHalfScorePoint: arxiv, WeightValue: weight}
}

func (r *RampUpTime) Name() string    { return "ramp_up_time" }
func (r *RampUpTime) Weight() float64 { return r.WeightValue }

func (r *RampUpTime) Score(_ context.Context, in rating.Input) (float64, error) {
	scores := []float64{
		r.directorySizeScore(in.TreePath),
		r.arxivLinkScore(in.TreePath),
		r.structureScore(in.TreePath),
		installInstructionScore(in.TreePath),
	}

	var sum float64
	for _, s := range scores {
		sum += s / float64(len(scores))
	}
	return sum, nil
}

func (r *RampUpTime) directorySizeScore(root string) float64 {
	var dirCount, fileCount int
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == root {
			return nil
		}
		if d.IsDir() {
			dirCount++
		} else {
			fileCount++
		}
		return nil
	})
	if dirCount == 0 {
		return 0.5
	}
	filesPerDir := float64(fileCount) / float64(dirCount)
	breadth := scoreLargeBad(expCoefficient(r.BreadthHalfScorePoint), filesPerDir)
	depth := scoreLargeBad(expCoefficient(r.DepthHalfScorePoint), float64(directoryDepth(root)))
	return (breadth + depth) / 2
}

func directoryDepth(root string) int {
	maxDepth := 0
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if depth > maxDepth {
			maxDepth = depth
		}
		return nil
	})
	return maxDepth
}

func (r *RampUpTime) arxivLinkScore(root string) float64 {
	matches := 0
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if arxivPattern.Match(data) {
			matches++
		}
		return nil
	})
	return scoreLargeGood(expCoefficient(r.ArxivHalfScorePoint), float64(matches))
}

func (r *RampUpTime) structureScore(root string) float64 {
	present := 0
	for _, names := range docNameSets {
		if hasAnyDir(root, names) {
			present++
		}
	}
	return float64(present) / float64(len(docNameSets))
}

func hasAnyDir(root string, names []string) bool {
	for _, n := range names {
		info, err := os.Stat(filepath.Join(root, n))
		if err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

var textExtensions = map[string]bool{
	".md": true, ".txt": true, ".rst": true, ".cfg": true, ".ini": true, ".yaml": true, ".yml": true,
}

func installInstructionScore(root string) float64 {
	specific := []string{"pip install", "apt install", "conda install"}
	hasGeneric := false

	found := false
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || found {
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		text := strings.ToLower(string(data))
		for _, s := range specific {
			if strings.Contains(text, s) {
				found = true
				return nil
			}
		}
		if strings.Contains(text, "install") {
			hasGeneric = true
		}
		return nil
	})

	if found {
		return 1.0
	}
	if hasGeneric {
		return 0.5
	}
	return 0.0
}
