// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// GitHub downloads code artifacts by shallow-cloning the repository,
// matching gh_downloader.py's depth=1 clone strategy.
type GitHub struct{}

func NewGitHub() *GitHub { return &GitHub{} }

func (g *GitHub) Supports(url string) bool {
	return strings.HasPrefix(url, "http://github.com") || strings.HasPrefix(url, "https://github.com")
}

func (g *GitHub) Download(ctx context.Context, url string, kind Kind, destDir string) (float64, error) {
	if kind != KindCode {
		return 0, ErrUnsupportedKind
	}

	cloneURL := strings.TrimSuffix(url, ".git") + ".git"

	_, err := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:   cloneURL,
		Depth: 1,
	})
	if err != nil {
		if errors.Is(err, transport.ErrRepositoryNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("github: clone %s: %w", url, err)
	}

	var totalBytes int64
	err = filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		totalBytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}

	return float64(totalBytes) / 1e6, nil
}
