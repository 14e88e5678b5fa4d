// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-resty/resty/v2"

	"github.com/artifact-registry/registry/internal/rating"
)

// BusFactor scores how concentrated an artifact's authorship is: a
// single-contributor project scores near 0, a project with many
// distinct contributors approaches 1.
type BusFactor struct {
	HalfScorePoint float64
	WeightValue    float64
	HTTP           *resty.Client
}

func NewBusFactor(halfScorePoint, weight float64, http *resty.Client) *BusFactor {
	return &BusFactor{HalfScorePoint: halfScorePoint, WeightValue: weight, HTTP: http}
}

func (b *BusFactor) Name() string    { return "bus_factor" }
func (b *BusFactor) Weight() float64 { return b.WeightValue }

func (b *BusFactor) Score(ctx context.Context, in rating.Input) (float64, error) {
	localCount, err := countLocalContributors(in.TreePath)
	if err != nil {
		localCount = 0
	}

	githubCount := 0
	for _, code := range in.Codebases {
		n, err := b.countGitHubContributors(ctx, code.SourceURL)
		if err == nil && n > githubCount {
			githubCount = n
		}
	}

	count := localCount
	if githubCount > count {
		count = githubCount
	}

	coef := expCoefficient(b.HalfScorePoint)
	return scoreLargeGood(coef, float64(count)), nil
}

// countLocalContributors counts distinct author identities in the
// downloaded tree's git history, the local equivalent of the `git
// shortlog -sn` pass over a freshly cloned repository.
func countLocalContributors(path string) (int, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return 0, err
	}
	ref, err := repo.Head()
	if err != nil {
		return 0, err
	}
	commitIter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return 0, err
	}
	defer commitIter.Close()

	authors := make(map[string]bool)
	err = commitIter.ForEach(func(c *object.Commit) error {
		authors[c.Author.Email] = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(authors), nil
}

// countGitHubContributors queries the contributors endpoint for a
// linked codebase's GitHub URL, paging until the API returns an empty
// page.
func (b *BusFactor) countGitHubContributors(ctx context.Context, repoURL string) (int, error) {
	owner, name, ok := parseGitHubURL(repoURL)
	if !ok {
		return 0, fmt.Errorf("busfactor: not a github url: %s", repoURL)
	}

	total := 0
	page := 1
	for {
		var contributors []struct {
			Login string `json:"login"`
		}
		resp, err := b.HTTP.R().
			SetContext(ctx).
			SetHeader("Accept", "application/vnd.github+json").
			SetQueryParam("page", fmt.Sprintf("%d", page)).
			SetQueryParam("per_page", "100").
			SetResult(&contributors).
			Get(fmt.Sprintf("https://api.github.com/repos/%s/%s/contributors", owner, name))
		if err != nil {
			return total, err
		}
		if resp.StatusCode() != 200 {
			return total, fmt.Errorf("busfactor: github api status %d", resp.StatusCode())
		}
		if len(contributors) == 0 {
			break
		}
		total += len(contributors)
		page++
	}
	return total, nil
}
