// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/artifact-registry/registry/internal/rating"
)

const mergeHistoryQuery = `
{
  repository(owner: "%s", name: "%s") {
    defaultBranchRef {
      target {
        ... on Commit {
          history(first: 100%s) {
            edges {
              node {
                additions
                deletions
                associatedPullRequests(first: 1) { totalCount }
              }
            }
            pageInfo { hasNextPage endCursor }
          }
        }
      }
    }
  }
}`

type graphQLResponse struct {
	Data struct {
		Repository struct {
			DefaultBranchRef struct {
				Target struct {
					History struct {
						Edges []struct {
							Node struct {
								Additions               int `json:"additions"`
								Deletions               int `json:"deletions"`
								AssociatedPullRequests struct {
									TotalCount int `json:"totalCount"`
								} `json:"associatedPullRequests"`
							} `json:"node"`
						} `json:"edges"`
						PageInfo struct {
							HasNextPage bool   `json:"hasNextPage"`
							EndCursor   string `json:"endCursor"`
						} `json:"pageInfo"`
					} `json:"history"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	} `json:"data"`
}

// Reviewedness scores the fraction of an attached codebase's commit
// history that landed through a pull request rather than a direct
// push to the default branch, averaged across every linked codebase.
type Reviewedness struct {
	WeightValue float64
	HTTP        *resty.Client
	GitHubToken string
}

func NewReviewedness(weight float64, http *resty.Client, token string) *Reviewedness {
	return &Reviewedness{WeightValue: weight, HTTP: http, GitHubToken: token}
}

func (r *Reviewedness) Name() string    { return "reviewedness" }
func (r *Reviewedness) Weight() float64 { return r.WeightValue }

func (r *Reviewedness) Score(ctx context.Context, in rating.Input) (float64, error) {
	if len(in.Codebases) == 0 {
		return 0.0, nil
	}

	var total float64
	var n int
	for _, cb := range in.Codebases {
		score, err := r.evaluateRepo(ctx, cb.SourceURL)
		if err != nil {
			continue
		}
		total += score
		n++
	}
	if n == 0 {
		return 0.0, nil
	}
	return total / float64(n), nil
}

func (r *Reviewedness) evaluateRepo(ctx context.Context, repoURL string) (float64, error) {
	owner, name, ok := parseGitHubURL(repoURL)
	if !ok {
		return 0, fmt.Errorf("reviewedness: not a github url: %s", repoURL)
	}

	var prAdditions, prDeletions, commitAdditions, commitDeletions int
	cursor := ""
	for {
		pageClause := ""
		if cursor != "" {
			pageClause = fmt.Sprintf(`, after: "%s"`, cursor)
		}
		query := fmt.Sprintf(mergeHistoryQuery, owner, name, pageClause)

		var resp graphQLResponse
		res, err := r.HTTP.R().SetContext(ctx).
			SetHeader("Authorization", "bearer "+r.GitHubToken).
			SetBody(map[string]string{"query": query}).
			SetResult(&resp).
			Post("https://api.github.com/graphql")
		if err != nil {
			return 0, err
		}
		if res.StatusCode() != 200 {
			return 0, fmt.Errorf("reviewedness: github graphql status %d", res.StatusCode())
		}

		history := resp.Data.Repository.DefaultBranchRef.Target.History
		for _, edge := range history.Edges {
			n := edge.Node
			if n.AssociatedPullRequests.TotalCount > 0 {
				prAdditions += n.Additions
				prDeletions += n.Deletions
			} else {
				commitAdditions += n.Additions
				commitDeletions += n.Deletions
			}
		}
		if !history.PageInfo.HasNextPage {
			break
		}
		cursor = history.PageInfo.EndCursor
	}

	total := prAdditions + prDeletions + commitAdditions + commitDeletions
	if total == 0 {
		return 0, nil
	}
	return float64(prAdditions+prDeletions) / float64(total), nil
}
