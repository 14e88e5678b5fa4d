// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
)

// HuggingFace downloads model and dataset artifacts hosted on
// huggingface.co by fetching each file in the repository tree
// listing, the REST equivalent of huggingface_hub's snapshot_download.
type HuggingFace struct {
	HTTP *resty.Client
}

func NewHuggingFace(http *resty.Client) *HuggingFace {
	return &HuggingFace{HTTP: http}
}

func (h *HuggingFace) Supports(url string) bool {
	return strings.HasPrefix(url, "http://huggingface.co") || strings.HasPrefix(url, "https://huggingface.co")
}

type hfTreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

func (h *HuggingFace) Download(ctx context.Context, url string, kind Kind, destDir string) (float64, error) {
	repoID, repoType, err := h.repoIDFromURL(url, kind)
	if err != nil {
		return 0, err
	}

	apiPrefix := "models"
	if repoType == "dataset" {
		apiPrefix = "datasets"
	}

	var tree []hfTreeEntry
	resp, err := h.HTTP.R().SetContext(ctx).SetResult(&tree).
		Get(fmt.Sprintf("https://huggingface.co/api/%s/%s/tree/main", apiPrefix, repoID))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, ErrNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("huggingface: tree listing status %d", resp.StatusCode())
	}

	var totalBytes int64
	for _, entry := range tree {
		if entry.Type != "file" {
			continue
		}
		dest := filepath.Join(destDir, entry.Path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return 0, err
		}

		fileURL := fmt.Sprintf("https://huggingface.co/%s/%s/resolve/main/%s", apiPrefix, repoID, entry.Path)
		fileResp, err := h.HTTP.R().SetContext(ctx).SetOutput(dest).Get(fileURL)
		if err != nil {
			return 0, fmt.Errorf("huggingface: fetch %s: %w", entry.Path, err)
		}
		if fileResp.StatusCode() != http.StatusOK {
			return 0, fmt.Errorf("huggingface: fetch %s status %d", entry.Path, fileResp.StatusCode())
		}
		totalBytes += entry.Size
	}

	return float64(totalBytes) / 1e6, nil
}

// repoIDFromURL mirrors hf_downloader.py's path-splitting: a model URL
// is "https://huggingface.co/{owner}/{name}", a dataset URL is
// "https://huggingface.co/datasets/{owner}/{name}".
func (h *HuggingFace) repoIDFromURL(url string, kind Kind) (repoID, repoType string, err error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://"), "/")

	switch kind {
	case KindModel:
		if len(parts) < 3 {
			return "", "", fmt.Errorf("huggingface: invalid model url %q", url)
		}
		return fmt.Sprintf("%s/%s", parts[1], parts[2]), "model", nil
	case KindDataset:
		if len(parts) < 4 || parts[1] != "datasets" {
			return "", "", fmt.Errorf("huggingface: invalid dataset url %q", url)
		}
		return fmt.Sprintf("%s/%s", parts[2], parts[3]), "dataset", nil
	default:
		return "", "", ErrUnsupportedKind
	}
}
