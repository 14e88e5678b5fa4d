// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package accessor implements the artifact accessor: the
// transactional boundary coordinating the metadata store, object
// store, rating aggregator and audit log so register/update/delete
// hold cross-store consistency.
package accessor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/artifact-registry/registry/internal/apperr"
	"github.com/artifact-registry/registry/internal/audit"
	"github.com/artifact-registry/registry/internal/cache"
	"github.com/artifact-registry/registry/internal/downloader"
	"github.com/artifact-registry/registry/internal/ingestname"
	"github.com/artifact-registry/registry/internal/model"
	"github.com/artifact-registry/registry/internal/objectstore"
	"github.com/artifact-registry/registry/internal/rating"
	"github.com/artifact-registry/registry/internal/repository"
	"github.com/artifact-registry/registry/pkg/log"
)

// LinkExtractor mines linked dependency names (datasets, codebases,
// parent model) from a downloaded model's descriptive metadata. It is
// swappable so tests can supply a stub rather than parsing real
// README front matter.
type LinkExtractor interface {
	Extract(treePath string) (model.LinkedNames, error)
}

// Accessor is the C7 orchestration core.
type Accessor struct {
	Repo       *repository.ArtifactRepository
	Downloads  *downloader.Registry
	Rater      *rating.Aggregator
	Objects    *objectstore.Store
	Audit      *audit.Log
	Cache      *cache.Cache
	Links      LinkExtractor
	ScratchDir string
	Threshold  float64
}

// RegisterRequest is the inbound register payload.
type RegisterRequest struct {
	SourceURL string
	Actor     string
}

// RegisterResult carries the outcome of a register/update call.
type RegisterResult struct {
	Artifact model.Artifact
	Rating   *model.Rating
}

// Register runs the full synchronous ingest pipeline: download, rate,
// admit-or-reject, then commit metadata, blob and audit together.
func (a *Accessor) Register(ctx context.Context, kind model.Kind, req RegisterRequest) (*RegisterResult, *apperr.Error) {
	id := ingestname.ID(req.SourceURL)

	exists, err := a.Repo.Exists(id, kind)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if exists {
		return nil, apperr.New(apperr.AlreadyExists, "artifact already registered")
	}

	scratch, err := os.MkdirTemp(a.ScratchDir, "ingest-*")
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	defer os.RemoveAll(scratch)

	sizeMB, err := a.Downloads.Download(ctx, req.SourceURL, downloader.Kind(kind), scratch)
	if err != nil {
		switch {
		case errors.Is(err, downloader.ErrNotFound), errors.Is(err, downloader.ErrUnsupportedKind), errors.Is(err, downloader.ErrUnsupportedOrigin):
			return nil, apperr.New(apperr.BadRequest, err.Error())
		default:
			return nil, apperr.New(apperr.Disqualified, fmt.Sprintf("download failed: %v", err))
		}
	}

	name, nameErr := ingestname.Extract(req.SourceURL, ingestname.Kind(kind))
	if nameErr != nil {
		return nil, apperr.New(apperr.BadRequest, nameErr.Error())
	}

	artifact := model.Artifact{ID: id, Kind: kind, Name: name, SourceURL: req.SourceURL, SizeMB: sizeMB}

	var linked model.LinkedNames
	if kind == model.KindModel && a.Links != nil {
		linked, _ = a.Links.Extract(scratch)
	}

	ratingResult, ratingErr := a.Rater.Rate(ctx, id, rating.Input{
		TreePath: scratch,
		Artifact: artifact,
		Linked:   linked,
	})
	if ratingErr != nil {
		return nil, apperr.New(apperr.InternalError, ratingErr.Error())
	}

	if kind == model.KindModel && ratingResult.NetScore < a.Threshold {
		return nil, apperr.New(apperr.Disqualified, fmt.Sprintf("net score %.3f below threshold %.3f", ratingResult.NetScore, a.Threshold))
	}

	var readmeBody string
	if data, readErr := os.ReadFile(scratch + "/README.md"); readErr == nil {
		readmeBody = string(data)
	}

	inserted, err := a.Repo.Insert(&artifact, readmeBody, &linked)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if !inserted {
		return nil, apperr.New(apperr.AlreadyExists, "artifact already registered")
	}

	if kind == model.KindModel {
		if err := a.Repo.PutRating(ratingResult); err != nil {
			log.Errorf("accessor: store rating for %s: %v", id, err)
		}
	}

	var archivePayload []byte
	archivePayload, err = archiveTree(scratch)
	if err != nil {
		a.rollbackInsert(id, kind)
		return nil, apperr.New(apperr.Disqualified, fmt.Sprintf("archive failed: %v", err))
	}
	if err := a.Objects.Put(ctx, string(kind), id, archivePayload); err != nil {
		a.rollbackInsert(id, kind)
		return nil, apperr.New(apperr.Disqualified, fmt.Sprintf("blob upload failed: %v", err))
	}

	if err := a.Audit.Append(id, kind, name, req.Actor, model.ActionCreate, time.Now()); err != nil {
		log.Errorf("accessor: audit append failed for %s: %v", id, err)
	}

	if err := a.Cache.InvalidateArtifact(ctx, id, string(kind)); err != nil {
		log.Warnf("accessor: cache invalidate failed for %s: %v", id, err)
	}

	return &RegisterResult{Artifact: artifact, Rating: ratingResult}, nil
}

func (a *Accessor) rollbackInsert(id string, kind model.Kind) {
	if _, err := a.Repo.Delete(id, kind); err != nil {
		log.Errorf("accessor: rollback delete failed for %s: %v", id, err)
	}
}

// Update re-downloads, re-uploads and rewrites the mutable fields of
// an existing artifact.
func (a *Accessor) Update(ctx context.Context, kind model.Kind, id string, sourceURL, actor string) *apperr.Error {
	existing, err := a.Repo.GetByID(id, kind)
	if err != nil {
		return apperr.New(apperr.InternalError, err.Error())
	}
	if existing == nil {
		return apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	scratch, err := os.MkdirTemp(a.ScratchDir, "update-*")
	if err != nil {
		return apperr.New(apperr.InternalError, err.Error())
	}
	defer os.RemoveAll(scratch)

	sizeMB, err := a.Downloads.Download(ctx, sourceURL, downloader.Kind(kind), scratch)
	if err != nil {
		return apperr.New(apperr.Disqualified, fmt.Sprintf("download failed: %v", err))
	}

	var linked model.LinkedNames
	if kind == model.KindModel && a.Links != nil {
		linked, _ = a.Links.Extract(scratch)
	}

	var readmeBody string
	if data, readErr := os.ReadFile(scratch + "/README.md"); readErr == nil {
		readmeBody = string(data)
	}

	existing.SourceURL = sourceURL
	if err := a.Repo.Update(existing, sizeMB, readmeBody, &linked); err != nil {
		return apperr.New(apperr.InternalError, err.Error())
	}

	payload, err := archiveTree(scratch)
	if err != nil {
		return apperr.New(apperr.Disqualified, fmt.Sprintf("archive failed: %v", err))
	}
	if err := a.Objects.Put(ctx, string(kind), id, payload); err != nil {
		return apperr.New(apperr.Disqualified, fmt.Sprintf("blob upload failed: %v", err))
	}

	if err := a.Audit.Append(id, kind, existing.Name, actor, model.ActionUpdate, time.Now()); err != nil {
		log.Errorf("accessor: audit append failed for %s: %v", id, err)
	}
	if err := a.Cache.InvalidateArtifact(ctx, id, string(kind)); err != nil {
		log.Warnf("accessor: cache invalidate failed for %s: %v", id, err)
	}
	return nil
}

// Delete tears down an artifact's row, blob, edges, readme, rating and
// appends the terminal audit entry.
func (a *Accessor) Delete(ctx context.Context, kind model.Kind, id, actor string) *apperr.Error {
	existing, err := a.Repo.GetByID(id, kind)
	if err != nil {
		return apperr.New(apperr.InternalError, err.Error())
	}
	if existing == nil {
		return apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	deleted, err := a.Repo.Delete(id, kind)
	if err != nil {
		return apperr.New(apperr.InternalError, err.Error())
	}
	if !deleted {
		return apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	if err := a.Objects.Delete(ctx, string(kind), id); err != nil {
		log.Errorf("accessor: blob delete failed for %s: %v", id, err)
	}

	// The action taxonomy has no dedicated DELETE action; UPDATE is the
	// closest fit for "this artifact's row changed".
	if err := a.Audit.Append(id, kind, existing.Name, actor, model.ActionUpdate, time.Now()); err != nil {
		log.Errorf("accessor: audit append failed for %s: %v", id, err)
	}
	if err := a.Cache.InvalidateArtifact(ctx, id, string(kind)); err != nil {
		log.Warnf("accessor: cache invalidate failed for %s: %v", id, err)
	}
	return nil
}

// Get returns an artifact with a freshly minted download URL, and
// appends a DOWNLOAD audit entry.
func (a *Accessor) Get(ctx context.Context, kind model.Kind, id, actor string) (*model.Artifact, *apperr.Error) {
	artifact, err := a.Repo.GetByID(id, kind)
	if err != nil {
		return nil, apperr.New(apperr.InternalError, err.Error())
	}
	if artifact == nil {
		return nil, apperr.New(apperr.DoesNotExist, "no such artifact")
	}

	url, err := a.Objects.PresignedDownloadURL(ctx, string(kind), id)
	if err != nil {
		log.Warnf("accessor: presign failed for %s: %v", id, err)
	} else {
		artifact.DownloadURL = url
	}

	if err := a.Audit.Append(id, kind, artifact.Name, actor, model.ActionDownload, time.Now()); err != nil {
		log.Errorf("accessor: audit append failed for %s: %v", id, err)
	}
	return artifact, nil
}

