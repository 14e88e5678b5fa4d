// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/artifact-registry/registry/internal/config"
	"github.com/artifact-registry/registry/pkg/log"
)

// Store is the object-store adapter backing archived artifact
// payloads. A kind/id pair maps deterministically onto one object key
// so re-ingest and delete never need a side index.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	prefix   string
	ttl      time.Duration
}

// New builds a Store from the resolved object-store configuration.
// When cfg.URL is set it is used as a custom endpoint (for S3-compatible
// backends in development); otherwise the SDK resolves the endpoint
// from the configured region.
func New(cfg config.ObjectStoreConfig, downloadTTL time.Duration) (*Store, error) {
	ctx := context.Background()

	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.URL != "" {
			o.BaseEndpoint = aws.String(cfg.URL)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		ttl:      downloadTTL,
	}, nil
}

func (s *Store) key(kind, id string) string {
	return fmt.Sprintf("%s%s/%s.tar.gz", s.prefix, kind, id)
}

// Put uploads the already-archived payload under the key derived from
// kind and id, overwriting any existing object of the same id.
func (s *Store) Put(ctx context.Context, kind, id string, payload []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(kind, id)),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s/%s: %w", kind, id, err)
	}
	log.Debugf("objectstore: stored %s/%s (%d bytes)", kind, id, len(payload))
	return nil
}

// Exists reports whether an object for the given kind/id is present.
func (s *Store) Exists(ctx context.Context, kind, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(kind, id)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("objectstore: head %s/%s: %w", kind, id, err)
	}
	return true, nil
}

// Delete removes the object for the given kind/id. A missing object is
// not an error.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(kind, id)),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// PresignedDownloadURL returns a time-limited URL a client can use to
// fetch the archived payload directly from the object store, sparing
// the registry process from proxying large artifact downloads.
func (s *Store) PresignedDownloadURL(ctx context.Context, kind, id string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(kind, id)),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %s/%s: %w", kind, id, err)
	}
	return req.URL, nil
}
