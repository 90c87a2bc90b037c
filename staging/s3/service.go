//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package s3 provides an S3-compatible staging backend. It supports AWS S3,
// MinIO, DigitalOcean Spaces, Cloudflare R2, and other S3-compatible object
// storage services.
//
// Staged paths are either s3://{bucket}/{key} URLs or bare keys. The manifest
// is uploaded as {prefix}/MANIFEST-{id}.json and the retrieval token is its
// s3:// URL.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/staging"
)

// defaultContentType is the fallback MIME type for staged files.
const defaultContentType = "application/octet-stream"

var _ staging.Backend = (*Service)(nil)

// Service is an S3-compatible implementation of the staging backend.
type Service struct {
	staging.Recorder

	client Client
	bucket string
	logger log.Logger
}

// NewService creates a new S3 staging backend writing into bucket.
func NewService(ctx context.Context, bucket string, opts ...Option) (*Service, error) {
	if bucket == "" {
		return nil, ErrEmptyBucket
	}
	o := &options{
		bucket: bucket,
		logger: log.Base,
	}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		c, err := newS3Client(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		client = c
	}

	return &Service{
		client: client,
		bucket: bucket,
		logger: o.logger,
	}, nil
}

// StageArtifact uploads localPath under the key derived from stagedPath.
func (s *Service) StageArtifact(ctx context.Context, localPath, stagedPath string) error {
	entry, err := staging.Describe(localPath, stagedPath)
	if err != nil {
		return err
	}
	key, err := s.objectKey(stagedPath)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if err := s.client.PutObject(ctx, key, f, entry.Size, contentType(localPath)); err != nil {
		return fmt.Errorf("failed to upload artifact %s: %w", entry.Name, err)
	}
	s.logger.Debugf("uploaded %s to s3://%s/%s", localPath, s.bucket, key)

	s.Record(entry)
	return nil
}

// CommitManifest uploads the manifest under stagingLocation.
func (s *Service) CommitManifest(ctx context.Context, stagingLocation string) (string, error) {
	if stagingLocation == "" {
		return "", staging.ErrEmptyLocation
	}
	m := s.Seal()
	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	key, err := s.objectKey(staging.Join(stagingLocation, m.FileName()))
	if err != nil {
		return "", err
	}
	if err := s.client.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)), staging.ManifestContentType); err != nil {
		return "", fmt.Errorf("failed to upload manifest: %w", err)
	}
	s.Reset()

	token := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Infof("committed manifest %s with %d artifacts", token, len(m.Artifacts))
	return token, nil
}

// Fetch downloads the object named by the s3://bucket/key URL from to the
// local file to. Any bucket the credentials can read is accepted.
func (s *Service) Fetch(ctx context.Context, from, to string) error {
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrNotS3URL, from)
	}
	key := strings.TrimLeft(u.Path, "/")
	if key == "" {
		return fmt.Errorf("%w: %s", ErrNotS3URL, from)
	}

	body, err := s.client.GetObject(ctx, u.Host, key)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", from, err)
	}
	defer body.Close()
	n, err := fsutil.WriteFrom(to, body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", from, err)
	}
	s.logger.Debugf("downloaded %s to %s (%d bytes)", from, to, n)
	return nil
}

// objectKey maps a staged path onto a key in the configured bucket.
func (s *Service) objectKey(stagedPath string) (string, error) {
	key := stagedPath
	if staging.IsRemote(stagedPath) {
		u, err := url.Parse(stagedPath)
		if err != nil {
			return "", fmt.Errorf("invalid staged path %q: %w", stagedPath, err)
		}
		if u.Scheme == "s3" && u.Host != s.bucket {
			return "", fmt.Errorf("%w: %s", ErrBucketMismatch, stagedPath)
		}
		key = u.Path
	}
	key = strings.TrimLeft(filepath.ToSlash(key), "/")
	if key == "" {
		return "", fmt.Errorf("%w: %q", staging.ErrEmptyName, stagedPath)
	}
	return key, nil
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}
