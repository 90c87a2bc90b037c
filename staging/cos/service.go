//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package cos provides a Tencent Cloud Object Storage (COS) implementation of
// the staging backend.
//
// Staged paths are mapped to object keys by dropping the scheme and bucket:
//
//	cos://{bucket}/{prefix}/{name} -> {prefix}/{name}
//	{prefix}/{name}                -> {prefix}/{name}
//
// The manifest is uploaded as {prefix}/MANIFEST-{id}.json and its key is the
// retrieval token.
//
// Authentication:
// The service requires COS credentials which can be provided via:
// - Environment variables: COS_SECRETID and COS_SECRETKEY (recommended)
// - Option functions: WithSecretID() and WithSecretKey()
//
// Example:
//
//	backend := cos.NewService("https://bucket.cos.region.myqcloud.com")
package cos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/staging"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultContentType = "application/octet-stream"
)

var (
	// ErrObjectNotFound is returned when a fetched object does not exist.
	ErrObjectNotFound = errors.New("cos staging: object not found")
	// ErrNotCOSURL is returned when Fetch is given something other than a
	// cos:// object URL.
	ErrNotCOSURL = errors.New("cos staging: not a cos:// object URL")
)

var _ staging.Backend = (*Service)(nil)

// Service is a Tencent Cloud Object Storage implementation of the staging backend.
type Service struct {
	staging.Recorder

	cosClient *cos.Client
	logger    log.Logger
}

// NewService creates a new COS staging backend with optional configurations.
//
// Authentication credentials can be provided in multiple ways:
// 1. Set environment variables COS_SECRETID and COS_SECRETKEY (recommended)
// 2. Use WithSecretID() and WithSecretKey() options
// 3. Use WithClient() to provide a pre-configured COS client directly
func NewService(bucketURL string, opts ...Option) (*Service, error) {
	options := &options{
		timeout:   defaultTimeout,
		secretID:  os.Getenv("COS_SECRETID"),
		secretKey: os.Getenv("COS_SECRETKEY"),
		logger:    log.Base,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.cosClient != nil {
		return &Service{cosClient: options.cosClient, logger: options.logger}, nil
	}

	u, err := url.Parse(bucketURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid COS bucket URL %q", bucketURL)
	}
	b := &cos.BaseURL{BucketURL: u}

	var httpClient *http.Client
	if options.httpClient != nil {
		// Copy to avoid modifying the caller's client.
		httpClient = &http.Client{
			Timeout:   options.httpClient.Timeout,
			Transport: options.httpClient.Transport,
		}
		if httpClient.Timeout == 0 && options.timeout > 0 {
			httpClient.Timeout = options.timeout
		}
	} else {
		httpClient = &http.Client{
			Timeout: options.timeout,
			Transport: &cos.AuthorizationTransport{
				SecretID:  options.secretID,
				SecretKey: options.secretKey,
			},
		}
	}

	return &Service{
		cosClient: cos.NewClient(b, httpClient),
		logger:    options.logger,
	}, nil
}

// StageArtifact uploads localPath to the object named by stagedPath.
func (s *Service) StageArtifact(ctx context.Context, localPath, stagedPath string) error {
	entry, err := staging.Describe(localPath, stagedPath)
	if err != nil {
		return err
	}
	key, err := objectKey(stagedPath)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType(localPath),
			ContentLength: entry.Size,
		},
	}
	if _, err := s.cosClient.Object.Put(ctx, key, f, opt); err != nil {
		return fmt.Errorf("failed to upload artifact %s: %w", entry.Name, err)
	}
	s.logger.Debugf("uploaded %s to cos key %s", localPath, key)

	s.Record(entry)
	return nil
}

// CommitManifest uploads the manifest next to the staged artifacts.
func (s *Service) CommitManifest(ctx context.Context, stagingLocation string) (string, error) {
	if stagingLocation == "" {
		return "", staging.ErrEmptyLocation
	}
	m := s.Seal()
	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	key, err := objectKey(staging.Join(stagingLocation, m.FileName()))
	if err != nil {
		return "", err
	}

	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: staging.ManifestContentType,
		},
	}
	if _, err := s.cosClient.Object.Put(ctx, key, bytes.NewReader(data), opt); err != nil {
		return "", fmt.Errorf("failed to upload manifest: %w", err)
	}
	s.Reset()
	s.logger.Infof("committed manifest %s with %d artifacts", key, len(m.Artifacts))
	return key, nil
}

// Fetch downloads the object named by the cos://bucket/key URL from to the
// local file to. The key is read from the configured bucket.
func (s *Service) Fetch(ctx context.Context, from, to string) error {
	if u, err := url.Parse(from); err != nil || u.Scheme != "cos" {
		return fmt.Errorf("%w: %s", ErrNotCOSURL, from)
	}
	key, err := objectKey(from)
	if err != nil {
		return err
	}

	resp, err := s.cosClient.Object.Get(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, from)
		}
		return fmt.Errorf("failed to download %s: %w", from, err)
	}
	defer resp.Body.Close()

	n, err := fsutil.WriteFrom(to, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", from, err)
	}
	s.logger.Debugf("downloaded %s to %s (%d bytes)", from, to, n)
	return nil
}

// objectKey maps a staged path onto a COS object key.
func objectKey(stagedPath string) (string, error) {
	key := stagedPath
	if staging.IsRemote(stagedPath) {
		u, err := url.Parse(stagedPath)
		if err != nil {
			return "", fmt.Errorf("invalid staged path %q: %w", stagedPath, err)
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
