//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-stager-go/internal/fetch"
	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/license"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/stager"
	"trpc.group/trpc-go/trpc-stager-go/staging"
	"trpc.group/trpc-go/trpc-stager-go/staging/cos"
	"trpc.group/trpc-go/trpc-stager-go/staging/inmemory"
	"trpc.group/trpc-go/trpc-stager-go/staging/local"
	"trpc.group/trpc-go/trpc-stager-go/staging/s3"
)

// OpenBackend creates the staging backend described by b.
func OpenBackend(ctx context.Context, b Backend, logger log.Logger) (staging.Backend, error) {
	switch b.Type {
	case BackendLocal, "":
		opts := []local.Option{local.WithLogger(logger)}
		if b.Local.FileMode != 0 {
			opts = append(opts, local.WithFileMode(b.Local.FileMode))
		}
		return local.NewService(opts...), nil
	case BackendMemory:
		return inmemory.NewService(), nil
	case BackendCOS:
		opts := []cos.Option{cos.WithLogger(logger)}
		if b.COS.SecretID != "" {
			opts = append(opts, cos.WithSecretID(b.COS.SecretID))
		}
		if b.COS.SecretKey != "" {
			opts = append(opts, cos.WithSecretKey(b.COS.SecretKey))
		}
		if b.COS.Timeout > 0 {
			opts = append(opts, cos.WithTimeout(b.COS.Timeout))
		}
		return cos.NewService(b.COS.BucketURL, opts...)
	case BackendS3:
		opts := []s3.Option{s3.WithLogger(logger), s3.WithPathStyle(b.S3.PathStyle)}
		if b.S3.Region != "" {
			opts = append(opts, s3.WithRegion(b.S3.Region))
		}
		if b.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(b.S3.Endpoint))
		}
		if b.S3.AccessKeyID != "" {
			opts = append(opts, s3.WithCredentials(b.S3.AccessKeyID, b.S3.SecretAccessKey))
		}
		if b.S3.SessionToken != "" {
			opts = append(opts, s3.WithSessionToken(b.S3.SessionToken))
		}
		if b.S3.Retries > 0 {
			opts = append(opts, s3.WithRetries(b.S3.Retries))
		}
		return s3.NewService(ctx, b.S3.Bucket, opts...)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, b.Type)
	}
}

// OpenFetcher returns the fetcher for remote packages and SDKs. Object-store
// backends also serve their own scheme (s3:// or cos://).
func OpenFetcher(b staging.Backend, logger log.Logger) fetch.Fetcher {
	opts := []fetch.Option{fetch.WithLogger(logger)}
	switch svc := b.(type) {
	case *s3.Service:
		opts = append(opts, fetch.WithSchemeFetcher("s3", svc))
	case *cos.Service:
		opts = append(opts, fetch.WithSchemeFetcher("cos", svc))
	}
	return fetch.New(opts...)
}

// Options translates the stage settings into stager options.
func (s Stage) Options(logger log.Logger) []stager.Option {
	opts := []stager.Option{stager.WithLogger(logger)}
	if s.PythonExecutable != "" {
		opts = append(opts, stager.WithPythonExecutable(s.PythonExecutable))
	}
	if s.SDKVersion != "" {
		opts = append(opts, stager.WithSDKVersion(s.SDKVersion))
	}
	if s.TempDir != "" {
		opts = append(opts, stager.WithTempDir(s.TempDir))
	}
	if s.Retries > 0 {
		opts = append(opts, stager.WithRetries(s.Retries))
	}
	if s.MainSessionFile != "" {
		src := s.MainSessionFile
		opts = append(opts, stager.WithSessionSaver(func(_ context.Context, path string) error {
			return fsutil.CopyFile(src, path)
		}))
	}
	return opts
}

// Options translates the license settings into puller options.
func (l Licenses) Options(logger log.Logger) []license.Option {
	opts := []license.Option{license.WithLogger(logger)}
	if l.ManualDir != "" {
		opts = append(opts, license.WithManualDir(l.ManualDir))
	}
	if l.Attempts > 0 {
		opts = append(opts, license.WithAttempts(l.Attempts))
	}
	return opts
}
