//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package s3

import "errors"

var (
	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("s3 staging: bucket not found")

	// ErrObjectNotFound is returned when a fetched object does not exist.
	ErrObjectNotFound = errors.New("s3 staging: object not found")

	// ErrAccessDenied is returned when the credentials cannot write to the bucket.
	ErrAccessDenied = errors.New("s3 staging: access denied")

	// ErrEmptyBucket is returned when no bucket is configured.
	ErrEmptyBucket = errors.New("s3 staging: bucket cannot be empty")

	// ErrBucketMismatch is returned when a staged path names a different bucket.
	ErrBucketMismatch = errors.New("s3 staging: staged path is in a different bucket")

	// ErrNotS3URL is returned when Fetch is given something other than an
	// s3://bucket/key URL.
	ErrNotS3URL = errors.New("s3 staging: not an s3:// object URL")
)
