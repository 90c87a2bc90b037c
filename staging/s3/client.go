//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package s3

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client is the subset of S3 operations the backend needs. It is decoupled
// from the AWS SDK so tests can supply an in-memory implementation.
type Client interface {
	// PutObject uploads size bytes read from body under key.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// GetObject opens the object stored under key in bucket. The caller
	// closes the returned body.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// s3Client implements Client using AWS SDK v2.
type s3Client struct {
	client *s3.Client
	bucket string
}

// newS3Client creates a new S3 client from the given options.
func newS3Client(ctx context.Context, o *options) (*s3Client, error) {
	var awsOpts []func(*config.LoadOptions) error
	if o.region != "" {
		awsOpts = append(awsOpts, config.WithRegion(o.region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)

	// Custom endpoint (for MinIO, R2, Spaces, etc.)
	if o.endpoint != "" {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.BaseEndpoint = aws.String(o.endpoint)
		})
	}
	if o.usePathStyle {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.UsePathStyle = true
		})
	}
	if o.accessKeyID != "" && o.secretAccessKey != "" {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.Credentials = credentials.NewStaticCredentialsProvider(
				o.accessKeyID,
				o.secretAccessKey,
				o.sessionToken,
			)
		})
	}
	if o.maxRetries > 0 {
		s3Opts = append(s3Opts, func(so *s3.Options) {
			so.RetryMaxAttempts = o.maxRetries
		})
	}

	return &s3Client{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: o.bucket,
	}, nil
}

// PutObject uploads an object to S3.
func (c *s3Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return wrapError(err)
	}
	return nil
}

// GetObject downloads an object from S3.
func (c *s3Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return out.Body, nil
}

// wrapError converts AWS SDK errors to sentinel errors while preserving
// the original error for diagnostics.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return errors.Join(ErrBucketNotFound, err)
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return errors.Join(ErrObjectNotFound, err)
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return errors.Join(ErrAccessDenied, err)
		case "NoSuchBucket":
			return errors.Join(ErrBucketNotFound, err)
		case "NoSuchKey", "NotFound":
			return errors.Join(ErrObjectNotFound, err)
		}
	}

	return err
}
