//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package s3

import "trpc.group/trpc-go/trpc-stager-go/log"

type options struct {
	bucket          string
	region          string
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	usePathStyle    bool
	maxRetries      int
	client          Client // pre-created client, connection options are ignored when set
	logger          log.Logger
}

// Option is a function that configures the S3 staging backend.
type Option func(*options)

// WithEndpoint sets a custom endpoint URL.
// Use this for S3-compatible services like MinIO, DigitalOcean Spaces,
// Cloudflare R2, or any other S3-compatible object storage.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithCredentials sets the AWS access key ID and secret access key.
// If not provided, credentials are loaded from environment variables
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY) or the default AWS credential chain.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
	}
}

// WithSessionToken sets the session token for temporary credentials (STS).
func WithSessionToken(token string) Option {
	return func(o *options) {
		o.sessionToken = token
	}
}

// WithPathStyle enables path-style addressing instead of virtual-hosted-style.
// This is required for MinIO and some other S3-compatible services.
func WithPathStyle(enabled bool) Option {
	return func(o *options) {
		o.usePathStyle = enabled
	}
}

// WithRetries sets the maximum number of attempts for failed requests.
func WithRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithClient sets a pre-created client.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger sets the logger. Defaults to log.Base.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
