//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"net/http"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"trpc.group/trpc-go/trpc-stager-go/log"
)

// Option defines a function type for configuring the COS staging backend.
type Option func(*options)

// options holds the configuration options for the COS staging backend.
type options struct {
	httpClient *http.Client
	cosClient  *cos.Client
	timeout    time.Duration
	secretID   string
	secretKey  string
	logger     log.Logger
}

// WithHTTPClient sets the HTTP client to use for COS requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithClient sets a pre-configured COS client. Bucket URL, credentials and
// HTTP options are ignored when it is set.
func WithClient(client *cos.Client) Option {
	return func(o *options) {
		o.cosClient = client
	}
}

// WithTimeout sets the timeout duration for HTTP requests.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithSecretID sets the COS secret ID for authentication.
// If not provided, the service will use the COS_SECRETID environment variable.
func WithSecretID(secretID string) Option {
	return func(o *options) {
		o.secretID = secretID
	}
}

// WithSecretKey sets the COS secret key for authentication.
// If not provided, the service will use the COS_SECRETKEY environment variable.
func WithSecretKey(secretKey string) Option {
	return func(o *options) {
		o.secretKey = secretKey
	}
}

// WithLogger sets the logger. Defaults to log.Base.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
