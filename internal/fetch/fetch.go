//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package fetch copies a file named by a URL or a local path to a local
// destination.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/log"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrHTTPStatus is returned when the server answers with a status >= 400.
	ErrHTTPStatus = errors.New("fetch: unexpected http status")
	// ErrUnsupportedScheme is returned for URL schemes other than http,
	// https, file and the schemes registered with WithSchemeFetcher.
	ErrUnsupportedScheme = errors.New("fetch: unsupported scheme")
)

// Fetcher copies from (a URL or local path) to the local file to.
type Fetcher interface {
	Fetch(ctx context.Context, from, to string) error
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the http client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithSchemeFetcher routes URLs with the given scheme, such as "s3" or
// "cos", to f.
func WithSchemeFetcher(scheme string, f Fetcher) Option {
	return func(h *HTTPFetcher) {
		if h.schemes == nil {
			h.schemes = make(map[string]Fetcher)
		}
		h.schemes[scheme] = f
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(f *HTTPFetcher) { f.logger = l }
}

// HTTPFetcher downloads http(s) URLs, copies file:// URLs and local paths
// and hands other registered schemes to their fetcher.
type HTTPFetcher struct {
	client  *http.Client
	schemes map[string]Fetcher
	logger  log.Logger
}

// New creates an HTTPFetcher.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: DefaultTimeout},
		logger: log.Base,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch copies from to the local file to. The destination is only created
// once the transfer has succeeded.
func (f *HTTPFetcher) Fetch(ctx context.Context, from, to string) error {
	if !strings.Contains(from, "://") {
		return fsutil.CopyFile(from, to)
	}
	u, err := url.Parse(from)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", from, err)
	}
	if sf, ok := f.schemes[u.Scheme]; ok {
		return sf.Fetch(ctx, from, to)
	}
	switch u.Scheme {
	case "file":
		return fsutil.CopyFile(u.Path, to)
	case "http", "https":
		return f.download(ctx, from, to)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, from)
	}
}

func (f *HTTPFetcher) download(ctx context.Context, from, to string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, from, nil)
	if err != nil {
		return fmt.Errorf("create request for %s: %w", from, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", from, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, from, resp.StatusCode)
	}

	n, err := fsutil.WriteFrom(to, resp.Body)
	if err != nil {
		return fmt.Errorf("download %s: %w", from, err)
	}
	f.logger.Debugf("downloaded %s to %s (%d bytes)", from, to, n)
	return nil
}
