//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package stager

import (
	"context"
	"time"

	"trpc.group/trpc-go/trpc-stager-go/internal/fetch"
	"trpc.group/trpc-go/trpc-stager-go/internal/process"
	"trpc.group/trpc-go/trpc-stager-go/internal/retry"
	"trpc.group/trpc-go/trpc-stager-go/log"
)

// DefaultSDKPackageName is the distribution staged for the "default" SDK
// location.
const DefaultSDKPackageName = "apache-beam"

// defaultRetry is used for populating the requirements cache.
var defaultRetry = retry.Config{
	MaxRetries:      4,
	InitialInterval: 5 * time.Second,
	MaxInterval:     time.Minute,
}

// SessionSaver writes the serialized main session to path.
type SessionSaver func(ctx context.Context, path string) error

// PopulateFunc fills cacheDir with the packages listed in requirementsFile.
type PopulateFunc func(ctx context.Context, requirementsFile, cacheDir string) error

// Option configures a Stager.
type Option func(*options)

type options struct {
	pythonExecutable string
	buildSetupArgs   []string
	tempDir          string
	populateCache    PopulateFunc
	runner           process.Runner
	fetcher          fetch.Fetcher
	sessionSaver     SessionSaver
	sdkPackageName   string
	sdkVersion       string
	pythonMajor      int
	pythonMinor      int
	retry            retry.Config
	logger           log.Logger
}

// WithPythonExecutable sets the interpreter used for pip and setup.py.
// Without it $BEAM_PYTHON is used, then python3.
func WithPythonExecutable(python string) Option {
	return func(o *options) { o.pythonExecutable = python }
}

// WithBuildSetupArgs replaces the command that builds the setup.py source
// distribution. The command runs in the setup file's directory and must
// leave a *.tar.gz in the temp directory.
func WithBuildSetupArgs(args ...string) Option {
	return func(o *options) { o.buildSetupArgs = args }
}

// WithTempDir sets the scratch directory. It is removed when the call
// returns.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithRequirementsCacheFunc replaces the pip download that populates the
// requirements cache.
func WithRequirementsCacheFunc(f PopulateFunc) Option {
	return func(o *options) { o.populateCache = f }
}

// WithRunner sets the subprocess runner.
func WithRunner(r process.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithFetcher sets the fetcher used for remote packages and SDKs.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithSessionSaver sets the function used when SaveMainSession is requested.
func WithSessionSaver(f SessionSaver) Option {
	return func(o *options) { o.sessionSaver = f }
}

// WithSDKPackageName overrides the SDK distribution name.
func WithSDKPackageName(name string) Option {
	return func(o *options) { o.sdkPackageName = name }
}

// WithSDKVersion pins the SDK version fetched for the "default" location.
// Without it the version is read from pip show.
func WithSDKVersion(version string) Option {
	return func(o *options) { o.sdkVersion = version }
}

// WithPythonVersion sets the interpreter version used to pick the binary
// SDK wheel. Without it the version is read from the interpreter.
func WithPythonVersion(major, minor int) Option {
	return func(o *options) {
		o.pythonMajor = major
		o.pythonMinor = minor
	}
}

// WithRetryConfig overrides the backoff used for pip download.
// The retry filter is always "non-zero exit".
func WithRetryConfig(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// WithRetries sets how many times a failed pip download is retried,
// keeping the default backoff.
func WithRetries(n int) Option {
	return func(o *options) { o.retry.MaxRetries = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}
