//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package stager collects a pipeline's code and dependencies and copies them
// to a staging location through a staging.Backend.
//
// A call to StageJobResources runs a fixed sequence of optional steps:
// requirements file and its package cache, setup.py source distribution,
// extra packages, jar packages, main session, SDK and worker jar. Once every
// step has succeeded the backend commits a manifest and the retrieval token
// is returned together with the staged names, in staging order.
package stager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"trpc.group/trpc-go/trpc-stager-go/internal/fetch"
	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/internal/process"
	itelemetry "trpc.group/trpc-go/trpc-stager-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/staging"
	"trpc.group/trpc-go/trpc-stager-go/telemetry/trace"
)

// Names of the files created at the staging location.
const (
	WorkflowTarballFile   = "workflow.tar.gz"
	RequirementsFile      = "requirements.txt"
	ExtraPackagesFile     = "extra_packages.txt"
	PickledMainSession    = "pickled_main_session"
	SDKTarballFile        = "dataflow_python_sdk.tar"
	WorkerJarFile         = "dataflow-worker.jar"
	requirementsCacheName = "dataflow-requirements-cache"
)

// SDK location values with a special meaning.
const (
	SDKLocationDefault   = "default"
	SDKLocationContainer = "container"
)

// Request describes what to stage.
type Request struct {
	// RequirementsFile is a pip requirements file. Its packages are
	// downloaded into RequirementsCache and staged as well.
	RequirementsFile string
	// RequirementsCache overrides $TMPDIR/dataflow-requirements-cache.
	RequirementsCache string
	// SetupFile is the path to a file named setup.py.
	SetupFile string
	// ExtraPackages are local paths or URLs of .tar, .tar.gz, .whl or .zip
	// packages, installed on workers in this order.
	ExtraPackages []string
	// Experiments may carry jar_packages=a.jar,b.jar.
	Experiments []string
	// SDKLocation is "default", "container", a URL, a local file or a
	// directory holding dataflow_python_sdk.tar.
	SDKLocation string
	// SaveMainSession stages the session written by the SessionSaver.
	SaveMainSession bool
	// WorkerJar is staged as dataflow-worker.jar when set.
	WorkerJar string
	// StagingLocation is where everything is copied. Required.
	StagingLocation string
}

// Stager stages job resources through a backend.
type Stager struct {
	backend staging.Backend
	opts    options
	runner  process.Runner
	fetcher fetch.Fetcher
	logger  log.Logger
}

// New creates a Stager writing through backend.
func New(backend staging.Backend, opts ...Option) *Stager {
	o := options{
		sdkPackageName: DefaultSDKPackageName,
		retry:          defaultRetry,
		logger:         log.Base,
	}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Stager{
		backend: backend,
		opts:    o,
		runner:  o.runner,
		fetcher: o.fetcher,
		logger:  o.logger,
	}
	if s.runner == nil {
		s.runner = process.NewExecRunner(process.WithLogger(o.logger))
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New(fetch.WithLogger(o.logger))
	}
	return s
}

// call is the state of one StageJobResources invocation.
type call struct {
	*Stager
	location string
	tempDir  string
	staged   []staging.Resource
}

// StageJobResources stages everything req asks for and commits the
// manifest. It returns the retrieval token and the staged names in order.
//
// On error no manifest is committed and the backend's pending entries are
// dropped. Files already copied are left at the staging location.
func (s *Stager) StageJobResources(ctx context.Context, req Request) (token string, names []string, err error) {
	if req.StagingLocation == "" {
		return "", nil, ErrMissingStagingLocation
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanStageJobResources,
		oteltrace.WithAttributes(attribute.String(itelemetry.KeyStagingLocation, req.StagingLocation)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int(itelemetry.KeyArtifactCount, len(names)))
		span.End()
	}()

	tempDir, err := s.makeTempDir()
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(tempDir); rerr != nil {
			s.logger.Warnf("failed to remove temp dir %s: %v", tempDir, rerr)
		}
	}()

	defer func() {
		if err != nil {
			// Entries from a failed call must not leak into a later manifest.
			s.backend.Reset()
		}
	}()

	c := &call{Stager: s, location: req.StagingLocation, tempDir: tempDir}
	steps := []struct {
		name string
		run  func(context.Context, Request) error
	}{
		{"requirements", c.stageRequirements},
		{"setup", c.stageSetupPackage},
		{"extra_packages", c.stageExtraPackages},
		{"jar_packages", c.stageJarPackages},
		{"main_session", c.stageMainSession},
		{"sdk", c.stageSDK},
		{"worker_jar", c.stageWorkerJar},
	}
	for _, step := range steps {
		if err := c.runStep(ctx, step.name, req, step.run); err != nil {
			return "", nil, err
		}
	}

	token, err = s.backend.CommitManifest(ctx, req.StagingLocation)
	if err != nil {
		return "", nil, fmt.Errorf("commit manifest: %w", err)
	}
	names = make([]string, 0, len(c.staged))
	for _, r := range c.staged {
		names = append(names, r.Name)
	}
	s.logger.Infof("staged %d resources to %s (manifest %s)", len(names), req.StagingLocation, token)
	return token, names, nil
}

func (c *call) runStep(ctx context.Context, name string, req Request, run func(context.Context, Request) error) error {
	ctx, span := trace.Tracer.Start(ctx, name,
		oteltrace.WithAttributes(attribute.String(itelemetry.KeyStep, name)))
	defer span.End()
	if err := run(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// makeTempDir returns the configured scratch directory, or a fresh one.
func (s *Stager) makeTempDir() (string, error) {
	if s.opts.tempDir != "" {
		if err := os.MkdirAll(s.opts.tempDir, 0o755); err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
		return s.opts.tempDir, nil
	}
	dir, err := os.MkdirTemp("", "stager-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// stage copies localPath to the staging location under name.
func (c *call) stage(ctx context.Context, localPath, name string) error {
	if err := staging.ValidateName(name); err != nil {
		return err
	}
	for _, r := range c.staged {
		if r.Name == name {
			return fmt.Errorf("%w: %s from %s and %s", ErrDuplicateName, name, r.Source, localPath)
		}
	}
	stagedPath := staging.Join(c.location, name)
	c.logger.Debugf("staging %s to %s", localPath, stagedPath)
	if err := c.backend.StageArtifact(ctx, localPath, stagedPath); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	var size int64
	if fi, err := os.Stat(localPath); err == nil {
		size = fi.Size()
	}
	itelemetry.RecordArtifactStaged(ctx, name, size)
	c.staged = append(c.staged, staging.Resource{Name: name, Source: localPath})
	return nil
}

func (c *call) stageMainSession(ctx context.Context, req Request) error {
	if !req.SaveMainSession {
		return nil
	}
	if c.opts.sessionSaver == nil {
		return ErrSessionSaverMissing
	}
	path := filepath.Join(c.tempDir, PickledMainSession)
	if err := c.opts.sessionSaver(ctx, path); err != nil {
		return fmt.Errorf("save main session: %w", err)
	}
	return c.stage(ctx, path, PickledMainSession)
}

func (c *call) stageWorkerJar(ctx context.Context, req Request) error {
	if req.WorkerJar == "" {
		return nil
	}
	path := req.WorkerJar
	if staging.IsRemote(path) {
		path = filepath.Join(c.tempDir, WorkerJarFile)
		if err := c.fetcher.Fetch(ctx, req.WorkerJar, path); err != nil {
			return fmt.Errorf("%w: worker jar %s: %w", ErrRemoteFetch, req.WorkerJar, err)
		}
	} else if !fsutil.IsFile(path) {
		return fmt.Errorf("%w: %s (specified by worker_jar)", ErrMissingInputFile, path)
	}
	return c.stage(ctx, path, WorkerJarFile)
}
