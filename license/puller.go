//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package license collects the license files of the installed Python
// dependencies into a single directory.
//
// Licenses are first taken from the files reported by pip-licenses. For
// dependencies without one the override config decides: skip it, copy a
// manually maintained file, or download it from a URL.
package license

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trpc.group/trpc-go/trpc-stager-go/internal/fetch"
	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/internal/process"
	"trpc.group/trpc-go/trpc-stager-go/internal/retry"
	itelemetry "trpc.group/trpc-go/trpc-stager-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/telemetry/trace"
)

// Defaults matching the container build layout.
const (
	DefaultLicenseDir = "/opt/apache/beam/third_party_licenses"
	DefaultManualDir  = "/tmp/manual_licenses"
	DefaultOverrides  = "/tmp/dep_urls_py.yaml"
)

const (
	licenseFileName = "LICENSE"
	noticeFileName  = "NOTICE"
	unknownFile     = "UNKNOWN"
)

// Dependency is one entry of the pip-licenses JSON report.
type Dependency struct {
	Name        string `json:"Name"`
	Version     string `json:"Version"`
	License     string `json:"License"`
	LicenseFile string `json:"LicenseFile"`
}

// Option configures a Puller.
type Option func(*Puller)

// WithManualDir sets the directory holding manually maintained licenses,
// laid out as <dir>/<dependency>/LICENSE.
func WithManualDir(dir string) Option {
	return func(p *Puller) { p.manualDir = dir }
}

// WithRunner sets the subprocess runner.
func WithRunner(r process.Runner) Option {
	return func(p *Puller) { p.runner = r }
}

// WithFetcher sets the fetcher used for license URLs.
func WithFetcher(f fetch.Fetcher) Option {
	return func(p *Puller) { p.fetcher = f }
}

// WithAttempts sets how many times each license source is tried.
func WithAttempts(n int) Option {
	return func(p *Puller) { p.retry.MaxRetries = n - 1 }
}

// WithRetryInterval sets the delay before the first retry.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Puller) {
		p.retry.InitialInterval = d
		p.retry.MaxInterval = d
	}
}

// WithCommand replaces the pip-licenses invocation.
func WithCommand(name string, args ...string) Option {
	return func(p *Puller) { p.command = append([]string{name}, args...) }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(p *Puller) { p.logger = l }
}

// Puller gathers license files into licenseDir.
type Puller struct {
	licenseDir string
	manualDir  string
	overrides  *Overrides
	runner     process.Runner
	fetcher    fetch.Fetcher
	retry      retry.Config
	command    []string
	logger     log.Logger
	lower      cases.Caser
}

// New creates a Puller writing into licenseDir. overrides may be nil.
func New(licenseDir string, overrides *Overrides, opts ...Option) *Puller {
	p := &Puller{
		licenseDir: licenseDir,
		manualDir:  DefaultManualDir,
		overrides:  overrides,
		retry: retry.Config{
			MaxRetries:      2,
			InitialInterval: time.Second,
			MaxInterval:     time.Second,
		},
		command: []string{"pip-licenses", "--with-license-file", "--format=json"},
		logger:  log.Base,
		lower:   cases.Lower(language.Und),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = process.NewExecRunner(process.WithLogger(p.logger))
	}
	if p.fetcher == nil {
		p.fetcher = fetch.New(fetch.WithLogger(p.logger))
	}
	return p
}

// Pull collects a license for every dependency reported by pip-licenses. It
// returns a *MissingLicensesError naming the dependencies left without one.
func (p *Puller) Pull(ctx context.Context) (err error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanPullLicenses)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := os.MkdirAll(p.licenseDir, 0o755); err != nil {
		return fmt.Errorf("create license dir: %w", err)
	}
	deps, err := p.Dependencies(ctx)
	if err != nil {
		return err
	}

	var missing []string
	for _, dep := range deps {
		name := p.lower.String(dep.Name)
		span.AddEvent("dependency", oteltrace.WithAttributes(attribute.String(itelemetry.KeyDependency, name)))
		if p.try(ctx, name, "pip-licenses", func() (bool, error) { return p.copyLicenseFile(name, dep) }) {
			continue
		}
		if p.try(ctx, name, "override", func() (bool, error) { return p.pullFromOverride(ctx, name) }) {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return &MissingLicensesError{Names: missing}
	}
	p.logger.Infof("pulled licenses for %d dependencies into %s", len(deps), p.licenseDir)
	return nil
}

// Dependencies runs pip-licenses and decodes its report.
func (p *Puller) Dependencies(ctx context.Context) ([]Dependency, error) {
	res, err := p.runner.Run(ctx, "", p.command[0], p.command[1:]...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	if stderr := strings.TrimSpace(string(res.Stderr)); stderr != "" {
		return nil, fmt.Errorf("%w: command %s: %s", ErrCommandFailed, strings.Join(p.command, " "), stderr)
	}
	var deps []Dependency
	if err := json.Unmarshal(res.Stdout, &deps); err != nil {
		return nil, fmt.Errorf("%w: decode report: %w", ErrCommandFailed, err)
	}
	return deps, nil
}

// try runs one license source with retries. A source that reports no
// license is not retried; one that fails is, and counts as no license once
// the attempts are used up.
func (p *Puller) try(ctx context.Context, name, source string, op func() (bool, error)) bool {
	ok, err := retry.Do(ctx, p.retry, op)
	if err != nil {
		p.logger.Warnf("failed to pull license for %s from %s: %v", name, source, err)
		return false
	}
	return ok
}

func (p *Puller) copyLicenseFile(name string, dep Dependency) (bool, error) {
	if dep.LicenseFile == "" || strings.EqualFold(dep.LicenseFile, unknownFile) {
		return false, nil
	}
	dst := filepath.Join(p.licenseDir, name, licenseFileName)
	if err := fsutil.CopyFile(dep.LicenseFile, dst); err != nil {
		return false, err
	}
	p.logger.Infof("pulled license for %s with pip-licenses", name)
	return true, nil
}

// pullFromOverride gathers the files named by the override into a temp dir
// and moves them into place only if at least one was produced.
func (p *Puller) pullFromOverride(ctx context.Context, name string) (bool, error) {
	ov, ok := p.overrides.Lookup(name)
	if !ok {
		return false, nil
	}
	tmp, err := os.MkdirTemp("", "temp_license_"+name+"-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(tmp)

	switch ov.License {
	case LicenseSkip:
		p.logger.Infof("skip pulling license for %s", name)
	case LicenseManual:
		src := filepath.Join(p.manualDir, name, licenseFileName)
		if err := fsutil.CopyFile(src, filepath.Join(tmp, licenseFileName)); err != nil {
			return false, err
		}
		p.logger.Infof("copied license for %s from %s", name, src)
	case "":
		return false, fmt.Errorf("override for %s has no license", name)
	default:
		if err := p.fetcher.Fetch(ctx, ov.License, filepath.Join(tmp, licenseFileName)); err != nil {
			return false, err
		}
		p.logger.Infof("pulled license for %s from %s", name, ov.License)
	}
	if ov.Notice != "" {
		if err := p.fetcher.Fetch(ctx, ov.Notice, filepath.Join(tmp, noticeFileName)); err != nil {
			return false, err
		}
	}

	files, err := fsutil.Glob(tmp, "*")
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if err := fsutil.CopyFile(f, filepath.Join(p.licenseDir, name, filepath.Base(f))); err != nil {
			return false, err
		}
	}
	return true, nil
}
