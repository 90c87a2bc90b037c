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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-stager-go/internal/process"
	"trpc.group/trpc-go/trpc-stager-go/internal/retry"
	itelemetry "trpc.group/trpc-go/trpc-stager-go/internal/telemetry"
)

// pythonEnv overrides the interpreter when no executable is configured.
const pythonEnv = "BEAM_PYTHON"

func (s *Stager) python() string {
	if s.opts.pythonExecutable != "" {
		return s.opts.pythonExecutable
	}
	if p := os.Getenv(pythonEnv); p != "" {
		return p
	}
	return "python3"
}

// pip runs "<python> -m pip args..." in dir.
func (s *Stager) pip(ctx context.Context, dir string, args ...string) (process.Result, error) {
	return s.runner.Run(ctx, dir, s.python(), append([]string{"-m", "pip"}, args...)...)
}

// populateRequirementsCache downloads the source distributions listed in
// requirementsFile into cacheDir. pip skips files already present.
func (s *Stager) populateRequirementsCache(ctx context.Context, requirementsFile, cacheDir string) error {
	cfg := s.opts.retry
	cfg.Retryable = process.IsNonZeroExit
	cfg.OnRetry = func(n int, err error, next time.Duration) {
		s.logger.Warnf("pip download failed (retry %d/%d in %s): %v", n, cfg.MaxRetries, next, err)
		itelemetry.IncSubprocessRetry(ctx, "pip download")
	}
	return retry.DoVoid(ctx, cfg, func() error {
		_, err := s.pip(ctx, "",
			"download",
			"--dest", cacheDir,
			"-r", requirementsFile,
			"--exists-action", "i",
			"--no-binary", ":all:",
		)
		return err
	})
}

// sdkVersion returns the pinned SDK version or asks pip for the installed one.
func (s *Stager) sdkVersion(ctx context.Context) (string, error) {
	if s.opts.sdkVersion != "" {
		return s.opts.sdkVersion, nil
	}
	res, err := s.pip(ctx, "", "show", s.opts.sdkPackageName)
	if err == nil {
		if v := parsePipShowVersion(res.Stdout); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: please set sdk_location or install a valid %s distribution",
		ErrUnsupportedSDKLocation, s.opts.sdkPackageName)
}

func parsePipShowVersion(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// pythonVersion returns the configured interpreter version or asks the
// interpreter.
func (s *Stager) pythonVersion(ctx context.Context) (int, int, error) {
	if s.opts.pythonMajor > 0 {
		return s.opts.pythonMajor, s.opts.pythonMinor, nil
	}
	res, err := s.runner.Run(ctx, "", s.python(), "-V")
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrSubprocessFailure, err)
	}
	// Python 2 prints the version on stderr.
	out := strings.TrimSpace(string(res.Stdout) + string(res.Stderr))
	var major, minor int
	if _, err := fmt.Sscanf(out, "Python %d.%d", &major, &minor); err != nil {
		return 0, 0, fmt.Errorf("%w: unexpected interpreter version %q", ErrSubprocessFailure, out)
	}
	return major, minor, nil
}

// abiTag returns the CPython ABI tag for an interpreter version.
func abiTag(major, minor int) string {
	suffix := ""
	switch {
	case major < 3:
		suffix = "mu"
	case minor < 8:
		suffix = "m"
	}
	return fmt.Sprintf("cp%d%d%s", major, minor, suffix)
}
