//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package process runs the external commands the stager and the license
// puller depend on (pip, setup.py, pip-licenses).
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-stager-go/log"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner runs a command in dir and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, dir, name string, args ...string) (Result, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	return f(ctx, dir, name, args...)
}

// ExitError reports a command that ran and exited with a non-zero status.
type ExitError struct {
	Dir    string
	Cmd    string
	Code   int
	Stderr []byte
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed (cwd=%s, cmd=%s): exit status %d: %s",
		e.Dir, e.Cmd, e.Code, strings.TrimSpace(string(e.Stderr)))
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsNonZeroExit reports whether err carries an *ExitError with a non-zero
// exit code. Failures to start a command do not qualify.
func IsNonZeroExit(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee) && ee.Code != 0
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithTimeout bounds every command run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) { r.timeout = d }
}

// WithEnv appends environment variables (KEY=VALUE) to the inherited
// environment.
func WithEnv(env ...string) Option {
	return func(r *ExecRunner) { r.env = append(r.env, env...) }
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l log.Logger) Option {
	return func(r *ExecRunner) { r.logger = l }
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	timeout time.Duration
	env     []string
	logger  log.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{logger: log.Base}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes name with args in dir. A non-zero exit is reported as an
// *ExitError; the captured output is returned either way.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	cmdLine := strings.Join(append([]string{name}, args...), " ")
	r.logger.Debugf("running %s (cwd=%s)", cmdLine, dir)

	// #nosec G204 -- commands are assembled from fixed tool names
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return res, &ExitError{
			Dir:    dir,
			Cmd:    cmdLine,
			Code:   ee.ExitCode(),
			Stderr: res.Stderr,
			Err:    err,
		}
	}
	return res, fmt.Errorf("command failed (cwd=%s, cmd=%s): %w", dir, cmdLine, err)
}
