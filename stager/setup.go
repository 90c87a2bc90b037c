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
	"fmt"
	"path/filepath"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
)

const setupFileName = "setup.py"

// stageSetupPackage builds a source distribution from setup.py and stages it
// as workflow.tar.gz.
func (c *call) stageSetupPackage(ctx context.Context, req Request) error {
	if req.SetupFile == "" {
		return nil
	}
	if !fsutil.IsFile(req.SetupFile) {
		return fmt.Errorf("%w: %s (specified by setup_file)", ErrMissingInputFile, req.SetupFile)
	}
	if filepath.Base(req.SetupFile) != setupFileName {
		return fmt.Errorf("%w: setup_file expects the full path to a file named %s instead of %s",
			ErrInvalidFileName, setupFileName, req.SetupFile)
	}

	tarball, err := c.buildSetupPackage(ctx, req.SetupFile)
	if err != nil {
		return err
	}
	return c.stage(ctx, tarball, WorkflowTarballFile)
}

func (c *call) buildSetupPackage(ctx context.Context, setupFile string) (string, error) {
	args := c.opts.buildSetupArgs
	if len(args) == 0 {
		args = []string{c.python(), setupFileName, "sdist", "--dist-dir", c.tempDir}
	}
	c.logger.Infof("building setup package: %v", args)
	if _, err := c.runner.Run(ctx, filepath.Dir(setupFile), args[0], args[1:]...); err != nil {
		return "", fmt.Errorf("%w: build %s: %w", ErrSubprocessFailure, setupFile, err)
	}

	out, err := fsutil.Glob(c.tempDir, "*.tar.gz")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: file %s not found",
			ErrSubprocessFailure, filepath.Join(c.tempDir, "*.tar.gz"))
	}
	return out[0], nil
}
