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
	"os"
	"path/filepath"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
)

// stageRequirements stages the requirements file and every file in the
// requirements cache after populating it.
func (c *call) stageRequirements(ctx context.Context, req Request) error {
	if req.RequirementsFile == "" {
		return nil
	}
	if !fsutil.IsFile(req.RequirementsFile) {
		return fmt.Errorf("%w: %s (specified by requirements_file)", ErrMissingInputFile, req.RequirementsFile)
	}
	if err := c.stage(ctx, req.RequirementsFile, RequirementsFile); err != nil {
		return err
	}

	cacheDir := req.RequirementsCache
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), requirementsCacheName)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("create requirements cache %s: %w", cacheDir, err)
	}

	populate := c.opts.populateCache
	if populate == nil {
		populate = c.populateRequirementsCache
	}
	c.logger.Infof("populating requirements cache %s from %s", cacheDir, req.RequirementsFile)
	if err := populate(ctx, req.RequirementsFile, cacheDir); err != nil {
		return fmt.Errorf("%w: populate requirements cache: %w", ErrSubprocessFailure, err)
	}

	pkgs, err := fsutil.Glob(cacheDir, "*")
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		if err := c.stage(ctx, pkg, filepath.Base(pkg)); err != nil {
			return err
		}
	}
	return nil
}
