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
	"strings"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/staging"
)

// jarPackagesExperiment names the experiment listing jar packages.
const jarPackagesExperiment = "jar_packages"

var extraPackageExts = []string{".tar", ".tar.gz", ".whl", ".zip"}

// LookupExperiment returns the value of the experiment called name. A bare
// experiment is found with an empty value.
func LookupExperiment(experiments []string, name string) (string, bool) {
	for _, e := range experiments {
		if e == name {
			return "", true
		}
		if v, ok := strings.CutPrefix(e, name+"="); ok {
			return v, true
		}
	}
	return "", false
}

// baseName is the file name a local path or URL is staged under.
func baseName(path string) string {
	if staging.IsRemote(path) {
		_, name := staging.Split(path)
		return name
	}
	return filepath.Base(path)
}

// checkUniqueNames fails when two entries would be staged under one name.
func checkUniqueNames(pkgs []string, option string) error {
	seen := make(map[string]string, len(pkgs))
	for _, pkg := range pkgs {
		name := baseName(pkg)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s and %s are both staged as %s (specified by %s)",
				ErrDuplicateName, prev, pkg, name, option)
		}
		seen[name] = pkg
	}
	return nil
}

func hasExt(path string, exts ...string) bool {
	base := baseName(path)
	for _, ext := range exts {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// stageExtraPackages stages the extra packages followed by
// extra_packages.txt, which lists them in install order.
func (c *call) stageExtraPackages(ctx context.Context, req Request) error {
	if len(req.ExtraPackages) == 0 {
		return nil
	}
	for _, pkg := range req.ExtraPackages {
		if !hasExt(pkg, extraPackageExts...) {
			return fmt.Errorf("%w: extra_package expects a full path ending with "+
				"\".tar\", \".tar.gz\", \".whl\" or \".zip\" instead of %s", ErrInvalidFileName, pkg)
		}
	}
	if err := checkUniqueNames(req.ExtraPackages, "extra_package"); err != nil {
		return err
	}
	for _, pkg := range req.ExtraPackages {
		if hasExt(pkg, ".whl") {
			c.logger.Warnf("the .whl package %q is provided in extra_package; "+
				"it must be binary-compatible with the worker environment", pkg)
		}
	}

	names, err := c.stagePackages(ctx, req.ExtraPackages, "extra_package")
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	listFile := filepath.Join(c.tempDir, ExtraPackagesFile)
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ExtraPackagesFile, err)
	}
	return c.stage(ctx, listFile, ExtraPackagesFile)
}

// stageJarPackages stages the jars listed in the jar_packages experiment.
func (c *call) stageJarPackages(ctx context.Context, req Request) error {
	value, ok := LookupExperiment(req.Experiments, jarPackagesExperiment)
	if !ok {
		return nil
	}
	var jars []string
	for _, j := range strings.Split(value, ",") {
		if j = strings.TrimSpace(j); j != "" {
			jars = append(jars, j)
		}
	}
	if len(jars) == 0 {
		return fmt.Errorf("%w: experiment %s= lists no jar", ErrInvalidFileName, jarPackagesExperiment)
	}
	for _, jar := range jars {
		if !hasExt(jar, ".jar") {
			return fmt.Errorf("%w: experiment %s= expects a full path ending with \".jar\" instead of %s",
				ErrInvalidFileName, jarPackagesExperiment, jar)
		}
	}
	if err := checkUniqueNames(jars, "experiment "+jarPackagesExperiment); err != nil {
		return err
	}
	_, err := c.stagePackages(ctx, jars, "experiment "+jarPackagesExperiment)
	return err
}

// stagePackages stages local packages in input order followed by the remote
// ones, which are downloaded first. It returns the staged names.
func (c *call) stagePackages(ctx context.Context, pkgs []string, option string) ([]string, error) {
	downloadDir, err := os.MkdirTemp(c.tempDir, "packages-")
	if err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	var local, downloaded []string
	for _, pkg := range pkgs {
		switch {
		case fsutil.IsFile(pkg):
			local = append(local, pkg)
		case staging.IsRemote(pkg):
			dst := filepath.Join(downloadDir, baseName(pkg))
			c.logger.Infof("downloading %s locally before staging", pkg)
			if err := c.fetcher.Fetch(ctx, pkg, dst); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrRemoteFetch, pkg, err)
			}
			downloaded = append(downloaded, dst)
		default:
			return nil, fmt.Errorf("%w: %s (specified by %s)", ErrMissingInputFile, pkg, option)
		}
	}

	names := make([]string, 0, len(pkgs))
	for _, path := range append(local, downloaded...) {
		name := filepath.Base(path)
		if err := c.stage(ctx, path, name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
