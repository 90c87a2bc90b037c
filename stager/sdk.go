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
	"strings"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/staging"
)

// Tags of the binary SDK wheel fetched on a best-effort basis.
const (
	wheelImplementation = "cp"
	wheelPlatform       = "manylinux1_x86_64"
	remoteSDKFile       = "beam-sdk.tar.gz"
)

// stageSDK stages the SDK named by req.SDKLocation.
func (c *call) stageSDK(ctx context.Context, req Request) error {
	location := req.SDKLocation
	switch {
	case location == SDKLocationDefault:
		return c.stagePyPISDK(ctx)
	case staging.IsRemote(location):
		return c.stageRemoteSDK(ctx, location)
	case location == SDKLocationContainer:
		c.logger.Debugf("using the SDK built into the container")
		return nil
	case location == "":
		c.logger.Warnf("SDK will not be staged since sdk_location is empty")
		return nil
	default:
		return c.stageLocalSDK(ctx, location)
	}
}

// sdkStagedName returns the name the SDK file at location is staged under.
// Wheels keep their file name, everything else becomes
// dataflow_python_sdk.tar.
func (c *call) sdkStagedName(location string) (string, error) {
	if !strings.HasSuffix(location, ".whl") {
		return SDKTarballFile, nil
	}
	_, name := staging.Split(location)
	if strings.HasPrefix(name, wheelPrefix(c.opts.sdkPackageName)) {
		return name, nil
	}
	return "", fmt.Errorf("%w: unrecognized SDK wheel file %s", ErrUnsupportedSDKLocation, location)
}

func wheelPrefix(pkg string) string {
	return strings.ReplaceAll(pkg, "-", "_")
}

func (c *call) stageLocalSDK(ctx context.Context, location string) error {
	path := location
	if fsutil.IsDir(location) {
		path = filepath.Join(location, SDKTarballFile)
	}
	if !fsutil.IsFile(path) {
		return fmt.Errorf("%w: %s (specified by sdk_location)", ErrMissingInputFile, path)
	}
	name, err := c.sdkStagedName(location)
	if err != nil {
		return err
	}
	c.logger.Infof("copying SDK %s to staging location", path)
	return c.stage(ctx, path, name)
}

func (c *call) stageRemoteSDK(ctx context.Context, location string) error {
	name, err := c.sdkStagedName(location)
	if err != nil {
		return err
	}
	local := filepath.Join(c.tempDir, remoteSDKFile)
	if err := c.fetcher.Fetch(ctx, location, local); err != nil {
		return fmt.Errorf("%w: sdk %s: %w", ErrRemoteFetch, location, err)
	}
	c.logger.Infof("staging SDK from %s as %s", location, name)
	return c.stage(ctx, local, name)
}

// stagePyPISDK stages the source distribution of the running SDK version and,
// when available, the matching binary wheel.
func (c *call) stagePyPISDK(ctx context.Context) error {
	version, err := c.sdkVersion(ctx)
	if err != nil {
		return err
	}
	src, err := c.downloadSDKSource(ctx, version)
	if err != nil {
		return err
	}
	name, err := c.sdkStagedName(src)
	if err != nil {
		return err
	}
	if err := c.stage(ctx, src, name); err != nil {
		return err
	}

	if err := c.stageSDKWheel(ctx, version); err != nil {
		c.logger.Warnf("failed to stage binary distribution of the SDK: %v", err)
	}
	return nil
}

func (c *call) downloadSDKSource(ctx context.Context, version string) (string, error) {
	pkg := c.opts.sdkPackageName
	c.logger.Infof("downloading source distribution of %s==%s", pkg, version)
	if _, err := c.pip(ctx, "",
		"download", "--dest", c.tempDir, pkg+"=="+version, "--no-deps",
		"--no-binary", ":all:",
	); err != nil {
		return "", fmt.Errorf("%w: download %s==%s: %w", ErrSubprocessFailure, pkg, version, err)
	}

	var expected []string
	for _, p := range []string{pkg, wheelPrefix(pkg)} {
		for _, ext := range []string{".zip", ".tar.gz"} {
			expected = append(expected, filepath.Join(c.tempDir, fmt.Sprintf("%s-%s%s", p, version, ext)))
		}
	}
	for _, f := range expected {
		if fsutil.IsFile(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: no SDK distribution downloaded, expected one of %v",
		ErrMissingInputFile, expected)
}

func (c *call) stageSDKWheel(ctx context.Context, version string) error {
	major, minor, err := c.pythonVersion(ctx)
	if err != nil {
		return err
	}
	langTag := fmt.Sprintf("%d%d", major, minor)
	abi := abiTag(major, minor)
	pkg := c.opts.sdkPackageName

	c.logger.Infof("downloading binary distribution of %s==%s", pkg, version)
	if _, err := c.pip(ctx, "",
		"download", "--dest", c.tempDir, pkg+"=="+version, "--no-deps",
		"--only-binary", ":all:",
		"--python-version", langTag,
		"--implementation", wheelImplementation,
		"--abi", abi,
		"--platform", wheelPlatform,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrSubprocessFailure, err)
	}

	wheel := filepath.Join(c.tempDir, fmt.Sprintf("%s-%s-%s%s-%s-%s.whl",
		wheelPrefix(pkg), version, wheelImplementation, langTag, abi, wheelPlatform))
	if !fsutil.IsFile(wheel) {
		return fmt.Errorf("%w: expected %s", ErrMissingInputFile, wheel)
	}
	name, err := c.sdkStagedName(wheel)
	if err != nil {
		return err
	}
	return c.stage(ctx, wheel, name)
}
