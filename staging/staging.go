//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package staging defines the contract between the artifact stager and the
// storage systems artifacts are copied to, plus the manifest that records
// what was staged.
package staging

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend copies local files to a staging location and records them in a
// manifest.
type Backend interface {
	// StageArtifact copies the file at localPath to stagedPath and appends
	// the artifact to the pending manifest.
	//
	// stagedPath is built with Join(stagingLocation, name). Staging the same
	// path twice overwrites the earlier copy.
	StageArtifact(ctx context.Context, localPath, stagedPath string) error

	// CommitManifest writes the pending manifest under stagingLocation and
	// returns an opaque retrieval token for it. The pending list is reset
	// after a successful commit.
	CommitManifest(ctx context.Context, stagingLocation string) (string, error)

	// Reset drops the pending manifest entries without committing them.
	// Objects already copied stay at the staging location.
	Reset()
}

// Resource is a single staged artifact.
type Resource struct {
	// Name is the file name at the staging location. It never contains a
	// path separator.
	Name string
	// Source is the local path or remote URL the artifact came from.
	Source string
}

// IsRemote reports whether path refers to a remote location, i.e. carries a
// URL scheme such as https:// or cos://.
func IsRemote(path string) bool {
	return strings.Contains(path, "://")
}

// Join builds the staged path for name under location. Remote locations are
// joined with "/", local ones with the OS separator.
func Join(location, name string) string {
	if IsRemote(location) {
		return strings.TrimRight(location, "/") + "/" + name
	}
	return filepath.Join(location, name)
}

// Split returns the parent location and the final component of a staged path.
func Split(path string) (string, string) {
	if IsRemote(path) {
		i := strings.LastIndex(path, "/")
		return path[:i], path[i+1:]
	}
	dir, file := filepath.Split(path)
	return filepath.Clean(dir), file
}

// ValidateName checks that name can be used as an artifact name.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
