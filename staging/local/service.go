//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a staging backend that copies artifacts into a
// directory on the local (or a mounted shared) filesystem.
//
// Staged paths are plain filesystem paths or file:// URLs. The manifest is
// written as MANIFEST-{id}.json inside the staging location and its absolute
// path is the retrieval token.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-stager-go/internal/fsutil"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/staging"
)

const fileScheme = "file://"

// ErrRemotePath is returned when a non file:// URL is given to the local backend.
var ErrRemotePath = errors.New("local staging: remote paths are not supported")

var _ staging.Backend = (*Service)(nil)

// Service stages artifacts on the local filesystem.
type Service struct {
	staging.Recorder

	fileMode os.FileMode
	logger   log.Logger
}

// Option configures the local backend.
type Option func(*Service)

// WithFileMode sets the permission bits applied to staged files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Service) { s.fileMode = mode }
}

// WithLogger sets the logger. Defaults to log.Base.
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a local staging backend.
func NewService(opts ...Option) *Service {
	s := &Service{
		fileMode: 0o644,
		logger:   log.Base,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageArtifact copies localPath to stagedPath.
func (s *Service) StageArtifact(ctx context.Context, localPath, stagedPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := resolve(stagedPath)
	if err != nil {
		return err
	}
	entry, err := staging.Describe(localPath, dst)
	if err != nil {
		return err
	}

	if same, _ := sameFile(localPath, dst); !same {
		if err := fsutil.CopyFile(localPath, dst); err != nil {
			return fmt.Errorf("stage %s: %w", entry.Name, err)
		}
		if err := os.Chmod(dst, s.fileMode); err != nil {
			return fmt.Errorf("chmod %s: %w", dst, err)
		}
	}
	s.logger.Debugf("staged %s to %s (%d bytes)", localPath, dst, entry.Size)

	entry.Path = stagedPath
	s.Record(entry)
	return nil
}

// CommitManifest writes the manifest into stagingLocation.
func (s *Service) CommitManifest(ctx context.Context, stagingLocation string) (string, error) {
	if stagingLocation == "" {
		return "", staging.ErrEmptyLocation
	}
	dir, err := resolve(stagingLocation)
	if err != nil {
		return "", err
	}
	m := s.Seal()
	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging location: %w", err)
	}
	path := filepath.Join(dir, m.FileName())
	if err := os.WriteFile(path, data, s.fileMode); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.Reset()
	s.logger.Infof("committed manifest %s with %d artifacts", path, len(m.Artifacts))
	return path, nil
}

// resolve turns a staged path or location into a filesystem path.
func resolve(p string) (string, error) {
	if strings.HasPrefix(p, fileScheme) {
		return filepath.FromSlash(strings.TrimPrefix(p, fileScheme)), nil
	}
	if staging.IsRemote(p) {
		return "", fmt.Errorf("%w: %s", ErrRemotePath, p)
	}
	return p, nil
}

func sameFile(a, b string) (bool, error) {
	fa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(fa, fb), nil
}
