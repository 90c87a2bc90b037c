//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory implementation of the staging backend.
package inmemory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-stager-go/staging"
)

// tokenScheme prefixes the retrieval tokens handed out by this backend.
const tokenScheme = "inmemory://"

var _ staging.Backend = (*Service)(nil)

// Service is an in-memory implementation of the staging backend.
// It is suitable for testing and dry runs.
type Service struct {
	staging.Recorder

	// objects stores staged file contents by staged path
	objects map[string][]byte
	// manifests stores committed manifests by retrieval token
	manifests map[string]*staging.Manifest
	// mutex protects concurrent access to the maps
	mutex sync.RWMutex
}

// NewService creates a new in-memory staging backend.
func NewService() *Service {
	return &Service{
		objects:   make(map[string][]byte),
		manifests: make(map[string]*staging.Manifest),
	}
}

// StageArtifact reads localPath into memory under stagedPath.
func (s *Service) StageArtifact(ctx context.Context, localPath, stagedPath string) error {
	entry, err := staging.Describe(localPath, stagedPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	s.mutex.Lock()
	s.objects[stagedPath] = data
	s.mutex.Unlock()

	s.Record(entry)
	return nil
}

// CommitManifest stores the pending manifest and returns its token.
func (s *Service) CommitManifest(ctx context.Context, stagingLocation string) (string, error) {
	if stagingLocation == "" {
		return "", staging.ErrEmptyLocation
	}
	m := s.Seal()
	token := tokenScheme + staging.Join(stagingLocation, m.FileName())

	s.mutex.Lock()
	s.manifests[token] = m
	s.mutex.Unlock()

	s.Reset()
	return token, nil
}

// Object returns the contents staged at stagedPath.
func (s *Service) Object(stagedPath string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, ok := s.objects[stagedPath]
	return data, ok
}

// Paths lists every staged path in lexical order.
func (s *Service) Paths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Manifest returns the manifest committed under token, or nil.
func (s *Service) Manifest(token string) *staging.Manifest {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.manifests[token]
}

// Manifests returns the number of committed manifests.
func (s *Service) Manifests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.manifests)
}
