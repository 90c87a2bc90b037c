//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-stager-go/staging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestService_StageAndCommit(t *testing.T) {
	ctx := context.Background()
	s := NewService()
	dir := t.TempDir()
	loc := "cos://bucket/job"

	require.NoError(t, s.StageArtifact(ctx, writeFile(t, dir, "r.txt", "numpy"), staging.Join(loc, "requirements.txt")))
	require.NoError(t, s.StageArtifact(ctx, writeFile(t, dir, "w.tar.gz", "tar"), staging.Join(loc, "workflow.tar.gz")))

	data, ok := s.Object("cos://bucket/job/requirements.txt")
	require.True(t, ok)
	assert.Equal(t, "numpy", string(data))
	assert.Equal(t, []string{
		"cos://bucket/job/requirements.txt",
		"cos://bucket/job/workflow.tar.gz",
	}, s.Paths())

	token, err := s.CommitManifest(ctx, loc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "inmemory://cos://bucket/job/MANIFEST-"))

	m := s.Manifest(token)
	require.NotNil(t, m)
	assert.Equal(t, []string{"requirements.txt", "workflow.tar.gz"}, m.Names())
	assert.Empty(t, s.Pending())
	assert.Equal(t, 1, s.Manifests())
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewService()

	err := s.StageArtifact(ctx, filepath.Join(t.TempDir(), "missing"), "loc/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.CommitManifest(ctx, "")
	assert.ErrorIs(t, err, staging.ErrEmptyLocation)
	assert.Nil(t, s.Manifest("inmemory://unknown"))
}
