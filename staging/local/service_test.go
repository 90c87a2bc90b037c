//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-stager-go/staging"
)

func TestService_StageAndCommit(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	loc := filepath.Join(t.TempDir(), "staging")

	a := filepath.Join(src, "a.jar")
	require.NoError(t, os.WriteFile(a, []byte("jar"), 0o600))

	s := NewService(WithFileMode(0o640))
	require.NoError(t, s.StageArtifact(ctx, a, staging.Join(loc, "a.jar")))

	got, err := os.ReadFile(filepath.Join(loc, "a.jar"))
	require.NoError(t, err)
	assert.Equal(t, "jar", string(got))
	fi, err := os.Stat(filepath.Join(loc, "a.jar"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())

	token, err := s.CommitManifest(ctx, loc)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(token))

	data, err := os.ReadFile(token)
	require.NoError(t, err)
	var m staging.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, []string{"a.jar"}, m.Names())
	assert.Equal(t, int64(3), m.Artifacts[0].Size)
}

func TestService_FileURL(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	loc := t.TempDir()

	s := NewService()
	require.NoError(t, s.StageArtifact(ctx, src, "file://"+filepath.ToSlash(filepath.Join(loc, "requirements.txt"))))
	assert.FileExists(t, filepath.Join(loc, "requirements.txt"))
}

func TestService_SameFileIsNotCopied(t *testing.T) {
	ctx := context.Background()
	loc := t.TempDir()
	p := filepath.Join(loc, "extra_packages.txt")
	require.NoError(t, os.WriteFile(p, []byte("a.tar.gz\n"), 0o644))

	s := NewService()
	require.NoError(t, s.StageArtifact(ctx, p, staging.Join(loc, "extra_packages.txt")))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a.tar.gz\n", string(got))
}

func TestService_RejectsRemote(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	s := NewService()
	err := s.StageArtifact(ctx, src, "cos://bucket/r.txt")
	assert.ErrorIs(t, err, ErrRemotePath)

	_, err = s.CommitManifest(ctx, "")
	assert.ErrorIs(t, err, staging.ErrEmptyLocation)
}
