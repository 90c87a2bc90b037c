//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAndSplit(t *testing.T) {
	tests := []struct {
		location string
		name     string
		want     string
	}{
		{"cos://bucket/jobs/1", "requirements.txt", "cos://bucket/jobs/1/requirements.txt"},
		{"s3://bucket/jobs/1/", "workflow.tar.gz", "s3://bucket/jobs/1/workflow.tar.gz"},
		{filepath.Join("tmp", "stage"), "a.jar", filepath.Join("tmp", "stage", "a.jar")},
	}
	for _, tt := range tests {
		got := Join(tt.location, tt.name)
		assert.Equal(t, tt.want, got)

		dir, file := Split(got)
		assert.Equal(t, tt.name, file)
		assert.Equal(t, filepath.ToSlash(Join(dir, file)), filepath.ToSlash(got))
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/pkg.tar.gz"))
	assert.True(t, IsRemote("cos://bucket/key"))
	assert.False(t, IsRemote("/tmp/pkg.tar.gz"))
	assert.False(t, IsRemote("pkg.tar.gz"))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("extra_packages.txt"))
	assert.ErrorIs(t, ValidateName(""), ErrEmptyName)
	assert.ErrorIs(t, ValidateName("a/b.txt"), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(`a\b.txt`), ErrInvalidName)
	assert.ErrorIs(t, ValidateName(".."), ErrInvalidName)
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pkg.whl")
	require.NoError(t, os.WriteFile(src, []byte("wheel"), 0o644))

	e, err := Describe(src, "cos://bucket/job/pkg.whl")
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("wheel"))
	assert.Equal(t, ManifestEntry{
		Name:   "pkg.whl",
		Path:   "cos://bucket/job/pkg.whl",
		Size:   5,
		SHA256: hex.EncodeToString(sum[:]),
	}, e)

	_, err = Describe(filepath.Join(dir, "missing"), "cos://bucket/job/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecorder_OrderAndOverwrite(t *testing.T) {
	var r Recorder
	r.Record(ManifestEntry{Name: "b", Path: "loc/b", Size: 1})
	r.Record(ManifestEntry{Name: "a", Path: "loc/a", Size: 2})
	r.Record(ManifestEntry{Name: "b", Path: "loc/b", Size: 3})

	m := r.Seal()
	require.NotEmpty(t, m.ID)
	assert.Equal(t, []string{"b", "a"}, m.Names())
	assert.Equal(t, int64(3), m.Artifacts[0].Size)
	assert.Equal(t, "MANIFEST-"+m.ID+".json", m.FileName())

	// Seal keeps entries until Reset.
	assert.Len(t, r.Pending(), 2)
	r.Reset()
	assert.Empty(t, r.Pending())
}

func TestManifestMarshal(t *testing.T) {
	var r Recorder
	r.Record(ManifestEntry{Name: "requirements.txt", Path: "loc/requirements.txt"})
	m := r.Seal()

	data, err := m.Marshal()
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, []string{"requirements.txt"}, decoded.Names())
}
