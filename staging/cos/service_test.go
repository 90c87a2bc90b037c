//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"context"
	"encoding/json"
	"hash/crc64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-stager-go/staging"
)

// fakeCOS accepts PUT Object requests and keeps the uploaded bodies.
type fakeCOS struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	status  int
}

func newFakeCOS(t *testing.T) (*fakeCOS, *httptest.Server) {
	t.Helper()
	f := &fakeCOS{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		status:  http.StatusOK,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodGet:
			f.mu.Lock()
			data, ok := f.objects[key]
			f.mu.Unlock()
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`))
				return
			}
			w.Write(data)
			return
		case http.MethodPut:
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		status := f.status
		if status == http.StatusOK {
			f.objects[key] = body
			f.types[key] = r.Header.Get("Content-Type")
		}
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		crc := crc64.Checksum(body, crc64.MakeTable(crc64.ECMA))
		w.Header().Set("x-cos-hash-crc64ecma", strconv.FormatUint(crc, 10))
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestService_StageAndCommit(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeCOS(t)

	s, err := NewService(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	dir := t.TempDir()
	req := filepath.Join(dir, "requirements.txt")
	require.NoError(t, os.WriteFile(req, []byte("numpy==1.26.0\n"), 0o644))
	jar := filepath.Join(dir, "a.jar")
	require.NoError(t, os.WriteFile(jar, []byte("jar"), 0o644))

	loc := "cos://bucket/jobs/42"
	require.NoError(t, s.StageArtifact(ctx, req, staging.Join(loc, "requirements.txt")))
	require.NoError(t, s.StageArtifact(ctx, jar, staging.Join(loc, "a.jar")))

	token, err := s.CommitManifest(ctx, loc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "jobs/42/MANIFEST-"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "numpy==1.26.0\n", string(fake.objects["jobs/42/requirements.txt"]))
	assert.Equal(t, "jar", string(fake.objects["jobs/42/a.jar"]))
	assert.Equal(t, staging.ManifestContentType, fake.types[token])

	var m staging.Manifest
	require.NoError(t, json.Unmarshal(fake.objects[token], &m))
	assert.Equal(t, []string{"requirements.txt", "a.jar"}, m.Names())
	assert.Empty(t, s.Pending())
}

func TestService_UploadFailureKeepsManifestPending(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeCOS(t)
	s, err := NewService(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "x.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip"), 0o644))
	require.NoError(t, s.StageArtifact(ctx, src, "jobs/1/x.zip"))

	fake.mu.Lock()
	fake.status = http.StatusForbidden
	fake.mu.Unlock()

	_, err = s.CommitManifest(ctx, "jobs/1")
	require.Error(t, err)
	assert.Len(t, s.Pending(), 1)
}

func TestService_Fetch(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeCOS(t)
	fake.objects["deps/dep-1.0.tar.gz"] = []byte("dep")
	s, err := NewService(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	dir := t.TempDir()
	dst := filepath.Join(dir, "dl", "dep-1.0.tar.gz")
	require.NoError(t, s.Fetch(ctx, "cos://bucket/deps/dep-1.0.tar.gz", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "dep", string(data))

	missing := filepath.Join(dir, "dl", "gone.tar.gz")
	err = s.Fetch(ctx, "cos://bucket/deps/gone.tar.gz", missing)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoFileExists(t, missing)

	assert.ErrorIs(t, s.Fetch(ctx, "s3://bucket/deps/dep-1.0.tar.gz", missing), ErrNotCOSURL)
	assert.ErrorIs(t, s.Fetch(ctx, "cos://bucket", missing), staging.ErrEmptyName)
}

func TestNewService_InvalidURL(t *testing.T) {
	_, err := NewService("not a url")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cos://bucket/jobs/1/a.jar", "jobs/1/a.jar"},
		{"/jobs/1/a.jar", "jobs/1/a.jar"},
		{"jobs/1/a.jar", "jobs/1/a.jar"},
	}
	for _, tt := range tests {
		got, err := objectKey(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := objectKey("cos://bucket")
	assert.ErrorIs(t, err, staging.ErrEmptyName)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("m.json"))
	assert.Equal(t, defaultContentType, contentType("pickled_main_session"))
}
