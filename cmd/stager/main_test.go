//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-stager-go/config"
)

func TestRun_LocalBackend(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "dep-1.0.tar.gz")
	require.NoError(t, os.WriteFile(pkg, []byte("pkg"), 0o644))
	session := filepath.Join(dir, "session.pkl")
	require.NoError(t, os.WriteFile(session, []byte("pickled"), 0o644))
	location := filepath.Join(dir, "staging")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"-staging_location", location,
		"-sdk_location", "container",
		"-extra_package", pkg,
		"-save_main_session",
		"-main_session_file", session,
	}, &out)
	require.NoError(t, err)

	var res result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, []string{"dep-1.0.tar.gz", "extra_packages.txt", "pickled_main_session"}, res.Resources)
	assert.FileExists(t, res.Token)
	assert.FileExists(t, filepath.Join(location, "pickled_main_session"))
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stager.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
backend:
  type: gcs
stage:
  staging_location: mem://jobs/1
  sdk_location: container
`), 0o644))

	// The file alone names an unsupported backend.
	err := run(context.Background(), []string{"-config", cfgPath}, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrUnknownBackend)

	var out bytes.Buffer
	err = run(context.Background(), []string{"-config", cfgPath, "-backend", "memory"}, &out)
	require.NoError(t, err)
	var res result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Empty(t, res.Resources)
	assert.Contains(t, res.Token, "inmemory://")
}

func TestRun_Errors(t *testing.T) {
	err := run(context.Background(), []string{"-backend", "memory", "-sdk_location", "container"}, &bytes.Buffer{})
	assert.Error(t, err)

	err = run(context.Background(), []string{"-no_such_flag"}, &bytes.Buffer{})
	assert.Error(t, err)

	err = run(context.Background(), []string{"-h"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestStringList(t *testing.T) {
	var l stringList
	require.NoError(t, l.Set("a"))
	require.NoError(t, l.Set("b"))
	assert.Equal(t, "a,b", l.String())
}
