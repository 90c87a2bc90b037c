//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Success(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner()

	res, err := r.Run(context.Background(), dir, "sh", "-c", "pwd; echo warn 1>&2")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(string(res.Stdout[:len(res.Stdout)-1]))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "warn\n", string(res.Stderr))
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewExecRunner()
	_, err := r.Run(context.Background(), "", "sh", "-c", "echo boom 1>&2; exit 3")
	require.Error(t, err)

	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.Code)
	assert.Contains(t, ee.Error(), "boom")
	assert.Contains(t, ee.Error(), "exit status 3")
	assert.True(t, IsNonZeroExit(err))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner()
	_, err := r.Run(context.Background(), "", "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.False(t, IsNonZeroExit(err))
}

func TestExecRunner_Env(t *testing.T) {
	r := NewExecRunner(WithEnv("STAGER_TEST_VALUE=42"))
	res, err := r.Run(context.Background(), "", "sh", "-c", "printf %s \"$STAGER_TEST_VALUE\"")
	require.NoError(t, err)
	assert.Equal(t, "42", string(res.Stdout))
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner(WithTimeout(50 * time.Millisecond))
	start := time.Now()
	_, err := r.Run(context.Background(), "", "sleep", "5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	f := RunnerFunc(func(ctx context.Context, dir, name string, args ...string) (Result, error) {
		got = append([]string{dir, name}, args...)
		return Result{Stdout: []byte("ok")}, nil
	})
	res, err := f.Run(context.Background(), "/tmp", "pip", "show", "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Stdout))
	assert.Equal(t, []string{"/tmp", "pip", "show", "x"}, got)
}

func TestIsNonZeroExit(t *testing.T) {
	assert.False(t, IsNonZeroExit(nil))
	assert.False(t, IsNonZeroExit(errors.New("x")))
	assert.False(t, IsNonZeroExit(&ExitError{Code: 0}))
	assert.True(t, IsNonZeroExit(&ExitError{Code: 1}))
	assert.False(t, IsNonZeroExit(os.ErrNotExist))
}
