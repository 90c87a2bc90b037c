//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel}, // default branch
	}
	t.Cleanup(func() { SetLevel(LevelInfo) })

	for _, c := range cases {
		SetLevel(c.in)
		assert.Equal(t, c.expected, zapLevel.Level(), "SetLevel(%q)", c.in)
	}
}

func TestPackageHelpersDelegateToDefault(t *testing.T) {
	orig := Default
	t.Cleanup(func() { Default = orig })

	logger := &countLogger{}
	Default = logger

	Debug("d")
	Debugf("d %d", 1)
	Info("i")
	Infof("i %d", 1)
	Warn("w")
	Warnf("w %d", 1)
	Error("e")
	Errorf("e %d", 1)
	Fatal("f")
	Fatalf("f %d", 1)

	assert.Equal(t, 10, logger.calls)
}

func TestContextHelpersUseContextDefault(t *testing.T) {
	ctx := context.Background()

	original := ContextDefault
	t.Cleanup(func() { ContextDefault = original })

	logger := &countLogger{}
	ContextDefault = logger

	InfoContext(ctx, "test")
	InfofContext(ctx, "test %s", "x")
	WarnfContext(ctx, "test %s", "x")
	DebugfContext(ctx, "test %s", "x")
	ErrorfContext(ctx, "test %s", "x")

	assert.Equal(t, 5, logger.calls)
}

func TestSetOutputJSON(t *testing.T) {
	origDefault, origBase, origCtx := Default, Base, ContextDefault
	t.Cleanup(func() {
		Default, Base, ContextDefault = origDefault, origBase, origCtx
	})

	var buf bytes.Buffer
	SetOutput(&buf, FormatJSON)
	Infof("staged %d artifacts", 3)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "staged 3 artifacts", entry["message"])
	assert.Equal(t, "INFO", entry["lvl"])
}

func TestCallerIsTheLoggingSite(t *testing.T) {
	origDefault, origBase, origCtx := Default, Base, ContextDefault
	t.Cleanup(func() {
		Default, Base, ContextDefault = origDefault, origBase, origCtx
	})

	var buf bytes.Buffer
	SetOutput(&buf, FormatJSON)
	var component Logger = Base
	component.Infof("from a component")
	Infof("from a helper")
	InfofContext(context.Background(), "from a context helper")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Contains(t, entry["caller"], "log/log_test.go", entry["message"])
	}
}

type countLogger struct {
	calls int
}

func (c *countLogger) Debug(args ...any)                 { c.calls++ }
func (c *countLogger) Debugf(format string, args ...any) { c.calls++ }
func (c *countLogger) Info(args ...any)                  { c.calls++ }
func (c *countLogger) Infof(format string, args ...any)  { c.calls++ }
func (c *countLogger) Warn(args ...any)                  { c.calls++ }
func (c *countLogger) Warnf(format string, args ...any)  { c.calls++ }
func (c *countLogger) Error(args ...any)                 { c.calls++ }
func (c *countLogger) Errorf(format string, args ...any) { c.calls++ }
func (c *countLogger) Fatal(args ...any)                 { c.calls++ }
func (c *countLogger) Fatalf(format string, args ...any) { c.calls++ }
