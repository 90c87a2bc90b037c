//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestNewGRPCConn(t *testing.T) {
	conn, err := NewGRPCConn("localhost:4317")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.NoError(t, conn.Close())
}

func TestNewGRPCConn_DialError(t *testing.T) {
	orig := grpcDial
	t.Cleanup(func() { grpcDial = orig })
	grpcDial = func(string, ...grpc.DialOption) (*grpc.ClientConn, error) {
		return nil, errors.New("dial failed")
	}

	_, err := NewGRPCConn("localhost:4317")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial failed")
}

func TestNoopRecordersDoNotPanic(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordArtifactStaged(ctx, "requirements.txt", 12)
		IncSubprocessRetry(ctx, "pip download")
	})
}
