//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the tracing and metric state shared by the stager
// and the license puller. Everything defaults to noop until the exported
// telemetry packages install real providers.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcDial is a package-level variable to allow test injection of a custom dialer.
var grpcDial = grpc.Dial

// telemetry service constants.
const (
	ServiceName      = "trpc-stager-go"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-stager"
	InstrumentName   = "trpc.stager.go"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// Span names.
const (
	SpanStageJobResources = "stage_job_resources"
	SpanPullLicenses      = "pull_licenses"
)

// Attribute keys.
const (
	KeyStagingLocation = "stager.staging_location"
	KeyStep            = "stager.step"
	KeyArtifactName    = "stager.artifact.name"
	KeyArtifactCount   = "stager.artifact.count"
	KeyCommand         = "stager.command"
	KeyDependency      = "license.dependency"
)

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpcDial(endpoint,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
