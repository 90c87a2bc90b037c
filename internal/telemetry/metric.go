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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names.
const (
	MeterNameStager = "trpc_stager_go.stager"

	MetricArtifactsStaged   = "stager.artifacts.staged"
	MetricBytesStaged       = "stager.bytes.staged"
	MetricSubprocessRetries = "stager.subprocess.retries"
)

var (
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	StagerMeter                   metric.Meter        = MeterProvider.Meter(MeterNameStager)
	StagerMetricArtifactsStaged   metric.Int64Counter = noop.Int64Counter{}
	StagerMetricBytesStaged       metric.Int64Counter = noop.Int64Counter{}
	StagerMetricSubprocessRetries metric.Int64Counter = noop.Int64Counter{}
)

// RecordArtifactStaged counts one staged artifact of size bytes.
func RecordArtifactStaged(ctx context.Context, name string, size int64) {
	attrs := metric.WithAttributes(attribute.String(KeyArtifactName, name))
	StagerMetricArtifactsStaged.Add(ctx, 1, attrs)
	StagerMetricBytesStaged.Add(ctx, size, attrs)
}

// IncSubprocessRetry counts one retry of command.
func IncSubprocessRetry(ctx context.Context, command string) {
	StagerMetricSubprocessRetries.Add(ctx, 1,
		metric.WithAttributes(attribute.String(KeyCommand, command)))
}
