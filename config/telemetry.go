//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-stager-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-stager-go/telemetry/trace"
)

// Start installs the trace and meter providers when telemetry is enabled.
// The returned function flushes both and is safe to call when disabled.
func (t Telemetry) Start(ctx context.Context) (func() error, error) {
	if !t.Enabled {
		return func() error { return nil }, nil
	}

	traceOpts := []trace.Option{}
	metricOpts := []metric.Option{}
	if t.Protocol != "" {
		traceOpts = append(traceOpts, trace.WithProtocol(t.Protocol))
		metricOpts = append(metricOpts, metric.WithProtocol(t.Protocol))
	}
	if t.ServiceName != "" {
		traceOpts = append(traceOpts, trace.WithServiceName(t.ServiceName))
		metricOpts = append(metricOpts, metric.WithServiceName(t.ServiceName))
	}
	if t.TracesEndpoint != "" {
		traceOpts = append(traceOpts, trace.WithEndpoint(t.TracesEndpoint))
	}
	if len(t.Headers) > 0 {
		traceOpts = append(traceOpts, trace.WithHeaders(t.Headers))
	}
	if t.MetricsEndpoint != "" {
		metricOpts = append(metricOpts, metric.WithEndpoint(t.MetricsEndpoint))
	}

	stopTrace, err := trace.Start(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("start tracing: %w", err)
	}
	mp, err := metric.NewMeterProvider(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("start metrics: %w", err), stopTrace())
	}
	if err := metric.InitMeterProvider(mp); err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx), stopTrace())
	}
	return func() error {
		return errors.Join(mp.Shutdown(context.Background()), stopTrace())
	}, nil
}
