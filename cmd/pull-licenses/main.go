//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Command pull-licenses collects the license of every installed Python
// dependency into one directory.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"trpc.group/trpc-go/trpc-stager-go/config"
	"trpc.group/trpc-go/trpc-stager-go/license"
	"trpc.group/trpc-go/trpc-stager-go/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], license.New); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

// newPuller matches license.New so tests can inject a runner.
type newPuller func(licenseDir string, overrides *license.Overrides, opts ...license.Option) *license.Puller

func run(ctx context.Context, args []string, newP newPuller) error {
	fs := flag.NewFlagSet("pull-licenses", flag.ContinueOnError)
	defaults := config.Default().Licenses
	var (
		configPath = fs.String("config", "", "YAML config file")
		licenseDir = fs.String("license_dir", defaults.LicenseDir, "directory the licenses are written to")
		overrides  = fs.String("overrides", defaults.Overrides, "YAML file with pip_dependencies overrides")
		manualDir  = fs.String("manual_dir", defaults.ManualDir, "directory holding manually collected licenses")
		archive    = fs.String("archive", "", "write a tar of the license directory to this path")
		logLevel   = fs.String("log_level", log.LevelInfo, "debug, info, warn, error or fatal")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "license_dir":
			cfg.Licenses.LicenseDir = *licenseDir
		case "overrides":
			cfg.Licenses.Overrides = *overrides
		case "manual_dir":
			cfg.Licenses.ManualDir = *manualDir
		case "archive":
			cfg.Licenses.Archive = *archive
		case "log_level":
			cfg.LogLevel = *logLevel
		}
	})
	log.SetLevel(cfg.LogLevel)

	stopTelemetry, err := cfg.Telemetry.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := stopTelemetry(); err != nil {
			log.Warnf("flush telemetry: %v", err)
		}
	}()

	ov, err := license.LoadOverrides(cfg.Licenses.Overrides)
	if err != nil {
		return err
	}
	p := newP(cfg.Licenses.LicenseDir, ov, cfg.Licenses.Options(log.Base)...)
	if err := p.Pull(ctx); err != nil {
		return err
	}
	if cfg.Licenses.Archive != "" {
		if err := license.Archive(cfg.Licenses.LicenseDir, cfg.Licenses.Archive); err != nil {
			return err
		}
		log.Infof("wrote license archive %s", cfg.Licenses.Archive)
	}
	return nil
}
