//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Command stager copies the resources a Python pipeline needs onto a staging
// location and prints the manifest token and the staged names as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trpc.group/trpc-go/trpc-stager-go/config"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/stager"
)

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// result is what the command prints on success.
type result struct {
	Token     string   `json:"token"`
	Resources []string `json:"resources"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Errorf("staging failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stager", flag.ContinueOnError)
	var (
		configPath        = fs.String("config", "", "YAML config file")
		requirementsFile  = fs.String("requirements_file", "", "pip requirements file")
		requirementsCache = fs.String("requirements_cache", "", "directory for downloaded requirements")
		setupFile         = fs.String("setup_file", "", "path to setup.py")
		sdkLocation       = fs.String("sdk_location", stager.SDKLocationDefault, "default, container, a URL, a file or a directory")
		saveMainSession   = fs.Bool("save_main_session", false, "stage the pickled main session")
		mainSessionFile   = fs.String("main_session_file", "", "pickled main session to stage")
		workerJar         = fs.String("worker_jar", "", "worker jar to stage as dataflow-worker.jar")
		stagingLocation   = fs.String("staging_location", "", "where artifacts are staged")
		backend           = fs.String("backend", config.BackendLocal, "staging backend: local, cos, s3 or memory")
		pythonExecutable  = fs.String("python", "", "python interpreter, defaults to $BEAM_PYTHON or python3")
		logLevel          = fs.String("log_level", log.LevelInfo, "debug, info, warn, error or fatal")
		extraPackages     stringList
		experiments       stringList
	)
	fs.Var(&extraPackages, "extra_package", "local path or URL of an extra package (repeatable)")
	fs.Var(&experiments, "experiment", "experiment such as jar_packages=a.jar,b.jar (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "requirements_file":
			cfg.Stage.RequirementsFile = *requirementsFile
		case "requirements_cache":
			cfg.Stage.RequirementsCache = *requirementsCache
		case "setup_file":
			cfg.Stage.SetupFile = *setupFile
		case "sdk_location":
			cfg.Stage.SDKLocation = *sdkLocation
		case "save_main_session":
			cfg.Stage.SaveMainSession = *saveMainSession
		case "main_session_file":
			cfg.Stage.MainSessionFile = *mainSessionFile
		case "worker_jar":
			cfg.Stage.WorkerJar = *workerJar
		case "staging_location":
			cfg.Stage.StagingLocation = *stagingLocation
		case "backend":
			cfg.Backend.Type = *backend
		case "python":
			cfg.Stage.PythonExecutable = *pythonExecutable
		case "log_level":
			cfg.LogLevel = *logLevel
		case "extra_package":
			cfg.Stage.ExtraPackages = extraPackages
		case "experiment":
			cfg.Stage.Experiments = experiments
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
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

	b, err := config.OpenBackend(ctx, cfg.Backend, log.Base)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend.Type, err)
	}
	opts := append(cfg.Stage.Options(log.Base), stager.WithFetcher(config.OpenFetcher(b, log.Base)))
	s := stager.New(b, opts...)
	token, names, err := s.StageJobResources(ctx, cfg.Stage.Request())
	if err != nil {
		return err
	}
	log.Infof("staged %d resources to %s", len(names), cfg.Stage.StagingLocation)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result{Token: token, Resources: names})
}
