//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the YAML configuration shared by the stager and the
// license puller command line tools.
//
// A minimal file looks like:
//
//	log_level: info
//	backend:
//	  type: s3
//	  s3:
//	    bucket: my-bucket
//	    region: ap-guangzhou
//	stage:
//	  staging_location: s3://my-bucket/jobs/42
//	  requirements_file: requirements.txt
//
// ${VAR} references are expanded from the environment before decoding.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-stager-go/license"
	"trpc.group/trpc-go/trpc-stager-go/log"
	"trpc.group/trpc-go/trpc-stager-go/stager"
)

// Backend types.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendCOS    = "cos"
	BackendS3     = "s3"
)

var (
	// ErrUnknownBackend is returned for a backend type that is not supported.
	ErrUnknownBackend = errors.New("config: unknown backend")
	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config is the root of the configuration file.
type Config struct {
	LogLevel  string    `yaml:"log_level"`
	LogFormat string    `yaml:"log_format"`
	Backend   Backend   `yaml:"backend"`
	Stage     Stage     `yaml:"stage"`
	Licenses  Licenses  `yaml:"licenses"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Backend selects and configures the staging backend.
type Backend struct {
	Type  string `yaml:"type"`
	Local Local  `yaml:"local"`
	COS   COS    `yaml:"cos"`
	S3    S3     `yaml:"s3"`
}

// Local configures the local filesystem backend.
type Local struct {
	FileMode os.FileMode `yaml:"file_mode"`
}

// COS configures the Tencent Cloud COS backend. Empty credentials fall back
// to COS_SECRETID and COS_SECRETKEY.
type COS struct {
	BucketURL string        `yaml:"bucket_url"`
	SecretID  string        `yaml:"secret_id"`
	SecretKey string        `yaml:"secret_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// S3 configures the S3 compatible backend. Empty credentials fall back to
// the default AWS credential chain.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	PathStyle       bool   `yaml:"path_style"`
	Retries         int    `yaml:"retries"`
}

// Stage holds the staging request and the stager's tool settings.
type Stage struct {
	StagingLocation   string   `yaml:"staging_location"`
	RequirementsFile  string   `yaml:"requirements_file"`
	RequirementsCache string   `yaml:"requirements_cache"`
	SetupFile         string   `yaml:"setup_file"`
	ExtraPackages     []string `yaml:"extra_packages"`
	Experiments       []string `yaml:"experiments"`
	SDKLocation       string   `yaml:"sdk_location"`
	SaveMainSession   bool     `yaml:"save_main_session"`
	WorkerJar         string   `yaml:"worker_jar"`
	// MainSessionFile is a pickled session written beforehand. It is
	// staged as the main session when SaveMainSession is set.
	MainSessionFile string `yaml:"main_session_file"`

	PythonExecutable string `yaml:"python_executable"`
	SDKVersion       string `yaml:"sdk_version"`
	TempDir          string `yaml:"temp_dir"`
	// Retries is the number of extra attempts for pip downloads.
	Retries int `yaml:"retries"`
}

// Licenses configures the license puller.
type Licenses struct {
	LicenseDir string `yaml:"license_dir"`
	ManualDir  string `yaml:"manual_dir"`
	Overrides  string `yaml:"overrides"`
	// Archive, when set, receives a tar of LicenseDir after a successful pull.
	Archive  string `yaml:"archive"`
	Attempts int    `yaml:"attempts"`
}

// Telemetry configures OTLP export. Nothing is exported unless Enabled.
type Telemetry struct {
	Enabled         bool              `yaml:"enabled"`
	Protocol        string            `yaml:"protocol"`
	TracesEndpoint  string            `yaml:"traces_endpoint"`
	MetricsEndpoint string            `yaml:"metrics_endpoint"`
	Headers         map[string]string `yaml:"headers"`
	ServiceName     string            `yaml:"service_name"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:  log.LevelInfo,
		LogFormat: log.FormatConsole,
		Backend:   Backend{Type: BackendLocal},
		Stage:     Stage{SDKLocation: stager.SDKLocationDefault},
		Licenses: Licenses{
			LicenseDir: license.DefaultLicenseDir,
			ManualDir:  license.DefaultManualDir,
			Overrides:  license.DefaultOverrides,
			Attempts:   3,
		},
	}
}

// Load reads the file at path on top of Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes data on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to open the backend.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendLocal, BackendMemory:
	case BackendCOS:
		if c.Backend.COS.BucketURL == "" {
			return fmt.Errorf("%w: backend.cos.bucket_url is required", ErrInvalidConfig)
		}
	case BackendS3:
		if c.Backend.S3.Bucket == "" {
			return fmt.Errorf("%w: backend.s3.bucket is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend.Type)
	}
	if c.Licenses.Attempts < 0 || c.Stage.Retries < 0 {
		return fmt.Errorf("%w: retry counts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Request converts the stage section into a staging request.
func (s Stage) Request() stager.Request {
	return stager.Request{
		RequirementsFile:  s.RequirementsFile,
		RequirementsCache: s.RequirementsCache,
		SetupFile:         s.SetupFile,
		ExtraPackages:     s.ExtraPackages,
		Experiments:       s.Experiments,
		SDKLocation:       s.SDKLocation,
		SaveMainSession:   s.SaveMainSession,
		WorkerJar:         s.WorkerJar,
		StagingLocation:   s.StagingLocation,
	}
}
