//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package stager

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInputFile is returned when a file named by the request does
	// not exist.
	ErrMissingInputFile = errors.New("stager: input file not found")

	// ErrInvalidFileName is returned when a file does not have the name or
	// extension its option requires.
	ErrInvalidFileName = errors.New("stager: invalid file name")

	// ErrDuplicateName is returned when two inputs of one call would be
	// staged under the same name. It matches ErrInvalidFileName.
	ErrDuplicateName = fmt.Errorf("%w: duplicate staged name", ErrInvalidFileName)

	// ErrSubprocessFailure is returned when pip or setup.py fails or does not
	// produce the expected output.
	ErrSubprocessFailure = errors.New("stager: subprocess failed")

	// ErrRemoteFetch is returned when a remote package cannot be downloaded.
	ErrRemoteFetch = errors.New("stager: remote fetch failed")

	// ErrUnsupportedSDKLocation is returned for SDK locations that cannot be
	// resolved.
	ErrUnsupportedSDKLocation = errors.New("stager: unsupported sdk location")

	// ErrMissingStagingLocation is returned when the request has no staging
	// location.
	ErrMissingStagingLocation = errors.New("stager: staging location must be specified")

	// ErrSessionSaverMissing is returned when the main session must be saved
	// but no SessionSaver was configured.
	ErrSessionSaverMissing = errors.New("stager: save_main_session requires a session saver")
)
