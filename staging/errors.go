//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package staging

import "errors"

var (
	// ErrEmptyName is returned when an artifact name is empty.
	ErrEmptyName = errors.New("staging: artifact name cannot be empty")

	// ErrInvalidName is returned when an artifact name contains a path component.
	ErrInvalidName = errors.New("staging: artifact name must not contain a path")

	// ErrEmptyLocation is returned when a manifest is committed without a location.
	ErrEmptyLocation = errors.New("staging: staging location cannot be empty")
)
