//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package license

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCommandFailed is returned when pip-licenses exits non-zero or writes
// to stderr.
var ErrCommandFailed = errors.New("license: pip-licenses failed")

const remediation = "These licenses were not able to be pulled automatically. " +
	"Please search the source of each dependency and add a URL to its raw " +
	"license file under pip_dependencies in the override config, then rerun. " +
	"If no such URL exists, add LICENSE and NOTICE (if possible) files to " +
	"<manual_dir>/<dependency>/ and set its license to \"manual\" in the " +
	"override config."

// MissingLicensesError lists the dependencies no license could be found for.
type MissingLicensesError struct {
	Names []string
}

func (e *MissingLicensesError) Error() string {
	return fmt.Sprintf("some dependencies are missing licenses: [%s]\n%s",
		strings.Join(e.Names, ", "), remediation)
}
