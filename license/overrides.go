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
	"fmt"
	"os"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Special values of Override.License.
const (
	LicenseSkip   = "skip"
	LicenseManual = "manual"
)

// Override tells the puller where to find the license of a dependency that
// pip-licenses could not resolve.
type Override struct {
	// License is "skip", "manual" or the URL of the raw license text.
	License string `yaml:"license"`
	// Notice is an optional URL of a NOTICE file.
	Notice string `yaml:"notice,omitempty"`
}

// Overrides is the override config file.
type Overrides struct {
	PipDependencies map[string]Override `yaml:"pip_dependencies"`

	folded map[string]Override
}

// ParseOverrides decodes an override config.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode license overrides: %w", err)
	}
	o.index()
	return &o, nil
}

// LoadOverrides reads and decodes the override config at path.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read license overrides: %w", err)
	}
	return ParseOverrides(data)
}

func (o *Overrides) index() {
	fold := cases.Fold()
	o.folded = make(map[string]Override, len(o.PipDependencies))
	for name, ov := range o.PipDependencies {
		o.folded[fold.String(name)] = ov
	}
}

// Lookup returns the override for dependency name, matching case-insensitively.
func (o *Overrides) Lookup(name string) (Override, bool) {
	if o == nil {
		return Override{}, false
	}
	if o.folded == nil {
		o.index()
	}
	ov, ok := o.folded[cases.Fold().String(name)]
	return ov, ok
}
