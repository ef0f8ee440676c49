// Copyright (c) 2021 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package config provides utilities for loading YAML configuration files.
package config

import (
	"errors"
	"os"

	"go.uber.org/config"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

var errNoFilesToLoad = errors.New("attempt to load config with no files")

// Options is an options set used when parsing config.
type Options struct {
	// DisableUnmarshalStrict disables strict unmarshalling, so unknown keys
	// are ignored.
	DisableUnmarshalStrict bool

	// DisableValidate disables running struct validation.
	DisableValidate bool

	// Expand enables environment variable expansion of ${VAR} and
	// ${VAR:default} values.
	Expand bool
}

// LoadFile loads a config from a file.
func LoadFile(dst interface{}, file string, opts Options) error {
	return LoadFiles(dst, []string{file}, opts)
}

// LoadFiles loads a config from list of files. If value for a property is
// present in multiple files, the value from the last file will be applied.
// Validation is done after merging all values.
func LoadFiles(dst interface{}, files []string, opts Options) error {
	if len(files) == 0 {
		return errNoFilesToLoad
	}

	yamlOpts := make([]config.YAMLOption, 0, len(files)+2)
	for _, name := range files {
		yamlOpts = append(yamlOpts, config.File(name))
	}
	if opts.DisableUnmarshalStrict {
		yamlOpts = append(yamlOpts, config.Permissive())
	}
	if opts.Expand {
		yamlOpts = append(yamlOpts, config.Expand(os.LookupEnv))
	}

	provider, err := config.NewYAML(yamlOpts...)
	if err != nil {
		return err
	}

	if err := provider.Get(config.Root).Populate(dst); err != nil {
		return err
	}

	if opts.DisableValidate {
		return nil
	}

	return validator.Validate(dst)
}

// Dump returns the YAML encoding of the given config.
func Dump(cfg interface{}) ([]byte, error) {
	return yaml.Marshal(cfg)
}
