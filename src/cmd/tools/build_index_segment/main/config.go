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

package main

import (
	"fmt"

	"github.com/m3db/m3fst/src/index/persist"
	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/segment"
)

// configuration is the configuration of the build tool.
type configuration struct {
	// Fields are the indexed fields, other document fields are ignored.
	Fields []fieldConfiguration `yaml:"fields" validate:"nonzero"`

	// Segment configures the segment writer.
	Segment segment.Configuration `yaml:"segment"`

	// Persist configures the written file set.
	Persist persist.Configuration `yaml:"persist"`

	// Output is where the file set is written.
	Output outputConfiguration `yaml:"output"`
}

type fieldConfiguration struct {
	Name          string                `yaml:"name" validate:"nonzero"`
	IndexOptions  postings.IndexOptions `yaml:"indexOptions"`
	StorePayloads bool                  `yaml:"storePayloads"`
}

type outputConfiguration struct {
	Dir    string `yaml:"dir" validate:"nonzero"`
	Prefix string `yaml:"prefix" validate:"nonzero"`
}

// fieldInfos returns the configured fields sorted by name.
func (c configuration) fieldInfos() ([]postings.FieldInfo, error) {
	seen := make(map[string]struct{}, len(c.Fields))
	infos := make([]postings.FieldInfo, 0, len(c.Fields))
	for i, f := range c.Fields {
		if _, ok := seen[f.Name]; ok {
			return nil, fmt.Errorf("duplicate field: %s", f.Name)
		}
		seen[f.Name] = struct{}{}
		infos = append(infos, postings.FieldInfo{
			Name:          f.Name,
			Number:        i,
			IndexOptions:  f.IndexOptions,
			StorePayloads: f.StorePayloads,
		})
	}
	return sortFieldInfos(infos), nil
}
