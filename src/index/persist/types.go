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

// Package persist reads and writes segments as file sets on disk.
package persist

import (
	"fmt"
	"os"

	"github.com/m3db/m3fst/src/x/instrument"
)

const (
	infoFileSuffix       = "info"
	termsIndexFileSuffix = "terms-index"
	termsDictFileSuffix  = "terms-dict"
	freqFileSuffix       = "freq"
	proxFileSuffix       = "prox"
	digestFileSuffix     = "digest"
	checkpointFileSuffix = "checkpoint"

	fileExtension = ".db"
	separator     = "-"

	digestLen = 4

	defaultNewFileMode      = os.FileMode(0666)
	defaultNewDirectoryMode = os.ModeDir | os.FileMode(0755)
)

// CompressionType is the compression applied to the files of a file set.
type CompressionType uint8

// Supported compression types.
const (
	NoCompression CompressionType = iota
	SnappyCompression
)

var validCompressionTypes = []CompressionType{NoCompression, SnappyCompression}

// Validate returns an error for unknown compression types.
func (c CompressionType) Validate() error {
	for _, valid := range validCompressionTypes {
		if c == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid compression type: %d", c)
}

func (c CompressionType) String() string {
	switch c {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	}
	return "unknown"
}

// UnmarshalYAML unmarshals a compression type from its string form.
func (c *CompressionType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	if str == "" {
		*c = NoCompression
		return nil
	}
	for _, valid := range validCompressionTypes {
		if str == valid.String() {
			*c = valid
			return nil
		}
	}
	return fmt.Errorf("invalid compression type: %q, valid types are: %v", str, validCompressionTypes)
}

// Options are the options for reading and writing file sets.
type Options interface {
	// Validate validates the options.
	Validate() error

	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetCompression sets the compression of written files.
	SetCompression(value CompressionType) Options

	// Compression returns the compression of written files.
	Compression() CompressionType

	// SetNewFileMode sets the mode of new files.
	SetNewFileMode(value os.FileMode) Options

	// NewFileMode returns the mode of new files.
	NewFileMode() os.FileMode

	// SetNewDirectoryMode sets the mode of new directories.
	SetNewDirectoryMode(value os.FileMode) Options

	// NewDirectoryMode returns the mode of new directories.
	NewDirectoryMode() os.FileMode
}
