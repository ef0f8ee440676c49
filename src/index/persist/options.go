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

package persist

import (
	"errors"
	"os"

	"github.com/m3db/m3fst/src/x/instrument"
)

var errNoInstrumentOptions = errors.New("no instrument options")

type options struct {
	iopts       instrument.Options
	compression CompressionType
	fileMode    os.FileMode
	dirMode     os.FileMode
}

// NewOptions returns new options.
func NewOptions() Options {
	return &options{
		iopts:       instrument.NewOptions(),
		compression: NoCompression,
		fileMode:    defaultNewFileMode,
		dirMode:     defaultNewDirectoryMode,
	}
}

func (o *options) Validate() error {
	if o.iopts == nil {
		return errNoInstrumentOptions
	}
	return o.compression.Validate()
}

func (o *options) SetInstrumentOptions(value instrument.Options) Options {
	opts := *o
	opts.iopts = value
	return &opts
}

func (o *options) InstrumentOptions() instrument.Options {
	return o.iopts
}

func (o *options) SetCompression(value CompressionType) Options {
	opts := *o
	opts.compression = value
	return &opts
}

func (o *options) Compression() CompressionType {
	return o.compression
}

func (o *options) SetNewFileMode(value os.FileMode) Options {
	opts := *o
	opts.fileMode = value
	return &opts
}

func (o *options) NewFileMode() os.FileMode {
	return o.fileMode
}

func (o *options) SetNewDirectoryMode(value os.FileMode) Options {
	opts := *o
	opts.dirMode = value
	return &opts
}

func (o *options) NewDirectoryMode() os.FileMode {
	return o.dirMode
}

// Configuration configures file set persistence.
type Configuration struct {
	// Compression is the compression of written files, none or snappy.
	Compression CompressionType `yaml:"compression"`
}

// NewOptions creates options from the configuration.
func (c Configuration) NewOptions(iopts instrument.Options) Options {
	return NewOptions().
		SetInstrumentOptions(iopts).
		SetCompression(c.Compression)
}
