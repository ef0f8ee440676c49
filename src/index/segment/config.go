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

package segment

import (
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/x/instrument"
	"github.com/m3db/m3fst/src/x/pool"
)

// Configuration configures segment writers and readers.
type Configuration struct {
	// MaxPositions is the number of positions up to which postings are
	// inlined into the terms dictionary.
	MaxPositions int `yaml:"maxPositions" validate:"min=0"`

	// TermsPerBlock is the number of terms per terms dictionary block.
	TermsPerBlock int `yaml:"termsPerBlock" validate:"min=0"`

	// AllowArrayArcs enables fixed array nodes in the terms FSTs, it
	// defaults to true.
	AllowArrayArcs *bool `yaml:"allowArrayArcs"`

	// DisableSuffixSharing builds the terms FSTs as tries.
	DisableSuffixSharing bool `yaml:"disableSuffixSharing"`

	// TermsIteratorPool configures the terms iterator pool.
	TermsIteratorPool *pool.ObjectPoolConfiguration `yaml:"termsIteratorPool"`

	// TermsBloomFilterFalsePositivePercent enables per field terms bloom
	// filters checked before exact seeks.
	TermsBloomFilterFalsePositivePercent float64 `yaml:"termsBloomFilterFalsePositivePercent" validate:"min=0.0,max=1.0"`
}

// NewOptions creates segment options from the configuration.
func (c Configuration) NewOptions(iopts instrument.Options) Options {
	opts := NewOptions().SetInstrumentOptions(iopts)
	if c.MaxPositions != 0 {
		opts = opts.SetMaxPositions(c.MaxPositions)
	}
	if c.TermsPerBlock != 0 {
		opts = opts.SetTermsPerBlock(c.TermsPerBlock)
	}

	builderOpts := fst.BuilderOptions{
		DisableSuffixSharing: c.DisableSuffixSharing,
	}
	if c.AllowArrayArcs != nil {
		builderOpts.DisableArrayArcs = !*c.AllowArrayArcs
	}
	opts = opts.SetBuilderOptions(builderOpts).
		SetTermsBloomFilterFalsePositivePercent(c.TermsBloomFilterFalsePositivePercent)

	if c.TermsIteratorPool != nil {
		scope := iopts.MetricsScope().SubScope("terms-iterator-pool")
		opts = opts.SetTermsIteratorPoolOptions(c.TermsIteratorPool.NewObjectPoolOptions(
			iopts.SetMetricsScope(scope)))
	}
	return opts
}
