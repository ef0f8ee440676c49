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
	"errors"
	"fmt"

	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/x/instrument"
	"github.com/m3db/m3fst/src/x/pool"
)

const (
	defaultMaxPositions          = 1
	defaultTermsPerBlock         = 32
	defaultTermsIteratorPoolSize = 64
)

var (
	errNoInstrumentOptions = errors.New("no instrument options")
	errNoIteratorPoolOpts  = errors.New("no terms iterator pool options")
)

type opts struct {
	iopts            instrument.Options
	maxPositions     int
	termsPerBlock    int
	builderOpts      fst.BuilderOptions
	iteratorPoolOpts pool.ObjectPoolOptions
	bloomFPPercent   float64
}

// NewOptions returns new options.
func NewOptions() Options {
	iopts := instrument.NewOptions()
	poolOpts := pool.NewObjectPoolOptions().
		SetSize(defaultTermsIteratorPoolSize).
		SetInstrumentOptions(iopts)
	return &opts{
		iopts:            iopts,
		maxPositions:     defaultMaxPositions,
		termsPerBlock:    defaultTermsPerBlock,
		iteratorPoolOpts: poolOpts,
	}
}

func (o *opts) Validate() error {
	if o.iopts == nil {
		return errNoInstrumentOptions
	}
	if o.maxPositions < 1 {
		return fmt.Errorf("max positions must be positive: %d", o.maxPositions)
	}
	if o.termsPerBlock < 1 {
		return fmt.Errorf("terms per block must be positive: %d", o.termsPerBlock)
	}
	if o.builderOpts.MaxShareTailLength < 0 {
		return fmt.Errorf("max share tail length must not be negative: %d",
			o.builderOpts.MaxShareTailLength)
	}
	if o.iteratorPoolOpts == nil {
		return errNoIteratorPoolOpts
	}
	if o.bloomFPPercent < 0 || o.bloomFPPercent >= 1 {
		return fmt.Errorf("bloom filter false positive percent must be in [0, 1): %v",
			o.bloomFPPercent)
	}
	return nil
}

func (o *opts) SetInstrumentOptions(v instrument.Options) Options {
	opts := *o
	opts.iopts = v
	return &opts
}

func (o *opts) InstrumentOptions() instrument.Options {
	return o.iopts
}

func (o *opts) SetMaxPositions(v int) Options {
	opts := *o
	opts.maxPositions = v
	return &opts
}

func (o *opts) MaxPositions() int {
	return o.maxPositions
}

func (o *opts) SetTermsPerBlock(v int) Options {
	opts := *o
	opts.termsPerBlock = v
	return &opts
}

func (o *opts) TermsPerBlock() int {
	return o.termsPerBlock
}

func (o *opts) SetBuilderOptions(v fst.BuilderOptions) Options {
	opts := *o
	opts.builderOpts = v
	return &opts
}

func (o *opts) BuilderOptions() fst.BuilderOptions {
	return o.builderOpts
}

func (o *opts) SetTermsIteratorPoolOptions(v pool.ObjectPoolOptions) Options {
	opts := *o
	opts.iteratorPoolOpts = v
	return &opts
}

func (o *opts) TermsIteratorPoolOptions() pool.ObjectPoolOptions {
	return o.iteratorPoolOpts
}

func (o *opts) SetTermsBloomFilterFalsePositivePercent(v float64) Options {
	opts := *o
	opts.bloomFPPercent = v
	return &opts
}

func (o *opts) TermsBloomFilterFalsePositivePercent() float64 {
	return o.bloomFPPercent
}
