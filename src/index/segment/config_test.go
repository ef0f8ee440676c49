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
	"testing"

	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/x/instrument"

	"github.com/stretchr/testify/require"
	validator "gopkg.in/validator.v2"
	yaml "gopkg.in/yaml.v2"
)

func TestConfigurationNewOptions(t *testing.T) {
	str := `
maxPositions: 3
termsPerBlock: 16
allowArrayArcs: false
termsBloomFilterFalsePositivePercent: 0.02
termsIteratorPool:
  size: 8
  watermark:
    low: 0.1
    high: 0.5
`
	var cfg Configuration
	require.NoError(t, yaml.UnmarshalStrict([]byte(str), &cfg))
	require.NoError(t, validator.Validate(cfg))

	opts := cfg.NewOptions(instrument.NewOptions())
	require.NoError(t, opts.Validate())
	require.Equal(t, 3, opts.MaxPositions())
	require.Equal(t, 16, opts.TermsPerBlock())
	require.Equal(t, fst.BuilderOptions{DisableArrayArcs: true}, opts.BuilderOptions())
	require.Equal(t, 8, opts.TermsIteratorPoolOptions().Size())
	require.Equal(t, 0.1, opts.TermsIteratorPoolOptions().RefillLowWatermark())
	require.Equal(t, 0.02, opts.TermsBloomFilterFalsePositivePercent())
}

func TestConfigurationDefaults(t *testing.T) {
	var cfg Configuration
	require.NoError(t, yaml.UnmarshalStrict([]byte("{}"), &cfg))

	opts := cfg.NewOptions(instrument.NewOptions())
	require.NoError(t, opts.Validate())
	require.Equal(t, defaultMaxPositions, opts.MaxPositions())
	require.Equal(t, defaultTermsPerBlock, opts.TermsPerBlock())
	require.Equal(t, fst.BuilderOptions{}, opts.BuilderOptions())
	require.Equal(t, defaultTermsIteratorPoolSize, opts.TermsIteratorPoolOptions().Size())
	require.Equal(t, 0.0, opts.TermsBloomFilterFalsePositivePercent())
}

func TestConfigurationRejectsNegativeValues(t *testing.T) {
	var cfg Configuration
	require.NoError(t, yaml.UnmarshalStrict([]byte("termsPerBlock: -1"), &cfg))
	require.Error(t, validator.Validate(cfg))
}
