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

package fst

import (
	"bytes"
	"math/rand"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sortedUnique(keys [][]byte) [][]byte {
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	out := keys[:0]
	for i, k := range keys {
		if i > 0 && bytes.Equal(k, keys[i-1]) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// propOutput makes sibling inputs share outputs often enough to exercise
// output pushing and suffix sharing.
func propOutput(i int, key []byte) int64 {
	return int64((i*7)%13) + int64(len(key))
}

func buildPropFST(keys [][]byte, opts BuilderOptions) (*FST[int64], error) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), opts)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if err := b.AddBytes(k, propOutput(i, k)); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

func newPropParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	seed := time.Now().UnixNano()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 60
	parameters.Rng = rand.New(rand.NewSource(seed))
	return parameters
}

func genKeys() gopter.Gen {
	return gen.OneGenOf(
		gen.SliceOf(gen.AlphaString()).Map(func(v []string) [][]byte {
			keys := make([][]byte, 0, len(v))
			for _, s := range v {
				keys = append(keys, []byte(s))
			}
			return keys
		}),
		gen.SliceOf(gen.SliceOf(gen.UInt8())).Map(func(v [][]uint8) [][]byte {
			keys := make([][]byte, 0, len(v))
			for _, k := range v {
				keys = append(keys, append([]byte(nil), k...))
			}
			return keys
		}),
	)
}

func TestPropertyRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(newPropParameters())
	reporter := gopter.NewFormatedReporter(true, 160, os.Stdout)

	properties.Property("enumeration and lookups match the inputs", prop.ForAll(
		func(input [][]byte, disableArrays bool) (bool, error) {
			keys := sortedUnique(input)
			f, err := buildPropFST(keys, BuilderOptions{DisableArrayArcs: disableArrays})
			if err != nil {
				return false, err
			}
			if len(keys) == 0 {
				return f == nil, nil
			}

			var buf bytes.Buffer
			if err := f.Save(&buf); err != nil {
				return false, err
			}
			loaded, err := Load(&buf, NewPositiveIntOutputs())
			if err != nil {
				return false, err
			}

			e := NewEnum(loaded)
			for i, k := range keys {
				ok, err := e.Next()
				if err != nil || !ok {
					return false, err
				}
				_, out := e.Current()
				if !bytes.Equal(k, e.CurrentBytes()) || out != propOutput(i, k) {
					return false, nil
				}

				got, found, err := GetBytes(loaded, k)
				if err != nil || !found || got != propOutput(i, k) {
					return false, err
				}
			}
			ok, err := e.Next()
			return !ok, err
		},
		genKeys(),
		gen.Bool(),
	))

	if !properties.Run(reporter) {
		t.Errorf("failed with initial seed")
	}
}

func TestPropertySeekCeil(t *testing.T) {
	properties := gopter.NewProperties(newPropParameters())
	reporter := gopter.NewFormatedReporter(true, 160, os.Stdout)

	properties.Property("seek ceil finds the smallest input not less than the target", prop.ForAll(
		func(input [][]byte, targets []string) (bool, error) {
			keys := sortedUnique(input)
			if len(keys) == 0 {
				return true, nil
			}
			f, err := buildPropFST(keys, BuilderOptions{})
			if err != nil {
				return false, err
			}

			e := NewEnum(f)
			for _, target := range targets {
				ok, err := e.SeekCeil(BytesToInts([]byte(target)))
				if err != nil {
					return false, err
				}
				idx := sort.Search(len(keys), func(i int) bool {
					return bytes.Compare(keys[i], []byte(target)) >= 0
				})
				if ok != (idx < len(keys)) {
					return false, nil
				}
				if ok && !bytes.Equal(keys[idx], e.CurrentBytes()) {
					return false, nil
				}

				exact, err := e.SeekExact(BytesToInts([]byte(target)))
				if err != nil {
					return false, err
				}
				if exact != (idx < len(keys) && bytes.Equal(keys[idx], []byte(target))) {
					return false, nil
				}
			}
			return true, nil
		},
		genKeys(),
		gen.SliceOf(gen.AlphaString()),
	))

	if !properties.Run(reporter) {
		t.Errorf("failed with initial seed")
	}
}
