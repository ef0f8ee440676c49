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
	"fmt"
	"testing"

	"github.com/m3dbx/vellum"
	"github.com/stretchr/testify/require"
)

// TestMatchesVellum checks enumeration and lookups against an independent
// FST implementation.
func TestMatchesVellum(t *testing.T) {
	var keys [][]byte
	for i := 0; i < 2000; i++ {
		keys = append(keys, []byte(fmt.Sprintf("%s-%04d", []string{"city", "host", "region", "zone"}[i%4], i)))
	}
	keys = sortedUnique(keys)

	var buf bytes.Buffer
	vb, err := vellum.New(&buf, nil)
	require.NoError(t, err)
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	for i, k := range keys {
		require.NoError(t, vb.Insert(k, uint64(propOutput(i, k))))
		require.NoError(t, b.AddBytes(k, propOutput(i, k)))
	}
	require.NoError(t, vb.Close())
	f, err := b.Finish()
	require.NoError(t, err)

	vf, err := vellum.Load(buf.Bytes())
	require.NoError(t, err)
	defer vf.Close()

	var (
		e          = NewEnum(f)
		iter, vErr = vf.Iterator(nil, nil)
		enumerated = 0
	)
	for vErr == nil {
		vKey, vOut := iter.Current()
		ok, err := e.Next()
		require.NoError(t, err)
		require.True(t, ok)
		_, out := e.Current()
		require.Equal(t, string(vKey), string(e.CurrentBytes()))
		require.Equal(t, vOut, uint64(out))
		enumerated++
		vErr = iter.Next()
	}
	require.Equal(t, vellum.ErrIteratorDone, vErr)
	require.Equal(t, len(keys), enumerated)

	ok, err := e.Next()
	require.NoError(t, err)
	require.False(t, ok)

	for _, probe := range []string{"city-0000", "host-0001", "region-1998", "zone-9999", "a", "zzz"} {
		vOut, vFound, err := vf.Get([]byte(probe))
		require.NoError(t, err)
		out, found, err := GetBytes(f, []byte(probe))
		require.NoError(t, err)
		require.Equal(t, vFound, found, probe)
		if found {
			require.Equal(t, vOut, uint64(out), probe)
		}
	}
}
