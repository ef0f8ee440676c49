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
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

type kv struct {
	key    string
	output int64
}

func buildIntFST(t *testing.T, inputs []kv, opts BuilderOptions) *FST[int64] {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), opts)
	require.NoError(t, err)
	for _, in := range inputs {
		require.NoError(t, b.AddBytes([]byte(in.key), in.output))
	}
	f, err := b.Finish()
	require.NoError(t, err)
	return f
}

func collect(t *testing.T, f *FST[int64]) []kv {
	var (
		e   = NewEnum(f)
		res []kv
	)
	for {
		ok, err := e.Next()
		require.NoError(t, err)
		if !ok {
			return res
		}
		_, out := e.Current()
		res = append(res, kv{key: string(e.CurrentBytes()), output: out})
	}
}

func TestBuildEnumerateAndAdvance(t *testing.T) {
	inputs := []kv{{"ab", 1}, {"abc", 2}, {"b", 3}}
	f := buildIntFST(t, inputs, BuilderOptions{})
	require.NotNil(t, f)
	require.Equal(t, inputs, collect(t, f))

	e := NewEnum(f)
	ok, err := e.Next()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Advance(BytesToInts([]byte("ac")))
	require.NoError(t, err)
	require.True(t, ok)
	_, out := e.Current()
	require.Equal(t, "b", string(e.CurrentBytes()))
	require.Equal(t, int64(3), out)

	ok, err = e.Advance(BytesToInts([]byte("c")))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOutputsArePushedTowardsRoot(t *testing.T) {
	f := buildIntFST(t, []kv{{"ab", 1}, {"abc", 2}, {"b", 3}}, BuilderOptions{})

	var (
		arc Arc[int64]
		in  = f.NewBytesReader()
	)
	f.FirstArc(&arc)
	a, err := f.FindTargetArc('a', &arc, &arc, in)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, int64(1), a.Output)

	b, err := f.FindTargetArc('b', a, a, in)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.True(t, b.IsFinal())
	require.Equal(t, int64(0), b.Output)
	require.Equal(t, int64(0), b.NextFinalOutput)

	c, err := f.FindTargetArc('c', b, b, in)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, int64(1), c.Output)

	for _, test := range []kv{{"ab", 1}, {"abc", 2}, {"b", 3}} {
		out, ok, err := GetBytes(f, []byte(test.key))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, test.output, out)
	}
	for _, miss := range []string{"", "a", "abcd", "c", "ba"} {
		_, ok, err := GetBytes(f, []byte(miss))
		require.NoError(t, err)
		require.False(t, ok, miss)
	}
}

func TestEmptyInput(t *testing.T) {
	f := buildIntFST(t, []kv{{"", 5}, {"a", 7}, {"ab", 9}}, BuilderOptions{})
	require.Equal(t, []kv{{"", 5}, {"a", 7}, {"ab", 9}}, collect(t, f))

	out, ok, err := GetBytes(f, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), out)

	empty, ok := f.EmptyOutput()
	require.True(t, ok)
	require.Equal(t, int64(5), empty)
}

func TestOnlyEmptyInput(t *testing.T) {
	f := buildIntFST(t, []kv{{"", 3}}, BuilderOptions{})
	require.NotNil(t, f)
	require.Equal(t, []kv{{"", 3}}, collect(t, f))

	e := NewEnum(f)
	ok, err := e.SeekCeil(BytesToInts([]byte("a")))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmptyBuilderReturnsNil(t *testing.T) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	f, err := b.Finish()
	require.NoError(t, err)
	require.Nil(t, f)
}

func TestBuilderRejectsUnsortedInput(t *testing.T) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	require.NoError(t, b.AddBytes([]byte("b"), 1))

	err = b.AddBytes([]byte("a"), 2)
	require.Error(t, err)
	require.True(t, xerrors.IsInvalidParams(err))

	err = b.AddBytes([]byte("b"), 2)
	require.True(t, xerrors.IsInvalidParams(err))

	err = b.AddBytes(nil, 2)
	require.True(t, xerrors.IsInvalidParams(err))

	require.NoError(t, b.AddBytes([]byte("c"), 2))
	require.Equal(t, 2, b.NumInputs())
}

func TestBuilderRejectsLabelOutOfRange(t *testing.T) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	err = b.Add([]int{256}, 1)
	require.True(t, xerrors.IsInvalidParams(err))
	err = b.Add([]int{-1}, 1)
	require.True(t, xerrors.IsInvalidParams(err))

	_, err = NewBuilder(InputType(9), NewPositiveIntOutputs(), BuilderOptions{})
	require.True(t, xerrors.IsInvalidParams(err))
}

func TestFinishTwice(t *testing.T) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	require.NoError(t, b.AddBytes([]byte("a"), 1))
	f, err := b.Finish()
	require.NoError(t, err)

	_, err = b.Finish()
	require.True(t, xerrors.IsInvalidState(err))

	err = f.Finish(f.startNode)
	require.True(t, xerrors.IsInvalidState(err))

	err = b.AddBytes([]byte("b"), 1)
	require.True(t, xerrors.IsInvalidState(err))
}

func TestSetEmptyOutput(t *testing.T) {
	f := newFST(Byte1, NewPositiveIntOutputs(), true)
	require.NoError(t, f.SetEmptyOutput(4))
	require.NoError(t, f.SetEmptyOutput(4))

	err := f.SetEmptyOutput(5)
	require.Error(t, err)
	require.True(t, xerrors.IsInvalidState(err))

	out, ok := f.EmptyOutput()
	require.True(t, ok)
	require.Equal(t, int64(4), out)
}

func TestEnumAdvanceBackwards(t *testing.T) {
	f := buildIntFST(t, []kv{{"a", 1}, {"b", 2}, {"c", 3}}, BuilderOptions{})
	e := NewEnum(f)

	ok, err := e.Advance(BytesToInts([]byte("b")))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.Advance(BytesToInts([]byte("a")))
	require.Error(t, err)
	require.True(t, xerrors.IsInvalidState(err))

	// SeekCeil may move backwards.
	ok, err = e.SeekCeil(BytesToInts([]byte("a")))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", string(e.CurrentBytes()))
}

func TestEnumExhaustionIsIdempotent(t *testing.T) {
	f := buildIntFST(t, []kv{{"a", 1}}, BuilderOptions{})
	e := NewEnum(f)

	ok, err := e.Next()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = e.Next()
		require.NoError(t, err)
		require.False(t, ok)
	}

	ok, err = e.Advance(BytesToInts([]byte("a")))
	require.NoError(t, err)
	require.False(t, ok)

	e.Reset()
	ok, err = e.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", string(e.CurrentBytes()))
}

func TestEnumSeekExact(t *testing.T) {
	inputs := []kv{{"cat", 1}, {"cats", 2}, {"dog", 3}, {"dogs", 4}}
	f := buildIntFST(t, inputs, BuilderOptions{})
	e := NewEnum(f)

	for _, in := range inputs {
		ok, err := e.SeekExact(BytesToInts([]byte(in.key)))
		require.NoError(t, err)
		require.True(t, ok)
		_, out := e.Current()
		require.Equal(t, in.output, out)
		require.Equal(t, in.key, string(e.CurrentBytes()))
	}

	ok, err := e.SeekExact(BytesToInts([]byte("ca")))
	require.NoError(t, err)
	require.False(t, ok)

	// A miss resets the enum.
	ok, err = e.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cat", string(e.CurrentBytes()))

	ok, err = e.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cats", string(e.CurrentBytes()))
}

func TestEnumSeekCeil(t *testing.T) {
	inputs := []kv{{"aa", 1}, {"ab", 2}, {"abd", 3}, {"b", 4}, {"bcd", 5}}
	f := buildIntFST(t, inputs, BuilderOptions{})

	tests := []struct {
		target   string
		expected string
		found    bool
	}{
		{"", "aa", true},
		{"a", "aa", true},
		{"aa", "aa", true},
		{"aaa", "ab", true},
		{"abc", "abd", true},
		{"abe", "b", true},
		{"ba", "bcd", true},
		{"bcd", "bcd", true},
		{"bcda", "", false},
		{"z", "", false},
	}
	e := NewEnum(f)
	for _, test := range tests {
		t.Run(test.target, func(t *testing.T) {
			ok, err := e.SeekCeil(BytesToInts([]byte(test.target)))
			require.NoError(t, err)
			require.Equal(t, test.found, ok)
			if ok {
				require.Equal(t, test.expected, string(e.CurrentBytes()))
			}
		})
	}
}

func fixedArrayInputs() []kv {
	var inputs []kv
	// A root with twelve arcs and a deep node with six arcs.
	for c := 'a'; c <= 'l'; c++ {
		inputs = append(inputs, kv{key: string(c), output: int64(c)})
	}
	for c := 'a'; c <= 'f'; c++ {
		inputs = append(inputs, kv{key: "mmmm" + string(c), output: int64(100 + c)})
	}
	// A shallow node with five arcs.
	for c := 'a'; c <= 'e'; c++ {
		inputs = append(inputs, kv{key: "n" + string(c), output: int64(200 + c)})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].key < inputs[j].key })
	return inputs
}

func rootFirstArc(t *testing.T, f *FST[int64]) Arc[int64] {
	var arc Arc[int64]
	f.FirstArc(&arc)
	_, err := f.ReadFirstRealTargetArc(arc.Target, &arc, f.NewBytesReader())
	require.NoError(t, err)
	return arc
}

func TestFixedArrayAndPackedEquivalence(t *testing.T) {
	inputs := fixedArrayInputs()
	fixed := buildIntFST(t, inputs, BuilderOptions{})
	packed := buildIntFST(t, inputs, BuilderOptions{DisableArrayArcs: true})

	fixedRoot := rootFirstArc(t, fixed)
	require.NotEqual(t, 0, fixedRoot.BytesPerArc)
	require.Equal(t, 14, fixedRoot.NumArcs)
	packedRoot := rootFirstArc(t, packed)
	require.Equal(t, 0, packedRoot.BytesPerArc)

	require.Equal(t, inputs, collect(t, fixed))
	require.Equal(t, inputs, collect(t, packed))

	// Every label at the root and under "n" resolves identically.
	for _, prefix := range []string{"", "n", "mmmm"} {
		for label := 0; label < 256; label++ {
			key := append([]byte(prefix), byte(label))
			fixedOut, fixedOK, err := GetBytes(fixed, key)
			require.NoError(t, err)
			packedOut, packedOK, err := GetBytes(packed, key)
			require.NoError(t, err)
			require.Equal(t, fixedOK, packedOK, string(key))
			require.Equal(t, fixedOut, packedOut, string(key))
		}
	}

	for _, f := range []*FST[int64]{fixed, packed} {
		e := NewEnum(f)
		for _, target := range []string{"a", "ka", "m", "mmmmc", "mmmmz", "nc", "nf", "o"} {
			ok, err := e.SeekCeil(BytesToInts([]byte(target)))
			require.NoError(t, err)
			idx := sort.Search(len(inputs), func(i int) bool { return inputs[i].key >= target })
			require.Equal(t, idx < len(inputs), ok, target)
			if ok {
				require.Equal(t, inputs[idx].key, string(e.CurrentBytes()), target)
			}
		}
	}
}

func TestFixedArrayWideArcs(t *testing.T) {
	b, err := NewBuilder(Byte1, NewByteSequenceOutputs(), BuilderOptions{})
	require.NoError(t, err)
	var outputs [][]byte
	for i := 0; i < fixedArrayNumArcsDeep; i++ {
		out := bytes.Repeat([]byte{byte('A' + i)}, 300)
		outputs = append(outputs, out)
		require.NoError(t, b.AddBytes([]byte{byte('a' + i)}, out))
	}
	f, err := b.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))
	loaded, err := Load(&buf, NewByteSequenceOutputs())
	require.NoError(t, err)

	var arc Arc[[]byte]
	loaded.FirstArc(&arc)
	_, err = loaded.ReadFirstRealTargetArc(arc.Target, &arc, loaded.NewBytesReader())
	require.NoError(t, err)
	require.Greater(t, arc.BytesPerArc, 0xFF)

	for i, out := range outputs {
		got, ok, err := GetBytes(loaded, []byte{byte('a' + i)})
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, out, got)
	}
	_, ok, err := GetBytes(loaded, []byte("z"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeepNodeIsPacked(t *testing.T) {
	f := buildIntFST(t, fixedArrayInputs(), BuilderOptions{})

	var (
		arc Arc[int64]
		in  = f.NewBytesReader()
	)
	f.FirstArc(&arc)
	for _, label := range []byte("mmmm") {
		next, err := f.FindTargetArc(int(label), &arc, &arc, in)
		require.NoError(t, err)
		require.NotNil(t, next)
	}
	_, err := f.ReadFirstRealTargetArc(arc.Target, &arc, in)
	require.NoError(t, err)
	require.Equal(t, 0, arc.BytesPerArc)
}

func TestReadLastTargetArc(t *testing.T) {
	for _, opts := range []BuilderOptions{{}, {DisableArrayArcs: true}} {
		f := buildIntFST(t, fixedArrayInputs(), opts)
		var (
			root Arc[int64]
			last Arc[int64]
			in   = f.NewBytesReader()
		)
		f.FirstArc(&root)
		_, err := f.ReadLastTargetArc(&root, &last, in)
		require.NoError(t, err)
		require.True(t, last.IsLast())
		require.Equal(t, int('n'), last.Label)
	}
}

func walkNodes(t *testing.T, f *FST[int64]) map[int64]struct{} {
	var (
		in    = f.NewBytesReader()
		seen  = make(map[int64]struct{})
		visit func(node int64)
	)
	visit = func(node int64) {
		if node <= 0 {
			return
		}
		if _, ok := seen[node]; ok {
			return
		}
		seen[node] = struct{}{}

		var (
			arc       Arc[int64]
			lastLabel = -1
			targets   []int64
			numArcs   int
		)
		_, err := f.ReadFirstRealTargetArc(node, &arc, in)
		require.NoError(t, err)
		for {
			require.True(t, arc.Label > lastLabel, "labels must be increasing")
			lastLabel = arc.Label
			targets = append(targets, arc.Target)
			numArcs++
			if arc.IsLast() {
				break
			}
			_, err = f.ReadNextRealArc(&arc, in)
			require.NoError(t, err)
		}
		if arc.BytesPerArc != 0 {
			require.Equal(t, arc.NumArcs, numArcs)
		}
		for _, target := range targets {
			visit(target)
		}
	}

	var root Arc[int64]
	f.FirstArc(&root)
	visit(root.Target)
	return seen
}

func TestArcMonotonicity(t *testing.T) {
	for _, opts := range []BuilderOptions{{}, {DisableArrayArcs: true}, {DisableSuffixSharing: true}} {
		f := buildIntFST(t, fixedArrayInputs(), opts)
		seen := walkNodes(t, f)
		require.Equal(t, int(f.NodeCount()), len(seen))
	}
}

func TestSuffixSharing(t *testing.T) {
	inputs := []kv{{"xing", 1}, {"ying", 2}, {"zing", 3}}
	shared := buildIntFST(t, inputs, BuilderOptions{})
	trie := buildIntFST(t, inputs, BuilderOptions{DisableSuffixSharing: true})

	require.Equal(t, inputs, collect(t, shared))
	require.Equal(t, inputs, collect(t, trie))
	require.True(t, shared.NodeCount() < trie.NodeCount(),
		"shared=%d, trie=%d", shared.NodeCount(), trie.NodeCount())
	require.True(t, shared.SizeInBytes() < trie.SizeInBytes())
}

func TestNodeHashDedups(t *testing.T) {
	b, err := NewBuilder(Byte1, NewPositiveIntOutputs(), BuilderOptions{})
	require.NoError(t, err)
	for _, key := range []string{"ab", "bb", "cb"} {
		require.NoError(t, b.AddBytes([]byte(key), 0))
	}
	_, err = b.Finish()
	require.NoError(t, err)
	// The shared "b" suffix node plus the root.
	require.Equal(t, 2, b.hash.size())
	require.Equal(t, int64(2), b.NodeCount())
}

func TestSaveLoad(t *testing.T) {
	inputs := append([]kv{{"", 11}}, fixedArrayInputs()...)
	f := buildIntFST(t, inputs, BuilderOptions{})

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()), NewPositiveIntOutputs())
	require.NoError(t, err)
	require.Equal(t, inputs, collect(t, loaded))
	require.Equal(t, f.NodeCount(), loaded.NodeCount())
	require.Equal(t, f.ArcCount(), loaded.ArcCount())
	require.Equal(t, f.ArcWithOutputCount(), loaded.ArcWithOutputCount())
	require.Equal(t, f.SizeInBytes(), loaded.SizeInBytes())
	require.Equal(t, Byte1, loaded.InputType())

	empty, ok := loaded.EmptyOutput()
	require.True(t, ok)
	require.Equal(t, int64(11), empty)
}

func TestLoadRejectsCorruptHeader(t *testing.T) {
	f := buildIntFST(t, []kv{{"a", 1}, {"b", 2}}, BuilderOptions{})
	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))
	data := buf.Bytes()

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
	}{
		{"magic", func(b []byte) []byte { b[0] ^= 0xFF; return b }},
		{"name", func(b []byte) []byte { b[5] = 'X'; return b }},
		{"version", func(b []byte) []byte { b[11] = byte(Version + 1); return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)-1] }},
		{"input type", func(b []byte) []byte { b[13] = 7; return b }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			corrupt := test.mutate(append([]byte(nil), data...))
			_, err := Load(bytes.NewReader(corrupt), NewPositiveIntOutputs())
			require.Error(t, err)
			require.True(t, xerrors.IsCorruption(err), err.Error())
		})
	}
}

func TestSaveBeforeFinish(t *testing.T) {
	f := newFST(Byte1, NewPositiveIntOutputs(), true)
	err := f.Save(&bytes.Buffer{})
	require.True(t, xerrors.IsInvalidState(err))
}

func TestByteSequenceOutputs(t *testing.T) {
	b, err := NewBuilder(Byte1, NewByteSequenceOutputs(), BuilderOptions{})
	require.NoError(t, err)

	inputs := []struct {
		key    string
		output string
	}{
		{"mop", "floor"},
		{"moth", "flood"},
		{"pop", "fizz"},
		{"star", ""},
		{"stop", "flip"},
	}
	for _, in := range inputs {
		require.NoError(t, b.AddBytes([]byte(in.key), []byte(in.output)))
	}
	f, err := b.Finish()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))
	loaded, err := Load(&buf, NewByteSequenceOutputs())
	require.NoError(t, err)

	e := NewEnum(loaded)
	for _, in := range inputs {
		ok, err := e.Next()
		require.NoError(t, err)
		require.True(t, ok)
		_, out := e.Current()
		require.Equal(t, in.key, string(e.CurrentBytes()))
		require.Equal(t, in.output, string(out))
	}
	ok, err := e.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPairOutputs(t *testing.T) {
	outputs := NewPairOutputs(NewPositiveIntOutputs(), NewPositiveIntOutputs())
	b, err := NewBuilder(Byte1, outputs, BuilderOptions{})
	require.NoError(t, err)

	inputs := []struct {
		key    string
		output Pair[int64, int64]
	}{
		{"a", NewPair[int64, int64](10, 0)},
		{"ab", NewPair[int64, int64](10, 1)},
		{"abc", NewPair[int64, int64](10, 2)},
		{"b", NewPair[int64, int64](25, 0)},
	}
	for _, in := range inputs {
		require.NoError(t, b.AddBytes([]byte(in.key), in.output))
	}
	f, err := b.Finish()
	require.NoError(t, err)

	for _, in := range inputs {
		out, ok, err := GetBytes(f, []byte(in.key))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, in.output, out)
	}
	require.Equal(t, "<10,2>", outputs.String(inputs[2].output))
}

func TestNoOutputs(t *testing.T) {
	b, err := NewBuilder(Byte1, NewNoOutputs(), BuilderOptions{})
	require.NoError(t, err)
	for _, key := range []string{"a", "b", "bc"} {
		require.NoError(t, b.AddBytes([]byte(key), struct{}{}))
	}
	f, err := b.Finish()
	require.NoError(t, err)
	require.Equal(t, int64(0), f.ArcWithOutputCount())

	_, ok, err := GetBytes(f, []byte("bc"))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = GetBytes(f, []byte("c"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWideInputTypes(t *testing.T) {
	for _, inputType := range []InputType{Byte2, Byte4} {
		t.Run(inputType.String(), func(t *testing.T) {
			b, err := NewBuilder(inputType, NewPositiveIntOutputs(), BuilderOptions{})
			require.NoError(t, err)

			inputs := [][]int{{1, 300}, {1, 301}, {2}, {40000, 3}, {65535}}
			for i, in := range inputs {
				require.NoError(t, b.Add(in, int64(i)))
			}
			f, err := b.Finish()
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, f.Save(&buf))
			loaded, err := Load(&buf, NewPositiveIntOutputs())
			require.NoError(t, err)
			require.Equal(t, inputType, loaded.InputType())

			e := NewEnum(loaded)
			for i, in := range inputs {
				ok, err := e.Next()
				require.NoError(t, err)
				require.True(t, ok)
				input, out := e.Current()
				require.Equal(t, in, input)
				require.Equal(t, int64(i), out)
			}
		})
	}
}

func TestConcurrentReaders(t *testing.T) {
	defer leaktest.CheckTimeout(t, time.Second)()

	var inputs []kv
	for i := 0; i < 1000; i++ {
		inputs = append(inputs, kv{key: fmt.Sprintf("term-%05d", i), output: int64(i)})
	}
	f := buildIntFST(t, inputs, BuilderOptions{})

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 8)
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			e := NewEnum(f)
			for j := start; j < len(inputs); j += 7 {
				ok, err := e.SeekExact(BytesToInts([]byte(inputs[j].key)))
				if err != nil {
					errs <- err
					return
				}
				_, out := e.Current()
				if !ok || out != inputs[j].output {
					errs <- errors.New("mismatch for " + inputs[j].key)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
