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

	"github.com/cespare/xxhash/v2"
)

// ByteSequenceOutputs are byte slice outputs added by concatenation.
// Returned slices may be shared and must not be mutated.
type ByteSequenceOutputs struct{}

// NewByteSequenceOutputs returns byte slice outputs.
func NewByteSequenceOutputs() Outputs[[]byte] {
	return ByteSequenceOutputs{}
}

// Common returns the shared prefix of a and b.
func (ByteSequenceOutputs) Common(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	if i == 0 {
		return nil
	}
	if i == len(a) {
		return a
	}
	if i == len(b) {
		return b
	}
	return a[:i]
}

// Subtract strips the prefix inc from output.
func (ByteSequenceOutputs) Subtract(output, inc []byte) []byte {
	if len(inc) == 0 {
		return output
	}
	if len(inc) == len(output) {
		return nil
	}
	return output[len(inc):]
}

// Add returns prefix followed by suffix.
func (ByteSequenceOutputs) Add(prefix, suffix []byte) []byte {
	if len(prefix) == 0 {
		return suffix
	}
	if len(suffix) == 0 {
		return prefix
	}
	result := make([]byte, 0, len(prefix)+len(suffix))
	result = append(result, prefix...)
	return append(result, suffix...)
}

// NoOutput returns the empty sequence.
func (ByteSequenceOutputs) NoOutput() []byte { return nil }

// Equal compares the sequences.
func (ByteSequenceOutputs) Equal(a, b []byte) bool { return bytes.Equal(a, b) }

// Hash returns the xxhash of v.
func (ByteSequenceOutputs) Hash(v []byte) uint64 { return xxhash.Sum64(v) }

// Write writes a length prefixed sequence.
func (ByteSequenceOutputs) Write(out DataOutput, v []byte) error {
	if err := WriteVInt(out, len(v)); err != nil {
		return err
	}
	_, err := out.Write(v)
	return err
}

// WriteFinalOutput writes a length prefixed sequence.
func (o ByteSequenceOutputs) WriteFinalOutput(out DataOutput, v []byte) error {
	return o.Write(out, v)
}

// Read reads a length prefixed sequence.
func (ByteSequenceOutputs) Read(in DataInput) ([]byte, error) {
	n, err := ReadVInt(in)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	v := make([]byte, n)
	if err := in.ReadFull(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadFinalOutput reads a length prefixed sequence.
func (o ByteSequenceOutputs) ReadFinalOutput(in DataInput) ([]byte, error) {
	return o.Read(in)
}

func (ByteSequenceOutputs) String(v []byte) string {
	return fmt.Sprintf("%x", v)
}
