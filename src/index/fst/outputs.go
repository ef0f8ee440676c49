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
	"errors"
	"strconv"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

// Outputs defines the algebra of the values attached to arcs. Outputs along
// a path are combined with Add, the builder factors shared prefixes out with
// Common and Subtract.
type Outputs[T any] interface {
	// Common returns the longest output that is a prefix of both a and b.
	Common(a, b T) T

	// Subtract removes the prefix inc from output.
	Subtract(output, inc T) T

	// Add appends suffix to prefix.
	Add(prefix, suffix T) T

	// NoOutput returns the identity value.
	NoOutput() T

	// Equal returns whether a and b are equal.
	Equal(a, b T) bool

	// Hash returns a hash of v consistent with Equal.
	Hash(v T) uint64

	// Write serializes an arc output.
	Write(out DataOutput, v T) error

	// WriteFinalOutput serializes a final output.
	WriteFinalOutput(out DataOutput, v T) error

	// Read deserializes an arc output.
	Read(in DataInput) (T, error)

	// ReadFinalOutput deserializes a final output.
	ReadFinalOutput(in DataInput) (T, error)

	// String returns a debug representation of v.
	String(v T) string
}

var errNegativeOutput = errors.New("positive int outputs must be non-negative")

// PositiveIntOutputs are non-negative int64 outputs added arithmetically.
type PositiveIntOutputs struct{}

// NewPositiveIntOutputs returns int64 outputs.
func NewPositiveIntOutputs() Outputs[int64] {
	return PositiveIntOutputs{}
}

// Common returns the minimum of a and b.
func (PositiveIntOutputs) Common(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Subtract returns output minus inc.
func (PositiveIntOutputs) Subtract(output, inc int64) int64 {
	return output - inc
}

// Add returns prefix plus suffix.
func (PositiveIntOutputs) Add(prefix, suffix int64) int64 {
	return prefix + suffix
}

// NoOutput returns zero.
func (PositiveIntOutputs) NoOutput() int64 { return 0 }

// Equal returns a == b.
func (PositiveIntOutputs) Equal(a, b int64) bool { return a == b }

// Hash returns v.
func (PositiveIntOutputs) Hash(v int64) uint64 { return uint64(v) }

// Write writes v as a variable length integer.
func (PositiveIntOutputs) Write(out DataOutput, v int64) error {
	if v < 0 {
		return xerrors.NewInvalidParamsError(errNegativeOutput)
	}
	return WriteVLong(out, v)
}

// WriteFinalOutput writes v as a variable length integer.
func (o PositiveIntOutputs) WriteFinalOutput(out DataOutput, v int64) error {
	return o.Write(out, v)
}

// Read reads a variable length integer.
func (PositiveIntOutputs) Read(in DataInput) (int64, error) {
	return ReadVLong(in)
}

// ReadFinalOutput reads a variable length integer.
func (o PositiveIntOutputs) ReadFinalOutput(in DataInput) (int64, error) {
	return o.Read(in)
}

func (PositiveIntOutputs) String(v int64) string {
	return strconv.FormatInt(v, 10)
}
