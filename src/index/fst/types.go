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

// Package fst implements a byte-packed finite state transducer mapping sorted
// label sequences to outputs. Nodes are serialized bottom-up into a single
// byte store, either as packed arcs scanned linearly or as fixed width arc
// arrays searched by label, and are read back with a reverse cursor.
package fst

import (
	"fmt"
	"io"
)

const (
	// EndLabel is the label of the synthetic arc leaving a final node.
	EndLabel = -1

	// FinalEndNode is the target of arcs pointing at a final node without arcs.
	FinalEndNode int64 = -1

	// NonFinalEndNode is the target of arcs pointing at a non-final node
	// without arcs.
	NonFinalEndNode int64 = 0
)

const (
	bitFinalArc          byte = 1 << 0
	bitLastArc           byte = 1 << 1
	bitTargetNext        byte = 1 << 2
	bitStopNode          byte = 1 << 3
	bitArcHasOutput      byte = 1 << 4
	bitArcHasFinalOutput byte = 1 << 5

	// arcsAsFixedArray flags the header byte of a fixed array node. It can
	// never be a valid packed arc flag since a final output implies a final
	// arc.
	arcsAsFixedArray = bitArcHasFinalOutput

	fixedArrayShallowDistance = 3
	fixedArrayNumArcsShallow  = 5
	fixedArrayNumArcsDeep     = 10

	rootArcCacheSize = 0x80
)

// InputType is the width of the labels of an FST.
type InputType byte

const (
	// Byte1 labels are single bytes.
	Byte1 InputType = iota
	// Byte2 labels are two byte big endian values.
	Byte2
	// Byte4 labels are variable length encoded non-negative integers.
	Byte4
)

var validInputTypes = []InputType{Byte1, Byte2, Byte4}

// Validate returns an error if the input type is unknown.
func (t InputType) Validate() error {
	for _, valid := range validInputTypes {
		if t == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid input type: %d", t)
}

func (t InputType) String() string {
	switch t {
	case Byte1:
		return "byte1"
	case Byte2:
		return "byte2"
	case Byte4:
		return "byte4"
	}
	return "unknown"
}

func (t InputType) maxLabel() int {
	switch t {
	case Byte1:
		return 0xFF
	case Byte2:
		return 0xFFFF
	}
	return int(^uint32(0) >> 1)
}

// DataOutput is a sink of bytes.
type DataOutput interface {
	io.ByteWriter
	io.Writer
}

// DataInput is a source of bytes.
type DataInput interface {
	io.ByteReader

	// ReadFull reads exactly len(p) bytes into p.
	ReadFull(p []byte) error
}

// BytesReader is a positional cursor over an FST's bytes. Readers are not
// safe for concurrent use; each goroutine should create its own.
type BytesReader interface {
	DataInput

	// SkipBytes moves the cursor n bytes in its read direction.
	SkipBytes(n int64)

	// Position returns the cursor position.
	Position() int64

	// SetPosition sets the cursor position.
	SetPosition(pos int64)

	// Reversed returns true if the cursor reads towards lower addresses.
	Reversed() bool
}
