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
	"encoding/binary"
	"errors"
	"fmt"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

const defaultBytesCapacity = 1 << 10

var (
	errAlreadyFinished     = errors.New("fst already finished")
	errNotFinished         = errors.New("fst not finished")
	errConflictingEmptyOut = errors.New("conflicting empty output")
)

// FST is a finite state transducer. It is built once through a Builder, after
// which it is immutable and safe for concurrent readers each using their own
// BytesReader and arcs.
type FST[T any] struct {
	inputType InputType
	outputs   Outputs[T]
	noOutput  T
	bytes     *BytesStore

	startNode      int64
	emptyOutput    T
	hasEmptyOutput bool
	finished       bool

	allowArrayArcs bool
	lastFrozenNode int64
	bytesPerArc    []int

	nodeCount          int64
	arcCount           int64
	arcWithOutputCount int64

	cachedRootArcs []*Arc[T]
}

func newFST[T any](inputType InputType, outputs Outputs[T], allowArrayArcs bool) *FST[T] {
	f := &FST[T]{
		inputType:      inputType,
		outputs:        outputs,
		noOutput:       outputs.NoOutput(),
		bytes:          NewBytesStore(defaultBytesCapacity),
		startNode:      -1,
		allowArrayArcs: allowArrayArcs,
	}
	// Pad so that no node is written at address 0, which is reserved for
	// NonFinalEndNode.
	_ = f.bytes.WriteByte(0)
	return f
}

// InputType returns the label width of the FST.
func (f *FST[T]) InputType() InputType { return f.inputType }

// Outputs returns the outputs of the FST.
func (f *FST[T]) Outputs() Outputs[T] { return f.outputs }

// EmptyOutput returns the output of the empty input, if accepted.
func (f *FST[T]) EmptyOutput() (T, bool) { return f.emptyOutput, f.hasEmptyOutput }

// NodeCount returns the number of serialized nodes.
func (f *FST[T]) NodeCount() int64 { return f.nodeCount }

// ArcCount returns the number of serialized arcs.
func (f *FST[T]) ArcCount() int64 { return f.arcCount }

// ArcWithOutputCount returns the number of serialized arcs with an output.
func (f *FST[T]) ArcWithOutputCount() int64 { return f.arcWithOutputCount }

// SizeInBytes returns the size of the node bytes.
func (f *FST[T]) SizeInBytes() int64 { return f.bytes.Position() }

func (f *FST[T]) isNoOutput(v T) bool {
	return f.outputs.Equal(v, f.noOutput)
}

// SetEmptyOutput sets the output of the empty input. Setting a value that
// differs from a previously set one is an invalid state error.
func (f *FST[T]) SetEmptyOutput(v T) error {
	if f.finished {
		return xerrors.NewInvalidStateError(errAlreadyFinished)
	}
	if f.hasEmptyOutput {
		if !f.outputs.Equal(f.emptyOutput, v) {
			return xerrors.NewInvalidStateError(fmt.Errorf("%v: existing=%s, new=%s",
				errConflictingEmptyOut, f.outputs.String(f.emptyOutput), f.outputs.String(v)))
		}
		return nil
	}
	f.emptyOutput = v
	f.hasEmptyOutput = true
	return nil
}

// Finish records the root node and freezes the FST.
func (f *FST[T]) Finish(root int64) error {
	if f.finished {
		return xerrors.NewInvalidStateError(errAlreadyFinished)
	}
	if root == FinalEndNode && f.hasEmptyOutput {
		root = 0
	}
	f.startNode = root
	f.bytes.Finish()
	f.finished = true
	return f.cacheRootArcs()
}

func (f *FST[T]) shouldExpand(node *UncompiledNode[T]) bool {
	numArcs := len(node.Arcs)
	return f.allowArrayArcs &&
		((node.Depth <= fixedArrayShallowDistance && numArcs >= fixedArrayNumArcsShallow) ||
			numArcs >= fixedArrayNumArcsDeep)
}

// AddNode serializes a frozen node and returns its address. Nodes without
// arcs are not written and map to FinalEndNode or NonFinalEndNode.
func (f *FST[T]) AddNode(node *UncompiledNode[T]) (int64, error) {
	if f.finished {
		return 0, xerrors.NewInvalidStateError(errAlreadyFinished)
	}

	numArcs := len(node.Arcs)
	if numArcs == 0 {
		if node.IsFinal {
			return FinalEndNode, nil
		}
		return NonFinalEndNode, nil
	}

	startAddress := f.bytes.Position()
	address, err := f.writeNode(node, startAddress)
	if err != nil {
		f.bytes.Truncate(startAddress)
		return 0, err
	}

	f.nodeCount++
	f.arcCount += int64(numArcs)
	f.lastFrozenNode = address
	return address, nil
}

func (f *FST[T]) writeNode(node *UncompiledNode[T], startAddress int64) (int64, error) {
	var (
		numArcs        = len(node.Arcs)
		doFixedArray   = f.shouldExpand(node)
		lastArcStart   = startAddress
		maxBytesPerArc = 0
		withOutput     = int64(0)
	)
	if doFixedArray {
		if cap(f.bytesPerArc) < numArcs {
			f.bytesPerArc = make([]int, numArcs)
		}
		f.bytesPerArc = f.bytesPerArc[:numArcs]
	}

	for idx := range node.Arcs {
		arc := &node.Arcs[idx]
		targetHasArcs := arc.Target > 0

		var flags byte
		if idx == numArcs-1 {
			flags |= bitLastArc
		}
		if targetHasArcs && f.lastFrozenNode == arc.Target && !doFixedArray {
			flags |= bitTargetNext
		}
		if arc.IsFinal {
			flags |= bitFinalArc
			if !f.isNoOutput(arc.NextFinalOutput) {
				flags |= bitArcHasFinalOutput
			}
		}
		if !targetHasArcs {
			flags |= bitStopNode
		}
		hasOutput := !f.isNoOutput(arc.Output)
		if hasOutput {
			flags |= bitArcHasOutput
		}

		if err := f.bytes.WriteByte(flags); err != nil {
			return 0, err
		}
		if err := f.writeLabel(f.bytes, arc.Label); err != nil {
			return 0, err
		}
		if hasOutput {
			if err := f.outputs.Write(f.bytes, arc.Output); err != nil {
				return 0, err
			}
			withOutput++
		}
		if flags&bitArcHasFinalOutput != 0 {
			if err := f.outputs.WriteFinalOutput(f.bytes, arc.NextFinalOutput); err != nil {
				return 0, err
			}
		}
		if targetHasArcs && flags&bitTargetNext == 0 {
			if err := WriteVLong(f.bytes, arc.Target); err != nil {
				return 0, err
			}
		}

		if doFixedArray {
			pos := f.bytes.Position()
			f.bytesPerArc[idx] = int(pos - lastArcStart)
			lastArcStart = pos
			if f.bytesPerArc[idx] > maxBytesPerArc {
				maxBytesPerArc = f.bytesPerArc[idx]
			}
		}
	}

	if doFixedArray {
		var header [1 + 2*binary.MaxVarintLen64]byte
		header[0] = arcsAsFixedArray
		headerLen := 1
		headerLen += binary.PutUvarint(header[headerLen:], uint64(numArcs))
		// Widths below 128 take a single byte, wider arcs carry large outputs.
		headerLen += binary.PutUvarint(header[headerLen:], uint64(maxBytesPerArc))

		// Expand the arcs in place, backwards, so every arc occupies a slot
		// of maxBytesPerArc bytes after the header.
		fixedArrayStart := startAddress + int64(headerLen)
		srcPos := f.bytes.Position()
		destPos := fixedArrayStart + int64(numArcs*maxBytesPerArc)
		if destPos > srcPos {
			f.bytes.SkipBytes(int(destPos - srcPos))
			for idx := numArcs - 1; idx >= 0; idx-- {
				destPos -= int64(maxBytesPerArc)
				srcPos -= int64(f.bytesPerArc[idx])
				if srcPos != destPos {
					f.bytes.CopyBytes(srcPos, destPos, f.bytesPerArc[idx])
				}
			}
		}
		f.bytes.WriteBytesAt(startAddress, header[:headerLen])
	}

	thisNodeAddress := f.bytes.Position() - 1
	f.bytes.Reverse(startAddress, thisNodeAddress)
	f.arcWithOutputCount += withOutput
	return thisNodeAddress, nil
}

func (f *FST[T]) writeLabel(out DataOutput, label int) error {
	switch f.inputType {
	case Byte1:
		return out.WriteByte(byte(label))
	case Byte2:
		if err := out.WriteByte(byte(label >> 8)); err != nil {
			return err
		}
		return out.WriteByte(byte(label))
	default:
		return WriteVInt(out, label)
	}
}

func (f *FST[T]) readLabel(in DataInput) (int, error) {
	switch f.inputType {
	case Byte1:
		b, err := in.ReadByte()
		return int(b), err
	case Byte2:
		hi, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		lo, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		return int(hi)<<8 | int(lo), nil
	default:
		return ReadVInt(in)
	}
}

func (f *FST[T]) checkFinished() error {
	if !f.finished {
		return xerrors.NewInvalidStateError(errNotFinished)
	}
	return nil
}
