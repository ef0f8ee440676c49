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
)

// Arc is a single transition of an FST. Traversal methods fill caller owned
// arcs in place; an arc must not be shared between goroutines.
type Arc[T any] struct {
	Label           int
	Output          T
	Target          int64
	NextFinalOutput T
	Flags           byte

	// Node is the address of the node this arc leaves from.
	Node int64

	// NextArc is the address of the next arc when arcs are packed, for the
	// synthetic end arc it is the node holding the real arcs.
	NextArc int64

	// Set when the arcs of Node are a fixed array.
	PosArcsStart int64
	BytesPerArc  int
	ArcIdx       int
	NumArcs      int
}

func (a *Arc[T]) flag(bit byte) bool {
	return a.Flags&bit != 0
}

// IsLast returns true if this is the last arc of its node.
func (a *Arc[T]) IsLast() bool {
	return a.flag(bitLastArc)
}

// IsFinal returns true if the arc completes an accepted input.
func (a *Arc[T]) IsFinal() bool {
	return a.flag(bitFinalArc)
}

// CopyFrom copies other into a and returns a.
func (a *Arc[T]) CopyFrom(other *Arc[T]) *Arc[T] {
	*a = *other
	return a
}

func (a *Arc[T]) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "node=%d target=%d label=%d", a.Node, a.Target, a.Label)
	if a.IsFinal() {
		b.WriteString(" final")
	}
	if a.IsLast() {
		b.WriteString(" last")
	}
	if a.flag(bitTargetNext) {
		b.WriteString(" targetNext")
	}
	if a.flag(bitStopNode) {
		b.WriteString(" stop")
	}
	if a.flag(bitArcHasOutput) {
		fmt.Fprintf(&b, " output=%v", a.Output)
	}
	if a.flag(bitArcHasFinalOutput) {
		fmt.Fprintf(&b, " finalOutput=%v", a.NextFinalOutput)
	}
	if a.BytesPerArc != 0 {
		fmt.Fprintf(&b, " arcArray(idx=%d of %d)", a.ArcIdx, a.NumArcs)
	}
	return b.String()
}
