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
	"fmt"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errAdvanceBackwards = errors.New("advance target is before the current input")

// Enum iterates the inputs of an FST in sorted order together with their
// outputs. The arc and output stacks are reused across calls so an Enum
// allocates only when it reaches a depth it has not seen before. An Enum is
// not safe for concurrent use.
type Enum[T any] struct {
	fst     *FST[T]
	in      BytesReader
	arcs    []*Arc[T]
	outputs []T
	// current[i] is the label of arcs[i], current[0] is unused.
	current []int

	target []int
	upto   int
	done   bool
}

// NewEnum returns an enum positioned before the first input.
func NewEnum[T any](f *FST[T]) *Enum[T] {
	e := &Enum[T]{}
	e.ResetFST(f)
	return e
}

// ResetFST repositions the enum before the first input of f.
func (e *Enum[T]) ResetFST(f *FST[T]) {
	e.fst = f
	e.in = f.NewBytesReader()
	e.Reset()
}

// Reset repositions the enum before the first input.
func (e *Enum[T]) Reset() {
	e.grow(0)
	e.fst.FirstArc(e.arcs[0])
	e.outputs[0] = e.fst.noOutput
	e.upto = 0
	e.done = false
	e.target = nil
}

// Current returns the current input and its output. The returned slice is
// only valid until the enum moves.
func (e *Enum[T]) Current() ([]int, T) {
	if e.upto == 0 {
		return nil, e.fst.noOutput
	}
	return e.current[1:e.upto], e.outputs[e.upto]
}

// CurrentBytes returns a copy of the current input as bytes, it is only
// meaningful for Byte1 FSTs.
func (e *Enum[T]) CurrentBytes() []byte {
	if e.upto == 0 {
		return nil
	}
	labels := e.current[1:e.upto]
	b := make([]byte, len(labels))
	for i, label := range labels {
		b[i] = byte(label)
	}
	return b
}

// Next moves to the next input. Once it returns false it keeps returning
// false until the enum is reset or seeked.
func (e *Enum[T]) Next() (bool, error) {
	if e.done {
		return false, nil
	}
	if err := e.doNext(); err != nil {
		return false, err
	}
	return e.result(), nil
}

// SeekCeil moves to the smallest input greater than or equal to target.
func (e *Enum[T]) SeekCeil(target []int) (bool, error) {
	e.target = target
	e.done = false
	if err := e.doSeekCeil(); err != nil {
		return false, err
	}
	return e.result(), nil
}

// Advance moves forward to the smallest input greater than or equal to
// target. Advancing to a target before the current input is an invalid
// state error.
func (e *Enum[T]) Advance(target []int) (bool, error) {
	if e.done {
		return false, nil
	}
	if e.upto > 0 {
		if current, _ := e.Current(); compareInts(target, current) < 0 {
			return false, xerrors.NewInvalidStateError(fmt.Errorf(
				"%v: current=%v, target=%v", errAdvanceBackwards, current, target))
		}
	}
	return e.SeekCeil(target)
}

// SeekExact moves to target if it exists. When it returns false the enum is
// reset.
func (e *Enum[T]) SeekExact(target []int) (bool, error) {
	e.target = target
	e.done = false
	found, err := e.doSeekExact()
	if err != nil {
		return false, err
	}
	if !found {
		e.Reset()
		return false, nil
	}
	return true, nil
}

func (e *Enum[T]) result() bool {
	if e.upto == 0 {
		e.done = true
		return false
	}
	return true
}

func (e *Enum[T]) targetLabel() int {
	if e.upto-1 == len(e.target) {
		return EndLabel
	}
	return e.target[e.upto-1]
}

func (e *Enum[T]) grow(upto int) {
	for len(e.arcs) <= upto {
		e.arcs = append(e.arcs, &Arc[T]{})
		e.outputs = append(e.outputs, e.fst.noOutput)
		e.current = append(e.current, 0)
	}
}

func (e *Enum[T]) incr() {
	e.upto++
	e.grow(e.upto)
}

// rewindPrefix rewinds the stacks to the prefix shared by the current input
// and the target.
func (e *Enum[T]) rewindPrefix() error {
	if e.upto == 0 {
		e.upto = 1
		e.grow(1)
		_, err := e.fst.ReadFirstTargetArc(e.arcs[0], e.arcs[1], e.in)
		return err
	}

	currentLimit := e.upto
	e.upto = 1
	for e.upto < currentLimit && e.upto <= len(e.target)+1 {
		cmp := e.current[e.upto] - e.targetLabel()
		if cmp < 0 {
			// Seek forward from here.
			break
		}
		if cmp > 0 {
			// Seek backwards, restart this level from its first arc.
			_, err := e.fst.ReadFirstTargetArc(e.arcs[e.upto-1], e.arcs[e.upto], e.in)
			return err
		}
		e.upto++
	}
	return nil
}

func (e *Enum[T]) doNext() error {
	if e.upto == 0 {
		e.upto = 1
		e.grow(1)
		if _, err := e.fst.ReadFirstTargetArc(e.arcs[0], e.arcs[1], e.in); err != nil {
			return err
		}
	} else {
		for e.arcs[e.upto].IsLast() {
			e.upto--
			if e.upto == 0 {
				return nil
			}
		}
		if _, err := e.fst.ReadNextArc(e.arcs[e.upto], e.in); err != nil {
			return err
		}
	}
	return e.pushFirst()
}

// pushFirst appends the current arc and descends through first arcs until it
// reaches a final node.
func (e *Enum[T]) pushFirst() error {
	arc := e.arcs[e.upto]
	for {
		e.outputs[e.upto] = e.fst.outputs.Add(e.outputs[e.upto-1], arc.Output)
		if arc.Label == EndLabel {
			return nil
		}
		e.current[e.upto] = arc.Label
		e.incr()
		next := e.arcs[e.upto]
		if _, err := e.fst.ReadFirstTargetArc(arc, next, e.in); err != nil {
			return err
		}
		arc = next
	}
}

// rollback pops to the deepest level with a remaining sibling and descends
// from it. It leaves upto at zero when the enum is exhausted.
func (e *Enum[T]) rollback() error {
	e.upto--
	for e.upto > 0 {
		prev := e.arcs[e.upto]
		if !prev.IsLast() {
			if _, err := e.fst.ReadNextArc(prev, e.in); err != nil {
				return err
			}
			return e.pushFirst()
		}
		e.upto--
	}
	return nil
}

func (e *Enum[T]) doSeekCeil() error {
	if err := e.rewindPrefix(); err != nil {
		return err
	}

	arc := e.arcs[e.upto]
	targetLabel := e.targetLabel()

	for {
		if arc.BytesPerArc != 0 && arc.Label != EndLabel {
			// Fixed array arcs, binary search from the current arc.
			mid, found, err := e.fst.binarySearch(arc, arc.ArcIdx, targetLabel, e.in)
			if err != nil {
				return err
			}
			switch {
			case found:
				arc.ArcIdx = mid - 1
				if _, err := e.fst.ReadNextRealArc(arc, e.in); err != nil {
					return err
				}
				e.outputs[e.upto] = e.fst.outputs.Add(e.outputs[e.upto-1], arc.Output)
				if targetLabel == EndLabel {
					return nil
				}
				e.current[e.upto] = arc.Label
				e.incr()
				next := e.arcs[e.upto]
				if _, err := e.fst.ReadFirstTargetArc(arc, next, e.in); err != nil {
					return err
				}
				arc = next
				targetLabel = e.targetLabel()
			case mid == arc.NumArcs:
				// Target is after the last arc, leave the last arc current
				// and roll back to the last fork.
				arc.ArcIdx = arc.NumArcs - 2
				if _, err := e.fst.ReadNextRealArc(arc, e.in); err != nil {
					return err
				}
				return e.rollback()
			default:
				arc.ArcIdx = mid - 1
				if _, err := e.fst.ReadNextRealArc(arc, e.in); err != nil {
					return err
				}
				return e.pushFirst()
			}
			continue
		}

		// Packed arcs, linear scan.
		switch {
		case arc.Label == targetLabel:
			e.outputs[e.upto] = e.fst.outputs.Add(e.outputs[e.upto-1], arc.Output)
			if targetLabel == EndLabel {
				return nil
			}
			e.current[e.upto] = arc.Label
			e.incr()
			next := e.arcs[e.upto]
			if _, err := e.fst.ReadFirstTargetArc(arc, next, e.in); err != nil {
				return err
			}
			arc = next
			targetLabel = e.targetLabel()
		case arc.Label > targetLabel:
			return e.pushFirst()
		case arc.IsLast():
			return e.rollback()
		default:
			if _, err := e.fst.ReadNextArc(arc, e.in); err != nil {
				return err
			}
		}
	}
}

func (e *Enum[T]) doSeekExact() (bool, error) {
	if err := e.rewindPrefix(); err != nil {
		return false, err
	}

	arc := e.arcs[e.upto-1]
	targetLabel := e.targetLabel()
	for {
		next, err := e.fst.FindTargetArc(targetLabel, arc, e.arcs[e.upto], e.in)
		if err != nil {
			return false, err
		}
		if next == nil {
			return false, nil
		}
		e.outputs[e.upto] = e.fst.outputs.Add(e.outputs[e.upto-1], next.Output)
		if targetLabel == EndLabel {
			return true, nil
		}
		e.current[e.upto] = targetLabel
		e.incr()
		targetLabel = e.targetLabel()
		arc = next
	}
}
