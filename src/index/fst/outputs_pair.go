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

import "fmt"

// Pair is a composite output.
type Pair[A, B any] struct {
	Output1 A
	Output2 B
}

// PairOutputs combines two outputs component-wise.
type PairOutputs[A, B any] struct {
	outputs1 Outputs[A]
	outputs2 Outputs[B]
}

// NewPairOutputs returns outputs over pairs of the given outputs.
func NewPairOutputs[A, B any](outputs1 Outputs[A], outputs2 Outputs[B]) Outputs[Pair[A, B]] {
	return PairOutputs[A, B]{outputs1: outputs1, outputs2: outputs2}
}

// NewPair returns a pair.
func NewPair[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{Output1: a, Output2: b}
}

func (o PairOutputs[A, B]) Common(a, b Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{
		Output1: o.outputs1.Common(a.Output1, b.Output1),
		Output2: o.outputs2.Common(a.Output2, b.Output2),
	}
}

func (o PairOutputs[A, B]) Subtract(output, inc Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{
		Output1: o.outputs1.Subtract(output.Output1, inc.Output1),
		Output2: o.outputs2.Subtract(output.Output2, inc.Output2),
	}
}

func (o PairOutputs[A, B]) Add(prefix, suffix Pair[A, B]) Pair[A, B] {
	return Pair[A, B]{
		Output1: o.outputs1.Add(prefix.Output1, suffix.Output1),
		Output2: o.outputs2.Add(prefix.Output2, suffix.Output2),
	}
}

func (o PairOutputs[A, B]) NoOutput() Pair[A, B] {
	return Pair[A, B]{
		Output1: o.outputs1.NoOutput(),
		Output2: o.outputs2.NoOutput(),
	}
}

func (o PairOutputs[A, B]) Equal(a, b Pair[A, B]) bool {
	return o.outputs1.Equal(a.Output1, b.Output1) &&
		o.outputs2.Equal(a.Output2, b.Output2)
}

func (o PairOutputs[A, B]) Hash(v Pair[A, B]) uint64 {
	return 31*o.outputs1.Hash(v.Output1) + o.outputs2.Hash(v.Output2)
}

func (o PairOutputs[A, B]) Write(out DataOutput, v Pair[A, B]) error {
	if err := o.outputs1.Write(out, v.Output1); err != nil {
		return err
	}
	return o.outputs2.Write(out, v.Output2)
}

func (o PairOutputs[A, B]) WriteFinalOutput(out DataOutput, v Pair[A, B]) error {
	return o.Write(out, v)
}

func (o PairOutputs[A, B]) Read(in DataInput) (Pair[A, B], error) {
	a, err := o.outputs1.Read(in)
	if err != nil {
		return Pair[A, B]{}, err
	}
	b, err := o.outputs2.Read(in)
	if err != nil {
		return Pair[A, B]{}, err
	}
	return Pair[A, B]{Output1: a, Output2: b}, nil
}

func (o PairOutputs[A, B]) ReadFinalOutput(in DataInput) (Pair[A, B], error) {
	return o.Read(in)
}

func (o PairOutputs[A, B]) String(v Pair[A, B]) string {
	return fmt.Sprintf("<%s,%s>", o.outputs1.String(v.Output1), o.outputs2.String(v.Output2))
}
