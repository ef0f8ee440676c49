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

// NoOutputs carry no value, an FST over them is an acceptor.
type NoOutputs struct{}

// NewNoOutputs returns empty outputs.
func NewNoOutputs() Outputs[struct{}] {
	return NoOutputs{}
}

func (NoOutputs) Common(a, b struct{}) struct{}          { return struct{}{} }
func (NoOutputs) Subtract(output, inc struct{}) struct{} { return struct{}{} }
func (NoOutputs) Add(prefix, suffix struct{}) struct{}   { return struct{}{} }
func (NoOutputs) NoOutput() struct{}                     { return struct{}{} }
func (NoOutputs) Equal(a, b struct{}) bool               { return true }
func (NoOutputs) Hash(v struct{}) uint64                 { return 0 }
func (NoOutputs) Write(out DataOutput, v struct{}) error { return nil }
func (NoOutputs) Read(in DataInput) (struct{}, error)    { return struct{}{}, nil }
func (NoOutputs) String(v struct{}) string               { return "NO_OUTPUT" }

func (o NoOutputs) WriteFinalOutput(out DataOutput, v struct{}) error {
	return nil
}
func (o NoOutputs) ReadFinalOutput(in DataInput) (struct{}, error) {
	return struct{}{}, nil
}
