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

// Get returns the output of input, the boolean is false if the FST does not
// accept input.
func Get[T any](f *FST[T], input []int) (T, bool, error) {
	var (
		arc    Arc[T]
		in     = f.NewBytesReader()
		output = f.noOutput
	)
	f.FirstArc(&arc)
	for _, label := range input {
		next, err := f.FindTargetArc(label, &arc, &arc, in)
		if err != nil {
			return f.noOutput, false, err
		}
		if next == nil {
			return f.noOutput, false, nil
		}
		output = f.outputs.Add(output, arc.Output)
	}
	if !arc.IsFinal() {
		return f.noOutput, false, nil
	}
	return f.outputs.Add(output, arc.NextFinalOutput), true, nil
}

// GetBytes returns the output of a byte input.
func GetBytes[T any](f *FST[T], input []byte) (T, bool, error) {
	return Get(f, BytesToInts(input))
}

// BytesToInts converts bytes into labels.
func BytesToInts(b []byte) []int {
	ints := make([]int, len(b))
	for i, c := range b {
		ints[i] = int(c)
	}
	return ints
}
