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
	"math"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var (
	errBuilderFinished = errors.New("builder already finished")
	errInputOutOfOrder = errors.New("inputs must be added in strictly increasing order")
)

// BuilderOptions configures a Builder. The zero value shares every suffix
// and allows fixed array nodes.
type BuilderOptions struct {
	// DisableSuffixSharing writes every node, producing a trie.
	DisableSuffixSharing bool

	// DisableNonSingletonSharing only shares nodes with at most one arc.
	DisableNonSingletonSharing bool

	// MaxShareTailLength bounds the suffix length eligible for sharing,
	// zero means unbounded.
	MaxShareTailLength int

	// DisableArrayArcs writes every node with packed arcs.
	DisableArrayArcs bool
}

// BuilderArc is an arc of a node that has not been serialized yet.
type BuilderArc[T any] struct {
	Label           int
	Target          int64
	IsFinal         bool
	Output          T
	NextFinalOutput T
}

// UncompiledNode is a node of the builder frontier.
type UncompiledNode[T any] struct {
	Arcs       []BuilderArc[T]
	Output     T
	IsFinal    bool
	InputCount int64

	// Depth is the distance of the node from the root.
	Depth int

	outputs Outputs[T]
}

func newUncompiledNode[T any](outputs Outputs[T], depth int) *UncompiledNode[T] {
	return &UncompiledNode[T]{
		outputs: outputs,
		Output:  outputs.NoOutput(),
		Depth:   depth,
	}
}

func (n *UncompiledNode[T]) clear() {
	n.Arcs = n.Arcs[:0]
	n.IsFinal = false
	n.Output = n.outputs.NoOutput()
	n.InputCount = 0
}

func (n *UncompiledNode[T]) lastOutput() T {
	return n.Arcs[len(n.Arcs)-1].Output
}

func (n *UncompiledNode[T]) addArc(label int) {
	noOutput := n.outputs.NoOutput()
	n.Arcs = append(n.Arcs, BuilderArc[T]{
		Label:           label,
		Output:          noOutput,
		NextFinalOutput: noOutput,
	})
}

func (n *UncompiledNode[T]) replaceLast(target int64, nextFinalOutput T, isFinal bool) {
	arc := &n.Arcs[len(n.Arcs)-1]
	arc.Target = target
	arc.NextFinalOutput = nextFinalOutput
	arc.IsFinal = isFinal
}

func (n *UncompiledNode[T]) setLastOutput(output T) {
	n.Arcs[len(n.Arcs)-1].Output = output
}

func (n *UncompiledNode[T]) prependOutput(prefix T) {
	for i := range n.Arcs {
		n.Arcs[i].Output = n.outputs.Add(prefix, n.Arcs[i].Output)
	}
	if n.IsFinal {
		n.Output = n.outputs.Add(prefix, n.Output)
	}
}

// Builder builds an FST from inputs added in sorted order. Outputs given to
// Add are the full output of each input.
type Builder[T any] struct {
	fst      *FST[T]
	outputs  Outputs[T]
	opts     BuilderOptions
	hash     *nodeHash[T]
	frontier []*UncompiledNode[T]

	lastInput []int
	numInputs int
	finished  bool
}

// NewBuilder returns a new Builder.
func NewBuilder[T any](inputType InputType, outputs Outputs[T], opts BuilderOptions) (*Builder[T], error) {
	if err := inputType.Validate(); err != nil {
		return nil, xerrors.NewInvalidParamsError(err)
	}
	if opts.MaxShareTailLength < 0 {
		return nil, xerrors.NewInvalidParamsError(
			fmt.Errorf("invalid max share tail length: %d", opts.MaxShareTailLength))
	}
	if opts.MaxShareTailLength == 0 {
		opts.MaxShareTailLength = math.MaxInt32
	}

	f := newFST(inputType, outputs, !opts.DisableArrayArcs)
	b := &Builder[T]{
		fst:      f,
		outputs:  outputs,
		opts:     opts,
		frontier: make([]*UncompiledNode[T], 0, 10),
	}
	if !opts.DisableSuffixSharing {
		b.hash = newNodeHash(f)
	}
	b.growFrontier(1)
	return b, nil
}

// NumInputs returns the number of inputs added.
func (b *Builder[T]) NumInputs() int { return b.numInputs }

// NodeCount returns the number of nodes serialized so far.
func (b *Builder[T]) NodeCount() int64 { return b.fst.nodeCount }

func (b *Builder[T]) growFrontier(n int) {
	for len(b.frontier) < n {
		b.frontier = append(b.frontier, newUncompiledNode(b.outputs, len(b.frontier)))
	}
}

// AddBytes adds a byte input.
func (b *Builder[T]) AddBytes(input []byte, output T) error {
	return b.Add(BytesToInts(input), output)
}

// Add adds an input with its output. Inputs must be strictly increasing.
func (b *Builder[T]) Add(input []int, output T) error {
	if b.finished {
		return xerrors.NewInvalidStateError(errBuilderFinished)
	}
	if b.numInputs > 0 && compareInts(input, b.lastInput) <= 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf("%v: last=%v, input=%v",
			errInputOutOfOrder, b.lastInput, input))
	}
	maxLabel := b.fst.inputType.maxLabel()
	for _, label := range input {
		if label < 0 || label > maxLabel {
			return xerrors.NewInvalidParamsError(fmt.Errorf(
				"label %d out of range for input type %s", label, b.fst.inputType))
		}
	}

	if len(input) == 0 {
		// The empty input can only be first; finalness lives on incoming
		// arcs so it is recorded on the FST itself.
		b.frontier[0].InputCount++
		b.frontier[0].IsFinal = true
		if err := b.fst.SetEmptyOutput(output); err != nil {
			return err
		}
		b.numInputs++
		return nil
	}

	// Shared prefix with the previous input.
	var (
		pos1     = 0
		pos1Stop = len(b.lastInput)
	)
	if len(input) < pos1Stop {
		pos1Stop = len(input)
	}
	for {
		b.frontier[pos1].InputCount++
		if pos1 >= pos1Stop || b.lastInput[pos1] != input[pos1] {
			break
		}
		pos1++
	}
	prefixLenPlus1 := pos1 + 1

	b.growFrontier(len(input) + 1)

	// Compile the suffix of the previous input that is not shared.
	if err := b.freezeTail(prefixLenPlus1); err != nil {
		return err
	}

	// Init tail states for the current input.
	for idx := prefixLenPlus1; idx <= len(input); idx++ {
		b.frontier[idx-1].addArc(input[idx-1])
		b.frontier[idx].InputCount++
	}

	lastNode := b.frontier[len(input)]
	lastNode.IsFinal = true
	lastNode.Output = b.outputs.NoOutput()

	// Push conflicting outputs forward, only as far as needed.
	for idx := 1; idx < prefixLenPlus1; idx++ {
		node := b.frontier[idx]
		parent := b.frontier[idx-1]

		lastOutput := parent.lastOutput()
		if b.fst.isNoOutput(lastOutput) {
			continue
		}
		common := b.outputs.Common(output, lastOutput)
		wordSuffix := b.outputs.Subtract(lastOutput, common)
		parent.setLastOutput(common)
		node.prependOutput(wordSuffix)
		output = b.outputs.Subtract(output, common)
	}

	// The new arc is private to this input and takes the leftover output.
	b.frontier[prefixLenPlus1-1].setLastOutput(output)

	b.lastInput = append(b.lastInput[:0], input...)
	b.numInputs++
	return nil
}

func (b *Builder[T]) freezeTail(prefixLenPlus1 int) error {
	downTo := prefixLenPlus1
	if downTo < 1 {
		downTo = 1
	}
	for idx := len(b.lastInput); idx >= downTo; idx-- {
		node := b.frontier[idx]
		parent := b.frontier[idx-1]

		nextFinalOutput := node.Output
		// A node without arcs is marked final; readers can not handle
		// non-final dead ends.
		isFinal := node.IsFinal || len(node.Arcs) == 0

		target, err := b.compileNode(node, 1+len(b.lastInput)-idx)
		if err != nil {
			return err
		}
		parent.replaceLast(target, nextFinalOutput, isFinal)
	}
	return nil
}

func (b *Builder[T]) compileNode(node *UncompiledNode[T], tailLength int) (int64, error) {
	var (
		address int64
		err     error
	)
	if b.hash != nil &&
		(!b.opts.DisableNonSingletonSharing || len(node.Arcs) <= 1) &&
		tailLength <= b.opts.MaxShareTailLength &&
		len(node.Arcs) > 0 {
		address, err = b.hash.add(node)
	} else {
		address, err = b.fst.AddNode(node)
	}
	if err != nil {
		return 0, err
	}
	node.clear()
	return address, nil
}

// Finish compiles the remaining frontier and returns the FST. It returns a
// nil FST if no input was added.
func (b *Builder[T]) Finish() (*FST[T], error) {
	if b.finished {
		return nil, xerrors.NewInvalidStateError(errBuilderFinished)
	}
	b.finished = true

	root := b.frontier[0]
	if err := b.freezeTail(0); err != nil {
		return nil, err
	}
	if len(root.Arcs) == 0 && !b.fst.hasEmptyOutput {
		return nil, nil
	}

	address, err := b.compileNode(root, len(b.lastInput))
	if err != nil {
		return nil, err
	}
	if err := b.fst.Finish(address); err != nil {
		return nil, err
	}
	return b.fst, nil
}

func compareInts(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
