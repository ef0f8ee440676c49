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

	"github.com/cespare/xxhash/v2"
)

// nodeHash dedups frozen nodes so equal suffixes share a single serialized
// node. Candidates with equal hashes are compared by decoding the stored
// node.
type nodeHash[T any] struct {
	fst     *FST[T]
	table   map[uint64][]int64
	digest  *xxhash.Digest
	scratch Arc[T]
	in      BytesReader
	buf     [8]byte
}

func newNodeHash[T any](f *FST[T]) *nodeHash[T] {
	return &nodeHash[T]{
		fst:    f,
		table:  make(map[uint64][]int64),
		digest: xxhash.New(),
		in:     f.bytes.ReverseReader(),
	}
}

func (h *nodeHash[T]) writeUint64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.digest.Write(h.buf[:])
}

func (h *nodeHash[T]) hash(node *UncompiledNode[T]) uint64 {
	h.digest.Reset()
	outputs := h.fst.outputs
	for i := range node.Arcs {
		arc := &node.Arcs[i]
		h.writeUint64(uint64(arc.Label))
		h.writeUint64(uint64(arc.Target))
		h.writeUint64(outputs.Hash(arc.Output))
		h.writeUint64(outputs.Hash(arc.NextFinalOutput))
		if arc.IsFinal {
			h.writeUint64(17)
		} else {
			h.writeUint64(0)
		}
	}
	return h.digest.Sum64()
}

func (h *nodeHash[T]) nodesEqual(node *UncompiledNode[T], address int64) (bool, error) {
	arc, err := h.fst.ReadFirstRealTargetArc(address, &h.scratch, h.in)
	if err != nil {
		return false, err
	}
	if arc.BytesPerArc != 0 && len(node.Arcs) != arc.NumArcs {
		return false, nil
	}

	outputs := h.fst.outputs
	for i := range node.Arcs {
		expected := &node.Arcs[i]
		if expected.Label != arc.Label ||
			expected.Target != arc.Target ||
			expected.IsFinal != arc.IsFinal() ||
			!outputs.Equal(expected.Output, arc.Output) ||
			!outputs.Equal(expected.NextFinalOutput, arc.NextFinalOutput) {
			return false, nil
		}
		if arc.IsLast() {
			return i == len(node.Arcs)-1, nil
		}
		if _, err := h.fst.ReadNextRealArc(arc, h.in); err != nil {
			return false, err
		}
	}
	return false, nil
}

// add returns the address of a serialized node equal to node, writing node
// if none exists.
func (h *nodeHash[T]) add(node *UncompiledNode[T]) (int64, error) {
	key := h.hash(node)
	for _, address := range h.table[key] {
		equal, err := h.nodesEqual(node, address)
		if err != nil {
			return 0, err
		}
		if equal {
			return address, nil
		}
	}

	address, err := h.fst.AddNode(node)
	if err != nil {
		return 0, err
	}
	h.table[key] = append(h.table[key], address)
	return address, nil
}

func (h *nodeHash[T]) size() int {
	n := 0
	for _, addresses := range h.table {
		n += len(addresses)
	}
	return n
}
