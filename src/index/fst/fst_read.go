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

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errReadPastLastArc = errors.New("cannot read next arc of the last arc")

// NewBytesReader returns a new cursor over the FST bytes.
func (f *FST[T]) NewBytesReader() BytesReader {
	return f.bytes.ReverseReader()
}

// FirstArc fills arc with the virtual arc leading into the root node.
func (f *FST[T]) FirstArc(arc *Arc[T]) *Arc[T] {
	if f.hasEmptyOutput {
		arc.Flags = bitFinalArc | bitLastArc
		arc.NextFinalOutput = f.emptyOutput
		if !f.isNoOutput(f.emptyOutput) {
			arc.Flags |= bitArcHasFinalOutput
		}
	} else {
		arc.Flags = bitLastArc
		arc.NextFinalOutput = f.noOutput
	}
	arc.Label = 0
	arc.Output = f.noOutput
	arc.Target = f.startNode
	arc.BytesPerArc = 0
	return arc
}

// TargetHasArcs returns true if the target of arc is a node with arcs.
func TargetHasArcs[T any](arc *Arc[T]) bool {
	return arc.Target > 0
}

// ReadFirstTargetArc fills arc with the first arc leaving the target of
// follow. When follow is final the first arc is a synthetic EndLabel arc.
func (f *FST[T]) ReadFirstTargetArc(follow, arc *Arc[T], in BytesReader) (*Arc[T], error) {
	if follow.IsFinal() {
		target := follow.Target
		arc.Label = EndLabel
		arc.Output = follow.NextFinalOutput
		arc.NextFinalOutput = f.noOutput
		arc.Flags = bitFinalArc
		if target <= 0 {
			arc.Flags |= bitLastArc
		} else {
			arc.Node = target
			arc.NextArc = target
		}
		arc.Target = FinalEndNode
		return arc, nil
	}
	return f.ReadFirstRealTargetArc(follow.Target, arc, in)
}

// ReadFirstRealTargetArc fills arc with the first serialized arc of node.
func (f *FST[T]) ReadFirstRealTargetArc(node int64, arc *Arc[T], in BytesReader) (*Arc[T], error) {
	in.SetPosition(node)
	arc.Node = node

	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == arcsAsFixedArray {
		if arc.NumArcs, err = ReadVInt(in); err != nil {
			return nil, err
		}
		if arc.BytesPerArc, err = ReadVInt(in); err != nil {
			return nil, err
		}
		if arc.NumArcs == 0 || arc.BytesPerArc == 0 {
			return nil, xerrors.NewCorruptionError(errors.New("empty fixed array node"))
		}
		arc.ArcIdx = -1
		arc.PosArcsStart = in.Position()
		arc.NextArc = arc.PosArcsStart
	} else {
		arc.NextArc = node
		arc.BytesPerArc = 0
	}
	return f.ReadNextRealArc(arc, in)
}

// ReadNextArc fills arc with the arc following it in its node.
func (f *FST[T]) ReadNextArc(arc *Arc[T], in BytesReader) (*Arc[T], error) {
	if arc.Label == EndLabel {
		if arc.NextArc <= 0 {
			return nil, xerrors.NewInvalidStateError(errReadPastLastArc)
		}
		return f.ReadFirstRealTargetArc(arc.NextArc, arc, in)
	}
	return f.ReadNextRealArc(arc, in)
}

// ReadNextRealArc decodes the serialized arc following arc.
func (f *FST[T]) ReadNextRealArc(arc *Arc[T], in BytesReader) (*Arc[T], error) {
	if arc.BytesPerArc != 0 {
		arc.ArcIdx++
		if arc.ArcIdx >= arc.NumArcs {
			return nil, xerrors.NewInvalidStateError(errReadPastLastArc)
		}
		in.SetPosition(arc.PosArcsStart)
		in.SkipBytes(int64(arc.ArcIdx * arc.BytesPerArc))
	} else {
		in.SetPosition(arc.NextArc)
	}

	var err error
	if arc.Flags, err = in.ReadByte(); err != nil {
		return nil, err
	}
	if arc.Label, err = f.readLabel(in); err != nil {
		return nil, err
	}

	if arc.flag(bitArcHasOutput) {
		if arc.Output, err = f.outputs.Read(in); err != nil {
			return nil, err
		}
	} else {
		arc.Output = f.noOutput
	}

	if arc.flag(bitArcHasFinalOutput) {
		if arc.NextFinalOutput, err = f.outputs.ReadFinalOutput(in); err != nil {
			return nil, err
		}
	} else {
		arc.NextFinalOutput = f.noOutput
	}

	switch {
	case arc.flag(bitStopNode):
		if arc.flag(bitFinalArc) {
			arc.Target = FinalEndNode
		} else {
			arc.Target = NonFinalEndNode
		}
		arc.NextArc = in.Position()
	case arc.flag(bitTargetNext):
		arc.NextArc = in.Position()
		if !arc.flag(bitLastArc) {
			if arc.BytesPerArc == 0 {
				if err := f.seekToNextNode(in); err != nil {
					return nil, err
				}
			} else {
				in.SetPosition(arc.PosArcsStart)
				in.SkipBytes(int64(arc.BytesPerArc * arc.NumArcs))
			}
		}
		arc.Target = in.Position()
	default:
		if arc.Target, err = ReadVLong(in); err != nil {
			return nil, err
		}
		arc.NextArc = in.Position()
	}
	return arc, nil
}

// ReadLastTargetArc fills arc with the last arc leaving the target of follow.
func (f *FST[T]) ReadLastTargetArc(follow, arc *Arc[T], in BytesReader) (*Arc[T], error) {
	if !TargetHasArcs(follow) {
		arc.Label = EndLabel
		arc.Target = FinalEndNode
		arc.Output = follow.NextFinalOutput
		arc.NextFinalOutput = f.noOutput
		arc.Flags = bitFinalArc | bitLastArc
		return arc, nil
	}

	target := follow.Target
	in.SetPosition(target)
	arc.Node = target

	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == arcsAsFixedArray {
		if arc.NumArcs, err = ReadVInt(in); err != nil {
			return nil, err
		}
		if arc.BytesPerArc, err = ReadVInt(in); err != nil {
			return nil, err
		}
		arc.PosArcsStart = in.Position()
		arc.ArcIdx = arc.NumArcs - 2
	} else {
		arc.Flags = b
		arc.BytesPerArc = 0
		for !arc.IsLast() {
			if err := f.skipArcBody(arc.Flags, in); err != nil {
				return nil, err
			}
			if arc.Flags, err = in.ReadByte(); err != nil {
				return nil, err
			}
		}
		// Undo the flags byte read.
		in.SkipBytes(-1)
		arc.NextArc = in.Position()
	}
	return f.ReadNextRealArc(arc, in)
}

// FindTargetArc finds the arc with the given label leaving the target of
// follow. It returns a nil arc when no such arc exists. follow and arc may be
// the same arc.
func (f *FST[T]) FindTargetArc(label int, follow, arc *Arc[T], in BytesReader) (*Arc[T], error) {
	target := follow.Target

	if label == EndLabel {
		if !follow.IsFinal() {
			return nil, nil
		}
		arc.Output = follow.NextFinalOutput
		arc.NextFinalOutput = f.noOutput
		arc.Flags = bitFinalArc
		if target <= 0 {
			arc.Flags |= bitLastArc
		} else {
			arc.NextArc = target
			arc.Node = target
		}
		arc.Label = EndLabel
		arc.Target = FinalEndNode
		return arc, nil
	}

	if target == f.startNode && f.cachedRootArcs != nil && label >= 0 && label < len(f.cachedRootArcs) {
		cached := f.cachedRootArcs[label]
		if cached == nil {
			return nil, nil
		}
		return arc.CopyFrom(cached), nil
	}

	if target <= 0 {
		return nil, nil
	}

	in.SetPosition(target)
	arc.Node = target

	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == arcsAsFixedArray {
		if arc.NumArcs, err = ReadVInt(in); err != nil {
			return nil, err
		}
		if arc.BytesPerArc, err = ReadVInt(in); err != nil {
			return nil, err
		}
		arc.PosArcsStart = in.Position()

		mid, found, err := f.binarySearch(arc, 0, label, in)
		if err != nil || !found {
			return nil, err
		}
		arc.ArcIdx = mid - 1
		return f.ReadNextRealArc(arc, in)
	}

	if _, err := f.ReadFirstRealTargetArc(target, arc, in); err != nil {
		return nil, err
	}
	for {
		switch {
		case arc.Label == label:
			return arc, nil
		case arc.Label > label, arc.IsLast():
			return nil, nil
		}
		if _, err := f.ReadNextRealArc(arc, in); err != nil {
			return nil, err
		}
	}
}

// binarySearch searches the fixed array arcs of arc starting at index low
// for label. When not found it returns the insertion point.
func (f *FST[T]) binarySearch(arc *Arc[T], low, label int, in BytesReader) (int, bool, error) {
	high := arc.NumArcs - 1
	for low <= high {
		mid := int(uint(low+high) >> 1)
		in.SetPosition(arc.PosArcsStart)
		in.SkipBytes(int64(arc.BytesPerArc*mid + 1))
		midLabel, err := f.readLabel(in)
		if err != nil {
			return 0, false, err
		}
		switch {
		case midLabel < label:
			low = mid + 1
		case midLabel > label:
			high = mid - 1
		default:
			return mid, true, nil
		}
	}
	return low, false, nil
}

func (f *FST[T]) skipArcBody(flags byte, in BytesReader) error {
	if _, err := f.readLabel(in); err != nil {
		return err
	}
	if flags&bitArcHasOutput != 0 {
		if _, err := f.outputs.Read(in); err != nil {
			return err
		}
	}
	if flags&bitArcHasFinalOutput != 0 {
		if _, err := f.outputs.ReadFinalOutput(in); err != nil {
			return err
		}
	}
	if flags&bitStopNode == 0 && flags&bitTargetNext == 0 {
		if _, err := ReadVLong(in); err != nil {
			return err
		}
	}
	return nil
}

func (f *FST[T]) seekToNextNode(in BytesReader) error {
	for {
		flags, err := in.ReadByte()
		if err != nil {
			return err
		}
		if err := f.skipArcBody(flags, in); err != nil {
			return err
		}
		if flags&bitLastArc != 0 {
			return nil
		}
	}
}

func (f *FST[T]) cacheRootArcs() error {
	cache := make([]*Arc[T], rootArcCacheSize)

	var arc Arc[T]
	f.FirstArc(&arc)
	if TargetHasArcs(&arc) {
		in := f.NewBytesReader()
		if _, err := f.ReadFirstRealTargetArc(arc.Target, &arc, in); err != nil {
			return err
		}
		for arc.Label < len(cache) {
			cached := arc
			cache[arc.Label] = &cached
			if arc.IsLast() {
				break
			}
			if _, err := f.ReadNextRealArc(&arc, in); err != nil {
				return err
			}
		}
	}

	f.cachedRootArcs = cache
	return nil
}
