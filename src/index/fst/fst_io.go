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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

const (
	// CodecMagic prefixes every serialized header.
	CodecMagic int32 = 0x3fd76c17

	// FileFormatName is the name written in the FST header.
	FileFormatName = "FST"

	// Version is the only FST format version read and written.
	Version int32 = 4

	maxHeaderBytes = 1 << 20
)

// WriteHeader writes a codec header: magic, name and version.
func WriteHeader(out DataOutput, name string, version int32) error {
	if err := WriteInt32(out, CodecMagic); err != nil {
		return err
	}
	if err := WriteString(out, name); err != nil {
		return err
	}
	return WriteInt32(out, version)
}

// CheckHeader reads a codec header and returns its version, which must be
// between minVersion and maxVersion.
func CheckHeader(in DataInput, name string, minVersion, maxVersion int32) (int32, error) {
	magic, err := ReadInt32(in)
	if err != nil {
		return 0, err
	}
	if magic != CodecMagic {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"codec header mismatch: actual=%x, expected=%x", magic, CodecMagic))
	}
	actual, err := ReadString(in)
	if err != nil {
		return 0, err
	}
	if actual != name {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"codec mismatch: actual=%q, expected=%q", actual, name))
	}
	version, err := ReadInt32(in)
	if err != nil {
		return 0, err
	}
	if version < minVersion || version > maxVersion {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"unsupported %s version: %d (supported %d to %d)", name, version, minVersion, maxVersion))
	}
	return version, nil
}

// Save writes the FST to w.
func (f *FST[T]) Save(w io.Writer) error {
	if err := f.checkFinished(); err != nil {
		return err
	}

	out, ok := w.(DataOutput)
	var buffered *bufio.Writer
	if !ok {
		buffered = bufio.NewWriter(w)
		out = buffered
	}

	if err := f.save(out); err != nil {
		return err
	}
	if buffered != nil {
		return buffered.Flush()
	}
	return nil
}

func (f *FST[T]) save(out DataOutput) error {
	if err := WriteHeader(out, FileFormatName, Version); err != nil {
		return err
	}

	if f.hasEmptyOutput {
		if err := out.WriteByte(1); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := f.outputs.WriteFinalOutput(&buf, f.emptyOutput); err != nil {
			return err
		}
		// Reversed so it reads back with a reverse cursor like node bytes.
		b := buf.Bytes()
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		if err := WriteVInt(out, len(b)); err != nil {
			return err
		}
		if _, err := out.Write(b); err != nil {
			return err
		}
	} else if err := out.WriteByte(0); err != nil {
		return err
	}

	if err := out.WriteByte(byte(f.inputType)); err != nil {
		return err
	}
	for _, v := range []int64{
		f.startNode,
		f.nodeCount,
		f.arcCount,
		f.arcWithOutputCount,
		f.bytes.Position(),
	} {
		if err := WriteVLong(out, v); err != nil {
			return err
		}
	}
	_, err := out.Write(f.bytes.Bytes())
	return err
}

// Load reads an FST saved with Save.
func Load[T any](r io.Reader, outputs Outputs[T]) (*FST[T], error) {
	in, ok := r.(DataInput)
	if !ok {
		in = &readerInput{r: r}
	}
	return LoadFrom(in, outputs)
}

// LoadFrom reads a saved FST from in without reading past its end.
func LoadFrom[T any](in DataInput, outputs Outputs[T]) (*FST[T], error) {
	if _, err := CheckHeader(in, FileFormatName, Version, Version); err != nil {
		return nil, err
	}

	f := &FST[T]{
		outputs:  outputs,
		noOutput: outputs.NoOutput(),
		finished: true,
	}

	hasEmpty, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	switch hasEmpty {
	case 0:
	case 1:
		n, err := ReadVInt(in)
		if err != nil {
			return nil, err
		}
		if n > maxHeaderBytes {
			return nil, xerrors.NewCorruptionError(fmt.Errorf("empty output too large: %d", n))
		}
		b := make([]byte, n)
		if err := in.ReadFull(b); err != nil {
			return nil, err
		}
		reader := newFinishedBytesStore(b).ReverseReader()
		reader.SetPosition(int64(n - 1))
		if f.emptyOutput, err = outputs.ReadFinalOutput(reader); err != nil {
			return nil, err
		}
		f.hasEmptyOutput = true
	default:
		return nil, xerrors.NewCorruptionError(fmt.Errorf("invalid empty output flag: %d", hasEmpty))
	}

	inputType, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	f.inputType = InputType(inputType)
	if err := f.inputType.Validate(); err != nil {
		return nil, xerrors.NewCorruptionError(err)
	}

	var numBytes int64
	for _, dst := range []*int64{
		&f.startNode,
		&f.nodeCount,
		&f.arcCount,
		&f.arcWithOutputCount,
		&numBytes,
	} {
		if *dst, err = ReadVLong(in); err != nil {
			return nil, err
		}
	}
	if f.startNode >= numBytes && f.startNode > 0 {
		return nil, xerrors.NewCorruptionError(fmt.Errorf(
			"start node out of range: start=%d, bytes=%d", f.startNode, numBytes))
	}

	if sized, ok := in.(remainingInput); ok && int64(sized.Remaining()) < numBytes {
		return nil, xerrors.NewCorruptionError(fmt.Errorf(
			"fst truncated: expected=%d, remaining=%d", numBytes, sized.Remaining()))
	}

	b := make([]byte, numBytes)
	if err := in.ReadFull(b); err != nil {
		return nil, err
	}
	f.bytes = newFinishedBytesStore(b)

	if err := f.cacheRootArcs(); err != nil {
		return nil, err
	}
	return f, nil
}

type remainingInput interface {
	Remaining() int
}

// readerInput adapts an io.Reader without buffering past what is consumed.
type readerInput struct {
	r   io.Reader
	buf [1]byte
}

func (r *readerInput) ReadByte() (byte, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return 0, readError(err)
	}
	return r.buf[0], nil
}

func (r *readerInput) ReadFull(p []byte) error {
	if _, err := io.ReadFull(r.r, p); err != nil {
		return readError(err)
	}
	return nil
}

func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	return err
}
