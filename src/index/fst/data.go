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

const maxStringLength = 1 << 16

var (
	errVarintOverflow = errors.New("variable length integer overflows 64 bits")
	errNegativeValue  = errors.New("negative value can not be variable length encoded")
)

// WriteVLong writes a non-negative int64 as a variable length integer.
func WriteVLong(out DataOutput, v int64) error {
	if v < 0 {
		return xerrors.NewInvalidParamsError(errNegativeValue)
	}
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(v))
	_, err := out.Write(buf[:n])
	return err
}

// WriteVInt writes a non-negative int as a variable length integer.
func WriteVInt(out DataOutput, v int) error {
	return WriteVLong(out, int64(v))
}

// ReadVLong reads a variable length integer written by WriteVLong.
func ReadVLong(in DataInput) (int64, error) {
	var (
		x uint64
		s uint
	)
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, xerrors.NewCorruptionError(errVarintOverflow)
			}
			x |= uint64(b) << s
			if x > 1<<63-1 {
				return 0, xerrors.NewCorruptionError(errVarintOverflow)
			}
			return int64(x), nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, xerrors.NewCorruptionError(errVarintOverflow)
}

// ReadVInt reads a variable length integer that must fit in an int32.
func ReadVInt(in DataInput) (int, error) {
	v, err := ReadVLong(in)
	if err != nil {
		return 0, err
	}
	if v > 1<<31-1 {
		return 0, xerrors.NewCorruptionError(fmt.Errorf("vint out of range: %d", v))
	}
	return int(v), nil
}

// WriteInt32 writes a big endian int32.
func WriteInt32(out DataOutput, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := out.Write(buf[:])
	return err
}

// ReadInt32 reads a big endian int32.
func ReadInt32(in DataInput) (int32, error) {
	var buf [4]byte
	if err := in.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// WriteString writes a length prefixed string.
func WriteString(out DataOutput, s string) error {
	if err := WriteVInt(out, len(s)); err != nil {
		return err
	}
	_, err := out.Write([]byte(s))
	return err
}

// ReadString reads a length prefixed string.
func ReadString(in DataInput) (string, error) {
	n, err := ReadVInt(in)
	if err != nil {
		return "", err
	}
	if n > maxStringLength {
		return "", xerrors.NewCorruptionError(fmt.Errorf("string length too large: %d", n))
	}
	b := make([]byte, n)
	if err := in.ReadFull(b); err != nil {
		return "", err
	}
	return string(b), nil
}
