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

// Package encoding provides the varint and raw byte codec shared by the
// postings and segment formats.
package encoding

import (
	"encoding/binary"
	"errors"
	"io"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var (
	errUvarintOverflow = errors.New("uvarint overflows 64 bits")
	errVarintOverflow  = errors.New("varint overflows 64 bits")
	errNegativeLength  = errors.New("negative length")
)

// Encoder is a low-level encoder that can be used for encoding basic types.
// An Encoder is an io.Writer and an io.ByteWriter so FSTs can be saved
// directly into it.
type Encoder struct {
	buf []byte
	tmp [binary.MaxVarintLen64]byte
}

// NewEncoder returns a new encoder.
func NewEncoder(n int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, n),
	}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the length of the encoded bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset resets the encoder.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// PutUint32 encodes a uint32 big endian and returns the number of bytes written.
func (e *Encoder) PutUint32(x uint32) int {
	binary.BigEndian.PutUint32(e.tmp[:], x)
	e.buf = append(e.buf, e.tmp[:4]...)
	return 4
}

// PutUint64 encodes a uint64 little endian and returns the number of bytes written.
func (e *Encoder) PutUint64(x uint64) int {
	binary.LittleEndian.PutUint64(e.tmp[:], x)
	e.buf = append(e.buf, e.tmp[:8]...)
	return 8
}

// PutUvarint encodes a variable-sized unsigned integer and returns the number
// of bytes written.
func (e *Encoder) PutUvarint(x uint64) int {
	n := binary.PutUvarint(e.tmp[:], x)
	e.buf = append(e.buf, e.tmp[:n]...)
	return n
}

// PutVarint encodes a variable-sized signed integer and returns the number of
// bytes written.
func (e *Encoder) PutVarint(x int64) int {
	n := binary.PutVarint(e.tmp[:], x)
	e.buf = append(e.buf, e.tmp[:n]...)
	return n
}

// PutBytes encodes a byte slice prefixed by its length and returns the number
// of bytes written.
func (e *Encoder) PutBytes(b []byte) int {
	n := e.PutUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
	return n + len(b)
}

// PutRawBytes encodes a byte slice without a length prefix.
func (e *Encoder) PutRawBytes(b []byte) int {
	e.buf = append(e.buf, b...)
	return len(b)
}

// WriteByte implements io.ByteWriter.
func (e *Encoder) WriteByte(c byte) error {
	e.buf = append(e.buf, c)
	return nil
}

// Write implements io.Writer.
func (e *Encoder) Write(p []byte) (int, error) {
	return e.PutRawBytes(p), nil
}

// WriteTo writes the encoded bytes to w.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.buf)
	return int64(n), err
}

// Decoder is a low-level decoder for decoding basic types. Decode failures
// are returned as corruption errors.
type Decoder struct {
	buf    []byte
	offset int
}

// NewDecoder returns a new Decoder.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Reset resets the decoder to read from buf.
func (d *Decoder) Reset(buf []byte) {
	d.buf = buf
	d.offset = 0
}

// Offset returns the current read offset.
func (d *Decoder) Offset() int { return d.offset }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.offset }

// EOF returns whether every byte has been consumed.
func (d *Decoder) EOF() bool { return d.offset >= len(d.buf) }

// Seek moves the read offset to an absolute position.
func (d *Decoder) Seek(offset int) error {
	if offset < 0 || offset > len(d.buf) {
		return xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	d.offset = offset
	return nil
}

// Skip advances the read offset by n bytes.
func (d *Decoder) Skip(n int) error {
	return d.Seek(d.offset + n)
}

// Uint32 reads a big endian uint32 value.
func (d *Decoder) Uint32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	x := binary.BigEndian.Uint32(d.buf[d.offset:])
	d.offset += 4
	return x, nil
}

// Uint64 reads a little endian uint64 value.
func (d *Decoder) Uint64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	x := binary.LittleEndian.Uint64(d.buf[d.offset:])
	d.offset += 8
	return x, nil
}

// Uvarint reads a variable-sized unsigned integer.
func (d *Decoder) Uvarint() (uint64, error) {
	x, n := binary.Uvarint(d.buf[d.offset:])
	if n == 0 {
		return 0, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	if n < 0 {
		return 0, xerrors.NewCorruptionError(errUvarintOverflow)
	}
	d.offset += n
	return x, nil
}

// Varint reads a variable-sized signed integer.
func (d *Decoder) Varint() (int64, error) {
	x, n := binary.Varint(d.buf[d.offset:])
	if n == 0 {
		return 0, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	if n < 0 {
		return 0, xerrors.NewCorruptionError(errVarintOverflow)
	}
	d.offset += n
	return x, nil
}

// Int reads a non-negative variable-sized integer that fits in an int.
func (d *Decoder) Int() (int, error) {
	x, err := d.Uvarint()
	if err != nil {
		return 0, err
	}
	if x > uint64(maxInt) {
		return 0, xerrors.NewCorruptionError(errUvarintOverflow)
	}
	return int(x), nil
}

// Bytes reads a length prefixed byte slice. The returned slice aliases the
// decoder's buffer.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Int()
	if err != nil {
		return nil, err
	}
	return d.RawBytes(n)
}

// RawBytes reads n bytes. The returned slice aliases the decoder's buffer.
func (d *Decoder) RawBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, xerrors.NewCorruptionError(errNegativeLength)
	}
	if d.Remaining() < n {
		return nil, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	b := d.buf[d.offset : d.offset+n]
	d.offset += n
	return b, nil
}

// ReadByte implements io.ByteReader.
func (d *Decoder) ReadByte() (byte, error) {
	if d.offset >= len(d.buf) {
		return 0, xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
	}
	c := d.buf[d.offset]
	d.offset++
	return c, nil
}

// ReadFull copies the next len(p) bytes into p.
func (d *Decoder) ReadFull(p []byte) error {
	b, err := d.RawBytes(len(p))
	if err != nil {
		return err
	}
	copy(p, b)
	return nil
}

const maxInt = int(^uint(0) >> 1)
