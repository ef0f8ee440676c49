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
	"io"

	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errBytesStoreFinished = errors.New("bytes store already finished")

// BytesStore is an append only byte buffer that nodes are serialized into.
// Positional writes are only used while a node is being serialized.
type BytesStore struct {
	b        []byte
	finished bool
}

// NewBytesStore returns a new empty BytesStore.
func NewBytesStore(capacity int) *BytesStore {
	return &BytesStore{b: make([]byte, 0, capacity)}
}

func newFinishedBytesStore(b []byte) *BytesStore {
	return &BytesStore{b: b, finished: true}
}

// WriteByte appends a byte.
func (s *BytesStore) WriteByte(c byte) error {
	if s.finished {
		return xerrors.NewInvalidStateError(errBytesStoreFinished)
	}
	s.b = append(s.b, c)
	return nil
}

// Write appends p.
func (s *BytesStore) Write(p []byte) (int, error) {
	if s.finished {
		return 0, xerrors.NewInvalidStateError(errBytesStoreFinished)
	}
	s.b = append(s.b, p...)
	return len(p), nil
}

// Position returns the number of bytes written.
func (s *BytesStore) Position() int64 {
	return int64(len(s.b))
}

// WriteBytesAt overwrites bytes starting at dest.
func (s *BytesStore) WriteBytesAt(dest int64, p []byte) {
	copy(s.b[dest:dest+int64(len(p))], p)
}

// CopyBytes copies n bytes from src to dest, the ranges may overlap.
func (s *BytesStore) CopyBytes(src, dest int64, n int) {
	copy(s.b[dest:dest+int64(n)], s.b[src:src+int64(n)])
}

// SkipBytes appends n zero bytes.
func (s *BytesStore) SkipBytes(n int) {
	for i := 0; i < n; i++ {
		s.b = append(s.b, 0)
	}
}

// Reverse reverses the bytes between start and end inclusive.
func (s *BytesStore) Reverse(start, end int64) {
	for start < end {
		s.b[start], s.b[end] = s.b[end], s.b[start]
		start++
		end--
	}
}

// Truncate drops every byte at or after pos.
func (s *BytesStore) Truncate(pos int64) {
	s.b = s.b[:pos]
}

// Finish trims the capacity to the bytes written and freezes the store.
func (s *BytesStore) Finish() {
	if s.finished {
		return
	}
	trimmed := make([]byte, len(s.b))
	copy(trimmed, s.b)
	s.b = trimmed
	s.finished = true
}

// Bytes returns the backing bytes, they must not be mutated.
func (s *BytesStore) Bytes() []byte {
	return s.b
}

// ReverseReader returns a cursor reading towards lower addresses.
func (s *BytesStore) ReverseReader() BytesReader {
	return &reverseReader{store: s}
}

// ForwardReader returns a cursor reading towards higher addresses.
func (s *BytesStore) ForwardReader() BytesReader {
	return &forwardReader{store: s}
}

func errReadOutOfBounds() error {
	return xerrors.NewCorruptionError(io.ErrUnexpectedEOF)
}

// reverseReader reads the store from its position down to address zero.
// It reads through the store rather than a captured slice so it remains
// valid while the store grows during a build.
type reverseReader struct {
	store *BytesStore
	pos   int64
}

func (r *reverseReader) ReadByte() (byte, error) {
	if r.pos < 0 || r.pos >= int64(len(r.store.b)) {
		return 0, errReadOutOfBounds()
	}
	c := r.store.b[r.pos]
	r.pos--
	return c, nil
}

func (r *reverseReader) ReadFull(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if r.pos-int64(len(p))+1 < 0 || r.pos >= int64(len(r.store.b)) {
		return errReadOutOfBounds()
	}
	for i := range p {
		p[i] = r.store.b[r.pos]
		r.pos--
	}
	return nil
}

func (r *reverseReader) SkipBytes(n int64)     { r.pos -= n }
func (r *reverseReader) Position() int64       { return r.pos }
func (r *reverseReader) SetPosition(pos int64) { r.pos = pos }
func (r *reverseReader) Reversed() bool        { return true }

type forwardReader struct {
	store *BytesStore
	pos   int64
}

func (r *forwardReader) ReadByte() (byte, error) {
	if r.pos < 0 || r.pos >= int64(len(r.store.b)) {
		return 0, errReadOutOfBounds()
	}
	c := r.store.b[r.pos]
	r.pos++
	return c, nil
}

func (r *forwardReader) ReadFull(p []byte) error {
	if r.pos < 0 || r.pos+int64(len(p)) > int64(len(r.store.b)) {
		return errReadOutOfBounds()
	}
	copy(p, r.store.b[r.pos:])
	r.pos += int64(len(p))
	return nil
}

func (r *forwardReader) SkipBytes(n int64)     { r.pos += n }
func (r *forwardReader) Position() int64       { return r.pos }
func (r *forwardReader) SetPosition(pos int64) { r.pos = pos }
func (r *forwardReader) Reversed() bool        { return false }
