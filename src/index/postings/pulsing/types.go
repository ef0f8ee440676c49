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

// Package pulsing provides a postings codec that inlines the postings of
// rare terms into the terms dictionary and delegates the rest to a wrapped
// postings codec.
package pulsing

import (
	"errors"
	"fmt"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/postings"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

const (
	// CodecName is the codec header name of the pulsing codec.
	CodecName = "PulsedPostings"
	// Version is the only pulsing codec version.
	Version int32 = 0

	// DefaultMaxPositions inlines terms that occur once.
	DefaultMaxPositions = 1
)

var errMissingWrappedState = errors.New("wrapped term state missing")

// TermStateKind is the branch of a pulsing term state.
type TermStateKind uint8

const (
	// InlinedKind is a term whose postings are inlined in the terms block.
	InlinedKind TermStateKind = iota
	// WrappedKind is a term whose postings are in the wrapped codec.
	WrappedKind
)

func (k TermStateKind) String() string {
	switch k {
	case InlinedKind:
		return "inlined"
	case WrappedKind:
		return "wrapped"
	}
	return "unknown"
}

// TermState is the term state of the pulsing codec, it is either inlined
// postings or the state of the wrapped codec.
type TermState struct {
	postings.BlockTermState

	kind    TermStateKind
	inlined []byte
	wrapped postings.TermState

	blockBytes []byte
	blockIn    *encoding.Decoder
}

// Kind returns the branch of the state.
func (s *TermState) Kind() TermStateKind { return s.kind }

// Inlined returns the inlined postings, nil unless the kind is InlinedKind.
func (s *TermState) Inlined() []byte {
	if s.kind != InlinedKind {
		return nil
	}
	return s.inlined
}

// Wrapped returns the wrapped codec's state, nil unless the kind is
// WrappedKind.
func (s *TermState) Wrapped() postings.TermState {
	if s.kind != WrappedKind {
		return nil
	}
	return s.wrapped
}

// Clone returns a deep copy of the state without its block buffer.
func (s *TermState) Clone() postings.TermState {
	clone := &TermState{
		BlockTermState: s.BlockTermState,
		kind:           s.kind,
	}
	if s.kind == InlinedKind {
		clone.inlined = append([]byte(nil), s.inlined...)
	}
	if s.wrapped != nil {
		clone.wrapped = s.wrapped.Clone()
	}
	return clone
}

// CopyFrom deep copies other into the state.
func (s *TermState) CopyFrom(other postings.TermState) error {
	o, ok := other.(*TermState)
	if !ok {
		return xerrors.NewInvalidParamsError(fmt.Errorf("unexpected term state: %T", other))
	}
	s.BlockTermState = o.BlockTermState
	s.kind = o.kind
	if o.kind == InlinedKind {
		s.inlined = append(s.inlined[:0], o.inlined...)
		return nil
	}
	if o.wrapped == nil {
		return xerrors.NewInvalidStateError(errMissingWrappedState)
	}
	if s.wrapped == nil {
		s.wrapped = o.wrapped.Clone()
		return nil
	}
	return s.wrapped.CopyFrom(o.wrapped)
}

func (s *TermState) String() string {
	if s.kind == InlinedKind {
		return fmt.Sprintf("inlined docFreq=%d totalTermFreq=%d size=%d",
			s.DocFreq, s.TotalTermFreq, len(s.inlined))
	}
	return fmt.Sprintf("wrapped docFreq=%d totalTermFreq=%d %v",
		s.DocFreq, s.TotalTermFreq, s.wrapped)
}

// isInlined returns whether a term with the given stats is inlined.
func isInlined(field postings.FieldInfo, docFreq int, totalTermFreq int64, maxPositions int) bool {
	count := int64(docFreq)
	if field.IndexOptions.HasPositions() {
		count = totalTermFreq
	}
	return count <= int64(maxPositions)
}
