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

package pulsing

import (
	"errors"
	"fmt"
	"math"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errNoTermsBlock = errors.New("next term called before reading a terms block")

// Reader reads postings written by a pulsing Writer, delegating wrapped
// terms to the wrapped reader.
type Reader struct {
	wrapped      postings.Reader
	maxPositions int
}

// NewReader returns a new pulsing reader.
func NewReader(wrapped postings.Reader) *Reader {
	return &Reader{wrapped: wrapped}
}

// MaxPositions returns the inline threshold read from the header.
func (r *Reader) MaxPositions() int { return r.maxPositions }

// Init checks the codec header, reads the inline threshold and initializes
// the wrapped reader.
func (r *Reader) Init(termsIn *encoding.Decoder) error {
	if _, err := fst.CheckHeader(termsIn, CodecName, Version, Version); err != nil {
		return err
	}
	maxPositions, err := termsIn.Int()
	if err != nil {
		return err
	}
	if maxPositions < 1 || maxPositions > math.MaxInt32 {
		return xerrors.NewCorruptionError(fmt.Errorf("invalid max positions: %d", maxPositions))
	}
	r.maxPositions = maxPositions
	return r.wrapped.Init(termsIn)
}

// NewTermState returns a new pulsing term state.
func (r *Reader) NewTermState() postings.TermState {
	return &TermState{kind: InlinedKind, wrapped: r.wrapped.NewTermState()}
}

func toTermState(state postings.TermState) (*TermState, error) {
	st, ok := state.(*TermState)
	if !ok {
		return nil, xerrors.NewInvalidParamsError(fmt.Errorf("unexpected term state: %T", state))
	}
	if st.wrapped == nil {
		return nil, xerrors.NewInvalidStateError(errMissingWrappedState)
	}
	return st, nil
}

// ReadTermsBlock reads the block's inline blobs, then the wrapped reader's
// block.
func (r *Reader) ReadTermsBlock(
	termsIn *encoding.Decoder,
	field postings.FieldInfo,
	state postings.TermState,
) error {
	st, err := toTermState(state)
	if err != nil {
		return err
	}
	b, err := termsIn.Bytes()
	if err != nil {
		return err
	}
	st.blockBytes = append(st.blockBytes[:0], b...)
	if st.blockIn == nil {
		st.blockIn = encoding.NewDecoder(st.blockBytes)
	} else {
		st.blockIn.Reset(st.blockBytes)
	}
	st.wrapped.Block().TermBlockOrd = 0
	return r.wrapped.ReadTermsBlock(termsIn, field, st.wrapped)
}

// NextTerm decodes the next term, inlined if its count is at most the
// inline threshold.
func (r *Reader) NextTerm(field postings.FieldInfo, state postings.TermState) error {
	st, err := toTermState(state)
	if err != nil {
		return err
	}
	if st.blockIn == nil {
		return xerrors.NewInvalidStateError(errNoTermsBlock)
	}

	if isInlined(field, st.DocFreq, st.TotalTermFreq, r.maxPositions) {
		b, err := st.blockIn.Bytes()
		if err != nil {
			return err
		}
		st.kind = InlinedKind
		st.inlined = append(st.inlined[:0], b...)
		return nil
	}

	st.kind = WrappedKind
	wrapped := st.wrapped.Block()
	wrapped.DocFreq = st.DocFreq
	wrapped.TotalTermFreq = st.TotalTermFreq
	if err := r.wrapped.NextTerm(field, st.wrapped); err != nil {
		return err
	}
	wrapped.TermBlockOrd++
	return nil
}

// Docs returns an enum over the docs of a term, reusing reuse only if it
// comes from the same branch.
func (r *Reader) Docs(
	field postings.FieldInfo,
	state postings.TermState,
	liveDocs postings.Bits,
	reuse postings.DocsEnum,
) (postings.DocsEnum, error) {
	st, err := toTermState(state)
	if err != nil {
		return nil, err
	}

	if st.kind == WrappedKind {
		if _, ok := reuse.(*inlineDocsEnum); ok {
			reuse = nil
		}
		return r.wrapped.Docs(field, st.wrapped, liveDocs, reuse)
	}

	e, ok := reuse.(*inlineDocsEnum)
	if !ok || !e.canReuse(field) {
		e = newInlineDocsEnum(field)
	}
	e.reset(st, liveDocs)
	return e, nil
}

// DocsAndPositions returns an enum over the docs and positions of a term,
// nil if the field does not index positions.
func (r *Reader) DocsAndPositions(
	field postings.FieldInfo,
	state postings.TermState,
	liveDocs postings.Bits,
	reuse postings.DocsAndPositionsEnum,
) (postings.DocsAndPositionsEnum, error) {
	if !field.IndexOptions.HasPositions() {
		return nil, nil
	}
	st, err := toTermState(state)
	if err != nil {
		return nil, err
	}

	if st.kind == WrappedKind {
		if _, ok := reuse.(*inlinePositionsEnum); ok {
			reuse = nil
		}
		return r.wrapped.DocsAndPositions(field, st.wrapped, liveDocs, reuse)
	}

	e, ok := reuse.(*inlinePositionsEnum)
	if !ok || !e.canReuse(field) {
		e = newInlinePositionsEnum(field)
	}
	e.reset(st, liveDocs)
	return e, nil
}

// Close closes the wrapped reader.
func (r *Reader) Close() error {
	return r.wrapped.Close()
}
