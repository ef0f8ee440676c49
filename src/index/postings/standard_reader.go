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

package postings

import (
	"errors"
	"fmt"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errNoTermsBlock = errors.New("next term called before reading a terms block")

// StandardTermState is the term state of the standard codec.
type StandardTermState struct {
	BlockTermState

	// FreqOffset is the offset of the term's docs in the freq stream.
	FreqOffset int64
	// ProxOffset is the offset of the term's positions in the prox stream.
	ProxOffset int64

	blockBytes []byte
	blockIn    *encoding.Decoder
}

// Clone returns a copy of the term state without its block buffer.
func (s *StandardTermState) Clone() TermState {
	return &StandardTermState{
		BlockTermState: s.BlockTermState,
		FreqOffset:     s.FreqOffset,
		ProxOffset:     s.ProxOffset,
	}
}

// CopyFrom copies the stats and offsets of other.
func (s *StandardTermState) CopyFrom(other TermState) error {
	o, ok := other.(*StandardTermState)
	if !ok {
		return xerrors.NewInvalidParamsError(fmt.Errorf("unexpected term state: %T", other))
	}
	s.BlockTermState = o.BlockTermState
	s.FreqOffset = o.FreqOffset
	s.ProxOffset = o.ProxOffset
	return nil
}

func (s *StandardTermState) String() string {
	return fmt.Sprintf("docFreq=%d totalTermFreq=%d ord=%d freqOffset=%d proxOffset=%d",
		s.DocFreq, s.TotalTermFreq, s.TermBlockOrd, s.FreqOffset, s.ProxOffset)
}

// StandardReader reads postings written by a StandardWriter.
type StandardReader struct {
	freq []byte
	prox []byte
}

// NewStandardReader returns a new standard postings reader over the freq and
// prox streams.
func NewStandardReader(freq, prox []byte) *StandardReader {
	return &StandardReader{freq: freq, prox: prox}
}

// Init checks the codec header.
func (r *StandardReader) Init(termsIn *encoding.Decoder) error {
	_, err := fst.CheckHeader(termsIn, StandardCodecName, StandardVersion, StandardVersion)
	return err
}

// NewTermState returns a new standard term state.
func (r *StandardReader) NewTermState() TermState {
	return &StandardTermState{}
}

func toStandardState(state TermState) (*StandardTermState, error) {
	st, ok := state.(*StandardTermState)
	if !ok {
		return nil, xerrors.NewInvalidParamsError(fmt.Errorf("unexpected term state: %T", state))
	}
	return st, nil
}

// ReadTermsBlock copies the block offsets blob into the state.
func (r *StandardReader) ReadTermsBlock(termsIn *encoding.Decoder, _ FieldInfo, state TermState) error {
	st, err := toStandardState(state)
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
	return nil
}

// NextTerm decodes the offsets of the next term, the first term of a block
// is recognized by a zero TermBlockOrd.
func (r *StandardReader) NextTerm(field FieldInfo, state TermState) error {
	st, err := toStandardState(state)
	if err != nil {
		return err
	}
	if st.blockIn == nil {
		return xerrors.NewInvalidStateError(errNoTermsBlock)
	}

	first := st.TermBlockOrd == 0
	v, err := st.blockIn.Uvarint()
	if err != nil {
		return err
	}
	if first {
		st.FreqOffset = int64(v)
	} else {
		st.FreqOffset += int64(v)
	}
	if st.FreqOffset < 0 || st.FreqOffset > int64(len(r.freq)) {
		return xerrors.NewCorruptionError(fmt.Errorf(
			"freq offset out of range: offset=%d, len=%d", st.FreqOffset, len(r.freq)))
	}

	if !field.IndexOptions.HasPositions() {
		return nil
	}
	if v, err = st.blockIn.Uvarint(); err != nil {
		return err
	}
	if first {
		st.ProxOffset = int64(v)
	} else {
		st.ProxOffset += int64(v)
	}
	if st.ProxOffset < 0 || st.ProxOffset > int64(len(r.prox)) {
		return xerrors.NewCorruptionError(fmt.Errorf(
			"prox offset out of range: offset=%d, len=%d", st.ProxOffset, len(r.prox)))
	}
	return nil
}

// Docs returns an enum over the docs of a term.
func (r *StandardReader) Docs(
	field FieldInfo,
	state TermState,
	liveDocs Bits,
	reuse DocsEnum,
) (DocsEnum, error) {
	st, err := toStandardState(state)
	if err != nil {
		return nil, err
	}
	e, ok := reuse.(*standardDocsEnum)
	if !ok || e.reader != r {
		e = newStandardDocsEnum(r)
	}
	if err := e.reset(field, st, liveDocs); err != nil {
		return nil, err
	}
	return e, nil
}

// DocsAndPositions returns an enum over the docs and positions of a term,
// nil if the field does not index positions.
func (r *StandardReader) DocsAndPositions(
	field FieldInfo,
	state TermState,
	liveDocs Bits,
	reuse DocsAndPositionsEnum,
) (DocsAndPositionsEnum, error) {
	if !field.IndexOptions.HasPositions() {
		return nil, nil
	}
	st, err := toStandardState(state)
	if err != nil {
		return nil, err
	}
	e, ok := reuse.(*standardPositionsEnum)
	if !ok || e.reader != r {
		e = newStandardPositionsEnum(r)
	}
	if err := e.reset(field, st, liveDocs); err != nil {
		return nil, err
	}
	return e, nil
}

// Close closes the reader.
func (r *StandardReader) Close() error {
	return nil
}
