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

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/postings"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errTooManyPositions = errors.New("next position called more than freq times")

// inlineDocsEnum iterates docs over a copy of an inline blob.
type inlineDocsEnum struct {
	indexOptions  postings.IndexOptions
	storePayloads bool

	postings []byte
	in       *encoding.Decoder
	liveDocs postings.Bits

	accum         int
	doc           int
	freq          int
	payloadLength int
}

func newInlineDocsEnum(field postings.FieldInfo) *inlineDocsEnum {
	return &inlineDocsEnum{
		indexOptions:  field.IndexOptions,
		storePayloads: field.StorePayloads,
		in:            encoding.NewDecoder(nil),
	}
}

func (e *inlineDocsEnum) canReuse(field postings.FieldInfo) bool {
	return e.indexOptions == field.IndexOptions && e.storePayloads == field.StorePayloads
}

func (e *inlineDocsEnum) reset(st *TermState, liveDocs postings.Bits) {
	e.postings = append(e.postings[:0], st.inlined...)
	e.in.Reset(e.postings)
	e.liveDocs = liveDocs
	e.accum = 0
	e.doc = -1
	e.freq = 1
	e.payloadLength = 0
}

func (e *inlineDocsEnum) DocID() int { return e.doc }

func (e *inlineDocsEnum) Freq() int { return e.freq }

func (e *inlineDocsEnum) NextDoc() (int, error) {
	for {
		if e.in.EOF() {
			e.doc = postings.NoMoreDocs
			return e.doc, nil
		}
		delta, freq, err := postings.ReadDocCode(e.in, e.indexOptions.HasFreqs())
		if err != nil {
			return 0, err
		}
		e.accum += delta
		e.freq = freq

		if e.indexOptions.HasPositions() {
			if err := e.skipPositions(freq); err != nil {
				return 0, err
			}
		}
		if e.liveDocs == nil || e.liveDocs.Get(e.accum) {
			e.doc = e.accum
			return e.doc, nil
		}
	}
}

func (e *inlineDocsEnum) skipPositions(freq int) error {
	for i := 0; i < freq; i++ {
		code, err := e.in.Uvarint()
		if err != nil {
			return err
		}
		if !e.storePayloads {
			continue
		}
		if code&1 != 0 {
			if e.payloadLength, err = e.in.Int(); err != nil {
				return err
			}
		}
		if err := e.in.Skip(e.payloadLength); err != nil {
			return err
		}
	}
	return nil
}

func (e *inlineDocsEnum) Advance(target int) (int, error) {
	for {
		doc, err := e.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

// inlinePositionsEnum iterates docs and positions over a copy of an inline
// blob.
type inlinePositionsEnum struct {
	storePayloads bool

	postings []byte
	in       *encoding.Decoder
	liveDocs postings.Bits

	accum      int
	doc        int
	freq       int
	position   int
	posPending int

	payloadLength    int
	payloadRetrieved bool

	// payloadsShared is set once a payload aliasing postings was returned,
	// postings is then reallocated on reset instead of overwritten.
	payloadsShared bool
}

func newInlinePositionsEnum(field postings.FieldInfo) *inlinePositionsEnum {
	return &inlinePositionsEnum{
		storePayloads: field.StorePayloads,
		in:            encoding.NewDecoder(nil),
	}
}

func (e *inlinePositionsEnum) canReuse(field postings.FieldInfo) bool {
	return field.IndexOptions.HasPositions() && e.storePayloads == field.StorePayloads
}

func (e *inlinePositionsEnum) reset(st *TermState, liveDocs postings.Bits) {
	if e.payloadsShared {
		e.postings = nil
		e.payloadsShared = false
	}
	e.postings = append(e.postings[:0], st.inlined...)
	e.in.Reset(e.postings)
	e.liveDocs = liveDocs
	e.accum = 0
	e.doc = -1
	e.freq = 0
	e.position = 0
	e.posPending = 0
	e.payloadLength = 0
	e.payloadRetrieved = true
}

func (e *inlinePositionsEnum) DocID() int { return e.doc }

func (e *inlinePositionsEnum) Freq() int { return e.freq }

func (e *inlinePositionsEnum) NextDoc() (int, error) {
	for {
		if err := e.skipPositions(); err != nil {
			return 0, err
		}
		if e.in.EOF() {
			e.doc = postings.NoMoreDocs
			return e.doc, nil
		}
		delta, freq, err := postings.ReadDocCode(e.in, true)
		if err != nil {
			return 0, err
		}
		e.accum += delta
		e.freq = freq
		e.posPending = freq
		if e.liveDocs == nil || e.liveDocs.Get(e.accum) {
			e.position = 0
			e.doc = e.accum
			return e.doc, nil
		}
	}
}

func (e *inlinePositionsEnum) Advance(target int) (int, error) {
	for {
		doc, err := e.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

func (e *inlinePositionsEnum) skipPositions() error {
	for e.posPending > 0 {
		if _, err := e.NextPosition(); err != nil {
			return err
		}
	}
	if e.storePayloads && !e.payloadRetrieved {
		if err := e.in.Skip(e.payloadLength); err != nil {
			return err
		}
		e.payloadRetrieved = true
	}
	return nil
}

func (e *inlinePositionsEnum) NextPosition() (int, error) {
	if e.posPending <= 0 {
		return 0, xerrors.NewInvalidStateError(errTooManyPositions)
	}
	e.posPending--

	if !e.storePayloads {
		code, err := e.in.Uvarint()
		if err != nil {
			return 0, err
		}
		e.position += int(code)
		return e.position, nil
	}

	if !e.payloadRetrieved {
		if err := e.in.Skip(e.payloadLength); err != nil {
			return 0, err
		}
	}
	code, err := e.in.Uvarint()
	if err != nil {
		return 0, err
	}
	if code&1 != 0 {
		if e.payloadLength, err = e.in.Int(); err != nil {
			return 0, err
		}
	}
	e.position += int(code >> 1)
	e.payloadRetrieved = false
	return e.position, nil
}

func (e *inlinePositionsEnum) Payload() ([]byte, error) {
	if !e.storePayloads {
		return nil, nil
	}
	if e.payloadRetrieved {
		return nil, xerrors.NewInvalidStateError(postings.ErrPayloadAlreadyRetrieved)
	}
	e.payloadRetrieved = true
	if e.payloadLength == 0 {
		return nil, nil
	}
	b, err := e.in.RawBytes(e.payloadLength)
	if err != nil {
		return nil, err
	}
	e.payloadsShared = true
	return b[:len(b):len(b)], nil
}
