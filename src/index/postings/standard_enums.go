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
	"math"

	"github.com/m3db/m3fst/src/index/encoding"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errTooManyPositions = errors.New("next position called more than freq times")

// ReadDocCode decodes one doc entry written by the standard codec, returning
// the doc delta and its freq. Entries of fields without freqs are the bare
// delta.
func ReadDocCode(in *encoding.Decoder, hasFreqs bool) (int, int, error) {
	code, err := in.Uvarint()
	if err != nil {
		return 0, 0, err
	}
	if !hasFreqs {
		if code > math.MaxInt32 {
			return 0, 0, xerrors.NewCorruptionError(fmt.Errorf("doc delta too large: %d", code))
		}
		return int(code), 1, nil
	}
	delta := code >> 1
	if delta > math.MaxInt32 {
		return 0, 0, xerrors.NewCorruptionError(fmt.Errorf("doc delta too large: %d", delta))
	}
	if code&1 != 0 {
		return int(delta), 1, nil
	}
	freq, err := in.Int()
	if err != nil {
		return 0, 0, err
	}
	if freq <= 1 {
		return 0, 0, xerrors.NewCorruptionError(fmt.Errorf("invalid freq: %d", freq))
	}
	return int(delta), freq, nil
}

type standardDocsEnum struct {
	reader   *StandardReader
	freqIn   *encoding.Decoder
	liveDocs Bits
	hasFreqs bool

	limit int
	ord   int
	accum int
	doc   int
	freq  int
}

func newStandardDocsEnum(r *StandardReader) *standardDocsEnum {
	return &standardDocsEnum{
		reader: r,
		freqIn: encoding.NewDecoder(r.freq),
	}
}

func (e *standardDocsEnum) reset(field FieldInfo, st *StandardTermState, liveDocs Bits) error {
	e.liveDocs = liveDocs
	e.hasFreqs = field.IndexOptions.HasFreqs()
	e.limit = st.DocFreq
	e.ord = 0
	e.accum = 0
	e.doc = -1
	e.freq = 1
	return e.freqIn.Seek(int(st.FreqOffset))
}

func (e *standardDocsEnum) DocID() int { return e.doc }

func (e *standardDocsEnum) Freq() int { return e.freq }

func (e *standardDocsEnum) NextDoc() (int, error) {
	for {
		if e.ord >= e.limit {
			e.doc = NoMoreDocs
			return e.doc, nil
		}
		e.ord++
		delta, freq, err := ReadDocCode(e.freqIn, e.hasFreqs)
		if err != nil {
			return 0, err
		}
		e.accum += delta
		e.freq = freq
		if e.liveDocs == nil || e.liveDocs.Get(e.accum) {
			e.doc = e.accum
			return e.doc, nil
		}
	}
}

func (e *standardDocsEnum) Advance(target int) (int, error) {
	for {
		doc, err := e.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

type standardPositionsEnum struct {
	reader        *StandardReader
	freqIn        *encoding.Decoder
	proxIn        *encoding.Decoder
	liveDocs      Bits
	storePayloads bool

	limit int
	ord   int
	accum int
	doc   int
	freq  int

	position        int
	positionsRead   int
	posPendingCount int
	lazyProxPointer int64

	payloadLength  int
	payloadPending bool
}

func newStandardPositionsEnum(r *StandardReader) *standardPositionsEnum {
	return &standardPositionsEnum{
		reader: r,
		freqIn: encoding.NewDecoder(r.freq),
		proxIn: encoding.NewDecoder(r.prox),
	}
}

func (e *standardPositionsEnum) reset(field FieldInfo, st *StandardTermState, liveDocs Bits) error {
	e.liveDocs = liveDocs
	e.storePayloads = field.StorePayloads
	e.limit = st.DocFreq
	e.ord = 0
	e.accum = 0
	e.doc = -1
	e.freq = 0
	e.position = 0
	e.positionsRead = 0
	e.posPendingCount = 0
	e.lazyProxPointer = st.ProxOffset
	e.payloadLength = 0
	e.payloadPending = false
	return e.freqIn.Seek(int(st.FreqOffset))
}

func (e *standardPositionsEnum) DocID() int { return e.doc }

func (e *standardPositionsEnum) Freq() int { return e.freq }

func (e *standardPositionsEnum) NextDoc() (int, error) {
	for {
		if e.ord >= e.limit {
			e.doc = NoMoreDocs
			return e.doc, nil
		}
		e.ord++
		delta, freq, err := ReadDocCode(e.freqIn, true)
		if err != nil {
			return 0, err
		}
		e.accum += delta
		e.freq = freq
		e.posPendingCount += freq
		if e.liveDocs == nil || e.liveDocs.Get(e.accum) {
			e.doc = e.accum
			e.position = 0
			e.positionsRead = 0
			return e.doc, nil
		}
	}
}

func (e *standardPositionsEnum) Advance(target int) (int, error) {
	for {
		doc, err := e.NextDoc()
		if err != nil || doc >= target {
			return doc, err
		}
	}
}

// skipPositions skips the positions of docs whose positions were not read.
func (e *standardPositionsEnum) skipPositions() error {
	if e.payloadPending && e.payloadLength > 0 {
		if err := e.proxIn.Skip(e.payloadLength); err != nil {
			return err
		}
	}
	e.payloadPending = false

	for e.posPendingCount > e.freq {
		code, err := e.proxIn.Uvarint()
		if err != nil {
			return err
		}
		if e.storePayloads {
			if code&1 != 0 {
				if e.payloadLength, err = e.proxIn.Int(); err != nil {
					return err
				}
			}
			if err := e.proxIn.Skip(e.payloadLength); err != nil {
				return err
			}
		}
		e.posPendingCount--
	}
	return nil
}

func (e *standardPositionsEnum) NextPosition() (int, error) {
	if e.doc < 0 || e.doc == NoMoreDocs || e.positionsRead >= e.freq {
		return 0, xerrors.NewInvalidStateError(errTooManyPositions)
	}
	if e.lazyProxPointer >= 0 {
		if err := e.proxIn.Seek(int(e.lazyProxPointer)); err != nil {
			return 0, err
		}
		e.lazyProxPointer = -1
	}
	if err := e.skipPositions(); err != nil {
		return 0, err
	}

	code, err := e.proxIn.Uvarint()
	if err != nil {
		return 0, err
	}
	if e.storePayloads {
		if code&1 != 0 {
			if e.payloadLength, err = e.proxIn.Int(); err != nil {
				return 0, err
			}
		}
		e.position += int(code >> 1)
		e.payloadPending = true
	} else {
		e.position += int(code)
	}
	e.posPendingCount--
	e.positionsRead++
	return e.position, nil
}

func (e *standardPositionsEnum) Payload() ([]byte, error) {
	if !e.storePayloads {
		return nil, nil
	}
	if !e.payloadPending {
		return nil, xerrors.NewInvalidStateError(ErrPayloadAlreadyRetrieved)
	}
	e.payloadPending = false
	if e.payloadLength == 0 {
		return nil, nil
	}
	b, err := e.proxIn.RawBytes(e.payloadLength)
	if err != nil {
		return nil, err
	}
	// The prox stream is immutable so the payload can alias it.
	return b[:len(b):len(b)], nil
}
