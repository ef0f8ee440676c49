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
	"fmt"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

const (
	// StandardCodecName is the codec header name of the standard codec.
	StandardCodecName = "StandardPostings"
	// StandardVersion is the only standard codec version.
	StandardVersion int32 = 1
)

type pendingTerm struct {
	freqStart    int64
	proxStart    int64
	hasPositions bool
}

// StandardWriter writes doc deltas and freqs to a freq output and positions
// and payloads to a prox output.
type StandardWriter struct {
	termsOut *encoding.Encoder
	freqOut  *encoding.Encoder
	proxOut  *encoding.Encoder
	blockOut *encoding.Encoder

	field     FieldInfo
	freqStart int64
	proxStart int64

	lastDocID         int
	lastPosition      int
	lastPayloadLength int
	docCount          int
	positionCount     int
	termDocFreq       int

	pending []pendingTerm
}

// NewStandardWriter returns a new standard postings writer, the prox output
// may be nil if no field indexes positions.
func NewStandardWriter(freqOut, proxOut *encoding.Encoder) *StandardWriter {
	return &StandardWriter{
		freqOut:  freqOut,
		proxOut:  proxOut,
		blockOut: encoding.NewEncoder(64),
	}
}

// Start writes the codec header.
func (w *StandardWriter) Start(termsOut *encoding.Encoder) error {
	w.termsOut = termsOut
	return fst.WriteHeader(termsOut, StandardCodecName, StandardVersion)
}

// SetField sets the field of subsequent terms.
func (w *StandardWriter) SetField(field FieldInfo) {
	w.field = field
}

// StartTerm starts a new term.
func (w *StandardWriter) StartTerm() error {
	if w.field.IndexOptions.HasPositions() && w.proxOut == nil {
		return xerrors.NewInvalidStateError(fmt.Errorf(
			"field %s indexes positions without a prox output", w.field.Name))
	}
	w.freqStart = int64(w.freqOut.Len())
	if w.proxOut != nil {
		w.proxStart = int64(w.proxOut.Len())
	}
	w.lastDocID = 0
	w.lastPayloadLength = -1
	w.docCount = 0
	return nil
}

// StartDoc adds a doc to the current term.
func (w *StandardWriter) StartDoc(docID, termDocFreq int) error {
	delta := docID - w.lastDocID
	if docID < 0 || (w.docCount > 0 && delta <= 0) {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"docs out of order: last=%d, doc=%d", w.lastDocID, docID))
	}
	if w.field.IndexOptions.HasFreqs() && termDocFreq <= 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"invalid term doc freq %d for doc %d", termDocFreq, docID))
	}
	w.lastDocID = docID
	w.docCount++

	switch {
	case !w.field.IndexOptions.HasFreqs():
		w.freqOut.PutUvarint(uint64(delta))
	case termDocFreq == 1:
		w.freqOut.PutUvarint(uint64(delta)<<1 | 1)
	default:
		w.freqOut.PutUvarint(uint64(delta) << 1)
		w.freqOut.PutUvarint(uint64(termDocFreq))
	}

	w.lastPosition = 0
	w.positionCount = 0
	w.termDocFreq = termDocFreq
	return nil
}

// AddPosition adds a position to the current doc.
func (w *StandardWriter) AddPosition(position int, payload []byte) error {
	if !w.field.IndexOptions.HasPositions() {
		return xerrors.NewInvalidStateError(fmt.Errorf(
			"field %s does not index positions", w.field.Name))
	}
	delta := position - w.lastPosition
	if delta < 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"positions out of order: last=%d, position=%d", w.lastPosition, position))
	}
	if w.positionCount >= w.termDocFreq {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"more than %d positions in doc %d", w.termDocFreq, w.lastDocID))
	}
	w.lastPosition = position
	w.positionCount++

	if !w.field.StorePayloads {
		w.proxOut.PutUvarint(uint64(delta))
		return nil
	}

	if n := len(payload); n != w.lastPayloadLength {
		w.lastPayloadLength = n
		w.proxOut.PutUvarint(uint64(delta)<<1 | 1)
		w.proxOut.PutUvarint(uint64(n))
	} else {
		w.proxOut.PutUvarint(uint64(delta) << 1)
	}
	w.proxOut.PutRawBytes(payload)
	return nil
}

// FinishDoc finishes the current doc.
func (w *StandardWriter) FinishDoc() error {
	return nil
}

// FinishTerm records the offsets of the current term for the next block.
func (w *StandardWriter) FinishTerm(stats TermStats) error {
	if stats.DocFreq <= 0 || stats.DocFreq != w.docCount {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"invalid doc freq: stats=%d, docs=%d", stats.DocFreq, w.docCount))
	}
	w.pending = append(w.pending, pendingTerm{
		freqStart:    w.freqStart,
		proxStart:    w.proxStart,
		hasPositions: w.field.IndexOptions.HasPositions(),
	})
	return nil
}

// FlushTermsBlock writes the offsets of the pending terms, the first term
// of the block absolute and the rest as deltas.
func (w *StandardWriter) FlushTermsBlock() error {
	if w.termsOut == nil {
		return xerrors.NewInvalidStateError(errNoTermsOutput)
	}

	w.blockOut.Reset()
	var lastFreq, lastProx int64
	for i, term := range w.pending {
		if i == 0 {
			w.blockOut.PutUvarint(uint64(term.freqStart))
		} else {
			w.blockOut.PutUvarint(uint64(term.freqStart - lastFreq))
		}
		lastFreq = term.freqStart
		if term.hasPositions {
			if i == 0 {
				w.blockOut.PutUvarint(uint64(term.proxStart))
			} else {
				w.blockOut.PutUvarint(uint64(term.proxStart - lastProx))
			}
			lastProx = term.proxStart
		}
	}
	w.termsOut.PutBytes(w.blockOut.Bytes())
	w.pending = w.pending[:0]
	return nil
}

// Close closes the writer, the outputs are owned by the caller.
func (w *StandardWriter) Close() error {
	if len(w.pending) > 0 {
		return xerrors.NewInvalidStateError(fmt.Errorf(
			"closing with %d unflushed terms", len(w.pending)))
	}
	return nil
}
