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

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var errNotStarted = errors.New("pulsing writer not started")

// pendingEntry is a buffered doc, or a position when positions are indexed.
type pendingEntry struct {
	docID    int
	termFreq int
	position int
	payload  []byte
}

// pendingTerm is a finished term, wrapped terms have no inline blob.
type pendingTerm struct {
	wrapped bool
	inlined []byte
}

// Writer buffers the postings of each term and inlines them into the terms
// block when they fit, otherwise it pushes them to the wrapped writer.
type Writer struct {
	wrapped  postings.Writer
	termsOut *encoding.Encoder
	buf      *encoding.Encoder

	field postings.FieldInfo

	pending []pendingEntry
	// pendingCount is -1 once the current term was pushed to the wrapped
	// writer.
	pendingCount int

	currentDocID    int
	currentTermFreq int

	pendingTerms []pendingTerm
}

// NewWriter returns a new pulsing writer inlining terms whose count is at
// most maxPositions.
func NewWriter(maxPositions int, wrapped postings.Writer) (*Writer, error) {
	if maxPositions < 1 {
		return nil, xerrors.NewInvalidParamsError(fmt.Errorf(
			"max positions must be positive: %d", maxPositions))
	}
	return &Writer{
		wrapped: wrapped,
		buf:     encoding.NewEncoder(64),
		pending: make([]pendingEntry, maxPositions),
	}, nil
}

// Start writes the codec header and the inline threshold, then starts the
// wrapped writer.
func (w *Writer) Start(termsOut *encoding.Encoder) error {
	w.termsOut = termsOut
	if err := fst.WriteHeader(termsOut, CodecName, Version); err != nil {
		return err
	}
	termsOut.PutUvarint(uint64(len(w.pending)))
	return w.wrapped.Start(termsOut)
}

// SetField sets the field of subsequent terms.
func (w *Writer) SetField(field postings.FieldInfo) {
	w.field = field
	w.wrapped.SetField(field)
}

// StartTerm starts a new term.
func (w *Writer) StartTerm() error {
	w.pendingCount = 0
	return nil
}

// StartDoc buffers a doc, pushing the term to the wrapped writer once the
// buffer is full.
func (w *Writer) StartDoc(docID, termDocFreq int) error {
	if w.pendingCount == len(w.pending) {
		if err := w.push(); err != nil {
			return err
		}
		if err := w.wrapped.FinishDoc(); err != nil {
			return err
		}
	}

	if w.pendingCount == -1 {
		return w.wrapped.StartDoc(docID, termDocFreq)
	}

	if docID < 0 || (w.pendingCount > 0 && docID <= w.currentDocID) {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"docs out of order: last=%d, doc=%d", w.currentDocID, docID))
	}
	if w.field.IndexOptions.HasFreqs() && termDocFreq <= 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"invalid term doc freq %d for doc %d", termDocFreq, docID))
	}
	w.currentDocID = docID
	w.currentTermFreq = termDocFreq
	if w.field.IndexOptions.HasPositions() {
		// Positions are buffered as they are added.
		return nil
	}
	w.pending[w.pendingCount] = pendingEntry{docID: docID, termFreq: termDocFreq}
	w.pendingCount++
	return nil
}

// AddPosition buffers a position, pushing the term to the wrapped writer
// once the buffer is full.
func (w *Writer) AddPosition(position int, payload []byte) error {
	if w.pendingCount == len(w.pending) {
		if err := w.push(); err != nil {
			return err
		}
	}
	if w.pendingCount == -1 {
		return w.wrapped.AddPosition(position, payload)
	}
	if !w.field.IndexOptions.HasPositions() {
		return xerrors.NewInvalidStateError(fmt.Errorf(
			"field %s does not index positions", w.field.Name))
	}

	entry := &w.pending[w.pendingCount]
	entry.docID = w.currentDocID
	entry.termFreq = w.currentTermFreq
	entry.position = position
	entry.payload = append(entry.payload[:0], payload...)
	w.pendingCount++
	return nil
}

// FinishDoc finishes the current doc.
func (w *Writer) FinishDoc() error {
	if w.pendingCount == -1 {
		return w.wrapped.FinishDoc()
	}
	return nil
}

// FinishTerm either finishes the term in the wrapped writer or encodes the
// buffered postings as the term's inline blob.
func (w *Writer) FinishTerm(stats postings.TermStats) error {
	if stats.DocFreq <= 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf("invalid doc freq: %d", stats.DocFreq))
	}

	if w.pendingCount == -1 {
		if err := w.wrapped.FinishTerm(stats); err != nil {
			return err
		}
		w.pendingTerms = append(w.pendingTerms, pendingTerm{wrapped: true})
		w.pendingCount = 0
		return nil
	}

	if err := w.encodeInlined(); err != nil {
		return err
	}
	w.pendingTerms = append(w.pendingTerms, pendingTerm{
		inlined: append([]byte(nil), w.buf.Bytes()...),
	})
	w.pendingCount = 0
	return nil
}

func (w *Writer) encodeInlined() error {
	w.buf.Reset()
	lastDocID := 0

	switch {
	case !w.field.IndexOptions.HasFreqs():
		for _, doc := range w.pending[:w.pendingCount] {
			w.buf.PutUvarint(uint64(doc.docID - lastDocID))
			lastDocID = doc.docID
		}

	case !w.field.IndexOptions.HasPositions():
		for _, doc := range w.pending[:w.pendingCount] {
			putDocCode(w.buf, doc.docID-lastDocID, doc.termFreq)
			lastDocID = doc.docID
		}

	default:
		lastPayloadLength := -1
		for idx := 0; idx < w.pendingCount; {
			doc := w.pending[idx]
			if doc.termFreq <= 0 || idx+doc.termFreq > w.pendingCount {
				return xerrors.NewInvalidParamsError(fmt.Errorf(
					"doc %d has term freq %d but fewer positions", doc.docID, doc.termFreq))
			}
			putDocCode(w.buf, doc.docID-lastDocID, doc.termFreq)
			lastDocID = doc.docID

			lastPosition := 0
			for i := 0; i < doc.termFreq; i++ {
				pos := w.pending[idx]
				idx++
				if pos.docID != doc.docID {
					return xerrors.NewInvalidParamsError(fmt.Errorf(
						"doc %d has term freq %d but fewer positions", doc.docID, doc.termFreq))
				}
				delta := pos.position - lastPosition
				if delta < 0 {
					return xerrors.NewInvalidParamsError(fmt.Errorf(
						"positions out of order: last=%d, position=%d", lastPosition, pos.position))
				}
				lastPosition = pos.position

				if !w.field.StorePayloads {
					w.buf.PutUvarint(uint64(delta))
					continue
				}
				if n := len(pos.payload); n != lastPayloadLength {
					lastPayloadLength = n
					w.buf.PutUvarint(uint64(delta)<<1 | 1)
					w.buf.PutUvarint(uint64(n))
				} else {
					w.buf.PutUvarint(uint64(delta) << 1)
				}
				w.buf.PutRawBytes(pos.payload)
			}
		}
	}
	return nil
}

func putDocCode(enc *encoding.Encoder, delta, termFreq int) {
	if termFreq == 1 {
		enc.PutUvarint(uint64(delta)<<1 | 1)
		return
	}
	enc.PutUvarint(uint64(delta) << 1)
	enc.PutUvarint(uint64(termFreq))
}

// push replays the buffered postings into the wrapped writer, leaving the
// last doc open.
func (w *Writer) push() error {
	if err := w.wrapped.StartTerm(); err != nil {
		return err
	}

	if !w.field.IndexOptions.HasPositions() {
		for i, doc := range w.pending[:w.pendingCount] {
			if i > 0 {
				if err := w.wrapped.FinishDoc(); err != nil {
					return err
				}
			}
			if err := w.wrapped.StartDoc(doc.docID, doc.termFreq); err != nil {
				return err
			}
		}
		w.pendingCount = -1
		return nil
	}

	var doc *pendingEntry
	for i := 0; i < w.pendingCount; i++ {
		pos := &w.pending[i]
		if doc == nil || doc.docID != pos.docID {
			if doc != nil {
				if err := w.wrapped.FinishDoc(); err != nil {
					return err
				}
			}
			doc = pos
			if err := w.wrapped.StartDoc(doc.docID, doc.termFreq); err != nil {
				return err
			}
		}
		if err := w.wrapped.AddPosition(pos.position, pos.payload); err != nil {
			return err
		}
	}
	w.pendingCount = -1
	return nil
}

// FlushTermsBlock writes the inline blobs of the pending terms as one blob,
// then flushes the wrapped writer's block.
func (w *Writer) FlushTermsBlock() error {
	if w.termsOut == nil {
		return xerrors.NewInvalidStateError(errNotStarted)
	}

	w.buf.Reset()
	for _, term := range w.pendingTerms {
		if term.wrapped {
			continue
		}
		w.buf.PutBytes(term.inlined)
	}
	w.termsOut.PutBytes(w.buf.Bytes())
	w.pendingTerms = w.pendingTerms[:0]
	return w.wrapped.FlushTermsBlock()
}

// Close closes the wrapped writer.
func (w *Writer) Close() error {
	return w.wrapped.Close()
}
