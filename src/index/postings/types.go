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

// Package postings defines the postings codec contracts used by the terms
// dictionary and provides the standard codec, which stores doc deltas and
// frequencies in a freq stream and positions and payloads in a prox stream.
package postings

import (
	"errors"
	"fmt"
	"math"

	"github.com/m3db/m3fst/src/index/encoding"
)

// NoMoreDocs is returned by a DocsEnum once it is exhausted.
const NoMoreDocs = math.MaxInt32

var (
	// ErrPayloadAlreadyRetrieved is returned when the payload of the current
	// position is requested twice.
	ErrPayloadAlreadyRetrieved = errors.New("payload already retrieved for current position")

	errNoTermsOutput = errors.New("postings writer not started")
)

// IndexOptions controls what is indexed for a field.
type IndexOptions uint8

const (
	// DocsOnly indexes only doc ids.
	DocsOnly IndexOptions = iota
	// DocsAndFreqs indexes doc ids and term frequencies.
	DocsAndFreqs
	// DocsAndFreqsAndPositions indexes doc ids, term frequencies and
	// positions.
	DocsAndFreqsAndPositions
)

// Validate returns an error if the index options are unknown.
func (o IndexOptions) Validate() error {
	if o > DocsAndFreqsAndPositions {
		return fmt.Errorf("invalid index options: %d", o)
	}
	return nil
}

// HasFreqs returns true if term frequencies are indexed.
func (o IndexOptions) HasFreqs() bool { return o >= DocsAndFreqs }

// HasPositions returns true if positions are indexed.
func (o IndexOptions) HasPositions() bool { return o >= DocsAndFreqsAndPositions }

func (o IndexOptions) String() string {
	switch o {
	case DocsOnly:
		return "docs"
	case DocsAndFreqs:
		return "freqs"
	case DocsAndFreqsAndPositions:
		return "positions"
	}
	return "unknown"
}

// UnmarshalYAML unmarshals index options from their string form.
func (o *IndexOptions) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	for _, valid := range []IndexOptions{DocsOnly, DocsAndFreqs, DocsAndFreqsAndPositions} {
		if str == valid.String() {
			*o = valid
			return nil
		}
	}
	return fmt.Errorf("invalid index options: %q", str)
}

// FieldInfo describes how a field is indexed.
type FieldInfo struct {
	Name          string
	Number        int
	IndexOptions  IndexOptions
	StorePayloads bool
}

// TermStats are the statistics of a single term.
type TermStats struct {
	DocFreq int
	// TotalTermFreq is -1 when frequencies are not indexed.
	TotalTermFreq int64
}

// BlockTermState is the state of a term that the terms dictionary tracks,
// independent of the postings codec.
type BlockTermState struct {
	DocFreq       int
	TotalTermFreq int64
	// TermBlockOrd is the ordinal of the term in its terms block.
	TermBlockOrd int
}

// Block returns the state itself.
func (s *BlockTermState) Block() *BlockTermState { return s }

// CopyFrom copies another block term state.
func (s *BlockTermState) CopyFrom(other *BlockTermState) { *s = *other }

// TermState is term metadata owned by a postings reader, positioned by
// NextTerm and consumed by Docs and DocsAndPositions.
type TermState interface {
	// Block returns the codec independent part of the state.
	Block() *BlockTermState

	// Clone returns an independent copy of the state.
	Clone() TermState

	// CopyFrom copies other into the state, other must have been created by
	// the same reader.
	CopyFrom(other TermState) error
}

// Bits is a set of doc ids, used to filter live documents.
type Bits interface {
	Get(doc int) bool
}

// DocsEnum iterates the docs of a term in increasing doc id order.
type DocsEnum interface {
	// DocID returns the current doc, -1 before the first call to NextDoc and
	// NoMoreDocs once exhausted.
	DocID() int

	// Freq returns the term frequency in the current doc, 1 if frequencies
	// are not indexed.
	Freq() int

	// NextDoc moves to the next doc.
	NextDoc() (int, error)

	// Advance moves to the first doc greater than or equal to target.
	Advance(target int) (int, error)
}

// DocsAndPositionsEnum extends DocsEnum with positions and payloads.
type DocsAndPositionsEnum interface {
	DocsEnum

	// NextPosition returns the next position in the current doc, it must be
	// called at most Freq times per doc.
	NextPosition() (int, error)

	// Payload returns the payload of the current position, nil if there is
	// none. It can be called once per position. The returned slice must not
	// be modified and stays valid after the enum moves or is reused.
	Payload() ([]byte, error)
}

// Writer writes the postings of terms to codec specific outputs and term
// metadata to the terms dictionary output.
type Writer interface {
	// Start writes the codec header to the terms output.
	Start(termsOut *encoding.Encoder) error

	// SetField sets the field of subsequent terms.
	SetField(field FieldInfo)

	// StartTerm starts a new term.
	StartTerm() error

	// StartDoc adds a doc to the current term, docs must be added in
	// increasing doc id order.
	StartDoc(docID, termDocFreq int) error

	// AddPosition adds a position to the current doc.
	AddPosition(position int, payload []byte) error

	// FinishDoc finishes the current doc.
	FinishDoc() error

	// FinishTerm finishes the current term.
	FinishTerm(stats TermStats) error

	// FlushTermsBlock writes the metadata of every finished term not yet
	// flushed to the terms output as one block.
	FlushTermsBlock() error

	// Close closes the writer.
	Close() error
}

// Reader reads postings written by the matching Writer.
type Reader interface {
	// Init reads the codec header from the terms input.
	Init(termsIn *encoding.Decoder) error

	// NewTermState returns a new term state for this reader.
	NewTermState() TermState

	// ReadTermsBlock reads the block metadata written by FlushTermsBlock.
	ReadTermsBlock(termsIn *encoding.Decoder, field FieldInfo, state TermState) error

	// NextTerm decodes the metadata of the next term in the block, the
	// block stats of state must already be set.
	NextTerm(field FieldInfo, state TermState) error

	// Docs returns an enum over the docs of the term, reuse may be nil.
	Docs(field FieldInfo, state TermState, liveDocs Bits, reuse DocsEnum) (DocsEnum, error)

	// DocsAndPositions returns an enum over the docs and positions of the
	// term, or nil if the field does not index positions.
	DocsAndPositions(
		field FieldInfo,
		state TermState,
		liveDocs Bits,
		reuse DocsAndPositionsEnum,
	) (DocsAndPositionsEnum, error)

	// Close closes the reader.
	Close() error
}
