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

// Package segment implements an immutable index segment: a terms
// dictionary backed by one FST per field and pulsing postings.
package segment

import (
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/x/instrument"
	"github.com/m3db/m3fst/src/x/pool"
)

const (
	magicNumber = 0x6D33F57E

	// MajorVersion is the major version of the segment format.
	MajorVersion = 1

	// MinorVersion is the minor version of the segment format.
	MinorVersion = 0
)

// Position is a term position within a doc.
type Position struct {
	Position int
	Payload  []byte
}

// Doc is the occurrence of a term in a single doc.
type Doc struct {
	ID int

	// Freq is the term frequency in the doc. It is ignored for docs only
	// fields and defaults to the number of positions, or one for fields
	// without positions.
	Freq int

	// Positions are the term positions in increasing order, only used for
	// fields indexing positions.
	Positions []Position
}

// Postings are the docs of a term in increasing doc order.
type Postings []Doc

// FieldStats are the aggregated term statistics of a field.
type FieldStats struct {
	NumTerms         int64
	SumDocFreq       int64
	SumTotalTermFreq int64
}

// Data holds the serialized sections of a segment.
type Data struct {
	// Info holds the versions, field infos and field statistics.
	Info []byte

	// TermsIndex holds the per field terms FSTs followed by the fields FST.
	TermsIndex []byte

	// TermsDict holds term stats and postings metadata in blocks.
	TermsDict []byte

	// Freq holds doc deltas and frequencies.
	Freq []byte

	// Prox holds positions and payloads.
	Prox []byte
}

// Writer writes a segment. Fields must be added in increasing name order and
// the terms of a field in increasing byte order.
type Writer interface {
	// AddField starts a new field, finishing the previous one.
	AddField(field postings.FieldInfo) error

	// AddTerm adds a term of the current field with its postings.
	AddTerm(term []byte, docs Postings) error

	// Finish finishes the segment and returns its serialized data. The writer
	// can not be used afterwards unless it is reset.
	Finish() (Data, error)

	// Reset resets the writer so it can write a new segment.
	Reset() error
}

// Reader reads a segment. It is safe for concurrent use, the iterators it
// returns are not.
type Reader interface {
	// Fields returns the fields of the segment in name order.
	Fields() []postings.FieldInfo

	// Field returns the info and stats of a field.
	Field(name string) (postings.FieldInfo, FieldStats, bool)

	// Terms returns an iterator over the terms of a field, the iterator of
	// an unknown field is empty.
	Terms(field string) (TermsIterator, error)

	// Close closes the reader.
	Close() error
}

// TermsIterator iterates the terms of a field in byte order.
type TermsIterator interface {
	// Next moves to the next term.
	Next() bool

	// SeekCeil moves to the smallest term greater than or equal to term.
	SeekCeil(term []byte) (bool, error)

	// SeekExact moves to term if it exists. After a miss the iterator is
	// positioned before its first term.
	SeekExact(term []byte) (bool, error)

	// Current returns the current term. The returned bytes are only valid
	// until the iterator moves.
	Current() []byte

	// Stats returns the statistics of the current term.
	Stats() (postings.TermStats, error)

	// TermState returns a copy of the decoded postings state of the current
	// term.
	TermState() (postings.TermState, error)

	// Docs returns the docs of the current term.
	Docs(liveDocs postings.Bits, reuse postings.DocsEnum) (postings.DocsEnum, error)

	// DocsAndPositions returns the docs and positions of the current term, it
	// returns nil if the field does not index positions.
	DocsAndPositions(
		liveDocs postings.Bits,
		reuse postings.DocsAndPositionsEnum,
	) (postings.DocsAndPositionsEnum, error)

	// Err returns any error encountered during iteration.
	Err() error

	// Close releases the iterator.
	Close() error
}

// Options are the options for segment writers and readers.
type Options interface {
	// Validate validates the options.
	Validate() error

	// SetInstrumentOptions sets the instrument options.
	SetInstrumentOptions(value instrument.Options) Options

	// InstrumentOptions returns the instrument options.
	InstrumentOptions() instrument.Options

	// SetMaxPositions sets the number of positions up to which postings are
	// inlined into the terms dictionary.
	SetMaxPositions(value int) Options

	// MaxPositions returns the number of positions up to which postings are
	// inlined into the terms dictionary.
	MaxPositions() int

	// SetTermsPerBlock sets the number of terms per terms dictionary block.
	SetTermsPerBlock(value int) Options

	// TermsPerBlock returns the number of terms per terms dictionary block.
	TermsPerBlock() int

	// SetBuilderOptions sets the options of the terms FST builders.
	SetBuilderOptions(value fst.BuilderOptions) Options

	// BuilderOptions returns the options of the terms FST builders.
	BuilderOptions() fst.BuilderOptions

	// SetTermsIteratorPoolOptions sets the terms iterator pool options.
	SetTermsIteratorPoolOptions(value pool.ObjectPoolOptions) Options

	// TermsIteratorPoolOptions returns the terms iterator pool options.
	TermsIteratorPoolOptions() pool.ObjectPoolOptions

	// SetTermsBloomFilterFalsePositivePercent sets the false positive rate of
	// the per field terms bloom filters built when a reader opens, zero
	// disables them.
	SetTermsBloomFilterFalsePositivePercent(value float64) Options

	// TermsBloomFilterFalsePositivePercent returns the false positive rate of
	// the terms bloom filters.
	TermsBloomFilterFalsePositivePercent() float64
}
