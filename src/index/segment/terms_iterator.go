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

package segment

import (
	"errors"
	"fmt"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	xerrors "github.com/m3db/m3fst/src/x/errors"
)

var (
	errIteratorClosed = errors.New("terms iterator is closed")
	errNotPositioned  = errors.New("terms iterator is not positioned on a term")
)

type termsIterator struct {
	r       *reader
	field   *fieldState
	enum    *fst.Enum[termOutput]
	state   postings.TermState
	termsIn *encoding.Decoder
	statsIn *encoding.Decoder

	current    []byte
	output     termOutput
	positioned bool
	closed     bool
	err        error

	// The loaded terms dictionary block, blockOrd is the ordinal of the
	// last term decoded into state.
	blockFP    int64
	blockOrd   int
	blockStats []postings.TermStats
}

func newTermsIterator(r *reader) *termsIterator {
	return &termsIterator{
		r:       r,
		state:   r.postings.NewTermState(),
		termsIn: encoding.NewDecoder(r.data.TermsDict),
		statsIn: encoding.NewDecoder(nil),
		blockFP: -1,
	}
}

func (it *termsIterator) reset(field *fieldState) {
	it.field = field
	it.current = it.current[:0]
	it.positioned = false
	it.closed = false
	it.err = nil
	it.blockFP = -1
	if it.hasTerms() {
		if it.enum == nil {
			it.enum = fst.NewEnum(field.terms)
		} else {
			it.enum.ResetFST(field.terms)
		}
	}
}

func (it *termsIterator) hasTerms() bool {
	return it.field != nil && it.field.terms != nil
}

func (it *termsIterator) Next() bool {
	if it.closed || it.err != nil || !it.hasTerms() {
		return false
	}
	ok, err := it.enum.Next()
	if err != nil {
		it.err = err
		it.positioned = false
		return false
	}
	return it.position(ok)
}

func (it *termsIterator) position(ok bool) bool {
	it.current = it.current[:0]
	it.positioned = ok
	if !ok {
		return false
	}
	labels, output := it.enum.Current()
	for _, label := range labels {
		it.current = append(it.current, byte(label))
	}
	it.output = output
	return true
}

func (it *termsIterator) SeekCeil(term []byte) (bool, error) {
	if it.closed {
		return false, xerrors.NewInvalidStateError(errIteratorClosed)
	}
	if !it.hasTerms() {
		return false, nil
	}
	ok, err := it.enum.SeekCeil(fst.BytesToInts(term))
	if err != nil {
		it.positioned = false
		return false, err
	}
	return it.position(ok), nil
}

func (it *termsIterator) SeekExact(term []byte) (bool, error) {
	if it.closed {
		return false, xerrors.NewInvalidStateError(errIteratorClosed)
	}
	if !it.hasTerms() {
		return false, nil
	}
	if f := it.field.bloom; f != nil && !f.Test(term) {
		it.enum.Reset()
		return it.position(false), nil
	}
	ok, err := it.enum.SeekExact(fst.BytesToInts(term))
	if err != nil {
		it.positioned = false
		return false, err
	}
	return it.position(ok), nil
}

func (it *termsIterator) Current() []byte {
	if !it.positioned {
		return nil
	}
	return it.current
}

// decode decodes the postings state of the current term, reading forward
// within the loaded block when possible.
func (it *termsIterator) decode() error {
	if it.closed {
		return xerrors.NewInvalidStateError(errIteratorClosed)
	}
	if !it.positioned {
		return xerrors.NewInvalidStateError(errNotPositioned)
	}

	fp, ord := it.output.Output1, int(it.output.Output2)
	if fp != it.blockFP || ord < it.blockOrd {
		if err := it.loadBlock(fp); err != nil {
			it.blockFP = -1
			return err
		}
	}
	if ord >= len(it.blockStats) {
		it.blockFP = -1
		return xerrors.NewCorruptionError(fmt.Errorf(
			"term ordinal out of range: block=%d, ord=%d, terms=%d", fp, ord, len(it.blockStats)))
	}

	for it.blockOrd < ord {
		it.blockOrd++
		stats := it.blockStats[it.blockOrd]
		block := it.state.Block()
		block.DocFreq = stats.DocFreq
		block.TotalTermFreq = stats.TotalTermFreq
		block.TermBlockOrd = it.blockOrd
		if err := it.r.postings.NextTerm(it.field.info, it.state); err != nil {
			it.blockFP = -1
			return err
		}
	}
	return nil
}

func (it *termsIterator) loadBlock(fp int64) error {
	if err := it.termsIn.Seek(int(fp)); err != nil {
		return err
	}
	count, err := it.termsIn.Int()
	if err != nil {
		return err
	}
	if count == 0 {
		return xerrors.NewCorruptionError(fmt.Errorf("empty terms block at %d", fp))
	}
	b, err := it.termsIn.Bytes()
	if err != nil {
		return err
	}

	it.statsIn.Reset(b)
	it.blockStats = it.blockStats[:0]
	hasFreqs := it.field.info.IndexOptions.HasFreqs()
	for i := 0; i < count; i++ {
		docFreq, err := it.statsIn.Int()
		if err != nil {
			return err
		}
		stats := postings.TermStats{DocFreq: docFreq, TotalTermFreq: -1}
		if hasFreqs {
			delta, err := it.statsIn.Uvarint()
			if err != nil {
				return err
			}
			stats.TotalTermFreq = int64(docFreq) + int64(delta)
		}
		it.blockStats = append(it.blockStats, stats)
	}
	if !it.statsIn.EOF() {
		return xerrors.NewCorruptionError(fmt.Errorf(
			"%d trailing bytes after term stats of block %d", it.statsIn.Remaining(), fp))
	}

	if err := it.r.postings.ReadTermsBlock(it.termsIn, it.field.info, it.state); err != nil {
		return err
	}
	it.blockFP = fp
	it.blockOrd = -1
	return nil
}

func (it *termsIterator) Stats() (postings.TermStats, error) {
	if err := it.decode(); err != nil {
		return postings.TermStats{}, err
	}
	block := it.state.Block()
	return postings.TermStats{
		DocFreq:       block.DocFreq,
		TotalTermFreq: block.TotalTermFreq,
	}, nil
}

func (it *termsIterator) TermState() (postings.TermState, error) {
	if err := it.decode(); err != nil {
		return nil, err
	}
	return it.state.Clone(), nil
}

func (it *termsIterator) Docs(
	liveDocs postings.Bits,
	reuse postings.DocsEnum,
) (postings.DocsEnum, error) {
	if err := it.decode(); err != nil {
		return nil, err
	}
	return it.r.postings.Docs(it.field.info, it.state, liveDocs, reuse)
}

func (it *termsIterator) DocsAndPositions(
	liveDocs postings.Bits,
	reuse postings.DocsAndPositionsEnum,
) (postings.DocsAndPositionsEnum, error) {
	if err := it.decode(); err != nil {
		return nil, err
	}
	return it.r.postings.DocsAndPositions(it.field.info, it.state, liveDocs, reuse)
}

func (it *termsIterator) Err() error {
	return it.err
}

func (it *termsIterator) Close() error {
	if it.closed {
		return xerrors.NewInvalidStateError(errIteratorClosed)
	}
	it.closed = true
	it.field = nil
	it.positioned = false
	it.r.iterPool.Put(it)
	return nil
}
