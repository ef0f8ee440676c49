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

package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/segment"
	xerrors "github.com/m3db/m3fst/src/x/errors"

	jsoniter "github.com/json-iterator/go"
)

const streamBufferSize = 4096

// validateSegment walks every term and doc of a segment, checking ordering
// and that the recorded statistics match the postings.
func validateSegment(r segment.Reader) error {
	var (
		docs      postings.DocsEnum
		positions postings.DocsAndPositionsEnum
	)
	for _, info := range r.Fields() {
		_, stats, _ := r.Field(info.Name)
		it, err := r.Terms(info.Name)
		if err != nil {
			return err
		}

		var (
			actual   segment.FieldStats
			lastTerm []byte
		)
		for it.Next() {
			term := it.Current()
			if actual.NumTerms > 0 && bytes.Compare(lastTerm, term) >= 0 {
				it.Close()
				return corruptf("field %s: term %q not after %q", info.Name, term, lastTerm)
			}
			lastTerm = append(lastTerm[:0], term...)

			termStats, err := it.Stats()
			if err != nil {
				it.Close()
				return err
			}
			var count, sumFreq int64
			if info.IndexOptions.HasPositions() {
				positions, err = it.DocsAndPositions(nil, positions)
				if err == nil {
					count, sumFreq, err = validatePositions(positions)
				}
			} else {
				docs, err = it.Docs(nil, docs)
				if err == nil {
					count, sumFreq, err = validateDocs(docs)
				}
			}
			if err != nil {
				it.Close()
				return fmt.Errorf("field %s, term %q: %w", info.Name, term, err)
			}

			if count != int64(termStats.DocFreq) {
				it.Close()
				return corruptf("field %s, term %q: doc freq %d, read %d docs",
					info.Name, term, termStats.DocFreq, count)
			}
			if info.IndexOptions.HasFreqs() && sumFreq != termStats.TotalTermFreq {
				it.Close()
				return corruptf("field %s, term %q: total term freq %d, read %d",
					info.Name, term, termStats.TotalTermFreq, sumFreq)
			}
			actual.NumTerms++
			actual.SumDocFreq += count
			actual.SumTotalTermFreq += sumFreq
		}
		if err := it.Err(); err != nil {
			it.Close()
			return err
		}
		if err := it.Close(); err != nil {
			return err
		}

		if !info.IndexOptions.HasFreqs() {
			actual.SumTotalTermFreq = stats.SumTotalTermFreq
		}
		if actual != stats {
			return corruptf("field %s: stats %+v, read %+v", info.Name, stats, actual)
		}
	}
	return nil
}

func validateDocs(docs postings.DocsEnum) (int64, int64, error) {
	var (
		count, sumFreq int64
		last           = -1
	)
	for {
		doc, err := docs.NextDoc()
		if err != nil {
			return 0, 0, err
		}
		if doc == postings.NoMoreDocs {
			return count, sumFreq, nil
		}
		if doc <= last {
			return 0, 0, corruptf("doc %d not after %d", doc, last)
		}
		if docs.Freq() < 1 {
			return 0, 0, corruptf("doc %d: invalid freq %d", doc, docs.Freq())
		}
		last = doc
		count++
		sumFreq += int64(docs.Freq())
	}
}

func validatePositions(docs postings.DocsAndPositionsEnum) (int64, int64, error) {
	var (
		count, sumFreq int64
		last           = -1
	)
	for {
		doc, err := docs.NextDoc()
		if err != nil {
			return 0, 0, err
		}
		if doc == postings.NoMoreDocs {
			return count, sumFreq, nil
		}
		if doc <= last {
			return 0, 0, corruptf("doc %d not after %d", doc, last)
		}
		freq := docs.Freq()
		if freq < 1 {
			return 0, 0, corruptf("doc %d: invalid freq %d", doc, freq)
		}
		lastPosition := 0
		for i := 0; i < freq; i++ {
			position, err := docs.NextPosition()
			if err != nil {
				return 0, 0, err
			}
			if position < lastPosition {
				return 0, 0, corruptf("doc %d: position %d before %d", doc, position, lastPosition)
			}
			lastPosition = position
		}
		last = doc
		count++
		sumFreq += int64(freq)
	}
}

func corruptf(format string, args ...interface{}) error {
	return xerrors.NewCorruptionError(fmt.Errorf(format, args...))
}

// writeSegment writes a segment as a single line of JSON.
func writeSegment(out io.Writer, prefix string, r segment.Reader) error {
	s := jsoniter.NewStream(jsoniter.ConfigDefault, out, streamBufferSize)
	s.WriteObjectStart()
	s.WriteObjectField("prefix")
	s.WriteString(prefix)
	s.WriteMore()
	s.WriteObjectField("fields")
	s.WriteArrayStart()
	for i, info := range r.Fields() {
		if i > 0 {
			s.WriteMore()
		}
		if err := writeField(s, r, info); err != nil {
			return err
		}
	}
	s.WriteArrayEnd()
	s.WriteObjectEnd()
	s.WriteRaw("\n")
	if s.Error != nil {
		return s.Error
	}
	return s.Flush()
}

func writeField(s *jsoniter.Stream, r segment.Reader, info postings.FieldInfo) error {
	_, stats, _ := r.Field(info.Name)
	s.WriteObjectStart()
	s.WriteObjectField("field")
	s.WriteString(info.Name)
	s.WriteMore()
	s.WriteObjectField("indexOptions")
	s.WriteString(info.IndexOptions.String())
	s.WriteMore()
	s.WriteObjectField("numTerms")
	s.WriteInt64(stats.NumTerms)
	s.WriteMore()
	s.WriteObjectField("sumDocFreq")
	s.WriteInt64(stats.SumDocFreq)
	s.WriteMore()
	s.WriteObjectField("sumTotalTermFreq")
	s.WriteInt64(stats.SumTotalTermFreq)
	s.WriteMore()

	it, err := r.Terms(info.Name)
	if err != nil {
		return err
	}
	defer it.Close()

	var (
		docs      postings.DocsEnum
		positions postings.DocsAndPositionsEnum
	)
	s.WriteObjectField("terms")
	s.WriteArrayStart()
	for i := 0; it.Next(); i++ {
		if i > 0 {
			s.WriteMore()
		}
		termStats, err := it.Stats()
		if err != nil {
			return err
		}
		s.WriteObjectStart()
		s.WriteObjectField("term")
		s.WriteString(string(it.Current()))
		s.WriteMore()
		s.WriteObjectField("docFreq")
		s.WriteInt(termStats.DocFreq)
		s.WriteMore()
		s.WriteObjectField("totalTermFreq")
		s.WriteInt64(termStats.TotalTermFreq)
		s.WriteMore()
		s.WriteObjectField("postings")
		if info.IndexOptions.HasPositions() {
			if positions, err = it.DocsAndPositions(nil, positions); err != nil {
				return err
			}
			err = writePositions(s, positions, info.StorePayloads)
		} else {
			if docs, err = it.Docs(nil, docs); err != nil {
				return err
			}
			err = writeDocs(s, docs)
		}
		if err != nil {
			return err
		}
		s.WriteObjectEnd()
	}
	s.WriteArrayEnd()
	s.WriteObjectEnd()
	return it.Err()
}

func writeDocs(s *jsoniter.Stream, docs postings.DocsEnum) error {
	s.WriteArrayStart()
	for i := 0; ; i++ {
		doc, err := docs.NextDoc()
		if err != nil {
			return err
		}
		if doc == postings.NoMoreDocs {
			break
		}
		if i > 0 {
			s.WriteMore()
		}
		s.WriteObjectStart()
		s.WriteObjectField("doc")
		s.WriteInt(doc)
		s.WriteMore()
		s.WriteObjectField("freq")
		s.WriteInt(docs.Freq())
		s.WriteObjectEnd()
	}
	s.WriteArrayEnd()
	return nil
}

func writePositions(s *jsoniter.Stream, docs postings.DocsAndPositionsEnum, payloads bool) error {
	s.WriteArrayStart()
	for i := 0; ; i++ {
		doc, err := docs.NextDoc()
		if err != nil {
			return err
		}
		if doc == postings.NoMoreDocs {
			break
		}
		if i > 0 {
			s.WriteMore()
		}
		s.WriteObjectStart()
		s.WriteObjectField("doc")
		s.WriteInt(doc)
		s.WriteMore()
		s.WriteObjectField("freq")
		s.WriteInt(docs.Freq())
		s.WriteMore()
		s.WriteObjectField("positions")
		s.WriteArrayStart()
		for j := 0; j < docs.Freq(); j++ {
			if j > 0 {
				s.WriteMore()
			}
			position, err := docs.NextPosition()
			if err != nil {
				return err
			}
			s.WriteObjectStart()
			s.WriteObjectField("position")
			s.WriteInt(position)
			if payloads {
				payload, err := docs.Payload()
				if err != nil {
					return err
				}
				s.WriteMore()
				s.WriteObjectField("payload")
				s.WriteString(string(payload))
			}
			s.WriteObjectEnd()
		}
		s.WriteArrayEnd()
		s.WriteObjectEnd()
	}
	s.WriteArrayEnd()
	return nil
}
