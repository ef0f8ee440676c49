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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/segment"

	jsoniter "github.com/json-iterator/go"
	"github.com/twotwotwo/sorts"
)

const maxLineBytes = 16 << 20

// document is a line of the input, mapping field names to text.
type document struct {
	Fields map[string]string `json:"fields"`
}

type termPostings map[string]segment.Postings

type sortableTerms [][]byte

func (s sortableTerms) Len() int           { return len(s) }
func (s sortableTerms) Less(i, j int) bool { return bytes.Compare(s[i], s[j]) < 0 }
func (s sortableTerms) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s sortableTerms) Key(i int) []byte   { return s[i] }

func sortFieldInfos(infos []postings.FieldInfo) []postings.FieldInfo {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// invert reads line delimited JSON documents and returns the postings of
// every term per field. Doc IDs are line numbers starting at zero.
func invert(r io.Reader, fields []postings.FieldInfo) (map[string]termPostings, int, error) {
	var (
		json     = jsoniter.ConfigCompatibleWithStandardLibrary
		inverted = make(map[string]termPostings, len(fields))
		scanner  = bufio.NewScanner(r)
		docID    = 0
	)
	for _, f := range fields {
		inverted[f.Name] = make(termPostings)
	}
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	for ; scanner.Scan(); docID++ {
		var doc document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return nil, 0, fmt.Errorf("could not parse document %d: %v", docID, err)
		}
		for _, f := range fields {
			text, ok := doc.Fields[f.Name]
			if !ok {
				continue
			}
			addTokens(inverted[f.Name], f, docID, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return inverted, docID, nil
}

// addTokens adds the whitespace separated tokens of text. Terms are lower
// cased, the token as written is kept as the payload.
func addTokens(terms termPostings, field postings.FieldInfo, docID int, text string) {
	for pos, token := range strings.Fields(text) {
		term := strings.ToLower(token)
		docs := terms[term]
		if n := len(docs); n == 0 || docs[n-1].ID != docID {
			docs = append(docs, segment.Doc{ID: docID})
		}
		doc := &docs[len(docs)-1]
		doc.Freq++
		if field.IndexOptions.HasPositions() {
			p := segment.Position{Position: pos}
			if field.StorePayloads {
				p.Payload = []byte(token)
			}
			doc.Positions = append(doc.Positions, p)
		}
		terms[term] = docs
	}
}

// buildSegment writes the inverted documents as a segment.
func buildSegment(
	r io.Reader,
	fields []postings.FieldInfo,
	opts segment.Options,
) (segment.Data, int, error) {
	inverted, numDocs, err := invert(r, fields)
	if err != nil {
		return segment.Data{}, 0, err
	}

	w, err := segment.NewWriter(opts)
	if err != nil {
		return segment.Data{}, 0, err
	}
	for _, f := range fields {
		if err := w.AddField(f); err != nil {
			return segment.Data{}, 0, err
		}
		terms := inverted[f.Name]
		sorted := make(sortableTerms, 0, len(terms))
		for term := range terms {
			sorted = append(sorted, []byte(term))
		}
		sorts.ByBytes(sorted)
		for _, term := range sorted {
			if err := w.AddTerm(term, terms[string(term)]); err != nil {
				return segment.Data{}, 0, err
			}
		}
	}
	data, err := w.Finish()
	if err != nil {
		return segment.Data{}, 0, err
	}
	return data, numDocs, nil
}
