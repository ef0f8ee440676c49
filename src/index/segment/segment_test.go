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
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/postings/pulsing"
	xerrors "github.com/m3db/m3fst/src/x/errors"

	"github.com/RoaringBitmap/roaring"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTerm struct {
	term string
	docs Postings
}

type testField struct {
	info  postings.FieldInfo
	terms []testTerm
}

func bodyField() testField {
	f := testField{info: postings.FieldInfo{
		Name:          "body",
		Number:        0,
		IndexOptions:  postings.DocsAndFreqsAndPositions,
		StorePayloads: true,
	}}
	for i := 0; i < 40; i++ {
		var docs Postings
		for d := 0; d < 1+i%4; d++ {
			doc := Doc{ID: d*3 + i%3}
			for p := 0; p < 1+(i+d)%3; p++ {
				pos := Position{Position: p*5 + d}
				if (p+i)%2 == 0 {
					pos.Payload = []byte{byte(i), byte(p)}
				}
				doc.Positions = append(doc.Positions, pos)
			}
			doc.Freq = len(doc.Positions)
			docs = append(docs, doc)
		}
		f.terms = append(f.terms, testTerm{term: fmt.Sprintf("term%03d", i), docs: docs})
	}
	return f
}

func idField() testField {
	f := testField{info: postings.FieldInfo{
		Name:         "id",
		Number:       1,
		IndexOptions: postings.DocsOnly,
	}}
	for i := 0; i < 10; i++ {
		f.terms = append(f.terms, testTerm{
			term: fmt.Sprintf("doc-%d", i),
			docs: Postings{{ID: i}},
		})
	}
	return f
}

func tagsField() testField {
	return testField{
		info: postings.FieldInfo{
			Name:         "tags",
			Number:       2,
			IndexOptions: postings.DocsAndFreqs,
		},
		terms: []testTerm{
			{term: "blue", docs: Postings{{ID: 1, Freq: 2}, {ID: 4, Freq: 1}, {ID: 7, Freq: 5}}},
			{term: "green", docs: Postings{{ID: 0, Freq: 1}}},
			{term: "red", docs: Postings{{ID: 2, Freq: 3}, {ID: 9}}},
		},
	}
}

func testFields() []testField {
	return []testField{bodyField(), idField(), tagsField()}
}

func testOptions() Options {
	return NewOptions().
		SetMaxPositions(2).
		SetTermsPerBlock(4)
}

func writeSegment(t *testing.T, opts Options, fields []testField) Data {
	w, err := NewWriter(opts)
	require.NoError(t, err)
	for _, f := range fields {
		require.NoError(t, w.AddField(f.info))
		for _, term := range f.terms {
			require.NoError(t, w.AddTerm([]byte(term.term), term.docs))
		}
	}
	data, err := w.Finish()
	require.NoError(t, err)
	return data
}

func openSegment(t *testing.T, opts Options, fields []testField) Reader {
	r, err := NewReader(writeSegment(t, opts, fields), opts)
	require.NoError(t, err)
	return r
}

// expectedDocs returns docs the way they read back: docs only fields have a
// freq of one and no positions, freq fields have no positions.
func expectedDocs(field postings.FieldInfo, docs Postings) Postings {
	res := make(Postings, 0, len(docs))
	for _, doc := range docs {
		switch {
		case field.IndexOptions.HasPositions():
			res = append(res, doc)
		case field.IndexOptions.HasFreqs():
			freq := doc.Freq
			if freq == 0 {
				freq = 1
			}
			res = append(res, Doc{ID: doc.ID, Freq: freq})
		default:
			res = append(res, Doc{ID: doc.ID, Freq: 1})
		}
	}
	return res
}

func readDocs(t *testing.T, it TermsIterator, field postings.FieldInfo) Postings {
	var res Postings
	if field.IndexOptions.HasPositions() {
		e, err := it.DocsAndPositions(nil, nil)
		require.NoError(t, err)
		require.NotNil(t, e)
		for {
			id, err := e.NextDoc()
			require.NoError(t, err)
			if id == postings.NoMoreDocs {
				return res
			}
			doc := Doc{ID: id, Freq: e.Freq()}
			for i := 0; i < e.Freq(); i++ {
				pos, err := e.NextPosition()
				require.NoError(t, err)
				payload, err := e.Payload()
				require.NoError(t, err)
				doc.Positions = append(doc.Positions, Position{Position: pos, Payload: payload})
			}
			res = append(res, doc)
		}
	}

	e, err := it.Docs(nil, nil)
	require.NoError(t, err)
	for {
		id, err := e.NextDoc()
		require.NoError(t, err)
		if id == postings.NoMoreDocs {
			return res
		}
		res = append(res, Doc{ID: id, Freq: e.Freq()})
	}
}

func termStats(field postings.FieldInfo, docs Postings) postings.TermStats {
	stats := postings.TermStats{DocFreq: len(docs), TotalTermFreq: -1}
	if field.IndexOptions.HasFreqs() {
		stats.TotalTermFreq = 0
		for _, doc := range expectedDocs(field, docs) {
			stats.TotalTermFreq += int64(doc.Freq)
		}
	}
	return stats
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, maxPositions := range []int{1, 2, 100} {
		for _, termsPerBlock := range []int{1, 4, 32} {
			name := fmt.Sprintf("maxPositions=%d,termsPerBlock=%d", maxPositions, termsPerBlock)
			t.Run(name, func(t *testing.T) {
				opts := NewOptions().
					SetMaxPositions(maxPositions).
					SetTermsPerBlock(termsPerBlock)
				fields := testFields()
				r := openSegment(t, opts, fields)
				defer func() { require.NoError(t, r.Close()) }()

				var infos []postings.FieldInfo
				for _, f := range fields {
					infos = append(infos, f.info)
				}
				require.Equal(t, infos, r.Fields())

				for _, f := range fields {
					it, err := r.Terms(f.info.Name)
					require.NoError(t, err)
					for _, term := range f.terms {
						require.True(t, it.Next(), "missing term %s", term.term)
						require.Equal(t, term.term, string(it.Current()))

						stats, err := it.Stats()
						require.NoError(t, err)
						require.Equal(t, termStats(f.info, term.docs), stats)
						require.Equal(t, expectedDocs(f.info, term.docs), readDocs(t, it, f.info))
					}
					require.False(t, it.Next())
					require.NoError(t, it.Err())
					require.NoError(t, it.Close())
				}
			})
		}
	}
}

func TestFieldStats(t *testing.T) {
	fields := testFields()
	r := openSegment(t, testOptions(), fields)
	defer r.Close()

	for _, f := range fields {
		info, stats, ok := r.Field(f.info.Name)
		require.True(t, ok)
		require.Equal(t, f.info, info)

		expected := FieldStats{NumTerms: int64(len(f.terms))}
		if !f.info.IndexOptions.HasFreqs() {
			expected.SumTotalTermFreq = -1
		}
		for _, term := range f.terms {
			ts := termStats(f.info, term.docs)
			expected.SumDocFreq += int64(ts.DocFreq)
			if ts.TotalTermFreq > 0 {
				expected.SumTotalTermFreq += ts.TotalTermFreq
			}
		}
		require.Equal(t, expected, stats)
	}

	_, _, ok := r.Field("missing")
	require.False(t, ok)
}

func TestTermsIteratorSeek(t *testing.T) {
	r := openSegment(t, testOptions(), testFields())
	defer r.Close()

	it, err := r.Terms("body")
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.SeekExact([]byte("term017"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "term017", string(it.Current()))
	stats, err := it.Stats()
	require.NoError(t, err)
	require.Equal(t, 1+17%4, stats.DocFreq)

	// Moving backwards reloads the block.
	ok, err = it.SeekCeil([]byte("term0025"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "term003", string(it.Current()))
	expected := bodyField().terms[3]
	require.Equal(t, expected.docs, readDocs(t, it, postings.FieldInfo{
		IndexOptions:  postings.DocsAndFreqsAndPositions,
		StorePayloads: true,
	}))

	require.True(t, it.Next())
	require.Equal(t, "term004", string(it.Current()))

	ok, err = it.SeekCeil([]byte("zzz"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, it.Current())
	_, err = it.Stats()
	require.True(t, xerrors.IsInvalidState(err))

	// A miss positions the iterator before the first term.
	ok, err = it.SeekExact([]byte("term0005"))
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, it.Next())
	require.Equal(t, "term000", string(it.Current()))
}

func TestTermsBloomFilter(t *testing.T) {
	opts := testOptions().SetTermsBloomFilterFalsePositivePercent(0.01)
	field := bodyField()
	r := openSegment(t, opts, []testField{field, idField()})
	defer r.Close()

	it, err := r.Terms("body")
	require.NoError(t, err)
	defer it.Close()

	for i := len(field.terms) - 1; i >= 0; i-- {
		term := field.terms[i]
		ok, err := it.SeekExact([]byte(term.term))
		require.NoError(t, err)
		require.True(t, ok, term.term)
		require.Equal(t, expectedDocs(field.info, term.docs), readDocs(t, it, field.info))
	}

	for _, term := range []string{"", "term", "term0005", "term040", "zzz"} {
		ok, err := it.SeekExact([]byte(term))
		require.NoError(t, err)
		require.False(t, ok, term)
		require.Nil(t, it.Current())
	}
	require.True(t, it.Next())
	require.Equal(t, "term000", string(it.Current()))
}

func TestTermsIteratorSeekMatchesScan(t *testing.T) {
	field := bodyField()
	r := openSegment(t, testOptions(), []testField{field})
	defer r.Close()

	var terms []string
	for _, term := range field.terms {
		terms = append(terms, term.term)
	}

	it, err := r.Terms(field.info.Name)
	require.NoError(t, err)
	defer it.Close()

	for _, target := range []string{"", "a", "term", "term01", "term0199", "term039", "term04", "u"} {
		idx := sort.SearchStrings(terms, target)
		ok, err := it.SeekCeil([]byte(target))
		require.NoError(t, err)
		if idx == len(terms) {
			require.False(t, ok, target)
			continue
		}
		require.True(t, ok, target)
		require.Equal(t, terms[idx], string(it.Current()), target)

		state, err := it.TermState()
		require.NoError(t, err)
		require.Equal(t, len(field.terms[idx].docs), state.Block().DocFreq)
	}
}

func TestTermStateKinds(t *testing.T) {
	r := openSegment(t, NewOptions().SetMaxPositions(2), []testField{tagsField()})
	defer r.Close()

	it, err := r.Terms("tags")
	require.NoError(t, err)
	defer it.Close()

	expected := map[string]pulsing.TermStateKind{
		"blue":  pulsing.WrappedKind,
		"green": pulsing.InlinedKind,
		"red":   pulsing.InlinedKind,
	}
	for it.Next() {
		state, err := it.TermState()
		require.NoError(t, err)
		pst, ok := state.(*pulsing.TermState)
		require.True(t, ok)
		assert.Equal(t, expected[string(it.Current())], pst.Kind(), string(it.Current()))
	}
	require.NoError(t, it.Err())
}

func TestLiveDocs(t *testing.T) {
	r := openSegment(t, testOptions(), []testField{tagsField()})
	defer r.Close()

	it, err := r.Terms("tags")
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.SeekExact([]byte("blue"))
	require.NoError(t, err)
	require.True(t, ok)

	e, err := it.Docs(postings.NewBits(roaring.BitmapOf(1, 7)), nil)
	require.NoError(t, err)
	var docs []int
	for {
		doc, err := e.NextDoc()
		require.NoError(t, err)
		if doc == postings.NoMoreDocs {
			break
		}
		docs = append(docs, doc)
	}
	require.Equal(t, []int{1, 7}, docs)

	e, err = it.Docs(nil, e)
	require.NoError(t, err)
	doc, err := e.Advance(5)
	require.NoError(t, err)
	require.Equal(t, 7, doc)
	require.Equal(t, 5, e.Freq())
}

func TestDocsAndPositionsWithoutPositions(t *testing.T) {
	r := openSegment(t, testOptions(), []testField{idField()})
	defer r.Close()

	it, err := r.Terms("id")
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	e, err := it.DocsAndPositions(nil, nil)
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestUnknownAndEmptyFields(t *testing.T) {
	fields := []testField{
		{info: postings.FieldInfo{Name: "empty", IndexOptions: postings.DocsAndFreqs}},
		tagsField(),
	}
	r := openSegment(t, testOptions(), fields)
	defer r.Close()

	info, stats, ok := r.Field("empty")
	require.True(t, ok)
	require.Equal(t, "empty", info.Name)
	require.Equal(t, int64(0), stats.NumTerms)

	for _, name := range []string{"empty", "missing"} {
		it, err := r.Terms(name)
		require.NoError(t, err)
		require.False(t, it.Next())
		ok, err := it.SeekCeil([]byte("a"))
		require.NoError(t, err)
		require.False(t, ok)
		_, err = it.Docs(nil, nil)
		require.True(t, xerrors.IsInvalidState(err))
		require.NoError(t, it.Close())
	}
}

func TestEmptySegment(t *testing.T) {
	r := openSegment(t, testOptions(), nil)
	defer r.Close()

	require.Empty(t, r.Fields())
	it, err := r.Terms("any")
	require.NoError(t, err)
	require.False(t, it.Next())
	require.NoError(t, it.Close())
}

func TestTermsIteratorClose(t *testing.T) {
	r := openSegment(t, testOptions(), []testField{tagsField()})

	it, err := r.Terms("tags")
	require.NoError(t, err)
	require.True(t, it.Next())
	require.NoError(t, it.Close())
	require.True(t, xerrors.IsInvalidState(it.Close()))
	require.False(t, it.Next())
	_, err = it.SeekExact([]byte("red"))
	require.True(t, xerrors.IsInvalidState(err))

	// A pooled iterator starts over on its new field.
	it, err = r.Terms("tags")
	require.NoError(t, err)
	require.True(t, it.Next())
	require.Equal(t, "blue", string(it.Current()))
	require.NoError(t, it.Close())

	require.NoError(t, r.Close())
	require.True(t, xerrors.IsInvalidState(r.Close()))
	_, err = r.Terms("tags")
	require.True(t, xerrors.IsInvalidState(err))
}

func TestWriterValidation(t *testing.T) {
	positions := postings.FieldInfo{Name: "b", IndexOptions: postings.DocsAndFreqsAndPositions}

	tests := []struct {
		name  string
		write func(w Writer) error
		check func(error) bool
	}{
		{
			name: "term before field",
			write: func(w Writer) error {
				return w.AddTerm([]byte("a"), Postings{{ID: 1}})
			},
			check: xerrors.IsInvalidState,
		},
		{
			name: "fields out of order",
			write: func(w Writer) error {
				if err := w.AddField(positions); err != nil {
					return err
				}
				return w.AddField(postings.FieldInfo{Name: "a"})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "empty field name",
			write: func(w Writer) error {
				return w.AddField(postings.FieldInfo{})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "payloads without positions",
			write: func(w Writer) error {
				return w.AddField(postings.FieldInfo{Name: "a", IndexOptions: postings.DocsAndFreqs, StorePayloads: true})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "invalid index options",
			write: func(w Writer) error {
				return w.AddField(postings.FieldInfo{Name: "a", IndexOptions: postings.IndexOptions(9)})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "terms out of order",
			write: func(w Writer) error {
				if err := w.AddField(postings.FieldInfo{Name: "a"}); err != nil {
					return err
				}
				if err := w.AddTerm([]byte("b"), Postings{{ID: 1}}); err != nil {
					return err
				}
				return w.AddTerm([]byte("a"), Postings{{ID: 1}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "duplicate term",
			write: func(w Writer) error {
				if err := w.AddField(postings.FieldInfo{Name: "a"}); err != nil {
					return err
				}
				if err := w.AddTerm([]byte("b"), Postings{{ID: 1}}); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), Postings{{ID: 2}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "term without docs",
			write: func(w Writer) error {
				if err := w.AddField(postings.FieldInfo{Name: "a"}); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), nil)
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "docs out of order",
			write: func(w Writer) error {
				if err := w.AddField(postings.FieldInfo{Name: "a", IndexOptions: postings.DocsAndFreqs}); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), Postings{{ID: 3}, {ID: 1}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "negative doc",
			write: func(w Writer) error {
				if err := w.AddField(postings.FieldInfo{Name: "a"}); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), Postings{{ID: -5}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "doc without positions",
			write: func(w Writer) error {
				if err := w.AddField(positions); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), Postings{{ID: 3}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "freq mismatching positions",
			write: func(w Writer) error {
				if err := w.AddField(positions); err != nil {
					return err
				}
				return w.AddTerm([]byte("b"), Postings{{ID: 3, Freq: 2, Positions: []Position{{Position: 1}}}})
			},
			check: xerrors.IsInvalidParams,
		},
		{
			name: "finish twice",
			write: func(w Writer) error {
				if _, err := w.Finish(); err != nil {
					return err
				}
				_, err := w.Finish()
				return err
			},
			check: xerrors.IsInvalidState,
		},
		{
			name: "write after finish",
			write: func(w Writer) error {
				if _, err := w.Finish(); err != nil {
					return err
				}
				return w.AddField(postings.FieldInfo{Name: "a"})
			},
			check: xerrors.IsInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(testOptions())
			require.NoError(t, err)
			err = tt.write(w)
			require.Error(t, err)
			require.True(t, tt.check(err), err.Error())
		})
	}
}

func TestWriterReset(t *testing.T) {
	opts := testOptions()
	w, err := NewWriter(opts)
	require.NoError(t, err)

	require.NoError(t, w.AddField(idField().info))
	require.NoError(t, w.AddTerm([]byte("x"), Postings{{ID: 1}}))
	first, err := w.Finish()
	require.NoError(t, err)
	firstTermsDict := append([]byte(nil), first.TermsDict...)

	require.NoError(t, w.Reset())
	f := tagsField()
	require.NoError(t, w.AddField(f.info))
	for _, term := range f.terms {
		require.NoError(t, w.AddTerm([]byte(term.term), term.docs))
	}
	second, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, firstTermsDict, first.TermsDict)

	r, err := NewReader(second, opts)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, []postings.FieldInfo{f.info}, r.Fields())
}

func TestNewWriterRejectsInvalidOptions(t *testing.T) {
	_, err := NewWriter(NewOptions().SetTermsPerBlock(0))
	require.True(t, xerrors.IsInvalidParams(err))

	_, err = NewWriter(NewOptions().SetMaxPositions(0))
	require.True(t, xerrors.IsInvalidParams(err))

	_, err = NewReader(Data{}, NewOptions().SetInstrumentOptions(nil))
	require.True(t, xerrors.IsInvalidParams(err))
}

func TestReaderRejectsCorruptData(t *testing.T) {
	opts := testOptions()
	data := writeSegment(t, opts, testFields())

	corrupt := func(b []byte, idx int) []byte {
		c := append([]byte(nil), b...)
		c[idx] ^= 0xff
		return c
	}

	tests := []struct {
		name   string
		mutate func(d Data) Data
	}{
		{
			name: "magic",
			mutate: func(d Data) Data {
				d.Info = corrupt(d.Info, 0)
				return d
			},
		},
		{
			name: "major version",
			mutate: func(d Data) Data {
				d.Info = corrupt(d.Info, 4)
				return d
			},
		},
		{
			name: "truncated info",
			mutate: func(d Data) Data {
				d.Info = d.Info[:len(d.Info)-1]
				return d
			},
		},
		{
			name: "trailing info",
			mutate: func(d Data) Data {
				d.Info = append(append([]byte(nil), d.Info...), 0)
				return d
			},
		},
		{
			name: "terms index header",
			mutate: func(d Data) Data {
				d.TermsIndex = corrupt(d.TermsIndex, 0)
				return d
			},
		},
		{
			name: "missing terms index",
			mutate: func(d Data) Data {
				d.TermsIndex = nil
				return d
			},
		},
		{
			name: "terms dict header",
			mutate: func(d Data) Data {
				d.TermsDict = corrupt(d.TermsDict, 1)
				return d
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.mutate(data), opts)
			require.Error(t, err)
			require.True(t, xerrors.IsCorruption(err), err.Error())
		})
	}
}

func TestConcurrentIterators(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	fields := testFields()
	r := openSegment(t, testOptions(), fields)
	defer r.Close()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 16)
	)
	for i := 0; i < 16; i++ {
		f := fields[i%len(fields)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			it, err := r.Terms(f.info.Name)
			if err != nil {
				errs <- err
				return
			}
			defer it.Close()
			n := 0
			for it.Next() {
				if _, err := it.Docs(nil, nil); err != nil {
					errs <- err
					return
				}
				n++
			}
			if n != len(f.terms) {
				errs <- fmt.Errorf("field %s: expected %d terms, got %d", f.info.Name, len(f.terms), n)
				return
			}
			errs <- it.Err()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
