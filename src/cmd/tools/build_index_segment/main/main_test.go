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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m3db/m3fst/src/index/persist"
	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/segment"
	xconfig "github.com/m3db/m3fst/src/x/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDocs = `{"fields": {"title": "Quick Fox", "body": "the quick brown fox jumps over the lazy dog"}}
{"fields": {"title": "Lazy Dog", "body": "The dog sleeps"}}
{"fields": {"body": "fox and dog"}}
`

var testFields = []postings.FieldInfo{
	{Name: "body", Number: 1, IndexOptions: postings.DocsAndFreqsAndPositions, StorePayloads: true},
	{Name: "title", Number: 0, IndexOptions: postings.DocsAndFreqs},
}

func TestInvert(t *testing.T) {
	inverted, numDocs, err := invert(strings.NewReader(testDocs), testFields)
	require.NoError(t, err)
	require.Equal(t, 3, numDocs)

	require.Equal(t, segment.Postings{
		{ID: 0, Freq: 2, Positions: []segment.Position{
			{Position: 0, Payload: []byte("the")},
			{Position: 6, Payload: []byte("the")},
		}},
		{ID: 1, Freq: 1, Positions: []segment.Position{
			{Position: 0, Payload: []byte("The")},
		}},
	}, inverted["body"]["the"])

	require.Equal(t, segment.Postings{{ID: 0, Freq: 1}}, inverted["title"]["fox"])
	require.Len(t, inverted["body"]["dog"], 3)
	require.Len(t, inverted["title"], 4)
}

func TestInvertRejectsInvalidJSON(t *testing.T) {
	_, _, err := invert(strings.NewReader("{\"fields\": 3}\n"), testFields)
	require.Error(t, err)
}

func TestBuildSegment(t *testing.T) {
	opts := segment.NewOptions().SetMaxPositions(1)
	data, numDocs, err := buildSegment(strings.NewReader(testDocs), testFields, opts)
	require.NoError(t, err)
	require.Equal(t, 3, numDocs)

	r, err := segment.NewReader(data, opts)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, testFields, r.Fields())

	it, err := r.Terms("body")
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.SeekExact([]byte("dog"))
	require.NoError(t, err)
	require.True(t, ok)
	stats, err := it.Stats()
	require.NoError(t, err)
	require.Equal(t, postings.TermStats{DocFreq: 3, TotalTermFreq: 3}, stats)

	ok, err = it.SeekExact([]byte("Dog"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFieldInfos(t *testing.T) {
	cfg := configuration{Fields: []fieldConfiguration{
		{Name: "title", IndexOptions: postings.DocsAndFreqs},
		{Name: "body", IndexOptions: postings.DocsAndFreqsAndPositions, StorePayloads: true},
	}}
	infos, err := cfg.fieldInfos()
	require.NoError(t, err)
	require.Equal(t, testFields, infos)

	cfg.Fields = append(cfg.Fields, fieldConfiguration{Name: "body"})
	_, err = cfg.fieldInfos()
	require.Error(t, err)
}

func TestRunWritesFileSet(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	config := `
fields:
  - name: title
    indexOptions: freqs
  - name: body
    indexOptions: positions
    storePayloads: true
segment:
  maxPositions: 2
  termsPerBlock: 4
persist:
  compression: snappy
output:
  dir: ` + filepath.Join(dir, "out") + `
  prefix: docs
`
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0666))

	var cfg configuration
	require.NoError(t, xconfig.LoadFile(&cfg, configPath, xconfig.Options{}))
	run(cfg, strings.NewReader(testDocs), zap.NewNop())

	prefixes, err := persist.FileSetPrefixes(cfg.Output.Dir)
	require.NoError(t, err)
	require.Equal(t, []string{"docs"}, prefixes)

	data, err := persist.ReadFileSet(cfg.Output.Dir, "docs", persist.NewOptions())
	require.NoError(t, err)
	r, err := segment.NewReader(data, segment.NewOptions())
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, testFields, r.Fields())
}
