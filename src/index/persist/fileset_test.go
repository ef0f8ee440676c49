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

package persist

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/segment"
	xerrors "github.com/m3db/m3fst/src/x/errors"

	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func testSegmentData(t *testing.T) segment.Data {
	w, err := segment.NewWriter(segment.NewOptions().SetTermsPerBlock(2))
	require.NoError(t, err)

	require.NoError(t, w.AddField(postings.FieldInfo{
		Name:          "body",
		IndexOptions:  postings.DocsAndFreqsAndPositions,
		StorePayloads: true,
	}))
	for i, term := range []string{"bar", "baz", "foo", "qux"} {
		var docs segment.Postings
		for d := 0; d <= i; d++ {
			docs = append(docs, segment.Doc{
				ID: d * 2,
				Positions: []segment.Position{
					{Position: d, Payload: []byte(term)},
					{Position: d + 4},
				},
			})
		}
		require.NoError(t, w.AddTerm([]byte(term), docs))
	}

	data, err := w.Finish()
	require.NoError(t, err)
	return data
}

func requireDataEqual(t *testing.T, expected, actual segment.Data) {
	require.True(t, bytes.Equal(expected.Info, actual.Info), "info")
	require.True(t, bytes.Equal(expected.TermsIndex, actual.TermsIndex), "terms index")
	require.True(t, bytes.Equal(expected.TermsDict, actual.TermsDict), "terms dict")
	require.True(t, bytes.Equal(expected.Freq, actual.Freq), "freq")
	require.True(t, bytes.Equal(expected.Prox, actual.Prox), "prox")
}

func TestWriteReadFileSet(t *testing.T) {
	for _, compression := range validCompressionTypes {
		t.Run(compression.String(), func(t *testing.T) {
			dir := t.TempDir()
			opts := NewOptions().SetCompression(compression)
			data := testSegmentData(t)

			require.False(t, FileSetExists(dir, "seg"))
			require.NoError(t, WriteFileSet(dir, "seg", data, opts))
			require.True(t, FileSetExists(dir, "seg"))

			// The compression is read back from the file set.
			read, err := ReadFileSet(dir, "seg", NewOptions())
			require.NoError(t, err)
			requireDataEqual(t, data, read)

			r, err := segment.NewReader(read, segment.NewOptions())
			require.NoError(t, err)
			defer r.Close()

			it, err := r.Terms("body")
			require.NoError(t, err)
			defer it.Close()
			var terms []string
			for it.Next() {
				terms = append(terms, string(it.Current()))
			}
			require.NoError(t, it.Err())
			require.Equal(t, []string{"bar", "baz", "foo", "qux"}, terms)
		})
	}
}

func TestWriteFileSetOverwrites(t *testing.T) {
	dir := t.TempDir()
	data := testSegmentData(t)
	require.NoError(t, WriteFileSet(dir, "seg", data, NewOptions().SetCompression(SnappyCompression)))
	require.NoError(t, WriteFileSet(dir, "seg", data, NewOptions()))

	read, err := ReadFileSet(dir, "seg", NewOptions())
	require.NoError(t, err)
	requireDataEqual(t, data, read)

	stored, err := os.ReadFile(filePath(dir, "seg", termsDictFileSuffix))
	require.NoError(t, err)
	require.Equal(t, data.TermsDict, stored)
}

func TestReadFileSetMissingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFileSet(dir, "seg", NewOptions())
	require.True(t, errors.Is(err, ErrCheckpointFileNotFound))

	require.NoError(t, WriteFileSet(dir, "seg", testSegmentData(t), NewOptions()))
	require.NoError(t, os.Remove(filePath(dir, "seg", checkpointFileSuffix)))
	_, err = ReadFileSet(dir, "seg", NewOptions())
	require.True(t, errors.Is(err, ErrCheckpointFileNotFound))
	require.False(t, FileSetExists(dir, "seg"))
}

func TestReadFileSetDetectsCorruption(t *testing.T) {
	suffixes := []string{
		infoFileSuffix,
		termsIndexFileSuffix,
		termsDictFileSuffix,
		freqFileSuffix,
		proxFileSuffix,
		digestFileSuffix,
		checkpointFileSuffix,
	}
	for _, suffix := range suffixes {
		t.Run(suffix, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, WriteFileSet(dir, "seg", testSegmentData(t), NewOptions()))

			path := filePath(dir, "seg", suffix)
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NotEmpty(t, b)
			b[len(b)-1] ^= 0xff
			require.NoError(t, os.WriteFile(path, b, 0666))

			_, err = ReadFileSet(dir, "seg", NewOptions())
			require.Error(t, err)
			require.True(t, xerrors.IsCorruption(err), err.Error())
		})
	}
}

func TestReadFileSetMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFileSet(dir, "seg", testSegmentData(t), NewOptions()))
	require.NoError(t, os.Remove(filePath(dir, "seg", proxFileSuffix)))

	_, err := ReadFileSet(dir, "seg", NewOptions())
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist), err.Error())
}

func TestInvalidPrefixAndOptions(t *testing.T) {
	dir := t.TempDir()
	data := testSegmentData(t)

	for _, prefix := range []string{"", filepath.Join("a", "b")} {
		err := WriteFileSet(dir, prefix, data, NewOptions())
		require.True(t, xerrors.IsInvalidParams(err))
		_, err = ReadFileSet(dir, prefix, NewOptions())
		require.True(t, xerrors.IsInvalidParams(err))
	}

	err := WriteFileSet(dir, "seg", data, NewOptions().SetCompression(CompressionType(7)))
	require.True(t, xerrors.IsInvalidParams(err))
}

func TestCompressionTypeUnmarshalYAML(t *testing.T) {
	var cfg Configuration
	require.NoError(t, yaml.Unmarshal([]byte("compression: snappy"), &cfg))
	require.Equal(t, SnappyCompression, cfg.Compression)
	require.Equal(t, SnappyCompression, cfg.NewOptions(NewOptions().InstrumentOptions()).Compression())

	cfg = Configuration{}
	require.NoError(t, yaml.Unmarshal([]byte("compression: none"), &cfg))
	require.Equal(t, NoCompression, cfg.Compression)

	require.Error(t, yaml.Unmarshal([]byte("compression: lz4"), &cfg))
}

func TestFileSetPrefixes(t *testing.T) {
	dir := t.TempDir()
	data := testSegmentData(t)
	for _, prefix := range []string{"seg-b", "seg-a", "other"} {
		require.NoError(t, WriteFileSet(dir, prefix, data, NewOptions()))
	}
	require.NoError(t, os.Remove(filePath(dir, "other", checkpointFileSuffix)))

	prefixes, err := FileSetPrefixes(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"seg-a", "seg-b"}, prefixes)

	prefixes, err = FileSetPrefixes(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, prefixes)
}
