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
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/postings/pulsing"
	xerrors "github.com/m3db/m3fst/src/x/errors"
	"github.com/m3db/m3fst/src/x/instrument"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const initialEncoderCapacity = 1 << 12

var (
	errWriterFinished = errors.New("segment writer already finished")
	errNoField        = errors.New("no field added")
	errNoDocs         = errors.New("term has no docs")
	errEmptyFieldName = errors.New("empty field name")
)

// termOutput is the terms FST output: the terms dictionary offset of the
// term's block and the ordinal of the term within the block.
type termOutput = fst.Pair[int64, int64]

func newTermOutputs() fst.Outputs[termOutput] {
	return fst.NewPairOutputs(fst.NewPositiveIntOutputs(), fst.NewPositiveIntOutputs())
}

type fieldEntry struct {
	info  postings.FieldInfo
	stats FieldStats
}

type writerMetrics struct {
	finish instrument.MethodMetrics
	terms  tally.Counter
	blocks tally.Counter
}

func newWriterMetrics(iopts instrument.Options) writerMetrics {
	scope := iopts.MetricsScope().SubScope("segment-writer")
	return writerMetrics{
		finish: instrument.NewMethodMetrics(scope, "finish", iopts.TimerSamplingRate()),
		terms:  scope.Counter("terms"),
		blocks: scope.Counter("blocks"),
	}
}

type writer struct {
	opts    Options
	logger  *zap.Logger
	metrics writerMetrics

	termsIndex *encoding.Encoder
	termsDict  *encoding.Encoder
	freq       *encoding.Encoder
	prox       *encoding.Encoder
	postings   *pulsing.Writer

	fieldsBuilder *fst.Builder[int64]
	fields        []fieldEntry
	termsBuilder  *fst.Builder[termOutput]
	lastTerm      []byte

	block    []postings.TermStats
	blockFP  int64
	blockBuf *encoding.Encoder

	finished bool
}

// NewWriter returns a new segment writer. An error returned by a write
// leaves the writer unusable until it is reset.
func NewWriter(opts Options) (Writer, error) {
	if err := opts.Validate(); err != nil {
		return nil, xerrors.NewInvalidParamsError(err)
	}
	iopts := opts.InstrumentOptions()
	w := &writer{
		opts:     opts,
		logger:   iopts.Logger(),
		metrics:  newWriterMetrics(iopts),
		blockBuf: encoding.NewEncoder(256),
	}
	if err := w.Reset(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *writer) Reset() error {
	// Fresh encoders, the data of a finished segment aliases the previous
	// ones.
	w.termsIndex = encoding.NewEncoder(initialEncoderCapacity)
	w.termsDict = encoding.NewEncoder(initialEncoderCapacity)
	w.freq = encoding.NewEncoder(initialEncoderCapacity)
	w.prox = encoding.NewEncoder(initialEncoderCapacity)

	p, err := pulsing.NewWriter(w.opts.MaxPositions(),
		postings.NewStandardWriter(w.freq, w.prox))
	if err != nil {
		return err
	}
	if err := p.Start(w.termsDict); err != nil {
		return err
	}
	w.postings = p

	fieldsBuilder, err := fst.NewBuilder(fst.Byte1, fst.NewPositiveIntOutputs(), fst.BuilderOptions{})
	if err != nil {
		return err
	}
	w.fieldsBuilder = fieldsBuilder
	w.fields = w.fields[:0]
	w.termsBuilder = nil
	w.lastTerm = w.lastTerm[:0]
	w.block = w.block[:0]
	w.blockFP = 0
	w.finished = false
	return nil
}

func (w *writer) current() *fieldEntry {
	return &w.fields[len(w.fields)-1]
}

func (w *writer) AddField(field postings.FieldInfo) error {
	if w.finished {
		return xerrors.NewInvalidStateError(errWriterFinished)
	}
	if err := field.IndexOptions.Validate(); err != nil {
		return xerrors.NewInvalidParamsError(err)
	}
	if field.Name == "" {
		return xerrors.NewInvalidParamsError(errEmptyFieldName)
	}
	if field.Number < 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"field %s has negative number %d", field.Name, field.Number))
	}
	if field.StorePayloads && !field.IndexOptions.HasPositions() {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"field %s stores payloads without indexing positions", field.Name))
	}
	if len(w.fields) > 0 {
		if prev := w.current().info.Name; field.Name <= prev {
			return xerrors.NewInvalidParamsError(fmt.Errorf(
				"fields out of order: last=%s, field=%s", prev, field.Name))
		}
		if err := w.finishField(); err != nil {
			return err
		}
	}

	builder, err := fst.NewBuilder(fst.Byte1, newTermOutputs(), w.opts.BuilderOptions())
	if err != nil {
		return err
	}
	w.termsBuilder = builder
	w.lastTerm = w.lastTerm[:0]

	stats := FieldStats{}
	if !field.IndexOptions.HasFreqs() {
		stats.SumTotalTermFreq = -1
	}
	w.fields = append(w.fields, fieldEntry{info: field, stats: stats})
	w.postings.SetField(field)
	return nil
}

func (w *writer) AddTerm(term []byte, docs Postings) error {
	if w.finished {
		return xerrors.NewInvalidStateError(errWriterFinished)
	}
	if len(w.fields) == 0 {
		return xerrors.NewInvalidStateError(errNoField)
	}
	if len(docs) == 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf("%v: %q", errNoDocs, term))
	}
	field := w.current()
	if field.stats.NumTerms > 0 && bytes.Compare(term, w.lastTerm) <= 0 {
		return xerrors.NewInvalidParamsError(fmt.Errorf(
			"terms out of order in field %s: last=%q, term=%q", field.info.Name, w.lastTerm, term))
	}

	if len(w.block) == 0 {
		w.blockFP = int64(w.termsDict.Len())
	}
	stats, err := w.writePostings(field.info, docs)
	if err != nil {
		return err
	}
	ord := int64(len(w.block))
	if err := w.termsBuilder.AddBytes(term, fst.NewPair(w.blockFP, ord)); err != nil {
		return err
	}

	w.block = append(w.block, stats)
	w.lastTerm = append(w.lastTerm[:0], term...)
	field.stats.NumTerms++
	field.stats.SumDocFreq += int64(stats.DocFreq)
	if stats.TotalTermFreq >= 0 {
		field.stats.SumTotalTermFreq += stats.TotalTermFreq
	}
	w.metrics.terms.Inc(1)

	if len(w.block) == w.opts.TermsPerBlock() {
		return w.flushBlock()
	}
	return nil
}

func docFreq(field postings.FieldInfo, doc Doc) (int, error) {
	opts := field.IndexOptions
	switch {
	case opts.HasPositions():
		n := len(doc.Positions)
		if n == 0 {
			return 0, xerrors.NewInvalidParamsError(fmt.Errorf(
				"doc %d has no positions in field %s", doc.ID, field.Name))
		}
		if doc.Freq != 0 && doc.Freq != n {
			return 0, xerrors.NewInvalidParamsError(fmt.Errorf(
				"doc %d freq %d does not match its %d positions", doc.ID, doc.Freq, n))
		}
		return n, nil
	case opts.HasFreqs():
		if doc.Freq == 0 {
			return 1, nil
		}
		return doc.Freq, nil
	}
	return 1, nil
}

func (w *writer) writePostings(field postings.FieldInfo, docs Postings) (postings.TermStats, error) {
	if err := w.postings.StartTerm(); err != nil {
		return postings.TermStats{}, err
	}
	var ttf int64
	for _, doc := range docs {
		freq, err := docFreq(field, doc)
		if err != nil {
			return postings.TermStats{}, err
		}
		if err := w.postings.StartDoc(doc.ID, freq); err != nil {
			return postings.TermStats{}, err
		}
		if field.IndexOptions.HasPositions() {
			for _, pos := range doc.Positions {
				if err := w.postings.AddPosition(pos.Position, pos.Payload); err != nil {
					return postings.TermStats{}, err
				}
			}
		}
		if err := w.postings.FinishDoc(); err != nil {
			return postings.TermStats{}, err
		}
		ttf += int64(freq)
	}

	stats := postings.TermStats{DocFreq: len(docs), TotalTermFreq: -1}
	if field.IndexOptions.HasFreqs() {
		stats.TotalTermFreq = ttf
	}
	if err := w.postings.FinishTerm(stats); err != nil {
		return postings.TermStats{}, err
	}
	return stats, nil
}

// flushBlock writes the pending block: its term count, its term stats and
// the postings metadata of its terms.
func (w *writer) flushBlock() error {
	hasFreqs := w.current().info.IndexOptions.HasFreqs()
	w.blockBuf.Reset()
	for _, stats := range w.block {
		w.blockBuf.PutUvarint(uint64(stats.DocFreq))
		if hasFreqs {
			w.blockBuf.PutUvarint(uint64(stats.TotalTermFreq - int64(stats.DocFreq)))
		}
	}
	w.termsDict.PutUvarint(uint64(len(w.block)))
	w.termsDict.PutBytes(w.blockBuf.Bytes())
	if err := w.postings.FlushTermsBlock(); err != nil {
		return err
	}
	w.block = w.block[:0]
	w.metrics.blocks.Inc(1)
	return nil
}

func (w *writer) finishField() error {
	field := w.current()
	if len(w.block) > 0 {
		if err := w.flushBlock(); err != nil {
			return err
		}
	}
	terms, err := w.termsBuilder.Finish()
	if err != nil {
		return err
	}
	w.termsBuilder = nil
	if terms == nil {
		w.logger.Debug("finished field without terms", zap.String("field", field.info.Name))
		return nil
	}

	offset := int64(w.termsIndex.Len())
	if err := terms.Save(w.termsIndex); err != nil {
		return err
	}
	if err := w.fieldsBuilder.AddBytes([]byte(field.info.Name), offset); err != nil {
		return err
	}
	w.logger.Debug("finished field",
		zap.String("field", field.info.Name),
		zap.Int64("terms", field.stats.NumTerms),
		zap.Int64("fstNodes", terms.NodeCount()),
		zap.Int64("fstBytes", terms.SizeInBytes()),
	)
	return nil
}

func (w *writer) Finish() (Data, error) {
	start := time.Now()
	data, err := w.finish()
	w.metrics.finish.ReportSuccessOrError(err, time.Since(start))
	return data, err
}

func (w *writer) finish() (Data, error) {
	if w.finished {
		return Data{}, xerrors.NewInvalidStateError(errWriterFinished)
	}
	w.finished = true

	if len(w.fields) > 0 {
		if err := w.finishField(); err != nil {
			return Data{}, err
		}
	}
	if err := w.postings.Close(); err != nil {
		return Data{}, err
	}

	fieldsFST, err := w.fieldsBuilder.Finish()
	if err != nil {
		return Data{}, err
	}
	fieldsOffset := int64(-1)
	if fieldsFST != nil {
		fieldsOffset = int64(w.termsIndex.Len())
		if err := fieldsFST.Save(w.termsIndex); err != nil {
			return Data{}, err
		}
	}

	return Data{
		Info:       w.encodeInfo(fieldsOffset),
		TermsIndex: w.termsIndex.Bytes(),
		TermsDict:  w.termsDict.Bytes(),
		Freq:       w.freq.Bytes(),
		Prox:       w.prox.Bytes(),
	}, nil
}

func (w *writer) encodeInfo(fieldsOffset int64) []byte {
	info := encoding.NewEncoder(64 + 32*len(w.fields))
	info.PutUint32(magicNumber)
	info.PutUvarint(MajorVersion)
	info.PutUvarint(MinorVersion)
	info.PutVarint(fieldsOffset)
	info.PutUvarint(uint64(len(w.fields)))
	for _, field := range w.fields {
		info.PutBytes([]byte(field.info.Name))
		info.PutUvarint(uint64(field.info.Number))
		_ = info.WriteByte(byte(field.info.IndexOptions))
		if field.info.StorePayloads {
			_ = info.WriteByte(1)
		} else {
			_ = info.WriteByte(0)
		}
		info.PutUvarint(uint64(field.stats.NumTerms))
		info.PutUvarint(uint64(field.stats.SumDocFreq))
		info.PutVarint(field.stats.SumTotalTermFreq)
	}
	return info.Bytes()
}
