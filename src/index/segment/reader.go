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
	"time"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/fst"
	"github.com/m3db/m3fst/src/index/postings"
	"github.com/m3db/m3fst/src/index/postings/pulsing"
	xerrors "github.com/m3db/m3fst/src/x/errors"
	"github.com/m3db/m3fst/src/x/instrument"
	"github.com/m3db/m3fst/src/x/pool"

	"github.com/m3db/bloom/v4"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var errReaderClosed = errors.New("segment reader is closed")

type fieldState struct {
	info  postings.FieldInfo
	stats FieldStats

	// terms is nil for fields without terms.
	terms *fst.FST[termOutput]

	// bloom is nil unless terms bloom filters are enabled.
	bloom *bloom.BloomFilter
}

type readerMetrics struct {
	open      instrument.MethodMetrics
	iterators tally.Counter
}

func newReaderMetrics(iopts instrument.Options) readerMetrics {
	scope := iopts.MetricsScope().SubScope("segment-reader")
	return readerMetrics{
		open:      instrument.NewMethodMetrics(scope, "open", iopts.TimerSamplingRate()),
		iterators: scope.Counter("terms-iterators"),
	}
}

type reader struct {
	data     Data
	fields   []*fieldState
	byName   map[string]*fieldState
	postings *pulsing.Reader
	iterPool pool.ObjectPool
	metrics  readerMetrics
	closed   atomic.Bool
}

// NewReader opens a segment from its serialized data. The data must not be
// modified while the reader is open.
func NewReader(data Data, opts Options) (Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, xerrors.NewInvalidParamsError(err)
	}
	iopts := opts.InstrumentOptions()
	metrics := newReaderMetrics(iopts)

	start := time.Now()
	r, err := newReader(data, opts, metrics)
	metrics.open.ReportSuccessOrError(err, time.Since(start))
	if err != nil {
		return nil, err
	}
	iopts.Logger().Debug("opened segment",
		zap.Int("fields", len(r.fields)),
		zap.Int("termsIndexBytes", len(data.TermsIndex)),
		zap.Int("termsDictBytes", len(data.TermsDict)),
	)
	return r, nil
}

func newReader(data Data, opts Options, metrics readerMetrics) (*reader, error) {
	r := &reader{
		data:    data,
		byName:  make(map[string]*fieldState),
		metrics: metrics,
	}
	fieldsOffset, err := r.decodeInfo()
	if err != nil {
		return nil, err
	}
	if err := r.loadTermsIndex(fieldsOffset); err != nil {
		return nil, err
	}
	if p := opts.TermsBloomFilterFalsePositivePercent(); p > 0 {
		if err := r.buildBloomFilters(p); err != nil {
			return nil, err
		}
	}

	r.postings = pulsing.NewReader(postings.NewStandardReader(data.Freq, data.Prox))
	if err := r.postings.Init(encoding.NewDecoder(data.TermsDict)); err != nil {
		return nil, err
	}

	r.iterPool = pool.NewObjectPool(opts.TermsIteratorPoolOptions())
	r.iterPool.Init(func() interface{} {
		return newTermsIterator(r)
	})
	return r, nil
}

func (r *reader) decodeInfo() (int64, error) {
	in := encoding.NewDecoder(r.data.Info)
	magic, err := in.Uint32()
	if err != nil {
		return 0, err
	}
	if magic != magicNumber {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"segment magic mismatch: actual=%x, expected=%x", magic, magicNumber))
	}
	major, err := in.Uvarint()
	if err != nil {
		return 0, err
	}
	if major != MajorVersion {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"unsupported segment major version: actual=%d, expected=%d", major, MajorVersion))
	}
	if _, err := in.Uvarint(); err != nil {
		return 0, err
	}
	fieldsOffset, err := in.Varint()
	if err != nil {
		return 0, err
	}
	numFields, err := in.Int()
	if err != nil {
		return 0, err
	}

	for i := 0; i < numFields; i++ {
		field, err := decodeField(in)
		if err != nil {
			return 0, err
		}
		if i > 0 && field.info.Name <= r.fields[i-1].info.Name {
			return 0, xerrors.NewCorruptionError(fmt.Errorf(
				"fields out of order: last=%s, field=%s", r.fields[i-1].info.Name, field.info.Name))
		}
		r.fields = append(r.fields, field)
		r.byName[field.info.Name] = field
	}
	if !in.EOF() {
		return 0, xerrors.NewCorruptionError(fmt.Errorf(
			"%d trailing bytes after segment info", in.Remaining()))
	}
	return fieldsOffset, nil
}

func decodeField(in *encoding.Decoder) (*fieldState, error) {
	name, err := in.Bytes()
	if err != nil {
		return nil, err
	}
	number, err := in.Int()
	if err != nil {
		return nil, err
	}
	b, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	indexOpts := postings.IndexOptions(b)
	if err := indexOpts.Validate(); err != nil {
		return nil, xerrors.NewCorruptionError(err)
	}
	payloads, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if payloads > 1 {
		return nil, xerrors.NewCorruptionError(fmt.Errorf("invalid payloads flag: %d", payloads))
	}

	field := &fieldState{
		info: postings.FieldInfo{
			Name:          string(name),
			Number:        number,
			IndexOptions:  indexOpts,
			StorePayloads: payloads == 1,
		},
	}
	numTerms, err := in.Uvarint()
	if err != nil {
		return nil, err
	}
	sumDocFreq, err := in.Uvarint()
	if err != nil {
		return nil, err
	}
	sumTTF, err := in.Varint()
	if err != nil {
		return nil, err
	}
	field.stats = FieldStats{
		NumTerms:         int64(numTerms),
		SumDocFreq:       int64(sumDocFreq),
		SumTotalTermFreq: sumTTF,
	}
	return field, nil
}

func (r *reader) loadTermsIndex(fieldsOffset int64) error {
	if fieldsOffset < 0 {
		return r.checkTermsLoaded()
	}

	in := encoding.NewDecoder(r.data.TermsIndex)
	if err := in.Seek(int(fieldsOffset)); err != nil {
		return err
	}
	fieldsFST, err := fst.LoadFrom(in, fst.NewPositiveIntOutputs())
	if err != nil {
		return err
	}

	enum := fst.NewEnum(fieldsFST)
	for {
		ok, err := enum.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		_, offset := enum.Current()
		name := string(enum.CurrentBytes())
		field, ok := r.byName[name]
		if !ok {
			return xerrors.NewCorruptionError(fmt.Errorf("terms index has unknown field %s", name))
		}
		if offset >= fieldsOffset {
			return xerrors.NewCorruptionError(fmt.Errorf(
				"terms FST offset out of range: field=%s, offset=%d", name, offset))
		}
		if err := in.Seek(int(offset)); err != nil {
			return err
		}
		if field.terms, err = fst.LoadFrom(in, newTermOutputs()); err != nil {
			return err
		}
	}
	return r.checkTermsLoaded()
}

func (r *reader) checkTermsLoaded() error {
	for _, field := range r.fields {
		if (field.terms == nil) != (field.stats.NumTerms == 0) {
			return xerrors.NewCorruptionError(fmt.Errorf(
				"terms index does not match field %s with %d terms", field.info.Name, field.stats.NumTerms))
		}
	}
	return nil
}

func (r *reader) buildBloomFilters(falsePositivePercent float64) error {
	var term []byte
	for _, field := range r.fields {
		if field.terms == nil {
			continue
		}
		m, k := bloom.EstimateFalsePositiveRate(uint(field.stats.NumTerms), falsePositivePercent)
		field.bloom = bloom.NewBloomFilter(m, k)

		enum := fst.NewEnum(field.terms)
		for {
			ok, err := enum.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			labels, _ := enum.Current()
			term = term[:0]
			for _, label := range labels {
				term = append(term, byte(label))
			}
			field.bloom.Add(term)
		}
	}
	return nil
}

func (r *reader) Fields() []postings.FieldInfo {
	fields := make([]postings.FieldInfo, 0, len(r.fields))
	for _, field := range r.fields {
		fields = append(fields, field.info)
	}
	return fields
}

func (r *reader) Field(name string) (postings.FieldInfo, FieldStats, bool) {
	field, ok := r.byName[name]
	if !ok {
		return postings.FieldInfo{}, FieldStats{}, false
	}
	return field.info, field.stats, true
}

func (r *reader) Terms(name string) (TermsIterator, error) {
	if r.closed.Load() {
		return nil, xerrors.NewInvalidStateError(errReaderClosed)
	}
	it := r.iterPool.Get().(*termsIterator)
	it.reset(r.byName[name])
	r.metrics.iterators.Inc(1)
	return it, nil
}

func (r *reader) Close() error {
	if !r.closed.CAS(false, true) {
		return xerrors.NewInvalidStateError(errReaderClosed)
	}
	return r.postings.Close()
}
