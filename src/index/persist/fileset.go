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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m3db/m3fst/src/index/encoding"
	"github.com/m3db/m3fst/src/index/segment"
	xerrors "github.com/m3db/m3fst/src/x/errors"
	"github.com/m3db/m3fst/src/x/instrument"

	"github.com/golang/snappy"
	"github.com/m3db/stackadler32"
	"github.com/pkg/errors"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

var (
	// ErrCheckpointFileNotFound is returned when reading a file set that has
	// no checkpoint file, either missing or not completely written.
	ErrCheckpointFileNotFound = errors.New("checkpoint file does not exist")

	errInvalidPrefix = errors.New("file set prefix must be non-empty and not contain a path separator")
)

type fileSetFile struct {
	suffix string
	data   *[]byte
}

// fileSetFiles returns the files of a file set in digest order.
func fileSetFiles(data *segment.Data) []fileSetFile {
	return []fileSetFile{
		{suffix: infoFileSuffix, data: &data.Info},
		{suffix: termsIndexFileSuffix, data: &data.TermsIndex},
		{suffix: termsDictFileSuffix, data: &data.TermsDict},
		{suffix: freqFileSuffix, data: &data.Freq},
		{suffix: proxFileSuffix, data: &data.Prox},
	}
}

func filePath(dir, prefix, suffix string) string {
	return filepath.Join(dir, prefix+separator+suffix+fileExtension)
}

func validatePrefix(prefix string) error {
	if prefix == "" || strings.ContainsRune(prefix, os.PathSeparator) {
		return xerrors.NewInvalidParamsError(errInvalidPrefix)
	}
	return nil
}

type fileSetMetrics struct {
	write        instrument.MethodMetrics
	read         instrument.MethodMetrics
	bytesWritten tally.Counter
	bytesRead    tally.Counter
}

func newFileSetMetrics(iopts instrument.Options) fileSetMetrics {
	scope := iopts.MetricsScope().SubScope("fileset")
	rate := iopts.TimerSamplingRate()
	return fileSetMetrics{
		write:        instrument.NewMethodMetrics(scope, "write", rate),
		read:         instrument.NewMethodMetrics(scope, "read", rate),
		bytesWritten: scope.Counter("bytes-written"),
		bytesRead:    scope.Counter("bytes-read"),
	}
}

// FileSetExists returns whether a complete file set exists.
func FileSetExists(dir, prefix string) bool {
	_, err := os.Stat(filePath(dir, prefix, checkpointFileSuffix))
	return err == nil
}

// FileSetPrefixes returns the prefixes of the complete file sets in dir in
// sorted order.
func FileSetPrefixes(dir string) ([]string, error) {
	suffix := separator + checkpointFileSuffix + fileExtension
	matched, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, errors.Wrapf(err, "could not list file sets in %s", dir)
	}
	prefixes := make([]string, 0, len(matched))
	for _, path := range matched {
		prefixes = append(prefixes, strings.TrimSuffix(filepath.Base(path), suffix))
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

// WriteFileSet writes a segment as the file set prefix in dir, replacing any
// existing file set with the same prefix. The checkpoint file is written
// last, a file set without one is incomplete.
func WriteFileSet(dir, prefix string, data segment.Data, opts Options) error {
	if err := opts.Validate(); err != nil {
		return xerrors.NewInvalidParamsError(err)
	}
	if err := validatePrefix(prefix); err != nil {
		return err
	}

	iopts := opts.InstrumentOptions()
	metrics := newFileSetMetrics(iopts)
	start := time.Now()
	n, err := writeFileSet(dir, prefix, data, opts)
	metrics.write.ReportSuccessOrError(err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.bytesWritten.Inc(n)
	iopts.Logger().Info("wrote segment file set",
		zap.String("dir", dir),
		zap.String("prefix", prefix),
		zap.Stringer("compression", opts.Compression()),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func writeFileSet(dir, prefix string, data segment.Data, opts Options) (int64, error) {
	if err := os.MkdirAll(dir, opts.NewDirectoryMode()); err != nil {
		return 0, errors.Wrapf(err, "could not create directory %s", dir)
	}
	checkpointPath := filePath(dir, prefix, checkpointFileSuffix)
	if err := os.Remove(checkpointPath); err != nil && !os.IsNotExist(err) {
		return 0, errors.Wrapf(err, "could not remove checkpoint file %s", checkpointPath)
	}

	var (
		files   = fileSetFiles(&data)
		digests = encoding.NewEncoder(1 + digestLen*len(files))
		total   int64
	)
	_ = digests.WriteByte(byte(opts.Compression()))
	for _, f := range files {
		b := compress(opts.Compression(), *f.data)
		if err := writeFile(filePath(dir, prefix, f.suffix), b, opts.NewFileMode()); err != nil {
			return 0, err
		}
		digests.PutUint32(stackadler32.Checksum(b))
		total += int64(len(b))
	}

	if err := writeFile(filePath(dir, prefix, digestFileSuffix), digests.Bytes(), opts.NewFileMode()); err != nil {
		return 0, err
	}
	checkpoint := encoding.NewEncoder(digestLen)
	checkpoint.PutUint32(stackadler32.Checksum(digests.Bytes()))
	if err := writeFile(checkpointPath, checkpoint.Bytes(), opts.NewFileMode()); err != nil {
		return 0, err
	}
	return total + int64(digests.Len()+checkpoint.Len()), nil
}

func writeFile(path string, b []byte, mode os.FileMode) (finalErr error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", path)
	}
	defer func() {
		multiErr := xerrors.NewMultiError()
		if finalErr != nil {
			multiErr = multiErr.Add(finalErr)
		}
		if err := fd.Close(); err != nil {
			multiErr = multiErr.Add(errors.Wrapf(err, "could not close %s", path))
		}
		finalErr = multiErr.FinalError()
	}()

	if _, err := fd.Write(b); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	if err := fd.Sync(); err != nil {
		return errors.Wrapf(err, "could not sync %s", path)
	}
	return nil
}

func compress(compression CompressionType, b []byte) []byte {
	if compression == SnappyCompression {
		return snappy.Encode(nil, b)
	}
	return b
}

func decompress(compression CompressionType, path string, b []byte) ([]byte, error) {
	if compression != SnappyCompression {
		return b, nil
	}
	decoded, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, xerrors.NewCorruptionError(errors.Wrapf(err, "could not decompress %s", path))
	}
	return decoded, nil
}

// ReadFileSet reads the file set prefix in dir, validating the digest of
// every file.
func ReadFileSet(dir, prefix string, opts Options) (segment.Data, error) {
	if err := opts.Validate(); err != nil {
		return segment.Data{}, xerrors.NewInvalidParamsError(err)
	}
	if err := validatePrefix(prefix); err != nil {
		return segment.Data{}, err
	}

	iopts := opts.InstrumentOptions()
	metrics := newFileSetMetrics(iopts)
	start := time.Now()
	data, n, err := readFileSet(dir, prefix)
	metrics.read.ReportSuccessOrError(err, time.Since(start))
	if err != nil {
		return segment.Data{}, err
	}
	metrics.bytesRead.Inc(n)
	iopts.Logger().Debug("read segment file set",
		zap.String("dir", dir),
		zap.String("prefix", prefix),
		zap.Int64("bytes", n),
	)
	return data, nil
}

func readFileSet(dir, prefix string) (segment.Data, int64, error) {
	checkpointPath := filePath(dir, prefix, checkpointFileSuffix)
	checkpoint, err := os.ReadFile(checkpointPath)
	if os.IsNotExist(err) {
		return segment.Data{}, 0, ErrCheckpointFileNotFound
	}
	if err != nil {
		return segment.Data{}, 0, errors.Wrapf(err, "could not read %s", checkpointPath)
	}
	if len(checkpoint) != digestLen {
		return segment.Data{}, 0, xerrors.NewCorruptionError(fmt.Errorf(
			"invalid checkpoint file %s: expected %d bytes, actual %d", checkpointPath, digestLen, len(checkpoint)))
	}
	expectedDigestOfDigest, err := encoding.NewDecoder(checkpoint).Uint32()
	if err != nil {
		return segment.Data{}, 0, err
	}

	digestData, err := readAndValidate(filePath(dir, prefix, digestFileSuffix), expectedDigestOfDigest)
	if err != nil {
		return segment.Data{}, 0, err
	}
	digests := encoding.NewDecoder(digestData)
	b, err := digests.ReadByte()
	if err != nil {
		return segment.Data{}, 0, err
	}
	compression := CompressionType(b)
	if err := compression.Validate(); err != nil {
		return segment.Data{}, 0, xerrors.NewCorruptionError(err)
	}

	var (
		data  segment.Data
		total = int64(len(checkpoint) + len(digestData))
	)
	for _, f := range fileSetFiles(&data) {
		expected, err := digests.Uint32()
		if err != nil {
			return segment.Data{}, 0, err
		}
		path := filePath(dir, prefix, f.suffix)
		stored, err := readAndValidate(path, expected)
		if err != nil {
			return segment.Data{}, 0, err
		}
		if *f.data, err = decompress(compression, path, stored); err != nil {
			return segment.Data{}, 0, err
		}
		total += int64(len(stored))
	}
	if !digests.EOF() {
		return segment.Data{}, 0, xerrors.NewCorruptionError(fmt.Errorf(
			"%d trailing bytes in digest file", digests.Remaining()))
	}
	return data, total, nil
}

func readAndValidate(path string, expectedDigest uint32) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	if actual := stackadler32.Checksum(b); actual != expectedDigest {
		return nil, xerrors.NewCorruptionError(fmt.Errorf(
			"digest mismatch for %s: expected=%x, actual=%x", path, expectedDigest, actual))
	}
	return b, nil
}
