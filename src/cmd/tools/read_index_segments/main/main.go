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
	"context"
	"fmt"
	"io"
	"io/ioutil"
	golog "log"
	"math"
	"os"
	"runtime"

	"github.com/m3db/m3fst/src/index/persist"
	"github.com/m3db/m3fst/src/index/segment"
	"github.com/m3db/m3fst/src/x/instrument"

	"github.com/pborman/getopt"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var halfCPUs = int(math.Max(float64(runtime.NumCPU()/2), 1))

func main() {
	var (
		optDir                 = getopt.StringLong("dir", 'd', "", "Directory of segment file sets")
		optPrefix              = getopt.StringLong("prefix", 'p', "", "Only read the file set with this prefix")
		optOutputFile          = getopt.StringLong("output-file", 'o', "", "Output JSON file of line delimited JSON objects for each segment")
		optValidate            = getopt.BoolLong("validate", 'v', "Validate the segments, do not print out contents")
		optValidateConcurrency = getopt.IntLong("validate-concurrency", 'c', halfCPUs, "Validation concurrency")
	)
	getopt.Parse()

	logConfig := zap.NewDevelopmentConfig()
	log, err := logConfig.Build()
	if err != nil {
		golog.Fatalf("unable to create logger: %+v", err)
	}

	if *optOutputFile != "" && *optValidate {
		log.Error("cannot write output and validate, do not set output file if validating")
		getopt.Usage()
		os.Exit(1)
	}

	if *optDir == "" || (*optOutputFile == "" && !*optValidate) {
		getopt.Usage()
		os.Exit(1)
	}

	var out io.Writer = ioutil.Discard
	if !*optValidate {
		fd, err := os.Create(*optOutputFile)
		if err != nil {
			log.Fatal("unable to create output file",
				zap.String("file", *optOutputFile),
				zap.Error(err))
		}
		defer fd.Close()
		out = fd
		log.Info("writing output JSON line delimited",
			zap.String("path", *optOutputFile))
	}

	iopts := instrument.NewOptions().SetLogger(log)
	err = run(context.Background(), out, runOptions{
		dir:                 *optDir,
		prefix:              *optPrefix,
		validate:            *optValidate,
		validateConcurrency: *optValidateConcurrency,
		persistOpts:         persist.NewOptions().SetInstrumentOptions(iopts),
		segmentOpts:         segment.NewOptions().SetInstrumentOptions(iopts),
		log:                 log,
	})
	if err != nil {
		log.Fatal("unable to read segments", zap.Error(err))
	}
}

type runOptions struct {
	dir                 string
	prefix              string
	validate            bool
	validateConcurrency int
	persistOpts         persist.Options
	segmentOpts         segment.Options
	log                 *zap.Logger
}

func run(ctx context.Context, out io.Writer, opts runOptions) error {
	log := opts.log

	prefixes := []string{opts.prefix}
	if opts.prefix == "" {
		var err error
		prefixes, err = persist.FileSetPrefixes(opts.dir)
		if err != nil {
			return fmt.Errorf("could not list file sets: %v", err)
		}
	}
	log.Info("discovered file sets", zap.Strings("prefixes", prefixes))

	if !opts.validate {
		for _, prefix := range prefixes {
			if err := readSegment(prefix, opts, func(r segment.Reader) error {
				return writeSegment(out, prefix, r)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	concurrency := opts.validateConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	log.Info("validating segment files", zap.Int("concurrency", concurrency))

	var (
		g, gctx = errgroup.WithContext(ctx)
		sem     = make(chan struct{}, concurrency)
		invalid = atomic.NewInt64(0)
	)
	for _, prefix := range prefixes {
		prefix := prefix
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			return g.Wait()
		}
		g.Go(func() error {
			defer func() { <-sem }()
			err := readSegment(prefix, opts, validateSegment)
			if err != nil {
				invalid.Inc()
				log.Error("invalid segment", zap.String("prefix", prefix), zap.Error(err))
				return nil
			}
			log.Info("validated segment", zap.String("prefix", prefix))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if n := invalid.Load(); n > 0 {
		return fmt.Errorf("%d of %d segments invalid", n, len(prefixes))
	}
	return nil
}

func readSegment(prefix string, opts runOptions, fn func(segment.Reader) error) (err error) {
	data, err := persist.ReadFileSet(opts.dir, prefix, opts.persistOpts)
	if err != nil {
		return fmt.Errorf("unable to read file set %s: %w", prefix, err)
	}
	r, err := segment.NewReader(data, opts.segmentOpts)
	if err != nil {
		return fmt.Errorf("unable to open segment %s: %w", prefix, err)
	}
	defer func() {
		if closeErr := r.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(r)
}
