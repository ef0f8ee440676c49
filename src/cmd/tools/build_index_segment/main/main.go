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
	"io"
	golog "log"
	"os"

	"github.com/m3db/m3fst/src/index/persist"
	xconfig "github.com/m3db/m3fst/src/x/config"
	"github.com/m3db/m3fst/src/x/instrument"

	"github.com/pborman/getopt"
	"go.uber.org/zap"
)

func main() {
	var (
		optConfigFile = getopt.StringLong("config-file", 'f', "", "Configuration file")
		optInputFile  = getopt.StringLong("input-file", 'i', "", "Line delimited JSON documents, stdin if not set")
		optPrefix     = getopt.StringLong("prefix", 'p', "", "File set prefix, overrides the configured prefix")
	)
	getopt.Parse()

	logConfig := zap.NewDevelopmentConfig()
	log, err := logConfig.Build()
	if err != nil {
		golog.Fatalf("unable to create logger: %+v", err)
	}

	if *optConfigFile == "" {
		getopt.Usage()
		os.Exit(1)
	}

	var cfg configuration
	if err := xconfig.LoadFile(&cfg, *optConfigFile, xconfig.Options{}); err != nil {
		log.Fatal("unable to load config", zap.String("file", *optConfigFile), zap.Error(err))
	}
	if *optPrefix != "" {
		cfg.Output.Prefix = *optPrefix
	}

	var in io.Reader = os.Stdin
	if *optInputFile != "" {
		fd, err := os.Open(*optInputFile)
		if err != nil {
			log.Fatal("unable to open input file", zap.String("file", *optInputFile), zap.Error(err))
		}
		defer fd.Close()
		in = fd
	}

	run(cfg, in, log)
}

func run(cfg configuration, in io.Reader, log *zap.Logger) {
	iopts := instrument.NewOptions().SetLogger(log)
	fields, err := cfg.fieldInfos()
	if err != nil {
		log.Fatal("invalid fields", zap.Error(err))
	}

	data, numDocs, err := buildSegment(in, fields, cfg.Segment.NewOptions(iopts))
	if err != nil {
		log.Fatal("unable to build segment", zap.Error(err))
	}
	log.Info("built segment",
		zap.Int("docs", numDocs),
		zap.Int("fields", len(fields)),
		zap.Int("termsIndexBytes", len(data.TermsIndex)),
		zap.Int("termsDictBytes", len(data.TermsDict)),
		zap.Int("freqBytes", len(data.Freq)),
		zap.Int("proxBytes", len(data.Prox)),
	)

	persistOpts := cfg.Persist.NewOptions(iopts)
	if err := persist.WriteFileSet(cfg.Output.Dir, cfg.Output.Prefix, data, persistOpts); err != nil {
		log.Fatal("unable to write file set",
			zap.String("dir", cfg.Output.Dir),
			zap.String("prefix", cfg.Output.Prefix),
			zap.Error(err))
	}
}
